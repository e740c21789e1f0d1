package scheduler

import (
	"context"
	"log/slog"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/pkg/triggerdef"
	"github.com/c360/neurostream/types"
)

// Sink receives predictions as the loop emits them. Implementations must be
// safe for concurrent use; interleaved mode calls Emit from the merge loop
// only, but multiple schedulers may share one sink.
type Sink interface {
	Emit(ctx context.Context, pred types.Prediction) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, pred types.Prediction) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, pred types.Prediction) error {
	return f(ctx, pred)
}

// SlogSink logs every prediction at info level. The zero value is unusable;
// use NewSlogSink.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink builds a logging sink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit logs the prediction.
func (s *SlogSink) Emit(_ context.Context, pred types.Prediction) error {
	s.logger.Info("prediction",
		"label", pred.Label,
		"score", pred.Score,
		"timestamp_us", pred.Timestamp,
		"worker", pred.WorkerID)
	return nil
}

// ChannelSink delivers predictions on a channel, blocking until a consumer
// takes them or the context ends. Intended for tests and embedding.
type ChannelSink struct {
	ch chan types.Prediction
}

// NewChannelSink builds a channel sink with the given buffer depth.
func NewChannelSink(depth int) *ChannelSink {
	return &ChannelSink{ch: make(chan types.Prediction, depth)}
}

// C returns the receive side.
func (s *ChannelSink) C() <-chan types.Prediction {
	return s.ch
}

// Emit sends the prediction, honoring context cancellation.
func (s *ChannelSink) Emit(ctx context.Context, pred types.Prediction) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- pred:
		return nil
	}
}

// MarkerPusher is the outbound-event surface a MarkerSink writes to.
// *receiver.Receiver satisfies it.
type MarkerPusher interface {
	PushMarker(ctx context.Context, streamID string, value float64, tsMicros int64) error
}

// MarkerSink translates prediction labels to trigger codes and pushes them
// into a marker stream, closing the loop from decoder back to the recording.
type MarkerSink struct {
	pusher   MarkerPusher
	streamID string
	def      *triggerdef.Definition
}

// NewMarkerSink builds a marker sink. The definition maps labels to codes;
// a label outside the definition fails the emit.
func NewMarkerSink(pusher MarkerPusher, streamID string, def *triggerdef.Definition) (*MarkerSink, error) {
	if pusher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "MarkerSink", "New", "nil marker pusher")
	}
	if streamID == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "MarkerSink", "New", "empty stream id")
	}
	if def == nil || def.Len() == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "MarkerSink", "New", "empty trigger definition")
	}
	return &MarkerSink{pusher: pusher, streamID: streamID, def: def}, nil
}

// Emit pushes the prediction's trigger code at the prediction timestamp.
func (s *MarkerSink) Emit(ctx context.Context, pred types.Prediction) error {
	code, ok := s.def.Value(pred.Label)
	if !ok {
		return errors.WrapInvalid(errors.ErrInvalidData, "MarkerSink", "Emit",
			"label "+pred.Label+" not in trigger definition")
	}
	return s.pusher.PushMarker(ctx, s.streamID, float64(code), pred.Timestamp)
}

// MultiSink fans one prediction out to several sinks in order, stopping at
// the first failure.
type MultiSink []Sink

// Emit delivers to every sink.
func (m MultiSink) Emit(ctx context.Context, pred types.Prediction) error {
	for _, sink := range m {
		if err := sink.Emit(ctx, pred); err != nil {
			return err
		}
	}
	return nil
}
