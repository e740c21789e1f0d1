package receiver

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/pkg/ring"
	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/transport"
	"github.com/c360/neurostream/types"
)

// markerRateFloor sizes marker rings when the stream declares no nominal
// rate: 16 event slots per buffered second.
const markerRateFloor = 16.0

// StreamState is the per-handle connection state machine:
// Binding → Active ⇄ Stale → Disconnected (terminal).
type StreamState int32

const (
	// StreamBinding is the initial state before the first successful pull.
	StreamBinding StreamState = iota
	// StreamActive means the most recent pull attempt succeeded.
	StreamActive
	// StreamStale means the most recent pull attempt timed out; the handle
	// still serves buffered history.
	StreamStale
	// StreamDisconnected is terminal: the transport reported the stream gone
	// or the handle was torn down.
	StreamDisconnected
)

// String returns the state name.
func (s StreamState) String() string {
	switch s {
	case StreamBinding:
		return "binding"
	case StreamActive:
		return "active"
	case StreamStale:
		return "stale"
	case StreamDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handle wraps one bound stream: its ring buffer, pull cursor, state machine,
// and clock-anomaly tracking. The owning receiver is the only caller of Pull;
// everything else is read-only snapshot access.
type Handle struct {
	info         types.StreamInfo
	buf          *ring.Buffer[types.Sample]
	tr           transport.Transport
	periodMicros int64

	state atomic.Int32

	// cursor is the newest timestamp ever seen; pulls request samples
	// strictly after it. lastDelivered is the previous delivered timestamp,
	// kept separately so a backward-jumping sample is detected against the
	// sample before it, not against the max.
	cursor        atomic.Int64
	lastDelivered atomic.Int64

	totalReceived atomic.Uint64
	pulls         atomic.Uint64
	timeouts      atomic.Uint64
	lastPullMicro atomic.Int64
}

func newHandle(info types.StreamInfo, tr transport.Transport, bufferSeconds float64, ringOpts ...ring.Option[types.Sample]) (*Handle, error) {
	rate := info.NominalRate
	if rate <= 0 {
		rate = markerRateFloor
	}
	capacity := timestamp.SamplesIn(bufferSeconds, rate)
	if capacity < 1 {
		capacity = 1
	}

	buf, err := ring.New[types.Sample](capacity, ringOpts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "StreamHandle", "newHandle",
			fmt.Sprintf("ring allocation for %s", info.ID))
	}

	h := &Handle{
		info:         info,
		buf:          buf,
		tr:           tr,
		periodMicros: timestamp.PeriodMicros(info.NominalRate),
	}
	h.state.Store(int32(StreamBinding))
	return h, nil
}

// Info returns the immutable stream description.
func (h *Handle) Info() types.StreamInfo {
	return h.info
}

// State returns the current connection state.
func (h *Handle) State() StreamState {
	return StreamState(h.state.Load())
}

// TotalReceived returns the monotonically increasing count of samples ever
// received, for backlog diagnostics.
func (h *Handle) TotalReceived() uint64 {
	return h.totalReceived.Load()
}

// LastPull returns the wall time of the most recent successful pull, Unix
// microseconds, 0 before the first.
func (h *Handle) LastPull() int64 {
	return h.lastPullMicro.Load()
}

// Buffer exposes the handle's ring for snapshot reads.
func (h *Handle) Buffer() *ring.Buffer[types.Sample] {
	return h.buf
}

// Pull requests every sample available since the last pull and appends each
// to the ring. Returns the number appended (0 is valid) plus any clock
// anomalies detected in the batch.
//
// A context deadline marks the handle Stale; a transport-reported
// disconnection marks it Disconnected. Both are returned for the receiver to
// translate; only the receiver decides whether a disconnect is fatal.
func (h *Handle) Pull(ctx context.Context) (int, []types.ClockAnomaly, error) {
	if h.State() == StreamDisconnected {
		return 0, nil, errors.WrapTransient(errors.ErrSourceDisconnected, "StreamHandle", "Pull",
			"handle is disconnected: "+h.info.ID)
	}

	h.pulls.Add(1)
	samples, err := h.tr.Pull(ctx, h.info.ID, h.cursor.Load())
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrSourceDisconnected):
			h.state.Store(int32(StreamDisconnected))
			return 0, nil, err
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
			h.timeouts.Add(1)
			h.markStale()
			return 0, nil, err
		default:
			h.markStale()
			return 0, nil, errors.WrapTransient(err, "StreamHandle", "Pull", "transport pull")
		}
	}

	var anomalies []types.ClockAnomaly
	for _, s := range samples {
		if a, ok := h.checkClock(s.Timestamp); ok {
			anomalies = append(anomalies, a)
		}
		h.buf.Append(s)
		h.lastDelivered.Store(s.Timestamp)
		if s.Timestamp > h.cursor.Load() {
			h.cursor.Store(s.Timestamp)
		}
	}

	h.totalReceived.Add(uint64(len(samples)))
	h.lastPullMicro.Store(timestamp.Now())
	h.state.Store(int32(StreamActive))
	return len(samples), anomalies, nil
}

// checkClock flags a backward jump larger than one nominal sample period.
// The sample is accepted either way: availability over strict ordering.
// Marker streams have no nominal period, so any backward step is a jump.
func (h *Handle) checkClock(ts int64) (types.ClockAnomaly, bool) {
	prev := h.lastDelivered.Load()
	if prev == 0 || ts >= prev {
		return types.ClockAnomaly{}, false
	}
	jump := prev - ts
	if h.periodMicros > 0 && jump <= h.periodMicros {
		return types.ClockAnomaly{}, false
	}
	return types.ClockAnomaly{
		StreamID:   h.info.ID,
		Previous:   prev,
		Observed:   ts,
		JumpMicros: jump,
	}, true
}

// PushMarker injects an event value into a marker-role stream, both through
// the transport (so other consumers and recordings see it) and into the local
// ring (so this receiver's windows carry it without a transport round trip).
func (h *Handle) PushMarker(ctx context.Context, value float64, tsMicros int64) error {
	if !h.info.IsMarker() {
		return errors.WrapInvalid(errors.ErrInvalidData, "StreamHandle", "PushMarker",
			"stream is not marker-role: "+h.info.ID)
	}
	if h.State() == StreamDisconnected {
		return errors.WrapTransient(errors.ErrSourceDisconnected, "StreamHandle", "PushMarker",
			"handle is disconnected: "+h.info.ID)
	}

	if err := h.tr.PushMarker(ctx, h.info.ID, value, tsMicros); err != nil {
		return errors.WrapTransient(err, "StreamHandle", "PushMarker", "transport push")
	}

	h.buf.Append(types.MarkerSample(value, tsMicros))
	h.totalReceived.Add(1)
	if tsMicros > h.cursor.Load() {
		// Advance the cursor so the next pull does not re-deliver our own
		// marker echoed back by the transport.
		h.cursor.Store(tsMicros)
	}
	h.lastDelivered.Store(tsMicros)
	return nil
}

func (h *Handle) markStale() {
	// Disconnected is terminal; a timeout cannot resurrect the handle.
	h.state.CompareAndSwap(int32(StreamActive), int32(StreamStale))
	h.state.CompareAndSwap(int32(StreamBinding), int32(StreamStale))
}

// disconnect moves the handle to its terminal state.
func (h *Handle) disconnect() {
	h.state.Store(int32(StreamDisconnected))
}
