// Package testutil provides deterministic fakes for acquisition tests: a
// scripted transport with fault injection, synthetic sample generators, and a
// controllable classifier. Nothing here touches the network or the clock
// beyond explicit delays.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/types"
)

// ScriptedTransport is an in-memory transport whose behavior per stream is
// fully scripted by the test: feed samples, inject pull delays, declare
// streams disconnected. Safe for concurrent use.
type ScriptedTransport struct {
	mu           sync.Mutex
	infos        []types.StreamInfo
	history      map[string][]types.Sample
	delays       map[string]time.Duration
	disconnected map[string]bool
	pullCounts   map[string]int
	markers      map[string][]types.Sample
}

// NewScriptedTransport creates an empty scripted transport.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{
		history:      make(map[string][]types.Sample),
		delays:       make(map[string]time.Duration),
		disconnected: make(map[string]bool),
		pullCounts:   make(map[string]int),
		markers:      make(map[string][]types.Sample),
	}
}

// AddStream announces a stream. Order matters: discovery returns streams in
// the order added, so the first signal-role stream added is the reference a
// receiver selects by default.
func (s *ScriptedTransport) AddStream(info types.StreamInfo) *ScriptedTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, info)
	return s
}

// Feed appends samples to a stream's history; subsequent pulls past the
// cursor deliver them.
func (s *ScriptedTransport) Feed(streamID string, samples ...types.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[streamID] = append(s.history[streamID], samples...)
}

// SetDelay makes every pull on the stream block for d before answering,
// letting tests trigger per-stream timeouts.
func (s *ScriptedTransport) SetDelay(streamID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[streamID] = d
}

// SetDisconnected makes pulls on the stream fail with ErrSourceDisconnected.
func (s *ScriptedTransport) SetDisconnected(streamID string, gone bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected[streamID] = gone
}

// PullCount returns how many pulls the stream has answered.
func (s *ScriptedTransport) PullCount(streamID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pullCounts[streamID]
}

// PushedMarkers returns the markers pushed into a stream.
func (s *ScriptedTransport) PushedMarkers(streamID string) []types.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Sample, len(s.markers[streamID]))
	copy(out, s.markers[streamID])
	return out
}

// Discover lists the scripted streams.
func (s *ScriptedTransport) Discover(_ context.Context) ([]types.StreamInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.StreamInfo, len(s.infos))
	copy(out, s.infos)
	return out, nil
}

// Pull delivers the scripted history past sinceMicros, honoring injected
// delays and disconnections.
func (s *ScriptedTransport) Pull(ctx context.Context, streamID string, sinceMicros int64) ([]types.Sample, error) {
	s.mu.Lock()
	delay := s.delays[streamID]
	gone := s.disconnected[streamID]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if gone {
		return nil, errors.WrapTransient(errors.ErrSourceDisconnected, "ScriptedTransport", "Pull", streamID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pullCounts[streamID]++

	var out []types.Sample
	for _, sample := range s.history[streamID] {
		if sample.Timestamp > sinceMicros {
			out = append(out, sample.Clone())
		}
	}
	return out, nil
}

// PushMarker records the pushed event and appends it to the stream history.
func (s *ScriptedTransport) PushMarker(_ context.Context, streamID string, value float64, tsMicros int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disconnected[streamID] {
		return errors.WrapTransient(errors.ErrSourceDisconnected, "ScriptedTransport", "PushMarker", streamID)
	}
	m := types.MarkerSample(value, tsMicros)
	s.markers[streamID] = append(s.markers[streamID], m)
	s.history[streamID] = append(s.history[streamID], m)
	return nil
}

// Close is a no-op.
func (s *ScriptedTransport) Close() error {
	return nil
}
