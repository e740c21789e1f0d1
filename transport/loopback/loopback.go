// Package loopback provides an in-process implementation of the transport
// contract. Producers (the player, tests) publish into per-stream rings; any
// number of consumers pull independently, each tracking its own since-cursor.
//
// The loopback exists so the acquisition core can run and be tested without a
// network: it honors the same since-timestamp pull semantics as the NATS
// transport, backed by the same ring buffers the receiver uses.
package loopback

import (
	"context"
	"sync"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/pkg/ring"
	"github.com/c360/neurostream/transport"
	"github.com/c360/neurostream/types"
)

// DefaultStreamCapacity bounds the per-stream ring when no explicit capacity
// is given: 2 minutes at 2 kHz.
const DefaultStreamCapacity = 240_000

// Bus is the shared in-process hub. Multiple Transport connections attach to
// one Bus the way multiple NATS connections attach to one server, which is
// what share-nothing interleaved workers need.
type Bus struct {
	mu       sync.RWMutex
	streams  map[string]*busStream
	capacity int
}

type busStream struct {
	info types.StreamInfo
	buf  *ring.Buffer[types.Sample]
}

// Option configures a Bus.
type Option func(*Bus)

// WithStreamCapacity overrides the per-stream ring capacity in samples.
func WithStreamCapacity(capacity int) Option {
	return func(b *Bus) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

// NewBus creates an empty hub.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		streams:  make(map[string]*busStream),
		capacity: DefaultStreamCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect returns a transport connection attached to the bus. Each connection
// is independent; closing one does not affect the others.
func (b *Bus) Connect() *Transport {
	return &Transport{bus: b}
}

func (b *Bus) stream(streamID string) (*busStream, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.streams[streamID]
	return s, ok
}

// Transport is one connection to a Bus. It implements both the consuming
// contract and the producing Publisher side.
type Transport struct {
	bus    *Bus
	mu     sync.Mutex
	closed bool
}

var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Publisher = (*Transport)(nil)
)

func (t *Transport) checkOpen(method string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.WrapInvalid(errors.ErrConnectionLost, "LoopbackTransport", method, "connection closed")
	}
	return nil
}

// Discover lists every announced stream, signal roles first.
func (t *Transport) Discover(_ context.Context) ([]types.StreamInfo, error) {
	if err := t.checkOpen("Discover"); err != nil {
		return nil, err
	}

	t.bus.mu.RLock()
	defer t.bus.mu.RUnlock()

	infos := make([]types.StreamInfo, 0, len(t.bus.streams))
	for _, s := range t.bus.streams {
		if s.info.IsSignal() {
			infos = append(infos, s.info)
		}
	}
	for _, s := range t.bus.streams {
		if !s.info.IsSignal() {
			infos = append(infos, s.info)
		}
	}
	return infos, nil
}

// Pull returns the buffered samples newer than sinceMicros, oldest first.
// Samples that aged out of the ring before this consumer pulled are gone;
// the consumer's own ring sizing is what bounds that loss. A sample
// published with a timestamp at or below the cursor is skipped for good, per
// the contract's delivery limit on backward clock jumps.
func (t *Transport) Pull(ctx context.Context, streamID string, sinceMicros int64) ([]types.Sample, error) {
	if err := t.checkOpen("Pull"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WrapTransient(err, "LoopbackTransport", "Pull", "context check")
	}

	s, ok := t.bus.stream(streamID)
	if !ok {
		return nil, errors.WrapTransient(errors.ErrSourceDisconnected, "LoopbackTransport", "Pull",
			"stream not announced: "+streamID)
	}

	all := s.buf.Snapshot()
	// Timestamps are non-decreasing, so the new tail starts at the first
	// sample past the cursor.
	lo := len(all)
	for i, sample := range all {
		if sample.Timestamp > sinceMicros {
			lo = i
			break
		}
	}
	if lo == len(all) {
		return nil, nil
	}

	out := make([]types.Sample, 0, len(all)-lo)
	for _, sample := range all[lo:] {
		out = append(out, sample.Clone())
	}
	return out, nil
}

// PushMarker injects an event into a marker-role stream.
func (t *Transport) PushMarker(ctx context.Context, streamID string, value float64, tsMicros int64) error {
	if err := t.checkOpen("PushMarker"); err != nil {
		return err
	}

	s, ok := t.bus.stream(streamID)
	if !ok {
		return errors.WrapTransient(errors.ErrSourceDisconnected, "LoopbackTransport", "PushMarker",
			"stream not announced: "+streamID)
	}
	if !s.info.IsMarker() {
		return errors.WrapInvalid(errors.ErrInvalidData, "LoopbackTransport", "PushMarker",
			"stream is not marker-role: "+streamID)
	}

	return t.Publish(ctx, streamID, []types.Sample{types.MarkerSample(value, tsMicros)})
}

// Announce registers a stream on the bus, allocating its ring on first
// announcement. Re-announcing an ID keeps the existing buffer.
func (t *Transport) Announce(_ context.Context, info types.StreamInfo) error {
	if err := t.checkOpen("Announce"); err != nil {
		return err
	}
	if err := info.Validate(); err != nil {
		return err
	}

	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()

	if existing, ok := t.bus.streams[info.ID]; ok {
		existing.info = info
		return nil
	}

	buf, err := ring.New[types.Sample](t.bus.capacity)
	if err != nil {
		return errors.WrapFatal(err, "LoopbackTransport", "Announce", "ring allocation")
	}
	t.bus.streams[info.ID] = &busStream{info: info, buf: buf}
	return nil
}

// Publish appends samples to an announced stream.
func (t *Transport) Publish(_ context.Context, streamID string, samples []types.Sample) error {
	if err := t.checkOpen("Publish"); err != nil {
		return err
	}

	s, ok := t.bus.stream(streamID)
	if !ok {
		return errors.WrapTransient(errors.ErrSourceDisconnected, "LoopbackTransport", "Publish",
			"stream not announced: "+streamID)
	}

	for _, sample := range samples {
		s.buf.Append(sample.Clone())
	}
	return nil
}

// Retract removes a stream announcement and drops its buffer.
func (t *Transport) Retract(_ context.Context, streamID string) error {
	if err := t.checkOpen("Retract"); err != nil {
		return err
	}

	t.bus.mu.Lock()
	defer t.bus.mu.Unlock()
	delete(t.bus.streams, streamID)
	return nil
}

// Close marks the connection closed. The bus and its streams survive for
// other connections.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
