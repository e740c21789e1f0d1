// Package natstream binds the transport contract to NATS: stream
// announcements live in a JetStream key-value bucket, sample chunks flow as
// JSON on one subject per stream, and each consumer drains its own
// subscription inbox into a per-stream ring so Pull stays a cheap local scan.
//
// Subjects: `neuro.data.<id>` for signal streams, `neuro.marker.<id>` for
// marker streams. Payloads are JSON arrays of types.Sample, oldest first.
// Timestamps are stamped by the producer; the bucket and subjects share one
// time domain by convention.
package natstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/natsclient"
	"github.com/c360/neurostream/pkg/ring"
	"github.com/c360/neurostream/transport"
	"github.com/c360/neurostream/types"
)

const (
	// DefaultBucket is the KV bucket holding stream announcements.
	DefaultBucket = "neuro-streams"

	// DefaultInboxCapacity bounds the per-subscription ring. Matches the
	// loopback default: several minutes of kilohertz data.
	DefaultInboxCapacity = 240_000

	dataSubjectPrefix   = "neuro.data."
	markerSubjectPrefix = "neuro.marker."
)

// Option configures a Transport.
type Option func(*Transport)

// WithBucket overrides the announcement bucket name.
func WithBucket(name string) Option {
	return func(t *Transport) {
		t.bucketName = name
	}
}

// WithInboxCapacity overrides the per-stream inbox ring capacity.
func WithInboxCapacity(capacity int) Option {
	return func(t *Transport) {
		t.capacity = capacity
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger.With("component", "natstream")
	}
}

// Transport is the NATS binding of the transport contract. It implements
// both the consuming side (Discover/Pull/PushMarker) and the producing side
// (Announce/Publish/Retract). The NATS client is borrowed, not owned: Close
// tears down this transport's subscriptions and leaves the connection up.
type Transport struct {
	client     *natsclient.Client
	kv         *natsclient.KVStore
	bucketName string
	capacity   int
	logger     *slog.Logger

	mu      sync.Mutex
	inboxes map[string]*inbox
	closed  bool
}

// inbox is one consumer-side subscription feeding a ring.
type inbox struct {
	sub *nats.Subscription
	buf *ring.Buffer[types.Sample]
}

// Interface guards
var (
	_ transport.Transport = (*Transport)(nil)
	_ transport.Publisher = (*Transport)(nil)
)

// New builds a transport over a connected client, creating the announcement
// bucket when it does not exist yet.
func New(ctx context.Context, client *natsclient.Client, opts ...Option) (*Transport, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "NATSTransport", "New", "nil client")
	}

	t := &Transport{
		client:     client,
		bucketName: DefaultBucket,
		capacity:   DefaultInboxCapacity,
		logger:     slog.Default().With("component", "natstream"),
		inboxes:    make(map[string]*inbox),
	}
	for _, opt := range opts {
		opt(t)
	}

	bucket, err := client.CreateKeyValueBucket(ctx, kvConfig(t.bucketName))
	if err != nil {
		return nil, errors.WrapTransient(err, "NATSTransport", "New", "open bucket "+t.bucketName)
	}
	t.kv = client.NewKVStore(bucket)
	return t, nil
}

// Discover lists the announced streams, signal roles first so the default
// reference pick lands on a signal stream.
func (t *Transport) Discover(ctx context.Context) ([]types.StreamInfo, error) {
	if err := t.checkOpen("Discover"); err != nil {
		return nil, err
	}

	keys, err := t.kv.Keys(ctx)
	if err != nil {
		return nil, errors.WrapTransient(err, "NATSTransport", "Discover", "list announcements")
	}

	var signals, markers []types.StreamInfo
	for _, key := range keys {
		value, err := t.kv.Get(ctx, key)
		if err != nil {
			if errors.Is(err, errors.ErrKeyNotFound) {
				continue // retracted between Keys and Get
			}
			return nil, err
		}
		var info types.StreamInfo
		if err := json.Unmarshal(value, &info); err != nil {
			t.logger.Warn("malformed announcement skipped", "key", key, "error", err)
			continue
		}
		if info.IsSignal() {
			signals = append(signals, info)
		} else {
			markers = append(markers, info)
		}
	}
	return append(signals, markers...), nil
}

// Pull returns the inbox samples newer than sinceMicros, oldest first. The
// first pull on a stream resolves its announcement and subscribes; a stream
// with no announcement is disconnected. A chunk whose timestamps jumped
// backward below the cursor is skipped for good, per the contract's delivery
// limit on backward clock jumps.
func (t *Transport) Pull(ctx context.Context, streamID string, sinceMicros int64) ([]types.Sample, error) {
	if err := t.checkOpen("Pull"); err != nil {
		return nil, err
	}

	in, err := t.ensureInbox(ctx, streamID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := in.buf.Snapshot()
	var out []types.Sample
	for _, s := range snapshot {
		if s.Timestamp > sinceMicros {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// ensureInbox subscribes to the stream's subject on first use.
func (t *Transport) ensureInbox(ctx context.Context, streamID string) (*inbox, error) {
	t.mu.Lock()
	if in, ok := t.inboxes[streamID]; ok {
		t.mu.Unlock()
		return in, nil
	}
	t.mu.Unlock()

	value, err := t.kv.Get(ctx, streamID)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.WrapTransient(errors.ErrSourceDisconnected, "NATSTransport", "Pull", streamID)
		}
		return nil, err
	}
	var info types.StreamInfo
	if err := json.Unmarshal(value, &info); err != nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "NATSTransport", "Pull",
			"malformed announcement for "+streamID)
	}

	buf, err := ring.New[types.Sample](t.capacity)
	if err != nil {
		return nil, errors.WrapInvalid(err, "NATSTransport", "Pull", "inbox ring for "+streamID)
	}

	sub, err := t.client.Subscribe(subjectFor(info), func(msg *nats.Msg) {
		var samples []types.Sample
		if err := json.Unmarshal(msg.Data, &samples); err != nil {
			t.logger.Warn("malformed chunk dropped", "stream", streamID, "error", err)
			return
		}
		for _, s := range samples {
			buf.Append(s)
		}
	})
	if err != nil {
		return nil, err
	}

	in := &inbox{sub: sub, buf: buf}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		_ = sub.Unsubscribe()
		return nil, errors.Wrap(errors.ErrStreamClosed, "NATSTransport", "Pull", "transport closed")
	}
	if existing, ok := t.inboxes[streamID]; ok { // lost the race, keep the first
		_ = sub.Unsubscribe()
		return existing, nil
	}
	t.inboxes[streamID] = in
	t.logger.Debug("subscribed", "stream", streamID, "subject", subjectFor(info))
	return in, nil
}

// PushMarker publishes an event value into a marker stream and mirrors it
// into the local inbox so the pusher sees it without a broker round trip.
func (t *Transport) PushMarker(ctx context.Context, streamID string, value float64, tsMicros int64) error {
	if err := t.checkOpen("PushMarker"); err != nil {
		return err
	}

	raw, err := t.kv.Get(ctx, streamID)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return errors.WrapTransient(errors.ErrSourceDisconnected, "NATSTransport", "PushMarker", streamID)
		}
		return err
	}
	var info types.StreamInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "NATSTransport", "PushMarker", streamID)
	}
	if !info.IsMarker() {
		return errors.WrapInvalid(errors.ErrInvalidData, "NATSTransport", "PushMarker",
			streamID+" is not a marker stream")
	}

	data, err := json.Marshal([]types.Sample{types.MarkerSample(value, tsMicros)})
	if err != nil {
		return errors.WrapInvalid(err, "NATSTransport", "PushMarker", "encode marker")
	}
	return t.client.Publish(subjectFor(info), data)
}

// Announce registers a stream in the discovery bucket.
func (t *Transport) Announce(ctx context.Context, info types.StreamInfo) error {
	if err := t.checkOpen("Announce"); err != nil {
		return err
	}
	if err := info.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return errors.WrapInvalid(err, "NATSTransport", "Announce", "encode "+info.ID)
	}
	return t.kv.Put(ctx, info.ID, data)
}

// Publish sends one chunk of samples to the stream's subject.
func (t *Transport) Publish(ctx context.Context, streamID string, samples []types.Sample) error {
	if err := t.checkOpen("Publish"); err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	raw, err := t.kv.Get(ctx, streamID)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return errors.WrapTransient(errors.ErrSourceDisconnected, "NATSTransport", "Publish", streamID)
		}
		return err
	}
	var info types.StreamInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "NATSTransport", "Publish", streamID)
	}

	data, err := json.Marshal(samples)
	if err != nil {
		return errors.WrapInvalid(err, "NATSTransport", "Publish", "encode chunk")
	}
	return t.client.Publish(subjectFor(info), data)
}

// Retract removes a stream announcement. The subject keeps flowing for
// consumers already subscribed; new pulls see the stream as disconnected.
func (t *Transport) Retract(ctx context.Context, streamID string) error {
	if err := t.checkOpen("Retract"); err != nil {
		return err
	}
	return t.kv.Delete(ctx, streamID)
}

// Close unsubscribes this transport's inboxes. The underlying client stays
// connected; its owner closes it. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	for id, in := range t.inboxes {
		if err := in.sub.Unsubscribe(); err != nil {
			t.logger.Warn("unsubscribe failed", "stream", id, "error", err)
		}
	}
	t.inboxes = nil
	return nil
}

func (t *Transport) checkOpen(method string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.Wrap(errors.ErrStreamClosed, "NATSTransport", method, "transport closed")
	}
	return nil
}

func kvConfig(name string) jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "stream announcements",
	}
}

func subjectFor(info types.StreamInfo) string {
	if info.IsMarker() {
		return markerSubjectPrefix + info.ID
	}
	return dataSubjectPrefix + info.ID
}
