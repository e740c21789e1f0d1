// Package transport defines the capability contract between the acquisition
// core and the underlying stream discovery/transport layer.
//
// The core never talks to a concrete wire protocol. It consumes exactly three
// capabilities: list the available streams, pull the samples that arrived
// since the last pull, and push a marker value into an event stream. All
// timestamps crossing this boundary are Unix microseconds in one common time
// domain; reconciling source clocks into that domain is the transport's
// responsibility, not the core's.
//
// Two implementations ship with the module: an in-process loopback
// (transport/loopback) used by the player, tests, and single-machine runs,
// and a NATS-backed transport (transport/natstream) for distributed
// deployments.
package transport

import (
	"context"

	"github.com/c360/neurostream/types"
)

// Transport is the capability contract consumed by the receiver.
//
// Pull returns every sample with a timestamp strictly greater than
// sinceMicros, in timestamp order as delivered by the source. An empty result
// with a nil error means no new data. A stream the transport no longer knows
// about fails with errors.ErrSourceDisconnected (possibly wrapped).
//
// The timestamp cursor is also a delivery limit: a sample whose timestamp
// jumped backward past a cursor the consumer already advanced is never
// delivered, so only backward jumps arriving within one pull batch reach the
// consumer's clock checks. Sources are expected to keep per-stream
// timestamps non-decreasing; the cursor does not defend against ones that
// violate that across pulls.
type Transport interface {
	// Discover lists the streams currently announced on the transport.
	Discover(ctx context.Context) ([]types.StreamInfo, error)

	// Pull returns the samples that arrived on the stream after sinceMicros,
	// oldest first. sinceMicros 0 means "everything buffered".
	Pull(ctx context.Context, streamID string, sinceMicros int64) ([]types.Sample, error)

	// PushMarker injects an event value with an explicit timestamp into a
	// marker-role stream.
	PushMarker(ctx context.Context, streamID string, value float64, tsMicros int64) error

	// Close releases the transport connection. Idempotent.
	Close() error
}

// Publisher is the producing side of a transport, implemented by transports
// that can also announce and feed streams (the loopback and NATS transports
// both do). The player writes through this interface; the receiver never
// needs it.
type Publisher interface {
	// Announce registers a stream so consumers can discover it. Announcing
	// the same stream ID again replaces the previous announcement.
	Announce(ctx context.Context, info types.StreamInfo) error

	// Publish appends samples to an announced stream, oldest first.
	Publish(ctx context.Context, streamID string, samples []types.Sample) error

	// Retract removes a stream announcement. Consumers pulling the stream
	// afterwards see it as disconnected.
	Retract(ctx context.Context, streamID string) error
}
