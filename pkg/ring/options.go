package ring

import (
	"github.com/c360/neurostream/metric"
)

// Option configures ring behavior using the functional options pattern.
type Option[T any] func(*ringOptions[T])

// OverflowCallback is called with the evicted element each time an append
// overwrites unread data. Invoked outside the ring's lock.
type OverflowCallback[T any] func(evicted T)

// ringOptions holds internal configuration for ring instances.
// Stats are ALWAYS collected; metrics are optional via WithMetrics().
type ringOptions[T any] struct {
	overflowCallback OverflowCallback[T]

	// metricsReg is optional - if provided, ring stats are also exposed as
	// Prometheus metrics under the given name label
	metricsReg  *metric.MetricsRegistry
	metricsName string
}

// WithMetrics enables Prometheus metrics export for ring statistics.
// If registry is nil or name is empty, this option is ignored.
func WithMetrics[T any](registry *metric.MetricsRegistry, name string) Option[T] {
	return func(opts *ringOptions[T]) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

// WithOverflowCallback sets a callback invoked with each evicted element.
func WithOverflowCallback[T any](callback OverflowCallback[T]) Option[T] {
	return func(opts *ringOptions[T]) {
		opts.overflowCallback = callback
	}
}

// applyOptions applies functional options to build the final configuration.
func applyOptions[T any](options ...Option[T]) *ringOptions[T] {
	opts := &ringOptions[T]{}

	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}

	return opts
}
