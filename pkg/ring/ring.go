// Package ring provides a generic, fixed-capacity ring buffer for continuous
// sample acquisition.
//
// Unlike a queue, the ring retains data until it ages out by overwrite: reads
// never consume. Append always succeeds in O(1) with no allocation, evicting
// the oldest element and incrementing the overflow counter when full. Readers
// receive copies of the stored elements, never live references, so a reader
// may hold a result indefinitely without blocking further acquisition.
//
// Statistics are always collected for observability. Prometheus metrics can
// be optionally enabled via the WithMetrics() functional option.
package ring

import (
	"sync"

	"github.com/c360/neurostream/errors"
)

// Buffer is a thread-safe fixed-capacity ring with overwrite-oldest overflow
// semantics. A single writer (the owning stream handle's pull path) appends;
// any number of readers take copy-on-read snapshots.
type Buffer[T any] struct {
	mu           sync.RWMutex
	items        []T
	capacity     int
	size         int
	head         int // Next write position
	overflows    uint64
	totalWritten uint64
	stats        *Statistics
	metrics      *ringMetrics
	opts         *ringOptions[T]
}

// New creates a ring buffer with the given capacity.
// Capacity below 1 is raised to 1. Returns an error only if metrics
// registration fails when metrics are requested.
func New[T any](capacity int, options ...Option[T]) (*Buffer[T], error) {
	if capacity <= 0 {
		capacity = 1 // Minimum capacity
	}

	opts := applyOptions(options...)

	// Stats are ALWAYS initialized - observability is not optional
	stats := NewStatistics()

	var metrics *ringMetrics
	if opts.metricsReg != nil && opts.metricsName != "" {
		var err error
		metrics, err = newRingMetrics(opts.metricsReg, opts.metricsName)
		if err != nil {
			return nil, errors.WrapTransient(err, "ring", "New", "metrics registration")
		}
	}

	return &Buffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    stats,
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Append adds an item, overwriting the oldest element and incrementing the
// overflow counter when the ring is full. Never fails, never allocates.
func (b *Buffer[T]) Append(item T) {
	b.mu.Lock()

	var evicted T
	var didEvict bool
	if b.size == b.capacity {
		evicted = b.items[b.head]
		didEvict = true
		b.overflows++
		b.stats.Overflow()
		if b.metrics != nil {
			b.metrics.recordOverflow()
		}
	} else {
		b.size++
	}

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	b.totalWritten++

	b.stats.Append()
	b.stats.UpdateSize(int64(b.size))
	if b.metrics != nil {
		b.metrics.recordAppend(b.size, b.capacity)
	}

	cb := b.opts.overflowCallback
	b.mu.Unlock()

	// Callback runs outside the lock to avoid deadlock
	if didEvict && cb != nil {
		cb(evicted)
	}
}

// ReadLatest returns the n most recent elements in chronological order,
// copied out of the ring. Fails with ErrInsufficientData while fewer than n
// elements have ever been written (cold start). Requests larger than capacity
// are clamped to capacity once the ring has filled.
func (b *Buffer[T]) ReadLatest(n int) ([]T, error) {
	if n <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Buffer", "ReadLatest", "non-positive count")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if uint64(n) > b.totalWritten {
		return nil, errors.WrapTransient(errors.ErrInsufficientData, "Buffer", "ReadLatest", "ring not filled")
	}
	if n > b.size {
		n = b.size
	}

	result := make([]T, n)
	start := b.head - n
	if start < 0 {
		start += b.capacity
	}
	for i := 0; i < n; i++ {
		result[i] = b.items[(start+i)%b.capacity]
	}

	b.stats.Read()
	if b.metrics != nil {
		b.metrics.recordRead()
	}

	return result, nil
}

// Snapshot returns every buffered element in chronological order, copied out.
// Returns an empty slice for an empty ring.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	start := b.head - b.size
	if start < 0 {
		start += b.capacity
	}
	for i := 0; i < b.size; i++ {
		result[i] = b.items[(start+i)%b.capacity]
	}

	b.stats.Read()
	if b.metrics != nil {
		b.metrics.recordRead()
	}

	return result
}

// Latest returns the most recently appended element.
// The second return is false while the ring is empty.
func (b *Buffer[T]) Latest() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var zero T
	if b.size == 0 {
		return zero, false
	}

	idx := b.head - 1
	if idx < 0 {
		idx += b.capacity
	}
	return b.items[idx], true
}

// Count returns the current number of buffered elements.
func (b *Buffer[T]) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the fixed capacity. Immutable, so no lock needed.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Full reports whether the next append will evict.
func (b *Buffer[T]) Full() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size == b.capacity
}

// Overflowed returns how many appends have evicted an element.
func (b *Buffer[T]) Overflowed() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.overflows
}

// TotalWritten returns the total number of elements ever appended.
func (b *Buffer[T]) TotalWritten() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totalWritten
}

// Reset empties the ring and zeroes the overflow and total-written counters,
// restoring the cold-start state. Capacity is unchanged.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	for i := range b.items {
		b.items[i] = zero // Clear for GC
	}
	b.head = 0
	b.size = 0
	b.overflows = 0
	b.totalWritten = 0

	b.stats.UpdateSize(0)
	if b.metrics != nil {
		b.metrics.updateSize(0, b.capacity)
	}
}

// Stats returns ring statistics (always available for observability).
func (b *Buffer[T]) Stats() *Statistics {
	return b.stats
}
