// Package ring provides thread-safe retained ring buffers with built-in
// statistics tracking and optional Prometheus metrics integration.
//
// # Overview
//
// The ring package implements fixed-capacity retained buffers for sample and
// event acquisition. Unlike a consume queue, reads never remove elements:
// data ages out only by being overwritten once capacity is reached. This
// matches the sliding-window access pattern of signal decoding, where many
// overlapping windows are read from the same recent data.
//
// # Quick Start
//
// Basic ring creation:
//
//	buf, err := ring.New[Sample](2048)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Append data (never fails, oldest is overwritten when full)
//	buf.Append(sample)
//
//	// Read the most recent n elements, oldest first
//	window, err := buf.ReadLatest(128)
//
// With metrics and an eviction callback:
//
//	buf, err := ring.New[Sample](2048,
//		ring.WithMetrics[Sample](registry, "eeg_main"),
//		ring.WithOverflowCallback[Sample](func(s Sample) {
//			// oldest sample was overwritten unread
//		}),
//	)
//
// # Overwrite Semantics
//
// Append always succeeds. When the ring is full, the oldest element is
// evicted to make room and the overflow counter increments. Appending C+k
// elements to a ring of capacity C counts exactly k overflows and retains
// the most recent C elements in append order. Producers are never blocked
// and never drop fresh data; only the oldest data is sacrificed.
//
// # Cold Start
//
// ReadLatest(n) fails with errors.ErrInsufficientData until at least n
// elements have ever been written. Once the total written count reaches n
// the request succeeds, clamped to the retained count if the ring has since
// wrapped below the request (only possible after Reset). Callers treat the
// error as transient and retry on the next cycle.
//
// # Copy-on-Read
//
// ReadLatest and Snapshot return freshly allocated slices. Later appends
// never mutate a returned slice. Element values are shallow copies; callers
// whose element type carries reference fields deep-copy at a higher layer
// when isolation below the element is required.
//
// # Observability
//
// Statistics (always on) track appends, reads, overflows, current and peak
// size with atomic counters, and derive throughput, overflow rate, and
// utilization. Available via buf.Stats() with no external dependencies.
//
// Prometheus metrics (optional) are enabled with WithMetrics() and export
// counters and gauges labeled by stream name for dashboards and alerting.
// Statistics and metrics track independently so stats keep working in
// deployments without a metrics registry.
//
// # Thread Safety
//
// All operations are safe for concurrent use. The expected pattern is a
// single producer (the stream's pull loop) with multiple readers (decode
// workers taking windows); internal state is protected by sync.RWMutex and
// statistics use lock-free atomics. Overflow callbacks run outside the
// ring's lock, so a callback may safely re-enter the ring.
//
// # Performance Characteristics
//
// Operations:
//   - Append: O(1) constant time
//   - ReadLatest: O(n) where n is the window size (copy)
//   - Snapshot: O(size)
//   - Latest/Count/Full: O(1)
//
// Memory is a single pre-allocated array of capacity * sizeof(T); no
// allocations occur on the append path.
package ring
