// Package worker provides a generic, thread-safe pool for asynchronous task
// processing behind a bounded queue.
//
// # Overview
//
// The pool decouples producers from slow consumers: Submit never blocks, and
// work beyond queue capacity is dropped with ErrQueueFull rather than
// stalling the producer. The engine uses it for sink write paths, where a
// recorder must never hold up an acquisition cycle.
//
// # Ordering
//
// A pool with a single worker processes items strictly in submission order.
// The recorder relies on this to keep per-stream timestamps monotone in its
// output without any extra sequencing. Pools with more workers trade
// ordering for throughput.
//
// # Quick Start
//
//	pool := worker.NewPool(1, 256, func(ctx context.Context, b Batch) error {
//	    return sink.Write(ctx, b)
//	})
//
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//
//	// Producers submit without blocking
//	if err := pool.Submit(batch); err != nil {
//	    // ErrQueueFull: batch dropped, counted in Stats()
//	}
//
//	// Stop drains everything already accepted
//	if err := pool.Stop(5 * time.Second); err != nil {
//	    // ErrStopTimeout: queue did not drain in time
//	}
//
// # Shutdown Semantics
//
// Stop closes the queue and waits for the workers to drain it; every item
// accepted by Submit before Stop is processed before Stop returns. This is
// the flush guarantee sinks depend on. Context cancellation is the abrupt
// path: workers exit at the next item boundary and the queue may be
// abandoned.
//
// # Observability
//
// Always-on atomic statistics via Stats() (submitted, processed, failed,
// dropped, queue depth). Optional Prometheus metrics via
// WithMetricsRegistry(registry, prefix): queue depth, utilization,
// per-status processing duration.
package worker
