// Package errors provides standardized error handling patterns for neurostream components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// real-time signal acquisition pipelines: Transient (temporary, retryable),
// Invalid (bad input, non-retryable), and Fatal (unrecoverable, stop processing).
//
// This classification lets the receiver and scheduler make informed decisions
// about retries, stale-stream degradation, and failure escalation without
// hardcoded error string matching.
//
// # Error Classification
//
// Errors are automatically classified based on their type or content:
//
//   - Transient: pull timeouts, per-stream disconnects, cold-start buffer
//     shortfalls, clock anomalies, silent workers (retry or degrade)
//   - Invalid: unknown stream identifiers, malformed samples, bad
//     configuration values (do not retry)
//   - Fatal: reference stream loss, invalid or missing configuration,
//     resource exhaustion (stop the owning receiver)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Acquisition Taxonomy
//
// The domain sentinels map to stream-level behavior:
//
//   - ErrInsufficientData: the reference buffer has not filled to the
//     requested window length yet; callers should retry next cycle.
//   - ErrUnknownStream: the stream identifier is not bound; caller bug.
//   - ErrSourceDisconnected: the transport reports one stream gone; the
//     receiver keeps serving that stream's buffered history.
//   - ErrReferenceStreamLost: the reference clock is gone; acquisition halts
//     and the error propagates to the receiver's owner.
//   - ErrClockAnomaly: a backward timestamp jump larger than one nominal
//     sample period; reported but never blocks buffering.
//   - ErrWorkerTimeout: a decoding worker produced nothing for two tick
//     periods; the scheduler respawns it.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "StreamHandle", "Pull", "drain source")
//	errors.WrapInvalid(err, "Config", "Validate", "window length")
//	errors.WrapFatal(err, "StreamReceiver", "Acquire", "pull reference")
//
// The generic Wrap() preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Retry Configuration
//
// The package includes built-in retry support with exponential backoff:
//
//	config := errors.DefaultRetryConfig()
//
//	for attempt := 0; attempt < config.MaxRetries; attempt++ {
//	    if err := operation(); err != nil {
//	        if !config.ShouldRetry(err, attempt) {
//	            return err // Non-retryable or max attempts reached
//	        }
//	        time.Sleep(config.BackoffDelay(attempt))
//	        continue
//	    }
//	    return nil
//	}
//
// The retry configuration converts to the pkg/retry framework's Config via
// ToRetryConfig() for use with retry.Do.
//
// # Integration with errors.As/Is
//
// All error types support standard library inspection:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrReferenceStreamLost) {
//	    // Halt the receiver, surface to the engine
//	}
//
//	wrapped := errors.Wrap(errors.ErrSourceDisconnected, "StreamHandle", "Pull", "drain")
//	if errors.IsTransient(wrapped) { // true, classification preserved
//	    // Mark stale, continue from buffered history
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access. ClassifiedError is safe to
// share across goroutines after creation.
//
// # Architecture Integration
//
//   - receiver: translates handle-level errors into stream state and the
//     acquire report; only reference loss propagates as fatal
//   - scheduler: uses classification to decide log-and-continue vs halt
//   - natsclient: uses the connection and circuit breaker variables
//   - pkg/retry: consumes classification through RetryConfig
package errors
