// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff, used
// on the bind and connect paths where a stream source may announce itself a
// moment after the consumer started looking for it.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Binding(): 10 attempts, 50ms-1s delay (stream discovery/bind at startup)
//   - Persistent(): 30 attempts, 200ms-10s delay (transport connections)
//
// # Usage Examples
//
// Bind a stream that may not be announced yet:
//
//	info, err := retry.DoWithResult(ctx, retry.Binding(), func() (types.StreamInfo, error) {
//	    return transport.Find(ctx, streamName)
//	})
//
// Persistent transport connect:
//
//	err := retry.Do(ctx, retry.Persistent(), func() error {
//	    return client.Connect()
//	})
//
// Unrecoverable conditions abort the loop immediately:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    if badID {
//	        return retry.NonRetryable(errors.ErrUnknownStream)
//	    }
//	    return tryBind()
//	})
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers (natsclient carries its own)
//   - No metrics collection (instrument at the call site)
//   - No error classification (the errors package decides what to retry)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All retry operations respect context cancellation and stop immediately when
// the context is cancelled, during the operation or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a
// thread-safe random source to avoid contention.
package retry
