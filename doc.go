// Package neurostream is a real-time acquisition and decoding engine for
// multi-stream physiological signals (EEG and similar kHz-range sources).
//
// # Architecture
//
// Streams arrive over a transport (in-process loopback or NATS), each as a
// sequence of timestamped multi-channel samples plus a sparse marker stream
// of event values. The receiver buffers every stream in a ring sized in
// seconds of nominal-rate data, designates one signal stream as the reference
// clock, and serves analysis windows cut from the reference span with every
// other stream re-sliced to match. The scheduler runs a fixed-cadence loop
// over those windows (acquire, align, classify, emit), either in a single
// strictly sequential mode or as N phase-offset interleaved workers merged
// by timestamp.
//
// Package layout:
//
//   - types: Sample, StreamInfo, Window, AlignedWindow, Prediction
//   - pkg/ring, pkg/timestamp, pkg/worker, pkg/retry, pkg/triggerdef: leaf
//     utilities with no domain dependencies
//   - transport, transport/loopback, transport/natstream: stream discovery
//     and delivery
//   - receiver, window: buffering, window extraction, timestamp alignment
//   - scheduler: the decoding loop and its prediction sinks
//   - player, recorder: replay into a transport, persistence out of it
//   - engine, component: lifecycle orchestration
//   - cmd/neurostream, cmd/neuroplay: the service and the replay tool
//
// Timestamps are int64 Unix microseconds everywhere; see pkg/timestamp.
package neurostream
