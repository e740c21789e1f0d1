// Package metric provides Prometheus-based metrics collection and an HTTP
// server for engine monitoring and observability.
//
// The package offers a centralized metrics registry managing both core engine
// metrics (component status, acquisition counters, decode throughput, NATS
// health) and custom component-specific metrics. It includes an HTTP server
// exposing metrics in Prometheus format.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: engine-level metrics automatically registered (Metrics type)
//  2. Component Registry: extensible registration for component-specific metrics (MetricsRegistrar interface)
//  3. HTTP Server: metrics endpoint with a health check (Server type)
//
// Core metrics cover what every deployment needs to see. Components with
// instance-scoped series (a ring buffer per stream, a worker pool per
// recorder) register their own collectors through the MetricsRegistrar.
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//	defer server.Stop()
//
//	// Record core engine metrics
//	core := registry.CoreMetrics()
//	core.RecordComponentStatus("receiver", 2)
//	core.RecordSamplesPulled("eeg-main", 128)
//	core.RecordAcquireCycle("clean")
//
// # Core Metrics
//
// All core metrics use the namespace "neurostream":
//
//   - neurostream_component_status{component} - lifecycle state
//   - neurostream_acquire_samples_pulled_total{stream}
//   - neurostream_acquire_cycles_total{status} - clean/degraded/failed
//   - neurostream_acquire_clock_anomalies_total{stream}
//   - neurostream_window_served_total{stream,status}
//   - neurostream_processing_duration_seconds{component,operation}
//   - neurostream_decode_predictions_total{worker}
//   - neurostream_decode_worker_respawns_total{worker}
//   - neurostream_errors_total{component,type}
//   - neurostream_health_status{component}
//   - neurostream_nats_* - connection, RTT, reconnects, circuit breaker
//
// # Component-Specific Metrics
//
// Components register custom collectors through the registry:
//
//	counter := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "neurostream",
//	    Subsystem: "ring",
//	    Name:      "appends_total",
//	    Help:      "Total samples appended",
//	})
//	err := registry.RegisterCounter("eeg-main", "ring_appends", counter)
//
// Duplicate registration under the same component.metric key, or a
// Prometheus-level name conflict, returns an Invalid classified error.
//
// # Thread Safety
//
// All registry operations are thread-safe. Registration uses mutex
// protection; metric recording is lock-free per the Prometheus client's
// guarantees; CoreMetrics() returns a shared instance safe for concurrent
// use.
//
// # Architecture Integration
//
//	component → core metrics → prometheus registry → HTTP server → Prometheus
//
// The receiver records acquisition counters, the scheduler records tick
// timing and predictions, the natsclient records connectivity, and rings and
// pools register their own per-instance series.
package metric
