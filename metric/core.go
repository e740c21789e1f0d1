package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics shared across components.
// Per-instance metrics (ring fill, pool depth) register separately through
// the MetricsRegistry.
type Metrics struct {
	// Component metrics
	ComponentStatus   *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec

	// Acquisition metrics
	SamplesPulled  *prometheus.CounterVec
	AcquireCycles  *prometheus.CounterVec
	ClockAnomalies *prometheus.CounterVec
	WindowsServed  *prometheus.CounterVec

	// Shared timing
	ProcessingDuration *prometheus.HistogramVec

	// Decoding metrics
	PredictionsEmitted *prometheus.CounterVec
	WorkerRespawns     *prometheus.CounterVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSRTT            prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "neurostream",
				Subsystem: "component",
				Name:      "status",
				Help:      "Component status (0=stopped, 1=starting, 2=running, 3=stopping, 4=failed)",
			},
			[]string{"component"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "neurostream",
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "type"},
		),

		SamplesPulled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "acquire",
				Name:      "samples_pulled_total",
				Help:      "Total number of samples pulled per stream",
			},
			[]string{"stream"},
		),

		AcquireCycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "acquire",
				Name:      "cycles_total",
				Help:      "Total acquire cycles by outcome",
			},
			[]string{"status"},
		),

		ClockAnomalies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "acquire",
				Name:      "clock_anomalies_total",
				Help:      "Backward timestamp jumps detected per stream",
			},
			[]string{"stream"},
		),

		WindowsServed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "window",
				Name:      "served_total",
				Help:      "Window requests served by outcome",
			},
			[]string{"stream", "status"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "neurostream",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Operation duration in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"component", "operation"},
		),

		PredictionsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "decode",
				Name:      "predictions_total",
				Help:      "Predictions emitted per worker",
			},
			[]string{"worker"},
		),

		WorkerRespawns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "decode",
				Name:      "worker_respawns_total",
				Help:      "Silent workers cancelled and respawned",
			},
			[]string{"worker"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "neurostream",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "neurostream",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "neurostream",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),

		NATSCircuitBreaker: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "neurostream",
				Subsystem: "nats",
				Name:      "circuit_breaker",
				Help:      "NATS circuit breaker status (0=closed, 1=open, 2=half-open)",
			},
		),
	}
}

// RecordComponentStatus updates component status metric
func (c *Metrics) RecordComponentStatus(component string, status int) {
	c.ComponentStatus.WithLabelValues(component).Set(float64(status))
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordSamplesPulled adds pulled samples for a stream
func (c *Metrics) RecordSamplesPulled(stream string, count int) {
	c.SamplesPulled.WithLabelValues(stream).Add(float64(count))
}

// RecordAcquireCycle increments the acquire cycle counter for an outcome
func (c *Metrics) RecordAcquireCycle(status string) {
	c.AcquireCycles.WithLabelValues(status).Inc()
}

// RecordClockAnomaly increments the backward-jump counter for a stream
func (c *Metrics) RecordClockAnomaly(stream string) {
	c.ClockAnomalies.WithLabelValues(stream).Inc()
}

// RecordWindowServed increments the window counter for a stream and outcome
func (c *Metrics) RecordWindowServed(stream, status string) {
	c.WindowsServed.WithLabelValues(stream, status).Inc()
}

// RecordProcessingDuration records operation time
func (c *Metrics) RecordProcessingDuration(component, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// RecordPrediction increments the prediction counter for a worker
func (c *Metrics) RecordPrediction(worker string) {
	c.PredictionsEmitted.WithLabelValues(worker).Inc()
}

// RecordWorkerRespawn increments the respawn counter for a worker
func (c *Metrics) RecordWorkerRespawn(worker string) {
	c.WorkerRespawns.WithLabelValues(worker).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(state int) {
	c.NATSCircuitBreaker.Set(float64(state))
}
