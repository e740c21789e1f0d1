package ring

import (
	"github.com/c360/neurostream/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// ringMetrics holds Prometheus metrics for ring operations.
type ringMetrics struct {
	appends   prometheus.Counter
	reads     prometheus.Counter
	overflows prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

// newRingMetrics creates and registers ring metrics with the provided registry.
// The name label identifies the owning stream.
func newRingMetrics(registry *metric.MetricsRegistry, name string) (*ringMetrics, error) {
	m := &ringMetrics{
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "ring",
			Name:        "appends_total",
			ConstLabels: prometheus.Labels{"stream": name},
			Help:        "Total number of samples appended to the ring",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "ring",
			Name:        "reads_total",
			ConstLabels: prometheus.Labels{"stream": name},
			Help:        "Total number of window/snapshot reads from the ring",
		}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "neurostream",
			Subsystem:   "ring",
			Name:        "overflows_total",
			ConstLabels: prometheus.Labels{"stream": name},
			Help:        "Total number of appends that evicted the oldest sample",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "neurostream",
			Subsystem:   "ring",
			Name:        "size",
			ConstLabels: prometheus.Labels{"stream": name},
			Help:        "Current number of samples in the ring",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "neurostream",
			Subsystem:   "ring",
			Name:        "utilization",
			ConstLabels: prometheus.Labels{"stream": name},
			Help:        "Ring fill level as a fraction (0.0 to 1.0)",
		}),
	}

	// Register all metrics with the registry
	if err := registry.RegisterCounter(name, "ring_appends", m.appends); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "ring_reads", m.reads); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(name, "ring_overflows", m.overflows); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(name, "ring_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(name, "ring_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

// recordAppend increments the append counter and updates size/utilization.
func (m *ringMetrics) recordAppend(size, capacity int) {
	m.appends.Inc()
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}

// recordRead increments the read counter.
func (m *ringMetrics) recordRead() {
	m.reads.Inc()
}

// recordOverflow increments the overflow counter.
func (m *ringMetrics) recordOverflow() {
	m.overflows.Inc()
}

// updateSize sets the current size and utilization.
func (m *ringMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
