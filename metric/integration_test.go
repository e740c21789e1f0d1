package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockComponent simulates an engine component that registers its own metrics
type mockComponent struct {
	name    string
	metrics struct {
		pullBatches prometheus.Counter
		backlog     prometheus.Gauge
	}
}

func newMockComponent(name string) *mockComponent {
	return &mockComponent{name: name}
}

// RegisterMetrics registers component-specific metrics
func (m *mockComponent) RegisterMetrics(registrar MetricsRegistrar) error {
	m.metrics.pullBatches = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "neurostream",
		Subsystem: "mock_component",
		Name:      "pull_batches_total",
		Help:      "Total number of pull batches handled",
	})

	err := registrar.RegisterCounter(m.name, "pull_batches_total", m.metrics.pullBatches)
	if err != nil {
		return err
	}

	m.metrics.backlog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "neurostream",
		Subsystem: "mock_component",
		Name:      "backlog",
		Help:      "Samples waiting between pulls",
	})

	return registrar.RegisterGauge(m.name, "backlog", m.metrics.backlog)
}

// handleBatch simulates component activity and updates metrics
func (m *mockComponent) handleBatch(batches int, backlog int) {
	m.metrics.pullBatches.Add(float64(batches))
	m.metrics.backlog.Set(float64(backlog))
}

func TestMetricsIntegration_ComponentRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	mock := newMockComponent("test-component")

	err := mock.RegisterMetrics(registry)
	require.NoError(t, err)

	mock.handleBatch(10, 5)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	assert.True(t, foundMetrics["neurostream_mock_component_pull_batches_total"],
		"Custom pull_batches metric should be registered")
	assert.True(t, foundMetrics["neurostream_mock_component_backlog"],
		"Custom backlog metric should be registered")
}

func TestMetricsIntegration_NoDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	// Two components with the same name should not both register
	component1 := newMockComponent("duplicate-component")
	component2 := newMockComponent("duplicate-component")

	err := component1.RegisterMetrics(registry)
	require.NoError(t, err)

	err = component2.RegisterMetrics(registry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestMetricsIntegration_CoreAndComponentMetricsSeparate(t *testing.T) {
	registry := NewMetricsRegistry()
	coreMetrics := registry.CoreMetrics()

	mock := newMockComponent("separation-test")
	err := mock.RegisterMetrics(registry)
	require.NoError(t, err)

	// Use core metrics
	coreMetrics.RecordComponentStatus("separation-test", 2)
	coreMetrics.RecordSamplesPulled("eeg-main", 256)

	// Use component-specific metrics
	mock.handleBatch(5, 3)

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundMetrics := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundMetrics[mf.GetName()] = true
	}

	assert.True(t, foundMetrics["neurostream_component_status"],
		"core component status metric should be present")
	assert.True(t, foundMetrics["neurostream_acquire_samples_pulled_total"],
		"core samples pulled metric should be present")

	assert.True(t, foundMetrics["neurostream_mock_component_pull_batches_total"],
		"Component-specific batch metric should be present")
	assert.True(t, foundMetrics["neurostream_mock_component_backlog"],
		"Component-specific backlog metric should be present")
}

func TestMetricsIntegration_MetricsUnregistration(t *testing.T) {
	registry := NewMetricsRegistry()

	mock := newMockComponent("unregister-test")

	err := mock.RegisterMetrics(registry)
	require.NoError(t, err)

	mock.handleBatch(1, 1)

	success := registry.Unregister("unregister-test", "pull_batches_total")
	assert.True(t, success, "Unregistration should succeed")

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	foundAfter := make(map[string]bool)
	for _, mf := range metricFamilies {
		foundAfter[mf.GetName()] = true
	}

	assert.False(t, foundAfter["neurostream_mock_component_pull_batches_total"],
		"Metric should be absent after unregistration")
	assert.True(t, foundAfter["neurostream_mock_component_backlog"],
		"Other component metrics should remain")
}

func TestMetricsIntegration_PrometheusNameConflict(t *testing.T) {
	registry := NewMetricsRegistry()

	// Different component names but identical Prometheus metric names
	component1 := newMockComponent("receiver-a")
	component2 := newMockComponent("receiver-b")

	err := component1.RegisterMetrics(registry)
	require.NoError(t, err)

	err = component2.RegisterMetrics(registry)
	assert.Error(t, err, "Second component should fail due to Prometheus metric name conflict")
	assert.Contains(t, err.Error(), "prometheus conflict")
}
