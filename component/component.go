// Package component defines the lifecycle and observability contracts shared
// by the engine's managed components (receiver, scheduler, recorder, player).
package component

import (
	"time"
)

// Observable is implemented by components the engine can inspect at runtime.
type Observable interface {
	// Meta returns basic component information.
	Meta() Metadata

	// Health returns the current health status.
	Health() HealthStatus

	// DataFlow returns current data flow metrics.
	DataFlow() FlowMetrics
}

// Metadata describes what a component is.
type Metadata struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "receiver", "scheduler", "recorder", "player"
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HealthStatus describes the current health state of a component.
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}

// FlowMetrics describes the current data flow through a component. For
// acquisition components "messages" are samples; for decoding components,
// predictions.
type FlowMetrics struct {
	MessagesPerSecond float64   `json:"messages_per_second"`
	ErrorRate         float64   `json:"error_rate"`
	LastActivity      time.Time `json:"last_activity"`
}
