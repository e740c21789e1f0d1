// Package config assembles the runtime configuration from three layers:
// compiled-in defaults, an optional JSON file, and NEUROSTREAM_* environment
// overrides, in that order of precedence. Validate runs on the assembled
// struct, never on individual layers, so cross-field rules (pull timeouts vs
// tick period) see the final values.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/neurostream/errors"
)

// Config is the complete application configuration.
type Config struct {
	Version     string            `json:"version"`
	LogLevel    string            `json:"log_level"`
	Acquisition AcquisitionConfig `json:"acquisition"`
	Scheduler   SchedulerConfig   `json:"scheduler"`
	Transport   TransportConfig   `json:"transport"`
	Recorder    RecorderConfig    `json:"recorder"`
}

// AcquisitionConfig shapes the receiver: buffer depth, default window, pull
// bounds, and reference selection.
type AcquisitionConfig struct {
	// BufferSeconds is the per-stream ring depth in seconds of nominal-rate
	// data.
	BufferSeconds float64 `json:"buffer_seconds"`

	// WindowSeconds is the default analysis window length.
	WindowSeconds float64 `json:"window_seconds"`

	// PullTimeoutMS bounds each per-stream pull within one acquire cycle.
	PullTimeoutMS int `json:"pull_timeout_ms"`

	// ReferenceID pins the reference stream; empty selects the first
	// discovered signal-role stream.
	ReferenceID string `json:"reference_id"`

	// ExpectedStreams is the stream count the deployment plans for. Only
	// used by validation: the worst-case acquire (every stream timing out)
	// must still fit inside one scheduler tick.
	ExpectedStreams int `json:"expected_streams"`
}

// PullTimeout returns the per-stream pull bound as a duration.
func (c AcquisitionConfig) PullTimeout() time.Duration {
	return time.Duration(c.PullTimeoutMS) * time.Millisecond
}

// SchedulerConfig shapes the decoding loop.
type SchedulerConfig struct {
	CadenceHz     float64 `json:"cadence_hz"`
	Workers       int     `json:"workers"`        // 0/1 single, N>1 interleaved
	WindowSeconds float64 `json:"window_seconds"` // 0 = acquisition default

	// MarkerStream and TriggerFile wire the marker-push sink: predictions
	// are translated through the trigger definition and annotated into the
	// named marker stream. Both empty disables the sink.
	MarkerStream string `json:"marker_stream"`
	TriggerFile  string `json:"trigger_file"`
}

// Period returns the tick period.
func (c SchedulerConfig) Period() time.Duration {
	if c.CadenceHz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / c.CadenceHz)
}

// TransportConfig selects and parameterizes the stream transport.
type TransportConfig struct {
	// Kind is "loopback" or "nats".
	Kind string     `json:"kind"`
	NATS NATSConfig `json:"nats"`
}

// NATSConfig holds NATS connection and discovery parameters.
type NATSConfig struct {
	URL             string `json:"url"`
	Name            string `json:"name"`
	MaxReconnects   int    `json:"max_reconnects"`
	ReconnectWaitMS int    `json:"reconnect_wait_ms"`

	// Bucket is the JetStream KV bucket holding stream announcements.
	Bucket string `json:"bucket"`
}

// RecorderConfig shapes the JSONL session sink.
type RecorderConfig struct {
	Enabled   bool   `json:"enabled"`
	Dir       string `json:"dir"`
	QueueSize int    `json:"queue_size"`
}

// Default returns the compiled-in base layer: a single-worker 20 Hz loop
// over a loopback transport with one second of buffering.
func Default() *Config {
	return &Config{
		Version:  "1.0.0",
		LogLevel: "info",
		Acquisition: AcquisitionConfig{
			BufferSeconds:   1,
			WindowSeconds:   0.5,
			PullTimeoutMS:   10,
			ExpectedStreams: 2,
		},
		Scheduler: SchedulerConfig{
			CadenceHz: 20,
			Workers:   1,
		},
		Transport: TransportConfig{
			Kind: "loopback",
			NATS: NATSConfig{
				URL:             "nats://localhost:4222",
				Name:            "neurostream",
				MaxReconnects:   -1,
				ReconnectWaitMS: 2000,
				Bucket:          "neuro-streams",
			},
		},
		Recorder: RecorderConfig{
			Dir:       "./recordings",
			QueueSize: 256,
		},
	}
}

// Validate checks the assembled configuration. Messages name the offending
// field and the rule it broke.
func (c *Config) Validate() error {
	a := c.Acquisition
	if a.BufferSeconds <= 0 {
		return invalid("acquisition.buffer_seconds must be positive, got %g", a.BufferSeconds)
	}
	if a.WindowSeconds <= 0 {
		return invalid("acquisition.window_seconds must be positive, got %g", a.WindowSeconds)
	}
	if a.WindowSeconds > a.BufferSeconds {
		return invalid("acquisition.window_seconds (%g) cannot exceed buffer_seconds (%g)",
			a.WindowSeconds, a.BufferSeconds)
	}
	if a.PullTimeoutMS <= 0 {
		return invalid("acquisition.pull_timeout_ms must be positive, got %d", a.PullTimeoutMS)
	}
	if a.ExpectedStreams < 1 {
		return invalid("acquisition.expected_streams must be at least 1, got %d", a.ExpectedStreams)
	}

	s := c.Scheduler
	if s.CadenceHz <= 0 {
		return invalid("scheduler.cadence_hz must be positive, got %g", s.CadenceHz)
	}
	if s.Workers < 0 {
		return invalid("scheduler.workers cannot be negative, got %d", s.Workers)
	}
	if s.WindowSeconds < 0 {
		return invalid("scheduler.window_seconds cannot be negative, got %g", s.WindowSeconds)
	}
	if (s.MarkerStream == "") != (s.TriggerFile == "") {
		return invalid("scheduler.marker_stream and scheduler.trigger_file must be set together")
	}

	// Worst case, every stream burns its full pull timeout in one acquire
	// cycle; that still has to fit inside a tick or the cadence collapses.
	worstCase := time.Duration(a.ExpectedStreams) * a.PullTimeout()
	if worstCase >= s.Period() {
		return invalid(
			"pull timeouts exceed the tick: %d streams x %dms >= %s period (%g Hz); lower pull_timeout_ms or the cadence",
			a.ExpectedStreams, a.PullTimeoutMS, s.Period(), s.CadenceHz)
	}

	switch c.Transport.Kind {
	case "loopback":
	case "nats":
		if c.Transport.NATS.URL == "" {
			return invalid("transport.nats.url is required when transport.kind is nats")
		}
		if c.Transport.NATS.Bucket == "" {
			return invalid("transport.nats.bucket is required when transport.kind is nats")
		}
	default:
		return invalid("transport.kind must be loopback or nats, got %q", c.Transport.Kind)
	}

	if c.Recorder.Enabled && c.Recorder.Dir == "" {
		return invalid("recorder.dir is required when the recorder is enabled")
	}
	if c.Recorder.QueueSize < 0 {
		return invalid("recorder.queue_size cannot be negative, got %d", c.Recorder.QueueSize)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return invalid("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
		fmt.Sprintf(format, args...))
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	// All fields are value types; a JSON round trip keeps this honest if
	// reference fields ever appear.
	data, err := json.Marshal(c)
	if err != nil {
		out := *c
		return &out
	}
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		fallback := *c
		return &fallback
	}
	return &out
}
