package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/c360/neurostream/errors"
)

// EnvPrefix namespaces the environment overrides.
const EnvPrefix = "NEUROSTREAM_"

// Load assembles the configuration: defaults, then the JSON file at path
// (skipped when path is empty), then environment overrides, then Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrConfigNotFound, "Config", "Load", path)
		}
		// Decode over the defaults so absent fields keep their values.
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Load",
				"parse "+path+": "+err.Error())
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays NEUROSTREAM_* variables onto the config. Unset variables
// leave the field alone; a set-but-malformed value is an error, never a
// silent fallback.
func applyEnv(cfg *Config) error {
	for _, ov := range []struct {
		key   string
		apply func(string) error
	}{
		{"LOG_LEVEL", setString(&cfg.LogLevel)},
		{"BUFFER_SECONDS", setFloat(&cfg.Acquisition.BufferSeconds)},
		{"WINDOW_SECONDS", setFloat(&cfg.Acquisition.WindowSeconds)},
		{"PULL_TIMEOUT_MS", setInt(&cfg.Acquisition.PullTimeoutMS)},
		{"REFERENCE_ID", setString(&cfg.Acquisition.ReferenceID)},
		{"EXPECTED_STREAMS", setInt(&cfg.Acquisition.ExpectedStreams)},
		{"CADENCE_HZ", setFloat(&cfg.Scheduler.CadenceHz)},
		{"WORKERS", setInt(&cfg.Scheduler.Workers)},
		{"MARKER_STREAM", setString(&cfg.Scheduler.MarkerStream)},
		{"TRIGGER_FILE", setString(&cfg.Scheduler.TriggerFile)},
		{"TRANSPORT", setString(&cfg.Transport.Kind)},
		{"NATS_URL", setString(&cfg.Transport.NATS.URL)},
		{"NATS_BUCKET", setString(&cfg.Transport.NATS.Bucket)},
		{"RECORDER_ENABLED", setBool(&cfg.Recorder.Enabled)},
		{"RECORDER_DIR", setString(&cfg.Recorder.Dir)},
	} {
		value, ok := os.LookupEnv(EnvPrefix + ov.key)
		if !ok {
			continue
		}
		if err := ov.apply(value); err != nil {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "applyEnv",
				EnvPrefix+ov.key+"="+value+": "+err.Error())
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}
