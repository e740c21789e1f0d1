package config

import (
	"sync"

	"github.com/c360/neurostream/errors"
)

// Safe is a concurrency-safe configuration holder: readers get deep copies,
// writers swap the whole struct after validation. Suits a config that
// changes rarely (reload on signal) but is read from many goroutines.
type Safe struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewSafe wraps a configuration. A nil config starts from defaults.
func NewSafe(cfg *Config) *Safe {
	if cfg == nil {
		cfg = Default()
	}
	return &Safe{cfg: cfg}
}

// Get returns a deep copy of the current configuration.
func (s *Safe) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Update validates and atomically installs a new configuration.
func (s *Safe) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
	return nil
}
