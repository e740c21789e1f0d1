// Package engine orchestrates component lifecycles: components are
// registered in dependency order, initialized and started in that order, and
// stopped in reverse. A start failure unwinds the components already started
// so the process never half-runs.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/neurostream/component"
	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/metric"
)

// DefaultStopTimeout bounds each component's Stop during shutdown.
const DefaultStopTimeout = 5 * time.Second

// Deps holds runtime dependencies for an engine.
type Deps struct {
	Name            string
	StopTimeout     time.Duration           // 0 means DefaultStopTimeout
	MetricsRegistry *metric.MetricsRegistry // Optional
	Logger          *slog.Logger            // Optional
}

// Engine drives registered components through their lifecycle.
type Engine struct {
	name        string
	logger      *slog.Logger
	metrics     *metric.MetricsRegistry
	stopTimeout time.Duration

	mu      sync.Mutex
	managed []*component.Managed
	started bool
}

// New creates an empty engine.
func New(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "engine"
	}
	stopTimeout := deps.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	return &Engine{
		name:        name,
		logger:      logger.With("component", name),
		metrics:     deps.MetricsRegistry,
		stopTimeout: stopTimeout,
	}
}

// Add registers a component. Registration order is start order; stop runs in
// reverse. Adding after Start is an error.
func (e *Engine) Add(c component.LifecycleComponent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errors.Wrap(errors.ErrAlreadyStarted, "Engine", "Add",
			"cannot register components on a started engine")
	}
	e.managed = append(e.managed, &component.Managed{
		Component:  c,
		State:      component.StateCreated,
		StartOrder: len(e.managed),
	})
	return nil
}

// Components returns the registered components in start order.
func (e *Engine) Components() []component.LifecycleComponent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]component.LifecycleComponent, len(e.managed))
	for i, m := range e.managed {
		out[i] = m.Component
	}
	return out
}

// Initialize initializes every component in registration order, stopping at
// the first failure.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, m := range e.managed {
		meta := m.Component.Meta()
		if err := m.Component.Initialize(); err != nil {
			m.State = component.StateFailed
			m.LastError = err
			return errors.Wrap(err, "Engine", "Initialize", meta.Name)
		}
		m.State = component.StateInitialized
		e.logger.Debug("component initialized", "name", meta.Name, "type", meta.Type)
	}
	return nil
}

// Start starts components in registration order, each under its own child
// context so shutdown can cancel them individually. A failure stops the
// components already started, in reverse, before returning.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errors.Wrap(errors.ErrAlreadyStarted, "Engine", "Start", e.name)
	}

	for i, m := range e.managed {
		meta := m.Component.Meta()
		m.Context, m.Cancel = context.WithCancel(ctx)
		if err := m.Component.Start(m.Context); err != nil {
			m.State = component.StateFailed
			m.LastError = err
			m.Cancel()
			e.unwind(i - 1)
			return errors.Wrap(err, "Engine", "Start", meta.Name)
		}
		m.State = component.StateStarted
		e.logger.Info("component started", "name", meta.Name, "type", meta.Type, "order", i)
	}

	e.started = true
	return nil
}

// Stop stops every started component in reverse order, bounded per component
// and aggregated: one failing Stop never blocks the rest of the shutdown.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}
	e.started = false
	return e.unwind(len(e.managed) - 1)
}

// unwind stops components from index down to zero. Caller holds the lock.
func (e *Engine) unwind(from int) error {
	var firstErr error
	for i := from; i >= 0; i-- {
		m := e.managed[i]
		if m.State != component.StateStarted {
			continue
		}
		meta := m.Component.Meta()
		if err := m.Component.Stop(e.stopTimeout); err != nil {
			m.State = component.StateFailed
			m.LastError = err
			e.logger.Error("component stop failed", "name", meta.Name, "error", err)
			if firstErr == nil {
				firstErr = errors.Wrap(err, "Engine", "Stop", meta.Name)
			}
		} else {
			m.State = component.StateStopped
			e.logger.Info("component stopped", "name", meta.Name)
		}
		if m.Cancel != nil {
			m.Cancel()
		}
	}
	return firstErr
}

// Run is the blocking service loop: initialize, start, supervise until the
// context ends or a component turns unhealthy-fatal, then stop everything.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Initialize(); err != nil {
		return err
	}
	if err := e.Start(ctx); err != nil {
		return err
	}

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-runCtx.Done()
		return nil
	})
	g.Go(func() error {
		return e.supervise(runCtx)
	})
	runErr := g.Wait()

	if err := e.Stop(); err != nil {
		e.logger.Error("shutdown incomplete", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// supervise polls component health and surfaces failures in the logs and
// metrics. A component reporting a fatal last error ends the run.
func (e *Engine) supervise(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, status := range e.Health() {
				if status.Healthy {
					continue
				}
				e.logger.Warn("component unhealthy",
					"name", name, "last_error", status.LastError, "errors", status.ErrorCount)
				if status.LastError != "" && e.fatalComponent(name) {
					return errors.WrapFatal(
						fmt.Errorf("%s: %s", name, status.LastError),
						"Engine", "supervise", "component failed fatally")
				}
			}
		}
	}
}

// fatalComponent reports whether the named component's loop has terminally
// exited (as opposed to being transiently degraded).
func (e *Engine) fatalComponent(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, m := range e.managed {
		if m.Component.Meta().Name != name {
			continue
		}
		type errReporter interface{ Err() error }
		if r, ok := m.Component.(errReporter); ok {
			return r.Err() != nil
		}
	}
	return false
}

// Health returns the per-component health snapshot keyed by component name.
func (e *Engine) Health() map[string]component.HealthStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]component.HealthStatus, len(e.managed))
	for _, m := range e.managed {
		out[m.Component.Meta().Name] = m.Component.Health()
	}
	return out
}

// Healthy reports whether every registered component is healthy.
func (e *Engine) Healthy() bool {
	for _, status := range e.Health() {
		if !status.Healthy {
			return false
		}
	}
	return true
}
