// Package scheduler drives the fixed-cadence decoding loop:
// acquire → window → classify → emit.
//
// Two execution modes ship. Single mode runs strictly sequentially on one
// window source; a slow classifier delays the next tick, favoring simplicity
// over throughput. Interleaved mode runs N share-nothing workers, each with a
// private receiver and transport connection, phase-offset by period/N so the
// pool emits at N times the per-worker cadence; worker outputs are merged by
// timestamp with stale results discarded, and a silent worker is respawned
// after two tick periods.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/neurostream/component"
	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/types"
)

// Classifier is the decoder plug-in contract: an opaque function from an
// aligned window to a label and score. It must be safe to call from any
// worker; the scheduler guarantees it only ever sees value copies.
type Classifier func(window types.AlignedWindow) (label string, score float64, err error)

// Source is the window supply a scheduler tick consumes. *receiver.Receiver
// satisfies it.
type Source interface {
	Acquire(ctx context.Context) (types.AcquireReport, error)
	GetAligned(seconds float64) (types.AlignedWindow, error)
	Close() error
}

// SourceFactory builds a fresh, privately-connected Source for one
// interleaved worker. Workers share nothing: each factory call must return a
// source with its own transport connection and its own buffers.
type SourceFactory func(ctx context.Context) (Source, error)

// Config holds the scheduling parameters.
type Config struct {
	// CadenceHz is the tick rate of one decoding loop (per worker in
	// interleaved mode; the pool's aggregate rate is Workers times this).
	CadenceHz float64 `json:"cadence_hz"`

	// WindowSeconds is the window length requested each tick. 0 means the
	// source's configured default.
	WindowSeconds float64 `json:"window_seconds"`

	// Workers selects the execution mode: 0 or 1 is single, N>1 runs N
	// phase-offset interleaved workers.
	Workers int `json:"workers"`
}

// DefaultConfig runs a single 20 Hz decoding loop.
func DefaultConfig() Config {
	return Config{CadenceHz: 20}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.CadenceHz <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SchedulerConfig", "Validate",
			"cadence_hz must be positive")
	}
	if c.Workers < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SchedulerConfig", "Validate",
			"workers cannot be negative")
	}
	if c.WindowSeconds < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "SchedulerConfig", "Validate",
			"window_seconds cannot be negative")
	}
	return nil
}

// Period returns the tick period.
func (c Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.CadenceHz)
}

// Deps holds runtime dependencies for a scheduler.
type Deps struct {
	Name            string
	Config          Config
	Source          Source        // single mode window supply
	Factory         SourceFactory // interleaved mode worker supply
	Classify        Classifier
	Sink            Sink
	MetricsRegistry *metric.MetricsRegistry // Optional
	Logger          *slog.Logger            // Optional
}

// Scheduler drives the decoding loop. One bad tick (stale stream, slow or
// failing classifier) is logged and skipped; the loop stops only on context
// cancellation or loss of the reference stream.
type Scheduler struct {
	name     string
	cfg      Config
	source   Source
	factory  SourceFactory
	classify Classifier
	sink     Sink
	logger   *slog.Logger
	metrics  *metric.MetricsRegistry

	// Lifecycle management
	running   atomic.Bool
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
	runErr    error

	// Diagnostics (atomic)
	emitted      atomic.Int64
	discarded    atomic.Int64
	badTicks     atomic.Int64
	respawns     atomic.Int64
	lastActivity atomic.Int64 // Unix micros
}

// Interface guard
var _ component.LifecycleComponent = (*Scheduler)(nil)

// New creates a scheduler. Single mode needs a Source; interleaved mode
// (Workers > 1) needs a Factory.
func New(deps Deps) (*Scheduler, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if deps.Classify == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Scheduler", "New", "nil classifier")
	}
	if deps.Sink == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Scheduler", "New", "nil sink")
	}
	if deps.Config.Workers > 1 {
		if deps.Factory == nil {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Scheduler", "New",
				"interleaved mode needs a source factory")
		}
	} else if deps.Source == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Scheduler", "New",
			"single mode needs a source")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "scheduler"
	}

	return &Scheduler{
		name:     name,
		cfg:      deps.Config,
		source:   deps.Source,
		factory:  deps.Factory,
		classify: deps.Classify,
		sink:     deps.Sink,
		logger:   logger.With("component", name),
		metrics:  deps.MetricsRegistry,
	}, nil
}

// Run drives the loop until the context is canceled or the reference stream
// is lost. Blocking; Start wraps it for lifecycle use.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.Workers > 1 {
		return s.runInterleaved(ctx)
	}
	return s.runSingle(ctx)
}

// runSingle is the strictly sequential mode. Ticks follow an absolute
// schedule (start + n×period) so a slow classifier delays but never drifts
// the cadence; missed ticks are skipped, not bunched.
func (s *Scheduler) runSingle(ctx context.Context) error {
	period := s.cfg.Period()
	start := time.Now()
	s.logger.Info("decoding loop started", "mode", "single", "cadence_hz", s.cfg.CadenceHz)

	for tick := int64(1); ; tick++ {
		next := start.Add(time.Duration(tick) * period)
		wait := time.Until(next)
		if wait < 0 {
			tick += int64(-wait / period)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		pred, err := s.tickOnce(ctx, s.source)
		if err != nil {
			if errors.Is(err, errors.ErrReferenceStreamLost) {
				s.logger.Error("decoding loop halted, reference stream lost")
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			s.badTicks.Add(1)
			s.logger.Debug("tick skipped", "error", err)
			continue
		}

		s.emit(ctx, pred)
	}
}

// tickOnce runs one acquire → window → classify pass on a source.
func (s *Scheduler) tickOnce(ctx context.Context, src Source) (types.Prediction, error) {
	started := time.Now()

	if _, err := src.Acquire(ctx); err != nil {
		return types.Prediction{}, err
	}

	aligned, err := src.GetAligned(s.cfg.WindowSeconds)
	if err != nil {
		return types.Prediction{}, err
	}

	label, score, err := s.classify(aligned)
	if err != nil {
		return types.Prediction{}, errors.WrapTransient(err, "Scheduler", "tick", "classify")
	}

	if s.metrics != nil {
		s.metrics.Metrics.RecordProcessingDuration(s.name, "tick", time.Since(started))
	}

	return types.Prediction{
		Label:     label,
		Score:     score,
		Timestamp: aligned.SpanEnd,
	}, nil
}

// emit hands one prediction to the sink. Sink failures are logged, never
// fatal to the loop.
func (s *Scheduler) emit(ctx context.Context, pred types.Prediction) {
	if err := s.sink.Emit(ctx, pred); err != nil {
		s.badTicks.Add(1)
		s.logger.Warn("sink emit failed", "error", err)
		return
	}
	s.emitted.Add(1)
	s.lastActivity.Store(time.Now().UnixMicro())
	if s.metrics != nil {
		worker := pred.WorkerID
		if worker == "" {
			worker = s.name
		}
		s.metrics.Metrics.RecordPrediction(worker)
	}
}

// Emitted returns the number of predictions delivered to the sink.
func (s *Scheduler) Emitted() int64 {
	return s.emitted.Load()
}

// Respawns returns the number of silent-worker respawns.
func (s *Scheduler) Respawns() int64 {
	return s.respawns.Load()
}

// Initialize validates the configuration. Part of the lifecycle contract.
func (s *Scheduler) Initialize() error {
	return s.cfg.Validate()
}

// Start launches Run on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running.Load() {
		return nil // Already running, idempotent
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)
	s.startTime = time.Now()

	go func() {
		defer close(s.done)
		err := s.Run(runCtx)
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
		s.running.Store(false)
		if err != nil {
			s.logger.Error("decoding loop exited", "error", err)
		}
	}()

	return nil
}

// Stop cancels the loop and waits for it to drain.
func (s *Scheduler) Stop(timeout time.Duration) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	select {
	case <-s.done:
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrConnectionTimeout, "Scheduler", "Stop",
			"loop did not drain within timeout")
	}
	return nil
}

// Err returns the terminal error of the loop, nil while running or after a
// clean stop.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

// Meta returns the component metadata.
func (s *Scheduler) Meta() component.Metadata {
	mode := "single"
	if s.cfg.Workers > 1 {
		mode = fmt.Sprintf("interleaved-%d", s.cfg.Workers)
	}
	return component.Metadata{
		Name:        s.name,
		Type:        "scheduler",
		Description: fmt.Sprintf("%g Hz decoding loop, %s mode", s.cfg.CadenceHz, mode),
		Version:     "1.0.0",
	}
}

// Health reports whether the loop is running without a fatal error.
func (s *Scheduler) Health() component.HealthStatus {
	s.mu.Lock()
	runErr := s.runErr
	s.mu.Unlock()

	status := component.HealthStatus{
		Healthy:    s.running.Load() && runErr == nil,
		LastCheck:  time.Now(),
		ErrorCount: int(s.badTicks.Load()),
		Uptime:     time.Since(s.startTime),
	}
	if runErr != nil {
		status.LastError = runErr.Error()
	}
	return status
}

// DataFlow reports prediction throughput.
func (s *Scheduler) DataFlow() component.FlowMetrics {
	emitted := s.emitted.Load()
	bad := s.badTicks.Load()

	var perSecond, errorRate float64
	if uptime := time.Since(s.startTime).Seconds(); uptime > 0 {
		perSecond = float64(emitted) / uptime
	}
	if total := emitted + bad; total > 0 {
		errorRate = float64(bad) / float64(total)
	}

	var last time.Time
	if us := s.lastActivity.Load(); us > 0 {
		last = time.UnixMicro(us)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		ErrorRate:         errorRate,
		LastActivity:      last,
	}
}
