// Package player replays a signal into a transport at its nominal rate,
// standing in for live acquisition hardware during development and tests.
//
// Samples go out in fixed-size chunks on an absolute schedule: the chunk rate
// limiter is seeded once from the nominal rate, so pacing never drifts even
// when individual publishes are slow. Sources are either pre-recorded sample
// slices or the synthetic generators in this package.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/neurostream/component"
	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/transport"
	"github.com/c360/neurostream/types"
)

// DefaultChunkSize is the samples-per-publish granularity when the config
// leaves it zero. Small enough to keep receiver-side latency near one chunk
// period, large enough to amortize publish overhead at kilohertz rates.
const DefaultChunkSize = 16

// Config holds playback parameters.
type Config struct {
	// ChunkSize is the number of samples per publish. 0 means
	// DefaultChunkSize.
	ChunkSize int `json:"chunk_size"`

	// Loop restarts playback from the first sample after the last one,
	// shifting timestamps forward so the stream stays continuous.
	Loop bool `json:"loop"`

	// Speed is a pacing multiplier: 1 is real time, 2 is double speed, 0
	// means 1. Timestamps are unaffected, only the wall-clock schedule.
	Speed float64 `json:"speed"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.ChunkSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PlayerConfig", "Validate",
			"chunk_size cannot be negative")
	}
	if c.Speed < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "PlayerConfig", "Validate",
			"speed cannot be negative")
	}
	return nil
}

// Deps holds runtime dependencies for a player.
type Deps struct {
	Name      string
	Config    Config
	Publisher transport.Publisher
	Info      types.StreamInfo // stream to announce; ID generated when empty
	Samples   []types.Sample   // recording to replay
	Logger    *slog.Logger     // Optional
}

// Player replays one stream. Create with New, drive with Run or the
// lifecycle methods.
type Player struct {
	name      string
	cfg       Config
	publisher transport.Publisher
	info      types.StreamInfo
	samples   []types.Sample
	logger    *slog.Logger

	// Lifecycle management
	running   atomic.Bool
	startTime time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex
	runErr    error

	published atomic.Int64
	lastTs    atomic.Int64 // last published sample timestamp, Unix micros
}

// Interface guard
var _ component.LifecycleComponent = (*Player)(nil)

// New creates a player for one recorded or generated stream.
func New(deps Deps) (*Player, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	if deps.Publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Player", "New", "nil publisher")
	}
	if len(deps.Samples) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Player", "New", "no samples to play")
	}

	info := deps.Info
	if info.ID == "" {
		info.ID = "play-" + uuid.NewString()[:8]
	}
	if info.Role == types.RoleSignal && info.NominalRate <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Player", "New",
			"signal stream needs a nominal rate")
	}

	cfg := deps.Config
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "player-" + info.ID
	}

	return &Player{
		name:      name,
		cfg:       cfg,
		publisher: deps.Publisher,
		info:      info,
		samples:   deps.Samples,
		logger:    logger.With("component", name),
	}, nil
}

// StreamID returns the announced stream ID.
func (p *Player) StreamID() string {
	return p.info.ID
}

// Published returns the number of samples published so far.
func (p *Player) Published() int64 {
	return p.published.Load()
}

// Run announces the stream and plays it to the end (or forever when looping),
// then retracts the announcement. Blocking; Start wraps it for lifecycle use.
func (p *Player) Run(ctx context.Context) error {
	if err := p.publisher.Announce(ctx, p.info); err != nil {
		return errors.WrapTransient(err, "Player", "Run", "announce "+p.info.ID)
	}
	defer func() {
		retractCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := p.publisher.Retract(retractCtx, p.info.ID); err != nil {
			p.logger.Warn("retract failed", "error", err)
		}
	}()

	limiter := p.chunkLimiter()
	p.logger.Info("playback started",
		"stream", p.info.ID, "samples", len(p.samples),
		"rate_hz", p.info.NominalRate, "chunk", p.cfg.ChunkSize, "loop", p.cfg.Loop)

	// shift moves recorded timestamps forward on each loop pass so the
	// replayed stream never runs backward.
	var shift int64
	for pass := 0; ; pass++ {
		if err := p.playPass(ctx, limiter, shift); err != nil {
			return err
		}
		if !p.cfg.Loop {
			p.logger.Info("playback finished", "samples", p.published.Load())
			return nil
		}
		shift = p.lastTs.Load() + p.samplePeriod() - p.samples[0].Timestamp
	}
}

// playPass publishes the recording once, timestamps shifted.
func (p *Player) playPass(ctx context.Context, limiter *rate.Limiter, shift int64) error {
	for at := 0; at < len(p.samples); at += p.cfg.ChunkSize {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil // canceled
			}
		} else if err := ctx.Err(); err != nil {
			return nil
		}

		end := at + p.cfg.ChunkSize
		if end > len(p.samples) {
			end = len(p.samples)
		}
		chunk := make([]types.Sample, end-at)
		for i, s := range p.samples[at:end] {
			chunk[i] = s.Clone()
			chunk[i].Timestamp += shift
		}

		if err := p.publisher.Publish(ctx, p.info.ID, chunk); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.WrapTransient(err, "Player", "playPass", "publish "+p.info.ID)
		}
		p.published.Add(int64(len(chunk)))
		p.lastTs.Store(chunk[len(chunk)-1].Timestamp)
	}
	return nil
}

// chunkLimiter builds the pacing limiter: chunk publishes per second such
// that samples flow at NominalRate×Speed. Irregular-rate streams (markers)
// play as fast as the recording allows.
func (p *Player) chunkLimiter() *rate.Limiter {
	if p.info.NominalRate <= 0 {
		return nil
	}
	chunksPerSecond := p.info.NominalRate * p.cfg.Speed / float64(p.cfg.ChunkSize)
	// Burst 1 keeps chunks on the absolute schedule instead of bunching.
	return rate.NewLimiter(rate.Limit(chunksPerSecond), 1)
}

// samplePeriod returns one nominal sample period in microseconds, with a
// 1ms fallback for irregular-rate streams.
func (p *Player) samplePeriod() int64 {
	if p.info.NominalRate > 0 {
		return timestamp.PeriodMicros(p.info.NominalRate)
	}
	return 1000
}

// Initialize validates the configuration. Part of the lifecycle contract.
func (p *Player) Initialize() error {
	return p.cfg.Validate()
}

// Start launches Run on its own goroutine.
func (p *Player) Start(ctx context.Context) error {
	if p.running.Load() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)
	p.startTime = time.Now()

	go func() {
		defer close(p.done)
		err := p.Run(runCtx)
		p.mu.Lock()
		p.runErr = err
		p.mu.Unlock()
		p.running.Store(false)
		if err != nil {
			p.logger.Error("playback exited", "error", err)
		}
	}()

	return nil
}

// Stop cancels playback and waits for the retraction to finish.
func (p *Player) Stop(timeout time.Duration) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrConnectionTimeout, "Player", "Stop",
			"playback did not drain within timeout")
	}
	return nil
}

// Meta returns the component metadata.
func (p *Player) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "player",
		Description: fmt.Sprintf("replays %s at %g Hz", p.info.ID, p.info.NominalRate),
		Version:     "1.0.0",
	}
}

// Health reports whether playback is live (or finished cleanly).
func (p *Player) Health() component.HealthStatus {
	p.mu.Lock()
	runErr := p.runErr
	p.mu.Unlock()

	status := component.HealthStatus{
		Healthy:   runErr == nil,
		LastCheck: time.Now(),
		Uptime:    time.Since(p.startTime),
	}
	if runErr != nil {
		status.LastError = runErr.Error()
		status.ErrorCount = 1
	}
	return status
}

// DataFlow reports publish throughput.
func (p *Player) DataFlow() component.FlowMetrics {
	var perSecond float64
	if uptime := time.Since(p.startTime).Seconds(); uptime > 0 {
		perSecond = float64(p.published.Load()) / uptime
	}
	var last time.Time
	if ts := p.lastTs.Load(); ts > 0 {
		last = time.UnixMicro(ts)
	}
	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		LastActivity:      last,
	}
}
