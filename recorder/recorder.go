// Package recorder persists aligned window batches as JSON Lines. Writes go
// through a single-worker pool so the hot acquisition path never blocks on
// disk; Stop drains the queue, so every accepted batch reaches the file.
package recorder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/c360/neurostream/component"
	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/metric"
	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/pkg/worker"
	"github.com/c360/neurostream/types"
)

// Config holds recording parameters.
type Config struct {
	// Dir is the output directory; one file per session is created inside.
	Dir string `json:"dir"`

	// QueueSize bounds the async write queue. 0 means the pool default.
	QueueSize int `json:"queue_size"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Dir == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "RecorderConfig", "Validate",
			"output dir is required")
	}
	if c.QueueSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "RecorderConfig", "Validate",
			"queue_size cannot be negative")
	}
	return nil
}

// Deps holds runtime dependencies for a recorder.
type Deps struct {
	Name            string
	Config          Config
	MetricsRegistry *metric.MetricsRegistry // Optional
	Logger          *slog.Logger            // Optional
}

// Batch is one recorded unit: the aligned window a tick served plus whatever
// the producer wants remembered about it (prediction, acquire report).
type Batch struct {
	Session   string              `json:"session"`
	Sequence  int64               `json:"sequence"`
	WrittenAt int64               `json:"written_at"` // Unix microseconds
	Window    types.AlignedWindow `json:"window"`
	Metadata  map[string]any      `json:"metadata,omitempty"`
}

// Recorder is a JSONL batch sink with an async single-worker write path.
// Record never blocks on disk; it fails fast with ErrResourceExhausted when
// the queue is full.
type Recorder struct {
	name    string
	cfg     Config
	logger  *slog.Logger
	session string
	path    string

	file   *os.File
	writer *bufio.Writer
	pool   *worker.Pool[Batch]

	// lastTs tracks the newest reference timestamp per stream for the
	// monotonicity check. Guarded by mu; only the single pool worker writes.
	mu     sync.Mutex
	lastTs map[string]int64

	running   atomic.Bool
	startTime time.Time
	sequence  atomic.Int64
	written   atomic.Int64
	rejected  atomic.Int64
	lastWrite atomic.Int64 // Unix micros
}

// Interface guard
var _ component.LifecycleComponent = (*Recorder)(nil)

// New creates a recorder. The session file is created on Start, not here.
func New(deps Deps) (*Recorder, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := deps.Name
	if name == "" {
		name = "recorder"
	}
	session := uuid.NewString()

	r := &Recorder{
		name:    name,
		cfg:     deps.Config,
		logger:  logger.With("component", name),
		session: session,
		path:    filepath.Join(deps.Config.Dir, "session-"+session[:8]+".jsonl"),
		lastTs:  make(map[string]int64),
	}

	var opts []worker.Option[Batch]
	if deps.MetricsRegistry != nil {
		opts = append(opts, worker.WithMetricsRegistry[Batch](deps.MetricsRegistry, "recorder"))
	}
	r.pool = worker.NewPool[Batch](1, deps.Config.QueueSize, r.write, opts...)

	return r, nil
}

// Session returns the session identifier stamped on every batch.
func (r *Recorder) Session() string {
	return r.session
}

// Path returns the session file path.
func (r *Recorder) Path() string {
	return r.path
}

// Written returns the number of batches persisted so far.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Record enqueues one aligned window for persistence. Non-blocking: a full
// queue fails with ErrResourceExhausted and the batch is dropped, which keeps
// a slow disk from stalling the acquisition cadence.
func (r *Recorder) Record(window types.AlignedWindow, metadata map[string]any) error {
	if !r.running.Load() {
		return errors.Wrap(errors.ErrNotStarted, "Recorder", "Record", "recorder not started")
	}

	batch := Batch{
		Session:  r.session,
		Sequence: r.sequence.Add(1),
		Window:   window,
		Metadata: metadata,
	}
	if err := r.pool.Submit(batch); err != nil {
		r.rejected.Add(1)
		return errors.WrapTransient(errors.ErrResourceExhausted, "Recorder", "Record",
			"write queue full")
	}
	return nil
}

// write is the pool processor: one batch in, one JSON line out. Runs on the
// single pool worker, strictly in submission order.
func (r *Recorder) write(_ context.Context, batch Batch) error {
	r.checkMonotone(batch.Window)

	batch.WrittenAt = timestamp.Now()
	line, err := json.Marshal(batch)
	if err != nil {
		r.logger.Error("batch marshal failed", "sequence", batch.Sequence, "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.writer.Write(line); err != nil {
		r.logger.Error("batch write failed", "sequence", batch.Sequence, "error", err)
		return err
	}
	if err := r.writer.WriteByte('\n'); err != nil {
		return err
	}
	r.written.Add(1)
	r.lastWrite.Store(timestamp.Now())
	return nil
}

// checkMonotone verifies the per-stream ordering guarantee the core makes:
// each delivered batch ends at or after the previous one. A violation is
// logged, never fatal; the batch is still recorded.
func (r *Recorder) checkMonotone(window types.AlignedWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()

	check := func(streamID string, end int64) {
		if prev, ok := r.lastTs[streamID]; ok && end < prev {
			r.logger.Warn("batch timestamps regressed",
				"stream", streamID, "previous", prev, "got", end)
		}
		r.lastTs[streamID] = end
	}

	if ref := r.windowEnd(window.Reference); ref != 0 {
		check(window.Reference.StreamID, ref)
	}
	for id, w := range window.Streams {
		if end := r.windowEnd(w); end != 0 {
			check(id, end)
		}
	}
}

func (r *Recorder) windowEnd(w types.Window) int64 {
	if len(w.Timestamps) == 0 {
		return 0
	}
	return w.Timestamps[len(w.Timestamps)-1]
}

// Initialize validates the configuration and ensures the output directory
// exists.
func (r *Recorder) Initialize() error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return errors.WrapFatal(err, "Recorder", "Initialize", "create output dir")
	}
	return nil
}

// Start opens the session file and starts the write worker.
func (r *Recorder) Start(ctx context.Context) error {
	if r.running.Load() {
		return nil
	}

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "Recorder", "Start", "open "+r.path)
	}
	r.file = file
	r.writer = bufio.NewWriter(file)

	if err := r.pool.Start(ctx); err != nil {
		file.Close()
		return errors.WrapFatal(err, "Recorder", "Start", "start write pool")
	}

	r.running.Store(true)
	r.startTime = time.Now()
	r.logger.Info("recording started", "session", r.session, "path", r.path)
	return nil
}

// Stop drains the write queue, flushes, and closes the session file. Every
// batch accepted before Stop reaches disk.
func (r *Recorder) Stop(timeout time.Duration) error {
	if !r.running.Swap(false) {
		return nil
	}

	poolErr := r.pool.Stop(timeout)

	r.mu.Lock()
	defer r.mu.Unlock()
	var flushErr error
	if r.writer != nil {
		flushErr = r.writer.Flush()
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && flushErr == nil {
			flushErr = err
		}
		r.file = nil
	}

	r.logger.Info("recording stopped", "session", r.session, "batches", r.written.Load())
	if poolErr != nil {
		return errors.WrapTransient(poolErr, "Recorder", "Stop", "drain write queue")
	}
	if flushErr != nil {
		return errors.Wrap(flushErr, "Recorder", "Stop", "flush session file")
	}
	return nil
}

// Meta returns the component metadata.
func (r *Recorder) Meta() component.Metadata {
	return component.Metadata{
		Name:        r.name,
		Type:        "recorder",
		Description: fmt.Sprintf("JSONL batch sink, session %s", r.session[:8]),
		Version:     "1.0.0",
	}
}

// Health reports whether the write path is accepting batches.
func (r *Recorder) Health() component.HealthStatus {
	return component.HealthStatus{
		Healthy:    r.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(r.rejected.Load() + r.pool.Stats().Failed),
		Uptime:     time.Since(r.startTime),
	}
}

// DataFlow reports batch throughput.
func (r *Recorder) DataFlow() component.FlowMetrics {
	written := r.written.Load()
	rejected := r.rejected.Load()

	var perSecond, errorRate float64
	if uptime := time.Since(r.startTime).Seconds(); uptime > 0 {
		perSecond = float64(written) / uptime
	}
	if total := written + rejected; total > 0 {
		errorRate = float64(rejected) / float64(total)
	}

	var last time.Time
	if us := r.lastWrite.Load(); us > 0 {
		last = time.UnixMicro(us)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		ErrorRate:         errorRate,
		LastActivity:      last,
	}
}
