package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/types"
)

// silenceFactor sets the watchdog threshold: a worker silent for this many
// tick periods is presumed wedged and replaced.
const silenceFactor = 2

// workerResult is what a worker hands the merge loop each tick. A nil
// prediction is a heartbeat: the tick failed but the worker is alive.
type workerResult struct {
	slot int
	id   string
	pred *types.Prediction
}

// workerSlot tracks one live worker so the watchdog can replace it.
type workerSlot struct {
	id        string
	cancel    context.CancelFunc
	lastSeen  time.Time
	respawned bool // one respawn per silence, cleared on next result
}

// runInterleaved runs N share-nothing workers phase-offset by period/N and
// merges their outputs by timestamp. Results older than the newest emission
// are discarded, so the sink sees a strictly increasing timeline even when a
// slow worker finishes out of order.
func (s *Scheduler) runInterleaved(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	n := s.cfg.Workers
	period := s.cfg.Period()
	phase := period / time.Duration(n)
	s.logger.Info("decoding loop started", "mode", "interleaved",
		"workers", n, "cadence_hz", s.cfg.CadenceHz, "phase_offset", phase)

	results := make(chan workerResult, n*4)
	fatal := make(chan error, n)
	var wg sync.WaitGroup

	slots := make([]*workerSlot, n)
	spawn := func(slot int, offset time.Duration) {
		wctx, wcancel := context.WithCancel(ctx)
		id := fmt.Sprintf("worker-%d-%s", slot, uuid.NewString()[:8])
		slots[slot] = &workerSlot{id: id, cancel: wcancel, lastSeen: time.Now()}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runWorker(wctx, id, slot, offset, period, results, fatal)
		}()
	}

	for i := 0; i < n; i++ {
		spawn(i, time.Duration(i)*phase)
	}
	defer wg.Wait()

	watchdog := time.NewTicker(period)
	defer watchdog.Stop()

	var lastEmitted int64
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-fatal:
			cancel()
			return err

		case res := <-results:
			slot := slots[res.slot]
			if res.id == slot.id { // stale results from a replaced worker don't reset the watchdog
				slot.lastSeen = time.Now()
				slot.respawned = false
			}
			if res.pred == nil {
				continue
			}
			if res.pred.Timestamp <= lastEmitted {
				s.discarded.Add(1)
				s.logger.Debug("stale prediction discarded",
					"worker", res.id, "timestamp", res.pred.Timestamp)
				continue
			}
			lastEmitted = res.pred.Timestamp
			s.emit(ctx, *res.pred)

		case <-watchdog.C:
			now := time.Now()
			for i, slot := range slots {
				if slot.respawned || now.Sub(slot.lastSeen) <= silenceFactor*period {
					continue
				}
				s.logger.Warn("worker silent, respawning",
					"worker", slot.id, "slot", i, "silent_for", now.Sub(slot.lastSeen))
				slot.cancel()
				spawn(i, 0)
				slots[i].respawned = true
				s.respawns.Add(1)
				if s.metrics != nil {
					s.metrics.Metrics.RecordWorkerRespawn(fmt.Sprintf("worker-%d", i))
				}
			}
		}
	}
}

// runWorker is one interleaved decoding loop. It builds its own source via
// the factory, waits out its phase offset, then ticks on an absolute
// schedule at the full period, reporting every tick (prediction or
// heartbeat) to the merge loop.
func (s *Scheduler) runWorker(ctx context.Context, id string, slot int,
	offset, period time.Duration, results chan<- workerResult, fatal chan<- error) {

	src, err := s.factory(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		select {
		case fatal <- errors.WrapFatal(err, "Scheduler", "runWorker", "source factory for "+id):
		default:
		}
		return
	}
	defer src.Close()

	if offset > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(offset):
		}
	}

	start := time.Now()
	for tick := int64(1); ; tick++ {
		next := start.Add(time.Duration(tick) * period)
		wait := time.Until(next)
		if wait < 0 {
			tick += int64(-wait / period)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		pred, err := s.tickOnce(ctx, src)
		res := workerResult{slot: slot, id: id}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, errors.ErrReferenceStreamLost) {
				select {
				case fatal <- err:
				default:
				}
				return
			}
			s.badTicks.Add(1)
			s.logger.Debug("worker tick skipped", "worker", id, "error", err)
		} else {
			pred.WorkerID = id
			res.pred = &pred
		}

		select {
		case <-ctx.Done():
			return
		case results <- res:
		}
	}
}
