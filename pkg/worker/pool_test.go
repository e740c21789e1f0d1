package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Work item shape used across pool tests, modeled on a sink write batch
type testBatch struct {
	seq   int
	delay time.Duration
	fail  bool
}

func TestNewPool(t *testing.T) {
	processor := func(ctx context.Context, _ testBatch) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}

	pool := NewPool(5, 100, processor)
	if pool.workers != 5 {
		t.Errorf("Expected 5 workers, got %d", pool.workers)
	}
	if pool.queueSize != 100 {
		t.Errorf("Expected queue size 100, got %d", pool.queueSize)
	}

	// Zero workers defaults to a single ordered worker
	pool = NewPool(0, 100, processor)
	if pool.workers != 1 {
		t.Errorf("Expected default 1 worker, got %d", pool.workers)
	}

	pool = NewPool(5, 0, processor)
	if pool.queueSize != 256 {
		t.Errorf("Expected default queue size 256, got %d", pool.queueSize)
	}
}

func TestNewPool_NilProcessor(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for nil processor")
		}
	}()
	NewPool[testBatch](5, 100, nil)
}

func TestPool_StartStop(t *testing.T) {
	var processedCount int64
	processor := func(_ context.Context, _ testBatch) error {
		atomic.AddInt64(&processedCount, 1)
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx := context.Background()
	err := pool.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	err = pool.Start(ctx)
	if err == nil {
		t.Error("Expected error when starting pool twice")
	}

	for i := 0; i < 5; i++ {
		err := pool.Submit(testBatch{seq: i})
		if err != nil {
			t.Errorf("Failed to submit batch %d: %v", i, err)
		}
	}

	// Stop drains the queue, so everything submitted must be processed
	err = pool.Stop(5 * time.Second)
	if err != nil {
		t.Fatalf("Failed to stop pool: %v", err)
	}

	processed := atomic.LoadInt64(&processedCount)
	if processed != 5 {
		t.Errorf("Expected 5 processed batches, got %d", processed)
	}

	err = pool.Submit(testBatch{seq: 999})
	if err == nil {
		t.Error("Expected error when submitting to stopped pool")
	}
}

func TestPool_SingleWorkerPreservesOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int

	processor := func(_ context.Context, b testBatch) error {
		mu.Lock()
		order = append(order, b.seq)
		mu.Unlock()
		return nil
	}

	pool := NewPool(1, 100, processor)

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	for i := 0; i < 50; i++ {
		if err := pool.Submit(testBatch{seq: i}); err != nil {
			t.Fatalf("Failed to submit batch %d: %v", i, err)
		}
	}

	if err := pool.Stop(5 * time.Second); err != nil {
		t.Fatalf("Failed to stop pool: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 50 {
		t.Fatalf("Expected 50 processed batches, got %d", len(order))
	}
	for i, seq := range order {
		if seq != i {
			t.Fatalf("Out-of-order processing at position %d: got seq %d", i, seq)
		}
	}
}

func TestPool_QueueFull(t *testing.T) {
	processor := func(_ context.Context, b testBatch) error {
		time.Sleep(b.delay)
		return nil
	}

	pool := NewPool(1, 2, processor) // Small queue

	ctx := context.Background()
	err := pool.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}
	defer pool.Stop(5 * time.Second)

	submitted := 0
	dropped := 0

	for i := 0; i < 5; i++ {
		err := pool.Submit(testBatch{
			seq:   i,
			delay: 200 * time.Millisecond,
		})
		if err != nil {
			dropped++
		} else {
			submitted++
		}
	}

	if dropped == 0 {
		t.Error("Expected some batches to be dropped due to full queue")
	}
	if submitted == 0 {
		t.Error("Expected some batches to be submitted successfully")
	}

	stats := pool.Stats()
	if stats.Dropped == 0 {
		t.Error("Stats should show dropped batches")
	}
}

func TestPool_ProcessingErrors(t *testing.T) {
	var successCount, errorCount int64

	processor := func(_ context.Context, b testBatch) error {
		if b.fail {
			atomic.AddInt64(&errorCount, 1)
			return errors.New("simulated write failure")
		}
		atomic.AddInt64(&successCount, 1)
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx := context.Background()
	err := pool.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	for i := 0; i < 10; i++ {
		batch := testBatch{
			seq:  i,
			fail: i%2 == 0, // Half will fail
		}
		err := pool.Submit(batch)
		if err != nil {
			t.Errorf("Failed to submit batch %d: %v", i, err)
		}
	}

	if err := pool.Stop(5 * time.Second); err != nil {
		t.Fatalf("Failed to stop pool: %v", err)
	}

	success := atomic.LoadInt64(&successCount)
	errCount := atomic.LoadInt64(&errorCount)

	if success != 5 {
		t.Errorf("Expected 5 successful batches, got %d", success)
	}
	if errCount != 5 {
		t.Errorf("Expected 5 failed batches, got %d", errCount)
	}

	stats := pool.Stats()
	if stats.Processed != 10 {
		t.Errorf("Expected 10 processed batches in stats, got %d", stats.Processed)
	}
	if stats.Failed != 5 {
		t.Errorf("Expected 5 failed batches in stats, got %d", stats.Failed)
	}
}

func TestPool_ContextCancellation(t *testing.T) {
	var processedCount int64

	processor := func(ctx context.Context, b testBatch) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			time.Sleep(b.delay)
			atomic.AddInt64(&processedCount, 1)
			return nil
		}
	}

	pool := NewPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	err := pool.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := pool.Submit(testBatch{
			seq:   i,
			delay: 50 * time.Millisecond,
		})
		if err != nil {
			t.Errorf("Failed to submit batch %d: %v", i, err)
		}
	}

	// Cancel context quickly
	time.Sleep(10 * time.Millisecond)
	cancel()

	err = pool.Stop(5 * time.Second)
	if err != nil {
		t.Fatalf("Failed to stop pool: %v", err)
	}

	processed := atomic.LoadInt64(&processedCount)
	t.Logf("Processed %d batches before cancellation", processed)
}

func TestPool_ConcurrentSubmissions(t *testing.T) {
	var processedCount int64

	processor := func(_ context.Context, _ testBatch) error {
		atomic.AddInt64(&processedCount, 1)
		return nil
	}

	pool := NewPool(5, 200, processor)

	ctx := context.Background()
	err := pool.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	var wg sync.WaitGroup
	submitters := 10
	batchesPerSubmitter := 10

	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(submitterID int) {
			defer wg.Done()
			for j := 0; j < batchesPerSubmitter; j++ {
				batch := testBatch{
					seq: submitterID*batchesPerSubmitter + j,
				}
				err := pool.Submit(batch)
				if err != nil {
					t.Errorf("Submitter %d failed to submit batch %d: %v", submitterID, j, err)
				}
			}
		}(i)
	}

	wg.Wait()

	if err := pool.Stop(5 * time.Second); err != nil {
		t.Fatalf("Failed to stop pool: %v", err)
	}

	processed := atomic.LoadInt64(&processedCount)
	expected := int64(submitters * batchesPerSubmitter)
	if processed != expected {
		t.Errorf("Expected %d processed batches, got %d", expected, processed)
	}
}

func TestPool_Stats(t *testing.T) {
	processor := func(ctx context.Context, _ testBatch) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
			return nil
		}
	}

	pool := NewPool(3, 50, processor)

	stats := pool.Stats()
	if stats.Workers != 3 {
		t.Errorf("Expected 3 workers in stats, got %d", stats.Workers)
	}
	if stats.QueueSize != 50 {
		t.Errorf("Expected queue size 50 in stats, got %d", stats.QueueSize)
	}
	if stats.Submitted != 0 {
		t.Errorf("Expected 0 submitted initially, got %d", stats.Submitted)
	}

	ctx := context.Background()
	err := pool.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}
	defer pool.Stop(5 * time.Second)

	for i := 0; i < 10; i++ {
		_ = pool.Submit(testBatch{seq: i})
	}

	time.Sleep(50 * time.Millisecond)
	stats = pool.Stats()

	if stats.Submitted != 10 {
		t.Errorf("Expected 10 submitted in stats, got %d", stats.Submitted)
	}

	if stats.Processed <= 0 || stats.Processed > stats.Submitted {
		t.Errorf("Invalid processed count in stats: %d (submitted: %d)", stats.Processed, stats.Submitted)
	}
}
