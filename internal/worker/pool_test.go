package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type testJob struct {
	id      int
	delay   time.Duration
	counter *atomic.Int32
}

type testResult struct {
	id  int
	err error
}

func (r *testResult) GetError() error { return r.err }

func (j *testJob) Execute(ctx context.Context) Result {
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &testResult{id: j.id, err: ctx.Err()}
		}
	}
	if j.counter != nil {
		j.counter.Add(1)
	}
	return &testResult{id: j.id}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var counter atomic.Int32
	pool := NewPool(context.Background(), 3, 10)
	pool.Start()

	for i := 0; i < 10; i++ {
		pool.Submit(&testJob{id: i, counter: &counter})
	}
	results := pool.Wait()

	if len(results) != 10 {
		t.Errorf("Expected 10 results, got %d", len(results))
	}
	if counter.Load() != 10 {
		t.Errorf("Expected 10 executions, got %d", counter.Load())
	}

	seen := make(map[int]bool)
	for _, r := range results {
		tr := r.(*testResult)
		if seen[tr.id] {
			t.Errorf("Job %d executed twice", tr.id)
		}
		seen[tr.id] = true
	}
}

func TestPool_SubmitWholeBatchBeforeWait(t *testing.T) {
	// Queue capacity covers the batch, so submitting far more jobs than
	// workers must not deadlock.
	const batch = 200
	pool := NewPool(context.Background(), 2, batch)
	pool.Start()

	for i := 0; i < batch; i++ {
		pool.Submit(&testJob{id: i})
	}
	results := pool.Wait()

	if len(results) != batch {
		t.Errorf("Expected %d results, got %d", batch, len(results))
	}
}

func TestPool_CancellationStopsScheduling(t *testing.T) {
	var counter atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1, 20)
	pool.Start()

	for i := 0; i < 20; i++ {
		pool.Submit(&testJob{id: i, delay: 20 * time.Millisecond, counter: &counter})
	}
	time.Sleep(30 * time.Millisecond)
	cancel()

	results := pool.Wait()
	if len(results) >= 20 {
		t.Errorf("Expected cancellation to drop jobs, got %d results", len(results))
	}
}

func TestPool_SubmitAfterCancelIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, 1, 4)
	pool.Start()
	cancel()

	pool.Submit(&testJob{id: 1})
	results := pool.Wait()
	if len(results) != 0 {
		t.Errorf("Expected no results after cancellation, got %d", len(results))
	}
}

func TestPool_ZeroWorkersDefaultsToOne(t *testing.T) {
	pool := NewPool(context.Background(), 0, 0)
	pool.Start()
	pool.Submit(&testJob{id: 1})
	results := pool.Wait()
	if len(results) != 1 {
		t.Errorf("Expected 1 result, got %d", len(results))
	}
}

func TestLimiter_DisabledPassesThrough(t *testing.T) {
	limiter := NewLimiter(0, 0)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Errorf("Disabled limiter Wait = %v, want nil", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Error("Expected context error from cancelled Wait")
	}
}

func TestLimiter_Throttles(t *testing.T) {
	limiter := NewLimiter(100, 1)
	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}
	}
	// 4 calls at 100 rps with burst 1 need ~30ms
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected throttling, 4 calls took %v", elapsed)
	}
}
