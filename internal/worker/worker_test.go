package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_SameKeyRunsInOrder(t *testing.T) {
	pool := NewPool(context.Background(), 4, 8)

	var mu sync.Mutex
	var ran sync.WaitGroup
	order := map[string][]int{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("doc-%d", i%5)
		seq := i
		ran.Add(1)
		err := pool.Submit(context.Background(), Task{Key: key, Run: func(ctx context.Context) error {
			defer ran.Done()
			time.Sleep(time.Millisecond)
			mu.Lock()
			order[key] = append(order[key], seq)
			mu.Unlock()
			return nil
		}})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	ran.Wait()
	pool.Stop()

	for key, seqs := range order {
		if len(seqs) != 10 {
			t.Errorf("%s ran %d tasks, want 10", key, len(seqs))
		}
		for i := 1; i < len(seqs); i++ {
			if seqs[i] < seqs[i-1] {
				t.Errorf("%s ran out of order: %v", key, seqs)
				break
			}
		}
	}
}

func TestPool_RouteIsStable(t *testing.T) {
	pool := NewPool(context.Background(), 3, 1)
	defer pool.Stop()
	first := pool.route("document-42")
	for i := 0; i < 10; i++ {
		if pool.route("document-42") != first {
			t.Fatal("routing must be deterministic")
		}
	}
}

func TestPool_FatalHaltsPool(t *testing.T) {
	pool := NewPool(context.Background(), 1, 4)
	boom := errors.New("dimension mismatch")
	var ranAfter atomic.Int32
	release := make(chan struct{})

	_ = pool.Submit(context.Background(), Task{Key: "a", Run: func(ctx context.Context) error {
		<-release
		return boom
	}})
	_ = pool.Submit(context.Background(), Task{Key: "a", Run: func(ctx context.Context) error {
		ranAfter.Add(1)
		return nil
	}})
	close(release)

	select {
	case err := <-pool.Fatal():
		if !errors.Is(err, boom) {
			t.Errorf("unexpected fatal %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fatal error not surfaced")
	}
	pool.Stop()

	if ranAfter.Load() != 0 {
		t.Error("tasks queued behind a fatal error must not run")
	}
	if err := pool.Submit(context.Background(), Task{Key: "b", Run: func(ctx context.Context) error { return nil }}); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("expected ErrPoolStopped, got %v", err)
	}
}

func TestPool_PanicIsFatal(t *testing.T) {
	pool := NewPool(context.Background(), 2, 1)
	_ = pool.Submit(context.Background(), Task{Key: "x", Run: func(ctx context.Context) error {
		panic("bad state")
	}})
	select {
	case err := <-pool.Fatal():
		if err == nil {
			t.Error("expected error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panic not surfaced")
	}
	pool.Stop()
}

func TestPool_StopWaitsForInFlight(t *testing.T) {
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	pool := NewPool(runCtx, 2, 2)

	keys := []string{"a"}
	for i := 0; len(keys) < 2; i++ {
		if key := fmt.Sprint("b", i); pool.route(key) != pool.route("a") {
			keys = append(keys, key)
		}
	}

	var finished atomic.Int32
	var started sync.WaitGroup
	release := make(chan struct{})
	for _, key := range keys {
		started.Add(1)
		_ = pool.Submit(context.Background(), Task{Key: key, Run: func(ctx context.Context) error {
			started.Done()
			<-release
			if ctx.Err() == nil {
				finished.Add(1)
			}
			return nil
		}})
	}
	started.Wait()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop within timeout")
	}
	if finished.Load() != 2 {
		t.Errorf("expected both in-flight tasks to finish, got %d", finished.Load())
	}
}

func TestPool_StopDropsQueuedTasks(t *testing.T) {
	pool := NewPool(context.Background(), 1, 4)

	started := make(chan struct{})
	release := make(chan struct{})
	var inFlightDone, queuedRan atomic.Int32
	_ = pool.Submit(context.Background(), Task{Key: "k", Run: func(ctx context.Context) error {
		close(started)
		<-release
		inFlightDone.Add(1)
		return nil
	}})
	<-started
	for i := 0; i < 3; i++ {
		_ = pool.Submit(context.Background(), Task{Key: "k", Run: func(ctx context.Context) error {
			queuedRan.Add(1)
			return nil
		}})
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	for !pool.halted.Load() {
		time.Sleep(time.Millisecond)
	}
	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop within timeout")
	}
	if inFlightDone.Load() != 1 {
		t.Error("the in-flight task must finish")
	}
	if queuedRan.Load() != 0 {
		t.Errorf("queued tasks must be dropped on stop, %d ran", queuedRan.Load())
	}
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	pool := NewPool(context.Background(), 1, 1)
	block := make(chan struct{})
	defer func() {
		close(block)
		pool.Stop()
	}()
	slow := Task{Key: "k", Run: func(ctx context.Context) error { <-block; return nil }}
	_ = pool.Submit(context.Background(), slow) // picked up by the worker
	time.Sleep(10 * time.Millisecond)
	_ = pool.Submit(context.Background(), slow) // fills the queue

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Submit(ctx, slow); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
