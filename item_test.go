package queueplus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/egyleader/queue-plus/middleware"
	"github.com/egyleader/queue-plus/task"
)

func noopChain() middleware.Middleware {
	return middleware.Chain()
}

func TestItemResolveOnce(t *testing.T) {
	t.Parallel()

	it := newItem(func(_ context.Context) (int, error) { return 1, nil }, 0, nil)

	it.resolve(10, nil)
	it.resolve(20, errors.New("late"))

	v, err := it.Wait(context.Background())
	if v != 10 || err != nil {
		t.Errorf("Wait = (%d, %v), want first resolution (10, nil)", v, err)
	}
}

func TestItemStateIsMonotonic(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []task.State
	it := newItem(func(_ context.Context) (int, error) { return 0, nil }, 0,
		func(_ task.Info, s task.State, _ error, _ time.Duration) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		})

	it.markProcessing()
	it.setState(task.StateCompleted, nil, time.Millisecond)
	// Terminal: further transitions are ignored and not notified.
	it.setState(task.StateFailed, errors.New("late"), 0)

	if got := it.State(); got != task.StateCompleted {
		t.Errorf("State = %q, want %q", got, task.StateCompleted)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []task.State{task.StateProcessing, task.StateCompleted}
	if len(seen) != len(want) {
		t.Fatalf("notified states = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("notified states = %v, want %v", seen, want)
		}
	}
}

func TestItemExecuteInvokesHookOnce(t *testing.T) {
	t.Parallel()

	it := newItem(func(_ context.Context) (int, error) { return 7, nil }, 0, nil)
	it.markProcessing()

	hooked := make(chan *Item[int], 2)
	it.execute(context.Background(), noopChain(), func(done *Item[int]) {
		hooked <- done
	})

	select {
	case done := <-hooked:
		if done != it {
			t.Error("hook received a different item")
		}
	default:
		t.Fatal("hook not invoked")
	}
	select {
	case <-hooked:
		t.Fatal("hook invoked more than once")
	default:
	}

	v, err := it.Wait(context.Background())
	if v != 7 || err != nil {
		t.Errorf("Wait = (%d, %v), want (7, nil)", v, err)
	}
}

func TestItemExecuteTimeoutWinsRace(t *testing.T) {
	t.Parallel()

	it := newItem(func(_ context.Context) (int, error) {
		time.Sleep(150 * time.Millisecond)
		return 1, nil
	}, 20*time.Millisecond, nil)
	it.markProcessing()

	done := make(chan struct{})
	go func() {
		it.execute(context.Background(), noopChain(), func(*Item[int]) {})
		close(done)
	}()

	_, err := it.Wait(context.Background())
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("Wait error = %v, want ErrTimedOut", err)
	}
	if it.State() != task.StateTimedOut {
		t.Errorf("State = %q, want %q", it.State(), task.StateTimedOut)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("execute did not return after timeout")
	}
}

func TestItemWaitHonoursContext(t *testing.T) {
	t.Parallel()

	it := newItem(func(_ context.Context) (int, error) { return 0, nil }, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := it.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait error = %v, want context.DeadlineExceeded", err)
	}
}
