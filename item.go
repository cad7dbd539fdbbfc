package queueplus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/egyleader/queue-plus/id"
	"github.com/egyleader/queue-plus/middleware"
	"github.com/egyleader/queue-plus/task"
)

// Task is a unit of work: an asynchronous operation producing a value of
// type E. The context carries middleware values (trace spans); it is NOT
// cancelled on timeout or queue cancellation — the execution model is
// cooperative, and a timed-out task keeps running until it returns.
type Task[E any] func(ctx context.Context) (E, error)

// stateFn receives every item state transition; the queue installs it at
// enqueue time to feed the task-state stream.
type stateFn func(info task.Info, s task.State, err error, elapsed time.Duration)

// Item is a queue entry wrapping a task with a timeout and a
// single-resolution result slot. Items are created by Queue.Add and owned
// by the queue while pending or active; callers may retain the item to
// wait on its result independently.
type Item[E any] struct {
	info    task.Info
	fn      Task[E]
	onState stateFn

	// Result slot: resolves exactly once.
	done        chan struct{}
	resolveOnce sync.Once
	value       E
	err         error

	mu    sync.Mutex
	state task.State
}

func newItem[E any](fn Task[E], timeout time.Duration, onState stateFn) *Item[E] {
	return &Item[E]{
		info: task.Info{
			ID:         id.NewTaskID(),
			Timeout:    timeout,
			EnqueuedAt: time.Now().UTC(),
		},
		fn:      fn,
		onState: onState,
		done:    make(chan struct{}),
		state:   task.StateWaiting,
	}
}

// ID returns the item's unique identifier.
func (it *Item[E]) ID() id.TaskID { return it.info.ID }

// Info returns the item's metadata snapshot.
func (it *Item[E]) Info() task.Info { return it.info }

// State returns the item's current lifecycle state.
func (it *Item[E]) State() task.State {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state
}

// Done returns a channel closed when the item's result slot resolves.
func (it *Item[E]) Done() <-chan struct{} { return it.done }

// Wait blocks until the item's result slot resolves or ctx is done.
// It returns the task's value, its error, the timeout error, or the
// cancellation error — whichever resolved the slot first.
func (it *Item[E]) Wait(ctx context.Context) (E, error) {
	select {
	case <-it.done:
		return it.value, it.err
	case <-ctx.Done():
		var zero E
		return zero, ctx.Err()
	}
}

// resolve fulfills the result slot. Only the first call has any effect.
func (it *Item[E]) resolve(value E, err error) {
	it.resolveOnce.Do(func() {
		it.value = value
		it.err = err
		close(it.done)
	})
}

// setState records a state transition and notifies the queue's stream.
// Transitions out of a terminal state are ignored, keeping the lifecycle
// monotonic: waiting → processing → {completed|failed|timedout}.
func (it *Item[E]) setState(s task.State, err error, elapsed time.Duration) {
	it.mu.Lock()
	if it.state.Terminal() {
		it.mu.Unlock()
		return
	}
	it.state = s
	it.mu.Unlock()

	if it.onState != nil {
		it.onState(it.info, s, err, elapsed)
	}
}

// fail resolves the result slot with err and marks the item failed.
// Used by the queue for cancellation and pending-removal.
func (it *Item[E]) fail(err error) {
	var zero E
	it.resolve(zero, err)
	it.setState(task.StateFailed, err, 0)
}

// markProcessing records the processing transition. The queue calls it
// under its own lock at dispatch time so that start order (and the emitted
// processing events) strictly follows FIFO admission order.
func (it *Item[E]) markProcessing() {
	it.setState(task.StateProcessing, nil, 0)
}

// execute races the wrapped task against the item's timeout and resolves
// the result slot with whichever finishes first. If the timer fires first,
// the slot resolves with a timeout error while the task keeps running in
// the background; its eventual result is discarded. The hook is invoked
// exactly once, after the terminal state is recorded — this is the
// hand-back signal the queue uses to free a concurrency slot.
func (it *Item[E]) execute(ctx context.Context, chain middleware.Middleware, hook func(*Item[E])) {
	type outcome struct {
		value E
		err   error
	}
	outcomeCh := make(chan outcome, 1)

	start := time.Now()
	go func() {
		var out outcome
		out.err = chain(ctx, &it.info, func(ctx context.Context) error {
			v, err := it.fn(ctx)
			if err != nil {
				return err
			}
			out.value = v
			return nil
		})
		// Buffered: the send never blocks, so the goroutine exits even
		// when the timeout branch has stopped listening.
		outcomeCh <- out
	}()

	var timeoutCh <-chan time.Time
	if it.info.Timeout > 0 {
		timer := time.NewTimer(it.info.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case out := <-outcomeCh:
		elapsed := time.Since(start)
		if out.err != nil {
			it.resolve(out.value, out.err)
			it.setState(task.StateFailed, out.err, elapsed)
		} else {
			it.resolve(out.value, nil)
			it.setState(task.StateCompleted, nil, elapsed)
		}
	case <-timeoutCh:
		var zero E
		err := fmt.Errorf("%w after %s", ErrTimedOut, it.info.Timeout)
		it.resolve(zero, err)
		it.setState(task.StateTimedOut, err, it.info.Timeout)
	}

	hook(it)
}
