package queueplus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/egyleader/queue-plus/id"
	"github.com/egyleader/queue-plus/middleware"
	"github.com/egyleader/queue-plus/stream"
	"github.com/egyleader/queue-plus/task"
)

// QueueState represents the lifecycle state of the queue as a whole.
type QueueState string

const (
	// QueueStateIdle means no task is currently executing.
	QueueStateIdle QueueState = "idle"
	// QueueStateProcessing means at least one task occupies an active slot.
	QueueStateProcessing QueueState = "processing"
	// QueueStatePaused means the dispatch gate is closed; in-flight tasks
	// are unaffected.
	QueueStatePaused QueueState = "paused"
	// QueueStateCancelled is terminal; the queue accepts no further work.
	QueueStateCancelled QueueState = "cancelled"
)

// Queue is an in-process asynchronous task queue with bounded concurrency.
// Items are admitted in FIFO order and begin execution in admission order;
// completion order is unordered. All dispatch bookkeeping is serialized
// behind a single mutex; task bodies run on their own goroutines.
//
// Create one with New. A Queue must not be reused after Dispose.
type Queue[E any] struct {
	id      id.QueueID
	logger  *slog.Logger
	chain   middleware.Middleware
	baseCtx context.Context

	defaultTimeout time.Duration
	delay          time.Duration
	limiter        *rate.Limiter
	onDrained      func(context.Context)

	mu        sync.Mutex
	pending   []*Item[E]
	active    map[string]*Item[E]
	parallel  int
	paused    bool
	cancelled bool
	disposed  bool
	drained   bool
	draining  int // finish sequences whose OnDrained callback has not returned yet
	state     QueueState
	waiters   []chan struct{}

	// Observability streams. Eagerly constructed; each retains its most
	// recent event so late subscribers observe current status first.
	tasks  *stream.Channel
	states *stream.Channel
	counts *stream.Channel
}

// New creates a Queue with the given options.
func New[E any](opts ...Option) (*Queue[E], error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	if s.cfg.Parallelism < 1 {
		return nil, ErrInvalidParallelism
	}

	q := &Queue[E]{
		id:             id.NewQueueID(),
		logger:         s.logger,
		baseCtx:        context.Background(),
		defaultTimeout: s.cfg.Timeout,
		delay:          s.cfg.DispatchDelay,
		onDrained:      s.onDrained,
		active:         make(map[string]*Item[E]),
		parallel:       s.cfg.Parallelism,
		drained:        true,
		state:          QueueStateIdle,
		tasks:          stream.NewChannel("task.state", s.cfg.BufferSize),
		states:         stream.NewChannel("queue.state", s.cfg.BufferSize),
		counts:         stream.NewChannel("queue.count", s.cfg.BufferSize),
	}

	if s.cfg.RateLimit > 0 {
		burst := s.cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		q.limiter = rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
	}

	q.chain = buildChain(s)

	// Seed the streams so a subscriber arriving before any activity still
	// observes current status as its first event.
	q.states.Publish(stream.NewEvent(stream.EventQueueState, stream.QueueEventData{State: string(QueueStateIdle)}))
	q.counts.Publish(stream.NewEvent(stream.EventQueueCount, stream.CountEventData{Remaining: 0}))

	q.logger.Debug("queue created",
		slog.String("queue_id", q.id.String()),
		slog.Int("parallelism", q.parallel),
		slog.Duration("timeout", q.defaultTimeout),
	)

	return q, nil
}

// buildChain assembles the execution middleware stack:
// recover → tracing → metrics → logging → user middleware.
func buildChain(s settings) middleware.Middleware {
	tracingMw := middleware.Tracing()
	if s.tracerProvider != nil {
		tracingMw = middleware.TracingWithTracer(s.tracerProvider.Tracer("github.com/egyleader/queue-plus"))
	}

	metricsMw := middleware.Metrics()
	if s.meterProvider != nil {
		metricsMw = middleware.MetricsWithMeter(s.meterProvider.Meter("github.com/egyleader/queue-plus"))
	}

	mws := []middleware.Middleware{
		middleware.Recover(s.logger),
		tracingMw,
		metricsMw,
		middleware.Logging(s.logger),
	}
	mws = append(mws, s.mws...)

	return middleware.Chain(mws...)
}

// ID returns the queue's unique identifier.
func (q *Queue[E]) ID() id.QueueID { return q.id }

// Add appends a task to the tail of the pending set and triggers a
// dispatch attempt. It fails with ErrCancelled on a cancelled queue —
// nothing is enqueued. The returned item's Wait resolves with the task's
// eventual result.
func (q *Queue[E]) Add(fn Task[E], opts ...task.Option) (*Item[E], error) {
	if fn == nil {
		return nil, ErrNilTask
	}

	o := task.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	timeout := q.defaultTimeout
	if o.Timeout != 0 {
		timeout = o.Timeout
	}
	if timeout < 0 {
		timeout = 0
	}

	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return nil, ErrCancelled
	}

	it := newItem(fn, timeout, q.publishTaskState)
	q.pending = append(q.pending, it)
	q.drained = false

	// Published under the lock so the waiting event and the new count are
	// ordered before any processing event a concurrent dispatch may emit.
	q.publishTaskState(it.info, task.StateWaiting, nil, 0)
	q.publishCountLocked()
	q.mu.Unlock()

	q.logger.Debug("task enqueued",
		slog.String("queue_id", q.id.String()),
		slog.String("task_id", it.ID().String()),
		slog.Duration("timeout", timeout),
	)

	q.dispatch()
	return it, nil
}

// Remove takes an item out of whichever set currently holds it. A pending
// item never runs; its result slot resolves with ErrRemoved. An active
// item only loses its queue bookkeeping — the running task is not
// interrupted and its result slot still resolves normally. Returns
// ErrCancelled on a cancelled queue and ErrTaskNotFound when the item is
// in neither set.
func (q *Queue[E]) Remove(it *Item[E]) error {
	if it == nil {
		return ErrTaskNotFound
	}

	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return ErrCancelled
	}

	for i, p := range q.pending {
		if p == it {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.publishCountLocked()
			q.mu.Unlock()

			it.fail(ErrRemoved)
			q.dispatch()
			return nil
		}
	}

	key := it.ID().String()
	if _, ok := q.active[key]; ok {
		delete(q.active, key)
		q.publishCountLocked()
		q.mu.Unlock()

		q.dispatch()
		return nil
	}

	q.mu.Unlock()
	return ErrTaskNotFound
}

// Pause closes the dispatch gate: no new task starts until Resume.
// In-flight tasks are unaffected.
func (q *Queue[E]) Pause() {
	q.mu.Lock()
	if q.paused || q.cancelled {
		q.mu.Unlock()
		return
	}
	q.paused = true
	q.setQueueStateLocked(QueueStatePaused)
	q.mu.Unlock()

	q.logger.Debug("queue paused", slog.String("queue_id", q.id.String()))
}

// Resume reopens the dispatch gate and retriggers dispatch.
func (q *Queue[E]) Resume() {
	q.mu.Lock()
	if !q.paused || q.cancelled {
		q.mu.Unlock()
		return
	}
	q.paused = false
	q.setQueueStateLocked(QueueStateIdle)
	q.mu.Unlock()

	q.logger.Debug("queue resumed", slog.String("queue_id", q.id.String()))
	q.dispatch()
}

// Cancel terminally cancels the queue. Every still-pending item resolves
// with ErrCancelled and is dropped; active tasks finish naturally. All
// subsequent Add and Remove calls fail with ErrCancelled.
func (q *Queue[E]) Cancel() {
	q.mu.Lock()
	if q.cancelled {
		q.mu.Unlock()
		return
	}
	q.cancelled = true
	dropped := q.pending
	q.pending = nil
	q.setQueueStateLocked(QueueStateCancelled)
	q.publishCountLocked()
	remaining := len(q.active)
	q.mu.Unlock()

	for _, it := range dropped {
		it.fail(ErrCancelled)
	}

	q.logger.Info("queue cancelled",
		slog.String("queue_id", q.id.String()),
		slog.Int("dropped", len(dropped)),
		slog.Int("active", remaining),
	)

	q.dispatch()
}

// Dispose cancels the queue and closes the observability streams. It is
// idempotent. Nothing is emitted after Dispose returns; tasks still
// finishing naturally have their stream events dropped.
func (q *Queue[E]) Dispose() {
	q.Cancel()

	q.mu.Lock()
	if q.disposed {
		q.mu.Unlock()
		return
	}
	q.disposed = true
	q.mu.Unlock()

	q.tasks.Close()
	q.states.Close()
	q.counts.Close()

	q.logger.Info("queue disposed", slog.String("queue_id", q.id.String()))
}

// Finished returns a channel closed when the queue drains: pending and
// active both empty and the OnDrained callback (if any) returned. Every
// call returns a fresh channel; all outstanding channels are closed
// together on the drain event. If the queue is already drained and no
// drain callback is still running, the returned channel is closed
// immediately; while the callback is in flight the channel joins the
// waiter set and closes with the rest once the callback returns.
func (q *Queue[E]) Finished() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan struct{})
	if q.drained && q.draining == 0 {
		close(ch)
		return ch
	}
	q.waiters = append(q.waiters, ch)
	return ch
}

// SetParallelism changes the concurrency bound at runtime. Growing it
// immediately triggers extra dispatch attempts up to the new bound;
// shrinking only throttles future dispatch — already-active tasks are
// never pre-empted.
func (q *Queue[E]) SetParallelism(n int) error {
	if n < 1 {
		return ErrInvalidParallelism
	}

	q.mu.Lock()
	grew := n > q.parallel
	q.parallel = n
	q.mu.Unlock()

	q.logger.Debug("parallelism changed",
		slog.String("queue_id", q.id.String()),
		slog.Int("parallelism", n),
	)

	if grew {
		q.dispatch()
	}
	return nil
}

// Parallelism returns the current concurrency bound.
func (q *Queue[E]) Parallelism() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.parallel
}

// Len returns the number of items the queue currently holds
// (pending + active).
func (q *Queue[E]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.active)
}

// IsEmpty reports whether the queue holds no items.
func (q *Queue[E]) IsEmpty() bool { return q.Len() == 0 }

// IsPaused reports whether the dispatch gate is closed.
func (q *Queue[E]) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

// State returns the queue's current lifecycle state.
func (q *Queue[E]) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// TaskEvents subscribes to the task-state stream. The subscriber's first
// event is the most recent task state change, if any occurred yet.
func (q *Queue[E]) TaskEvents() *stream.Subscriber { return q.tasks.Subscribe() }

// QueueEvents subscribes to the queue-state stream. The subscriber's
// first event reflects the queue's current state.
func (q *Queue[E]) QueueEvents() *stream.Subscriber { return q.states.Subscribe() }

// CountEvents subscribes to the remaining-count stream. The subscriber's
// first event reflects the current pending + active count.
func (q *Queue[E]) CountEvents() *stream.Subscriber { return q.counts.Subscribe() }

// dispatch is the single dispatch algorithm, invoked after every
// state-changing event: Add, an item's completion hook, Remove, Resume,
// Cancel, or a parallelism change. While the gate is open and a slot is
// free it pops the pending head (strict FIFO), moves it to active, and
// begins execution without waiting for it to finish. When both sets are
// empty it runs the finish sequence exactly once per drain transition.
func (q *Queue[E]) dispatch() {
	q.mu.Lock()

	for !q.cancelled && !q.paused && len(q.pending) > 0 && len(q.active) < q.parallel {
		if q.limiter != nil && !q.limiter.Allow() {
			r := q.limiter.Reserve()
			delay := r.Delay()
			r.Cancel()
			time.AfterFunc(delay, q.dispatch)
			break
		}

		it := q.pending[0]
		q.pending = q.pending[1:]
		q.active[it.ID().String()] = it
		q.setQueueStateLocked(QueueStateProcessing)

		// Emitting processing under the lock keeps observed start order
		// equal to admission order.
		it.markProcessing()
		go it.execute(q.baseCtx, q.chain, q.itemDone)
	}

	finish := false
	if !q.drained && len(q.pending) == 0 && len(q.active) == 0 {
		q.drained = true
		q.draining++
		finish = true
		if !q.cancelled {
			q.setQueueStateLocked(QueueStateIdle)
		}
		q.publishCountLocked()
	}
	q.mu.Unlock()

	if !finish {
		return
	}

	if q.onDrained != nil {
		q.onDrained(q.baseCtx)
	}

	// Waiters are collected only after the callback returns, so one
	// registered mid-callback (including via the Finished fast path being
	// held open by draining) still resolves strictly after it.
	q.mu.Lock()
	q.draining--
	waiters := q.waiters
	q.waiters = nil
	q.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	q.logger.Debug("queue drained", slog.String("queue_id", q.id.String()))
}

// itemDone is the completion hook handed to every dispatched item. It
// frees the item's concurrency slot, publishes the remaining count,
// parks the queue state at idle for the inter-dispatch gap, optionally
// waits the configured delay, and re-invokes dispatch. It runs on the
// finished item's goroutine.
func (q *Queue[E]) itemDone(it *Item[E]) {
	q.mu.Lock()
	delete(q.active, it.ID().String())
	if !q.cancelled && !q.paused {
		q.setQueueStateLocked(QueueStateIdle)
	}
	q.publishCountLocked()
	q.mu.Unlock()

	if q.delay > 0 {
		time.Sleep(q.delay)
	}
	q.dispatch()
}

// publishTaskState feeds the task-state stream. Installed on every item
// as its state callback.
func (q *Queue[E]) publishTaskState(info task.Info, s task.State, err error, elapsed time.Duration) {
	data := stream.TaskEventData{
		TaskID: info.ID.String(),
		State:  string(s),
	}
	if err != nil {
		data.Error = err.Error()
	}
	if elapsed > 0 {
		data.Elapsed = elapsed.Milliseconds()
	}
	q.tasks.Publish(stream.NewEvent(stream.EventTaskState, data))
}

// publishCountLocked feeds the remaining-count stream with the current
// pending + active total. Callers must hold q.mu, which keeps count events
// ordered with the bookkeeping they describe.
func (q *Queue[E]) publishCountLocked() {
	n := len(q.pending) + len(q.active)
	q.counts.Publish(stream.NewEvent(stream.EventQueueCount, stream.CountEventData{Remaining: n}))
}

// setQueueStateLocked records and publishes a queue state change.
// Callers must hold q.mu.
func (q *Queue[E]) setQueueStateLocked(s QueueState) {
	if q.state == s {
		return
	}
	q.state = s
	q.states.Publish(stream.NewEvent(stream.EventQueueState, stream.QueueEventData{State: string(s)}))
}
