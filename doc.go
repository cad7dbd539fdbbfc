// Package queueplus provides an in-process asynchronous task queue that
// executes enqueued work with bounded concurrency while preserving
// first-in-first-out admission order.
//
// Tasks are ordinary Go functions returning a value. Enqueue them on a
// Queue and wait on the returned item:
//
//	q, err := queueplus.New[string](
//	    queueplus.WithParallelism(3),
//	    queueplus.WithTimeout(10*time.Second),
//	)
//
//	it, err := q.Add(func(ctx context.Context) (string, error) {
//	    return fetchReport(ctx)
//	})
//
//	report, err := it.Wait(ctx)
//
// Up to the configured parallelism tasks run simultaneously; the rest wait
// in FIFO order. Each task races a per-item timeout: if the timer wins, the
// item resolves with a timeout error while the task body keeps running in
// the background (timeouts and cancellation are cooperative — running task
// bodies are never interrupted).
//
// The queue can be paused, resumed, and cancelled. Cancel rejects all
// still-pending items and refuses further Add calls; in-flight tasks finish
// naturally. Finished returns a channel closed when both the pending and
// active sets are empty.
//
// # Observability
//
// Three broadcast streams report task state changes, queue state changes
// (idle, processing, paused, cancelled), and the remaining item count. Each
// stream replays its most recent value to late subscribers. Task execution
// runs through a middleware chain (panic recovery, OpenTelemetry tracing
// and metrics, structured logging) that can be extended via WithMiddleware.
package queueplus
