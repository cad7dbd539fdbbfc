// Package task defines the plain task-side types shared between the queue
// engine and middleware: the lifecycle state enum, the per-task metadata
// snapshot, and per-task options.
package task

import (
	"time"

	"github.com/egyleader/queue-plus/id"
)

// State represents the lifecycle state of a queue item.
type State string

const (
	// StateWaiting means the item is in the pending set, not yet started.
	StateWaiting State = "waiting"
	// StateProcessing means the item occupies an active slot and its task
	// is running.
	StateProcessing State = "processing"
	// StateCompleted means the task finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the task returned an error (or panicked).
	StateFailed State = "failed"
	// StateTimedOut means the timeout fired before the task finished.
	// The underlying task keeps running in the background; its eventual
	// result is discarded.
	StateTimedOut State = "timedout"
)

// Terminal reports whether s is one of the terminal states.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut:
		return true
	default:
		return false
	}
}

// Info is the read-only metadata view of a queue item passed to middleware
// and carried in stream events. It holds identity and admission data only;
// the mutable lifecycle state lives on the item itself.
type Info struct {
	// ID uniquely identifies the item.
	ID id.TaskID `json:"id"`

	// Timeout is the maximum duration the item's task may run before its
	// result slot is resolved with a timeout error.
	Timeout time.Duration `json:"timeout"`

	// EnqueuedAt is when the item was admitted to the pending set.
	EnqueuedAt time.Time `json:"enqueued_at"`
}
