package queueplus

import "errors"

var (
	// Lifecycle errors.
	ErrCancelled = errors.New("queueplus: queue cancelled")
	ErrTimedOut  = errors.New("queueplus: task timed out")
	ErrRemoved   = errors.New("queueplus: task removed from queue")

	// Lookup errors.
	ErrTaskNotFound = errors.New("queueplus: task not found")

	// Configuration errors.
	ErrNilTask            = errors.New("queueplus: nil task")
	ErrInvalidParallelism = errors.New("queueplus: parallelism must be at least 1")
)
