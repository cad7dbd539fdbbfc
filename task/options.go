package task

import "time"

// Options configures per-task behavior at enqueue time.
type Options struct {
	// Timeout is the maximum duration the task may run before its result
	// slot is resolved with a timeout error. Zero means the queue default
	// applies; a negative value disables the timeout entirely.
	Timeout time.Duration
}

// DefaultOptions returns Options with the queue defaults left in effect.
func DefaultOptions() Options {
	return Options{}
}

// Option is a functional option for configuring a single task.
type Option func(*Options)

// WithTimeout overrides the queue's default timeout for this task.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithoutTimeout disables the timeout for this task.
func WithoutTimeout() Option {
	return func(o *Options) {
		o.Timeout = -1
	}
}
