package queueplus

import (
	"time"

	"github.com/egyleader/queue-plus/stream"
)

// Config holds configuration for a Queue.
type Config struct {
	// Parallelism is the maximum number of tasks executed concurrently.
	Parallelism int

	// Timeout is the default per-task execution timeout. Individual tasks
	// may override it at enqueue time. Zero disables the default timeout.
	Timeout time.Duration

	// DispatchDelay is an optional pause observed after each task
	// completes before the next dispatch attempt.
	DispatchDelay time.Duration

	// RateLimit is the maximum sustained task starts per second. Zero
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int

	// BufferSize is the per-subscriber event buffer for the observability
	// streams.
	BufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Parallelism: 1,
		Timeout:     30 * time.Second,
		BufferSize:  stream.DefaultBufferSize,
	}
}
