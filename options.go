package queueplus

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/egyleader/queue-plus/middleware"
)

// Option configures a Queue. Options are shared across all Queue type
// instantiations, so they operate on the element-independent settings.
type Option func(*settings)

// settings collects everything New needs before the generic Queue is built.
type settings struct {
	cfg            Config
	logger         *slog.Logger
	onDrained      func(context.Context)
	mws            []middleware.Middleware
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func defaultSettings() settings {
	return settings{
		cfg:    DefaultConfig(),
		logger: slog.Default(),
	}
}

// WithConfig replaces the whole configuration. Later options still apply
// on top of it.
func WithConfig(cfg Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithParallelism sets the maximum number of concurrently executing tasks.
func WithParallelism(n int) Option {
	return func(s *settings) { s.cfg.Parallelism = n }
}

// WithTimeout sets the default per-task execution timeout.
// Zero disables the default timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Timeout = d }
}

// WithDispatchDelay sets a pause observed after each task completes before
// the next dispatch attempt.
func WithDispatchDelay(d time.Duration) Option {
	return func(s *settings) { s.cfg.DispatchDelay = d }
}

// WithRateLimit caps sustained task starts per second using a token-bucket
// limiter. burst allows short spikes above the sustained rate.
func WithRateLimit(limit float64, burst int) Option {
	return func(s *settings) {
		s.cfg.RateLimit = limit
		s.cfg.RateBurst = burst
	}
}

// WithBufferSize sets the per-subscriber event buffer for the
// observability streams.
func WithBufferSize(n int) Option {
	return func(s *settings) { s.cfg.BufferSize = n }
}

// WithLogger sets the structured logger for the queue.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithOnDrained sets a callback invoked each time the queue drains
// (pending and active both empty). Outstanding Finished waiters are
// resolved only after the callback returns.
func WithOnDrained(fn func(context.Context)) Option {
	return func(s *settings) { s.onDrained = fn }
}

// WithMiddleware appends middleware to the queue's execution chain, after
// the built-in recover/tracing/metrics/logging stack.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *settings) { s.mws = append(s.mws, mws...) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the queue.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) { s.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the queue.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *settings) { s.meterProvider = mp }
}
