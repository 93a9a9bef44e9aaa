package entigo

import (
	"log/slog"

	"github.com/hupe1980/entigo/internal/archetype"
	"github.com/hupe1980/entigo/internal/typereg"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	bufferBudget     int
	registryCapacity int
	memoryLimit      int64
	workers          int
}

// Option configures a World.
type Option func(*options)

// WithBufferBudget sets the inline byte budget of one chunk. Archetypes
// derive their rows per chunk from it: with inline components the capacity
// is (budget - sum of alignments) / sum of sizes, otherwise budget divided by
// the pointer size.
//
// Defaults to 16 KiB. Non-positive values keep the default.
func WithBufferBudget(bytes int) Option {
	return func(o *options) {
		if bytes > 0 {
			o.bufferBudget = bytes
		}
	}
}

// WithRegistryCapacity sets how many component types the World accepts.
// Every component mask has one bit per possible type, so the capacity is
// fixed at construction. Defaults to 256.
func WithRegistryCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.registryCapacity = n
		}
	}
}

// WithMemoryLimit sets a soft limit for pooled chunk and staging storage.
// Exceeding it never fails an operation; it is logged and reported to the
// metrics collector. 0 disables the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithParallelism bounds the number of goroutines ForEachChunkParallel runs.
// Defaults to GOMAXPROCS.
func WithParallelism(workers int) Option {
	return func(o *options) {
		o.workers = workers
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &entigo.BasicMetricsCollector{}
//	w := entigo.New(entigo.WithMetricsCollector(metrics))
//	// ... flush a few times ...
//	stats := metrics.GetStats()
//	fmt.Printf("Flushes: %d, Avg latency: %dns\n", stats.FlushCount, stats.FlushAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := entigo.NewJSONLogger(slog.LevelDebug)
//	w := entigo.New(entigo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		bufferBudget:     archetype.DefaultBufferBudget,
		registryCapacity: typereg.DefaultCapacity,
	}

	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
