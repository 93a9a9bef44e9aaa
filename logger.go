package entigo

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with entigo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithProducer adds a producer field to the logger.
func (l *Logger) WithProducer(key ProducerKey) *Logger {
	return &Logger{
		Logger: l.Logger.With("producer", key),
	}
}

// LogFlush logs the outcome of a flush.
func (l *Logger) LogFlush(ctx context.Context, r FlushResult, err error) {
	if err != nil {
		l.WarnContext(ctx, "flush completed with skipped commands",
			"destroyed", r.Destroyed,
			"created", len(r.Created),
			"updated", r.Updated,
			"skipped", r.Skipped,
			"duration", r.Duration,
			"error", err,
		)

		return
	}

	l.DebugContext(ctx, "flush completed",
		"destroyed", r.Destroyed,
		"created", len(r.Created),
		"updated", r.Updated,
		"archetypes_created", r.ArchetypesCreated,
		"chunks_released", r.ChunksReleased,
		"duration", r.Duration,
	)
}

// LogArchetypeCreated logs the creation of an archetype.
func (l *Logger) LogArchetypeCreated(ctx context.Context, id uint32, types, capacity int) {
	l.DebugContext(ctx, "archetype created",
		"archetype", id,
		"types", types,
		"chunk_capacity", capacity,
	)
}

// LogSkipped logs a command that a flush could not apply.
func (l *Logger) LogSkipped(ctx context.Context, op string, target Target, err error) {
	l.WarnContext(ctx, "command skipped",
		"op", op,
		"target", target,
		"error", err,
	)
}

// LogMemoryPressure logs pooled storage above the soft memory limit.
func (l *Logger) LogMemoryPressure(ctx context.Context, used, limit int64) {
	l.WarnContext(ctx, "memory soft limit exceeded",
		"used_bytes", used,
		"limit_bytes", limit,
	)
}
