package entigo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Chunk and memory callbacks may fire from producer goroutines and from the
// flush coordinator, so implementations must be safe for concurrent use.
type MetricsCollector interface {
	// RecordFlush is called after each flush with the number of destroyed,
	// created and updated entities. err is nil if every command applied.
	RecordFlush(destroyed, created, updated int, duration time.Duration, err error)

	// RecordArchetypeCreated is called when a new component signature gets storage.
	RecordArchetypeCreated()

	// RecordChunkAllocated is called when an archetype allocates a chunk.
	RecordChunkAllocated()

	// RecordChunkReleased is called when a chunk's storage goes back to the pools.
	RecordChunkReleased()

	// RecordMemoryPressure is called when pooled storage exceeds the soft limit.
	RecordMemoryPressure(used, limit int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFlush(int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordArchetypeCreated()                         {}
func (NoopMetricsCollector) RecordChunkAllocated()                           {}
func (NoopMetricsCollector) RecordChunkReleased()                            {}
func (NoopMetricsCollector) RecordMemoryPressure(int64, int64)               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	FlushCount       atomic.Int64
	FlushErrors      atomic.Int64
	FlushTotalNanos  atomic.Int64
	Destroyed        atomic.Int64
	Created          atomic.Int64
	Updated          atomic.Int64
	Archetypes       atomic.Int64
	ChunksAllocated  atomic.Int64
	ChunksReleased   atomic.Int64
	PressureEvents   atomic.Int64
	LastPressureUsed atomic.Int64
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(destroyed, created, updated int, duration time.Duration, err error) {
	b.FlushCount.Add(1)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
	b.Destroyed.Add(int64(destroyed))
	b.Created.Add(int64(created))
	b.Updated.Add(int64(updated))

	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordArchetypeCreated implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchetypeCreated() {
	b.Archetypes.Add(1)
}

// RecordChunkAllocated implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkAllocated() {
	b.ChunksAllocated.Add(1)
}

// RecordChunkReleased implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunkReleased() {
	b.ChunksReleased.Add(1)
}

// RecordMemoryPressure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMemoryPressure(used, _ int64) {
	b.PressureEvents.Add(1)
	b.LastPressureUsed.Store(used)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FlushCount:      b.FlushCount.Load(),
		FlushErrors:     b.FlushErrors.Load(),
		FlushAvgNanos:   b.getAvgFlushNanos(),
		Destroyed:       b.Destroyed.Load(),
		Created:         b.Created.Load(),
		Updated:         b.Updated.Load(),
		Archetypes:      b.Archetypes.Load(),
		ChunksAllocated: b.ChunksAllocated.Load(),
		ChunksReleased:  b.ChunksReleased.Load(),
		LiveChunks:      b.ChunksAllocated.Load() - b.ChunksReleased.Load(),
		PressureEvents:  b.PressureEvents.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFlushNanos() int64 {
	count := b.FlushCount.Load()
	if count == 0 {
		return 0
	}

	return b.FlushTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FlushCount      int64
	FlushErrors     int64
	FlushAvgNanos   int64
	Destroyed       int64
	Created         int64
	Updated         int64
	Archetypes      int64
	ChunksAllocated int64
	ChunksReleased  int64
	LiveChunks      int64
	PressureEvents  int64
}
