package entigo

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/entigo/internal/archetype"
	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/internal/cmdbuf"
	"github.com/hupe1980/entigo/internal/directory"
	"github.com/hupe1980/entigo/internal/pool"
	"github.com/hupe1980/entigo/internal/resource"
	"github.com/hupe1980/entigo/internal/typereg"
	"github.com/hupe1980/entigo/model"
)

type (
	// Entity is a handle to one record.
	Entity = model.Entity
	// FutureEntity names an entity queued for creation in a CommandBuffer.
	FutureEntity = model.FutureEntity
	// Target is an Entity or a FutureEntity.
	Target = model.Target
	// TypeID identifies a registered component type.
	TypeID = model.TypeID
	// ProducerKey selects a CommandBuffer.
	ProducerKey = model.ProducerKey
	// Location is the storage address of a live entity.
	Location = model.Location
	// Layout describes how a component type is stored.
	Layout = typereg.Layout
	// Chunk is a fixed-capacity block of entities sharing one archetype.
	Chunk = archetype.Chunk
)

// World owns the component registry, entity storage and command buffers.
//
// Registration, command buffer lookup and staging are safe for concurrent use.
// Flush, Clear and Close mutate storage and must not overlap reads of chunks
// or staging into command buffers.
type World struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector

	ctrl    *resource.Controller
	buffers *pool.BufferPool
	arrays  *pool.ArrayPool

	registry  *typereg.Registry
	dir       *directory.Directory
	producers *cmdbuf.Registry

	queriesMu sync.Mutex
	queries   []*Query

	flushing atomic.Bool
	scratch  *bitset.BitSet
}

// New creates an empty World.
func New(optFns ...Option) *World {
	opts := applyOptions(optFns)

	w := &World{
		opts:    opts,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
		ctrl: resource.NewController(resource.Config{
			MemoryLimitBytes: opts.memoryLimit,
			MaxWorkers:       int64(opts.workers),
		}),
		registry: typereg.New(opts.registryCapacity),
	}

	w.buffers = pool.NewBufferPool(w.ctrl, w.onPressure)
	w.arrays = pool.NewArrayPool(w.ctrl, w.onPressure)

	w.dir = directory.New(w.registry, archetype.Config{
		BufferBudget:   opts.bufferBudget,
		Buffers:        w.buffers,
		Arrays:         w.arrays,
		ChunkCreated:   func(uint32, uint32) { w.metrics.RecordChunkAllocated() },
		ChunkDestroyed: func(uint32, uint32) { w.metrics.RecordChunkReleased() },
	})
	w.dir.ArchetypeCreated = func(*archetype.Archetype) { w.metrics.RecordArchetypeCreated() }

	w.producers = cmdbuf.NewRegistry(w.buffers, w.arrays)
	w.scratch = bitset.ForTypes(w.registry.Cap())

	return w
}

func (w *World) onPressure(used, limit int64) {
	w.logger.LogMemoryPressure(context.Background(), used, limit)
	w.metrics.RecordMemoryPressure(used, limit)
}

// =============================================================================
// Registration
// =============================================================================

// Register registers T with a layout derived by reflection: pointer-free types
// are stored inline in chunk buffers, all others in typed element arrays.
// Registering a known type returns its existing id.
func Register[T any](w *World) (TypeID, error) {
	info, err := typereg.Register[T](w.registry)
	if err != nil {
		return 0, err
	}

	return info.ID, nil
}

// RegisterLayout registers T with an explicit layout. Inline storage is only
// accepted for pointer-free types whose size matches layout.Size.
func RegisterLayout[T any](w *World, layout Layout) (TypeID, error) {
	info, err := typereg.RegisterLayout[T](w.registry, layout)
	if err != nil {
		return 0, err
	}

	return info.ID, nil
}

// Insert registers T and fails with ErrDuplicateKey if it is already registered.
func Insert[T any](w *World) (TypeID, error) {
	info, err := typereg.Insert[T](w.registry)
	if err != nil {
		return 0, err
	}

	return info.ID, nil
}

// InsertLayout is Insert with an explicit layout.
func InsertLayout[T any](w *World, layout Layout) (TypeID, error) {
	info, err := typereg.InsertLayout[T](w.registry, layout)
	if err != nil {
		return 0, err
	}

	return info.ID, nil
}

// MustRegister is Register that panics on error.
func MustRegister[T any](w *World) TypeID {
	id, err := Register[T](w)
	if err != nil {
		panic(err)
	}

	return id
}

// TypeOf returns the id of a registered type.
func TypeOf[T any](w *World) (TypeID, error) {
	info, err := lookup[T](w)
	if err != nil {
		return 0, err
	}

	return info.ID, nil
}

func lookup[T any](w *World) (typereg.Info, error) {
	info, ok := typereg.LookupOf[T](w.registry)
	if !ok {
		return typereg.Info{}, &UnregisteredTypeError{Type: reflect.TypeFor[T]()}
	}

	return info, nil
}

// =============================================================================
// Entities
// =============================================================================

// IsValid reports whether e refers to a live entity.
func (w *World) IsValid(e Entity) bool {
	return w.dir.IsValid(e)
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.dir.Len()
}

// Locate returns where a live entity is stored.
func (w *World) Locate(e Entity) (Location, error) {
	loc, err := w.dir.Locate(e)
	return loc, translateError(e, err)
}

// EntityAt returns the handle of the entity stored at row of c.
func (w *World) EntityAt(c *Chunk, row int) Entity {
	return w.dir.Handle(c.Entity(row))
}

// Get returns a copy of e's component T.
func Get[T any](w *World, e Entity) (T, error) {
	var zero T

	info, err := lookup[T](w)
	if err != nil {
		return zero, err
	}

	c, row, err := w.row(e)
	if err != nil {
		return zero, err
	}

	if !c.Has(info.ID) {
		return zero, fmt.Errorf("%w: %s on %s", ErrComponentNotFound, info.Type, e)
	}

	switch {
	case info.ZeroSized():
		return zero, nil
	case info.Inline():
		return archetype.InlineColumn[T](c, info.ID)[row], nil
	default:
		return archetype.IndirectColumn[T](c, info.ID)[row], nil
	}
}

// Has reports whether e has component T.
func Has[T any](w *World, e Entity) (bool, error) {
	info, err := lookup[T](w)
	if err != nil {
		return false, err
	}

	c, _, err := w.row(e)
	if err != nil {
		return false, err
	}

	return c.Has(info.ID), nil
}

func (w *World) row(e Entity) (*Chunk, int, error) {
	loc, err := w.dir.Locate(e)
	if err != nil {
		return nil, 0, translateError(e, err)
	}

	return w.chunkAt(loc), int(loc.Row), nil
}

func (w *World) chunkAt(loc Location) *Chunk {
	a, _ := w.dir.Archetype(loc.Archetype)
	c, _ := a.Chunk(loc.Chunk)

	return c
}

// =============================================================================
// Lifecycle
// =============================================================================

// Stats is a point-in-time summary of a World.
type Stats struct {
	Entities        int
	Archetypes      int
	Chunks          int
	RegisteredTypes int
	Producers       int
	Queries         int
	MemoryUsage     int64
	PeakMemoryUsage int64
	MemoryLimit     int64
}

// Stats returns a snapshot of the World's size. It must not overlap a flush.
func (w *World) Stats() Stats {
	s := Stats{
		Entities:        w.dir.Len(),
		Archetypes:      len(w.dir.Archetypes()),
		RegisteredTypes: w.registry.Len(),
		Producers:       w.producers.Len(),
		MemoryUsage:     w.ctrl.MemoryUsage(),
		PeakMemoryUsage: w.ctrl.PeakMemoryUsage(),
		MemoryLimit:     w.ctrl.MemoryLimit(),
	}

	for _, a := range w.dir.Archetypes() {
		s.Chunks += a.ChunkCount()
	}

	w.queriesMu.Lock()
	s.Queries = len(w.queries)
	w.queriesMu.Unlock()

	return s
}
