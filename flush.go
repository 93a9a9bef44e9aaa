package entigo

import (
	"context"
	"errors"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/entigo/internal/cmdbuf"
)

// CreatedEntity pairs a future with the entity a flush created for it.
type CreatedEntity struct {
	Future FutureEntity
	Entity Entity
}

// FlushResult summarizes one flush.
type FlushResult struct {
	Destroyed int
	Created   []CreatedEntity
	Updated   int
	// Skipped counts commands that could not be applied; see the returned error.
	Skipped           int
	ArchetypesCreated int
	ChunksReleased    int
	Duration          time.Duration
}

// Resolve returns the entity created for f.
func (r FlushResult) Resolve(f FutureEntity) (Entity, bool) {
	for _, c := range r.Created {
		if c.Future == f {
			return c.Entity, true
		}
	}

	return Entity{}, false
}

// Flush applies every command buffer. The phases run in a fixed order:
//
//  1. destroy: queued destructions retire their ids
//  2. create: futures with at least one component become entities
//  3. update: existing entities move to the archetype of their edited signature
//  4. empty chunks beyond one spare per archetype go back to the pools
//  5. every buffer is reset
//  6. every query is refreshed
//
// Commands addressed to stale handles are skipped; their errors are joined into
// the returned error while the rest of the flush proceeds. Destroying the same
// entity from several buffers destroys it once, and updates to an entity
// destroyed in the same flush are dropped.
//
// Flush must not overlap query iteration or staging. Concurrent calls fail with
// ErrFlushInProgress.
func (w *World) Flush(ctx context.Context) (FlushResult, error) {
	if !w.flushing.CompareAndSwap(false, true) {
		return FlushResult{}, ErrFlushInProgress
	}
	defer w.flushing.Store(false)

	start := time.Now()
	buffers := w.producers.All()

	f := flusher{w: w, ctx: ctx, retired: roaring.New()}

	for _, cb := range buffers {
		f.destroy(cb)
	}

	for _, cb := range buffers {
		f.create(cb)
	}

	for _, cb := range buffers {
		f.update(cb)
	}

	for _, a := range w.dir.Archetypes() {
		f.result.ChunksReleased += a.ReleaseEmptyChunks(1)
	}

	for _, cb := range buffers {
		cb.Reset()
	}

	w.refreshQueries()

	f.result.Duration = time.Since(start)
	err := errors.Join(f.errs...)

	w.metrics.RecordFlush(f.result.Destroyed, len(f.result.Created), f.result.Updated, f.result.Duration, err)
	w.logger.LogFlush(ctx, f.result, err)

	return f.result, err
}

type flusher struct {
	w   *World
	ctx context.Context

	// retired holds the ids destroyed in this flush.
	retired *roaring.Bitmap
	result  FlushResult
	errs    []error
}

func (f *flusher) destroy(cb *cmdbuf.CommandBuffer) {
	for _, e := range cb.Destroys() {
		if f.retired.Contains(e.ID) {
			continue
		}

		if err := f.w.dir.DestroyEntity(e); err != nil {
			f.skip(cb, "destroy", e, err)
			continue
		}

		f.retired.Add(e.ID)
		f.result.Destroyed++
	}
}

func (f *flusher) create(cb *cmdbuf.CommandBuffer) {
	creates := cb.Creates()

	for i := range creates {
		c := &creates[i]
		if !c.HasAdds() {
			continue
		}

		f.w.scratch.SetAll(false)
		c.ApplyTo(f.w.scratch)

		archID := f.archetype()

		e, loc, err := f.w.dir.CreateEntity(archID)
		if err != nil {
			f.skip(cb, "create", c.Future, err)
			continue
		}

		cb.WriteValues(&c.Delta, f.w.chunkAt(loc), int(loc.Row))
		f.result.Created = append(f.result.Created, CreatedEntity{Future: c.Future, Entity: e})
	}
}

func (f *flusher) update(cb *cmdbuf.CommandBuffer) {
	updates := cb.Updates()

	for i := range updates {
		u := &updates[i]

		if f.retired.Contains(u.Entity.ID) {
			continue
		}

		info, err := f.w.dir.Info(u.Entity)
		if err != nil {
			f.skip(cb, "update", u.Entity, err)
			continue
		}

		src, _ := f.w.dir.Archetype(info.Archetype)
		f.w.scratch.CopyFrom(src.Signature())
		u.ApplyTo(f.w.scratch)

		loc, err := f.w.dir.MoveEntity(u.Entity, f.archetype())
		if err != nil {
			f.skip(cb, "update", u.Entity, err)
			continue
		}

		cb.WriteValues(&u.Delta, f.w.chunkAt(loc), int(loc.Row))
		f.result.Updated++
	}
}

// archetype resolves the archetype of the scratch signature.
func (f *flusher) archetype() uint32 {
	id, created := f.w.dir.FindOrCreateArchetype(f.w.scratch)
	if created {
		a, _ := f.w.dir.Archetype(id)
		f.w.logger.LogArchetypeCreated(f.ctx, id, len(a.Layout().Types), a.Capacity())
		f.result.ArchetypesCreated++
	}

	return id
}

func (f *flusher) skip(cb *cmdbuf.CommandBuffer, op string, target Target, err error) {
	if e, ok := target.(Entity); ok {
		err = translateError(e, err)
	}

	f.w.logger.WithProducer(cb.Key()).LogSkipped(f.ctx, op, target, err)
	f.errs = append(f.errs, err)
	f.result.Skipped++
}
