package archetype

import (
	"iter"

	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/internal/conv"
	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/pool"
	"github.com/hupe1980/entigo/internal/typereg"
	"github.com/hupe1980/entigo/model"
)

// Config carries the storage collaborators shared by all archetypes of a world.
type Config struct {
	// BufferBudget is the inline byte budget per chunk. Defaults to DefaultBufferBudget.
	BufferBudget int

	Buffers *pool.BufferPool
	Arrays  *pool.ArrayPool

	// ChunkCreated and ChunkDestroyed, if set, observe chunk lifecycle.
	ChunkCreated   func(archetype, chunk uint32)
	ChunkDestroyed func(archetype, chunk uint32)
}

type entry struct {
	id    uint32
	chunk *Chunk

	// available-list links, by chunk id
	prev, next uint32
	available  bool
}

// Archetype owns the chunks of one component signature.
type Archetype struct {
	id        uint32
	signature *bitset.BitSet
	layout    *Layout
	cfg       Config

	entries []entry
	// index maps a chunk id to its slot in entries. For a retired id it holds
	// the next retired id instead.
	index    []uint32
	freeHead uint32

	availHead, availTail uint32

	count int
}

// New creates an archetype for signature. The signature is copied.
func New(id uint32, signature *bitset.BitSet, reg *typereg.Registry, cfg Config) *Archetype {
	if cfg.Buffers == nil {
		cfg.Buffers = pool.NewBufferPool(nil, nil)
	}

	if cfg.Arrays == nil {
		cfg.Arrays = pool.NewArrayPool(nil, nil)
	}

	return &Archetype{
		id:        id,
		signature: signature.Clone(),
		layout:    NewLayout(signature, reg, cfg.BufferBudget),
		cfg:       cfg,
		freeHead:  model.NoID,
		availHead: model.NoID,
		availTail: model.NoID,
	}
}

// ID returns the archetype id.
func (a *Archetype) ID() uint32 { return a.id }

// Signature returns the archetype's signature. Callers must not modify it.
func (a *Archetype) Signature() *bitset.BitSet { return a.signature }

// Layout returns the chunk layout.
func (a *Archetype) Layout() *Layout { return a.layout }

// Has reports whether the signature contains the type.
func (a *Archetype) Has(id model.TypeID) bool { return a.layout.Has(id) }

// Capacity returns the rows per chunk.
func (a *Archetype) Capacity() int { return a.layout.Capacity }

// Len returns the number of entities stored.
func (a *Archetype) Len() int { return a.count }

// ChunkCount returns the number of live chunks.
func (a *Archetype) ChunkCount() int { return len(a.entries) }

// Chunk returns the chunk with the given id.
func (a *Archetype) Chunk(id uint32) (*Chunk, bool) {
	e := a.entry(id)
	if e == nil {
		return nil, false
	}

	return e.chunk, true
}

// Chunks iterates live chunks in storage order.
func (a *Archetype) Chunks() iter.Seq2[uint32, *Chunk] {
	return func(yield func(uint32, *Chunk) bool) {
		for i := range a.entries {
			if !yield(a.entries[i].id, a.entries[i].chunk) {
				return
			}
		}
	}
}

// AvailableChunk returns the tail of the available list.
func (a *Archetype) AvailableChunk() (uint32, *Chunk, bool) {
	if a.availTail == model.NoID {
		return 0, nil, false
	}

	return a.availTail, a.mustEntry(a.availTail).chunk, true
}

// CreateEntity appends entity to an available chunk, creating one if needed.
func (a *Archetype) CreateEntity(entity uint32) (chunkID uint32, chunk *Chunk, row int) {
	chunkID, chunk, ok := a.AvailableChunk()
	if !ok {
		chunkID, chunk = a.CreateChunk()
	}

	row = chunk.push(entity)
	a.count++

	if chunk.IsFull() {
		a.unlink(chunkID)
	}

	return chunkID, chunk, row
}

// DestroyRow removes a row and compacts its chunk. It returns the id of the
// entity that compaction moved into row, or model.NoID if none moved.
func (a *Archetype) DestroyRow(chunkID uint32, row int) uint32 {
	e := a.mustEntry(chunkID)

	moved := e.chunk.RemoveAt(row)
	a.count--

	if !e.available && readmit(e.chunk.Count(), e.chunk.Capacity()) {
		a.link(chunkID)
	}

	return moved
}

// readmit reports whether a chunk that was full has drained to the low-water mark.
func readmit(count, capacity int) bool {
	return count*3 <= capacity*2
}

// CopyEntity moves the row of entity from src to dst. Components missing in
// dst are dropped; components new in dst are zero. It returns the new location
// and the id of the entity that compaction moved within the source chunk, or
// model.NoID.
func CopyEntity(src *Archetype, srcChunkID uint32, srcRow int, dst *Archetype) (dstChunkID uint32, dstChunk *Chunk, dstRow int, moved uint32) {
	debug.Assert(src != dst, "copy of entity into its own archetype")

	srcChunk := src.mustEntry(srcChunkID).chunk
	entity := srcChunk.Entity(srcRow)

	dstChunkID, dstChunk, dstRow = dst.CreateEntity(entity)
	srcChunk.CopyRowTo(srcRow, dstChunk, dstRow)
	moved = src.DestroyRow(srcChunkID, srcRow)

	return dstChunkID, dstChunk, dstRow, moved
}

// CreateChunk allocates an empty chunk and puts it on the available list.
func (a *Archetype) CreateChunk() (uint32, *Chunk) {
	chunk := newChunk(a.layout, a.cfg.Buffers.Rent(a.layout.BufferSize), a.cfg.Arrays)

	slot := conv.MustUint32(len(a.entries))

	var id uint32
	if a.freeHead != model.NoID {
		id = a.freeHead
		a.freeHead = a.index[id]
		a.index[id] = slot
	} else {
		id = conv.MustUint32(len(a.index))
		a.index = append(a.index, slot)
	}

	a.entries = append(a.entries, entry{id: id, chunk: chunk, prev: model.NoID, next: model.NoID})
	a.link(id)

	if a.cfg.ChunkCreated != nil {
		a.cfg.ChunkCreated(a.id, id)
	}

	return id, chunk
}

// DestroyChunk disposes an empty chunk and retires its id.
func (a *Archetype) DestroyChunk(id uint32) {
	e := a.mustEntry(id)
	debug.Assert(e.chunk.IsEmpty(), "destroy of chunk %d with %d rows", id, e.chunk.Count())

	if e.available {
		a.unlink(id)
	}

	e.chunk.dispose(a.cfg.Buffers, a.cfg.Arrays)

	slot := a.index[id]
	last := uint32(len(a.entries) - 1) //nolint:gosec // non-empty

	if slot != last {
		a.entries[slot] = a.entries[last]
		a.index[a.entries[slot].id] = slot
	}

	a.entries[last] = entry{}
	a.entries = a.entries[:last]

	a.index[id] = a.freeHead
	a.freeHead = id

	if a.cfg.ChunkDestroyed != nil {
		a.cfg.ChunkDestroyed(a.id, id)
	}
}

// ReleaseEmptyChunks destroys empty chunks beyond the first keep found from
// the back of storage. It returns the number destroyed.
func (a *Archetype) ReleaseEmptyChunks(keep int) int {
	released := 0
	kept := 0

	for i := len(a.entries) - 1; i >= 0; i-- {
		if !a.entries[i].chunk.IsEmpty() {
			continue
		}

		if kept < keep {
			kept++
			continue
		}

		a.DestroyChunk(a.entries[i].id)
		released++
	}

	return released
}

// Clear empties and disposes every chunk.
func (a *Archetype) Clear() {
	for i := range a.entries {
		c := a.entries[i].chunk
		c.Clear()
		c.dispose(a.cfg.Buffers, a.cfg.Arrays)

		if a.cfg.ChunkDestroyed != nil {
			a.cfg.ChunkDestroyed(a.id, a.entries[i].id)
		}
	}

	clear(a.entries)
	a.entries = a.entries[:0]
	a.index = a.index[:0]
	a.freeHead = model.NoID
	a.availHead = model.NoID
	a.availTail = model.NoID
	a.count = 0
}

func (a *Archetype) entry(id uint32) *entry {
	if int(id) >= len(a.index) {
		return nil
	}

	slot := a.index[id]
	if int(slot) >= len(a.entries) || a.entries[slot].id != id {
		return nil
	}

	return &a.entries[slot]
}

func (a *Archetype) mustEntry(id uint32) *entry {
	e := a.entry(id)
	if e == nil {
		panic("archetype: unknown chunk id")
	}

	return e
}

// link appends a chunk to the tail of the available list.
func (a *Archetype) link(id uint32) {
	e := a.mustEntry(id)
	debug.Assert(!e.available, "chunk %d already available", id)

	e.prev = a.availTail
	e.next = model.NoID
	e.available = true

	if a.availTail != model.NoID {
		a.mustEntry(a.availTail).next = id
	} else {
		a.availHead = id
	}

	a.availTail = id
}

func (a *Archetype) unlink(id uint32) {
	e := a.mustEntry(id)
	debug.Assert(e.available, "chunk %d not available", id)

	if e.prev != model.NoID {
		a.mustEntry(e.prev).next = e.next
	} else {
		a.availHead = e.next
	}

	if e.next != model.NoID {
		a.mustEntry(e.next).prev = e.prev
	} else {
		a.availTail = e.prev
	}

	e.prev, e.next = model.NoID, model.NoID
	e.available = false
}
