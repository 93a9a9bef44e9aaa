package archetype

import (
	"unsafe"

	"github.com/hupe1980/entigo/internal/column"
	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/pool"
	"github.com/hupe1980/entigo/model"
)

// Chunk is a fixed-capacity block of rows. Rows [0, Count()) are always populated.
type Chunk struct {
	layout   *Layout
	buf      []byte
	arrays   []column.Array
	entities []uint32
	count    int
	disposed bool
}

func newChunk(layout *Layout, buf []byte, arrays *pool.ArrayPool) *Chunk {
	c := &Chunk{
		layout:   layout,
		buf:      buf,
		arrays:   make([]column.Array, len(layout.Indirect)),
		entities: make([]uint32, layout.Capacity),
	}

	for i, info := range layout.Indirect {
		c.arrays[i] = arrays.Rent(info, layout.Capacity)
	}

	return c
}

// Layout returns the storage plan of the chunk.
func (c *Chunk) Layout() *Layout { return c.layout }

// Count returns the number of occupied rows.
func (c *Chunk) Count() int { return c.count }

// Capacity returns the maximum number of rows.
func (c *Chunk) Capacity() int { return c.layout.Capacity }

// IsFull reports whether no row is free.
func (c *Chunk) IsFull() bool { return c.count == c.layout.Capacity }

// IsEmpty reports whether no row is occupied.
func (c *Chunk) IsEmpty() bool { return c.count == 0 }

// Has reports whether the chunk stores the type.
func (c *Chunk) Has(id model.TypeID) bool { return c.layout.Has(id) }

// Entities returns the entity ids of the occupied rows.
func (c *Chunk) Entities() []uint32 { return c.entities[:c.count] }

// Entity returns the entity id stored at row.
func (c *Chunk) Entity(row int) uint32 { return c.entities[row] }

// RawInline returns the bytes of one inline value, or nil when the type is
// absent, zero-sized or indirect.
func (c *Chunk) RawInline(id model.TypeID, row int) []byte {
	size, off, ok := c.inline(id)
	if !ok {
		return nil
	}

	start := off + row*size
	return c.buf[start : start+size]
}

// Array returns the element array of an indirect type, or nil when the type is
// absent or not stored indirectly.
func (c *Chunk) Array(id model.TypeID) column.Array {
	idx, ok := c.layout.Column(id)
	if !ok {
		return nil
	}

	return c.arrays[idx]
}

// InlineColumn returns the occupied rows of an inline column reinterpreted as
// []T. It returns nil when the type is absent, zero-sized, or the chunk is empty.
// T must be the registered type for id.
func InlineColumn[T any](c *Chunk, id model.TypeID) []T {
	size, off, ok := c.inline(id)
	if !ok || c.count == 0 {
		return nil
	}

	debug.Assert(int(unsafe.Sizeof(*new(T))) == size, "inline column %d read with a type of different size", id)

	return unsafe.Slice((*T)(unsafe.Pointer(&c.buf[off])), c.count) //nolint:gosec // column bytes hold pointer-free T values
}

// IndirectColumn returns the occupied rows of an indirect column. It returns
// nil when the type is absent or the chunk is empty.
func IndirectColumn[T any](c *Chunk, id model.TypeID) []T {
	arr := c.Array(id)
	if arr == nil || c.count == 0 {
		return nil
	}

	data, ok := column.TryOf[T](arr)
	if !ok {
		return nil
	}

	return data[:c.count]
}

// RemoveAt removes row by moving the last row into it. It returns the id of
// the entity that was moved, or model.NoID when row was the last row.
func (c *Chunk) RemoveAt(row int) uint32 {
	debug.Assert(row >= 0 && row < c.count, "remove of row %d in chunk with %d rows", row, c.count)

	last := c.count - 1
	moved := model.NoID

	if row != last {
		for _, info := range c.layout.Inline {
			off := int(c.layout.lookup[info.ID].index)
			size := info.Size()
			copy(c.buf[off+row*size:off+(row+1)*size], c.buf[off+last*size:off+(last+1)*size])
		}

		for _, arr := range c.arrays {
			arr.CopyElem(last, arr, row)
		}

		moved = c.entities[last]
		c.entities[row] = moved
	}

	c.clearRows(last, 1)
	c.entities[last] = 0
	c.count--

	return moved
}

// CopyRowTo copies every component present in both chunks from srcRow to
// dst's dstRow. Components the destination lacks are dropped.
func (c *Chunk) CopyRowTo(srcRow int, dst *Chunk, dstRow int) {
	for _, info := range c.layout.Inline {
		if to := dst.RawInline(info.ID, dstRow); to != nil {
			copy(to, c.RawInline(info.ID, srcRow))
		}
	}

	for i, info := range c.layout.Indirect {
		if to := dst.Array(info.ID); to != nil {
			c.arrays[i].CopyElem(srcRow, to, dstRow)
		}
	}
}

// Clear zeroes all occupied rows and empties the chunk.
func (c *Chunk) Clear() {
	c.clearRows(0, c.count)
	clear(c.entities[:c.count])
	c.count = 0
}

func (c *Chunk) push(entity uint32) int {
	debug.Assert(c.count < c.layout.Capacity, "push into full chunk")

	row := c.count
	c.entities[row] = entity
	c.count++

	return row
}

func (c *Chunk) clearRows(from, n int) {
	if n == 0 {
		return
	}

	for _, info := range c.layout.Inline {
		off := int(c.layout.lookup[info.ID].index)
		size := info.Size()
		clear(c.buf[off+from*size : off+(from+n)*size])
	}

	for _, arr := range c.arrays {
		arr.ClearRange(from, n)
	}
}

// dispose returns the chunk's storage to the pools. The chunk must be empty.
func (c *Chunk) dispose(buffers *pool.BufferPool, arrays *pool.ArrayPool) {
	debug.Assert(c.count == 0, "dispose of chunk with %d rows", c.count)
	debug.Assert(!c.disposed, "chunk disposed twice")

	if c.disposed {
		return
	}

	buffers.Return(c.buf)

	for i, info := range c.layout.Indirect {
		arrays.Return(info, c.arrays[i])
		c.arrays[i] = nil
	}

	c.buf = nil
	c.disposed = true
}

func (c *Chunk) inline(id model.TypeID) (size, off int, ok bool) {
	s := c.layout.slot(id)
	if s.kind != inline {
		return 0, 0, false
	}

	return int(s.size), int(s.index), true
}
