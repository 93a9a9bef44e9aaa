package cmdbuf

import (
	"github.com/hupe1980/entigo/internal/column"
	"github.com/hupe1980/entigo/internal/pool"
	"github.com/hupe1980/entigo/internal/typereg"
)

const initialColumnLen = 16

// stagedColumn holds the values staged for one component type.
type stagedColumn struct {
	info  typereg.Info
	count int

	// inline
	buf []byte
	// indirect
	arr column.Array
}

func (c *stagedColumn) appendBytes(buffers *pool.BufferPool, value []byte) int32 {
	size := c.info.Size()

	if need := (c.count + 1) * size; need > len(c.buf) {
		grown := buffers.Rent(max(need, 2*len(c.buf), initialColumnLen*size))
		copy(grown, c.buf[:c.count*size])
		buffers.Return(c.buf)
		c.buf = grown
	}

	copy(c.buf[c.count*size:(c.count+1)*size], value)
	c.count++

	return int32(c.count - 1) //nolint:gosec // staged counts stay far below MaxInt32
}

func (c *stagedColumn) bytes(index int32) []byte {
	size := c.info.Size()
	start := int(index) * size

	return c.buf[start : start+size]
}

// reserve makes room for one more indirect value and returns its slot.
func (c *stagedColumn) reserve(arrays *pool.ArrayPool) int {
	if c.arr == nil || c.count == c.arr.Len() {
		grown := arrays.Rent(c.info, max(2*c.count, initialColumnLen))
		if c.arr != nil {
			c.arr.CopyRange(grown, c.count)
			arrays.Return(c.info, c.arr)
		}

		c.arr = grown
	}

	c.count++

	return c.count - 1
}

// reset forgets staged values but keeps the storage rented.
func (c *stagedColumn) reset() {
	if c.arr != nil {
		c.arr.ClearRange(0, c.count)
	}

	c.count = 0
}

func (c *stagedColumn) release(buffers *pool.BufferPool, arrays *pool.ArrayPool) {
	if c.buf != nil {
		buffers.Return(c.buf)
		c.buf = nil
	}

	if c.arr != nil {
		arrays.Return(c.info, c.arr)
		c.arr = nil
	}

	c.count = 0
}
