package pool

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/mem"
	"github.com/hupe1980/entigo/internal/resource"
)

const (
	minBufferShift = 6  // 64 B
	maxBufferShift = 26 // 64 MiB
)

// PressureFunc is called when a rent leaves usage above the soft memory limit.
type PressureFunc func(used, limit int64)

// BufferPool hands out cache-line aligned byte buffers. It is safe for concurrent use.
type BufferPool struct {
	ctrl       *resource.Controller
	onPressure PressureFunc

	classes     [maxBufferShift + 1]sync.Pool
	outstanding atomic.Int64
}

// NewBufferPool creates a buffer pool. ctrl and onPressure may be nil.
func NewBufferPool(ctrl *resource.Controller, onPressure PressureFunc) *BufferPool {
	return &BufferPool{ctrl: ctrl, onPressure: onPressure}
}

// Rent returns a zeroed buffer of length size. Its capacity is the size class.
func (p *BufferPool) Rent(size int) []byte {
	if size <= 0 {
		return nil
	}

	shift := classShift(size, minBufferShift)
	if shift > maxBufferShift {
		buf := mem.AllocAligned(size)
		p.account(int64(cap(buf)))

		return buf
	}

	var buf []byte
	if v := p.classes[shift].Get(); v != nil {
		buf = *(v.(*[]byte))
	} else {
		buf = mem.AllocAligned(1 << shift)
	}

	p.account(int64(cap(buf)))

	return buf[:size]
}

// Return gives buf back to the pool. buf must come from Rent and be returned exactly once.
func (p *BufferPool) Return(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}

	p.ctrl.ReleaseMemory(int64(c))
	n := p.outstanding.Add(-1)
	debug.Assert(n >= 0, "buffer pool: more returns than rents")

	shift := bits.TrailingZeros(uint(c))
	if c&(c-1) != 0 || shift < minBufferShift || shift > maxBufferShift {
		return
	}

	buf = buf[:c]
	clear(buf)
	p.classes[shift].Put(&buf)
}

// Outstanding returns the number of rented buffers not yet returned.
func (p *BufferPool) Outstanding() int64 {
	return p.outstanding.Load()
}

func (p *BufferPool) account(bytes int64) {
	p.outstanding.Add(1)

	if err := p.ctrl.AcquireMemory(bytes); err != nil && p.onPressure != nil {
		p.onPressure(p.ctrl.MemoryUsage(), p.ctrl.MemoryLimit())
	}
}

// classShift returns the smallest shift >= floor with 1<<shift >= n.
func classShift(n, floor int) int {
	return max(bits.Len(uint(n-1)), floor)
}
