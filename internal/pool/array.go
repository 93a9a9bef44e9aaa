package pool

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/entigo/internal/column"
	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/resource"
	"github.com/hupe1980/entigo/internal/typereg"
	"github.com/hupe1980/entigo/model"
)

const minArrayShift = 4

type arrayKey struct {
	id    model.TypeID
	shift int
}

// ArrayPool hands out typed element arrays keyed by component type. It is safe for concurrent use.
type ArrayPool struct {
	ctrl       *resource.Controller
	onPressure PressureFunc

	pools       sync.Map // arrayKey -> *sync.Pool
	outstanding atomic.Int64
}

// NewArrayPool creates an array pool. ctrl and onPressure may be nil.
func NewArrayPool(ctrl *resource.Controller, onPressure PressureFunc) *ArrayPool {
	return &ArrayPool{ctrl: ctrl, onPressure: onPressure}
}

// Rent returns a zeroed array of info's type with at least minLen slots.
func (p *ArrayPool) Rent(info typereg.Info, minLen int) column.Array {
	shift := classShift(max(minLen, 1), minArrayShift)

	var arr column.Array
	if v := p.bucket(info.ID, shift).Get(); v != nil {
		arr = v.(column.Array)
	} else {
		arr = info.NewArray(1 << shift)
	}

	p.outstanding.Add(1)

	if err := p.ctrl.AcquireMemory(arrayBytes(info, arr.Len())); err != nil && p.onPressure != nil {
		p.onPressure(p.ctrl.MemoryUsage(), p.ctrl.MemoryLimit())
	}

	return arr
}

// Return clears arr and gives it back to the pool. arr must come from Rent
// with the same info and be returned exactly once.
func (p *ArrayPool) Return(info typereg.Info, arr column.Array) {
	if arr == nil {
		return
	}

	n := arr.Len()
	p.ctrl.ReleaseMemory(arrayBytes(info, n))
	left := p.outstanding.Add(-1)
	debug.Assert(left >= 0, "array pool: more returns than rents")

	if n == 0 || n&(n-1) != 0 {
		return
	}

	arr.ClearRange(0, n)
	p.bucket(info.ID, classShift(n, minArrayShift)).Put(arr)
}

// Outstanding returns the number of rented arrays not yet returned.
func (p *ArrayPool) Outstanding() int64 {
	return p.outstanding.Load()
}

func (p *ArrayPool) bucket(id model.TypeID, shift int) *sync.Pool {
	key := arrayKey{id: id, shift: shift}
	if v, ok := p.pools.Load(key); ok {
		return v.(*sync.Pool)
	}

	v, _ := p.pools.LoadOrStore(key, &sync.Pool{})

	return v.(*sync.Pool)
}

func arrayBytes(info typereg.Info, n int) int64 {
	return int64(max(info.Size(), 1)) * int64(n)
}
