package archetype

import (
	"unsafe"

	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/mem"
	"github.com/hupe1980/entigo/internal/typereg"
	"github.com/hupe1980/entigo/model"
)

// DefaultBufferBudget is the byte budget of one chunk's inline buffer.
const DefaultBufferBudget = 16 * 1024

type storage uint8

const (
	absent storage = iota
	tag
	inline
	indirect
)

// slot is the per-type entry of a layout's lookup table.
type slot struct {
	kind storage
	// index is the byte offset of an inline column or the index of an indirect column.
	index int32
	size  int32
}

// Layout is the storage plan shared by all chunks of one archetype.
type Layout struct {
	// Types lists every component type of the signature in id order.
	Types []typereg.Info
	// Inline lists the inline types that occupy bytes.
	Inline []typereg.Info
	// Indirect lists the types stored in element arrays, in column order.
	Indirect []typereg.Info

	// Capacity is the number of rows per chunk.
	Capacity int
	// BufferSize is the number of bytes the inline columns occupy.
	BufferSize int

	// lookup is indexed by type id and sized to the registry capacity.
	lookup []slot
}

// NewLayout computes the layout for signature. Bits beyond the registered
// types are ignored.
func NewLayout(signature *bitset.BitSet, reg *typereg.Registry, budget int) *Layout {
	if budget <= 0 {
		budget = DefaultBufferBudget
	}

	l := &Layout{lookup: make([]slot, reg.Cap())}

	registered := reg.Len()

	var totalSize, totalAlign int

	for id := range signature.All() {
		if id >= registered {
			break
		}

		info := reg.MustInfo(model.TypeID(id)) //nolint:gosec // id < registry capacity
		l.Types = append(l.Types, info)

		switch {
		case info.ZeroSized():
			l.lookup[id] = slot{kind: tag}
		case info.Inline():
			debug.Assert(info.Align() <= mem.Alignment, "type %s aligns beyond the buffer alignment", info)
			l.Inline = append(l.Inline, info)
			totalSize += info.Size()
			totalAlign += info.Align()
		default:
			l.lookup[id] = slot{kind: indirect, index: int32(len(l.Indirect))} //nolint:gosec // bounded by registry capacity
			l.Indirect = append(l.Indirect, info)
		}
	}

	if totalSize == 0 {
		l.Capacity = max(budget/int(unsafe.Sizeof(uintptr(0))), 1)
		return l
	}

	l.Capacity = max((budget-totalAlign)/totalSize, 1)

	offset := 0
	for _, info := range l.Inline {
		offset = mem.AlignUp(offset, info.Align())
		l.lookup[info.ID] = slot{kind: inline, index: int32(offset), size: int32(info.Size())} //nolint:gosec // bounded by buffer budget
		offset += info.Size() * l.Capacity
	}

	l.BufferSize = offset

	return l
}

// Has reports whether the layout contains the type.
func (l *Layout) Has(id model.TypeID) bool {
	return int(id) < len(l.lookup) && l.lookup[id].kind != absent
}

// Offset returns the byte offset of an inline, non-zero-sized column.
func (l *Layout) Offset(id model.TypeID) (int, bool) {
	if int(id) >= len(l.lookup) || l.lookup[id].kind != inline {
		return 0, false
	}

	return int(l.lookup[id].index), true
}

// Column returns the column index of an indirect type.
func (l *Layout) Column(id model.TypeID) (int, bool) {
	if int(id) >= len(l.lookup) || l.lookup[id].kind != indirect {
		return 0, false
	}

	return int(l.lookup[id].index), true
}

func (l *Layout) slot(id model.TypeID) slot {
	if int(id) >= len(l.lookup) {
		return slot{}
	}

	return l.lookup[id]
}
