package cmdbuf

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/kamstrup/intmap"
	"golang.org/x/sys/cpu"

	"github.com/hupe1980/entigo/internal/archetype"
	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/internal/column"
	"github.com/hupe1980/entigo/internal/debug"
	"github.com/hupe1980/entigo/internal/pool"
	"github.com/hupe1980/entigo/internal/typereg"
	"github.com/hupe1980/entigo/model"
)

var (
	// ErrInvalidFuture is returned for a future entity issued by another
	// buffer or before the buffer's last reset.
	ErrInvalidFuture = errors.New("future entity not issued by this command buffer")

	// ErrInvalidTarget is returned for a nil or unknown command target.
	ErrInvalidTarget = errors.New("invalid command target")
)

const noValue = -1

type opKind uint8

const (
	opAdd opKind = iota + 1
	opRemove
)

type op struct {
	typ   model.TypeID
	kind  opKind
	value int32
}

// Delta is the set of pending component edits of one target. A later edit of
// the same type replaces an earlier one.
type Delta struct {
	ops []op
}

func (d *Delta) set(o op) {
	for i := range d.ops {
		if d.ops[i].typ == o.typ {
			d.ops[i] = o
			return
		}
	}

	d.ops = append(d.ops, o)
}

// HasAdds reports whether the delta adds at least one component.
func (d *Delta) HasAdds() bool {
	for _, o := range d.ops {
		if o.kind == opAdd {
			return true
		}
	}

	return false
}

// Len returns the number of edited types.
func (d *Delta) Len() int { return len(d.ops) }

// ApplyTo sets added types and clears removed types in sig.
func (d *Delta) ApplyTo(sig *bitset.BitSet) {
	for _, o := range d.ops {
		sig.Set(int(o.typ), o.kind == opAdd)
	}
}

// Create is a pending entity creation.
type Create struct {
	Future model.FutureEntity
	Delta
}

// Update is a pending component edit of an existing entity.
type Update struct {
	Entity model.Entity
	Delta
}

// CommandBuffer stages the commands of one producer.
type CommandBuffer struct {
	_ cpu.CacheLinePad

	key        model.ProducerKey
	generation uint32

	buffers *pool.BufferPool
	arrays  *pool.ArrayPool

	creates     []Create
	destroys    []model.Entity
	updates     []Update
	updateIndex *intmap.Map[uint32, int]

	// columns is indexed by type id; nil for types never staged.
	columns []*stagedColumn

	_ cpu.CacheLinePad
}

// New creates an empty command buffer for key.
func New(key model.ProducerKey, buffers *pool.BufferPool, arrays *pool.ArrayPool) *CommandBuffer {
	return &CommandBuffer{
		key:         key,
		buffers:     buffers,
		arrays:      arrays,
		updateIndex: intmap.New[uint32, int](64),
	}
}

// Key returns the producer key.
func (cb *CommandBuffer) Key() model.ProducerKey { return cb.key }

// Generation returns the number of resets so far.
func (cb *CommandBuffer) Generation() uint32 { return cb.generation }

// CreateEntity queues a creation. The entity is only created if at least one
// component is added to the returned future before the flush.
func (cb *CommandBuffer) CreateEntity() model.FutureEntity {
	f := model.FutureEntity{
		Producer:   cb.key,
		Generation: cb.generation,
		Index:      uint32(len(cb.creates)), //nolint:gosec // staged counts stay far below NoID
	}

	if n := len(cb.creates); n < cap(cb.creates) {
		cb.creates = cb.creates[:n+1]
		cb.creates[n].Future = f
		cb.creates[n].ops = cb.creates[n].ops[:0]
	} else {
		cb.creates = append(cb.creates, Create{Future: f})
	}

	return f
}

// DestroyEntity queues a destruction.
func (cb *CommandBuffer) DestroyEntity(e model.Entity) {
	cb.destroys = append(cb.destroys, e)
}

// Add queues adding a component with a value.
func Add[T any](cb *CommandBuffer, target model.Target, info typereg.Info, value T) error {
	debug.Assert(info.Type == reflect.TypeFor[T](), "staged %s with info of %s", reflect.TypeFor[T](), info.Type)

	d, err := cb.delta(target)
	if err != nil {
		return err
	}

	idx := int32(noValue)

	switch {
	case info.ZeroSized():
	case info.Inline():
		raw := unsafe.Slice((*byte)(unsafe.Pointer(&value)), info.Size()) //nolint:gosec // inline types are pointer-free
		idx = cb.column(info).appendBytes(cb.buffers, raw)
	default:
		col := cb.column(info)
		slot := col.reserve(cb.arrays)
		column.Of[T](col.arr)[slot] = value
		idx = int32(slot) //nolint:gosec // staged counts stay far below MaxInt32
	}

	d.set(op{typ: info.ID, kind: opAdd, value: idx})

	return nil
}

// AddZero queues adding a component with its zero value.
func (cb *CommandBuffer) AddZero(target model.Target, info typereg.Info) error {
	d, err := cb.delta(target)
	if err != nil {
		return err
	}

	d.set(op{typ: info.ID, kind: opAdd, value: noValue})

	return nil
}

// Remove queues removing a component. It cancels a pending add of the same type.
func (cb *CommandBuffer) Remove(target model.Target, info typereg.Info) error {
	d, err := cb.delta(target)
	if err != nil {
		return err
	}

	d.set(op{typ: info.ID, kind: opRemove, value: noValue})

	return nil
}

// Creates returns the pending creations in issue order.
func (cb *CommandBuffer) Creates() []Create { return cb.creates }

// Destroys returns the pending destructions in issue order.
func (cb *CommandBuffer) Destroys() []model.Entity { return cb.destroys }

// Updates returns the pending updates in first-touch order.
func (cb *CommandBuffer) Updates() []Update { return cb.updates }

// Len returns the number of pending commands.
func (cb *CommandBuffer) Len() int {
	return len(cb.creates) + len(cb.destroys) + len(cb.updates)
}

// WriteValues copies the staged values of d's adds into row of chunk. Types
// the chunk does not store are skipped.
func (cb *CommandBuffer) WriteValues(d *Delta, chunk *archetype.Chunk, row int) {
	for _, o := range d.ops {
		if o.kind != opAdd {
			continue
		}

		if o.value == noValue {
			cb.zero(o.typ, chunk, row)
			continue
		}

		col := cb.columns[o.typ]

		if col.info.Inline() {
			if dst := chunk.RawInline(o.typ, row); dst != nil {
				copy(dst, col.bytes(o.value))
			}

			continue
		}

		if dst := chunk.Array(o.typ); dst != nil {
			col.arr.CopyElem(int(o.value), dst, row)
		}
	}
}

// Reset drops every pending command and invalidates issued futures. Staged
// column storage stays rented for reuse.
func (cb *CommandBuffer) Reset() {
	cb.generation++

	for i := range cb.creates {
		cb.creates[i].ops = cb.creates[i].ops[:0]
	}

	for i := range cb.updates {
		cb.updates[i].ops = cb.updates[i].ops[:0]
	}

	cb.creates = cb.creates[:0]
	cb.destroys = cb.destroys[:0]
	cb.updates = cb.updates[:0]
	cb.updateIndex.Clear()

	for _, col := range cb.columns {
		if col != nil {
			col.reset()
		}
	}
}

// Release resets the buffer and returns all staged storage to the pools.
func (cb *CommandBuffer) Release() {
	cb.Reset()

	for i, col := range cb.columns {
		if col != nil {
			col.release(cb.buffers, cb.arrays)
			cb.columns[i] = nil
		}
	}
}

func (cb *CommandBuffer) delta(target model.Target) (*Delta, error) {
	switch t := target.(type) {
	case model.Entity:
		if idx, ok := cb.updateIndex.Get(t.ID); ok && cb.updates[idx].Entity == t {
			return &cb.updates[idx].Delta, nil
		}

		n := len(cb.updates)
		if n < cap(cb.updates) {
			cb.updates = cb.updates[:n+1]
			cb.updates[n].Entity = t
			cb.updates[n].ops = cb.updates[n].ops[:0]
		} else {
			cb.updates = append(cb.updates, Update{Entity: t})
		}

		cb.updateIndex.Put(t.ID, n)

		return &cb.updates[n].Delta, nil
	case model.FutureEntity:
		if t.Producer != cb.key || t.Generation != cb.generation || int(t.Index) >= len(cb.creates) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFuture, t)
		}

		return &cb.creates[t.Index].Delta, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidTarget, target)
	}
}

func (cb *CommandBuffer) column(info typereg.Info) *stagedColumn {
	if int(info.ID) >= len(cb.columns) {
		grown := make([]*stagedColumn, int(info.ID)+1, max(int(info.ID)+1, 2*len(cb.columns)))
		copy(grown, cb.columns)
		cb.columns = grown
	}

	col := cb.columns[info.ID]
	if col == nil {
		col = &stagedColumn{info: info}
		cb.columns[info.ID] = col
	}

	return col
}

// zero clears the component at row, for adds without a staged value.
func (cb *CommandBuffer) zero(typ model.TypeID, chunk *archetype.Chunk, row int) {
	if dst := chunk.RawInline(typ, row); dst != nil {
		clear(dst)
		return
	}

	if dst := chunk.Array(typ); dst != nil {
		dst.ClearRange(row, 1)
	}
}
