package entigo

import (
	"github.com/hupe1980/entigo/internal/cmdbuf"
	"github.com/hupe1980/entigo/internal/typereg"
)

// CommandBuffer stages structural changes for one producer. Nothing staged is
// visible until the next Flush.
//
// A CommandBuffer must be used by one goroutine at a time; give every
// concurrent producer its own ProducerKey.
type CommandBuffer struct {
	w  *World
	cb *cmdbuf.CommandBuffer
}

// CommandBuffer returns the buffer for key, creating it on first use.
func (w *World) CommandBuffer(key ProducerKey) *CommandBuffer {
	return &CommandBuffer{w: w, cb: w.producers.Get(key)}
}

// Key returns the producer key.
func (b *CommandBuffer) Key() ProducerKey { return b.cb.Key() }

// Len returns the number of pending creations, destructions and updates.
func (b *CommandBuffer) Len() int { return b.cb.Len() }

// CreateEntity queues a new entity. The entity is created by the next Flush
// only if at least one component was added to it; FlushResult.Resolve maps the
// future to the created handle.
func (b *CommandBuffer) CreateEntity() FutureEntity {
	return b.cb.CreateEntity()
}

// DestroyEntity queues the destruction of e.
func (b *CommandBuffer) DestroyEntity(e Entity) error {
	if !b.w.dir.IsValid(e) {
		return &StaleHandleError{Entity: e}
	}

	b.cb.DestroyEntity(e)

	return nil
}

// Add queues adding component T with value to target. Adding a component the
// entity already has overwrites its value.
func Add[T any](b *CommandBuffer, target Target, value T) error {
	info, err := b.resolve(target, lookup[T])
	if err != nil {
		return err
	}

	return cmdbuf.Add(b.cb, target, info, value)
}

// AddZero queues adding component T with its zero value. Use it for tag types.
func AddZero[T any](b *CommandBuffer, target Target) error {
	info, err := b.resolve(target, lookup[T])
	if err != nil {
		return err
	}

	return b.cb.AddZero(target, info)
}

// Remove queues removing component T from target. It cancels a pending add of T.
func Remove[T any](b *CommandBuffer, target Target) error {
	info, err := b.resolve(target, lookup[T])
	if err != nil {
		return err
	}

	return b.cb.Remove(target, info)
}

func (b *CommandBuffer) resolve(target Target, lookupFn func(*World) (typereg.Info, error)) (typereg.Info, error) {
	info, err := lookupFn(b.w)
	if err != nil {
		return typereg.Info{}, err
	}

	if e, ok := target.(Entity); ok && !b.w.dir.IsValid(e) {
		return typereg.Info{}, &StaleHandleError{Entity: e}
	}

	return info, nil
}
