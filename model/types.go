package model

import (
	"fmt"
	"math"
)

// NoID marks an unset id slot (free-chain terminator, absent archetype or chunk).
const NoID uint32 = math.MaxUint32

// Entity is a handle to one record. The Version is bumped every time the ID
// is retired, so handles held across a destroy become stale.
type Entity struct {
	ID      uint32
	Version uint32
}

// String returns a string representation of the Entity.
func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d@v%d)", e.ID, e.Version)
}

func (Entity) isTarget() {}

// FutureEntity names an entity queued for creation in a command buffer.
// It is only meaningful within the buffer that issued it and until that
// buffer is flushed; Generation counts the buffer's flushes.
type FutureEntity struct {
	Producer   ProducerKey
	Generation uint32
	Index      uint32
}

// String returns a string representation of the FutureEntity.
func (f FutureEntity) String() string {
	return fmt.Sprintf("Future(%d:%d#%d)", f.Producer, f.Generation, f.Index)
}

func (FutureEntity) isTarget() {}

// Target is an Entity or a FutureEntity: anything a command can address.
type Target interface {
	isTarget()
}

// TypeID is the dense identifier of a registered component type.
type TypeID uint32

// ProducerKey selects a command buffer. Callers pass their own worker or task
// index; it is not derived from goroutine identity.
type ProducerKey uint32

// Location identifies where a live entity's row is stored.
type Location struct {
	Archetype uint32
	Chunk     uint32
	Row       uint32
}

// String returns a string representation of the Location.
func (l Location) String() string {
	return fmt.Sprintf("Loc(%d:%d:%d)", l.Archetype, l.Chunk, l.Row)
}
