// Package model defines the value types shared by every layer of entigo.
//
// # Identity Types
//
//   - Entity: (ID, Version) handle for one record; Version invalidates stale handles
//   - FutureEntity: placeholder returned by a command buffer before the entity exists
//   - TypeID: dense component type identifier assigned at registration
//   - ProducerKey: caller-chosen handle selecting a per-producer command buffer
//   - Location: physical address (archetype, chunk, row) of a live entity
//
// Entities are plain values and cheap to copy. The zero Entity is never valid
// because versions start at 1.
package model
