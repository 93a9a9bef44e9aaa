// Package archetype stores entities that share one component signature.
//
// An Archetype owns a set of fixed-capacity Chunks. Each chunk keeps a
// parallel entity-id array plus one column per component type: inline
// (pointer-free) types are packed column by column into a single aligned byte
// buffer, indirect types each get a typed element array from the array pool.
// Zero-sized tag types take no storage at all.
//
// Chunks are addressed through a slot map: a chunk id stays valid while the
// dense chunk slice is compacted, and retired ids are recycled through a free
// chain threaded through the index itself. Chunks that are not full are kept
// on a doubly-linked available list whose tail receives the next entity.
//
// Nothing in this package is safe for concurrent mutation. The owner serializes
// structural changes and must not overlap them with readers.
package archetype
