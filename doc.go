// Package entigo provides an in-memory archetype entity store.
//
// Entities are (ID, Version) handles. Each entity carries a dynamic set of
// typed components; entities with the same set share an archetype whose
// storage is split into fixed-capacity chunks laid out as struct-of-arrays.
// Pointer-free components are packed into one aligned byte buffer per chunk,
// everything else lives in typed element arrays.
//
// # Quick Start
//
//	w := entigo.New()
//	pos := entigo.MustRegister[Position](w)
//	vel := entigo.MustRegister[Velocity](w)
//
//	cb := w.CommandBuffer(0)
//	f := cb.CreateEntity()
//	_ = entigo.Add(cb, f, Position{})
//	_ = entigo.Add(cb, f, Velocity{X: 1})
//
//	res, err := w.Flush(ctx)
//	e, _ := res.Resolve(f)
//
//	q, _ := w.Query().All(pos, vel).Build()
//	q.ForEachChunk(func(c *entigo.Chunk) bool {
//	    ps := entigo.Column[Position](c)
//	    vs := entigo.Column[Velocity](c)
//	    for i := range ps {
//	        ps[i].X += vs[i].X
//	    }
//	    return true
//	})
//
// # Command Buffers
//
// Structural changes never happen immediately. Producers stage creations,
// destructions and component adds/removes into their own CommandBuffer,
// selected by an explicit ProducerKey, and a single coordinator applies all
// buffers with Flush in destroy, create, update order. Queries created by the
// World are refreshed at the end of every flush.
//
// # Concurrency
//
// Distinct command buffers can be filled from different goroutines. Reading
// chunks (including ForEachChunkParallel) and staging must not overlap Flush,
// Clear or Close; separate the phases with a barrier.
package entigo
