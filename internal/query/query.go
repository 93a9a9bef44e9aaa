// Package query selects archetypes by All/Any/None component masks and caches
// the matching chunks.
//
// The cache is only rebuilt by Refresh. Structural changes made after the last
// Refresh are invisible to a query until it is refreshed again.
package query

import (
	"github.com/hupe1980/entigo/internal/archetype"
	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/model"
)

// Source provides the archetypes a query evaluates.
type Source interface {
	Archetypes() []*archetype.Archetype
}

// Query is a cached archetype filter.
type Query struct {
	src Source

	all, any, none *bitset.BitSet

	archetypes []*archetype.Archetype
	chunks     []*archetype.Chunk
}

// New creates an empty query over src with masks of the given word count.
func New(src Source, words int) *Query {
	return &Query{
		src:  src,
		all:  bitset.New(words),
		any:  bitset.New(words),
		none: bitset.New(words),
	}
}

// WithAll requires the type.
func (q *Query) WithAll(id model.TypeID) *Query {
	q.all.Set(int(id), true)
	return q
}

// WithAny requires at least one of the types passed to WithAny.
func (q *Query) WithAny(id model.TypeID) *Query {
	q.any.Set(int(id), true)
	return q
}

// WithNone excludes the type.
func (q *Query) WithNone(id model.TypeID) *Query {
	q.none.Set(int(id), true)
	return q
}

// All returns the All mask.
func (q *Query) All() *bitset.BitSet { return q.all }

// Any returns the Any mask.
func (q *Query) Any() *bitset.BitSet { return q.any }

// None returns the None mask.
func (q *Query) None() *bitset.BitSet { return q.none }

// Matches reports whether a signature passes the filter.
func (q *Query) Matches(signature *bitset.BitSet) bool {
	if signature.Intersects(q.none) {
		return false
	}

	if !signature.ContainsAll(q.all) {
		return false
	}

	if !q.any.IsZero() && !signature.Intersects(q.any) {
		return false
	}

	return true
}

// Refresh rebuilds the cache from the source's current archetypes. Matching
// archetypes contribute their non-empty chunks in archetype-then-chunk order.
func (q *Query) Refresh() {
	clear(q.archetypes)
	clear(q.chunks)
	q.archetypes = q.archetypes[:0]
	q.chunks = q.chunks[:0]

	for _, a := range q.src.Archetypes() {
		if !q.Matches(a.Signature()) {
			continue
		}

		q.archetypes = append(q.archetypes, a)

		for _, c := range a.Chunks() {
			if !c.IsEmpty() {
				q.chunks = append(q.chunks, c)
			}
		}
	}
}

// Archetypes returns the cached matching archetypes.
func (q *Query) Archetypes() []*archetype.Archetype { return q.archetypes }

// Chunks returns the cached non-empty chunks.
func (q *Query) Chunks() []*archetype.Chunk { return q.chunks }

// Len returns the number of rows across the cached chunks.
func (q *Query) Len() int {
	n := 0
	for _, c := range q.chunks {
		n += c.Count()
	}

	return n
}
