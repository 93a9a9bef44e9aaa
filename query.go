package entigo

import (
	"context"
	"reflect"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/entigo/internal/archetype"
	"github.com/hupe1980/entigo/internal/bitset"
	"github.com/hupe1980/entigo/internal/query"
)

// Query is a cached archetype filter. A query created by a World is refreshed
// at the end of every Flush; call Refresh after structural changes made any
// other way.
type Query struct {
	w *World
	q *query.Query
}

// NewQuery creates a query that matches archetypes containing every type in
// all, at least one type in anyOf (if non-empty) and no type in none.
func (w *World) NewQuery(all, anyOf, none []TypeID) (*Query, error) {
	words := bitset.BufferWordCount(w.registry.Cap())
	q := query.New(w.dir, words)

	for _, set := range []struct {
		ids  []TypeID
		with func(TypeID) *query.Query
	}{
		{all, q.WithAll},
		{anyOf, q.WithAny},
		{none, q.WithNone},
	} {
		for _, id := range set.ids {
			if _, ok := w.registry.Info(id); !ok {
				return nil, &UnregisteredTypeError{ID: id}
			}

			set.with(id)
		}
	}

	out := &Query{w: w, q: q}
	out.Refresh()

	w.queriesMu.Lock()
	w.queries = append(w.queries, out)
	w.queriesMu.Unlock()

	return out, nil
}

// Refresh recomputes the matching chunks.
func (q *Query) Refresh() {
	q.q.Refresh()
}

// Close stops the World from refreshing q.
func (q *Query) Close() {
	q.w.queriesMu.Lock()
	defer q.w.queriesMu.Unlock()

	q.w.queries = slices.DeleteFunc(q.w.queries, func(other *Query) bool { return other == q })
}

// Chunks returns the cached non-empty chunks in archetype-then-chunk order.
func (q *Query) Chunks() []*Chunk {
	return q.q.Chunks()
}

// Len returns the number of entities in the cached chunks.
func (q *Query) Len() int {
	return q.q.Len()
}

// ForEachChunk calls fn for every cached chunk until fn returns false.
func (q *Query) ForEachChunk(fn func(c *Chunk) bool) {
	for _, c := range q.q.Chunks() {
		if !fn(c) {
			return
		}
	}
}

// ForEachChunkParallel calls fn for every cached chunk on up to the World's
// parallelism goroutines. It returns the first error from fn, or ctx's error
// if ctx is done before every chunk was scheduled.
//
// fn may write the columns of its own chunk. It must not stage commands into
// a CommandBuffer shared with other invocations, and the call must not overlap
// a Flush.
func (q *Query) ForEachChunkParallel(ctx context.Context, fn func(ctx context.Context, c *Chunk) error) error {
	ctrl := q.w.ctrl
	g, gctx := errgroup.WithContext(ctx)

	var scheduleErr error

	for _, c := range q.q.Chunks() {
		if err := ctrl.AcquireWorker(gctx); err != nil {
			scheduleErr = err
			break
		}

		g.Go(func() error {
			defer ctrl.ReleaseWorker()
			return fn(gctx, c)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return scheduleErr
}

func (w *World) refreshQueries() {
	w.queriesMu.Lock()
	defer w.queriesMu.Unlock()

	for _, q := range w.queries {
		q.Refresh()
	}
}

// QueryBuilder is an immutable fluent builder for queries.
//
// Example:
//
//	q, err := w.Query().All(pos, vel).None(frozen).Build()
type QueryBuilder struct {
	w *World

	all, anyOf, none []TypeID
}

// Query starts a query builder.
func (w *World) Query() QueryBuilder {
	return QueryBuilder{w: w}
}

// All requires every given type.
func (b QueryBuilder) All(ids ...TypeID) QueryBuilder {
	b.all = append(slices.Clip(b.all), ids...)
	return b
}

// Any requires at least one of the given types.
func (b QueryBuilder) Any(ids ...TypeID) QueryBuilder {
	b.anyOf = append(slices.Clip(b.anyOf), ids...)
	return b
}

// None excludes every given type.
func (b QueryBuilder) None(ids ...TypeID) QueryBuilder {
	b.none = append(slices.Clip(b.none), ids...)
	return b
}

// Build creates the query.
func (b QueryBuilder) Build() (*Query, error) {
	return b.w.NewQuery(b.all, b.anyOf, b.none)
}

// Column returns the rows of component T in c, or nil if c does not store T
// (absent or zero-sized). Writes through the slice update the stored values.
func Column[T any](c *Chunk) []T {
	t := reflect.TypeFor[T]()

	for _, info := range c.Layout().Types {
		if info.Type != t {
			continue
		}

		if info.Inline() {
			return archetype.InlineColumn[T](c, info.ID)
		}

		return archetype.IndirectColumn[T](c, info.ID)
	}

	return nil
}
