package entigo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo/testutil"
)

type fixture struct {
	w      *World
	pos    TypeID
	vel    TypeID
	health TypeID
	name   TypeID
	frozen TypeID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	w := New(opts...)
	t.Cleanup(func() { _ = w.Close() })

	return &fixture{
		w:      w,
		pos:    MustRegister[testutil.Position](w),
		vel:    MustRegister[testutil.Velocity](w),
		health: MustRegister[testutil.Health](w),
		name:   MustRegister[testutil.Name](w),
		frozen: MustRegister[testutil.Frozen](w),
	}
}

// spawn creates n entities through one flush; stage is called for every future.
func (f *fixture) spawn(t *testing.T, n int, stage func(cb *CommandBuffer, fe FutureEntity, i int)) []Entity {
	t.Helper()

	cb := f.w.CommandBuffer(0)
	futures := make([]FutureEntity, n)

	for i := range futures {
		futures[i] = cb.CreateEntity()
		stage(cb, futures[i], i)
	}

	res, err := f.w.Flush(context.Background())
	require.NoError(t, err)

	out := make([]Entity, n)
	for i, fe := range futures {
		e, ok := res.Resolve(fe)
		require.True(t, ok, "future %s not created", fe)
		out[i] = e
	}

	return out
}

func (f *fixture) flush(t *testing.T) FlushResult {
	t.Helper()

	res, err := f.w.Flush(context.Background())
	require.NoError(t, err)

	return res
}

func withPosition(cb *CommandBuffer, fe FutureEntity, i int) {
	_ = Add(cb, fe, testutil.Position{X: float32(i)})
}

func withPositionVelocity(cb *CommandBuffer, fe FutureEntity, i int) {
	_ = Add(cb, fe, testutil.Position{X: float32(i)})
	_ = Add(cb, fe, testutil.Velocity{Y: float32(i)})
}

func TestRegister(t *testing.T) {
	w := New()

	id, err := Register[testutil.Position](w)
	require.NoError(t, err)

	again, err := Register[testutil.Position](w)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = Insert[testutil.Position](w)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	byType, err := TypeOf[testutil.Position](w)
	require.NoError(t, err)
	assert.Equal(t, id, byType)

	_, err = TypeOf[testutil.Velocity](w)
	assert.ErrorIs(t, err, ErrUnregisteredType)

	var ute *UnregisteredTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, "Velocity", ute.Type.Name())
}

func TestRegisterLayout(t *testing.T) {
	w := New()

	_, err := RegisterLayout[testutil.Name](w, Layout{Size: 16, Align: 8, HasFields: true, Inline: true})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = RegisterLayout[testutil.Position](w, Layout{Size: 12, Align: 3, HasFields: true, Inline: true})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	id, err := RegisterLayout[testutil.Position](w, Layout{Size: 12, Align: 4, HasFields: true, Inline: true})
	require.NoError(t, err)

	// Pointer-free types may opt out of inline storage.
	vel, err := RegisterLayout[testutil.Velocity](w, Layout{Size: 12, Align: 4, HasFields: true})
	require.NoError(t, err)
	assert.NotEqual(t, id, vel)
}

func TestRegistryFull(t *testing.T) {
	w := New(WithRegistryCapacity(2))

	_, err := Register[testutil.Position](w)
	require.NoError(t, err)
	_, err = Register[testutil.Velocity](w)
	require.NoError(t, err)

	_, err = Register[testutil.Health](w)
	assert.ErrorIs(t, err, ErrRegistryFull)

	assert.Panics(t, func() { MustRegister[testutil.Name](w) })
}

func TestEntityLifecycle(t *testing.T) {
	f := newFixture(t)

	e := f.spawn(t, 1, withPosition)[0]
	assert.True(t, f.w.IsValid(e))
	assert.Equal(t, 1, f.w.Len())
	assert.Equal(t, uint32(1), e.Version)

	cb := f.w.CommandBuffer(0)
	require.NoError(t, cb.DestroyEntity(e))

	res := f.flush(t)
	assert.Equal(t, 1, res.Destroyed)
	assert.False(t, f.w.IsValid(e))
	assert.Equal(t, 0, f.w.Len())

	_, err := Get[testutil.Position](f.w, e)
	assert.ErrorIs(t, err, ErrStaleHandle)

	var she *StaleHandleError
	require.ErrorAs(t, err, &she)
	assert.Equal(t, e, she.Entity)

	// The retired id is reused with a newer version.
	reused := f.spawn(t, 1, withPosition)[0]
	assert.Equal(t, e.ID, reused.ID)
	assert.Equal(t, e.Version+1, reused.Version)
	assert.False(t, f.w.IsValid(e))
	assert.True(t, f.w.IsValid(reused))
}

func TestIdenticalComponentSetsShareArchetype(t *testing.T) {
	f := newFixture(t)

	cb := f.w.CommandBuffer(0)
	a := cb.CreateEntity()
	require.NoError(t, Add(cb, a, testutil.Position{}))
	require.NoError(t, Add(cb, a, testutil.Velocity{}))

	b := cb.CreateEntity()
	require.NoError(t, Add(cb, b, testutil.Velocity{}))
	require.NoError(t, Add(cb, b, testutil.Position{}))

	res := f.flush(t)
	assert.Equal(t, 1, res.ArchetypesCreated)

	ea, _ := res.Resolve(a)
	eb, _ := res.Resolve(b)

	la, err := f.w.Locate(ea)
	require.NoError(t, err)
	lb, err := f.w.Locate(eb)
	require.NoError(t, err)

	assert.Equal(t, la.Archetype, lb.Archetype)
	assert.Equal(t, la.Chunk, lb.Chunk)
	assert.Equal(t, uint32(0), la.Row)
	assert.Equal(t, uint32(1), lb.Row)
}

func TestChunkOverflow(t *testing.T) {
	f := newFixture(t)

	first := f.spawn(t, 1, withPositionVelocity)[0]
	loc, err := f.w.Locate(first)
	require.NoError(t, err)

	capacity := f.w.chunkAt(loc).Capacity()
	require.Greater(t, capacity, 1)

	rest := f.spawn(t, capacity, withPositionVelocity)

	stats := f.w.Stats()
	assert.Equal(t, capacity+1, stats.Entities)
	assert.Equal(t, 1, stats.Archetypes)
	assert.Equal(t, 2, stats.Chunks)

	last, err := f.w.Locate(rest[len(rest)-1])
	require.NoError(t, err)
	assert.NotEqual(t, loc.Chunk, last.Chunk)
	assert.Equal(t, uint32(0), last.Row)
}

func TestDestroyCompactsChunk(t *testing.T) {
	f := newFixture(t)

	es := f.spawn(t, 5, withPosition)

	cb := f.w.CommandBuffer(0)
	require.NoError(t, cb.DestroyEntity(es[1]))
	f.flush(t)

	loc, err := f.w.Locate(es[4])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), loc.Row)

	p, err := Get[testutil.Position](f.w, es[4])
	require.NoError(t, err)
	assert.Equal(t, float32(4), p.X)

	c := f.w.chunkAt(loc)
	assert.Equal(t, 4, c.Count())
	assert.Equal(t, es[4], f.w.EntityAt(c, 1))
}

func TestAddComponentMovesEntity(t *testing.T) {
	f := newFixture(t)

	es := f.spawn(t, 2, withPosition)
	before, err := f.w.Locate(es[0])
	require.NoError(t, err)

	cb := f.w.CommandBuffer(0)
	require.NoError(t, Add(cb, es[0], testutil.Velocity{Z: 7}))

	res := f.flush(t)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.ArchetypesCreated)

	after, err := f.w.Locate(es[0])
	require.NoError(t, err)
	assert.NotEqual(t, before.Archetype, after.Archetype)

	p, err := Get[testutil.Position](f.w, es[0])
	require.NoError(t, err)
	assert.Equal(t, testutil.Position{X: 0}, p)

	v, err := Get[testutil.Velocity](f.w, es[0])
	require.NoError(t, err)
	assert.Equal(t, float32(7), v.Z)

	// The source chunk was compacted.
	other, err := f.w.Locate(es[1])
	require.NoError(t, err)
	assert.Equal(t, before.Archetype, other.Archetype)
	assert.Equal(t, uint32(0), other.Row)

	p, err = Get[testutil.Position](f.w, es[1])
	require.NoError(t, err)
	assert.Equal(t, float32(1), p.X)
}

func TestRemoveComponent(t *testing.T) {
	f := newFixture(t)

	e := f.spawn(t, 1, withPositionVelocity)[0]

	cb := f.w.CommandBuffer(0)
	require.NoError(t, Remove[testutil.Velocity](cb, e))
	f.flush(t)

	ok, err := Has[testutil.Velocity](f.w, e)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Get[testutil.Velocity](f.w, e)
	assert.ErrorIs(t, err, ErrComponentNotFound)

	p, err := Get[testutil.Position](f.w, e)
	require.NoError(t, err)
	assert.Equal(t, testutil.Position{}, p)
}

func TestAddOverwritesExistingComponent(t *testing.T) {
	f := newFixture(t)

	e := f.spawn(t, 1, withPosition)[0]
	before, err := f.w.Locate(e)
	require.NoError(t, err)

	cb := f.w.CommandBuffer(0)
	require.NoError(t, Add(cb, e, testutil.Position{X: 42}))
	f.flush(t)

	after, err := f.w.Locate(e)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	p, err := Get[testutil.Position](f.w, e)
	require.NoError(t, err)
	assert.Equal(t, float32(42), p.X)
}

func TestIndirectAndTagComponents(t *testing.T) {
	f := newFixture(t)

	es := f.spawn(t, 3, func(cb *CommandBuffer, fe FutureEntity, i int) {
		_ = Add(cb, fe, testutil.Name{Value: []string{"a", "b", "c"}[i]})
		_ = AddZero[testutil.Frozen](cb, fe)
	})

	n, err := Get[testutil.Name](f.w, es[2])
	require.NoError(t, err)
	assert.Equal(t, "c", n.Value)

	ok, err := Has[testutil.Frozen](f.w, es[0])
	require.NoError(t, err)
	assert.True(t, ok)

	tag, err := Get[testutil.Frozen](f.w, es[0])
	require.NoError(t, err)
	assert.Equal(t, testutil.Frozen{}, tag)

	// Moving keeps indirect values.
	cb := f.w.CommandBuffer(0)
	require.NoError(t, cb.DestroyEntity(es[0]))
	require.NoError(t, Add(cb, es[1], testutil.Health{Current: 5, Max: 10}))
	f.flush(t)

	n, err = Get[testutil.Name](f.w, es[1])
	require.NoError(t, err)
	assert.Equal(t, "b", n.Value)

	n, err = Get[testutil.Name](f.w, es[2])
	require.NoError(t, err)
	assert.Equal(t, "c", n.Value)

	h, err := Get[testutil.Health](f.w, es[1])
	require.NoError(t, err)
	assert.Equal(t, int32(10), h.Max)
}

func TestGetErrors(t *testing.T) {
	f := newFixture(t)

	e := f.spawn(t, 1, withPosition)[0]

	type unknown struct{ A int }

	_, err := Get[unknown](f.w, e)
	assert.ErrorIs(t, err, ErrUnregisteredType)

	_, err = Has[unknown](f.w, e)
	assert.ErrorIs(t, err, ErrUnregisteredType)

	_, err = Has[testutil.Position](f.w, Entity{ID: 99, Version: 1})
	assert.ErrorIs(t, err, ErrStaleHandle)

	_, err = f.w.Locate(Entity{ID: e.ID, Version: e.Version + 1})
	assert.ErrorIs(t, err, ErrStaleHandle)
	assert.False(t, errors.Is(err, ErrUnregisteredType))
}

func TestClear(t *testing.T) {
	f := newFixture(t)

	es := f.spawn(t, 10, withPosition)

	q, err := f.w.Query().All(f.pos).Build()
	require.NoError(t, err)
	assert.Equal(t, 10, q.Len())

	require.NoError(t, f.w.Clear())

	assert.Equal(t, 0, f.w.Len())
	assert.Equal(t, 0, q.Len())
	for _, e := range es {
		assert.False(t, f.w.IsValid(e))
	}

	stats := f.w.Stats()
	assert.Equal(t, 1, stats.Archetypes)
	assert.Equal(t, 0, stats.Chunks)

	e := f.spawn(t, 1, withPosition)[0]
	assert.Equal(t, uint32(0), e.ID)
	assert.Equal(t, uint32(2), e.Version)
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, 4, withPosition)
	f.spawn(t, 4, withPositionVelocity)

	_, err := f.w.Query().All(f.pos).Build()
	require.NoError(t, err)

	stats := f.w.Stats()
	assert.Equal(t, 8, stats.Entities)
	assert.Equal(t, 2, stats.Archetypes)
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 5, stats.RegisteredTypes)
	assert.Equal(t, 1, stats.Producers)
	assert.Equal(t, 1, stats.Queries)
	assert.Positive(t, stats.MemoryUsage)
	assert.GreaterOrEqual(t, stats.PeakMemoryUsage, stats.MemoryUsage)
}

func TestTagDoesNotContributeToCapacity(t *testing.T) {
	type foo struct{ A, B uint32 }
	type bar struct{}

	w := New()
	MustRegister[foo](w)
	MustRegister[bar](w)

	cb := w.CommandBuffer(0)
	fe := cb.CreateEntity()
	require.NoError(t, Add(cb, fe, foo{A: 1}))
	require.NoError(t, AddZero[bar](cb, fe))

	res, err := w.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ArchetypesCreated)

	e, _ := res.Resolve(fe)
	loc, err := w.Locate(e)
	require.NoError(t, err)

	c := w.chunkAt(loc)
	assert.Equal(t, (16*1024-4)/8, c.Capacity())
	assert.Len(t, c.Layout().Types, 2)
	assert.Len(t, c.Layout().Inline, 1)
}

func TestInsertLayout(t *testing.T) {
	w := New()

	id, err := InsertLayout[testutil.Health](w, Layout{Size: 8, Align: 4, HasFields: true, Inline: true})
	require.NoError(t, err)

	byType, err := TypeOf[testutil.Health](w)
	require.NoError(t, err)
	assert.Equal(t, id, byType)

	_, err = InsertLayout[testutil.Health](w, Layout{Size: 8, Align: 4, HasFields: true, Inline: true})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = InsertLayout[testutil.Name](w, Layout{Size: 16, Align: 8, HasFields: true, Inline: true})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestBudgetBelowPointerWidth(t *testing.T) {
	f := newFixture(t, WithBufferBudget(4))

	es := f.spawn(t, 3, func(cb *CommandBuffer, fe FutureEntity, i int) {
		_ = Add(cb, fe, testutil.Name{Value: []string{"a", "b", "c"}[i]})
	})

	loc, err := f.w.Locate(es[0])
	require.NoError(t, err)
	assert.Equal(t, 1, f.w.chunkAt(loc).Capacity())
	assert.Equal(t, 3, f.w.Stats().Chunks)

	n, err := Get[testutil.Name](f.w, es[2])
	require.NoError(t, err)
	assert.Equal(t, "c", n.Value)
}
