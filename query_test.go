package entigo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entigo/testutil"
)

func TestQueryFilters(t *testing.T) {
	f := newFixture(t)

	f.spawn(t, 3, withPosition)
	f.spawn(t, 4, withPositionVelocity)
	f.spawn(t, 5, func(cb *CommandBuffer, fe FutureEntity, i int) {
		withPositionVelocity(cb, fe, i)
		_ = AddZero[testutil.Frozen](cb, fe)
	})
	f.spawn(t, 6, func(cb *CommandBuffer, fe FutureEntity, _ int) {
		_ = Add(cb, fe, testutil.Health{Max: 1})
	})

	tests := []struct {
		name  string
		build QueryBuilder
		want  int
	}{
		{"all position", f.w.Query().All(f.pos), 12},
		{"all position velocity", f.w.Query().All(f.pos, f.vel), 9},
		{"none frozen", f.w.Query().All(f.pos).None(f.frozen), 7},
		{"any velocity or health", f.w.Query().Any(f.vel, f.health), 15},
		{"tag only", f.w.Query().All(f.frozen), 5},
		{"unmatched", f.w.Query().All(f.name), 0},
		{"empty matches all", f.w.Query(), 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.build.Build()
			require.NoError(t, err)
			defer q.Close()

			assert.Equal(t, tt.want, q.Len())
		})
	}
}

func TestQueryBuilderIsImmutable(t *testing.T) {
	f := newFixture(t)

	base := f.w.Query().All(f.pos)
	withVel := base.All(f.vel)
	withHealth := base.All(f.health)

	assert.Equal(t, []TypeID{f.pos}, base.all)
	assert.Equal(t, []TypeID{f.pos, f.vel}, withVel.all)
	assert.Equal(t, []TypeID{f.pos, f.health}, withHealth.all)
}

func TestQueryUnregisteredType(t *testing.T) {
	f := newFixture(t)

	_, err := f.w.NewQuery([]TypeID{f.pos}, nil, []TypeID{200})
	assert.ErrorIs(t, err, ErrUnregisteredType)

	var ute *UnregisteredTypeError
	require.ErrorAs(t, err, &ute)
	assert.Equal(t, TypeID(200), ute.ID)
}

func TestQueryStaleUntilRefresh(t *testing.T) {
	f := newFixture(t)

	q, err := f.w.Query().All(f.pos).Build()
	require.NoError(t, err)
	assert.Equal(t, 0, q.Len())

	f.spawn(t, 3, withPosition)
	assert.Equal(t, 3, q.Len())

	// A closed query is no longer refreshed by Flush.
	q.Close()
	f.spawn(t, 2, withPositionVelocity)
	assert.Equal(t, 3, q.Len())
	assert.Len(t, q.Chunks(), 1)

	q.Refresh()
	assert.Equal(t, 5, q.Len())
	assert.Len(t, q.Chunks(), 2)
}

func TestQueryChunkOrder(t *testing.T) {
	f := newFixture(t, WithBufferBudget(64))

	f.spawn(t, 3, withPositionVelocity)
	f.spawn(t, 1, withPosition)

	q, err := f.w.Query().All(f.pos).Build()
	require.NoError(t, err)

	chunks := q.Chunks()
	require.Len(t, chunks, 3)
	assert.Equal(t, 2, chunks[0].Count())
	assert.Equal(t, 1, chunks[1].Count())
	assert.True(t, chunks[1].Has(f.vel))
	assert.False(t, chunks[2].Has(f.vel))
}

func TestColumn(t *testing.T) {
	f := newFixture(t)

	es := f.spawn(t, 10, func(cb *CommandBuffer, fe FutureEntity, i int) {
		withPositionVelocity(cb, fe, i)
		_ = Add(cb, fe, testutil.Name{Value: "n"})
		_ = AddZero[testutil.Frozen](cb, fe)
	})

	q, err := f.w.Query().All(f.pos, f.vel).Build()
	require.NoError(t, err)

	q.ForEachChunk(func(c *Chunk) bool {
		pos := Column[testutil.Position](c)
		vel := Column[testutil.Velocity](c)
		names := Column[testutil.Name](c)

		require.Len(t, pos, c.Count())
		require.Len(t, names, c.Count())

		for i := range pos {
			pos[i].X += vel[i].Y
			names[i].Value += "!"
		}

		assert.Nil(t, Column[testutil.Frozen](c))
		assert.Nil(t, Column[testutil.Health](c))

		return true
	})

	for i, e := range es {
		p, err := Get[testutil.Position](f.w, e)
		require.NoError(t, err)
		assert.Equal(t, float32(2*i), p.X)

		n, err := Get[testutil.Name](f.w, e)
		require.NoError(t, err)
		assert.Equal(t, "n!", n.Value)
	}
}

func TestForEachChunkStops(t *testing.T) {
	f := newFixture(t, WithBufferBudget(64))

	f.spawn(t, 8, withPositionVelocity)

	q, err := f.w.Query().All(f.pos).Build()
	require.NoError(t, err)
	require.Len(t, q.Chunks(), 4)

	visited := 0
	q.ForEachChunk(func(*Chunk) bool {
		visited++
		return visited < 2
	})

	assert.Equal(t, 2, visited)
}

func TestForEachChunkParallel(t *testing.T) {
	f := newFixture(t, WithBufferBudget(256), WithParallelism(4))

	rng := testutil.NewRNG(4711)
	vel := rng.Velocities(5000, 1)

	es := f.spawn(t, len(vel), func(cb *CommandBuffer, fe FutureEntity, i int) {
		_ = Add(cb, fe, testutil.Position{})
		_ = Add(cb, fe, vel[i])
	})

	q, err := f.w.Query().All(f.pos, f.vel).Build()
	require.NoError(t, err)
	require.Greater(t, len(q.Chunks()), 4)

	var rows atomic.Int64

	err = q.ForEachChunkParallel(context.Background(), func(_ context.Context, c *Chunk) error {
		pos := Column[testutil.Position](c)
		v := Column[testutil.Velocity](c)

		for i := range pos {
			pos[i].X += v[i].X
			pos[i].Y += v[i].Y
			pos[i].Z += v[i].Z
		}

		rows.Add(int64(len(pos)))

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(vel)), rows.Load())

	for _, i := range rng.Sample(len(es), 50) {
		p, err := Get[testutil.Position](f.w, es[i])
		require.NoError(t, err)
		assert.Equal(t, testutil.Position(vel[i]), p)
	}
}

func TestForEachChunkParallelError(t *testing.T) {
	f := newFixture(t, WithBufferBudget(64), WithParallelism(2))

	f.spawn(t, 16, withPositionVelocity)

	q, err := f.w.Query().All(f.pos).Build()
	require.NoError(t, err)

	boom := errors.New("boom")

	err = q.ForEachChunkParallel(context.Background(), func(context.Context, *Chunk) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = q.ForEachChunkParallel(ctx, func(context.Context, *Chunk) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
