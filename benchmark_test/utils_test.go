package benchmark_test

import (
	"context"
	"testing"

	"github.com/hupe1980/entigo"
	"github.com/hupe1980/entigo/testutil"
)

const benchSeed = 4711

type benchWorld struct {
	*entigo.World
	pos    entigo.TypeID
	vel    entigo.TypeID
	health entigo.TypeID
	name   entigo.TypeID
	frozen entigo.TypeID
}

// OpenBenchWorld creates a World with every fixture type registered.
func OpenBenchWorld(b *testing.B, opts ...entigo.Option) *benchWorld {
	b.Helper()

	w := entigo.New(opts...)
	b.Cleanup(func() { _ = w.Close() })

	return &benchWorld{
		World:  w,
		pos:    entigo.MustRegister[testutil.Position](w),
		vel:    entigo.MustRegister[testutil.Velocity](w),
		health: entigo.MustRegister[testutil.Health](w),
		name:   entigo.MustRegister[testutil.Name](w),
		frozen: entigo.MustRegister[testutil.Frozen](w),
	}
}

// Populate creates n moving entities and returns their handles.
func (w *benchWorld) Populate(b *testing.B, n int) []entigo.Entity {
	b.Helper()

	rng := testutil.NewRNG(benchSeed)
	pos := rng.Positions(n, 100)
	vel := rng.Velocities(n, 1)

	cb := w.CommandBuffer(0)
	futures := make([]entigo.FutureEntity, n)

	for i := range futures {
		futures[i] = cb.CreateEntity()
		_ = entigo.Add(cb, futures[i], pos[i])
		_ = entigo.Add(cb, futures[i], vel[i])
	}

	res, err := w.Flush(context.Background())
	if err != nil {
		b.Fatal(err)
	}

	out := make([]entigo.Entity, n)
	for i, c := range res.Created {
		out[i] = c.Entity
	}

	return out
}
