package entigo_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/entigo"
)

type Position struct{ X, Y float32 }

type Velocity struct{ X, Y float32 }

// Example demonstrates staging entities, flushing and iterating a query.
func Example() {
	w := entigo.New()
	defer w.Close()

	pos := entigo.MustRegister[Position](w)
	vel := entigo.MustRegister[Velocity](w)

	cb := w.CommandBuffer(0)
	for i := range 3 {
		fe := cb.CreateEntity()
		_ = entigo.Add(cb, fe, Position{})
		_ = entigo.Add(cb, fe, Velocity{X: float32(i), Y: 1})
	}

	if _, err := w.Flush(context.Background()); err != nil {
		log.Fatal(err)
	}

	q, err := w.Query().All(pos, vel).Build()
	if err != nil {
		log.Fatal(err)
	}

	q.ForEachChunk(func(c *entigo.Chunk) bool {
		p := entigo.Column[Position](c)
		v := entigo.Column[Velocity](c)

		for i := range p {
			p[i].X += v[i].X
			p[i].Y += v[i].Y
		}

		return true
	})

	for _, c := range q.Chunks() {
		fmt.Println(entigo.Column[Position](c))
	}
	// Output: [{0 1} {1 1} {2 1}]
}

// Example_futureEntity demonstrates resolving a staged entity after a flush.
func Example_futureEntity() {
	w := entigo.New()
	defer w.Close()

	entigo.MustRegister[Position](w)

	cb := w.CommandBuffer(0)
	fe := cb.CreateEntity()
	_ = entigo.Add(cb, fe, Position{X: 1, Y: 2})

	res, err := w.Flush(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	e, _ := res.Resolve(fe)
	p, _ := entigo.Get[Position](w, e)

	fmt.Println(e, p)
	// Output: Entity(0@v1) {1 2}
}
