package testutil

import (
	"fmt"
	"math/rand"
	"sync"
)

// Position is an inline fixture component.
type Position struct {
	X, Y, Z float32
}

// Velocity is an inline fixture component.
type Velocity struct {
	X, Y, Z float32
}

// Health is an inline fixture component with integer fields.
type Health struct {
	Current int32
	Max     int32
}

// Name holds a pointer and is therefore stored indirectly.
type Name struct {
	Value string
}

// Tags is an indirect fixture component backed by a slice.
type Tags struct {
	Values []string
}

// Frozen is a zero-sized tag component.
type Frozen struct{}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// Positions returns num positions with coordinates in [-extent, extent).
// Locks only once per call.
func (r *RNG) Positions(num int, extent float32) []Position {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Position, num)
	for i := range out {
		out[i] = Position{
			X: (r.rand.Float32()*2 - 1) * extent,
			Y: (r.rand.Float32()*2 - 1) * extent,
			Z: (r.rand.Float32()*2 - 1) * extent,
		}
	}
	return out
}

// Velocities returns num velocities with components in [-maxSpeed, maxSpeed).
func (r *RNG) Velocities(num int, maxSpeed float32) []Velocity {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Velocity, num)
	for i := range out {
		out[i] = Velocity{
			X: (r.rand.Float32()*2 - 1) * maxSpeed,
			Y: (r.rand.Float32()*2 - 1) * maxSpeed,
			Z: (r.rand.Float32()*2 - 1) * maxSpeed,
		}
	}
	return out
}

// Names returns num distinct names with the given prefix.
func (r *RNG) Names(num int, prefix string) []Name {
	perm := r.Perm(num)
	out := make([]Name, num)
	for i, p := range perm {
		out[i] = Name{Value: fmt.Sprintf("%s-%d", prefix, p)}
	}
	return out
}

// Sample returns k distinct indices drawn from [0,n) in random order.
// k is clamped to n.
func (r *RNG) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	return r.Perm(n)[:k]
}

// Mask returns n booleans where each entry is true with probability rate.
func (r *RNG) Mask(n int, rate float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]bool, n)
	for i := range out {
		out[i] = r.rand.Float64() < rate
	}
	return out
}
