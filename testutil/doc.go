// Package testutil provides testing utilities for entigo.
//
// This package is intended for use in tests, benchmarks and examples only.
// It provides fixture component types covering every storage class and a
// seeded, thread-safe generator for component values.
//
// # Fixtures
//
//	Position, Velocity, Health  inline (pointer-free) components
//	Name, Tags                  indirect components
//	Frozen                      zero-sized tag
//
// # Random Values
//
//	rng := testutil.NewRNG(seed)
//	pos := rng.Positions(1000, 100)
//	idx := rng.Sample(1000, 10)
package testutil
