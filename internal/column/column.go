// Package column provides type-erased element arrays used for indirect
// (pointer-carrying) component storage.
//
// A chunk holds one Array per indirect component type. Code that knows the
// concrete type recovers the typed slice with Of; code that only moves rows
// around (compaction, cross-archetype copies) uses the Array methods.
package column

// Array is a fixed-length, type-erased slice.
type Array interface {
	// Len returns the number of slots.
	Len() int
	// CopyElem copies slot src into slot dstIdx of dst. dst must hold the same element type.
	CopyElem(src int, dst Array, dstIdx int)
	// CopyRange copies the first n slots into dst.
	CopyRange(dst Array, n int)
	// ClearRange zeroes n slots starting at from.
	ClearRange(from, n int)
}

// Slice is the Array implementation for element type T.
type Slice[T any] struct {
	Data []T
}

// New allocates an Array of n zeroed T.
func New[T any](n int) Array {
	return &Slice[T]{Data: make([]T, n)}
}

// Of returns the typed backing slice of a. It panics if a does not hold T.
func Of[T any](a Array) []T {
	return a.(*Slice[T]).Data
}

// TryOf returns the typed backing slice of a, or false if a holds another type.
func TryOf[T any](a Array) ([]T, bool) {
	s, ok := a.(*Slice[T])
	if !ok {
		return nil, false
	}
	return s.Data, true
}

// Len implements Array.
func (s *Slice[T]) Len() int { return len(s.Data) }

// CopyElem implements Array.
func (s *Slice[T]) CopyElem(src int, dst Array, dstIdx int) {
	dst.(*Slice[T]).Data[dstIdx] = s.Data[src]
}

// CopyRange implements Array.
func (s *Slice[T]) CopyRange(dst Array, n int) {
	copy(dst.(*Slice[T]).Data[:n], s.Data[:n])
}

// ClearRange implements Array.
func (s *Slice[T]) ClearRange(from, n int) {
	clear(s.Data[from : from+n])
}
