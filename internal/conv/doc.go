// Package conv converts between Go's int and the fixed-width 32-bit ids used
// for entities, archetypes, chunks and rows.
//
// Row and chunk indices are bounded by construction and are cast directly.
// The checked conversions here guard the places where a count supplied by a
// caller becomes an id.
package conv
