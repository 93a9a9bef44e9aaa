// Package typereg assigns dense component type ids and records the storage
// layout of every registered component type.
//
// A Registry has a fixed capacity chosen at construction. Component bit masks
// are sized from that capacity, so every mask built against one registry has
// the same word count.
package typereg
