// Package bitset provides the fixed-width component bit vector used as an
// archetype signature and as query filter masks.
//
// A BitSet never grows: its word count is fixed at construction from the
// component registry capacity (see BufferWordCount). Binary operations on
// operands of different word counts are truncated to the shorter operand.
//
// SetAll(true) sets every bit of every word, including padding bits past the
// last registered type id. Matching code must never probe unregistered ids.
package bitset
