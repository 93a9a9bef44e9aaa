package bitset

import (
	"iter"

	bbs "github.com/bits-and-blooms/bitset"
)

const (
	// WordBits is the number of bits per storage word.
	WordBits = 64

	log2WordBits = 6
)

// BufferWordCount returns the number of 64-bit words needed to hold n bits.
func BufferWordCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + WordBits - 1) >> log2WordBits
}

// BitSet is a fixed-width bit vector over component type ids.
type BitSet struct {
	b *bbs.BitSet
}

// New creates a zeroed BitSet of the given word count.
func New(words int) *BitSet {
	if words < 0 {
		words = 0
	}
	return &BitSet{b: bbs.From(make([]uint64, words))}
}

// ForTypes creates a zeroed BitSet wide enough for typeCount ids.
func ForTypes(typeCount int) *BitSet {
	return New(BufferWordCount(typeCount))
}

// Clone returns an owned copy of s.
func (s *BitSet) Clone() *BitSet {
	return &BitSet{b: s.b.Clone()}
}

// WordCount returns the number of storage words.
func (s *BitSet) WordCount() int {
	return len(s.b.Words())
}

// Len returns the number of addressable bits (WordCount * 64).
func (s *BitSet) Len() int {
	return int(s.b.Len())
}

// Words exposes the underlying words. Callers must not resize the slice.
func (s *BitSet) Words() []uint64 {
	return s.b.Words()
}

// Test reports whether bit i is set. Out-of-range bits read as clear.
func (s *BitSet) Test(i int) bool {
	if i < 0 {
		return false
	}
	return s.b.Test(uint(i))
}

// Set assigns bit i. Out-of-range bits are ignored; the set never grows.
func (s *BitSet) Set(i int, value bool) {
	if i < 0 || i >= s.Len() {
		return
	}
	s.b.SetTo(uint(i), value)
}

// SetAll sets or clears every bit, padding included.
func (s *BitSet) SetAll(value bool) {
	words := s.b.Words()
	if !value {
		clear(words)
		return
	}
	for i := range words {
		words[i] = ^uint64(0)
	}
}

// CopyFrom copies other's words into s, truncated to the shorter operand.
func (s *BitSet) CopyFrom(other *BitSet) {
	copy(s.b.Words(), other.b.Words())
}

// And intersects s with other in place.
func (s *BitSet) And(other *BitSet) {
	if s.WordCount() == other.WordCount() {
		s.b.InPlaceIntersection(other.b)
		return
	}
	w, ow := s.b.Words(), other.b.Words()
	for i := range min(len(w), len(ow)) {
		w[i] &= ow[i]
	}
}

// Or unions other into s in place.
func (s *BitSet) Or(other *BitSet) {
	if s.WordCount() == other.WordCount() {
		s.b.InPlaceUnion(other.b)
		return
	}
	w, ow := s.b.Words(), other.b.Words()
	for i := range min(len(w), len(ow)) {
		w[i] |= ow[i]
	}
}

// Xor applies symmetric difference with other in place.
func (s *BitSet) Xor(other *BitSet) {
	if s.WordCount() == other.WordCount() {
		s.b.InPlaceSymmetricDifference(other.b)
		return
	}
	w, ow := s.b.Words(), other.b.Words()
	for i := range min(len(w), len(ow)) {
		w[i] ^= ow[i]
	}
}

// AndNot clears in s every bit set in other.
func (s *BitSet) AndNot(other *BitSet) {
	w, ow := s.b.Words(), other.b.Words()
	for i := range min(len(w), len(ow)) {
		w[i] &^= ow[i]
	}
}

// Not inverts every word in place, padding included.
func (s *BitSet) Not() {
	words := s.b.Words()
	for i := range words {
		words[i] = ^words[i]
	}
}

// PopCount returns the number of set bits.
func (s *BitSet) PopCount() int {
	return int(s.b.Count())
}

// IsZero reports whether no bit is set.
func (s *BitSet) IsZero() bool {
	return s.b.None()
}

// Equal reports word-for-word equality. Sets of different widths are never equal.
func (s *BitSet) Equal(other *BitSet) bool {
	return s.b.Equal(other.b)
}

// ContainsAll reports whether every bit of sub is also set in s.
func (s *BitSet) ContainsAll(sub *BitSet) bool {
	return s.b.IsSuperSet(sub.b)
}

// Intersects reports whether s and other share at least one set bit.
func (s *BitSet) Intersects(other *BitSet) bool {
	w, ow := s.b.Words(), other.b.Words()
	for i := range min(len(w), len(ow)) {
		if w[i]&ow[i] != 0 {
			return true
		}
	}
	return false
}

// All yields the indices of set bits in ascending order.
func (s *BitSet) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i, ok := s.b.NextSet(0); ok; i, ok = s.b.NextSet(i + 1) {
			if !yield(int(i)) {
				return
			}
		}
	}
}

// String returns the set bits in "{a,b,c}" form.
func (s *BitSet) String() string {
	return s.b.String()
}
