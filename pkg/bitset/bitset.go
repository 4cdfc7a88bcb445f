// Package bitset implements a fixed-size dense bit vector (used by the
// liveness pass and the register-class model) and a small bump-arena
// allocator for scratch sets and slices, which no pass in this module
// currently draws from.
//
// Grounded on fkuehnel-golang-cfg/go-code/dom.go and regalloc_scc.go,
// which lean on an `f.Cache.allocBoolSlice`/`allocInt32Slice` pool rather
// than allocating fresh slices inside every DFS/liveness call; Arena here
// offers the same kind of pool.
package bitset

import "math/bits"

const wordBits = 64

// Set is a fixed-size dense bit vector over [0, n).
type Set struct {
	n     int
	words []uint64
}

// New returns an empty Set large enough to hold bits [0, n).
func New(n int) *Set {
	return &Set{n: n, words: make([]uint64, (n+wordBits-1)/wordBits)}
}

// Len returns the number of bits the set was sized for.
func (s *Set) Len() int { return s.n }

// Set sets bit i.
func (s *Set) Set(i int) {
	s.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// Clear clears bit i.
func (s *Set) Clear(i int) {
	s.words[i/wordBits] &^= 1 << uint(i%wordBits)
}

// Has reports whether bit i is set.
func (s *Set) Has(i int) bool {
	return s.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// ClearAll resets every bit to 0 without reallocating, so a Set drawn from
// an Arena can be reused across queries.
func (s *Set) ClearAll() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// UnionWith sets s to the bitwise union of s and other. Both must share
// the same Len.
func (s *Set) UnionWith(other *Set) {
	for i := range s.words {
		s.words[i] |= other.words[i]
	}
}

// Intersects reports whether s and other share any set bit, without
// allocating an intersection set.
func (s *Set) Intersects(other *Set) bool {
	for i := range s.words {
		if s.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

// IntersectWith sets s to the bitwise intersection of s and other. Both
// must share the same Len.
func (s *Set) IntersectWith(other *Set) {
	for i := range s.words {
		s.words[i] &= other.words[i]
	}
}

// Equal reports whether s and other have identical bits set.
func (s *Set) Equal(other *Set) bool {
	if s.n != other.n {
		return false
	}
	for i := range s.words {
		if s.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// IsEmpty reports whether no bit is set.
func (s *Set) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// PopCount returns the number of set bits.
func (s *Set) PopCount() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// NextSet returns the index of the first set bit >= from, or -1 if none.
func (s *Set) NextSet(from int) int {
	if from < 0 {
		from = 0
	}
	wi := from / wordBits
	if wi >= len(s.words) {
		return -1
	}
	// Mask off bits below `from` in the first word.
	first := s.words[wi] &^ ((uint64(1) << uint(from%wordBits)) - 1)
	if from%wordBits == 0 {
		first = s.words[wi]
	}
	if first != 0 {
		return wi*wordBits + bits.TrailingZeros64(first)
	}
	for i := wi + 1; i < len(s.words); i++ {
		if s.words[i] != 0 {
			return i*wordBits + bits.TrailingZeros64(s.words[i])
		}
	}
	return -1
}

// Each calls fn for every set bit in ascending order.
func (s *Set) Each(fn func(i int)) {
	for i := s.NextSet(0); i >= 0; i = s.NextSet(i + 1) {
		fn(i)
	}
}

// Clone returns an independent copy of s.
func (s *Set) Clone() *Set {
	c := &Set{n: s.n, words: make([]uint64, len(s.words))}
	copy(c.words, s.words)
	return c
}

// Arena is a bump allocator with a size-keyed free list, handing out reset
// Sets and int32 scratch slices without round-tripping through the
// garbage collector on every pass invocation.
type Arena struct {
	freeSets  map[int][]*Set
	freeInt32 map[int][][]int32
	freeBool  map[int][][]bool
}

// NewArena returns an empty Arena.
func NewArena() *Arena {
	return &Arena{
		freeSets:  make(map[int][]*Set),
		freeInt32: make(map[int][][]int32),
		freeBool:  make(map[int][][]bool),
	}
}

// AllocSet returns a cleared Set of size n, reusing a freed one of the
// same size if available.
func (a *Arena) AllocSet(n int) *Set {
	if pool := a.freeSets[n]; len(pool) > 0 {
		s := pool[len(pool)-1]
		a.freeSets[n] = pool[:len(pool)-1]
		s.ClearAll()
		return s
	}
	return New(n)
}

// FreeSet returns s to the arena's free list for size s.Len().
func (a *Arena) FreeSet(s *Set) {
	a.freeSets[s.n] = append(a.freeSets[s.n], s)
}

// AllocInt32Slice returns a zeroed []int32 of length n, reusing a freed
// one of the same length if available.
func (a *Arena) AllocInt32Slice(n int) []int32 {
	if pool := a.freeInt32[n]; len(pool) > 0 {
		s := pool[len(pool)-1]
		a.freeInt32[n] = pool[:len(pool)-1]
		for i := range s {
			s[i] = 0
		}
		return s
	}
	return make([]int32, n)
}

// FreeInt32Slice returns s to the arena's free list for length len(s).
func (a *Arena) FreeInt32Slice(s []int32) {
	a.freeInt32[len(s)] = append(a.freeInt32[len(s)], s)
}

// AllocBoolSlice returns a zeroed []bool of length n, reusing a freed one
// of the same length if available.
func (a *Arena) AllocBoolSlice(n int) []bool {
	if pool := a.freeBool[n]; len(pool) > 0 {
		s := pool[len(pool)-1]
		a.freeBool[n] = pool[:len(pool)-1]
		for i := range s {
			s[i] = false
		}
		return s
	}
	return make([]bool, n)
}

// FreeBoolSlice returns s to the arena's free list for length len(s).
func (a *Arena) FreeBoolSlice(s []bool) {
	a.freeBool[len(s)] = append(a.freeBool[len(s)], s)
}
