// Package ring implements the identifier arithmetic of a 64-bit Chord ring
// (spec component C1): the circular interval predicate and the distance
// and finger-offset arithmetic every other component routes by.
package ring

import "fmt"

// Bits is the fixed width of the identifier space: a ring of size 2^Bits.
// A prior identifier type (internal/domain.Space) supported a
// configurable width for its de Bruijn graph; this ring is Chord-only and
// the spec fixes M=64, so the width is a constant rather than a field.
const Bits = 64

// ID is a point on the 64-bit ring. Arithmetic wraps modulo 2^64 through
// Go's native uint64 overflow, so Add/Distance need no explicit mod.
type ID uint64

// Add returns (id + n) mod 2^64.
func (id ID) Add(n uint64) ID { return ID(uint64(id) + n) }

// FingerStart returns self + 2^i, the target identifier whose successor
// populates finger_table[i].
func FingerStart(self ID, i int) ID {
	return self.Add(uint64(1) << uint(i))
}

// Distance returns (b - a) mod 2^64, the clockwise distance walking from a
// to b.
func Distance(a, b ID) ID { return ID(uint64(b) - uint64(a)) }

// Between reports whether x lies on the clockwise arc from a to b,
// excluding a, including b iff inclusiveB. When a == b the inclusive arc
// (a,a] is the entire ring minus {a}, and the open arc (a,a) is empty.
//
// Implemented as a distance comparison rather than
// byte-slice Cmp (internal/domain.ID.Between): walking clockwise from a,
// x lies in the arc iff its distance from a does not exceed b's distance
// from a.
func Between(x, a, b ID, inclusiveB bool) bool {
	if x == a {
		return false
	}
	if a == b {
		return inclusiveB
	}
	dxa := uint64(x) - uint64(a)
	dba := uint64(b) - uint64(a)
	if dxa < dba {
		return true
	}
	if dxa == dba {
		return inclusiveB
	}
	return false
}

func (id ID) String() string { return fmt.Sprintf("%016x", uint64(id)) }
