// Package perm translates the legacy group bitmask into per-object view grants
// in the application store.
package perm

import (
	"iter"
	"math/bits"
)

// GroupMask is the legacy access-control bitmask. Each set bit is the code of
// one group allowed to see the row.
type GroupMask uint64

// MaskFromNullable builds a mask from a nullable legacy column. Null and
// non-positive values grant nothing.
func MaskFromNullable(code int64, valid bool) GroupMask {
	if !valid || code <= 0 {
		return 0
	}
	return GroupMask(code)
}

// Bits yields the single-bit code of every set bit, lowest first.
func (m GroupMask) Bits() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		for rest := uint64(m); rest != 0; rest &= rest - 1 {
			code := uint64(1) << bits.TrailingZeros64(rest)
			if !yield(code) {
				return
			}
		}
	}
}

// Has reports whether code is set. code must be a single bit.
func (m GroupMask) Has(code uint64) bool {
	return code != 0 && uint64(m)&code == code
}

// Codes returns the set bit codes in ascending order.
func (m GroupMask) Codes() []uint64 {
	codes := make([]uint64, 0, bits.OnesCount64(uint64(m)))
	for code := range m.Bits() {
		codes = append(codes, code)
	}
	return codes
}
