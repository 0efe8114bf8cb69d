// Copyright 2021 The logstore Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import (
	"github.com/bpowers/logstore/internal/zero"
)

// Bitset is an in-memory bitmap that is conceptually similar to []bool, but more memory efficient.
// The zero value has no addressable bits; call Reset to size it.
type Bitset struct {
	bits   []uint64
	length int64
}

func getOffsets(off int64) (sliceOff int64, bitOff uint64) {
	sliceOff = off / 64
	bitOff = uint64(off) % 64
	return
}

// Set sets the bit at position `off` to 1.
func (b *Bitset) Set(off int64) {
	if off < 0 || off >= b.length {
		return
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	*u64 |= 1 << bitOff
}

// IsSet returns true if the bit at position `off` is 1.
func (b *Bitset) IsSet(off int64) bool {
	if off < 0 || off >= b.length {
		return false
	}
	sliceOff, bitOff := getOffsets(off)
	u64 := &b.bits[sliceOff]
	return *u64&(1<<bitOff) != 0
}

// Len returns the number of addressable bits.
func (b *Bitset) Len() int64 {
	return b.length
}

// Reset clears every bit and makes the bitset addressable up to length,
// reusing the existing storage when it is big enough.
func (b *Bitset) Reset(length int64) {
	sliceLen := (length + 63) / 64
	if int64(cap(b.bits)) < sliceLen {
		b.bits = make([]uint64, sliceLen)
	} else {
		b.bits = b.bits[:sliceLen]
		zero.U64(b.bits)
	}
	b.length = length
}
