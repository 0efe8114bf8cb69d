// Copyright 2021 The logstore Authors and Caleb Spare. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitset(t *testing.T) {
	var b Bitset
	b.Reset(128)

	require.Equal(t, 2, len(b.bits))
	require.Equal(t, int64(128), b.Len())

	// should do nothing
	b.Set(132)
	b.Set(-1)

	zero := []uint64{0, 0}
	require.Equal(t, zero, b.bits)

	require.False(t, b.IsSet(7))
	b.Set(7)
	require.True(t, b.IsSet(7))
	b.Set(8)
	require.True(t, b.IsSet(8))
	require.False(t, b.IsSet(-1))
	require.False(t, b.IsSet(500))

	for i := int64(0); i < 128; i++ {
		b.Set(i)
	}

	full := []uint64{^uint64(0), ^uint64(0)}
	require.Equal(t, full, b.bits)
}

func TestBitset_Reset(t *testing.T) {
	var b Bitset
	b.Reset(64)
	b.Set(3)
	b.Set(63)

	// shrinking reuses storage and clears everything
	b.Reset(10)
	require.Equal(t, int64(10), b.Len())
	require.Equal(t, []uint64{0}, b.bits)
	require.False(t, b.IsSet(3))
	b.Set(9)
	require.True(t, b.IsSet(9))

	// growing past capacity allocates
	b.Reset(200)
	require.Equal(t, int64(200), b.Len())
	require.Equal(t, 4, len(b.bits))
	require.False(t, b.IsSet(9))
	b.Set(199)
	require.True(t, b.IsSet(199))

	var empty Bitset
	empty.Reset(1)
	empty.Set(0)
	require.True(t, empty.IsSet(0))
}
