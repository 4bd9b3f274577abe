// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEmptyFilterContainsNothing exercises the degenerate case: a freshly
// built filter has every bit clear, so Contains must report false for any
// input, since the underlying bit array being all-zero forces at least
// one of Contains' hashIndex checks to miss.
func TestEmptyFilterContainsNothing(t *testing.T) {
	f := New(3, 0.01, 0, FlagNone)
	require.False(t, f.Contains([]byte{0x99, 0x08, 0x00}))
	require.False(t, f.Contains([]byte("anything")))
}

// TestInsertedElementsAlwaysMatch exercises the one property the filter
// guarantees unconditionally: whatever was Inserted is reported present.
func TestInsertedElementsAlwaysMatch(t *testing.T) {
	f := New(3, 0.01, 0, FlagNone)

	elements := [][]byte{
		{0x99, 0x08, 0x00},
		{0xb5, 0xa2, 0xc7},
		{0xb9, 0xf0, 0x69},
	}
	for _, e := range elements {
		f.Insert(e)
	}
	for _, e := range elements {
		require.True(t, f.Contains(e))
	}
}

func TestFilterRoundTripThroughWire(t *testing.T) {
	f := New(10, 0.001, 42, FlagAll)
	f.Insert([]byte("hello"))

	msg := ToFilterLoad(f)
	reloaded := NewFromWire(msg.Filter, msg.HashFuncs, msg.Tweak, Flag(msg.Flags))

	require.True(t, reloaded.Equal(f))
	require.True(t, reloaded.Contains([]byte("hello")))
}
