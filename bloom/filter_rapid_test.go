// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestInsertedElementsAlwaysMatchProperty generalizes the hand-picked
// insertion test across random filter sizes, false-positive rates, tweaks,
// and element sets: whatever goes in via Insert must always come back true
// from Contains, since both share the same hashIndex computation.
func TestInsertedElementsAlwaysMatchProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := uint32(rapid.IntRange(1, 500).Draw(rt, "n"))
		p := rapid.Float64Range(0.0001, 0.5).Draw(rt, "p")
		tweak := uint32(rapid.IntRange(0, 1<<30).Draw(rt, "tweak"))
		flags := rapid.SampledFrom([]Flag{FlagNone, FlagAll, FlagPubkeyOnly}).Draw(rt, "flags")

		f := New(n, p, tweak, flags)

		count := rapid.IntRange(0, 10).Draw(rt, "count")
		elements := make([][]byte, count)
		for i := 0; i < count; i++ {
			size := rapid.IntRange(1, 64).Draw(rt, "elemSize")
			elements[i] = rapid.SliceOfN(rapid.Byte(), size, size).Draw(rt, "elem")
			f.Insert(elements[i])
		}

		for _, e := range elements {
			require.True(t, f.Contains(e))
		}
	})
}
