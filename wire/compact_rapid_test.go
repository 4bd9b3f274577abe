// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCompactBigRoundTripProperty checks that any canonical, positive
// "compact bits" encoding (exponent 4..32, a nonzero top mantissa byte so
// the decoded value's byte length matches the exponent exactly) survives a
// CompactToBig/BigToCompact round trip unchanged.
func TestCompactBigRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		exponent := rapid.IntRange(4, 32).Draw(rt, "exponent")
		topByte := rapid.IntRange(1, 127).Draw(rt, "topByte")
		midByte := rapid.IntRange(0, 255).Draw(rt, "midByte")
		loByte := rapid.IntRange(0, 255).Draw(rt, "loByte")

		mantissa := uint32(topByte)<<16 | uint32(midByte)<<8 | uint32(loByte)
		compact := uint32(exponent)<<24 | mantissa

		n := CompactToBig(compact)
		require.Equal(t, compact, BigToCompact(n))
	})
}
