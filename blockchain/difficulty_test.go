// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/chaincfg"
	"github.com/shellreserve/bchspv/wire"
)

func TestClampDuration(t *testing.T) {
	require.Equal(t, int64(10), clampDuration(5, 10, 100))
	require.Equal(t, int64(100), clampDuration(500, 10, 100))
	require.Equal(t, int64(50), clampDuration(50, 10, 100))
}

func TestNextLegacyTargetOffBoundaryRepeatsBits(t *testing.T) {
	params := &chaincfg.MainNetParams
	got := nextLegacyTarget(params, 2017, 0x1d00ffff, 0, 1000)
	require.Equal(t, uint32(0x1d00ffff), got)
}

// TestNextLegacyTargetClampsActualTimespan verifies the [T/4, T*4] clamp:
// an actual timespan far below target/4 must produce the same result as
// one exactly at target/4 (both clamp to the same floor).
func TestNextLegacyTargetClampsActualTimespan(t *testing.T) {
	params := &chaincfg.MainNetParams
	targetTimespan := int64(params.TargetTimespan.Seconds())

	atFloor := nextLegacyTarget(params, 2016, 0x1b0404cb, 0, targetTimespan/4)
	belowFloor := nextLegacyTarget(params, 2016, 0x1b0404cb, 0, targetTimespan/100)
	require.Equal(t, atFloor, belowFloor)

	atCeil := nextLegacyTarget(params, 2016, 0x1b0404cb, 0, targetTimespan*4)
	aboveCeil := nextLegacyTarget(params, 2016, 0x1b0404cb, 0, targetTimespan*100)
	require.Equal(t, atCeil, aboveCeil)
}

func TestMedianOfThreePicksMiddleTimestamp(t *testing.T) {
	a := SuitableBlock{Bits: 1, Timestamp: 300}
	b := SuitableBlock{Bits: 2, Timestamp: 100}
	c := SuitableBlock{Bits: 3, Timestamp: 200}

	got := medianOfThree(a, b, c)
	require.Equal(t, int64(200), got.Timestamp)
	require.Equal(t, uint32(3), got.Bits)
}

func TestNextCashWorkTargetClampsTimespan(t *testing.T) {
	params := &chaincfg.MainNetParams
	spacing := int64(params.TargetTimePerBlock.Seconds())

	mkFirst := func(ts int64) [3]SuitableBlock {
		return [3]SuitableBlock{
			{Bits: 0x1d00ffff, Timestamp: ts - 1},
			{Bits: 0x1d00ffff, Timestamp: ts},
			{Bits: 0x1d00ffff, Timestamp: ts + 1},
		}
	}
	mkLast := func(ts int64) [3]SuitableBlock {
		return [3]SuitableBlock{
			{Bits: 0x1b0404cb, Timestamp: ts - 1},
			{Bits: 0x1b0404cb, Timestamp: ts},
			{Bits: 0x1b0404cb, Timestamp: ts + 1},
		}
	}

	// An enormous elapsed time must clamp to the 288-spacing ceiling,
	// yielding the same (much easier) target as sitting exactly at it.
	atCeiling := nextCashWorkTarget(params, mkFirst(0), mkLast(288*spacing))
	wayOverCeiling := nextCashWorkTarget(params, mkFirst(0), mkLast(288*spacing*1000))
	require.Equal(t, atCeiling, wayOverCeiling)
}

func TestNextASERTTargetUnchangedAtAnchorPace(t *testing.T) {
	params := &chaincfg.MainNetParams
	spacing := int64(params.TargetTimePerBlock.Seconds())

	// One block after the anchor, with its timestamp exactly on the
	// expected two-block schedule (heightDiff+1 spacings since anchor):
	// the target should not move from the anchor's.
	got := nextASERTTarget(params, 1, params.ASERTAnchor.PrevTimestamp+2*spacing)
	want := wire.BigToCompact(wire.CompactToBig(params.ASERTAnchor.Bits))
	require.Equal(t, want, got)
}
