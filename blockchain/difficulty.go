// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"

	"github.com/shellreserve/bchspv/chaincfg"
	"github.com/shellreserve/bchspv/wire"
)

// clampDuration clamps d to [lo, hi].
func clampDuration(d, lo, hi int64) int64 {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// nextLegacyTarget implements the pre-hardfork Bitcoin 2016-block retarget:
// every 2016 blocks, the actual timespan of the preceding 2016 blocks is
// clamped to [target/4, target*4] and used to scale the previous target.
// Outside a retarget boundary the bits simply repeat.
func nextLegacyTarget(params *chaincfg.Params, height int32, prevBits uint32, firstBlockTime, lastBlockTime int64) uint32 {
	const interval = 2016
	if height%interval != 0 {
		return prevBits
	}

	actualTimespan := lastBlockTime - firstBlockTime
	targetTimespan := int64(params.TargetTimespan.Seconds())
	actualTimespan = clampDuration(actualTimespan, targetTimespan/4, targetTimespan*4)

	oldTarget := wire.CompactToBig(prevBits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))
	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}
	return wire.BigToCompact(newTarget)
}

// SuitableBlock is the minimal per-block data the cash-work DAA needs: its
// bits and timestamp, keyed implicitly by the caller-supplied ordering.
type SuitableBlock struct {
	Bits      uint32
	Timestamp int64
}

// medianOfThree returns the middle-timestamped of three blocks, matching
// the cash-work DAA's "suitable block" selection (get_suitable_blocks in
// the reference implementation): given three consecutive candidates, pick
// whichever has the median timestamp and return that block alone.
func medianOfThree(a, b, c SuitableBlock) SuitableBlock {
	if a.Timestamp > c.Timestamp {
		a, c = c, a
	}
	if a.Timestamp > b.Timestamp {
		a, b = b, a
	}
	if b.Timestamp > c.Timestamp {
		b, c = c, b
	}
	return b
}

// nextCashWorkTarget implements the November 2017 "cash work" DAA: the
// target is derived from the actual proof-of-work done between two
// median-of-three anchor blocks 144 blocks apart, scaled to the network's
// target spacing and clamped to [72, 288] spacing-multiples of timespan.
//
// first3 and last3 are each the three blocks ending at the first/last
// anchor (heights tip-146..tip-144 and tip-2..tip, where tip is the parent
// of the block being validated), already in chronological order.
func nextCashWorkTarget(params *chaincfg.Params, first3, last3 [3]SuitableBlock) uint32 {
	first := medianOfThree(first3[0], first3[1], first3[2])
	last := medianOfThree(last3[0], last3[1], last3[2])

	workFirst := wire.HeaderWork(first.Bits)
	workLast := wire.HeaderWork(last.Bits)
	workDone := new(big.Int).Sub(workLast, workFirst)
	if workDone.Sign() < 0 {
		workDone.SetInt64(0)
	}

	spacing := int64(params.TargetTimePerBlock.Seconds())
	actualTimespan := last.Timestamp - first.Timestamp
	actualTimespan = clampDuration(actualTimespan, 72*spacing, 288*spacing)

	projectedWork := new(big.Int).Mul(workDone, big.NewInt(spacing))
	projectedWork.Div(projectedWork, big.NewInt(actualTimespan))

	if projectedWork.Sign() <= 0 {
		return wire.BigToCompact(params.PowLimit)
	}

	newTarget := new(big.Int).Div(oneLsh256CashWork, projectedWork)
	newTarget.Sub(newTarget, bigOneBlockchain)
	if newTarget.Cmp(params.PowLimit) > 0 || newTarget.Sign() <= 0 {
		newTarget.Set(params.PowLimit)
	}
	return wire.BigToCompact(newTarget)
}

var oneLsh256CashWork = new(big.Int).Lsh(big.NewInt(1), 256)
var bigOneBlockchain = big.NewInt(1)

// asertExponentShift is 16, matching the reference implementation's
// fixed-point scale (exponent computed in units of 1/65536).
const asertExponentShift = 16

// nextASERTTarget implements ASERT: the target floats continuously toward
// whatever value would have produced one block every spacing seconds since
// the network's anchor block, using a polynomial approximation of 2^x for
// the fractional part of the exponent.
func nextASERTTarget(params *chaincfg.Params, heightDiff int32, prevTimestamp int64) uint32 {
	anchor := params.ASERTAnchor
	spacing := int64(params.TargetTimePerBlock.Seconds())
	halflife := params.ASERTHalfLife
	if halflife == 0 {
		halflife = 172800
	}

	timeDiff := prevTimestamp - anchor.PrevTimestamp
	exponent := ((timeDiff - spacing*(int64(heightDiff)+1)) << asertExponentShift) / halflife

	shifts := exponent >> asertExponentShift
	frac := exponent - (shifts << asertExponentShift)
	if frac < 0 {
		frac += 1 << asertExponentShift
		shifts--
	}

	refTarget := wire.CompactToBig(anchor.Bits)
	if refTarget.Sign() <= 0 {
		refTarget = big.NewInt(1)
	}

	// factor = 2^(frac/65536) approximated by a cubic polynomial, same
	// coefficients as the reference ASERT implementation, valid for
	// frac in [0, 65536).
	const (
		p0 = 1 << 48
		p1 = 195766423245049
		p2 = 971821376
		p3 = 5127
	)
	poly := big.NewInt(p1)
	poly.Mul(poly, big.NewInt(frac))
	t2 := big.NewInt(p2)
	t2.Mul(t2, big.NewInt(frac))
	t2.Mul(t2, big.NewInt(frac))
	poly.Add(poly, t2)
	t3 := big.NewInt(p3)
	t3.Mul(t3, big.NewInt(frac))
	t3.Mul(t3, big.NewInt(frac))
	t3.Mul(t3, big.NewInt(frac))
	poly.Add(poly, t3)
	poly.Add(poly, big.NewInt(p0))

	newTarget := new(big.Int).Mul(refTarget, poly)
	newTarget.Rsh(newTarget, 48)

	if shifts < 0 {
		newTarget.Rsh(newTarget, uint(-shifts))
	} else if shifts > 0 {
		newTarget.Lsh(newTarget, uint(shifts))
	}

	if newTarget.Sign() <= 0 {
		newTarget = big.NewInt(1)
	}
	if newTarget.Cmp(params.PowLimit) > 0 {
		newTarget.Set(params.PowLimit)
	}
	return wire.BigToCompact(newTarget)
}
