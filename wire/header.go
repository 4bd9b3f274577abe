// Copyright (c) 2013-2024 The btcsuite developers
// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"math/big"
)

// BlockHeaderLen is the serialized length of a block header: version,
// previous hash, merkle root, timestamp, bits, nonce. The header store's
// fixed record size depends on it never changing.
const BlockHeaderLen = 80

// HeaderBytes returns the fixed-width serialization of h, for callers
// (the header store) that need a sized array rather than a stream.
func HeaderBytes(h *BlockHeader) [BlockHeaderLen]byte {
	var buf bytes.Buffer
	buf.Grow(BlockHeaderLen)
	// Serializing into a bytes.Buffer cannot fail.
	_ = h.Serialize(&buf)
	var out [BlockHeaderLen]byte
	copy(out[:], buf.Bytes())
	return out
}

// NewBlockHeaderFromBytes deserializes a header from its fixed-width
// encoding.
func NewBlockHeaderFromBytes(b []byte) (*BlockHeader, error) {
	h := new(BlockHeader)
	if err := h.Deserialize(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return h, nil
}

// CompactToBig converts a compact target representation (the "bits" field)
// to a big.Int, following Bitcoin's mantissa/exponent convention.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := compact >> 24

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(uint(exponent)-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a big.Int target to its compact "bits"
// representation, truncating precision the same way Bitcoin consensus code
// does.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// oneLsh256 is 2^256, the numerator of HeaderWork.
var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// HeaderWork returns the amount of work represented by this header's target,
// defined as floor(2^256 / (target+1)).
func HeaderWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denom := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denom)
}
