// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func TestBlockHeaderRoundTrip(t *testing.T) {
	h := BlockHeader{
		Version:    1,
		PrevBlock:  chainhash.HashH([]byte("prev")),
		MerkleRoot: chainhash.HashH([]byte("merkle")),
		Timestamp:  time.Unix(1231006505, 0),
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	}

	var buf bytes.Buffer
	require.NoError(t, h.Serialize(&buf))
	require.Equal(t, BlockHeaderLen, buf.Len())

	var got BlockHeader
	require.NoError(t, got.Deserialize(&buf))

	require.Equal(t, h.Version, got.Version)
	require.Equal(t, h.PrevBlock, got.PrevBlock)
	require.Equal(t, h.MerkleRoot, got.MerkleRoot)
	require.Equal(t, h.Timestamp.Unix(), got.Timestamp.Unix())
	require.Equal(t, h.Bits, got.Bits)
	require.Equal(t, h.Nonce, got.Nonce)
}

func TestBlockHeaderFromBytes(t *testing.T) {
	h := BlockHeader{
		Version:    2,
		Timestamp:  time.Unix(1500000000, 0),
		Bits:       0x1a2b3c4d,
		Nonce:      99,
	}
	b := HeaderBytes(&h)

	got, err := NewBlockHeaderFromBytes(b[:])
	require.NoError(t, err)
	require.Equal(t, h.Version, got.Version)
	require.Equal(t, h.Bits, got.Bits)
	require.Equal(t, h.Nonce, got.Nonce)
}

func TestCompactToBigRoundTrip(t *testing.T) {
	for _, compact := range []uint32{0x1d00ffff, 0x1a2b3c4d, 0x1b0404cb} {
		n := CompactToBig(compact)
		require.Equal(t, compact, BigToCompact(n))
	}
}
