// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/chaincfg"
	"github.com/shellreserve/bchspv/wire"
)

// mineChild returns a valid header extending prev, trying nonces until one
// satisfies the (very easy) regtest proof-of-work target. Regtest's target
// covers half of the 256-bit space, so this converges almost immediately.
func mineChild(t *testing.T, prev wire.BlockHeader, bits uint32, timestamp time.Time) wire.BlockHeader {
	h := wire.BlockHeader{
		Version:    1,
		PrevBlock:  prev.BlockHash(),
		MerkleRoot: chainhash.HashH([]byte("merkle")),
		Timestamp:  timestamp,
		Bits:       bits,
	}
	target := wire.CompactToBig(bits)
	for nonce := uint32(0); nonce < 1_000_000; nonce++ {
		h.Nonce = nonce
		if hashToBig(h.BlockHash()).Cmp(target) <= 0 {
			return h
		}
	}
	t.Fatal("could not mine a valid regtest header")
	return h
}

func newTestTree(t *testing.T) (*BlockTree, *chaincfg.Params) {
	params := chaincfg.RegressionNetParams
	tree, err := NewBlockTree(&params)
	require.NoError(t, err)
	return tree, &params
}

func TestNewBlockTreeSeedsGenesis(t *testing.T) {
	tree, params := newTestTree(t)
	require.Equal(t, int32(0), tree.Height())
	require.Equal(t, params.GenesisHash, tree.TipHash())
}

func TestExtendTipSimpleChain(t *testing.T) {
	tree, params := newTestTree(t)

	prev := params.GenesisHeader
	ts := prev.Timestamp
	for i := 0; i < 5; i++ {
		ts = ts.Add(time.Minute)
		h := mineChild(t, prev, params.PowLimitBits, ts)
		result, err := tree.ExtendTip(h)
		require.NoError(t, err)
		require.IsType(t, TipChanged{}, result)
		prev = h
	}
	require.Equal(t, int32(5), tree.Height())
	require.Equal(t, prev.BlockHash(), tree.TipHash())
}

func TestExtendTipRejectsDuplicate(t *testing.T) {
	tree, params := newTestTree(t)
	h := mineChild(t, params.GenesisHeader, params.PowLimitBits, params.GenesisHeader.Timestamp.Add(time.Minute))

	_, err := tree.ExtendTip(h)
	require.NoError(t, err)

	_, err = tree.ExtendTip(h)
	require.Error(t, err)
}

func TestExtendTipParksOrphan(t *testing.T) {
	tree, params := newTestTree(t)

	block1 := mineChild(t, params.GenesisHeader, params.PowLimitBits, params.GenesisHeader.Timestamp.Add(time.Minute))
	block2 := mineChild(t, block1, params.PowLimitBits, block1.Timestamp.Add(time.Minute))

	// Submit block2 before block1: its parent is unknown, so it must be
	// parked as an orphan rather than rejected outright losing the data.
	_, err := tree.ExtendTip(block2)
	require.Error(t, err)
	require.Equal(t, int32(0), tree.Height())

	// Now submit block1; block2 should be resolved automatically and the
	// tip should land on block2.
	_, err = tree.ExtendTip(block1)
	require.NoError(t, err)
	require.Equal(t, block2.BlockHash(), tree.TipHash())
	require.Equal(t, int32(2), tree.Height())
}

func TestReorgSwitchesToMoreWork(t *testing.T) {
	tree, params := newTestTree(t)

	// Build the initial one-block active chain.
	blockA := mineChild(t, params.GenesisHeader, params.PowLimitBits, params.GenesisHeader.Timestamp.Add(time.Minute))
	_, err := tree.ExtendTip(blockA)
	require.NoError(t, err)

	// A competing two-block branch off genesis carries strictly more
	// cumulative work and must become the new active chain.
	blockB1 := mineChild(t, params.GenesisHeader, params.PowLimitBits, params.GenesisHeader.Timestamp.Add(2*time.Minute))
	blockB2 := mineChild(t, blockB1, params.PowLimitBits, blockB1.Timestamp.Add(time.Minute))

	_, err = tree.ExtendTip(blockB1)
	require.NoError(t, err)
	result, err := tree.ExtendTip(blockB2)
	require.NoError(t, err)

	tc, ok := result.(TipChanged)
	require.True(t, ok)
	require.Equal(t, []chainhash.Hash{blockA.BlockHash()}, tc.Reverted)
	require.Equal(t, blockB2.BlockHash(), tree.TipHash())
	require.Equal(t, int32(2), tree.Height())
}

func TestCheckpointAllowsForwardSyncThroughIt(t *testing.T) {
	// Mine the chain first against an unrestricted tree so the checkpoint
	// hash is known, then replay it through a checkpointed tree.
	scratch, params := newTestTree(t)
	prev := params.GenesisHeader
	ts := prev.Timestamp
	var headers []wire.BlockHeader
	for i := 0; i < 4; i++ {
		ts = ts.Add(time.Minute)
		h := mineChild(t, prev, params.PowLimitBits, ts)
		_, err := scratch.ExtendTip(h)
		require.NoError(t, err)
		headers = append(headers, h)
		prev = h
	}

	cpParams := *params
	cpParams.Checkpoints = []chaincfg.Checkpoint{{Height: 2, Hash: headers[1].BlockHash()}}
	tree, err := NewBlockTree(&cpParams)
	require.NoError(t, err)

	// First-time sync must walk straight through the checkpoint height.
	for _, h := range headers {
		_, err := tree.ExtendTip(h)
		require.NoError(t, err)
	}
	require.Equal(t, int32(4), tree.Height())
}

func TestCheckpointRejectsWrongHashAtHeight(t *testing.T) {
	_, params := newTestTree(t)
	block1 := mineChild(t, params.GenesisHeader, params.PowLimitBits, params.GenesisHeader.Timestamp.Add(time.Minute))
	block2 := mineChild(t, block1, params.PowLimitBits, block1.Timestamp.Add(time.Minute))

	cpParams := *params
	cpParams.Checkpoints = []chaincfg.Checkpoint{{Height: 2, Hash: chainhash.HashH([]byte("not the block"))}}
	tree, err := NewBlockTree(&cpParams)
	require.NoError(t, err)

	_, err = tree.ExtendTip(block1)
	require.NoError(t, err)
	_, err = tree.ExtendTip(block2)
	require.Error(t, err)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, ErrInvalidBlockHash, terr.Code)
}

func TestCheckpointForbidsForksBelowIt(t *testing.T) {
	scratch, params := newTestTree(t)
	prev := params.GenesisHeader
	ts := prev.Timestamp
	var headers []wire.BlockHeader
	for i := 0; i < 3; i++ {
		ts = ts.Add(time.Minute)
		h := mineChild(t, prev, params.PowLimitBits, ts)
		_, err := scratch.ExtendTip(h)
		require.NoError(t, err)
		headers = append(headers, h)
		prev = h
	}

	cpParams := *params
	cpParams.Checkpoints = []chaincfg.Checkpoint{{Height: 2, Hash: headers[1].BlockHash()}}
	tree, err := NewBlockTree(&cpParams)
	require.NoError(t, err)
	for _, h := range headers {
		_, err := tree.ExtendTip(h)
		require.NoError(t, err)
	}

	// A competing header attaching below the passed checkpoint is final
	// history and must be refused, however much work its branch claims.
	fork := mineChild(t, params.GenesisHeader, params.PowLimitBits, params.GenesisHeader.Timestamp.Add(5*time.Minute))
	_, err = tree.ExtendTip(fork)
	require.Error(t, err)
	var terr *Error
	require.ErrorAs(t, err, &terr)
	require.Equal(t, ErrInvalidBlockHeight, terr.Code)

	// Forking above the checkpoint is still allowed.
	above := mineChild(t, headers[1], params.PowLimitBits, headers[1].Timestamp.Add(7*time.Minute))
	_, err = tree.ExtendTip(above)
	require.NoError(t, err)
}

func TestLocateHeadersReturnsAfterCommonAncestor(t *testing.T) {
	tree, params := newTestTree(t)

	prev := params.GenesisHeader
	ts := prev.Timestamp
	var headers []wire.BlockHeader
	for i := 0; i < 3; i++ {
		ts = ts.Add(time.Minute)
		h := mineChild(t, prev, params.PowLimitBits, ts)
		_, err := tree.ExtendTip(h)
		require.NoError(t, err)
		headers = append(headers, h)
		prev = h
	}

	got := tree.LocateHeaders([]chainhash.Hash{params.GenesisHash}, chainhash.Hash{}, 100)
	require.Len(t, got, 3)
	for i, h := range headers {
		require.Equal(t, h.BlockHash(), got[i].BlockHash())
	}
}
