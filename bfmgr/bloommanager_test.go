// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bfmgr

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/bloom"
	"github.com/shellreserve/bchspv/wire"
)

// singleTxMerkleBlock builds a valid one-transaction merkle block whose
// sole transaction matched the filter. With one transaction, the merkle
// root is the txid itself.
func singleTxMerkleBlock(seed byte) (*wire.MsgMerkleBlock, chainhash.Hash) {
	var txid chainhash.Hash
	for i := range txid {
		txid[i] = seed
	}
	return &wire.MsgMerkleBlock{
		Header:       wire.BlockHeader{MerkleRoot: txid},
		Transactions: 1,
		Hashes:       []*chainhash.Hash{&txid},
		Flags:        []byte{0x01},
	}, txid
}

func TestHandleMerkleBlockRejectsRootMismatch(t *testing.T) {
	m := New()
	mb, _ := singleTxMerkleBlock(0xaa)
	mb.Header.MerkleRoot[0] ^= 0xff

	_, err := m.HandleMerkleBlock(0, mb)
	require.ErrorIs(t, err, ErrMerkleRootMismatch)
}

func TestProcessConsumesInHeightOrder(t *testing.T) {
	m := New()
	end := int32(2)
	m.Rescan.Restart(0, &end)
	m.Rescan.Requests(0, 2)

	mb0, txid0 := singleTxMerkleBlock(0x01)
	mb1, txid1 := singleTxMerkleBlock(0x02)
	mb2, txid2 := singleTxMerkleBlock(0x03)

	// Heights 1 and 2 arrive before 0: nothing can be consumed yet.
	_, err := m.HandleMerkleBlock(1, mb1)
	require.NoError(t, err)
	_, err = m.HandleMerkleBlock(2, mb2)
	require.NoError(t, err)

	processed, stopped := m.Process()
	require.Empty(t, processed)
	require.False(t, stopped)

	// Height 0 fills the gap; everything drains in order and the scan
	// stops at its end height.
	_, err = m.HandleMerkleBlock(0, mb0)
	require.NoError(t, err)

	processed, stopped = m.Process()
	require.True(t, stopped)
	require.False(t, m.Rescan.Active)
	require.Len(t, processed, 3)
	require.Equal(t, []chainhash.Hash{txid0}, processed[0].Matched)
	require.Equal(t, []chainhash.Hash{txid1}, processed[1].Matched)
	require.Equal(t, []chainhash.Hash{txid2}, processed[2].Matched)
	for i, pb := range processed {
		require.Equal(t, int32(i), pb.Height)
		require.False(t, pb.Cached)
	}
}

func TestProcessMarksCacheSatisfiedHeights(t *testing.T) {
	m := New()
	end := int32(0)

	// First scan populates the cache at height 0.
	m.Rescan.Restart(0, &end)
	m.Rescan.Requests(0, 0)
	mb, _ := singleTxMerkleBlock(0x07)
	_, err := m.HandleMerkleBlock(0, mb)
	require.NoError(t, err)
	_, stopped := m.Process()
	require.True(t, stopped)

	// A second scan over the same range is satisfied from the cache:
	// Requests returns nothing and Process reports the block as cached.
	m.Rescan.Restart(0, &end)
	require.Empty(t, m.Rescan.Requests(0, 0))

	processed, stopped := m.Process()
	require.True(t, stopped)
	require.Len(t, processed, 1)
	require.True(t, processed[0].Cached)
	require.Len(t, processed[0].Matched, 1)
}

func TestRollbackRewindsCursorAndDropsState(t *testing.T) {
	m := New()
	m.Rescan.Restart(0, nil)
	m.Rescan.Requests(0, 3)

	for h := int32(0); h <= 3; h++ {
		mb, _ := singleTxMerkleBlock(byte(h + 1))
		_, err := m.HandleMerkleBlock(h, mb)
		require.NoError(t, err)
	}
	processed, _ := m.Process()
	require.Len(t, processed, 4)
	require.Equal(t, int32(4), m.Rescan.Current)

	m.Rollback(1)
	require.Equal(t, int32(2), m.Rescan.Current)
	require.False(t, m.Rescan.HasReceived(2))
	require.False(t, m.Rescan.HasReceived(3))
	_, hit := m.Rescan.Cache.Get(3)
	require.False(t, hit)

	// The rolled-back heights are requestable again.
	got := m.Rescan.Requests(0, 3)
	require.Equal(t, []HeightRange{{Start: 2, End: 3}}, got)
}

func TestFilterRosterTracking(t *testing.T) {
	m := New()
	m.RegisterPeer("b")
	m.RegisterPeer("a")

	require.Equal(t, []string{"a", "b"}, m.NotFilterLoaded())

	f := bloom.New(10, 0.001, 0, bloom.FlagAll)
	m.LoadFilter(f)

	msg, ok := m.NeedsLoad("a")
	require.True(t, ok)
	require.NotNil(t, msg)
	m.MarkLoaded("a")
	require.Equal(t, []string{"b"}, m.NotFilterLoaded())

	// Reloading the filter requires pushing it to everyone again.
	m.LoadFilter(f)
	require.Equal(t, []string{"a", "b"}, m.NotFilterLoaded())

	m.PeerDisconnected("a")
	require.Equal(t, []string{"b"}, m.NotFilterLoaded())
}

func TestMatchesTxAgainstWatchedScriptsAndFilter(t *testing.T) {
	m := New()
	script := []byte{0x76, 0xa9, 0x14, 0x01, 0x02}
	tx := &wire.MsgTx{
		Version: 1,
		TxOut:   []*wire.TxOut{{Value: 1000, PkScript: script}},
	}

	require.False(t, m.MatchesTx(tx))

	m.Rescan.Watches(script)
	require.True(t, m.MatchesTx(tx))

	// A filter containing the txid also matches, independent of the
	// watch set.
	m2 := New()
	f := bloom.New(2, 0.001, 0, bloom.FlagAll)
	hash := tx.TxHash()
	f.Insert(hash[:])
	m2.LoadFilter(f)
	require.True(t, m2.MatchesTx(tx))
}
