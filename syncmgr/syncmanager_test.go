// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package syncmgr

import (
	"math/big"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/blockchain"
	"github.com/shellreserve/bchspv/chaincfg"
	"github.com/shellreserve/bchspv/wire"
)

func hashToBig(hash chainhash.Hash) *big.Int {
	var buf [chainhash.HashSize]byte
	for i := 0; i < chainhash.HashSize; i++ {
		buf[i] = hash[chainhash.HashSize-1-i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// mineChild mirrors the block tree's own test helper: regtest's proof-of-work
// target covers half of the 256-bit space, so a linear nonce search
// converges almost immediately and deterministically.
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

func newTestManager(t *testing.T) (*SyncManager, *blockchain.BlockTree) {
	params := chaincfg.RegressionNetParams
	tree, err := blockchain.NewBlockTree(&params)
	require.NoError(t, err)
	return New(tree), tree
}

func TestNextRequestRequiresAPeerAhead(t *testing.T) {
	m, _ := newTestManager(t)
	_, _, ok := m.NextRequest(time.Now())
	require.False(t, ok, "no peer has announced a height yet")

	m.PeerAnnouncedHeight("peer1", 10)
	peer, msg, ok := m.NextRequest(time.Now())
	require.True(t, ok)
	require.Equal(t, "peer1", peer)
	require.NotEmpty(t, msg.BlockLocatorHashes)
}

func TestNextRequestWithholdsWhileActive(t *testing.T) {
	m, _ := newTestManager(t)
	m.PeerAnnouncedHeight("peer1", 10)

	now := time.Now()
	_, _, ok := m.NextRequest(now)
	require.True(t, ok)

	// A second peer announcing ahead must not trigger a second request
	// while the first is still within its timeout.
	m.PeerAnnouncedHeight("peer2", 20)
	_, _, ok = m.NextRequest(now.Add(time.Second))
	require.False(t, ok)
}

func TestTimedOutFreesTheActiveRequest(t *testing.T) {
	m, _ := newTestManager(t)
	m.PeerAnnouncedHeight("peer1", 10)

	now := time.Now()
	_, _, ok := m.NextRequest(now)
	require.True(t, ok)

	_, ok = m.TimedOut(now.Add(m.timeout - time.Second))
	require.False(t, ok)

	peer, ok := m.TimedOut(now.Add(m.timeout + time.Second))
	require.True(t, ok)
	require.Equal(t, "peer1", peer)

	// Once timed out, a fresh request can be issued immediately.
	_, _, ok = m.NextRequest(now.Add(m.timeout + time.Second))
	require.True(t, ok)
}

func TestReceiveHeadersAdvancesTreeAndClearsActive(t *testing.T) {
	m, tree := newTestManager(t)
	m.PeerAnnouncedHeight("peer1", 1)

	now := time.Now()
	_, _, ok := m.NextRequest(now)
	require.True(t, ok)

	genesis, ok2 := tree.GetBlock(tree.TipHash())
	require.True(t, ok2)
	child := mineChild(t, genesis, genesis.Bits, genesis.Timestamp.Add(time.Minute))

	result, failedAt, err := m.ReceiveHeaders("peer1", []*wire.BlockHeader{&child})
	require.NoError(t, err)
	require.Equal(t, -1, failedAt)
	require.IsType(t, blockchain.TipChanged{}, result)

	// The request peer1 was asked against must now read as no longer active.
	_, ok = m.TimedOut(now.Add(time.Hour))
	require.False(t, ok)
}

func TestSyncedReportsNoPeerAhead(t *testing.T) {
	m, _ := newTestManager(t)
	require.True(t, m.Synced())

	m.PeerAnnouncedHeight("peer1", 5)
	require.False(t, m.Synced())
}

func TestPeerDisconnectedAbandonsItsActiveRequest(t *testing.T) {
	m, _ := newTestManager(t)
	m.PeerAnnouncedHeight("peer1", 10)

	now := time.Now()
	_, _, ok := m.NextRequest(now)
	require.True(t, ok)

	m.PeerDisconnected("peer1")
	_, ok = m.TimedOut(now.Add(time.Hour))
	require.False(t, ok, "the request to peer1 was abandoned, so it cannot time out")
	_, _, ok = m.NextRequest(now.Add(time.Second))
	require.False(t, ok, "peer1 was forgotten, so there is no longer a peer ahead")
}
