// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package invmgr

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/wire"
)

func newTestManager(t *testing.T) *InventoryManager {
	m, err := New(filepath.Join(t.TempDir(), "submitted.ldb"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func testTx(lockTime uint32) *wire.MsgTx {
	return &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0},
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{
			Value:    5000,
			PkScript: []byte{0x76, 0xa9, 0x14},
		}},
		LockTime: lockTime,
	}
}

func TestHaveSeenMarksAfterFirstCall(t *testing.T) {
	m := newTestManager(t)
	hash := chainhash.HashH([]byte("tx1"))

	require.False(t, m.HaveSeen(hash), "first observation must report unseen")
	require.True(t, m.HaveSeen(hash), "second observation of the same hash must report seen")
}

func TestSubmitAndPendingBroadcastsRoundTrip(t *testing.T) {
	m := newTestManager(t)
	tx := testTx(1)

	require.NoError(t, m.Submit(tx))
	pending, err := m.PendingBroadcasts()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, tx.TxHash(), pending[0].TxHash())
}

func TestConfirmedRemovesFromPending(t *testing.T) {
	m := newTestManager(t)
	tx := testTx(2)
	require.NoError(t, m.Submit(tx))

	require.NoError(t, m.Confirmed(tx.TxHash()))
	pending, err := m.PendingBroadcasts()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestTimedOutFetchesClearsTrackedEntry(t *testing.T) {
	m := newTestManager(t)
	hash := chainhash.HashH([]byte("block1"))
	now := time.Now()

	m.RequestBlock(hash, "peer1", now)
	require.Empty(t, m.TimedOutFetches(now.Add(time.Second), time.Minute))

	timedOut := m.TimedOutFetches(now.Add(2*time.Minute), time.Minute)
	require.Equal(t, []chainhash.Hash{hash}, timedOut)

	// Once returned, the fetch is no longer tracked and won't repeat.
	require.Empty(t, m.TimedOutFetches(now.Add(3*time.Minute), time.Minute))
}

func TestReceivedBlockClearsTrackedEntry(t *testing.T) {
	m := newTestManager(t)
	hash := chainhash.HashH([]byte("block1"))
	now := time.Now()

	m.RequestBlock(hash, "peer1", now)
	m.ReceivedBlock(hash)

	require.Empty(t, m.TimedOutFetches(now.Add(time.Hour), time.Minute))
}

func TestNextFetchPeerRotatesAndExcludes(t *testing.T) {
	m := newTestManager(t)
	m.SetPeers([]string{"a", "b", "c"})

	p, ok := m.NextFetchPeer("")
	require.True(t, ok)
	require.Equal(t, "a", p)

	p, ok = m.NextFetchPeer("")
	require.True(t, ok)
	require.Equal(t, "b", p)

	// Excluding the next-in-line peer skips straight to the one after it.
	p, ok = m.NextFetchPeer("c")
	require.True(t, ok)
	require.Equal(t, "a", p)
}

func TestNextFetchPeerEmptyRotation(t *testing.T) {
	m := newTestManager(t)
	_, ok := m.NextFetchPeer("")
	require.False(t, ok)
}

func TestGetSubmittedReturnsStoredTransaction(t *testing.T) {
	m := newTestManager(t)
	tx := testTx(9)

	_, ok := m.GetSubmitted(tx.TxHash())
	require.False(t, ok)

	require.NoError(t, m.Submit(tx))
	got, ok := m.GetSubmitted(tx.TxHash())
	require.True(t, ok)
	require.Equal(t, tx.TxHash(), got.TxHash())
}
