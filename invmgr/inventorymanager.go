// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package invmgr tracks transaction and block inventory: which hashes
// we've already seen (so we don't re-announce or re-request them), which
// peer to ask for a given block, and handing fetches that stall back to
// the caller to request again.
package invmgr

import (
	"bytes"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/shellreserve/bchspv/wire"
)

// DefaultSeenCacheSize bounds how many recently-seen tx hashes we keep in
// memory to suppress duplicate inv announcements.
const DefaultSeenCacheSize = 50000

// DefaultBlockFetchTimeout is how long we wait for a requested block
// before its fetch counts as timed out.
const DefaultBlockFetchTimeout = 60 * time.Second

// blockFetch tracks one outstanding getdata request for a block.
type blockFetch struct {
	peer   string
	sentAt time.Time
}

// InventoryManager tracks transaction/block inventory state: a bounded
// in-memory set of recently-seen hashes, a durable submitted-tx mirror for
// rebroadcast after a restart, and in-flight block fetches.
type InventoryManager struct {
	seen lru.Cache[chainhash.Hash]

	// submitted mirrors locally-originated transactions we want to keep
	// rebroadcasting until they confirm, surviving process restarts.
	submitted *leveldb.DB

	fetches    map[chainhash.Hash]*blockFetch
	peerRotate []string
	rotateIdx  int
}

// New creates an InventoryManager. submittedPath is the directory of the
// on-disk leveldb database holding the durable submitted-transaction
// mirror; there is no in-memory mode.
func New(submittedPath string) (*InventoryManager, error) {
	db, err := leveldb.OpenFile(submittedPath, nil)
	if err != nil {
		return nil, err
	}
	return &InventoryManager{
		seen:      lru.NewCache[chainhash.Hash](DefaultSeenCacheSize),
		submitted: db,
		fetches:   make(map[chainhash.Hash]*blockFetch),
	}, nil
}

// Close releases the durable submitted-tx store.
func (m *InventoryManager) Close() error {
	return m.submitted.Close()
}

// HaveSeen reports whether hash has already been observed (via an inv
// announcement or our own broadcast), and records it as seen either way.
func (m *InventoryManager) HaveSeen(hash chainhash.Hash) bool {
	if m.seen.Contains(hash) {
		return true
	}
	m.seen.Add(hash)
	return false
}

// Submit records a locally-originated transaction for durable rebroadcast
// tracking.
func (m *InventoryManager) Submit(tx *wire.MsgTx) error {
	hash := tx.TxHash()
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return err
	}
	return m.submitted.Put(hash[:], buf.Bytes(), nil)
}

// GetSubmitted returns a submitted transaction still in the rebroadcast
// mirror.
func (m *InventoryManager) GetSubmitted(hash chainhash.Hash) (*wire.MsgTx, bool) {
	raw, err := m.submitted.Get(hash[:], nil)
	if err != nil {
		return nil, false
	}
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, false
	}
	return tx, true
}

// Confirmed drops a transaction from the rebroadcast mirror once it has
// been seen confirmed in a block.
func (m *InventoryManager) Confirmed(hash chainhash.Hash) error {
	return m.submitted.Delete(hash[:], nil)
}

// PendingBroadcasts returns every transaction still awaiting confirmation.
func (m *InventoryManager) PendingBroadcasts() ([]*wire.MsgTx, error) {
	iter := m.submitted.NewIterator(nil, nil)
	defer iter.Release()

	var out []*wire.MsgTx
	for iter.Next() {
		tx := new(wire.MsgTx)
		r := bytes.NewReader(iter.Value())
		if err := tx.Deserialize(r); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, iter.Error()
}

// RequestBlock records a getdata request for hash sent to peer, for
// timeout tracking.
func (m *InventoryManager) RequestBlock(hash chainhash.Hash, peer string, now time.Time) {
	m.fetches[hash] = &blockFetch{peer: peer, sentAt: now}
}

// ReceivedBlock clears the fetch-tracking state for hash.
func (m *InventoryManager) ReceivedBlock(hash chainhash.Hash) {
	delete(m.fetches, hash)
}

// TimedOutFetches returns the hashes whose fetch has exceeded timeout and
// removes them from tracking so the caller can re-request them. The peer
// each fetch was sent to is not returned.
func (m *InventoryManager) TimedOutFetches(now time.Time, timeout time.Duration) []chainhash.Hash {
	var out []chainhash.Hash
	for hash, f := range m.fetches {
		if now.Sub(f.sentAt) > timeout {
			out = append(out, hash)
			delete(m.fetches, hash)
		}
	}
	return out
}

// SetPeers updates the round-robin peer rotation used by NextFetchPeer.
func (m *InventoryManager) SetPeers(peers []string) {
	m.peerRotate = peers
	m.rotateIdx = 0
}

// NextFetchPeer returns the next peer in round-robin order to request a
// block from, skipping exclude; an empty exclude skips no peer.
func (m *InventoryManager) NextFetchPeer(exclude string) (string, bool) {
	n := len(m.peerRotate)
	if n == 0 {
		return "", false
	}
	for i := 0; i < n; i++ {
		idx := (m.rotateIdx + i) % n
		if m.peerRotate[idx] != exclude {
			m.rotateIdx = (idx + 1) % n
			return m.peerRotate[idx], true
		}
	}
	return "", false
}
