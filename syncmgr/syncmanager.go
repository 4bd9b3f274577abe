// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package syncmgr drives header synchronization: issuing getheaders
// requests against the peer announcing the greatest height, tracking
// outstanding requests for timeout, and retrying against a different peer
// when one stalls.
package syncmgr

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/blockchain"
	"github.com/shellreserve/bchspv/wire"
)

// DefaultHeadersTimeout is how long we wait for a headers response before
// considering the request stalled.
const DefaultHeadersTimeout = 30 * time.Second

// request tracks one outstanding getheaders call.
type request struct {
	peer    string
	sentAt  time.Time
	stop    chainhash.Hash
}

// SyncManager drives the tree's header sync against whichever peer
// currently looks furthest ahead.
type SyncManager struct {
	tree    *blockchain.BlockTree
	timeout time.Duration
	active  *request
	peerHeight map[string]int32
}

// New creates a SyncManager driving tree.
func New(tree *blockchain.BlockTree) *SyncManager {
	return &SyncManager{
		tree:       tree,
		timeout:    DefaultHeadersTimeout,
		peerHeight: make(map[string]int32),
	}
}

// PeerAnnouncedHeight records a peer's advertised chain height, from its
// version message's last-block field.
func (m *SyncManager) PeerAnnouncedHeight(peer string, height int32) {
	m.peerHeight[peer] = height
}

// PeerDisconnected forgets a peer; if it was the target of the active
// request, the request is abandoned so a new one can be issued.
func (m *SyncManager) PeerDisconnected(peer string) {
	delete(m.peerHeight, peer)
	if m.active != nil && m.active.peer == peer {
		m.active = nil
	}
}

// bestPeer returns the tracked peer with the highest announced height,
// or "" if none are ahead of our own tip.
func (m *SyncManager) bestPeer() string {
	best := ""
	bestHeight := m.tree.Height()
	for peer, h := range m.peerHeight {
		if h > bestHeight {
			bestHeight = h
			best = peer
		}
	}
	return best
}

// NextRequest returns the peer to send a getheaders message to and the
// message itself, or ok=false if no peer is currently ahead or a request
// is already outstanding and not yet timed out.
func (m *SyncManager) NextRequest(now time.Time) (peer string, msg *wire.MsgGetHeaders, ok bool) {
	if m.active != nil && now.Sub(m.active.sentAt) < m.timeout {
		return "", nil, false
	}
	peer = m.bestPeer()
	if peer == "" {
		return "", nil, false
	}

	locators := m.tree.LocatorHashes()
	hashes := make([]*chainhash.Hash, len(locators))
	for i := range locators {
		h := locators[i]
		hashes[i] = &h
	}
	msg = &wire.MsgGetHeaders{
		ProtocolVersion:    wire.ProtocolVersion,
		BlockLocatorHashes: hashes,
	}
	m.active = &request{peer: peer, sentAt: now}
	log.Debugf("requesting headers from %s, local height %d", peer, m.tree.Height())
	return peer, msg, true
}

// ReceiveHeaders feeds a headers response into the block tree, clearing
// the outstanding request if the response came from the peer we asked.
func (m *SyncManager) ReceiveHeaders(peer string, headers []*wire.BlockHeader) (blockchain.ImportResult, int, error) {
	if m.active != nil && m.active.peer == peer {
		m.active = nil
	}
	hs := make([]wire.BlockHeader, len(headers))
	for i, h := range headers {
		hs[i] = *h
	}
	return m.tree.ImportBlocks(hs)
}

// TimedOut reports whether the active request has exceeded its timeout
// and should be retried against a different peer.
func (m *SyncManager) TimedOut(now time.Time) (peer string, ok bool) {
	if m.active == nil {
		return "", false
	}
	if now.Sub(m.active.sentAt) < m.timeout {
		return "", false
	}
	peer = m.active.peer
	m.active = nil
	log.Warnf("getheaders to %s timed out", peer)
	return peer, true
}

// Synced reports whether we believe we've caught up to every known peer.
func (m *SyncManager) Synced() bool {
	return m.bestPeer() == ""
}
