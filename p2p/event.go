// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package p2p composes the sub-managers (sync, inventory, ping, address,
// bloom, peer) into a single cooperative, single-threaded state machine:
// every inbound message or timer tick produces a deterministic, ordered
// sequence of outbound actions on the Outbox. There is no compact-filter
// manager in this composition; BCH has no deployed BIP-157/158 service
// for one to drive.
package p2p

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/blockchain"
	"github.com/shellreserve/bchspv/wire"
)

// Event is something the state machine reports to its caller, distinct
// from the messages/timers it sends via the Outbox.
type Event interface {
	eventTag()
}

type Initializing struct{}

func (Initializing) eventTag() {}

// Ready is emitted once after initialization completes.
type Ready struct {
	Tip       chainhash.Hash
	FilterTip chainhash.Hash
	Time      time.Time
}

func (Ready) eventTag() {}

type PeerConnected struct{ Addr string }

func (PeerConnected) eventTag() {}

// PeerNegotiated is emitted once a peer's version handshake completes in
// both directions.
type PeerNegotiated struct {
	Addr            string
	Services        wire.ServiceFlag
	ProtocolVersion uint32
	UserAgent       string
	StartHeight     int32
}

func (PeerNegotiated) eventTag() {}

type PeerDisconnected struct {
	Addr   string
	Reason DisconnectReason
}

func (PeerDisconnected) eventTag() {}

type MessageReceived struct {
	Addr    string
	Message wire.Message
}

func (MessageReceived) eventTag() {}

// BlockHeadersSynced is emitted when SyncManager believes it has caught
// up to every peer's announced height.
type BlockHeadersSynced struct{ Height int32 }

func (BlockHeadersSynced) eventTag() {}

// BlockProcessed is emitted after a header is durably imported into the
// tree and, if applicable, persisted to the HeaderStore. It is also
// emitted when a full block arrives, with Height -1 if that block is not
// on the active chain.
type BlockProcessed struct {
	Hash   chainhash.Hash
	Height int32
}

func (BlockProcessed) eventTag() {}

type ReceivedMerkleBlock struct {
	Addr   string
	Height int32
}

func (ReceivedMerkleBlock) eventTag() {}

type MerkleBlockProcessed struct {
	Height  int32
	Matched []chainhash.Hash
	Cached  bool
}

func (MerkleBlockProcessed) eventTag() {}

// MerkleBlockScanStarted is emitted once per getdata batch issued to a
// peer during a rescan.
type MerkleBlockScanStarted struct {
	Start int32
	Stop  int32
	Peer  string
}

func (MerkleBlockScanStarted) eventTag() {}

type MerkleBlockRescanStopped struct{ At int32 }

func (MerkleBlockRescanStopped) eventTag() {}

type ReceivedMatchedTx struct {
	BlockHash chainhash.Hash
	Height    int32
	TxHash    chainhash.Hash
}

func (ReceivedMatchedTx) eventTag() {}

// tipChangedToEvents converts a BlockTree import result into zero or more
// BlockProcessed events, one per newly connected header.
func tipChangedToEvents(result blockchain.ImportResult, heightOf func(chainhash.Hash) int32) []Event {
	tc, ok := result.(blockchain.TipChanged)
	if !ok {
		return nil
	}
	out := make([]Event, 0, len(tc.Connected))
	for _, h := range tc.Connected {
		out = append(out, BlockProcessed{Hash: h, Height: heightOf(h)})
	}
	return out
}
