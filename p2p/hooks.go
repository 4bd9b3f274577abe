// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/wire"
)

// Hooks lets an embedder observe state machine activity without forking
// its logic; every field is optional. Carried over from the upstream
// nakamoto design, where the equivalent hook set lets a host application
// wire in wallet-level bookkeeping (e.g. marking coins spent) without
// the core depending on wallet code.
type Hooks struct {
	// OnMessage observes every inbound message before dispatch.
	OnMessage func(addr string, msg wire.Message)
	// OnVersion can veto a peer's version message; a non-nil error
	// disconnects the peer with PeerMisbehaving.
	OnVersion func(addr string, v *wire.MsgVersion) error
	// OnGetData observes inbound getdata requests.
	OnGetData func(addr string, msg *wire.MsgGetData)

	OnPeerNegotiated   func(addr string)
	OnPeerDisconnected func(addr string, reason DisconnectReason)
	OnBlockProcessed   func(hash chainhash.Hash, height int32)
	OnMatchedTx        func(blockHash chainhash.Hash, height int32, txHash chainhash.Hash)
}

func (h Hooks) message(addr string, msg wire.Message) {
	if h.OnMessage != nil {
		h.OnMessage(addr, msg)
	}
}

func (h Hooks) version(addr string, v *wire.MsgVersion) error {
	if h.OnVersion != nil {
		return h.OnVersion(addr, v)
	}
	return nil
}

func (h Hooks) getData(addr string, msg *wire.MsgGetData) {
	if h.OnGetData != nil {
		h.OnGetData(addr, msg)
	}
}

func (h Hooks) peerNegotiated(addr string) {
	if h.OnPeerNegotiated != nil {
		h.OnPeerNegotiated(addr)
	}
}

func (h Hooks) peerDisconnected(addr string, reason DisconnectReason) {
	if h.OnPeerDisconnected != nil {
		h.OnPeerDisconnected(addr, reason)
	}
}

func (h Hooks) blockProcessed(hash chainhash.Hash, height int32) {
	if h.OnBlockProcessed != nil {
		h.OnBlockProcessed(hash, height)
	}
}

func (h Hooks) matchedTx(blockHash chainhash.Hash, height int32, txHash chainhash.Hash) {
	if h.OnMatchedTx != nil {
		h.OnMatchedTx(blockHash, height, txHash)
	}
}
