// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/wire"
)

// ErrNotConnected is returned by commands that require at least one peer
// (e.g. SubmitTransaction) when none are connected.
var ErrNotConnected = errors.New("p2p: not connected to any peers")

// ErrInvalidRange is returned by rescan/filter-range commands whose
// start/end heights are malformed.
var ErrInvalidRange = errors.New("p2p: invalid height range")

// Command is the external input interface to the state machine: every
// caller-initiated action arrives as one of these, processed synchronously
// by Command. Query commands carry a Reply callback which is invoked,
// still synchronously, before Command returns; the state machine is
// single-threaded, so channel-based replies would deadlock the caller.
type Command interface {
	commandTag()
}

// PeerInfo is the per-peer snapshot returned by GetPeers.
type PeerInfo struct {
	Addr            string
	Inbound         bool
	Services        wire.ServiceFlag
	ProtocolVersion uint32
	UserAgent       string
	StartHeight     int32
	Relay           bool
	HasFilter       bool
	Latency         time.Duration
}

type GetBlock struct {
	Hash  chainhash.Hash
	Reply func(wire.BlockHeader, bool)
}

func (GetBlock) commandTag() {}

type GetBlockByHeight struct {
	Height int32
	Reply  func(wire.BlockHeader, bool)
}

func (GetBlockByHeight) commandTag() {}

type GetPeers struct {
	Reply func([]PeerInfo)
}

func (GetPeers) commandTag() {}

type GetTip struct {
	Reply func(chainhash.Hash, int32)
}

func (GetTip) commandTag() {}

// RequestBlock asks a NETWORK-capable peer for the full block.
type RequestBlock struct{ Hash chainhash.Hash }

func (RequestBlock) commandTag() {}

// RequestFilters requests merkle blocks over a height range from peers
// without restarting the rescan cursor.
type RequestFilters struct {
	Start, End int32
	Reply      func(error)
}

func (RequestFilters) commandTag() {}

type Rescan struct {
	Start int32
	End   *int32
}

func (Rescan) commandTag() {}

type MerkleBlockRescan struct {
	Start int32
	End   *int32
}

func (MerkleBlockRescan) commandTag() {}

type Watch struct{ Scripts [][]byte }

func (Watch) commandTag() {}

// Broadcast sends a raw message to every negotiated peer.
type Broadcast struct {
	Message wire.Message
	Reply   func(peers []string)
}

func (Broadcast) commandTag() {}

type QueryTree struct {
	Lo, Hi int32
	Reply  func([]wire.BlockHeader)
}

func (QueryTree) commandTag() {}

type ConnectCmd struct{ Addr string }

func (ConnectCmd) commandTag() {}

type DisconnectCmd struct{ Addr string }

func (DisconnectCmd) commandTag() {}

type ImportHeaders struct {
	Headers []wire.BlockHeader
	Reply   func(error)
}

func (ImportHeaders) commandTag() {}

type ImportAddresses struct{ Addrs []*wire.NetAddress }

func (ImportAddresses) commandTag() {}

type SubmitTransaction struct {
	Tx    *wire.MsgTx
	Reply func(error)
}

func (SubmitTransaction) commandTag() {}

type GetSubmittedTransaction struct {
	Hash  chainhash.Hash
	Reply func(*wire.MsgTx, bool)
}

func (GetSubmittedTransaction) commandTag() {}

type LoadBloomFilter struct {
	Content   []byte
	HashFuncs uint32
	Tweak     uint32
	Flags     byte
}

func (LoadBloomFilter) commandTag() {}

type GetMempool struct{}

func (GetMempool) commandTag() {}

type GetPeersNotBloomFiltered struct {
	Reply func([]string)
}

func (GetPeersNotBloomFiltered) commandTag() {}

type BloomFilterClear struct{}

func (BloomFilterClear) commandTag() {}
