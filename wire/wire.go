// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire adapts the btcsuite wire codec to Bitcoin Cash. The
// message structs, their encodings, and the framing all come from
// github.com/btcsuite/btcd/wire unchanged — Bitcoin Cash kept the
// pre-segwit message formats, so the upstream codec is byte-exact for
// every message this client speaks. What this package adds on top is the
// Bitcoin Cash side of the protocol: the BCH network magics, the
// protocol-version window and user agent, the NODE_BITCOIN_CASH service
// bit, fixed-width header [de]serialization helpers for the header
// store, the compact-bits target math shared with package blockchain,
// and BIP-37 partial-merkle-tree match extraction, which upstream btcd
// does not ship.
package wire

import (
	"io"

	"github.com/btcsuite/btcd/wire"
)

// Re-exported btcd wire types. Everything that crosses this module's
// package boundaries uses these names so the rest of the client never
// imports btcd/wire directly.
type (
	Message         = wire.Message
	BitcoinNet      = wire.BitcoinNet
	ServiceFlag     = wire.ServiceFlag
	BloomUpdateType = wire.BloomUpdateType
	NetAddress      = wire.NetAddress
	BlockHeader     = wire.BlockHeader
	InvType         = wire.InvType
	InvVect         = wire.InvVect
	OutPoint        = wire.OutPoint
	TxIn            = wire.TxIn
	TxOut           = wire.TxOut

	MsgVersion     = wire.MsgVersion
	MsgVerAck      = wire.MsgVerAck
	MsgPing        = wire.MsgPing
	MsgPong        = wire.MsgPong
	MsgGetAddr     = wire.MsgGetAddr
	MsgAddr        = wire.MsgAddr
	MsgInv         = wire.MsgInv
	MsgGetData     = wire.MsgGetData
	MsgNotFound    = wire.MsgNotFound
	MsgGetHeaders  = wire.MsgGetHeaders
	MsgHeaders     = wire.MsgHeaders
	MsgMemPool     = wire.MsgMemPool
	MsgFilterLoad  = wire.MsgFilterLoad
	MsgFilterClear = wire.MsgFilterClear
	MsgFilterAdd   = wire.MsgFilterAdd
	MsgMerkleBlock = wire.MsgMerkleBlock
	MsgReject      = wire.MsgReject
	MsgTx          = wire.MsgTx
	MsgBlock       = wire.MsgBlock
)

// Inventory vector types.
const (
	InvTypeError         = wire.InvTypeError
	InvTypeTx            = wire.InvTypeTx
	InvTypeBlock         = wire.InvTypeBlock
	InvTypeFilteredBlock = wire.InvTypeFilteredBlock
)

// BIP-37 filterload update flags.
const (
	BloomUpdateNone         = wire.BloomUpdateNone
	BloomUpdateAll          = wire.BloomUpdateAll
	BloomUpdateP2PubkeyOnly = wire.BloomUpdateP2PubkeyOnly
)

// MaxMessageHeaders is the maximum number of headers returnable in a
// single `headers` message, matching the SyncManager's request
// granularity.
const MaxMessageHeaders = wire.MaxBlockHeadersPerMsg

// MaxInvPerMsg bounds a single inv/getdata message.
const MaxInvPerMsg = wire.MaxInvPerMsg

// HasServices reports whether have includes every bit of want.
func HasServices(have, want ServiceFlag) bool {
	return have&want == want
}

// WriteMessage frames and writes msg under the given BCH network magic,
// always speaking this client's single supported protocol version.
func WriteMessage(w io.Writer, msg Message, magic BitcoinNet) error {
	return wire.WriteMessage(w, msg, ProtocolVersion, magic)
}

// ReadMessage reads and decodes one framed message, rejecting frames
// whose magic does not match the given BCH network.
func ReadMessage(r io.Reader, magic BitcoinNet) (Message, error) {
	msg, _, err := wire.ReadMessage(r, ProtocolVersion, magic)
	return msg, err
}
