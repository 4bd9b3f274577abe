// Copyright (c) 2013-2024 The btcsuite developers
// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/btcsuite/btcd/wire"

const (
	// ProtocolVersion is the latest protocol version this package supports.
	ProtocolVersion uint32 = 70016

	// MinProtocolVersion is the lowest protocol version an outbound or
	// inbound peer may negotiate before being disconnected with
	// PeerProtocolVersion.
	MinProtocolVersion uint32 = 70012

	// UserAgent is the user agent string advertised in the version
	// message.
	UserAgent = "/nakamoto:0.3.0/"
)

// Service flags advertised in the version message. All but
// SFNodeBitcoinCash re-export the upstream btcd values; bit 5 carries
// NODE_BITCOIN_CASH on this network (upstream btcd only knows it as an
// anonymous bit).
const (
	// SFNodeNetwork indicates the peer can serve the full block chain.
	SFNodeNetwork = wire.SFNodeNetwork

	// SFNodeGetUTXO indicates support for the getutxos/utxos commands
	// (BIP0064).
	SFNodeGetUTXO = wire.SFNodeGetUTXO

	// SFNodeBloom indicates support for Bloom-filtered connections
	// (BIP0037).
	SFNodeBloom = wire.SFNodeBloom

	// SFNodeWitness indicates support for witness data. Unused on
	// Bitcoin Cash but still advertised by some peers.
	SFNodeWitness = wire.SFNodeWitness

	// SFNodeBitcoinCash indicates the peer implements the Bitcoin Cash
	// consensus rules.
	SFNodeBitcoinCash ServiceFlag = 1 << 5

	// SFNodeCF indicates support for committed (compact) filters
	// (BIP0157/0158). The core here never requests them; the flag only
	// appears in the chaincfg.ServicesAll preset.
	SFNodeCF = wire.SFNodeCF

	// SFNodeNetworkLimited indicates the peer serves only a bounded
	// recent window of blocks.
	SFNodeNetworkLimited = wire.SFNodeNetworkLimited
)

// Bitcoin Cash network magics. These replace the Bitcoin values baked
// into upstream btcd; the BitcoinNet type itself is the upstream one, so
// they pass straight through the btcd framing code.
const (
	// MainNet is the Bitcoin Cash mainnet wire magic.
	MainNet BitcoinNet = 0xE8F3E1E3

	// TestNet3 is the Bitcoin Cash testnet3 wire magic.
	TestNet3 BitcoinNet = 0xF4F3E5F4

	// RegTest is the regression test network wire magic.
	RegTest BitcoinNet = 0xFABFB5DA

	// TestNet4 is the Bitcoin Cash testnet4 wire magic. Chipnet shares
	// it.
	TestNet4 BitcoinNet = 0xAFDAB7E2

	// ScaleNet is the Bitcoin Cash scalenet wire magic.
	ScaleNet BitcoinNet = 0xA2E1AFC3
)
