// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/wire"
)

// Bitcoin Cash shares its pre-fork history with Bitcoin, so mainnet,
// testnet3, and regtest all inherit Bitcoin's original genesis headers.
// Testnet4 and scalenet were created after the fork with their own
// distinct genesis blocks.

var mainNetGenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{
	0x3b, 0xa3, 0xed, 0xfd, 0x7a, 0x7b, 0x12, 0xb2,
	0x7a, 0xc7, 0x2c, 0x3e, 0x67, 0x76, 0x8f, 0x61,
	0x7f, 0xc8, 0x1b, 0xc3, 0x88, 0x8a, 0x51, 0x32,
	0x3a, 0x9f, 0xb8, 0xaa, 0x4b, 0x1e, 0x5e, 0x4a,
})

var mainNetGenesisHeader = wire.BlockHeader{
	Version:    1,
	PrevBlock:  chainhash.Hash{},
	MerkleRoot: mainNetGenesisMerkleRoot,
	Timestamp:  time.Unix(0x495fab29, 0),
	Bits:       0x1d00ffff,
	Nonce:      0x7c2bac1d,
}

var testNet3GenesisHeader = wire.BlockHeader{
	Version:    1,
	PrevBlock:  chainhash.Hash{},
	MerkleRoot: mainNetGenesisMerkleRoot,
	Timestamp:  time.Unix(1296688602, 0),
	Bits:       0x1d00ffff,
	Nonce:      0x18aea41a,
}

var regTestGenesisHeader = wire.BlockHeader{
	Version:    1,
	PrevBlock:  chainhash.Hash{},
	MerkleRoot: mainNetGenesisMerkleRoot,
	Timestamp:  time.Unix(1296688602, 0),
	Bits:       0x207fffff,
	Nonce:      2,
}

var testNet4GenesisMerkleRoot = chainhash.Hash([chainhash.HashSize]byte{
	0x4e, 0x7b, 0x2b, 0x91, 0x28, 0xfe, 0x02, 0x91,
	0xdb, 0x06, 0x93, 0xaf, 0x2a, 0xe4, 0x18, 0xb7,
	0x67, 0xe6, 0x57, 0xcd, 0x40, 0x7e, 0x80, 0xcb,
	0x14, 0x34, 0x22, 0x1e, 0xae, 0xa7, 0xa0, 0x7a,
})

var testNet4GenesisHeader = wire.BlockHeader{
	Version:    1,
	PrevBlock:  chainhash.Hash{},
	MerkleRoot: testNet4GenesisMerkleRoot,
	Timestamp:  time.Unix(1714777860, 0),
	Bits:       0x1d00ffff,
	Nonce:      0x17780cbb,
}
