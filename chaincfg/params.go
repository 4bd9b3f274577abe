// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters for every Bitcoin Cash
// network this client can connect to: wire/disk magics, default ports, DNS
// seeds, checkpoints, consensus parameters, and genesis headers.
package chaincfg

import (
	"errors"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/wire"
)

// Network identifies one of the Bitcoin Cash networks this client knows
// about.
type Network byte

const (
	Bitcoin Network = iota
	Testnet
	Testnet4
	Scalenet
	Regtest
	Chipnet
)

func (n Network) String() string {
	switch n {
	case Bitcoin:
		return "bitcoin"
	case Testnet:
		return "testnet"
	case Testnet4:
		return "testnet4"
	case Scalenet:
		return "scalenet"
	case Regtest:
		return "regtest"
	case Chipnet:
		return "chipnet"
	default:
		return "unknown"
	}
}

// Checkpoint pins a known-good (height, hash) pair. A block at that height
// whose hash disagrees fails validation, and the chain below the last
// checkpoint can never be reorganized away.
type Checkpoint struct {
	Height int32
	Hash   chainhash.Hash
}

// DNSSeed is a single bootstrap hostname.
type DNSSeed struct {
	Host         string
	HasFiltering bool
}

// ASERTAnchor is the (height, bits, prev_timestamp) triple a network's
// ASERT difficulty rule is anchored to.
type ASERTAnchor struct {
	Height        int32
	Bits          uint32
	PrevTimestamp int64
}

// Services presets, carried over from the original nakamoto implementation
// (common/src/network.rs): named bundles callers use to configure
// PeerManager.RequiredServices without hand-assembling bitmasks.
const (
	ServicesChain = wire.SFNodeNetwork
	ServicesAll   = wire.SFNodeNetwork | wire.SFNodeCF
)

// daaRule identifies which difficulty adjustment algorithm is active for a
// network, independent of height (cash-work and ASERT are each permanently
// active past their respective activation heights; legacy runs until
// CashWorkActivationHeight).
type daaRule byte

const (
	daaLegacy daaRule = iota
	daaCashWork
	daaASERT
)

// Params holds everything that differs between Bitcoin Cash networks.
type Params struct {
	Name        string
	Net         Network
	WireMagic   wire.BitcoinNet
	DiskMagic   uint32
	DefaultPort string

	DNSSeeds []DNSSeed

	GenesisHeader wire.BlockHeader
	GenesisHash   chainhash.Hash

	PowLimit     *big.Int
	PowLimitBits uint32

	// CashWorkActivationHeight is the height of the November 2017
	// hard fork that replaced the legacy 2016-block retarget with the
	// "cash work" DAA. Zero means the cash-work rule is never applied.
	CashWorkActivationHeight int32

	// ASERTActivationHeight is the height of the November 2020
	// anchor-relative retarget; zero together with a zero-height
	// ASERTAnchor means ASERT is active from genesis.
	ASERTActivationHeight int32
	ASERTHalfLife         int64
	ASERTAnchor           ASERTAnchor

	// TargetTimespan drives the legacy retarget window;
	// TargetTimePerBlock alone drives cash-work/ASERT spacing.
	TargetTimespan     time.Duration
	TargetTimePerBlock time.Duration

	ReduceMinDifficulty  bool
	MinDiffReductionTime time.Duration
	NoPowRetargeting     bool

	CoinbaseMaturity uint16
	Checkpoints      []Checkpoint
}

var bigOne = big.NewInt(1)

// mainPowLimit is 2^224-1, Bitcoin Cash mainnet's proof-of-work ceiling
// (unchanged from Bitcoin).
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// regTestPowLimit is 2^255-1, used by regtest/scalenet-style low-difficulty
// networks.
var regTestPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

func mustHash(s string) chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return *h
}

// MainNetParams are the consensus and bootstrap parameters for Bitcoin
// Cash mainnet.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         Bitcoin,
	WireMagic:   wire.MainNet,
	DiskMagic:   0xD9B4BEF9,
	DefaultPort: "8333",
	DNSSeeds: []DNSSeed{
		{Host: "seed.flowee.cash"},
		{Host: "seed-bch.bitcoinforks.org"},
		{Host: "btccash-seeder.bitcoinunlimited.info"},
		{Host: "seed.bchd.cash"},
		{Host: "seed.bch.loping.net"},
		{Host: "dnsseed.electroncash.de"},
		{Host: "bchseed.c3-soft.com"},
		{Host: "bch.bitjson.com"},
	},
	GenesisHeader:            mainNetGenesisHeader,
	GenesisHash:              mustHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	CashWorkActivationHeight: 478559,
	ASERTActivationHeight:    661648,
	ASERTHalfLife:            172800,
	ASERTAnchor: ASERTAnchor{
		Height:        661647,
		Bits:          0x1804dafe,
		PrevTimestamp: 1605447844,
	},
	TargetTimespan:     time.Hour * 24 * 14,
	TargetTimePerBlock: time.Minute * 10,
	CoinbaseMaturity:   100,
}

// TestNet3Params are the parameters for Bitcoin Cash testnet3.
var TestNet3Params = Params{
	Name:                     "testnet3",
	Net:                      Testnet,
	WireMagic:                wire.TestNet3,
	DiskMagic:                0x0709110B,
	DefaultPort:              "18333",
	GenesisHeader:            testNet3GenesisHeader,
	GenesisHash:              mustHash("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),
	PowLimit:                 mainPowLimit,
	PowLimitBits:             0x1d00ffff,
	CashWorkActivationHeight: 1155876,
	ASERTActivationHeight:    1421482,
	ASERTHalfLife:            172800,
	ASERTAnchor: ASERTAnchor{
		Height:        1421481,
		Bits:          0x1d00ffff,
		PrevTimestamp: 1605441178,
	},
	TargetTimespan:       time.Hour * 24 * 14,
	TargetTimePerBlock:   time.Minute * 10,
	ReduceMinDifficulty:  true,
	MinDiffReductionTime: time.Minute * 20,
	CoinbaseMaturity:     100,
}

// TestNet4Params are the parameters for Bitcoin Cash testnet4, launched
// after the cash-work DAA fork so the legacy retarget never applies and
// ASERT runs from genesis.
var TestNet4Params = Params{
	Name:                  "testnet4",
	Net:                   Testnet4,
	WireMagic:             wire.TestNet4,
	DiskMagic:             0x92A722CD,
	DefaultPort:           "28333",
	GenesisHeader:         testNet4GenesisHeader,
	GenesisHash:           mustHash("000000001dd410c49a788668ce26751718cc797474d3152a5fc073dd44fd9188"),
	PowLimit:              mainPowLimit,
	PowLimitBits:          0x1d00ffff,
	ASERTActivationHeight: 0,
	ASERTHalfLife:         172800,
	ASERTAnchor: ASERTAnchor{
		Height:        0,
		Bits:          0x1d00ffff,
		PrevTimestamp: 1597811200,
	},
	TargetTimespan:       time.Hour * 24 * 14,
	TargetTimePerBlock:   time.Minute * 10,
	ReduceMinDifficulty:  true,
	MinDiffReductionTime: time.Minute * 20,
	CoinbaseMaturity:     100,
}

// ScalenetParams are the parameters for Bitcoin Cash scalenet, a stress
// test network that periodically resets its chain.
var ScalenetParams = Params{
	Name:                  "scalenet",
	Net:                   Scalenet,
	WireMagic:             wire.ScaleNet,
	DiskMagic:             0xC42DC2BA,
	DefaultPort:           "38333",
	GenesisHeader:         testNet4GenesisHeader,
	GenesisHash:           mustHash("00000000e6453dc2dfe1ffa19023f86002eb11dbb8e87d0291a4599f0430be52"),
	PowLimit:              regTestPowLimit,
	PowLimitBits:          0x1d00ffff,
	ASERTActivationHeight: 0,
	ASERTHalfLife:         172800,
	ASERTAnchor: ASERTAnchor{
		Height:        0,
		Bits:          0x1d00ffff,
		PrevTimestamp: 1598282400,
	},
	TargetTimespan:       time.Hour * 24 * 14,
	TargetTimePerBlock:   time.Minute * 10,
	ReduceMinDifficulty:  true,
	MinDiffReductionTime: time.Minute * 20,
	CoinbaseMaturity:     100,
}

// RegressionNetParams are the parameters for the local regression test
// network: difficulty retargeting is disabled entirely.
var RegressionNetParams = Params{
	Name:               "regtest",
	Net:                Regtest,
	WireMagic:          wire.RegTest,
	DiskMagic:          0xDAB5BFFA,
	DefaultPort:        "18334",
	GenesisHeader:      regTestGenesisHeader,
	GenesisHash:        mustHash("0f9188f13cb7b2c71f2a335e3a4fc328bf5beb436012afca590b1a11466e2206"),
	PowLimit:           regTestPowLimit,
	PowLimitBits:       0x207fffff,
	NoPowRetargeting:   true,
	TargetTimespan:     time.Hour * 24 * 14,
	TargetTimePerBlock: time.Minute * 10,
	CoinbaseMaturity:   100,
}

// ChipnetParams are the parameters for chipnet, used to test upcoming
// consensus upgrades ahead of mainnet activation.
var ChipnetParams = Params{
	Name:        "chipnet",
	Net:         Chipnet,
	WireMagic:   wire.TestNet4,
	DiskMagic:   0x92A722CD,
	DefaultPort: "48333",
	DNSSeeds: []DNSSeed{
		{Host: "chipnet.bitjson.com"},
	},
	GenesisHeader:         testNet4GenesisHeader,
	GenesisHash:           mustHash("000000001dd410c49a788668ce26751718cc797474d3152a5fc073dd44fd9188"),
	PowLimit:              mainPowLimit,
	PowLimitBits:          0x1d00ffff,
	ASERTActivationHeight: 0,
	ASERTHalfLife:         172800,
	ASERTAnchor: ASERTAnchor{
		Height:        0,
		Bits:          0x1d00ffff,
		PrevTimestamp: 1597811200,
	},
	TargetTimespan:       time.Hour * 24 * 14,
	TargetTimePerBlock:   time.Minute * 10,
	ReduceMinDifficulty:  true,
	MinDiffReductionTime: time.Minute * 20,
	CoinbaseMaturity:     100,
}

// ErrUnknownNetwork is returned by ParamsForNetwork for an unrecognized
// Network value.
var ErrUnknownNetwork = errors.New("chaincfg: unknown network")

// ParamsForNetwork returns the registered Params for n.
func ParamsForNetwork(n Network) (*Params, error) {
	switch n {
	case Bitcoin:
		return &MainNetParams, nil
	case Testnet:
		return &TestNet3Params, nil
	case Testnet4:
		return &TestNet4Params, nil
	case Scalenet:
		return &ScalenetParams, nil
	case Regtest:
		return &RegressionNetParams, nil
	case Chipnet:
		return &ChipnetParams, nil
	default:
		return nil, ErrUnknownNetwork
	}
}

// DAARuleAt returns which difficulty rule governs the block at height.
func (p *Params) DAARuleAt(height int32) daaRule {
	asertFromGenesis := p.ASERTActivationHeight == 0 && p.ASERTAnchor.Height == 0
	if asertFromGenesis || (p.ASERTActivationHeight > 0 && height >= p.ASERTActivationHeight) {
		return daaASERT
	}
	if p.CashWorkActivationHeight > 0 && height >= p.CashWorkActivationHeight {
		return daaCashWork
	}
	return daaLegacy
}
