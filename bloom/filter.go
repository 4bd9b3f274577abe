// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bloom implements the BIP-37 Bloom filter primitive used by
// BloomManager to request matching merkle blocks from peers.
package bloom

import (
	"bytes"
	"math"

	"github.com/shellreserve/bchspv/wire"
)

// MaxFilterBytes is the largest filter content this package will build,
// per BIP-37. NewFromWire does not check it.
const MaxFilterBytes = 36000

// MaxHashFuncs is the largest hash-function count BIP-37 allows.
const MaxHashFuncs = 50

// tweakMul is the per-hash-index multiplier mixed into the murmur3 seed,
// per BIP-37.
const tweakMul = 0xFBA4C795

// Flag selects how a filter-bearing peer should additionally relay
// findings, mirrored on the wire as FilterLoad.Flags.
type Flag byte

const (
	FlagNone       Flag = 0
	FlagAll        Flag = 1
	FlagPubkeyOnly Flag = 2
)

// Filter is a BIP-37 Bloom filter.
type Filter struct {
	content []byte
	hashes  uint32
	tweak   uint32
	flags   Flag
}

// New builds a filter sized for n elements at false-positive rate p, using
// tweak as the murmur3 seed salt and flags as the peer-relay hint.
func New(n uint32, p float64, tweak uint32, flags Flag) *Filter {
	if n == 0 {
		n = 1
	}
	sizeBytes := int(math.Floor(-1 * float64(n) * math.Log(p) / (8 * math.Ln2 * math.Ln2)))
	if sizeBytes < 1 {
		sizeBytes = 1
	}
	if sizeBytes > MaxFilterBytes {
		sizeBytes = MaxFilterBytes
	}

	k := int(math.Round(float64(sizeBytes) * 8 / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > MaxHashFuncs {
		k = MaxHashFuncs
	}

	return &Filter{
		content: make([]byte, sizeBytes),
		hashes:  uint32(k),
		tweak:   tweak,
		flags:   flags,
	}
}

// NewFromWire reconstructs a Filter from a decoded FilterLoad message,
// used when this client is acting as the filtered side of a connection or
// replaying a previously saved filter.
func NewFromWire(content []byte, hashes, tweak uint32, flags Flag) *Filter {
	return &Filter{content: append([]byte(nil), content...), hashes: hashes, tweak: tweak, flags: flags}
}

// hashIndex returns the bit position for element data under hash function
// i, per BIP-37: murmur3_32(data, i*0xFBA4C795 + tweak) mod (len(content)*8).
func (f *Filter) hashIndex(i uint32, data []byte) uint32 {
	seed := i*tweakMul + f.tweak
	h := murmur3Sum32(seed, data)
	return h % (uint32(len(f.content)) * 8)
}

func setBit(content []byte, idx uint32) {
	content[idx>>3] |= 1 << (idx & 7)
}

func getBit(content []byte, idx uint32) bool {
	return content[idx>>3]&(1<<(idx&7)) != 0
}

// Insert sets the bits addressed by data in every hash function.
func (f *Filter) Insert(data []byte) {
	for i := uint32(0); i < f.hashes; i++ {
		setBit(f.content, f.hashIndex(i, data))
	}
}

// Contains reports whether data may be a member. False positives are
// possible by design; false negatives are not.
func (f *Filter) Contains(data []byte) bool {
	for i := uint32(0); i < f.hashes; i++ {
		if !getBit(f.content, f.hashIndex(i, data)) {
			return false
		}
	}
	return true
}

// Flags returns the filter's relay hint.
func (f *Filter) Flags() Flag { return f.flags }

// Tweak returns the filter's murmur3 seed salt.
func (f *Filter) Tweak() uint32 { return f.tweak }

// HashFuncs returns the number of hash functions (k) used.
func (f *Filter) HashFuncs() uint32 { return f.hashes }

// Content returns the raw filter bitfield. Callers must not mutate the
// returned slice.
func (f *Filter) Content() []byte { return f.content }

// ToFilterLoad converts flags per the richer FilterLoad mapping this core
// implements: unrecognized flag values fall back to FlagNone rather than
// erroring, since a peer-supplied flags byte outside {0,1,2} is simply
// treated conservatively.
func ToFilterLoad(f *Filter) *wire.MsgFilterLoad {
	flagsByte := byte(f.flags)
	switch f.flags {
	case FlagNone, FlagAll, FlagPubkeyOnly:
	default:
		flagsByte = byte(FlagNone)
	}
	return &wire.MsgFilterLoad{
		Filter:    append([]byte(nil), f.content...),
		HashFuncs: f.hashes,
		Tweak:     f.tweak,
		Flags:     wire.BloomUpdateType(flagsByte),
	}
}

// Equal reports whether two filters have identical parameters and content,
// used by tests and by cache/dedup logic.
func (f *Filter) Equal(other *Filter) bool {
	if other == nil {
		return false
	}
	return f.hashes == other.hashes && f.tweak == other.tweak &&
		f.flags == other.flags && bytes.Equal(f.content, other.content)
}
