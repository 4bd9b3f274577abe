// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Upstream btcd ships the MsgMerkleBlock codec but only the *building*
// side of BIP-37 partial merkle trees (btcutil/bloom.NewMerkleBlock); an
// SPV client needs the reverse: replaying the flag bits and hash list to
// recover which transactions matched and what root they prove.

// partialMerkleTree replays the BIP-37 decoding algorithm over Hashes and
// Flags, returning the matched leaf hashes (in tree order) and the computed
// merkle root. An error return means the tree is malformed and the peer
// sending it should be disconnected.
type partialMerkleTree struct {
	numTx  uint32
	hashes []*chainhash.Hash
	flags  []byte

	bitsUsed   uint32
	hashesUsed uint32
	matched    []*chainhash.Hash
	bad        bool
}

func calcTreeWidth(numTx uint32, height uint) uint32 {
	return (numTx + (1 << height) - 1) >> height
}

func (t *partialMerkleTree) calcHash(height uint, pos uint32) chainhash.Hash {
	if t.hashesUsed >= uint32(len(t.hashes)) {
		t.bad = true
		return chainhash.Hash{}
	}
	h := *t.hashes[t.hashesUsed]
	t.hashesUsed++
	return h
}

func (t *partialMerkleTree) getBit() bool {
	byteIdx := t.bitsUsed / 8
	if byteIdx >= uint32(len(t.flags)) {
		t.bad = true
		return false
	}
	bit := (t.flags[byteIdx] >> (t.bitsUsed % 8)) & 1
	t.bitsUsed++
	return bit != 0
}

// traverse descends the tree the same way the BIP-37 reference decoder
// does: a 0 flag bit means "hash available, subtree pruned"; a 1 bit at an
// internal node means "descend"; a 1 bit at a leaf means "this transaction
// matched".
// height here counts down from the tree's root (treeHeight) to 0 at the
// leaves, matching the reference BIP-37 decoder: a leaf is height==0.
func (t *partialMerkleTree) traverse(height uint, pos uint32, treeHeight uint) chainhash.Hash {
	if t.bad {
		return chainhash.Hash{}
	}
	parentOfMatch := t.getBit()
	if height == 0 || !parentOfMatch {
		hash := t.calcHash(height, pos)
		if height == 0 && parentOfMatch {
			t.matched = append(t.matched, &hash)
		}
		return hash
	}

	left := t.traverse(height-1, pos*2, treeHeight)
	var right chainhash.Hash
	width := calcTreeWidth(t.numTx, height-1)
	if pos*2+1 < width {
		right = t.traverse(height-1, pos*2+1, treeHeight)
	} else {
		right = left
	}
	return hashMerkleBranches(&left, &right)
}

func hashMerkleBranches(left, right *chainhash.Hash) chainhash.Hash {
	var buf [chainhash.HashSize * 2]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.DoubleHashH(buf[:])
}

// ExtractMatches walks m's partial merkle tree and returns the matched
// transaction hashes together with the recomputed merkle root, which the
// caller must compare against Header.MerkleRoot before trusting the
// result.
func ExtractMatches(m *MsgMerkleBlock) (matched []*chainhash.Hash, root chainhash.Hash, err error) {
	if m.Transactions == 0 {
		return nil, chainhash.Hash{}, errMerkleEmpty
	}
	if len(m.Hashes) > int(m.Transactions) {
		return nil, chainhash.Hash{}, errMerkleTooManyHashes
	}
	maxFlagBits := len(m.Flags) * 8
	if maxFlagBits < len(m.Hashes) {
		return nil, chainhash.Hash{}, errMerkleTooFewFlags
	}

	treeHeight := uint(0)
	for calcTreeWidth(m.Transactions, treeHeight) > 1 {
		treeHeight++
	}

	t := &partialMerkleTree{numTx: m.Transactions, hashes: m.Hashes, flags: m.Flags}
	root = t.traverse(treeHeight, 0, treeHeight)
	if t.bad {
		return nil, chainhash.Hash{}, errMerkleMalformed
	}
	// Any unused hash beyond what the traversal consumed indicates a
	// malformed or padded message.
	if t.hashesUsed != uint32(len(m.Hashes)) {
		return nil, chainhash.Hash{}, errMerkleUnusedData
	}
	return t.matched, root, nil
}

var (
	errMerkleEmpty         = merkleErr("merkleblock: zero transactions")
	errMerkleTooManyHashes = merkleErr("merkleblock: more hashes than transactions")
	errMerkleTooFewFlags   = merkleErr("merkleblock: not enough flag bits for hash count")
	errMerkleMalformed     = merkleErr("merkleblock: malformed partial merkle tree")
	errMerkleUnusedData    = merkleErr("merkleblock: unused hash data")
)

type merkleErr string

func (e merkleErr) Error() string { return string(e) }
