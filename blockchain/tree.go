// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/chaincfg"
	"github.com/shellreserve/bchspv/wire"
)

// medianTimeBlocks is how many of the most recent ancestors feed the
// median-time-past calculation used to reject low-timestamp headers.
const medianTimeBlocks = 11

// node is one entry in the tree: every header the tree has ever accepted,
// whether or not it ended up on the active chain.
type node struct {
	header    wire.BlockHeader
	hash      chainhash.Hash
	height    int32
	chainwork *big.Int
	parent    *node
}

// ImportResult is returned by ExtendTip/ImportBlocks: either TipChanged or
// TipUnchanged.
type ImportResult interface {
	importResult()
}

// TipChanged is returned by ExtendTip/ImportBlocks when accepting headers
// moved the active chain's tip, either by simple extension (Reverted is
// empty) or by a reorg onto a branch with greater cumulative work.
type TipChanged struct {
	Reverted  []chainhash.Hash
	Connected []chainhash.Hash
}

func (TipChanged) importResult() {}

// TipUnchanged is returned when a header was accepted into the tree (e.g.
// onto a side branch) without displacing the active tip.
type TipUnchanged struct{}

func (TipUnchanged) importResult() {}

// BlockTree is the in-memory header chain: the active chain plus every
// known side branch, enough to validate new headers, serve locator-based
// queries, and reorg onto a branch that overtakes the active chain's work.
type BlockTree struct {
	params *chaincfg.Params

	nodes    map[chainhash.Hash]*node
	byHeight map[int32]*node // active chain only
	orphans  map[chainhash.Hash]wire.BlockHeader

	genesis *node
	tip     *node
}

// NewBlockTree creates a tree seeded with params' genesis header.
func NewBlockTree(params *chaincfg.Params) (*BlockTree, error) {
	hash := params.GenesisHeader.BlockHash()
	if hash != params.GenesisHash {
		return nil, newErr(ErrGenesisMismatch, "computed genesis hash does not match params")
	}
	g := &node{
		header:    params.GenesisHeader,
		hash:      hash,
		height:    0,
		chainwork: wire.HeaderWork(params.GenesisHeader.Bits),
	}
	t := &BlockTree{
		params:   params,
		nodes:    map[chainhash.Hash]*node{hash: g},
		byHeight: map[int32]*node{0: g},
		orphans:  make(map[chainhash.Hash]wire.BlockHeader),
		genesis:  g,
		tip:      g,
	}
	return t, nil
}

// Genesis returns the tree's genesis header.
func (t *BlockTree) Genesis() wire.BlockHeader { return t.genesis.header }

// Tip returns the active chain's tip header.
func (t *BlockTree) Tip() wire.BlockHeader { return t.tip.header }

// TipHash returns the active chain's tip hash.
func (t *BlockTree) TipHash() chainhash.Hash { return t.tip.hash }

// Height returns the active chain's tip height.
func (t *BlockTree) Height() int32 { return t.tip.height }

// BestBlock returns the active chain's tip header and height.
func (t *BlockTree) BestBlock() (wire.BlockHeader, int32) { return t.tip.header, t.tip.height }

// GetBlock returns the header for hash and whether it is known, regardless
// of which branch it is on.
func (t *BlockTree) GetBlock(hash chainhash.Hash) (wire.BlockHeader, bool) {
	n, ok := t.nodes[hash]
	if !ok {
		return wire.BlockHeader{}, false
	}
	return n.header, true
}

// HeightOf returns the height of hash if it is on the active chain.
func (t *BlockTree) HeightOf(hash chainhash.Hash) (int32, bool) {
	n, ok := t.nodes[hash]
	if !ok {
		return 0, false
	}
	if active, onChain := t.byHeight[n.height]; !onChain || active != n {
		return 0, false
	}
	return n.height, true
}

// GetBlockByHeight returns the active chain's header at height.
func (t *BlockTree) GetBlockByHeight(height int32) (wire.BlockHeader, bool) {
	n, ok := t.byHeight[height]
	if !ok {
		return wire.BlockHeader{}, false
	}
	return n.header, true
}

// Range returns the active chain's headers in [lo, hi], inclusive, or nil
// if the range is invalid or partially missing.
func (t *BlockTree) Range(lo, hi int32) []wire.BlockHeader {
	if lo < 0 || hi < lo || hi > t.tip.height {
		return nil
	}
	out := make([]wire.BlockHeader, 0, hi-lo+1)
	for h := lo; h <= hi; h++ {
		n, ok := t.byHeight[h]
		if !ok {
			return nil
		}
		out = append(out, n.header)
	}
	return out
}

// FindBranch walks back from hash to the active chain, returning the
// branch's headers in root-to-tip order and the height at which the branch
// forked off the active chain. ok is false if hash is unknown.
func (t *BlockTree) FindBranch(hash chainhash.Hash) (headers []wire.BlockHeader, forkHeight int32, ok bool) {
	n, found := t.nodes[hash]
	if !found {
		return nil, 0, false
	}
	var chain []*node
	cur := n
	for {
		if onActive, ok := t.byHeight[cur.height]; ok && onActive.hash == cur.hash {
			break
		}
		chain = append(chain, cur)
		if cur.parent == nil {
			break
		}
		cur = cur.parent
	}
	forkHeight = cur.height
	headers = make([]wire.BlockHeader, len(chain))
	for i, c := range chain {
		headers[len(chain)-1-i] = c.header
	}
	return headers, forkHeight, true
}

// LocatorHashes returns a Bitcoin-style block locator for the active
// chain: the tip, then exponentially-spaced ancestors, terminating at
// genesis.
func (t *BlockTree) LocatorHashes() []chainhash.Hash {
	var hashes []chainhash.Hash
	step := int32(1)
	height := t.tip.height
	for {
		hashes = append(hashes, t.byHeight[height].hash)
		if height == 0 {
			break
		}
		height -= step
		if height < 0 {
			height = 0
		}
		if len(hashes) >= 10 {
			step *= 2
		}
	}
	return hashes
}

// LocateHeaders implements the getheaders response algorithm: find the
// first locator hash that is on the active chain, then return up to max
// headers starting just after it, stopping early at stopHash if it is
// encountered. An empty locator list starts at genesis itself; a
// non-empty list with no hash on the active chain returns nil.
func (t *BlockTree) LocateHeaders(locators []chainhash.Hash, stopHash chainhash.Hash, max int) []wire.BlockHeader {
	start := int32(0)
	found := false
	for _, loc := range locators {
		if n, ok := t.nodes[loc]; ok {
			if onActive, ok := t.byHeight[n.height]; ok && onActive.hash == n.hash {
				start = n.height + 1
				found = true
				break
			}
		}
	}
	if !found && len(locators) > 0 {
		// None of the locators are known on our active chain; nothing to
		// send since we can't establish a common ancestor.
		return nil
	}

	out := make([]wire.BlockHeader, 0, max)
	for h := start; h <= t.tip.height && len(out) < max; h++ {
		n := t.byHeight[h]
		out = append(out, n.header)
		if n.hash == stopHash {
			break
		}
	}
	return out
}

// medianTimePast returns the median timestamp of up to the 11 most recent
// ancestors of n, inclusive, matching Bitcoin's timestamp-rule median.
func medianTimePast(n *node) int64 {
	var times []int64
	cur := n
	for i := 0; i < medianTimeBlocks && cur != nil; i++ {
		times = append(times, cur.header.Timestamp.Unix())
		cur = cur.parent
	}
	// insertion sort; times is at most 11 elements.
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j-1] > times[j]; j-- {
			times[j-1], times[j] = times[j], times[j-1]
		}
	}
	return times[len(times)/2]
}

// expectedBits computes the bits a header at parent.height+1 must carry,
// dispatching on which difficulty rule governs that height.
func (t *BlockTree) expectedBits(parent *node, newTimestamp int64) (uint32, error) {
	p := t.params
	height := parent.height + 1

	if p.NoPowRetargeting {
		return p.PowLimitBits, nil
	}

	asertFromGenesis := p.ASERTActivationHeight == 0 && p.ASERTAnchor.Height == 0
	switch {
	case asertFromGenesis || (p.ASERTActivationHeight > 0 && height >= p.ASERTActivationHeight):
		anchor, err := t.ancestorAt(parent, p.ASERTAnchor.Height)
		if err != nil {
			return 0, err
		}
		heightDiff := parent.height - anchorHeightOf(anchor, p.ASERTAnchor.Height)
		return nextASERTTarget(p, heightDiff, parent.header.Timestamp.Unix()), nil

	case p.CashWorkActivationHeight > 0 && height >= p.CashWorkActivationHeight:
		first3, err := t.suitableBlocksEndingAt(parent, 144)
		if err != nil {
			return p.PowLimitBits, nil
		}
		last3, err := t.suitableBlocksEndingAt(parent, 0)
		if err != nil {
			return p.PowLimitBits, nil
		}
		return nextCashWorkTarget(p, first3, last3), nil

	default:
		if height%2016 != 0 {
			if p.ReduceMinDifficulty && newTimestamp > parent.header.Timestamp.Unix()+int64(p.MinDiffReductionTime.Seconds()) {
				return p.PowLimitBits, nil
			}
			return parent.header.Bits, nil
		}
		first, err := t.ancestorAt(parent, height-2016)
		if err != nil {
			return 0, err
		}
		return nextLegacyTarget(p, height, parent.header.Bits, first.header.Timestamp.Unix(), parent.header.Timestamp.Unix()), nil
	}
}

// anchorHeightOf is a trivial helper kept for readability at the call site
// above: the anchor's own height is a constant from params, not derived
// from the walked node.
func anchorHeightOf(_ *node, anchorHeight int32) int32 { return anchorHeight }

// ancestorAt walks parent pointers back from n to the given height.
func (t *BlockTree) ancestorAt(n *node, height int32) (*node, error) {
	if height < 0 {
		height = 0
	}
	cur := n
	for cur != nil && cur.height > height {
		cur = cur.parent
	}
	if cur == nil || cur.height != height {
		return nil, newErr(ErrBlockMissing, "ancestor not available")
	}
	return cur, nil
}

// suitableBlocksEndingAt returns the three consecutive blocks ending at
// parent.height-offset, in chronological order, for the cash-work DAA's
// median-of-three selection.
func (t *BlockTree) suitableBlocksEndingAt(parent *node, offset int32) ([3]SuitableBlock, error) {
	var out [3]SuitableBlock
	end := parent.height - offset
	for i, h := range []int32{end - 2, end - 1, end} {
		n, err := t.ancestorAt(parent, h)
		if err != nil {
			return out, err
		}
		out[i] = SuitableBlock{Bits: n.header.Bits, Timestamp: n.header.Timestamp.Unix()}
	}
	return out, nil
}

// validate runs the full per-header acceptance sequence against the
// candidate header's chosen parent, short of inserting it into the tree.
func (t *BlockTree) validate(parent *node, header wire.BlockHeader) error {
	hash := header.BlockHash()

	target := wire.CompactToBig(header.Bits)
	if target.Sign() <= 0 || target.Cmp(t.params.PowLimit) > 0 {
		return newErr(ErrInvalidBlockTarget, "target out of range")
	}
	hashNum := hashToBig(hash)
	if hashNum.Cmp(target) > 0 {
		return newErr(ErrInvalidBlockPoW, "hash exceeds target")
	}

	wantBits, err := t.expectedBits(parent, header.Timestamp.Unix())
	if err != nil {
		return err
	}
	if header.Bits != wantBits {
		return newErr(ErrInvalidBlockTarget, "bits do not match expected difficulty")
	}

	if header.Timestamp.Unix() <= medianTimePast(parent) {
		return newErr(ErrInvalidBlockTime, "timestamp not after median time past")
	}
	if header.Timestamp.After(time.Now().Add(2 * time.Hour)) {
		return newErr(ErrInvalidBlockTime, "timestamp too far in the future")
	}

	height := parent.height + 1
	for _, cp := range t.params.Checkpoints {
		if cp.Height == height && cp.Hash != hash {
			return newErr(ErrInvalidBlockHash, "checkpoint mismatch")
		}
	}
	// Headers below a checkpoint the active chain has already passed are
	// final: a candidate attaching down there can only be a fork, never a
	// forward extension, so reject it. Checkpoints still ahead of the tip
	// impose nothing here; first-time sync walks up to them normally.
	if passed := t.passedCheckpoint(); height <= passed {
		return newErr(ErrInvalidBlockHeight, "cannot branch below the last checkpoint")
	}

	return nil
}

// passedCheckpoint returns the height of the highest configured
// checkpoint at or below the active tip, or -1 if none has been reached
// yet.
func (t *BlockTree) passedCheckpoint() int32 {
	passed := int32(-1)
	for _, cp := range t.params.Checkpoints {
		if cp.Height <= t.tip.height && cp.Height > passed {
			passed = cp.Height
		}
	}
	return passed
}

// hashToBig interprets a hash's bytes, reversed to big-endian, as an
// unsigned integer, matching how Bitcoin compares a block hash to a
// target.
func hashToBig(hash chainhash.Hash) *big.Int {
	var buf [chainhash.HashSize]byte
	for i := 0; i < chainhash.HashSize; i++ {
		buf[i] = hash[chainhash.HashSize-1-i]
	}
	return new(big.Int).SetBytes(buf[:])
}

// ExtendTip validates and inserts a single header, resolving orphaned
// children that were waiting on it, and reorganizing the active chain if
// the new header's branch now carries more cumulative work.
func (t *BlockTree) ExtendTip(header wire.BlockHeader) (ImportResult, error) {
	hash := header.BlockHash()
	if _, exists := t.nodes[hash]; exists {
		return nil, newErr(ErrDuplicateBlock, hash.String())
	}

	parent, ok := t.nodes[header.PrevBlock]
	if !ok {
		t.orphans[hash] = header
		return nil, newErr(ErrBlockMissing, header.PrevBlock.String())
	}

	if err := t.validate(parent, header); err != nil {
		return nil, err
	}

	n := &node{
		header:    header,
		hash:      hash,
		height:    parent.height + 1,
		chainwork: new(big.Int).Add(parent.chainwork, wire.HeaderWork(header.Bits)),
		parent:    parent,
	}
	t.nodes[hash] = n

	result := t.considerReorg(n)

	// An arriving header may unblock headers we had parked as orphans.
	t.resolveOrphans(hash)

	return result, nil
}

// considerReorg switches the active tip to n if n's branch now carries
// strictly more cumulative work than the current tip; ties keep the
// current chain.
func (t *BlockTree) considerReorg(n *node) ImportResult {
	if n.chainwork.Cmp(t.tip.chainwork) <= 0 {
		return TipUnchanged{}
	}

	// Find the fork point between the current active chain and n's branch.
	oldChain := []*node{}
	cur := t.tip
	newChain := []*node{}
	other := n
	for cur.height > other.height {
		oldChain = append(oldChain, cur)
		cur = cur.parent
	}
	for other.height > cur.height {
		newChain = append(newChain, other)
		other = other.parent
	}
	for cur.hash != other.hash {
		oldChain = append(oldChain, cur)
		newChain = append(newChain, other)
		cur = cur.parent
		other = other.parent
	}
	fork := cur

	reverted := make([]chainhash.Hash, len(oldChain))
	for i, nd := range oldChain {
		reverted[i] = nd.hash
		delete(t.byHeight, nd.height)
	}
	connected := make([]chainhash.Hash, len(newChain))
	for i := len(newChain) - 1; i >= 0; i-- {
		nd := newChain[i]
		connected[len(newChain)-1-i] = nd.hash
		t.byHeight[nd.height] = nd
	}
	if len(reverted) > 0 {
		log.Infof("reorg at height %d: %d reverted, %d connected, new tip %s",
			fork.height, len(reverted), len(connected), n.hash)
	}

	t.tip = n
	return TipChanged{Reverted: reverted, Connected: connected}
}

// resolveOrphans re-attempts any parked headers whose parent is hash,
// recursively, now that hash has been accepted.
func (t *BlockTree) resolveOrphans(hash chainhash.Hash) {
	for orphanHash, header := range t.orphans {
		if header.PrevBlock == hash {
			delete(t.orphans, orphanHash)
			t.ExtendTip(header)
		}
	}
}

// ImportBlocks extends the tip with each header in order, stopping at the
// first rejected header. It returns the result of the last header
// accepted and the index of the first failure, or -1 if all were
// accepted.
func (t *BlockTree) ImportBlocks(headers []wire.BlockHeader) (result ImportResult, failedAt int, err error) {
	failedAt = -1
	for i, h := range headers {
		r, e := t.ExtendTip(h)
		if e != nil {
			return result, i, e
		}
		result = r
	}
	return result, failedAt, nil
}
