// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bfmgr

import (
	"errors"
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/shellreserve/bchspv/bloom"
	"github.com/shellreserve/bchspv/wire"
)

// ErrMerkleRootMismatch is returned when a merkle block's extracted root
// does not match the root in its own header, meaning the peer sent a
// malformed or dishonest partial merkle tree.
var ErrMerkleRootMismatch = errors.New("bfmgr: merkle block root does not match header")

// DefaultRescanCacheBytes bounds the merkle block cache a Rescan keeps in
// memory while catching up.
const DefaultRescanCacheBytes = 4 * 1024 * 1024

// ProcessedBlock is one merkle block consumed in height order by Process.
type ProcessedBlock struct {
	Height      int32
	BlockHash   chainhash.Hash
	Matched     []chainhash.Hash
	Cached      bool
	MerkleBlock *wire.MsgMerkleBlock
}

// BloomManager owns the locally loaded Bloom filter, makes sure every
// connected filter-capable peer has it loaded, and feeds merkle blocks
// returned by those peers into the active Rescan.
type BloomManager struct {
	filter *bloom.Filter
	Rescan *Rescan

	// peers maps every registered peer to whether the current filter has
	// been pushed to it. A filter reload resets all values to false so
	// the new filter gets pushed out again.
	peers map[string]bool

	// pending holds merkle blocks received but not yet consumed in
	// height order by Process.
	pending map[int32]ProcessedBlock
}

// New creates a BloomManager with no filter loaded yet.
func New() *BloomManager {
	return &BloomManager{
		Rescan:  NewRescan(DefaultRescanCacheBytes),
		peers:   make(map[string]bool),
		pending: make(map[int32]ProcessedBlock),
	}
}

// LoadFilter installs f as the active filter and clears every peer's
// loaded-state so it gets pushed out again.
func (m *BloomManager) LoadFilter(f *bloom.Filter) {
	m.filter = f
	for addr := range m.peers {
		m.peers[addr] = false
	}
	log.Debugf("loaded bloom filter: %d bytes, %d hash funcs", len(f.Content()), f.HashFuncs())
}

// ClearFilter removes the active filter; peers are sent filterclear.
func (m *BloomManager) ClearFilter() {
	m.filter = nil
	for addr := range m.peers {
		m.peers[addr] = false
	}
}

// Filter returns the active filter, or nil if none is loaded.
func (m *BloomManager) Filter() *bloom.Filter { return m.filter }

// RegisterPeer begins tracking a negotiated peer's filter state.
func (m *BloomManager) RegisterPeer(addr string) {
	if _, ok := m.peers[addr]; !ok {
		m.peers[addr] = false
	}
}

// NeedsLoad reports whether peer still needs the current filter pushed to
// it, and if so returns the message to send.
func (m *BloomManager) NeedsLoad(peer string) (*wire.MsgFilterLoad, bool) {
	if m.filter == nil || m.peers[peer] {
		return nil, false
	}
	return bloom.ToFilterLoad(m.filter), true
}

// MarkLoaded records that peer has been sent the current filter.
func (m *BloomManager) MarkLoaded(peer string) {
	m.peers[peer] = true
}

// NotFilterLoaded returns the registered peers that have not been sent
// the current filter, sorted by address.
func (m *BloomManager) NotFilterLoaded() []string {
	var out []string
	for addr, loaded := range m.peers {
		if !loaded {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// PeerDisconnected forgets a peer's loaded-filter state.
func (m *BloomManager) PeerDisconnected(peer string) {
	delete(m.peers, peer)
}

// MatchesTx reports whether tx is relevant to the loaded filter or the
// rescan's watched scripts: its txid or any of its output scripts match.
func (m *BloomManager) MatchesTx(tx *wire.MsgTx) bool {
	if m.filter != nil {
		hash := tx.TxHash()
		if m.filter.Contains(hash[:]) {
			return true
		}
	}
	for _, out := range tx.TxOut {
		if m.filter != nil && m.filter.Contains(out.PkScript) {
			return true
		}
		if m.Rescan.Matches(out.PkScript) {
			return true
		}
	}
	return false
}

// HandleMerkleBlock extracts the transactions a received merkle block
// claims matched our filter, caches the block by height, and queues it
// for in-order consumption by Process. The extracted match set is
// returned so the caller can report receipt immediately.
func (m *BloomManager) HandleMerkleBlock(height int32, mb *wire.MsgMerkleBlock) ([]chainhash.Hash, error) {
	matches, root, err := wire.ExtractMatches(mb)
	if err != nil {
		return nil, err
	}
	if root != mb.Header.MerkleRoot {
		return nil, ErrMerkleRootMismatch
	}

	m.Rescan.Cache.Push(height, mb)
	m.Rescan.Received(height)

	out := make([]chainhash.Hash, len(matches))
	for i, h := range matches {
		out[i] = *h
	}
	m.pending[height] = ProcessedBlock{
		Height:      height,
		BlockHash:   mb.Header.BlockHash(),
		Matched:     out,
		MerkleBlock: mb,
	}
	return out, nil
}

// Process consumes received merkle blocks in strict height order starting
// at the rescan cursor, stopping at the first gap. It returns the blocks
// consumed and whether the rescan just ran past its end height and
// stopped.
func (m *BloomManager) Process() (processed []ProcessedBlock, stopped bool) {
	r := m.Rescan
	if !r.Active {
		return nil, false
	}
	for {
		if r.End != nil && r.Current > *r.End {
			r.Active = false
			return processed, true
		}
		h := r.Current
		if !r.HasReceived(h) {
			return processed, false
		}

		pb, ok := m.pending[h]
		if !ok {
			// Satisfied from the cache by a prior scan; re-extract the
			// matches from the cached block.
			pb = ProcessedBlock{Height: h, Cached: true}
			if mb, hit := r.Cache.Get(h); hit {
				pb.MerkleBlock = mb
				pb.BlockHash = mb.Header.BlockHash()
				if matches, root, err := wire.ExtractMatches(mb); err == nil && root == mb.Header.MerkleRoot {
					for _, mh := range matches {
						pb.Matched = append(pb.Matched, *mh)
					}
				}
			}
		}
		delete(m.pending, h)
		processed = append(processed, pb)
		r.Current++
	}
}

// Rollback drops all rescan and cache state above height, used when a
// reorg disconnects blocks the scan may already have consumed.
func (m *BloomManager) Rollback(height int32) {
	for h := range m.pending {
		if h > height {
			delete(m.pending, h)
		}
	}
	m.Rescan.Rollback(height)
}
