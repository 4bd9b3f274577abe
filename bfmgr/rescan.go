// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bfmgr

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// MaxHeightsPerRequest caps how many heights a single getdata round trip
// is allowed to cover; it is half of wire.MaxInvPerMsg.
const MaxHeightsPerRequest = 25000

// HeightRange is an inclusive range of block heights.
type HeightRange struct {
	Start, End int32
}

// Rescan tracks an in-progress or completed scan of the chain for
// transactions or scripts a caller is watching for, using merkle blocks
// matched against a loaded Bloom filter.
type Rescan struct {
	Active bool
	// Current is the next height whose merkle block will be processed;
	// it starts at Start and reaches End+1 once End has been processed.
	Current int32
	Start   int32
	// End is the height to stop at; a nil End means keep scanning new
	// blocks indefinitely.
	End *int32

	Cache *MerkleBlockCache

	// Watch holds the scripts this rescan is matching against.
	Watch map[string]struct{}

	requested map[int32]struct{}
	received  map[int32]struct{}
	// cached marks received heights that were satisfied from the cache
	// rather than a fresh peer response.
	cached map[int32]struct{}
}

// NewRescan creates a Rescan backed by a merkle block cache of the given
// byte capacity.
func NewRescan(cacheCapacity int) *Rescan {
	return &Rescan{
		Cache:     NewMerkleBlockCache(cacheCapacity),
		Watch:     make(map[string]struct{}),
		requested: make(map[int32]struct{}),
		received:  make(map[int32]struct{}),
		cached:    make(map[int32]struct{}),
	}
}

// Restart begins or restarts a scan over [start, end], clearing any
// outstanding requests. A nil end scans indefinitely.
func (r *Rescan) Restart(start int32, end *int32) {
	r.Active = true
	r.Start = start
	r.Current = start
	r.End = end
	r.requested = make(map[int32]struct{})
	r.received = make(map[int32]struct{})
	r.cached = make(map[int32]struct{})
}

// Reset clears the requested-heights tracking, allowing every height in
// range to be re-requested (used after a peer that owed us a response
// disconnects).
func (r *Rescan) Reset() {
	r.requested = make(map[int32]struct{})
}

// Watches adds scriptPubKeys to watch for matches.
func (r *Rescan) Watches(scripts ...[]byte) {
	for _, s := range scripts {
		r.Watch[string(s)] = struct{}{}
	}
}

// Matches reports whether script is one this rescan is watching for.
func (r *Rescan) Matches(script []byte) bool {
	_, ok := r.Watch[string(script)]
	return ok
}

// Requests returns the sub-ranges of [lo, hi] that still need to be
// fetched from peers: heights already cached or already requested are
// skipped, and any remaining gaps are split into runs no longer than
// MaxHeightsPerRequest.
func (r *Rescan) Requests(lo, hi int32) []HeightRange {
	if hi < lo {
		return nil
	}

	var pending []int32
	for h := lo; h <= hi; h++ {
		if _, hit := r.Cache.Get(h); hit {
			r.received[h] = struct{}{}
			r.cached[h] = struct{}{}
			continue
		}
		if _, reqd := r.requested[h]; reqd {
			continue
		}
		if _, recvd := r.received[h]; recvd {
			continue
		}
		pending = append(pending, h)
	}

	var ranges []HeightRange
	for _, h := range pending {
		if n := len(ranges); n > 0 && ranges[n-1].End+1 == h {
			ranges[n-1].End = h
		} else {
			ranges = append(ranges, HeightRange{Start: h, End: h})
		}
	}

	var capped []HeightRange
	for _, rg := range ranges {
		for s := rg.Start; s <= rg.End; s += MaxHeightsPerRequest {
			e := s + MaxHeightsPerRequest - 1
			if e > rg.End {
				e = rg.End
			}
			capped = append(capped, HeightRange{Start: s, End: e})
		}
	}

	for _, rg := range capped {
		for h := rg.Start; h <= rg.End; h++ {
			r.requested[h] = struct{}{}
		}
	}
	return capped
}

// Received marks height as having a merkle block available, regardless
// of whether it matched anything.
func (r *Rescan) Received(height int32) {
	r.received[height] = struct{}{}
	delete(r.requested, height)
}

// HasReceived reports whether a merkle block for height is available.
func (r *Rescan) HasReceived(height int32) bool {
	_, ok := r.received[height]
	return ok
}

// WasCached reports whether height's merkle block came from the cache
// rather than a fresh peer response.
func (r *Rescan) WasCached(height int32) bool {
	_, ok := r.cached[height]
	return ok
}

// Rollback drops every height above to from the request/receive tracking
// and the cache, rewinding the cursor if it had moved past to.
func (r *Rescan) Rollback(to int32) {
	for h := range r.received {
		if h > to {
			delete(r.received, h)
		}
	}
	for h := range r.requested {
		if h > to {
			delete(r.requested, h)
		}
	}
	for h := range r.cached {
		if h > to {
			delete(r.cached, h)
		}
	}
	r.Cache.Rollback(to)
	if r.Current > to+1 {
		r.Current = to + 1
	}
}

// MatchedTransaction is one confirmed transaction this rescan's watch set
// matched, with the block it was found in.
type MatchedTransaction struct {
	BlockHash chainhash.Hash
	Height    int32
	TxHash    chainhash.Hash
}

// Advance moves Current forward past every height that has been fully
// received, stopping at the first gap or at End.
func (r *Rescan) Advance() {
	for {
		if r.End != nil && r.Current > *r.End {
			r.Active = false
			return
		}
		if _, ok := r.received[r.Current]; !ok {
			return
		}
		r.Current++
	}
}
