// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bfmgr implements the BloomManager: loading a filter onto our
// peers, requesting merkle blocks for a height range, and matching
// returned merkle blocks against the transactions and scripts a rescan is
// watching for.
package bfmgr

import (
	"sort"

	"github.com/shellreserve/bchspv/wire"
)

// MerkleBlockCache is a fixed-byte-capacity cache of recently received
// merkle blocks, keyed by height, evicting the oldest entries once it
// overflows its capacity.
type MerkleBlockCache struct {
	entries  map[int32]*wire.MsgMerkleBlock
	size     int
	capacity int
}

// NewMerkleBlockCache creates a cache bounded to capacity bytes.
func NewMerkleBlockCache(capacity int) *MerkleBlockCache {
	return &MerkleBlockCache{entries: make(map[int32]*wire.MsgMerkleBlock), capacity: capacity}
}

func merkleBlockLen(mb *wire.MsgMerkleBlock) int {
	return wire.BlockHeaderLen + 4 + len(mb.Hashes)*32 + len(mb.Flags)
}

// Push inserts mb at height, evicting the oldest cached entries until the
// cache is back within capacity. Returns false without inserting if mb
// alone exceeds the capacity.
func (c *MerkleBlockCache) Push(height int32, mb *wire.MsgMerkleBlock) bool {
	size := merkleBlockLen(mb)
	if size > c.capacity {
		return false
	}
	c.entries[height] = mb
	c.size += size

	for c.size > c.capacity {
		oldest := c.oldestHeight()
		if old, ok := c.entries[oldest]; ok {
			c.size -= merkleBlockLen(old)
			delete(c.entries, oldest)
		} else {
			break
		}
	}
	return true
}

func (c *MerkleBlockCache) oldestHeight() int32 {
	first := true
	var min int32
	for h := range c.entries {
		if first || h < min {
			min = h
			first = false
		}
	}
	return min
}

// Get returns the cached merkle block at height, if any.
func (c *MerkleBlockCache) Get(height int32) (*wire.MsgMerkleBlock, bool) {
	mb, ok := c.entries[height]
	return mb, ok
}

// Heights returns every cached height, ascending.
func (c *MerkleBlockCache) Heights() []int32 {
	out := make([]int32, 0, len(c.entries))
	for h := range c.entries {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Rollback drops every cached entry above height, used after a reorg
// invalidates that part of the chain.
func (c *MerkleBlockCache) Rollback(height int32) {
	for h, mb := range c.entries {
		if h > height {
			c.size -= merkleBlockLen(mb)
			delete(c.entries, h)
		}
	}
}

// Len returns the number of cached entries.
func (c *MerkleBlockCache) Len() int { return len(c.entries) }

// Size returns the cache's current byte usage.
func (c *MerkleBlockCache) Size() int { return c.size }
