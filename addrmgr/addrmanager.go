// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr tracks addresses discovered from peers and rates them by
// how recently and how reliably we've been able to connect, so the
// PeerManager can pick good candidates for outbound connections without
// hammering addresses that are probably dead.
package addrmgr

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shellreserve/bchspv/wire"
)

// Time constants governing an address's staleness and retry backoff.
const (
	// numMissingDays is how long we track failed attempts before
	// considering an address bad outright.
	numMissingDays = 30
	// numRetries is the maximum number of retries before an address is
	// bad if it hasn't been seen recently.
	numRetries = 3
	// minBadDays is the minimum age before an address with too many
	// failed attempts is marked bad.
	minBadDays = 7
	// maxFailures is the maximum number of failures allowed without a
	// success before an address is considered bad, regardless of age.
	maxFailures = 10

	dumpAddressInterval = time.Minute * 10
	triedBucketCount    = 64
	newBucketCount      = 1024
)

// KnownAddress tracks one address we've learned about, along with our
// history of connection attempts to it.
type KnownAddress struct {
	na          *wire.NetAddress
	srcAddr     *wire.NetAddress
	attempts    int
	lastattempt time.Time
	lastsuccess time.Time
	tried       bool
	refs        int
}

// NetAddress returns the underlying network address.
func (ka *KnownAddress) NetAddress() *wire.NetAddress { return ka.na }

// LastAttempt returns the last time we tried connecting to this address.
func (ka *KnownAddress) LastAttempt() time.Time { return ka.lastattempt }

// chance returns the selection probability for this address in the range
// [0, 1]: it decays with each failed attempt and with how long it's been
// since the address was last seen, tempered so a perfect address never
// falls to zero.
func (ka *KnownAddress) chance() float64 {
	now := time.Now()
	lastAttempt := ka.lastattempt
	if lastAttempt.IsZero() {
		lastAttempt = now.Add(-1 * numMissingDays * 24 * time.Hour)
	}

	c := 1.0
	lastSeen := now.Sub(lastAttempt)
	if lastSeen < 0 {
		lastSeen = 0
	}
	switch {
	case lastSeen < 10*time.Minute:
		c = 1.0
	case lastSeen < time.Hour:
		c = 0.5
	case lastSeen < 24*time.Hour:
		c = 0.1
	default:
		c = 0.01
	}

	for i := 0; i < ka.attempts && i < 8; i++ {
		c /= 1.5
	}
	return c
}

// isBad reports whether an address should no longer be tried: too many
// failed attempts without a recent success, or stale past the missing
// window with no successful connection ever recorded.
func (ka *KnownAddress) isBad() bool {
	if ka.lastattempt.After(time.Now().Add(-1 * time.Minute)) {
		return false
	}
	if ka.lastattempt.After(ka.na.Timestamp.Add(60 * time.Second)) && ka.attempts >= maxFailures {
		return true
	}
	if ka.lastsuccess.IsZero() && ka.attempts >= numRetries {
		return true
	}
	if ka.lastsuccess.IsZero() && time.Since(ka.na.Timestamp) > numMissingDays*24*time.Hour {
		return true
	}
	if time.Since(ka.lastsuccess) > minBadDays*24*time.Hour && ka.attempts >= numRetries {
		return true
	}
	return false
}

// AddrManager tracks every address we know about in a single table keyed
// by address. Unlike btcd, it does not split addresses into "new" and
// "tried" buckets.
type AddrManager struct {
	mu      sync.Mutex
	rand    *rand.Rand
	addrs   map[string]*KnownAddress
	started bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New creates an empty address manager.
func New() *AddrManager {
	return &AddrManager{
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		addrs: make(map[string]*KnownAddress),
	}
}

func key(na *wire.NetAddress) string {
	return na.IP.String() + ":" + itoa(int(na.Port))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// AddAddress records an address learned from srcAddr (the peer that told
// us about it), creating a new KnownAddress or bumping an existing one's
// reference count.
func (a *AddrManager) AddAddress(na, srcAddr *wire.NetAddress) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key(na)
	if ka, ok := a.addrs[k]; ok {
		ka.refs++
		if na.Timestamp.After(ka.na.Timestamp) {
			ka.na.Timestamp = na.Timestamp
		}
		return
	}
	a.addrs[k] = &KnownAddress{na: na, srcAddr: srcAddr, refs: 1}
}

// AddAddresses records every address in a list, as from an addr message.
func (a *AddrManager) AddAddresses(addrs []*wire.NetAddress, srcAddr *wire.NetAddress) {
	for _, na := range addrs {
		a.AddAddress(na, srcAddr)
	}
}

// Attempt records a connection attempt to addr, succeeded or not.
func (a *AddrManager) Attempt(addr *wire.NetAddress) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ka, ok := a.addrs[key(addr)]; ok {
		ka.attempts++
		ka.lastattempt = time.Now()
	}
}

// Connected marks addr as having just had a live, successful connection.
func (a *AddrManager) Connected(addr *wire.NetAddress) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ka, ok := a.addrs[key(addr)]; ok {
		ka.lastsuccess = time.Now()
		ka.lastattempt = ka.lastsuccess
		ka.attempts = 0
		ka.tried = true
	}
}

// Good resets an address's failure count after a fully successful session
// (handshake completed, stayed connected a reasonable while).
func (a *AddrManager) Good(addr *wire.NetAddress) {
	a.Connected(addr)
}

// NumAddresses returns how many addresses are currently tracked.
func (a *AddrManager) NumAddresses() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.addrs)
}

// GetAddress returns a random non-bad address, preferring ones with a
// higher chance() score, or nil if none are available.
func (a *AddrManager) GetAddress() *KnownAddress {
	a.mu.Lock()
	defer a.mu.Unlock()

	var best *KnownAddress
	bestScore := -1.0
	for _, ka := range a.addrs {
		if ka.isBad() {
			continue
		}
		score := ka.chance() * (0.5 + a.rand.Float64()/2)
		if score > bestScore {
			bestScore = score
			best = ka
		}
	}
	return best
}

// AddressCache returns up to numAddresses known-good addresses, used to
// answer a peer's getaddr request.
func (a *AddrManager) AddressCache(numAddresses int) []*wire.NetAddress {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*wire.NetAddress, 0, numAddresses)
	for _, ka := range a.addrs {
		if ka.isBad() {
			continue
		}
		out = append(out, ka.na)
		if len(out) >= numAddresses {
			break
		}
	}
	return out
}

// Start is a placeholder lifecycle hook kept for symmetry with the other
// sub-managers composed into the state machine; AddrManager needs no
// background goroutine today.
func (a *AddrManager) Start() {
	a.mu.Lock()
	a.started = true
	a.mu.Unlock()
}

// Stop is the matching lifecycle hook for Start.
func (a *AddrManager) Stop() {
	a.mu.Lock()
	a.started = false
	a.mu.Unlock()
}
