// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pingmgr implements peer liveness checks: periodic ping/pong
// round trips and disconnecting a peer that stops answering.
package pingmgr

import (
	"math/rand"
	"sort"
	"time"
)

// Default timing, matching typical full-node behavior: ping a peer two
// minutes after its last ping (other traffic does not reset this), and
// give it 30 seconds to pong before declaring it dead.
const (
	DefaultPingInterval = 2 * time.Minute
	DefaultPingTimeout  = 30 * time.Second
)

// peerState tracks one peer's outstanding ping.
type peerState struct {
	lastPing    time.Time
	nonce       uint64
	outstanding bool
	lastPong    time.Time
	latency     time.Duration
}

// PingManager decides when to ping idle peers and flags ones that failed
// to respond in time.
type PingManager struct {
	interval time.Duration
	timeout  time.Duration
	rand     *rand.Rand
	peers    map[string]*peerState
}

// New creates a PingManager using the default interval and timeout.
func New() *PingManager {
	return &PingManager{
		interval: DefaultPingInterval,
		timeout:  DefaultPingTimeout,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		peers:    make(map[string]*peerState),
	}
}

// PeerConnected begins tracking a newly connected peer.
func (m *PingManager) PeerConnected(addr string) {
	m.peers[addr] = &peerState{lastPing: time.Now()}
}

// PeerDisconnected stops tracking a peer.
func (m *PingManager) PeerDisconnected(addr string) {
	delete(m.peers, addr)
}

// ShouldPing reports whether the interval has passed since addr's last
// ping (or connect) with no ping outstanding, and if so returns the nonce
// to send.
func (m *PingManager) ShouldPing(addr string, now time.Time) (nonce uint64, ok bool) {
	p, known := m.peers[addr]
	if !known || p.outstanding {
		return 0, false
	}
	if now.Sub(p.lastPing) < m.interval {
		return 0, false
	}
	nonce = m.rand.Uint64()
	p.nonce = nonce
	p.outstanding = true
	p.lastPing = now
	return nonce, true
}

// ReceivedPong records a pong from addr, clearing the outstanding ping if
// the nonce matches. A mismatched nonce is ignored (it may answer a stale
// or forged ping).
func (m *PingManager) ReceivedPong(addr string, nonce uint64, now time.Time) bool {
	p, known := m.peers[addr]
	if !known || !p.outstanding || p.nonce != nonce {
		return false
	}
	p.outstanding = false
	p.lastPong = now
	p.latency = now.Sub(p.lastPing)
	return true
}

// Latency returns the most recent ping round trip measured for addr.
func (m *PingManager) Latency(addr string) (time.Duration, bool) {
	p, known := m.peers[addr]
	if !known || p.latency == 0 {
		return 0, false
	}
	return p.latency, true
}

// Ping is one ping the manager wants sent.
type Ping struct {
	Addr  string
	Nonce uint64
}

// DuePings returns a ping for every tracked peer whose last ping is older
// than the interval, marking each as outstanding. Results are sorted by address so the
// send order is deterministic.
func (m *PingManager) DuePings(now time.Time) []Ping {
	var addrs []string
	for addr := range m.peers {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var out []Ping
	for _, addr := range addrs {
		if nonce, ok := m.ShouldPing(addr, now); ok {
			out = append(out, Ping{Addr: addr, Nonce: nonce})
		}
	}
	return out
}

// Expired returns every peer whose outstanding ping has gone unanswered
// past the timeout, sorted by address.
func (m *PingManager) Expired(now time.Time) []string {
	var out []string
	for addr := range m.peers {
		if m.TimedOut(addr, now) {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// TimedOut reports whether addr's outstanding ping has gone unanswered
// past the timeout, meaning the connection should be dropped.
func (m *PingManager) TimedOut(addr string, now time.Time) bool {
	p, known := m.peers[addr]
	if !known || !p.outstanding {
		return false
	}
	return now.Sub(p.lastPing) > m.timeout
}
