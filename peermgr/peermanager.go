// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peermgr drives the version handshake and decides which peers
// this client is willing to keep: minimum protocol version, required
// services, connection caps, self-connection detection, and reconnect
// backoff for peers that drop.
package peermgr

import (
	"errors"
	"math/rand"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/decred/dcrd/lru"

	"github.com/shellreserve/bchspv/wire"
)

// Default connection caps: outbound is a target the dialer works toward,
// inbound is a hard ceiling past which new connections are refused.
const (
	DefaultMaxOutbound = 8
	DefaultMaxInbound  = 16
)

// DefaultRetryCacheSize bounds the recently-failed-peer table: the least
// recently touched addresses fall out first, so a long-running node's
// backoff state cannot grow without bound as addresses churn.
const DefaultRetryCacheSize = 1024

// Direction is which side opened the connection.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

// Config controls which peers PeerManager will accept.
type Config struct {
	MinProtocolVersion uint32
	RequiredServices   wire.ServiceFlag
	UserAgent          string
	Nonce              uint64

	// MaxOutbound is the target number of outbound connections;
	// MaxInbound is the hard inbound ceiling. Zero means the default.
	MaxOutbound int
	MaxInbound  int

	// Whitelist holds IPs (or full addresses) exempt from the inbound
	// cap. WhitelistUserAgents exempts peers whose user agent contains
	// any of the listed substrings. Neither bypasses the service or
	// protocol-version gates.
	Whitelist           map[string]bool
	WhitelistUserAgents []string
}

var (
	// ErrProtocolVersion is returned when a peer's version message
	// advertises a protocol version below Config.MinProtocolVersion.
	ErrProtocolVersion = errors.New("peermgr: protocol version too old")
	// ErrMissingServices is returned when an outbound peer's version
	// message does not advertise Config.RequiredServices.
	ErrMissingServices = errors.New("peermgr: missing required services")
	// ErrSelfConnection is returned when a peer's version message
	// echoes back our own nonce, meaning we've connected to ourself.
	ErrSelfConnection = errors.New("peermgr: detected self-connection")
	// ErrConnectionLimit is returned when an inbound connection would
	// exceed Config.MaxInbound and the peer is not whitelisted.
	ErrConnectionLimit = errors.New("peermgr: inbound connection limit reached")
)

// PeerState is the handshake and health bookkeeping for one connection.
type PeerState struct {
	Addr            string
	Direction       Direction
	Services        wire.ServiceFlag
	ProtocolVersion uint32
	UserAgent       string
	StartHeight     int32
	Relay           bool
	VersionSent     bool
	VersionReceived bool
	VerAckReceived  bool
	Whitelisted     bool
	connectedAt     time.Time
}

// Ready reports whether the handshake has fully completed in both
// directions.
func (p *PeerState) Ready() bool {
	return p.VersionReceived && p.VerAckReceived
}

// PeerManager tracks the handshake state of every connected peer and the
// retry backoff for addresses we've tried and lost. The backoff table is
// a bounded LRU so failed addresses age out instead of accumulating.
type PeerManager struct {
	cfg     Config
	peers   map[string]*PeerState
	backoff lru.KVCache[string, retryState]
	rand    *rand.Rand
}

type retryState struct {
	attempts  int
	nextRetry time.Time
}

// New creates a PeerManager from cfg.
func New(cfg Config) *PeerManager {
	if cfg.Whitelist == nil {
		cfg.Whitelist = make(map[string]bool)
	}
	if cfg.MaxOutbound == 0 {
		cfg.MaxOutbound = DefaultMaxOutbound
	}
	if cfg.MaxInbound == 0 {
		cfg.MaxInbound = DefaultMaxInbound
	}
	return &PeerManager{
		cfg:     cfg,
		peers:   make(map[string]*PeerState),
		backoff: lru.NewKVCache[string, retryState](DefaultRetryCacheSize),
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ipWhitelisted reports whether addr (host:port or bare host) is on the
// IP whitelist.
func (m *PeerManager) ipWhitelisted(addr string) bool {
	if m.cfg.Whitelist[addr] {
		return true
	}
	host, _, err := net.SplitHostPort(addr)
	return err == nil && m.cfg.Whitelist[host]
}

// uaWhitelisted reports whether ua contains any whitelisted user-agent
// substring.
func (m *PeerManager) uaWhitelisted(ua string) bool {
	for _, s := range m.cfg.WhitelistUserAgents {
		if s != "" && strings.Contains(ua, s) {
			return true
		}
	}
	return false
}

// Attempted records that a dial to addr was started, so a failure before
// the handshake still counts toward its backoff.
func (m *PeerManager) Attempted(addr string) {
	if !m.backoff.Contains(addr) {
		m.backoff.Add(addr, retryState{})
	}
}

// Connected begins tracking a new connection. Inbound connections past
// MaxInbound are refused with ErrConnectionLimit unless the address is
// whitelisted.
func (m *PeerManager) Connected(addr string, dir Direction) (*PeerState, error) {
	wl := m.ipWhitelisted(addr)
	if dir == Inbound && !wl && m.countDir(Inbound) >= m.cfg.MaxInbound {
		return nil, ErrConnectionLimit
	}
	p := &PeerState{Addr: addr, Direction: dir, Whitelisted: wl, connectedAt: time.Now()}
	m.peers[addr] = p
	m.backoff.Delete(addr)
	return p, nil
}

// Disconnected stops tracking addr.
func (m *PeerManager) Disconnected(addr string) {
	delete(m.peers, addr)
}

func (m *PeerManager) countDir(dir Direction) int {
	n := 0
	for _, p := range m.peers {
		if p.Direction == dir {
			n++
		}
	}
	return n
}

// WantsOutbound reports whether the manager is still below its outbound
// connection target.
func (m *PeerManager) WantsOutbound() bool {
	return m.countDir(Outbound) < m.cfg.MaxOutbound
}

// BuildVersion constructs the outbound version message for addr.
func (m *PeerManager) BuildVersion(addr, from string, startHeight int32) *wire.MsgVersion {
	if p, ok := m.peers[addr]; ok {
		p.VersionSent = true
	}
	return &wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		Services:        m.cfg.RequiredServices,
		Timestamp:       time.Now(),
		Nonce:           m.cfg.Nonce,
		UserAgent:       m.cfg.UserAgent,
		LastBlock:       startHeight,
	}
}

// HandleVersion validates an inbound version message against this
// client's policy and records it on the peer's state. The services gate
// applies to outbound peers only; whitelisting exempts a peer from the
// inbound cap but never from the service or version gates.
func (m *PeerManager) HandleVersion(addr string, v *wire.MsgVersion) error {
	p, ok := m.peers[addr]
	if !ok {
		var err error
		if p, err = m.Connected(addr, Inbound); err != nil {
			return err
		}
	}

	if v.Nonce == m.cfg.Nonce {
		return ErrSelfConnection
	}
	if uint32(v.ProtocolVersion) < m.cfg.MinProtocolVersion {
		return ErrProtocolVersion
	}
	if p.Direction == Outbound && !wire.HasServices(v.Services, m.cfg.RequiredServices) {
		return ErrMissingServices
	}

	p.Services = v.Services
	p.ProtocolVersion = uint32(v.ProtocolVersion)
	p.UserAgent = v.UserAgent
	p.StartHeight = v.LastBlock
	p.Relay = !v.DisableRelayTx
	p.VersionReceived = true
	if !p.Whitelisted && m.uaWhitelisted(v.UserAgent) {
		p.Whitelisted = true
	}
	log.Debugf("version from %s %s: agent=%s services=%v height=%d relay=%v",
		p.Direction, addr, v.UserAgent, v.Services, v.LastBlock, !v.DisableRelayTx)
	return nil
}

// HandleVerAck records that addr completed its half of the handshake.
func (m *PeerManager) HandleVerAck(addr string) {
	if p, ok := m.peers[addr]; ok {
		p.VerAckReceived = true
	}
}

// State returns the tracked state for addr, if any.
func (m *PeerManager) State(addr string) (*PeerState, bool) {
	p, ok := m.peers[addr]
	return p, ok
}

// Count returns the number of peers currently tracked.
func (m *PeerManager) Count() int { return len(m.peers) }

// Peers returns every tracked peer's state, sorted by address so callers
// iterating it behave deterministically.
func (m *PeerManager) Peers() []*PeerState {
	out := make([]*PeerState, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Negotiated returns the addresses of every peer whose handshake has
// completed, sorted.
func (m *PeerManager) Negotiated() []string {
	var out []string
	for addr, p := range m.peers {
		if p.Ready() {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// Relaying returns the negotiated peers that asked for transaction
// relay, sorted.
func (m *PeerManager) Relaying() []string {
	var out []string
	for addr, p := range m.peers {
		if p.Ready() && p.Relay {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// NetworkPeers returns the negotiated peers advertising full-chain
// service, sorted. These are the peers worth asking for blocks.
func (m *PeerManager) NetworkPeers() []string {
	var out []string
	for addr, p := range m.peers {
		if p.Ready() && wire.HasServices(p.Services, wire.SFNodeNetwork) {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}

// retryBackoff computes an exponential backoff delay, capped at 8x the
// base interval, with jitter to avoid synchronized reconnect storms.
func (m *PeerManager) retryBackoff(base time.Duration, attempts int) time.Duration {
	shift := attempts
	if shift > 3 {
		shift = 3
	}
	d := base << shift
	jitter := time.Duration(m.rand.Int63n(int64(base)))
	return d + jitter
}

// ShouldRetry reports whether enough time has passed since the last
// disconnect from addr to attempt reconnecting, using exponential
// backoff keyed by the addr's prior attempt count.
func (m *PeerManager) ShouldRetry(addr string, base time.Duration, now time.Time) bool {
	rs, ok := m.backoff.Lookup(addr)
	if !ok {
		return true
	}
	return !now.Before(rs.nextRetry)
}

// RecordFailedAttempt bumps addr's retry backoff after a failed connect
// or an early disconnect.
func (m *PeerManager) RecordFailedAttempt(addr string, base time.Duration) {
	rs, _ := m.backoff.Lookup(addr)
	rs.attempts++
	rs.nextRetry = time.Now().Add(m.retryBackoff(base, rs.attempts))
	m.backoff.Add(addr, rs)
}
