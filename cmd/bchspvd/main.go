// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/shellreserve/bchspv/headerstore"
	"github.com/shellreserve/bchspv/p2p"
	"github.com/shellreserve/bchspv/wire"
)

// conn tracks a live outbound TCP connection and the goroutine reading
// messages off it into the reactor's inbound channel.
type conn struct {
	addr string
	nc   net.Conn
}

// inboundMsg is what a conn's reader or dialer goroutine hands back to
// the reactor's run loop, which is the only goroutine allowed to call
// into the state machine. connected marks a successful dial.
type inboundMsg struct {
	addr      string
	msg       wire.Message
	err       error
	connected bool
}

// reactor owns the single-threaded state machine and the goroutines that
// feed it: one reader per connection, plus a ticker. It is the only piece
// of this program that performs actual network I/O; the state machine
// itself never blocks and produces only Io values describing what should
// happen, which the reactor then carries out.
type reactor struct {
	cfg *config
	sm  *p2p.StateMachine

	mu    sync.Mutex
	conns map[string]*conn

	inbound chan inboundMsg
	timers  chan string
	quit    chan struct{}
}

func newReactor(cfg *config, sm *p2p.StateMachine) *reactor {
	return &reactor{
		cfg:     cfg,
		sm:      sm,
		conns:   make(map[string]*conn),
		inbound: make(chan inboundMsg, 256),
		timers:  make(chan string, 16),
		quit:    make(chan struct{}),
	}
}

func (r *reactor) perform(actions []p2p.Io) {
	for _, io := range actions {
		switch a := io.(type) {
		case p2p.SendMessage:
			r.send(a.Addr, a.Message)
		case p2p.Connect:
			r.perform(r.sm.Attempted(a.Addr, time.Now()))
			go r.dial(a.Addr)
		case p2p.Disconnect:
			logPeer.Infof("disconnecting %s: %s", a.Addr, a.Reason)
			r.drop(a.Addr)
		case p2p.SetTimer:
			name := a.Name
			time.AfterFunc(a.After, func() {
				select {
				case r.timers <- name:
				case <-r.quit:
				}
			})
		case p2p.EmitEvent:
			logP2P.Debugf("event: %#v", a.Event)
		}
	}
}

func (r *reactor) send(addr string, msg wire.Message) {
	r.mu.Lock()
	c, ok := r.conns[addr]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := wire.WriteMessage(c.nc, msg, r.cfg.params.WireMagic); err != nil {
		logP2P.Warnf("write to %s failed: %v", addr, err)
		r.drop(addr)
	}
}

func (r *reactor) dial(addr string) {
	nc, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		logPeer.Warnf("dial %s failed: %v", addr, err)
		return
	}
	c := &conn{addr: addr, nc: nc}
	r.mu.Lock()
	r.conns[addr] = c
	r.mu.Unlock()

	select {
	case r.inbound <- inboundMsg{addr: addr, connected: true}:
	case <-r.quit:
		return
	}
	r.readLoop(c)
}

func (r *reactor) readLoop(c *conn) {
	for {
		msg, err := wire.ReadMessage(c.nc, r.cfg.params.WireMagic)
		if err != nil {
			select {
			case r.inbound <- inboundMsg{addr: c.addr, err: err}:
			case <-r.quit:
			}
			return
		}
		select {
		case r.inbound <- inboundMsg{addr: c.addr, msg: msg}:
		case <-r.quit:
			return
		}
	}
}

func (r *reactor) drop(addr string) {
	r.mu.Lock()
	c, ok := r.conns[addr]
	delete(r.conns, addr)
	r.mu.Unlock()
	if ok {
		c.nc.Close()
	}
}

func (r *reactor) run() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	r.perform(r.sm.Initialize(time.Now()))
	for _, addr := range r.cfg.ConnectPeers {
		r.perform(r.sm.Attempted(addr, time.Now()))
		go r.dial(addr)
	}
	for _, addr := range r.cfg.AddPeers {
		r.perform(r.sm.Attempted(addr, time.Now()))
		go r.dial(addr)
	}

	for {
		select {
		case <-r.quit:
			return

		case <-ticker.C:
			r.perform(r.sm.Tick(time.Now()))

		case name := <-r.timers:
			r.perform(r.sm.TimerExpired(name, time.Now()))

		case im := <-r.inbound:
			switch {
			case im.connected:
				r.perform(r.sm.PeerConnected(im.addr, false, time.Now()))
			case im.err != nil:
				logPeer.Infof("%s: %v", im.addr, im.err)
				r.drop(im.addr)
				r.perform(r.sm.PeerDisconnected(im.addr, p2p.NewOther(im.err.Error())))
			default:
				r.perform(r.sm.HandleMessage(im.addr, im.msg, time.Now()))
			}
		}
	}
}

func (r *reactor) shutdown() {
	close(r.quit)
	r.mu.Lock()
	for _, c := range r.conns {
		c.nc.Close()
	}
	r.mu.Unlock()
}

// randomNonce generates the random nonce a peer uses to detect
// self-connections in the version handshake.
func randomNonce() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

func main() {
	cfg, _, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logRotator.Close()

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		logChain.Errorf("unable to create data directory: %v", err)
		os.Exit(1)
	}

	storePath := filepath.Join(cfg.DataDir, "headers.dat")
	store, err := headerstore.Open(storePath, cfg.params.GenesisHeader)
	if err != nil {
		logChain.Errorf("unable to open header store: %v", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Check(); err != nil {
		logChain.Warnf("header store corrupt, healing: %v", err)
		if err := store.Heal(); err != nil {
			logChain.Errorf("unable to heal header store: %v", err)
			os.Exit(1)
		}
	}

	whitelist := make(map[string]bool)
	var uaWhitelist []string
	for _, w := range cfg.Whitelists {
		if net.ParseIP(w) != nil {
			whitelist[w] = true
		} else {
			uaWhitelist = append(uaWhitelist, w)
		}
	}

	sm, err := p2p.New(p2p.Config{
		Params:              cfg.params,
		Nonce:               randomNonce(),
		Store:               store,
		MaxInbound:          cfg.MaxPeers,
		Whitelist:           whitelist,
		WhitelistUserAgents: uaWhitelist,
	}, filepath.Join(cfg.DataDir, "submitted.ldb"))
	if err != nil {
		logChain.Errorf("unable to construct state machine: %v", err)
		os.Exit(1)
	}
	defer sm.Close()

	// Replay persisted headers into the fresh block tree so sync resumes
	// from the stored tip instead of genesis.
	var batch []wire.BlockHeader
	err = store.Iter(func(index uint32, h wire.BlockHeader) (bool, error) {
		if index == 0 {
			return true, nil
		}
		batch = append(batch, h)
		if len(batch) == wire.MaxMessageHeaders {
			if _, _, err := sm.Tree().ImportBlocks(batch); err != nil {
				return false, err
			}
			batch = batch[:0]
		}
		return true, nil
	})
	if err == nil && len(batch) > 0 {
		_, _, err = sm.Tree().ImportBlocks(batch)
	}
	if err != nil {
		logChain.Errorf("unable to replay stored headers: %v", err)
		os.Exit(1)
	}
	logChain.Infof("header store loaded, tip height %d", sm.Tree().Height())

	r := newReactor(cfg, sm)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		logP2P.Info("received interrupt, shutting down")
		r.shutdown()
	}()

	logP2P.Infof("bchspvd starting on %s", cfg.params.Name)
	r.run()
}
