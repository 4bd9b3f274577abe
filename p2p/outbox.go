// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import (
	"time"

	"github.com/shellreserve/bchspv/wire"
)

// Io is one action the state machine wants the reactor to perform on its
// behalf: send a message, connect/disconnect a peer, arm a timer, or
// surface an Event to the caller.
type Io interface {
	ioTag()
}

type SendMessage struct {
	Addr    string
	Message wire.Message
}

func (SendMessage) ioTag() {}

type Connect struct{ Addr string }

func (Connect) ioTag() {}

type Disconnect struct {
	Addr   string
	Reason DisconnectReason
}

func (Disconnect) ioTag() {}

// SetTimer arms a one-shot callback identified by Name to fire once After
// has elapsed, surfaced back to the state machine via TimerExpired.
type SetTimer struct {
	Name  string
	After time.Duration
}

func (SetTimer) ioTag() {}

type EmitEvent struct{ Event Event }

func (EmitEvent) ioTag() {}

// Outbox accumulates the Io actions produced during a single call into
// the state machine, preserving append order, per the ordering guarantee
// that outputs from one inbound call are delivered in the order they were
// appended.
type Outbox struct {
	items []Io
}

func (o *Outbox) Send(addr string, msg wire.Message) { o.items = append(o.items, SendMessage{addr, msg}) }
func (o *Outbox) ConnectTo(addr string)               { o.items = append(o.items, Connect{addr}) }
func (o *Outbox) DisconnectFrom(addr string, reason DisconnectReason) {
	o.items = append(o.items, Disconnect{addr, reason})
}
func (o *Outbox) Timer(name string, after time.Duration) {
	o.items = append(o.items, SetTimer{name, after})
}
func (o *Outbox) Event(e Event) { o.items = append(o.items, EmitEvent{e}) }

// Drain returns every accumulated Io item and clears the outbox. It is
// the only way items leave the outbox, so draining twice without new
// appends between calls returns an empty slice the second time.
func (o *Outbox) Drain() []Io {
	items := o.items
	o.items = nil
	return items
}
