// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package p2p

import "github.com/shellreserve/bchspv/wire"

// DisconnectReason explains why a peer was dropped. Some reasons are
// transient (the peer may simply be retried later); others are terminal
// for this connection attempt and should count against that address's
// backoff.
type DisconnectReason struct {
	kind      disconnectKind
	detail    string
	version   uint32
	services  wire.ServiceFlag
	height    int32
	magic     uint32
}

type disconnectKind int

const (
	PeerMisbehaving disconnectKind = iota
	PeerProtocolVersion
	PeerServices
	PeerHeight
	PeerMagic
	PeerTimeout
	SelfConnection
	DecodeError
	ConnectionLimit
	Command
	Other
)

// Transient reports whether the peer may reasonably be retried later
// without additional backoff penalty.
func (r DisconnectReason) Transient() bool {
	switch r.kind {
	case ConnectionLimit, PeerTimeout, PeerHeight:
		return true
	default:
		return false
	}
}

func (r DisconnectReason) String() string {
	switch r.kind {
	case PeerMisbehaving:
		return "peer misbehaving: " + r.detail
	case PeerProtocolVersion:
		return "peer protocol version too old or too recent"
	case PeerServices:
		return "peer missing required services"
	case PeerHeight:
		return "peer chain too far behind"
	case PeerMagic:
		return "invalid network magic"
	case PeerTimeout:
		return "peer timed out: " + r.detail
	case SelfConnection:
		return "self-connection detected"
	case DecodeError:
		return "message decode error: " + r.detail
	case ConnectionLimit:
		return "inbound connection limit reached"
	case Command:
		return "command error: " + r.detail
	default:
		return "other: " + r.detail
	}
}

func NewPeerMisbehaving(why string) DisconnectReason { return DisconnectReason{kind: PeerMisbehaving, detail: why} }
func NewPeerProtocolVersion(v uint32) DisconnectReason {
	return DisconnectReason{kind: PeerProtocolVersion, version: v}
}
func NewPeerServices(s wire.ServiceFlag) DisconnectReason {
	return DisconnectReason{kind: PeerServices, services: s}
}
func NewPeerHeight(h int32) DisconnectReason  { return DisconnectReason{kind: PeerHeight, height: h} }
func NewPeerMagic(m uint32) DisconnectReason  { return DisconnectReason{kind: PeerMagic, magic: m} }
func NewPeerTimeout(why string) DisconnectReason {
	return DisconnectReason{kind: PeerTimeout, detail: why}
}
func NewSelfConnection() DisconnectReason  { return DisconnectReason{kind: SelfConnection} }
func NewDecodeError(why string) DisconnectReason {
	return DisconnectReason{kind: DecodeError, detail: why}
}
func NewConnectionLimit() DisconnectReason { return DisconnectReason{kind: ConnectionLimit} }
func NewCommandError(why string) DisconnectReason { return DisconnectReason{kind: Command, detail: why} }
func NewOther(why string) DisconnectReason { return DisconnectReason{kind: Other, detail: why} }
