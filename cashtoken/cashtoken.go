// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cashtoken implements the CashToken scriptPubKey prefix: wrapping
// and unwrapping the 0xEF-tagged OutputData that rides alongside a regular
// output script.
package cashtoken

import (
	"bytes"
	"errors"
	"io"

	"github.com/shellreserve/bchspv/wire"
)

// TokenIDSize is the fixed length in bytes of a Token ID.
const TokenIDSize = 32

// MaxCommitmentLength bounds a non-fungible commitment's length.
const MaxCommitmentLength = 40

// Capability is the low nibble of the bitfield byte: what minting rights
// the holder of this output has over the token category.
type Capability byte

const (
	CapabilityNone    Capability = 0
	CapabilityMutable Capability = 1
	CapabilityMinting Capability = 2
)

// Structure flags occupy the high nibble of the bitfield byte.
const (
	flagHasAmount          byte = 0x10
	flagHasNFT             byte = 0x20
	flagHasCommitmentLen   byte = 0x40
	flagReserved           byte = 0x80
	capabilityMask         byte = 0x0f
)

var (
	// ErrNotAToken describes a script with no CashToken prefix. Unwrap
	// does not return it: such a script comes back unchanged with a nil
	// token and a nil error.
	ErrNotAToken = errors.New("cashtoken: script has no token prefix")
	// ErrInvalidBitfield is returned when the reserved bit is set or the
	// capability nibble is out of range.
	ErrInvalidBitfield = errors.New("cashtoken: invalid bitfield")
	// ErrCommitmentTooLong is returned by Encode when a commitment exceeds
	// MaxCommitmentLength.
	ErrCommitmentTooLong = errors.New("cashtoken: commitment exceeds 40 bytes")
)

// OutputData is the token payload wrapped ahead of a transaction output's
// real scriptPubKey.
type OutputData struct {
	ID         [TokenIDSize]byte
	Capability Capability
	HasNFT     bool
	Commitment []byte
	HasAmount  bool
	Amount     int64
}

// IsMintingNFT reports whether this output's NFT, if any, carries minting
// capability.
func (d *OutputData) IsMintingNFT() bool {
	return d.HasNFT && d.Capability == CapabilityMinting
}

func (d *OutputData) bitfield() (byte, error) {
	if d.Capability > CapabilityMinting {
		return 0, ErrInvalidBitfield
	}
	b := byte(d.Capability)
	if d.HasAmount {
		b |= flagHasAmount
	}
	if d.HasNFT {
		b |= flagHasNFT
	}
	if d.HasNFT && len(d.Commitment) > 0 {
		b |= flagHasCommitmentLen
	}
	return b, nil
}

// Encode serializes OutputData in wire order: id || bitfield ||
// (if HasCommitmentLength) VarInt-prefixed commitment ||
// (if HasAmount) VarInt amount.
func (d *OutputData) Encode(w io.Writer) error {
	bitfield, err := d.bitfield()
	if err != nil {
		return err
	}
	if _, err := w.Write(d.ID[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{bitfield}); err != nil {
		return err
	}
	if bitfield&flagHasCommitmentLen != 0 {
		if len(d.Commitment) > MaxCommitmentLength {
			return ErrCommitmentTooLong
		}
		if err := wire.WriteVarBytes(w, d.Commitment); err != nil {
			return err
		}
	}
	if bitfield&flagHasAmount != 0 {
		if err := wire.WriteVarInt(w, uint64(d.Amount)); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads an OutputData from r per the wire order described on
// Encode.
func (d *OutputData) Decode(r io.Reader) error {
	if _, err := io.ReadFull(r, d.ID[:]); err != nil {
		return err
	}
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	bitfield := buf[0]
	if bitfield&flagReserved != 0 {
		return ErrInvalidBitfield
	}
	capability := Capability(bitfield & capabilityMask)
	if capability > CapabilityMinting {
		return ErrInvalidBitfield
	}
	d.Capability = capability
	d.HasNFT = bitfield&flagHasNFT != 0
	d.HasAmount = bitfield&flagHasAmount != 0

	if bitfield&flagHasCommitmentLen != 0 {
		commitment, err := wire.ReadVarBytes(r, MaxCommitmentLength, "commitment")
		if err != nil {
			return err
		}
		d.Commitment = commitment
	}
	if bitfield&flagHasAmount != 0 {
		amount, err := wire.ReadVarInt(r)
		if err != nil {
			return err
		}
		d.Amount = int64(amount)
	}
	return nil
}

// Wrap prepends the 0xEF token prefix and serialized data ahead of script.
// If data is nil, script is returned unmodified.
func Wrap(script []byte, data *OutputData) ([]byte, error) {
	if data == nil {
		return script, nil
	}
	var buf bytes.Buffer
	buf.WriteByte(0xEF)
	if err := data.Encode(&buf); err != nil {
		return nil, err
	}
	buf.Write(script)
	return buf.Bytes(), nil
}

// Unwrap splits a scriptPubKey into its real script and, if present, the
// CashToken OutputData that preceded it.
func Unwrap(script []byte) ([]byte, *OutputData, error) {
	if len(script) == 0 || script[0] != 0xEF {
		return script, nil, nil
	}
	r := bytes.NewReader(script[1:])
	data := new(OutputData)
	if err := data.Decode(r); err != nil {
		return nil, nil, err
	}
	remaining := make([]byte, r.Len())
	if _, err := io.ReadFull(r, remaining); err != nil {
		return nil, nil, err
	}
	return remaining, data, nil
}
