// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cashaddr implements the CashAddr address format: a bech32-like
// encoding with a checksum algorithm specific to Bitcoin Cash, distinct
// from the BIP-173 bech32 used by segwit addresses.
package cashaddr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/shellreserve/bchspv/chaincfg"
)

// Type is the address payload's semantic type, encoded in the upper bits
// of the version byte.
type Type byte

const (
	TypeP2PKH      Type = 0
	TypeP2SH       Type = 8
	TypeP2PKHToken Type = 16
	TypeP2SHToken  Type = 24
)

const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// ErrMixedCase is returned when an address string mixes upper and lower
// case, which CashAddr forbids (unlike bech32, which merely normalizes).
var ErrMixedCase = errors.New("cashaddr: mixed-case string")

// ErrInvalidChecksum is returned when the embedded checksum does not
// verify.
var ErrInvalidChecksum = errors.New("cashaddr: invalid checksum")

// ErrInvalidCharacter is returned when a character outside the 5-bit
// charset is encountered.
var ErrInvalidCharacter = errors.New("cashaddr: invalid character")

// ErrUnknownHashSize is returned when the version byte's size bits don't
// match any of the defined hash lengths.
var ErrUnknownHashSize = errors.New("cashaddr: unrecognized hash size")

// ErrMissingPrefix is returned when an address has no ":"-delimited
// prefix; no default prefix is inferred.
var ErrMissingPrefix = errors.New("cashaddr: missing prefix")

var hashSizeBits = map[int]byte{
	160: 0, 192: 1, 224: 2, 256: 3, 320: 4, 384: 5, 448: 6, 512: 7,
}

var bitsHashSize = map[byte]int{
	0: 160, 1: 192, 2: 224, 3: 256, 4: 320, 5: 384, 6: 448, 7: 512,
}

// Prefix returns the CashAddr human-readable prefix for a network.
func Prefix(net chaincfg.Network) string {
	switch net {
	case chaincfg.Bitcoin:
		return "bitcoincash"
	case chaincfg.Regtest:
		return "bchreg"
	default:
		return "bchtest"
	}
}

// polymod computes the CashAddr BCH checksum over a slice of 5-bit values,
// per the algorithm specified by the CashAddr format (distinct from
// BIP-173's generator polynomial).
func polymod(values []byte) uint64 {
	var c uint64 = 1
	for _, d := range values {
		c0 := byte(c >> 35)
		c = ((c & 0x07ffffffff) << 5) ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}

func expandPrefix(prefix string) []byte {
	out := make([]byte, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		out[i] = prefix[i] & 0x1f
	}
	out[len(prefix)] = 0
	return out
}

func checksumBytes(c uint64) []byte {
	out := make([]byte, 8)
	for i := range out {
		out[i] = byte(c>>(5*(7-uint(i)))) & 0x1f
	}
	return out
}

// Encode produces a CashAddr string for raw hash payload with the given
// type and network.
func Encode(net chaincfg.Network, typ Type, raw []byte) (string, error) {
	sizeBits, ok := hashSizeBits[len(raw)*8]
	if !ok {
		return "", fmt.Errorf("cashaddr: %w: %d bytes", ErrUnknownHashSize, len(raw))
	}
	versionByte := byte(typ) | sizeBits

	payload := append([]byte{versionByte}, raw...)
	payload5, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}

	prefix := Prefix(net)
	checksumInput := append(expandPrefix(prefix), payload5...)
	checksumInput = append(checksumInput, make([]byte, 8)...)
	sum := polymod(checksumInput)

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, v := range payload5 {
		sb.WriteByte(charset[v])
	}
	for _, v := range checksumBytes(sum) {
		sb.WriteByte(charset[v])
	}
	return sb.String(), nil
}

// Decode parses a CashAddr string, returning the raw hash payload, its
// type, and the network its prefix maps to.
func Decode(addr string) (raw []byte, typ Type, net chaincfg.Network, err error) {
	hasLower := strings.ToLower(addr) == addr
	hasUpper := strings.ToUpper(addr) == addr
	if !hasLower && !hasUpper {
		return nil, 0, 0, ErrMixedCase
	}
	addr = strings.ToLower(addr)

	prefix := ""
	payloadStr := addr
	if idx := strings.IndexByte(addr, ':'); idx >= 0 {
		prefix = addr[:idx]
		payloadStr = addr[idx+1:]
	}
	if prefix == "" {
		return nil, 0, 0, ErrMissingPrefix
	}

	switch prefix {
	case "bitcoincash":
		net = chaincfg.Bitcoin
	case "bchreg":
		net = chaincfg.Regtest
	case "bchtest":
		net = chaincfg.Testnet
	default:
		net = chaincfg.Bitcoin
	}

	values := make([]byte, len(payloadStr))
	for i, r := range payloadStr {
		pos := strings.IndexRune(charset, r)
		if pos < 0 {
			return nil, 0, 0, ErrInvalidCharacter
		}
		values[i] = byte(pos)
	}
	if len(values) < 8 {
		return nil, 0, 0, ErrInvalidChecksum
	}

	checksumInput := append(expandPrefix(prefix), values...)
	if polymod(checksumInput) != 0 {
		return nil, 0, 0, ErrInvalidChecksum
	}

	payload5 := values[:len(values)-8]
	payload, err := bech32.ConvertBits(payload5, 5, 8, false)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(payload) < 1 {
		return nil, 0, 0, ErrInvalidChecksum
	}

	versionByte := payload[0]
	sizeBits := versionByte & 0x07
	size, ok := bitsHashSize[sizeBits]
	if !ok {
		return nil, 0, 0, ErrUnknownHashSize
	}
	raw = payload[1:]
	if len(raw)*8 != size {
		return nil, 0, 0, ErrUnknownHashSize
	}
	typ = Type(versionByte &^ 0x07)
	return raw, typ, net, nil
}
