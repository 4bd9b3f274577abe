// Copyright (c) 2013-2024 The btcsuite developers
// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/btcsuite/btcd/wire"
)

// Variable-length integer and byte-string helpers, delegating to the
// upstream btcd implementations with this client's protocol version
// pinned. CashToken prefixes reuse the same VarInt scheme as the p2p
// protocol, so package cashtoken encodes through these.

// ReadVarInt reads a Bitcoin-scheme variable length integer from r.
func ReadVarInt(r io.Reader) (uint64, error) {
	return wire.ReadVarInt(r, ProtocolVersion)
}

// WriteVarInt writes val to w as a Bitcoin-scheme variable length
// integer.
func WriteVarInt(w io.Writer, val uint64) error {
	return wire.WriteVarInt(w, ProtocolVersion, val)
}

// ReadVarBytes reads a VarInt-prefixed byte string from r, rejecting
// lengths above maxAllowed. fieldName appears in the error message.
func ReadVarBytes(r io.Reader, maxAllowed uint32, fieldName string) ([]byte, error) {
	return wire.ReadVarBytes(r, ProtocolVersion, maxAllowed, fieldName)
}

// WriteVarBytes writes b to w prefixed by its length as a VarInt.
func WriteVarBytes(w io.Writer, b []byte) error {
	return wire.WriteVarBytes(w, ProtocolVersion, b)
}
