// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cashaddr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/chaincfg"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		make([]byte, 20),
		make([]byte, 32),
	}
	for i := range payloads[0] {
		payloads[0][i] = byte(i)
	}
	for i := range payloads[1] {
		payloads[1][i] = byte(i * 3)
	}

	for _, typ := range []Type{TypeP2PKH, TypeP2SH, TypeP2PKHToken, TypeP2SHToken} {
		for _, raw := range payloads {
			addr, err := Encode(chaincfg.Bitcoin, typ, raw)
			require.NoError(t, err)

			decoded, decodedType, net, err := Decode(addr)
			require.NoError(t, err)
			require.Equal(t, raw, decoded)
			require.Equal(t, typ, decodedType)
			require.Equal(t, chaincfg.Bitcoin, net)
		}
	}
}

func TestMixedCaseRejected(t *testing.T) {
	addr, err := Encode(chaincfg.Bitcoin, TypeP2PKH, make([]byte, 20))
	require.NoError(t, err)

	mixed := strings.ToUpper(addr[:len(addr)/2]) + addr[len(addr)/2:]
	_, _, _, err = Decode(mixed)
	require.ErrorIs(t, err, ErrMixedCase)
}

func TestAllUpperCaseAccepted(t *testing.T) {
	addr, err := Encode(chaincfg.Bitcoin, TypeP2PKH, make([]byte, 20))
	require.NoError(t, err)

	upper := strings.ToUpper(addr)
	_, _, _, err = Decode(upper)
	require.NoError(t, err)
}
