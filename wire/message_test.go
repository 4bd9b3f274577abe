// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	ping := &MsgPing{Nonce: 0xdeadbeefcafef00d}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, ping, MainNet))

	got, err := ReadMessage(&buf, MainNet)
	require.NoError(t, err)

	gotPing, ok := got.(*MsgPing)
	require.True(t, ok)
	require.Equal(t, ping.Nonce, gotPing.Nonce)
}

func TestReadMessageRejectsWrongMagic(t *testing.T) {
	ping := &MsgPing{Nonce: 1}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, ping, TestNet3))

	_, err := ReadMessage(&buf, MainNet)
	require.Error(t, err)
}

func TestReadMessageRejectsBadChecksum(t *testing.T) {
	ping := &MsgPing{Nonce: 1}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, ping, MainNet))

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xff // corrupt the last checksum byte

	_, err := ReadMessage(bytes.NewReader(raw), MainNet)
	require.Error(t, err)
}
