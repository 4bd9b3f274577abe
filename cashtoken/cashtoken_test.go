// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cashtoken

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleID() [TokenIDSize]byte {
	var id [TokenIDSize]byte
	for i := range id {
		id[i] = byte(i + 1)
	}
	return id
}

func TestWrapUnwrapFungibleOnly(t *testing.T) {
	data := &OutputData{
		ID:        sampleID(),
		HasAmount: true,
		Amount:    1234,
	}
	script := []byte{0x76, 0xa9, 0x14}

	wrapped, err := Wrap(script, data)
	require.NoError(t, err)
	require.Equal(t, byte(0xEF), wrapped[0])

	gotScript, gotData, err := Unwrap(wrapped)
	require.NoError(t, err)
	require.Equal(t, script, gotScript)
	require.Equal(t, data.ID, gotData.ID)
	require.True(t, gotData.HasAmount)
	require.Equal(t, int64(1234), gotData.Amount)
	require.False(t, gotData.HasNFT)
}

func TestWrapUnwrapMintingNFTWithCommitment(t *testing.T) {
	data := &OutputData{
		ID:         sampleID(),
		Capability: CapabilityMinting,
		HasNFT:     true,
		Commitment: []byte{0xde, 0xad, 0xbe, 0xef},
	}
	script := []byte{0x51}

	wrapped, err := Wrap(script, data)
	require.NoError(t, err)

	gotScript, gotData, err := Unwrap(wrapped)
	require.NoError(t, err)
	require.Equal(t, script, gotScript)
	require.True(t, gotData.IsMintingNFT())
	require.Equal(t, data.Commitment, gotData.Commitment)
	require.False(t, gotData.HasAmount)
}

func TestUnwrapNonToken(t *testing.T) {
	script := []byte{0x76, 0xa9, 0x14}
	gotScript, gotData, err := Unwrap(script)
	require.NoError(t, err)
	require.Nil(t, gotData)
	require.Equal(t, script, gotScript)
}

func TestDecodeRejectsReservedBit(t *testing.T) {
	data := &OutputData{ID: sampleID()}
	script := []byte{0x01}

	wrapped, err := Wrap(script, data)
	require.NoError(t, err)
	wrapped[1+TokenIDSize] |= 0x80 // set the reserved high bit

	_, _, err = Unwrap(wrapped)
	require.ErrorIs(t, err, ErrInvalidBitfield)
}

func TestCommitmentTooLongRejected(t *testing.T) {
	data := &OutputData{
		ID:         sampleID(),
		HasNFT:     true,
		Commitment: make([]byte, MaxCommitmentLength+1),
	}
	_, err := Wrap([]byte{0x01}, data)
	require.ErrorIs(t, err, ErrCommitmentTooLong)
}
