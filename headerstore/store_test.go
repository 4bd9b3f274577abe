// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package headerstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/wire"
)

func testHeader(nonce uint32) wire.BlockHeader {
	return wire.BlockHeader{
		Version:   1,
		Timestamp: time.Unix(1600000000, 0),
		Bits:      0x1d00ffff,
		Nonce:     nonce,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "headers.dat")
	s, err := Create(path, testHeader(0))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	idx, err := s.Put(testHeader(1), testHeader(2), testHeader(3))
	require.NoError(t, err)
	require.Equal(t, uint32(3), idx, "Put returns the new tip height")

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, uint32(4), n, "Len counts the implicit genesis")

	h, err := s.Get(2)
	require.NoError(t, err)
	require.Equal(t, uint32(2), h.Nonce)
}

func TestGetIndexZeroReturnsGenesis(t *testing.T) {
	s := newTestStore(t)

	h, err := s.Get(0)
	require.NoError(t, err)
	wantHeader := testHeader(0)
	require.Equal(t, wantHeader.BlockHash(), h.BlockHash())
}

func TestTruncateDropsTrailingRecords(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put(testHeader(1), testHeader(2), testHeader(3))
	require.NoError(t, err)

	require.NoError(t, s.Truncate(1))
	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, uint32(2), n)
}

func TestHealRecoversFromPartialRecord(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put(testHeader(1))
	require.NoError(t, err)

	// Simulate a crash mid-write: append a partial, truncated record.
	require.NoError(t, s.file.Truncate(wire.BlockHeaderLen+10))

	require.ErrorIs(t, s.Check(), ErrCorrupt)
	require.NoError(t, s.Heal())
	require.NoError(t, s.Check())

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, uint32(2), n)
}

func TestIterStartsAtGenesis(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put(testHeader(1), testHeader(2), testHeader(3))
	require.NoError(t, err)

	var got []uint32
	require.NoError(t, s.Iter(func(index uint32, h wire.BlockHeader) (bool, error) {
		got = append(got, h.Nonce)
		return true, nil
	}))
	require.Equal(t, []uint32{0, 1, 2, 3}, got)
}
