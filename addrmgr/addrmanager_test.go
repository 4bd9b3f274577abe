// Copyright (c) 2025 The bchspv developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shellreserve/bchspv/wire"
)

func testAddr(ip string, port uint16) *wire.NetAddress {
	return &wire.NetAddress{IP: net.ParseIP(ip), Port: port, Timestamp: time.Now()}
}

func TestAddAddressThenGetAddress(t *testing.T) {
	a := New()
	na := testAddr("1.2.3.4", 8333)
	a.AddAddress(na, nil)

	require.Equal(t, 1, a.NumAddresses())
	got := a.GetAddress()
	require.NotNil(t, got)
	require.Equal(t, na.IP.String(), got.NetAddress().IP.String())
}

func TestAddAddressDeduplicates(t *testing.T) {
	a := New()
	na := testAddr("1.2.3.4", 8333)
	a.AddAddress(na, nil)
	a.AddAddress(na, nil)

	require.Equal(t, 1, a.NumAddresses())
}

func TestConnectedClearsAttempts(t *testing.T) {
	a := New()
	na := testAddr("1.2.3.4", 8333)
	a.AddAddress(na, nil)

	a.Attempt(na)
	a.Attempt(na)
	a.Connected(na)

	got := a.GetAddress()
	require.NotNil(t, got)
}

func TestIsBadAfterMaxFailures(t *testing.T) {
	ka := TstNewKnownAddress(testAddr("5.6.7.8", 8333), maxFailures, time.Now().Add(-time.Hour), time.Time{}, false, 1)
	require.True(t, TstKnownAddressIsBad(ka))
}

func TestChanceDecaysWithAttempts(t *testing.T) {
	fresh := TstNewKnownAddress(testAddr("5.6.7.8", 8333), 0, time.Now(), time.Time{}, false, 1)
	tried := TstNewKnownAddress(testAddr("5.6.7.8", 8333), 3, time.Now(), time.Time{}, false, 1)
	require.Greater(t, TstKnownAddressChance(fresh), TstKnownAddressChance(tried))
}
