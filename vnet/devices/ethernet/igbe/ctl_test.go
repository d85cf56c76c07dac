// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtl(t *testing.T) {
	r := newRig(t, id82573)
	c := r.c
	for _, tc := range []struct {
		cmd  string
		rdtr uint32
		radv uint32
	}{
		{"rdtr 0", 0, 0},
		{"rdtr 0x40", 0x40, 0},
		{"radv 010", 0x40, 8},
		{"radv 65535", 0x40, 0xffff},
		{"  rdtr   7 ", 7, 0xffff},
		{"rdtr 0X1f", 0x1f, 0xffff},
		{"radv 00", 0x1f, 0},
	} {
		require.NoError(t, c.Ctl(tc.cmd), tc.cmd)
		assert.Equal(t, tc.rdtr, rdtr.get(c), tc.cmd)
		assert.Equal(t, tc.radv, radv.get(c), tc.cmd)
		assert.Equal(t, tc.rdtr, c.rdtr_value.Load(), tc.cmd)
		assert.Equal(t, tc.radv, c.radv_value.Load(), tc.cmd)
	}
}

func TestCtlBadArgument(t *testing.T) {
	r := newRig(t, id82573)
	c := r.c
	require.NoError(t, c.Ctl("rdtr 5"))
	require.NoError(t, c.Ctl("radv 6"))
	for _, cmd := range []string{
		"",
		"rdtr",
		"rdtr 1 2",
		"rdtr -1",
		"rdtr 65536",
		"rdtr 0x10000",
		"radv ten",
		"radv 09",
		"rdtr 1_000",
		"rdtr 0x_10",
		"rdtr 0b101",
		"radv 0o17",
		"rdtr 0x",
		"rdtr +5",
		"radv 0x-1",
		"radv 0x+1",
		"itr 10",
		"RDTR 10",
	} {
		assert.ErrorIs(t, c.Ctl(cmd), ErrBadArgument, "%q", cmd)
	}
	assert.Equal(t, uint32(5), rdtr.get(c))
	assert.Equal(t, uint32(6), radv.get(c))
}

func TestPromiscuous(t *testing.T) {
	r := newRig(t, id82573)
	r.configure(t)
	c := r.c
	rctl.or(c, 1<<12)
	before := rctl.get(c) &^ rctl_multicast_offset_mask

	c.SetPromiscuous(true)
	v := rctl.get(c)
	assert.Equal(t, uint32(rctl_unicast_promiscuous|rctl_multicast_promiscuous),
		v&(rctl_unicast_promiscuous|rctl_multicast_promiscuous))
	assert.Zero(t, v&rctl_multicast_offset_mask)
	assert.NotZero(t, v&rctl_enable)

	c.SetPromiscuous(false)
	assert.Equal(t, before, rctl.get(c))
}

func TestMulticast(t *testing.T) {
	for _, tc := range []struct {
		id   uint16
		addr string
		word uint
		bit  uint
	}{
		{id82573, "01:00:5e:00:00:01", 0, 16},
		{id82573, "01:00:5e:7f:ff:fa", 125, 15},
		{id82573, "33:33:00:00:00:fb", 125, 16},
		// 82566 only has 32 table words.
		{id82566, "01:00:5e:7f:ff:fa", 125 & 31, 15},
	} {
		r := newRig(t, tc.id)
		c := r.c
		a, err := net.ParseMAC(tc.addr)
		require.NoError(t, err)
		word, bit := c.mta_index(a)
		assert.Equal(t, tc.word, word, tc.addr)
		assert.Equal(t, tc.bit, bit, tc.addr)

		require.NoError(t, c.SetMulticast(a, true))
		assert.Equal(t, uint32(1)<<tc.bit, mta_for(tc.word).get(c), tc.addr)
		require.NoError(t, c.SetMulticast(a, false))
		assert.Zero(t, mta_for(tc.word).get(c), tc.addr)
	}
}

func TestMulticastBadAddress(t *testing.T) {
	r := newRig(t, id82573)
	assert.ErrorIs(t, r.c.SetMulticast(net.HardwareAddr{1, 2, 3}, true), ErrBadArgument)
}
