// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChipBufferSize(t *testing.T) {
	for _, tc := range []struct {
		id     uint16
		rctl   uint32
		buffer uint
	}{
		{id82566, rctl_bsize_2048, 2048},
		{id82573, rctl_long_packet_enable | rctl_bsize_8192 | rctl_bsize_extension | rctl_strip_crc, 8192},
		{id82563, rctl_long_packet_enable | 9<<rctl_bsize_flex_shift | rctl_strip_crc, 9 * 1024},
		{id82571, rctl_long_packet_enable | 10<<rctl_bsize_flex_shift | rctl_strip_crc, 10 * 1024},
	} {
		ch, err := chip_for(tc.id)
		require.NoError(t, err)
		assert.Equal(t, tc.rctl, ch.rctl_buffer_size(), ch.name)
		assert.Equal(t, tc.buffer, ch.buffer_bytes(), ch.name)
		assert.GreaterOrEqual(t, ch.buffer_bytes(), ch.rx_buffer_bytes, ch.name)
	}
}

func TestChipPba(t *testing.T) {
	ch, _ := chip_for(id82571)
	v, ok := ch.pba_for(0x00100030)
	require.True(t, ok)
	assert.Equal(t, uint32(0x20), v)

	ch, _ = chip_for(id82573)
	v, ok = ch.pba_for(0x0c)
	require.True(t, ok)
	assert.Equal(t, uint32(14), v)

	ch, _ = chip_for(id82566)
	_, ok = ch.pba_for(0x10)
	assert.False(t, ok)
}

func TestChipIds(t *testing.T) {
	for id, want := range map[uint16]string{
		0x1096: "i82563", 0x10ba: "i82563",
		0x1049: "i82566", 0x104a: "i82566", 0x104d: "i82566",
		0x10a4: "i82571", 0x105e: "i82571",
		0x10b9: "i82572",
		0x108b: "i82573", 0x108c: "i82573", 0x109a: "i82573",
	} {
		n, ok := ChipName(id)
		assert.True(t, ok)
		assert.Equal(t, want, n, "0x%04x", id)
	}
}

func TestResetPba(t *testing.T) {
	r := newRig(t, id82573)
	require.NoError(t, r.c.Reset())
	assert.Equal(t, uint32(14), r.c.pba)
	assert.Equal(t, uint32(14), pba.get(r.c))
}
