// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"testing"

	"github.com/platinasystems/igbe/vnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRxInit(t *testing.T) {
	r := newRig(t, id82573)
	r.configure(t)
	c := r.c

	// One slot stays empty so tail never catches head.
	assert.Equal(t, uint32(0), c.rx.head)
	assert.Equal(t, c.rx.len()-1, c.rx.tail)
	assert.Equal(t, int(c.rx.len())-1, c.rx.n_free)
	assert.True(t, c.rx.full())
	assert.Equal(t, c.rx.tail, rdt.get(c))
	assert.Equal(t, c.rx.bytes(), rdlen.get(c))
	assert.Equal(t, uint32(c.rx.phys), rdbal.get(c))

	assert.Equal(t, uint32(default_rdtr), rdtr.get(c))
	assert.Equal(t, uint32(default_radv), radv.get(c))
	assert.Equal(t, uint32(2<<16|2), rxdctl.get(c))
	assert.Equal(t, uint32(rxcsum_ip_offload|rxcsum_tcp_offload|14), rxcsum.get(c))
	assert.Equal(t, uint32(1024/8), ert.get(c))
	assert.NotZero(t, rctl.get(c)&rctl_enable)

	for i := uint32(0); i < c.rx.tail; i++ {
		require.True(t, c.rx.slots[i].busy())
		assert.Equal(t, c.rx.slots[i].b.Phys(), c.rx.desc[i].buffer())
	}
	assert.False(t, c.rx.slots[c.rx.tail].busy())
}

// Ten completed packets with the descriptor minimum threshold cause
// recorded: each is delivered in order and each triggers a refill.
func TestRxBatch(t *testing.T) {
	r := newRig(t, id82566)
	r.configure(t)
	c := r.c

	n_free := c.rx.n_free
	replenish := c.m.replenish.Count()
	refill := c.m.refill.Count()
	var want []*vnet.Buffer
	for i := 0; i < 10; i++ {
		want = append(want, c.rx.slots[i].b)
		c.rx.desc[i].write_back(uint16(60+i), 0, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	}

	n := c.rx_process(irq_rx_timer | irq_rx_min_threshold)
	require.Equal(t, 10, n)

	got := r.up.inbound()
	require.Len(t, got, 10)
	for i, b := range got {
		assert.Same(t, want[i], b)
		assert.Equal(t, 60+i, b.Len())
	}
	assert.EqualValues(t, 10, c.m.replenish.Count()-replenish)
	assert.EqualValues(t, 10, c.m.refill.Count()-refill)
	assert.Equal(t, n_free, c.rx.n_free)
	assert.Equal(t, uint32(10), c.rx.head)
	assert.Equal(t, uint32(9), c.rx.tail)
	assert.True(t, c.rx.full())
}

func TestRxDeferredReplenish(t *testing.T) {
	r := newRig(t, id82566)
	r.configure(t)
	c := r.c

	n_free := c.rx.n_free
	replenish := c.m.replenish.Count()
	for i := 0; i < 10; i++ {
		c.rx.desc[i].write_back(64, 0, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	}
	require.Equal(t, 10, c.rx_process(irq_rx_timer))
	assert.Zero(t, c.m.replenish.Count()-replenish)
	assert.Equal(t, n_free-10, c.rx.n_free)

	// A deficit of 32 forces a refill.
	for i := 10; i < 31; i++ {
		c.rx.desc[i].write_back(64, 0, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	}
	require.Equal(t, 21, c.rx_process(irq_rx_timer))
	assert.EqualValues(t, 1, c.m.replenish.Count()-replenish)
	assert.Equal(t, n_free, c.rx.n_free)
}

func TestRxChecksum(t *testing.T) {
	r := newRig(t, id82571)
	r.configure(t)
	c := r.c

	c.rx.desc[0].write_back(128, 0xbeef,
		rx_desc_is_done|rx_desc_is_end_of_packet|rx_desc_is_ip4_checksummed|rx_desc_is_tcp_checksummed, 0)
	c.rx.desc[1].write_back(128, 0x1234,
		rx_desc_is_done|rx_desc_is_end_of_packet|rx_desc_ignore_checksum|rx_desc_is_ip4_checksummed, 0)
	c.rx.desc[2].write_back(128, 0x5678, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	require.Equal(t, 3, c.rx_process(irq_rx_timer))

	got := r.up.inbound()
	require.Len(t, got, 3)
	assert.Equal(t, vnet.IP4ChecksumOk|vnet.L4ChecksumOk|vnet.PacketChecksum, got[0].Flags)
	assert.Equal(t, uint16(0xbeef), got[0].Checksum)
	assert.Zero(t, got[1].Flags)
	assert.Zero(t, got[1].Checksum)
	assert.Equal(t, vnet.PacketChecksum, got[2].Flags)
	assert.Equal(t, uint16(0x5678), got[2].Checksum)

	// ixsm counts packets whose checksum status was not ignored.
	assert.EqualValues(t, 2, c.m.ixsm.Count())
	assert.EqualValues(t, 1, c.m.ipcs.Count())
	assert.EqualValues(t, 1, c.m.tcpcs.Count())
}

func TestRxErrors(t *testing.T) {
	r := newRig(t, id82573)
	r.configure(t)
	c := r.c

	free := c.pool.Len()
	c.rx.desc[0].write_back(64, 0, rx_desc_is_done|rx_desc_is_end_of_packet, rx_error_crc)
	// Frames spanning descriptors are not supported.
	c.rx.desc[1].write_back(64, 0, rx_desc_is_done, 0)
	c.rx.desc[2].write_back(64, 0, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	require.Equal(t, 3, c.rx_process(irq_rx_timer))

	assert.Len(t, r.up.inbound(), 1)
	assert.EqualValues(t, 2, c.m.rx_errors.Count())
	assert.Equal(t, free+2, c.pool.Len())
	assert.Zero(t, c.rx.desc[0].status_errors)
}

func TestRxPoolExhausted(t *testing.T) {
	r := newRig(t, id82573)
	r.c.RxBuffers = 100
	r.configure(t)
	c := r.c

	assert.Equal(t, 100, c.rx.n_free)
	assert.Equal(t, uint32(100), c.rx.tail)
	assert.Zero(t, c.pool.Len())
	assert.EqualValues(t, 1, c.m.rx_nobuf.Count())
	assert.Equal(t, c.rx.tail, rdt.get(c))
}

func TestRxStopsAtUndone(t *testing.T) {
	r := newRig(t, id82573)
	r.configure(t)
	c := r.c
	c.rx.desc[1].write_back(64, 0, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	assert.Zero(t, c.rx_process(irq_rx_timer))
	assert.Empty(t, r.up.inbound())
}
