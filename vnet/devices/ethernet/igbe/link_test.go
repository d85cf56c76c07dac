// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkSpeed(t *testing.T) {
	for _, tc := range []struct {
		name     string
		id       uint16
		physsr   uint16
		up       bool
		mbps     int
		counted  bool
		speedIdx int
	}{
		{"82573 1000", id82573, physsr_link | 2<<physsr_speed_shift, true, 1000, true, 2},
		{"82573 100 down", id82573, 1 << physsr_speed_shift, false, 100, true, 1},
		{"82571 index offset", id82571, physsr_link | 3<<physsr_speed_shift, true, 1000, true, 2},
		{"82572 index wraps", id82572, physsr_link | 0<<physsr_speed_shift, true, 0, true, 3},
		{"82563 resolved", id82563, physsr_link | physsr_autoneg_resolved | 1<<physsr_speed_shift, true, 100, true, 1},
		{"82563 unresolved", id82563, physsr_link | 2<<physsr_speed_shift, true, 0, false, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := newRig(t, tc.id)
			r.sim.Phy[phy_specific_status] = tc.physsr
			r.c.link_update()

			up, mbps := r.c.Link()
			assert.Equal(t, tc.up, up)
			assert.Equal(t, tc.mbps, mbps)
			e, ok := r.up.lastLink()
			require.True(t, ok)
			assert.Equal(t, linkEvent{tc.up, tc.mbps}, e)

			var total int64
			for _, m := range r.c.m.speeds {
				total += m.Count()
			}
			if tc.counted {
				assert.EqualValues(t, 1, total)
				assert.EqualValues(t, 1, r.c.m.speeds[tc.speedIdx].Count())
			} else {
				assert.Zero(t, total)
			}
		})
	}
}

func TestLinkPhyStuck(t *testing.T) {
	r := newRig(t, id82573)
	r.sim.PhyStuck = true
	r.c.link_update()
	_, ok := r.up.lastLink()
	assert.False(t, ok)
	assert.EqualValues(t, 1, r.c.m.phy_timeouts.Count())
}

func TestPhyHandshake(t *testing.T) {
	r := newRig(t, id82573)
	r.sim.Phy[phy_interrupt_enable] = 0x0003
	assert.Equal(t, uint32(0x0003), r.c.phy_read(phy_interrupt_enable))
	require.True(t, r.c.phy_write(phy_interrupt_enable, 0x4003))
	assert.Equal(t, uint16(0x4003), r.sim.Phy[phy_interrupt_enable])

	r.sim.PhyPolls = 0
	r.sim.PhyStuck = true
	assert.Equal(t, sentinel, r.c.phy_read(phy_specific_status))
	assert.Equal(t, handshake_polls, r.sim.PhyPolls)
	assert.False(t, r.c.phy_write(phy_interrupt_enable, 0))
}

func TestHandshakeError(t *testing.T) {
	r := newRig(t, id82573)
	// A request for another PHY address completes with the error bit.
	v := r.c.handshake(mdic, mdic_op_read|2<<mdic_phy_shift, mdic_ready, mdic_error)
	assert.Equal(t, sentinel, v)
	assert.Equal(t, 1, r.sim.PhyPolls)
}
