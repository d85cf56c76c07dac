// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"time"
)

const (
	// Reset, eeprom reset and interrupt drain.
	reset_polls = 1000
	// PHY and eeprom access cycles.
	handshake_polls = 64
)

// Returned by handshakes that did not complete; never register data.
const sentinel = ^uint32(0)

// poll reads r until done or n reads have been made, pausing d after each
// unsuccessful read.
func (c *Controller) poll(r reg, n int, d time.Duration, done func(v uint32) bool) (v uint32, ok bool) {
	for i := 0; i < n; i++ {
		if v = r.get(c); done(v) {
			return v, true
		}
		c.delay(d)
	}
	return
}

// handshake writes a request to r and polls r for completion.
func (c *Controller) handshake(r reg, request, done, fail uint32) uint32 {
	r.set(c, request)
	v, ok := c.poll(r, handshake_polls, time.Microsecond, func(v uint32) bool {
		return v&(done|fail) != 0
	})
	if !ok || v&(done|fail) != done {
		return sentinel
	}
	return v
}

func (c *Controller) phy_read(r uint) uint32 {
	v := c.handshake(mdic, mdic_op_read|mdic_phy_addr<<mdic_phy_shift|uint32(r)<<mdic_reg_shift,
		mdic_ready, mdic_error)
	if v == sentinel {
		return v
	}
	return v & mdic_data_mask
}

func (c *Controller) phy_write(r uint, data uint16) (ok bool) {
	v := c.handshake(mdic, mdic_op_write|mdic_phy_addr<<mdic_phy_shift|uint32(r)<<mdic_reg_shift|uint32(data),
		mdic_ready, mdic_error)
	return v != sentinel
}

func (c *Controller) eeprom_read(addr uint) uint32 {
	v := c.handshake(eerd, eerd_start|uint32(addr)<<eerd_addr_shift, eerd_done, 0)
	if v == sentinel {
		return v
	}
	return v >> eerd_data_shift
}
