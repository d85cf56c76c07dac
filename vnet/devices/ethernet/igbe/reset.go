// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
	"net"
	"time"

	"github.com/platinasystems/log"
)

const (
	n_eeprom_words = 0x40

	eeprom_checksum_ok     = 0
	eeprom_checksum_vendor = 0xbaba
)

// Reset brings the controller from any state to Configured or Faulted.
func (c *Controller) Reset() error {
	c.alock.Lock()
	defer c.alock.Unlock()
	return c.reset()
}

func (c *Controller) reset() (err error) {
	defer func() {
		if err != nil {
			c.set_state(Faulted)
			log.Print("err", c.Name, ": ", err)
		}
	}()
	c.set_state(Resetting)
	if err = c.detach(); err != nil {
		return
	}
	c.set_state(EepromLoading)
	if err = c.eeload(); err != nil {
		return
	}
	c.set_addresses()
	c.set_flow_control()
	c.set_state(Configured)
	return
}

// detach returns the chip to its power on state with interrupts masked
// and both engines stopped.
func (c *Controller) detach() (err error) {
	// Balance rx/tx packet buffer.
	if v, ok := c.chip.pba_for(pba.get(c)); ok {
		pba.set(c, v)
	}
	c.pba.Store(pba.get(c))

	imc.set(c, ^uint32(0))
	rctl.set(c, 0)
	tctl.set(c, 0)

	c.delay(10 * time.Millisecond)

	v := ctrl.get(c) | ctrl_device_reset
	if c.chip.phy_reset {
		v |= ctrl_phy_reset
	}
	ctrl.set(c, v)
	c.delay(time.Millisecond)
	if _, ok := c.poll(ctrl, reset_polls, time.Microsecond, func(v uint32) bool {
		return v&ctrl_device_reset == 0
	}); !ok {
		return fmt.Errorf("%s: device reset: %w", c.Name, ErrHardwareTimeout)
	}

	ctrl.or(c, ctrl_link_up)

	ctrl_ext.or(c, ctrl_ext_eeprom_reset)
	c.delay(time.Millisecond)
	if _, ok := c.poll(ctrl_ext, reset_polls, time.Microsecond, func(v uint32) bool {
		return v&ctrl_ext_eeprom_reset == 0
	}); !ok {
		return fmt.Errorf("%s: eeprom reset: %w", c.Name, ErrHardwareTimeout)
	}

	imc.set(c, ^uint32(0))
	c.delay(time.Millisecond)
	if _, ok := c.poll(icr, reset_polls, time.Microsecond, func(v uint32) bool {
		return v == 0
	}); !ok {
		return fmt.Errorf("%s: interrupt drain: %w", c.Name, ErrHardwareTimeout)
	}

	c.imlock.Lock()
	c.im = 0
	c.imlock.Unlock()
	return
}

// eeload reads the eeprom word table and verifies its checksum.
func (c *Controller) eeload() error {
	var sum uint16
	for i := range c.eeprom {
		v := c.eeprom_read(uint(i))
		if v == sentinel {
			return fmt.Errorf("%s: eeprom word 0x%x: %w", c.Name, i, ErrHardwareTimeout)
		}
		c.eeprom[i] = uint16(v)
		sum += uint16(v)
	}
	if sum != eeprom_checksum_ok && sum != eeprom_checksum_vendor {
		return fmt.Errorf("%s: 0x%04x: %w", c.Name, sum, ErrEepromChecksum)
	}
	return nil
}

// station_address derives the mac address from eeprom words 0-2.  Ports
// of a multi port adapter share one eeprom and add their lan id.
func (c *Controller) station_address() net.HardwareAddr {
	a := make(net.HardwareAddr, 6)
	for i := 0; i < 3; i++ {
		a[2*i] = byte(c.eeprom[i])
		a[2*i+1] = byte(c.eeprom[i] >> 8)
	}
	a[5] += byte((status.get(c) & status_lan_id_mask) >> status_lan_id_shift)
	return a
}

func (c *Controller) set_addresses() {
	a := c.station_address()
	c.addr = a
	ral_for(0).set(c, uint32(a[3])<<24|uint32(a[2])<<16|uint32(a[1])<<8|uint32(a[0]))
	rah_for(0).set(c, rah_address_valid|uint32(a[5])<<8|uint32(a[4]))
	for i := uint(1); i < n_ra; i++ {
		ral_for(i).set(c, 0)
		rah_for(i).set(c, 0)
	}
	c.mlock.Lock()
	for i := range c.mta {
		c.mta[i] = 0
		mta_for(uint(i)).set(c, 0)
	}
	c.mlock.Unlock()
}

// 802.3x pause frame parameters.
const (
	flow_control_address_lo = 0x00c28001
	flow_control_address_hi = 0x0100
	flow_control_type       = 0x8808
	flow_control_timer      = 0x0100
)

func (c *Controller) set_flow_control() {
	fcal.set(c, flow_control_address_lo)
	fcah.set(c, flow_control_address_hi)
	fct.set(c, flow_control_type)
	fcttv.set(c, flow_control_timer)
	fcrtl.set(c, c.FlowControlLow)
	fcrth.set(c, c.FlowControlHigh)
}
