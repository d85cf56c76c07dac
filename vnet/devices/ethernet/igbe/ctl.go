// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

const max_interrupt_delay = 0xffff

// Ctl applies a control message: "rdtr N" or "radv N" sets the receive
// interrupt delay or absolute delay timer.  N may carry a 0x or 0 prefix.
func (c *Controller) Ctl(cmd string) error {
	f := strings.Fields(cmd)
	if len(f) != 2 {
		return fmt.Errorf("%s: %q: %w", c.Name, cmd, ErrBadArgument)
	}
	v, err := parse_delay(f[1])
	if err != nil || v < 0 || v > max_interrupt_delay {
		return fmt.Errorf("%s: %s: %q: %w", c.Name, f[0], f[1], ErrBadArgument)
	}
	switch f[0] {
	case "rdtr":
		c.set_rdtr(uint32(v))
	case "radv":
		c.set_radv(uint32(v))
	default:
		return fmt.Errorf("%s: %q: %w", c.Name, f[0], ErrBadArgument)
	}
	return nil
}

// parse_delay reads an unsigned number as C strtol does with base 0: a 0x
// prefix is hex and a leading 0 is octal.  Signs, underscores and the 0b
// and 0o prefixes are rejected.
func parse_delay(s string) (int64, error) {
	base := 10
	switch {
	case len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'):
		base, s = 16, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	if len(s) == 0 || !strings.ContainsRune("0123456789abcdefABCDEF", rune(s[0])) {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, base, 64)
}

func (c *Controller) set_rdtr(v uint32) {
	c.rdtr_value.Store(v)
	rdtr.set(c, v)
}

func (c *Controller) set_radv(v uint32) {
	c.radv_value.Store(v)
	radv.set(c, v)
}

// SetPromiscuous accepts all unicast and multicast frames when on.
func (c *Controller) SetPromiscuous(on bool) {
	const bits = rctl_unicast_promiscuous | rctl_multicast_promiscuous
	c.mlock.Lock()
	defer c.mlock.Unlock()
	v := rctl.get(c) &^ rctl_multicast_offset_mask
	if on {
		v |= bits
	} else {
		v &^= bits
	}
	rctl.set(c, v)
}

// mta_index returns the multicast table word and bit for addr using
// multicast offset 0, bits [47:36] of the address.
func (c *Controller) mta_index(addr net.HardwareAddr) (word uint, bit uint) {
	word = uint(addr[5]>>1) & uint(c.chip.mta_mask)
	bit = uint(addr[5]&1)<<4 | uint(addr[4]>>4)
	return
}

// SetMulticast adds or removes a multicast address from the hash filter.
// Addresses sharing a hash bit share its fate.
func (c *Controller) SetMulticast(addr net.HardwareAddr, on bool) error {
	if len(addr) != 6 {
		return fmt.Errorf("%s: multicast %v: %w", c.Name, addr, ErrBadArgument)
	}
	word, bit := c.mta_index(addr)
	c.mlock.Lock()
	defer c.mlock.Unlock()
	if on {
		c.mta[word] |= 1 << bit
	} else {
		c.mta[word] &^= 1 << bit
	}
	mta_for(word).set(c, c.mta[word])
	return nil
}
