// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
)

type chip_kind int

const (
	i82563 chip_kind = iota
	i82566
	i82571
	i82572
	i82573
	n_chip_kind
)

// Per chip family differences.  Engines consult the table instead of
// switching on chip kind.
type chip struct {
	kind chip_kind
	name string

	// Receive buffer size and so largest frame.
	rx_buffer_bytes uint

	// PHY speed field is offset by one on 82571/82572.
	speed_index_minus_one bool
	// 82563 only reports speed once autonegotiation resolved.
	speed_needs_autoneg bool

	// Multicast table words usable.
	mta_mask uint8

	// Reset PHY along with MAC.
	phy_reset bool

	// Split packet buffer evenly between rx and tx for jumbo frames.
	pba_split_jumbo bool
	// Packet buffer rx size (KB) when frames exceed standard MTU.
	pba_jumbo_rx uint32

	// Early receive threshold; 0 leaves it alone.
	ert uint32
	// Packet buffer size; 0 leaves it alone.
	pbs uint32
}

var chips = [n_chip_kind]chip{
	i82563: {
		kind:                i82563,
		name:                "i82563",
		rx_buffer_bytes:     9014,
		speed_needs_autoneg: true,
		mta_mask:            127,
		pba_split_jumbo:     true,
	},
	i82566: {
		kind:            i82566,
		name:            "i82566",
		rx_buffer_bytes: 1514,
		mta_mask:        31,
		phy_reset:       true,
		pbs:             16,
	},
	i82571: {
		kind:                  i82571,
		name:                  "i82571",
		rx_buffer_bytes:       9234,
		speed_index_minus_one: true,
		mta_mask:              127,
		pba_split_jumbo:       true,
	},
	i82572: {
		kind:                  i82572,
		name:                  "i82572",
		rx_buffer_bytes:       9234,
		speed_index_minus_one: true,
		mta_mask:              127,
		pba_split_jumbo:       true,
	},
	i82573: {
		kind:            i82573,
		name:            "i82573",
		rx_buffer_bytes: 8192,
		mta_mask:        127,
		pba_jumbo_rx:    14,
		ert:             1024 / 8,
	},
}

func (c *chip) String() string { return c.name }

var chip_for_device_id = map[uint16]chip_kind{
	0x1096: i82563, // esb2 copper
	0x10ba: i82563, // esb2 serdes
	0x1049: i82566, // ich8 igm lm
	0x104a: i82566, // ich8 igm lf
	0x104d: i82566, // ich8 igm v
	0x10a4: i82571, // quad copper
	0x105e: i82571, // dual copper
	0x10b9: i82572, // pt desktop
	0x108b: i82573, // v
	0x108c: i82573, // e
	0x109a: i82573, // l
}

// ChipName returns the family of a supported PCI device id.
func ChipName(deviceID uint16) (string, bool) {
	k, ok := chip_for_device_id[deviceID]
	if !ok {
		return "", false
	}
	return chips[k].name, true
}

func chip_for(deviceID uint16) (*chip, error) {
	k, ok := chip_for_device_id[deviceID]
	if !ok {
		return nil, fmt.Errorf("igbe: unsupported device id 0x%04x", deviceID)
	}
	return &chips[k], nil
}

var speed_mbps = [4]int{10, 100, 1000, 0}

// speed_index returns the speed table index for a PHY specific status
// value or false when the chip says speed is not yet known.
func (c *chip) speed_index(physsr uint32) (i uint32, ok bool) {
	i = (physsr >> physsr_speed_shift) & 3
	if c.speed_needs_autoneg && physsr&physsr_autoneg_resolved == 0 {
		return
	}
	if c.speed_index_minus_one {
		i = (i - 1) & 3
	}
	ok = true
	return
}

// rctl_buffer_size returns receive control buffer size bits.
func (c *chip) rctl_buffer_size() uint32 {
	n := c.rx_buffer_bytes
	switch {
	case n <= 2048:
		return rctl_bsize_2048
	case n <= 8192:
		return rctl_long_packet_enable | rctl_bsize_8192 | rctl_bsize_extension | rctl_strip_crc
	case n <= 12*1024:
		kb := uint32((n + 1023) / 1024)
		return rctl_long_packet_enable | kb<<rctl_bsize_flex_shift | rctl_strip_crc
	default:
		return rctl_long_packet_enable | rctl_bsize_16384 | rctl_bsize_extension | rctl_strip_crc
	}
}

// buffer_bytes is the receive buffer size hardware assumes for the rctl
// encoding chosen by rctl_buffer_size.
func (c *chip) buffer_bytes() uint {
	n := c.rx_buffer_bytes
	switch {
	case n <= 2048:
		return 2048
	case n <= 8192:
		return 8192
	case n <= 12*1024:
		return (n + 1023) &^ 1023
	default:
		return 16384
	}
}

// Rebalanced packet buffer allocation given current pba register or false
// to leave it alone.
func (c *chip) pba_for(cur uint32) (v uint32, ok bool) {
	switch {
	case c.pba_split_jumbo && c.rx_buffer_bytes > 8192:
		v = ((cur >> 16) + cur&0xffff) >> 1
		ok = true
	case c.pba_jumbo_rx != 0 && c.rx_buffer_bytes > 1514:
		v, ok = c.pba_jumbo_rx, true
	}
	return
}
