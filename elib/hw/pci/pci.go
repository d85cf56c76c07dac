// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Generic devices on PCI bus.
package pci

import (
	"fmt"
)

type VendorID uint16
type DeviceID uint16
type DeviceClass uint16

const (
	Intel VendorID = 0x8086

	Network_Ethernet DeviceClass = 0x0200
)

func (v VendorID) String() string {
	if v == Intel {
		return "intel"
	}
	return fmt.Sprintf("0x%04x", uint16(v))
}

func (d DeviceID) String() string { return fmt.Sprintf("0x%04x", uint16(d)) }

// Offsets into configuration space.
const (
	config_vendor  = 0x00
	config_device  = 0x02
	config_command = 0x04
	config_class   = 0x0a
)

// Command register bits.
const (
	CommandMemEnable    = 1 << 1
	CommandBusMaster    = 1 << 2
	CommandIntxDisabled = 1 << 10
)

type BusAddress struct {
	Domain        uint16
	Bus, Slot, Fn uint8
}

func (a BusAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", a.Domain, a.Bus, a.Slot, a.Fn)
}

// ParseBusAddress accepts DDDD:BB:SS.F or BB:SS.F (domain 0).
func ParseBusAddress(s string) (a BusAddress, err error) {
	var n int
	n, err = fmt.Sscanf(s, "%x:%x:%x.%x", &a.Domain, &a.Bus, &a.Slot, &a.Fn)
	if err == nil && n == 4 {
		if a.Slot > 0x1f || a.Fn > 7 {
			err = fmt.Errorf("%s: invalid pci address", s)
		}
		return
	}
	a = BusAddress{}
	n, err = fmt.Sscanf(s, "%x:%x.%x", &a.Bus, &a.Slot, &a.Fn)
	if err != nil || n != 3 {
		err = fmt.Errorf("%s: invalid pci address", s)
		return
	}
	if a.Slot > 0x1f || a.Fn > 7 {
		err = fmt.Errorf("%s: invalid pci address", s)
	}
	return
}

type Resource struct {
	Index      uint32 // index of BAR
	Base, Size uint64
	Mem        []byte
}

func (r Resource) String() string {
	return fmt.Sprintf("{%d: 0x%x-0x%x}", r.Index, r.Base, r.Base+r.Size-1)
}

type Device struct {
	Addr      BusAddress
	Vendor    VendorID
	Device    DeviceID
	Class     DeviceClass
	Resources []Resource
}

func (d *Device) String() string {
	return fmt.Sprintf("%s %v %v", &d.Addr, d.Vendor, d.Device)
}
