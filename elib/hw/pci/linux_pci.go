// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

// Linux PCI code

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/platinasystems/igbe/elib/hw"
	"golang.org/x/sys/unix"
)

var sysBusPciPath string = "/sys/bus/pci/devices"

// Open reads the identity and resources of the device at addr from sysfs.
func Open(addr BusAddress) (d *Device, err error) {
	d = &Device{Addr: addr}
	var v uint16
	if v, err = d.ReadConfigUint16(config_vendor); err != nil {
		return nil, err
	}
	d.Vendor = VendorID(v)
	if v, err = d.ReadConfigUint16(config_device); err != nil {
		return nil, err
	}
	d.Device = DeviceID(v)
	if v, err = d.ReadConfigUint16(config_class); err != nil {
		return nil, err
	}
	d.Class = DeviceClass(v)
	if err = d.findResources(); err != nil {
		return nil, err
	}
	return
}

func (d *Device) SysfsPath(format string, args ...interface{}) (path string) {
	path = filepath.Join(sysBusPciPath, d.Addr.String(), fmt.Sprintf(format, args...))
	return
}

func (d *Device) SysfsOpenFile(format string, mode int, args ...interface{}) (f *os.File, err error) {
	fn := d.SysfsPath(format, args...)
	f, err = os.OpenFile(fn, mode, 0)
	return
}

func (d *Device) configRw(offset uint, b []byte, isWrite bool) (err error) {
	f, err := d.SysfsOpenFile("config", os.O_RDWR)
	if err != nil {
		return
	}
	defer f.Close()
	if isWrite {
		_, err = unix.Pwrite(int(f.Fd()), b, int64(offset))
	} else {
		_, err = unix.Pread(int(f.Fd()), b, int64(offset))
	}
	if err != nil {
		err = fmt.Errorf("%s config 0x%x: %w", &d.Addr, offset, err)
	}
	return
}

func (d *Device) ReadConfigUint16(o uint) (v uint16, err error) {
	var b [2]byte
	if err = d.configRw(o, b[:], false); err == nil {
		v = binary.LittleEndian.Uint16(b[:])
	}
	return
}

func (d *Device) WriteConfigUint16(o uint, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return d.configRw(o, b[:], true)
}

// EnableBusMaster lets the device reach memory for descriptors and
// buffers.
func (d *Device) EnableBusMaster() error {
	v, err := d.ReadConfigUint16(config_command)
	if err != nil {
		return err
	}
	v |= CommandMemEnable | CommandBusMaster
	v &^= CommandIntxDisabled
	return d.WriteConfigUint16(config_command, v)
}

// MapResource maps the given BAR for register access.
func (d *Device) MapResource(bar uint) (m hw.Mem, err error) {
	if bar >= uint(len(d.Resources)) || d.Resources[bar].Size == 0 {
		return nil, fmt.Errorf("%s: no resource%d", &d.Addr, bar)
	}
	r := &d.Resources[bar]
	var f *os.File
	f, err = d.SysfsOpenFile("resource%d", os.O_RDWR, r.Index)
	if err != nil {
		return
	}
	defer f.Close()
	r.Mem, err = unix.Mmap(int(f.Fd()), 0, int(r.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		err = fmt.Errorf("mmap resource%d: %w", r.Index, err)
		return
	}
	m = hw.Mem(r.Mem)
	return
}

func (d *Device) UnmapResource(bar uint) (err error) {
	if bar < uint(len(d.Resources)) && d.Resources[bar].Mem != nil {
		err = unix.Munmap(d.Resources[bar].Mem)
		if err != nil {
			return fmt.Errorf("munmap resource%d: %w", bar, err)
		}
		d.Resources[bar].Mem = nil
	}
	return
}

// Loop through BARs to find resources.
func (d *Device) findResources() (err error) {
	var b []byte
	if b, err = os.ReadFile(d.SysfsPath("resource")); err != nil {
		return
	}
	d.Resources = d.Resources[:0]
	s := bufio.NewScanner(bytes.NewReader(b))
	for i := 0; s.Scan(); i++ {
		var v [3]uint64
		n, err := fmt.Sscanf(s.Text(), "0x%x 0x%x 0x%x", &v[0], &v[1], &v[2])
		if err != nil || n != 3 {
			return fmt.Errorf("%s resource line %d: short read", &d.Addr, i)
		}
		size := v[0]
		if v[0] != 0 {
			size = 1 + v[1] - v[0]
		}
		d.Resources = append(d.Resources, Resource{
			Index: uint32(i),
			Base:  v[0],
			Size:  size,
		})
	}
	return s.Err()
}
