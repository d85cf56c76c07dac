// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var sysBusUioPath = "/sys/bus/pci/drivers/uio_pci_generic/"

func sysfsWrite(path, format string, args ...interface{}) error {
	fn := sysBusUioPath + path
	f, err := os.OpenFile(fn, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, format, args...)
	return err
}

// Uio delivers a device's legacy interrupts through uio_pci_generic.
type Uio struct {
	d     *Device
	minor uint32
	fd    int
}

// OpenUio binds d to uio_pci_generic and opens /dev/uioN.
func OpenUio(d *Device) (u *Uio, err error) {
	u = &Uio{d: d, fd: -1}
	// EEXIST when the id was already added by an earlier run.
	err = sysfsWrite("new_id", "%04x %04x", uint16(d.Vendor), uint16(d.Device))
	if err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, err
	}
	if _, serr := os.Stat(d.SysfsPath("uio")); serr != nil {
		if err = sysfsWrite("bind", "%s", &d.Addr); err != nil {
			return nil, err
		}
	}
	var fis []os.DirEntry
	if fis, err = os.ReadDir(d.SysfsPath("uio")); err != nil {
		return nil, err
	}
	ok := false
	for _, fi := range fis {
		if _, err = fmt.Sscanf(fi.Name(), "uio%d", &u.minor); err == nil {
			ok = true
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%s: failed to get minor number for uio device", &d.Addr)
	}
	path := fmt.Sprintf("/dev/uio%d", u.minor)
	if u.fd, err = unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return u, nil
}

func (u *Uio) String() string { return fmt.Sprintf("uio%d", u.minor) }

// Run calls f for every interrupt until ctx is done or the file fails.
func (u *Uio) Run(ctx context.Context, f func()) error {
	var b [4]byte
	fds := []unix.PollFd{{Fd: int32(u.fd), Events: unix.POLLIN}}
	for {
		// Unmask; uio_pci_generic masks INTx until told otherwise.
		binary.LittleEndian.PutUint32(b[:], 1)
		if _, err := unix.Write(u.fd, b[:]); err != nil {
			return fmt.Errorf("%v irq enable: %w", u, err)
		}
		for {
			if ctx.Err() != nil {
				return nil
			}
			n, err := unix.Poll(fds, 100)
			if err == unix.EINTR || n == 0 {
				continue
			}
			if err != nil {
				return fmt.Errorf("%v poll: %w", u, err)
			}
			break
		}
		// UIO file is ready when interrupt occurs.
		if _, err := unix.Read(u.fd, b[:]); err != nil {
			return fmt.Errorf("%v read: %w", u, err)
		}
		f()
	}
}

func (u *Uio) Close() (err error) {
	if u.fd >= 0 {
		err = unix.Close(u.fd)
		u.fd = -1
	}
	return
}
