// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Memory mapped register read/write
package hw

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"
)

// A Window is a block of 32 bit device registers addressed by byte offset.
type Window interface {
	Load32(offset uint) uint32
	Store32(offset uint, v uint32)
}

// Mem is a Window onto memory mapped device registers, typically a PCI BAR
// mapped with pci.(*Device).MapResource.
type Mem []byte

func (m Mem) addr(offset uint) *uint32 {
	if offset&3 != 0 || offset+4 > uint(len(m)) {
		panic(fmt.Errorf("hw: bad register offset 0x%x", offset))
	}
	return (*uint32)(unsafe.Pointer(&m[offset]))
}

func (m Mem) Load32(offset uint) uint32     { return atomic.LoadUint32(m.addr(offset)) }
func (m Mem) Store32(offset uint, v uint32) { atomic.StoreUint32(m.addr(offset), v) }

// A Delay pauses between polls of device registers.
// Tests substitute a Delay that returns immediately.
type Delay func(time.Duration)

func (d Delay) Sleep(t time.Duration) {
	if d == nil {
		time.Sleep(t)
		return
	}
	d(t)
}

// NoDelay polls at full speed.
func NoDelay(time.Duration) {}
