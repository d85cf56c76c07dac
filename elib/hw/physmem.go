// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hw

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

var ErrDmaExhausted = errors.New("dma heap exhausted")

// Dma is an arena of device visible memory.
// Allocations never span a page so each one is physically contiguous.
type Dma struct {
	mu sync.Mutex

	data []byte

	// Physical address of each page of data.
	pages []uint64

	log2BytesPerPage uint

	offset uint

	unmap func([]byte) error
}

// NewDma returns an arena over data which is physically contiguous
// starting at phys.
func NewDma(data []byte, phys uint64, log2BytesPerPage uint) *Dma {
	m := &Dma{
		data:             data,
		log2BytesPerPage: log2BytesPerPage,
	}
	n := (uint(len(data)) + 1<<log2BytesPerPage - 1) >> log2BytesPerPage
	m.pages = make([]uint64, n)
	for i := range m.pages {
		m.pages[i] = phys + uint64(i)<<log2BytesPerPage
	}
	return m
}

func (m *Dma) samePage(o, n uint) bool {
	l := m.log2BytesPerPage
	return o>>l == (o+n-1)>>l
}

// Alloc returns n zeroed bytes aligned to align (a power of two) and their
// physical address.
func (m *Dma) Alloc(n, align uint) (b []byte, phys uint64, err error) {
	if n == 0 || n > 1<<m.log2BytesPerPage {
		err = fmt.Errorf("dma alloc %d bytes: bad size", n)
		return
	}
	if align == 0 {
		align = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o := (m.offset + align - 1) &^ (align - 1)
	if !m.samePage(o, n) {
		// Reject allocations that span page boundaries.
		l := m.log2BytesPerPage
		o = (o>>l + 1) << l
	}
	if o+n > uint(len(m.data)) {
		err = ErrDmaExhausted
		return
	}
	m.offset = o + n
	b = m.data[o : o+n : o+n]
	for i := range b {
		b[i] = 0
	}
	phys = m.physOffset(o)
	return
}

func (m *Dma) physOffset(o uint) uint64 {
	l := m.log2BytesPerPage
	return m.pages[o>>l] + uint64(o&(1<<l-1))
}

// Phys returns the physical address of b[0]; b must come from Alloc.
func (m *Dma) Phys(b []byte) uint64 {
	o := uintptr(unsafe.Pointer(&b[0])) - uintptr(unsafe.Pointer(&m.data[0]))
	return m.physOffset(uint(o))
}

// Bytes returns the n bytes at physical address phys or nil when that
// range is not inside the arena.
func (m *Dma) Bytes(phys uint64, n uint) []byte {
	l := m.log2BytesPerPage
	for i, p := range m.pages {
		if phys < p || phys >= p+1<<l {
			continue
		}
		o := uint(i)<<l + uint(phys-p)
		if !m.samePage(o, n) || o+n > uint(len(m.data)) {
			return nil
		}
		return m.data[o : o+n : o+n]
	}
	return nil
}

// Free returns the number of bytes never handed out by Alloc.
func (m *Dma) Free() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint(len(m.data)) - m.offset
}

func (m *Dma) Close() (err error) {
	if m.unmap != nil {
		err = m.unmap(m.data)
		m.unmap = nil
	}
	return
}
