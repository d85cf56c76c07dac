// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package hw

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	log2_page_size      = 12
	log2_huge_page_size = log2_page_size + 9
	page_size           = 1 << log2_page_size
)

// NewHugeDma maps 2^log2Bytes of locked hugepage memory and reads each
// page's physical address from /proc/self/pagemap.
func NewHugeDma(log2Bytes uint) (m *Dma, err error) {
	if log2Bytes < log2_huge_page_size {
		log2Bytes = log2_huge_page_size
	}
	n := 1 << log2Bytes
	data, err := unix.Mmap(-1, 0, n,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS|unix.MAP_HUGETLB|unix.MAP_LOCKED)
	if err != nil {
		return nil, fmt.Errorf("mmap hugepages: %w", err)
	}
	defer func() {
		if err != nil {
			unix.Munmap(data)
		}
	}()

	f, err := os.Open("/proc/self/pagemap")
	if err != nil {
		return
	}
	defer f.Close()

	m = &Dma{
		data:             data,
		log2BytesPerPage: log2_huge_page_size,
		unmap:            unix.Munmap,
	}
	m.pages = make([]uint64, n>>log2_huge_page_size)
	for i := range m.pages {
		var b [8]byte
		o := i << log2_huge_page_size
		// Fault the page in before asking where it lives.
		data[o] = 0
		a := uint64(uintptr(unsafe.Pointer(&data[o])))
		if _, err = f.ReadAt(b[:], int64(a/page_size)*8); err != nil {
			return nil, fmt.Errorf("pagemap: %w", err)
		}
		v := binary.LittleEndian.Uint64(b[:])
		// Bits 0-54 are the physical page number.
		pfn := v & (1<<55 - 1)
		if pfn == 0 {
			return nil, fmt.Errorf("pagemap: no physical address (need CAP_SYS_ADMIN)")
		}
		m.pages[i] = pfn * page_size
	}
	return m, nil
}
