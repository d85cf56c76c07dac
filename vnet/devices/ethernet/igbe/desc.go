// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/platinasystems/igbe/elib/hw"
	"github.com/platinasystems/igbe/vnet"
)

// Legacy receive descriptor.
type rx_desc struct {
	buffer_address [2]uint32

	// [15:0] length [31:16] packet checksum
	length_checksum uint32

	// [7:0] status [15:8] errors [31:16] vlan tag
	status_errors uint32
}

// rx status
const (
	rx_desc_is_done               = 1 << 0
	rx_desc_is_end_of_packet      = 1 << 1
	rx_desc_ignore_checksum       = 1 << 2
	rx_desc_is_vlan               = 1 << 3
	rx_desc_is_tcp_checksummed    = 1 << 5
	rx_desc_is_ip4_checksummed    = 1 << 6
	rx_desc_passed_inexact_filter = 1 << 7
)

// rx errors
const (
	rx_error_crc          = 1 << 0
	rx_error_symbol       = 1 << 1
	rx_error_sequence     = 1 << 2
	rx_error_carrier_ext  = 1 << 4
	rx_error_tcp_checksum = 1 << 5
	rx_error_ip4_checksum = 1 << 6
	rx_error_rx_data      = 1 << 7
)

func (d *rx_desc) set_buffer(phys uint64) {
	d.buffer_address[0] = uint32(phys)
	d.buffer_address[1] = uint32(phys >> 32)
	atomic.StoreUint32(&d.length_checksum, 0)
	atomic.StoreUint32(&d.status_errors, 0)
}

func (d *rx_desc) clear_status() { atomic.StoreUint32(&d.status_errors, 0) }

func (d *rx_desc) buffer() uint64 {
	return uint64(d.buffer_address[0]) | uint64(d.buffer_address[1])<<32
}

// Status must be read before the rest of a written back descriptor.
func (d *rx_desc) get_status() (status, errors uint8, vlan uint16) {
	v := atomic.LoadUint32(&d.status_errors)
	return uint8(v), uint8(v >> 8), uint16(v >> 16)
}

func (d *rx_desc) get_length_checksum() (length, checksum uint16) {
	v := atomic.LoadUint32(&d.length_checksum)
	return uint16(v), uint16(v >> 16)
}

// write_back does what hardware does on packet completion.
func (d *rx_desc) write_back(length, checksum uint16, status, errors uint8) {
	atomic.StoreUint32(&d.length_checksum, uint32(length)|uint32(checksum)<<16)
	atomic.StoreUint32(&d.status_errors, uint32(status)|uint32(errors)<<8)
}

func (d *rx_desc) String() (s string) {
	status, errors, vlan := d.get_status()
	if status&rx_desc_is_done == 0 {
		return fmt.Sprintf("hw: buffer 0x%x", d.buffer())
	}
	length, checksum := d.get_length_checksum()
	s = fmt.Sprintf("sw: %d bytes", length)
	if status&rx_desc_is_end_of_packet != 0 {
		s += ", eop"
	}
	if status&rx_desc_is_vlan != 0 {
		s += fmt.Sprintf(", vlan %d", vlan)
	}
	if status&rx_desc_ignore_checksum == 0 {
		s += fmt.Sprintf(", checksum 0x%04x", checksum)
		if status&rx_desc_is_ip4_checksummed != 0 {
			s += ", ip4 checksummed"
		}
		if status&rx_desc_is_tcp_checksummed != 0 {
			s += ", tcp/udp checksummed"
		}
	}
	if errors != 0 {
		s += fmt.Sprintf(", errors 0x%02x", errors)
	}
	return
}

// Legacy transmit descriptor.
type tx_desc struct {
	buffer_address [2]uint32
	control        uint32
	status         uint32
}

// tx control
const (
	tx_desc_length_mask        = 0xfffff
	tx_desc_end_of_packet      = 1 << 24
	tx_desc_insert_fcs         = 1 << 25
	tx_desc_segmentation       = 1 << 26
	tx_desc_report_status      = 1 << 27
	tx_desc_report_packet_sent = 1 << 28
	tx_desc_extension          = 1 << 29
	tx_desc_vlan_enable        = 1 << 30
	tx_desc_interrupt_delay    = 1 << 31
)

// tx status
const (
	tx_desc_is_done              = 1 << 0
	tx_desc_excess_collisions    = 1 << 1
	tx_desc_late_collision       = 1 << 2
	tx_desc_underrun             = 1 << 3
	tx_desc_checksum_start_shift = 8
	tx_desc_checksum_start_mask  = 0xff << tx_desc_checksum_start_shift
)

func (d *tx_desc) set(phys uint64, control uint32) {
	d.buffer_address[0] = uint32(phys)
	d.buffer_address[1] = uint32(phys >> 32)
	atomic.StoreUint32(&d.control, control)
	atomic.StoreUint32(&d.status, 0)
}

func (d *tx_desc) buffer() uint64 {
	return uint64(d.buffer_address[0]) | uint64(d.buffer_address[1])<<32
}

func (d *tx_desc) get_control() uint32 { return atomic.LoadUint32(&d.control) }
func (d *tx_desc) get_status() uint32  { return atomic.LoadUint32(&d.status) }
func (d *tx_desc) clear_status()       { atomic.StoreUint32(&d.status, 0) }
func (d *tx_desc) write_back(s uint32) { atomic.StoreUint32(&d.status, s) }

func (d *tx_desc) String() (s string) {
	c, st := d.get_control(), d.get_status()
	s = fmt.Sprintf("buffer 0x%x, %d bytes", d.buffer(), c&tx_desc_length_mask)
	if c&tx_desc_end_of_packet != 0 {
		s += ", eop"
	}
	if st&tx_desc_is_done != 0 {
		s += ", done"
	}
	if st&tx_desc_excess_collisions != 0 {
		s += ", excess collisions"
	}
	if st&tx_desc_late_collision != 0 {
		s += ", late collision"
	}
	if st&tx_desc_underrun != 0 {
		s += ", underrun"
	}
	return
}

const desc_bytes = 16

// slot records the buffer software handed to a descriptor.
type slot struct{ b *vnet.Buffer }

func (s *slot) busy() bool { return s.b != nil }

func (s *slot) put(b *vnet.Buffer) {
	if s.b != nil {
		panic(fmt.Errorf("igbe: slot already holds %v", s.b))
	}
	s.b = b
}

func (s *slot) take() (b *vnet.Buffer) {
	b, s.b = s.b, nil
	return
}

// Common part of rx and tx rings.
type ring struct {
	// Next slot software must process or reclaim.
	head uint32
	// Next slot software may give to hardware.
	tail uint32
	// Slots holding a software assigned buffer.
	n_free int

	slots []slot

	mem  []byte
	phys uint64
}

func (r *ring) len() uint32          { return uint32(len(r.slots)) }
func (r *ring) next(i uint32) uint32 { return (i + 1) & (r.len() - 1) }
func (r *ring) full() bool           { return r.next(r.tail) == r.head }
func (r *ring) bytes() uint32        { return r.len() * desc_bytes }

func (r *ring) alloc(m *hw.Dma, n uint) (err error) {
	if n == 0 || n&(n-1) != 0 {
		panic(fmt.Errorf("igbe: ring size %d not a power of 2", n))
	}
	if r.mem != nil {
		return
	}
	if r.mem, r.phys, err = m.Alloc(n*desc_bytes, 256); err != nil {
		return
	}
	r.slots = make([]slot, n)
	return
}

// release returns every buffer held by a slot to its pool.
func (r *ring) release() (n int) {
	for i := range r.slots {
		if b := r.slots[i].take(); b != nil {
			b.Free()
			n++
		}
	}
	return
}

type rx_ring struct {
	ring
	desc []rx_desc
}

func (r *rx_ring) alloc(m *hw.Dma, n uint) (err error) {
	if err = r.ring.alloc(m, n); err == nil {
		r.desc = unsafe.Slice((*rx_desc)(unsafe.Pointer(&r.mem[0])), n)
	}
	return
}

type tx_ring struct {
	ring
	desc []tx_desc
}

func (r *tx_ring) alloc(m *hw.Dma, n uint) (err error) {
	if err = r.ring.alloc(m, n); err == nil {
		r.desc = unsafe.Slice((*tx_desc)(unsafe.Pointer(&r.mem[0])), n)
	}
	return
}
