// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"context"
	"fmt"
	"net"
	"sync"
	"unsafe"

	"github.com/platinasystems/igbe/elib/hw"
)

const sim_bytes = 0x6000

// Sim is a register level model of a controller.  It implements enough of
// the reset, eeprom, PHY, interrupt and descriptor behavior to run the
// driver without hardware, with transmitted frames optionally looped back
// to the receive ring.
type Sim struct {
	mu   sync.Mutex
	chip *chip
	dma  *hw.Dma
	regs [sim_bytes / 4]uint32

	// Number of ctrl reads that still show device reset pending after a
	// reset request; -1 never completes.
	ResetReads int
	// Ctrl reads made while a device reset was pending.
	ResetPolls int
	reset_left int
	resetting  bool

	Eeprom      [n_eeprom_words]uint16
	EepromStuck bool

	Phy      [32]uint16
	PhyStuck bool
	// Mdic reads, which are handshake polls.
	PhyPolls int

	// Receive what is transmitted.
	Loopback bool
	// Leave transmit descriptors pending until CompleteTx.
	TxHold bool

	Stats [n_statistics]uint32

	irq chan struct{}
}

// NewSim returns a model of a device with the given PCI device id whose
// rings and buffers live in m.  The station address is 02:00:00:00:00:01
// and link is up at 1000 mbps.  No interrupt cause is pending.
func NewSim(deviceID uint16, m *hw.Dma) (*Sim, error) {
	ch, err := chip_for(deviceID)
	if err != nil {
		return nil, err
	}
	s := &Sim{
		chip: ch,
		dma:  m,
		irq:  make(chan struct{}, 1),
	}
	s.SetStationAddress(net.HardwareAddr{2, 0, 0, 0, 0, 1})
	s.set_link(true, 1000)
	return s, nil
}

// SetStationAddress programs eeprom words 0-2 and fixes the checksum word
// so the image sums to the vendor value.
func (s *Sim) SetStationAddress(a net.HardwareAddr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < 3; i++ {
		s.Eeprom[i] = uint16(a[2*i]) | uint16(a[2*i+1])<<8
	}
	s.Eeprom[n_eeprom_words-1] = 0
	var sum uint16
	for _, w := range s.Eeprom {
		sum += w
	}
	s.Eeprom[n_eeprom_words-1] = eeprom_checksum_vendor - sum
}

// SetLink sets PHY status as the chip would report it and raises a link
// status change.
func (s *Sim) SetLink(up bool, mbps int) {
	s.mu.Lock()
	s.set_link(up, mbps)
	s.raise(irq_link_status_change)
	s.mu.Unlock()
}

// set_link is called with mu held, or before s is shared.
func (s *Sim) set_link(up bool, mbps int) {
	i := uint16(3)
	for j, v := range speed_mbps {
		if v == mbps && v != 0 {
			i = uint16(j)
		}
	}
	if s.chip.speed_index_minus_one {
		i = (i + 1) & 3
	}
	v := uint16(physsr_autoneg_resolved) | i<<physsr_speed_shift
	if up {
		v |= physsr_link
	}
	s.Phy[phy_specific_status] = v
	if up {
		s.regs[status/4] |= status_link_up
	} else {
		s.regs[status/4] &^= status_link_up
	}
}

// SetLanID sets the port number of a multi port adapter.
func (s *Sim) SetLanID(id uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.regs[status/4] &^ status_lan_id_mask
	s.regs[status/4] = v | id<<status_lan_id_shift&status_lan_id_mask
}

// Raise sets interrupt causes as if hardware signalled them.
func (s *Sim) Raise(bits uint32) {
	s.mu.Lock()
	s.raise(bits)
	s.mu.Unlock()
}

func (s *Sim) raise(bits uint32) {
	s.regs[icr/4] |= bits
	s.assert()
}

// assert signals the interrupt line when an unmasked cause is pending.
func (s *Sim) assert() {
	if s.regs[icr/4]&s.regs[ims/4] == 0 {
		return
	}
	select {
	case s.irq <- struct{}{}:
	default:
	}
}

// Run calls f for each interrupt until ctx is done, as a UIO interrupt
// loop does for real devices.
func (s *Sim) Run(ctx context.Context, f func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.irq:
			f()
		}
	}
}

func (s *Sim) index(offset uint) uint {
	if offset&3 != 0 || offset >= sim_bytes {
		panic(fmt.Errorf("sim: bad register offset 0x%x", offset))
	}
	return offset / 4
}

func (s *Sim) Load32(offset uint) (v uint32) {
	i := s.index(offset)
	s.mu.Lock()
	defer s.mu.Unlock()
	v = s.regs[i]
	switch r := reg(offset); {
	case r == ctrl && s.resetting:
		s.ResetPolls++
		if s.reset_left == 0 {
			s.device_reset()
			v = s.regs[i]
		} else if s.reset_left > 0 {
			s.reset_left--
		}
	case r == icr:
		s.regs[i] = 0
	case r == mdic:
		s.PhyPolls++
	case r >= statistics && r < statistics+4*n_statistics:
		j := (r - statistics) / 4
		v = s.Stats[j]
		s.Stats[j] = 0
	}
	return
}

func (s *Sim) Store32(offset uint, v uint32) {
	i := s.index(offset)
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r := reg(offset); r {
	case ctrl:
		s.regs[i] = v
		if v&ctrl_device_reset != 0 && !s.resetting {
			s.resetting = true
			s.reset_left = s.ResetReads
		}
	case ctrl_ext:
		// Eeprom reload completes at once.
		s.regs[i] = v &^ ctrl_ext_eeprom_reset
	case eerd:
		s.regs[i] = s.eeprom_access(v)
	case mdic:
		s.regs[i] = s.phy_access(v)
	case ics:
		s.raise(v)
	case ims:
		s.regs[i] |= v
		s.assert()
	case imc:
		s.regs[ims/4] &^= v
	case tdt:
		s.regs[i] = v
		if !s.TxHold {
			s.transmit()
		}
	case rdt:
		s.regs[i] = v
	default:
		s.regs[i] = v
	}
}

func (s *Sim) device_reset() {
	s.resetting = false
	s.regs[ctrl/4] &^= ctrl_device_reset | ctrl_phy_reset
	s.regs[icr/4] = 0
	s.regs[ims/4] = 0
	s.regs[rctl/4] = 0
	s.regs[tctl/4] = 0
	for _, r := range []reg{rdh, rdt, tdh, tdt} {
		s.regs[r/4] = 0
	}
}

func (s *Sim) eeprom_access(v uint32) uint32 {
	if v&eerd_start == 0 || s.EepromStuck {
		return v
	}
	a := (v >> eerd_addr_shift) & 0x3fff
	d := uint32(0xffff)
	if a < n_eeprom_words {
		d = uint32(s.Eeprom[a])
	}
	return v&^(0xffff<<eerd_data_shift) | eerd_done | d<<eerd_data_shift
}

func (s *Sim) phy_access(v uint32) uint32 {
	if s.PhyStuck {
		return v &^ (mdic_ready | mdic_error)
	}
	if (v&mdic_phy_mask)>>mdic_phy_shift != mdic_phy_addr {
		return v | mdic_error
	}
	r := (v & mdic_reg_mask) >> mdic_reg_shift
	switch v & mdic_op_mask {
	case mdic_op_read:
		v = v&^mdic_data_mask | uint32(s.Phy[r])
	case mdic_op_write:
		s.Phy[r] = uint16(v)
	default:
		return v | mdic_error
	}
	return v | mdic_ready
}

func (s *Sim) tx_desc_at(i uint32) *tx_desc {
	base := uint64(s.regs[tdbal/4]) | uint64(s.regs[tdbah/4])<<32
	b := s.dma.Bytes(base+uint64(i)*desc_bytes, desc_bytes)
	if b == nil {
		return nil
	}
	return (*tx_desc)(unsafe.Pointer(&b[0]))
}

func (s *Sim) rx_desc_at(i uint32) *rx_desc {
	base := uint64(s.regs[rdbal/4]) | uint64(s.regs[rdbah/4])<<32
	b := s.dma.Bytes(base+uint64(i)*desc_bytes, desc_bytes)
	if b == nil {
		return nil
	}
	return (*rx_desc)(unsafe.Pointer(&b[0]))
}

// CompleteTx completes transmit descriptors held by TxHold.
func (s *Sim) CompleteTx() {
	s.mu.Lock()
	s.transmit()
	s.mu.Unlock()
}

// transmit completes every descriptor from tdh to tdt.
func (s *Sim) transmit() {
	if s.regs[tctl/4]&tctl_enable == 0 {
		return
	}
	n := s.regs[tdlen/4] / desc_bytes
	if n == 0 {
		return
	}
	done := false
	for h := s.regs[tdh/4]; h != s.regs[tdt/4]; h = (h + 1) % n {
		d := s.tx_desc_at(h)
		if d == nil {
			break
		}
		l := d.get_control() & tx_desc_length_mask
		if p := s.dma.Bytes(d.buffer(), uint(l)); p != nil {
			s.Stats[stat_good_packets_tx]++
			s.Stats[stat_good_octets_tx] += l
			if s.Loopback {
				s.receive(p)
			}
		}
		d.write_back(tx_desc_is_done)
		s.regs[tdh/4] = (h + 1) % n
		done = true
	}
	if done {
		s.raise(irq_tx_descriptor_written_back)
	}
}

// Receive places frame p in the next receive descriptor and raises the
// receive timer interrupt.  It reports false when the ring has no room or
// the receiver is off.
func (s *Sim) Receive(p []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receive(p)
}

func (s *Sim) receive(p []byte) bool {
	n := s.regs[rdlen/4] / desc_bytes
	h := s.regs[rdh/4]
	if s.regs[rctl/4]&rctl_enable == 0 || n == 0 || h == s.regs[rdt/4] {
		s.Stats[stat_missed_packets]++
		return false
	}
	d := s.rx_desc_at(h)
	if d == nil {
		return false
	}
	b := s.dma.Bytes(d.buffer(), uint(len(p)))
	if b == nil {
		d.write_back(0, 0, rx_desc_is_done|rx_desc_is_end_of_packet, rx_error_rx_data)
	} else {
		copy(b, p)
		d.write_back(uint16(len(p)), 0, rx_desc_is_done|rx_desc_is_end_of_packet|rx_desc_ignore_checksum, 0)
		s.Stats[stat_good_packets_rx]++
		s.Stats[stat_good_octets_rx] += uint32(len(p))
	}
	s.regs[rdh/4] = (h + 1) % n
	s.raise(irq_rx_timer)
	return true
}
