// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Driver for Intel 8256x/8257x 1G Ethernet controllers.
package igbe

// Byte offset of a 32 bit register in BAR 0.
type reg uint

func (r reg) get(c *Controller) uint32    { return c.regs.Load32(uint(r)) }
func (r reg) set(c *Controller, v uint32) { c.regs.Store32(uint(r), v) }
func (r reg) or(c *Controller, v uint32) (x uint32) {
	x = r.get(c) | v
	r.set(c, x)
	return
}
func (r reg) andnot(c *Controller, v uint32) (x uint32) {
	x = r.get(c) &^ v
	r.set(c, x)
	return
}

const (
	ctrl     reg = 0x0000
	status   reg = 0x0008
	eec      reg = 0x0010
	eerd     reg = 0x0014
	ctrl_ext reg = 0x0018
	mdic     reg = 0x0020
	fcal     reg = 0x0028
	fcah     reg = 0x002c
	fct      reg = 0x0030
	fcttv    reg = 0x0170
	txcw     reg = 0x0178

	icr reg = 0x00c0
	itr reg = 0x00c4
	ics reg = 0x00c8
	ims reg = 0x00d0
	imc reg = 0x00d8
	iam reg = 0x00e0

	rctl reg = 0x0100
	tctl reg = 0x0400
	tipg reg = 0x0410

	pba reg = 0x1000
	pbs reg = 0x1008

	ert   reg = 0x2008
	fcrtl reg = 0x2160
	fcrth reg = 0x2168

	rdbal  reg = 0x2800
	rdbah  reg = 0x2804
	rdlen  reg = 0x2808
	rdh    reg = 0x2810
	rdt    reg = 0x2818
	rdtr   reg = 0x2820
	rxdctl reg = 0x2828
	radv   reg = 0x282c

	// Second receive queue.  Its base high register is documented at
	// 0x2804, the same offset as rdbah, so it is left undefined.
	rdbal1 reg = 0x2900
	rdlen1 reg = 0x2908
	rdh1   reg = 0x2910
	rdt1   reg = 0x2918

	tdbal  reg = 0x3800
	tdbah  reg = 0x3804
	tdlen  reg = 0x3808
	tdh    reg = 0x3810
	tdt    reg = 0x3818
	tidv   reg = 0x3820
	txdctl reg = 0x3828
	tadv   reg = 0x382c
	tarc0  reg = 0x3840

	statistics reg = 0x4000

	rxcsum reg = 0x5000
	mta    reg = 0x5200
	ral    reg = 0x5400
	rah    reg = 0x5404
)

const (
	n_statistics = 0x124 / 4
	n_mta        = 128
	n_ra         = 16
)

// ral/rah for address slot i.
func ral_for(i uint) reg { return ral + reg(8*i) }
func rah_for(i uint) reg { return rah + reg(8*i) }

func mta_for(i uint) reg { return mta + reg(4*i) }

// ctrl
const (
	ctrl_link_up        = 1 << 6
	ctrl_device_reset   = 1 << 26
	ctrl_vlan_mode      = 1 << 30
	ctrl_phy_reset      = 1 << 31
	ctrl_force_speed    = 1 << 11
	ctrl_force_duplex   = 1 << 12
	ctrl_rx_flow_enable = 1 << 27
	ctrl_tx_flow_enable = 1 << 28
)

// status
const (
	status_full_duplex = 1 << 0
	status_link_up     = 1 << 1
	// [3:2] lan id on dual port adapters.
	status_lan_id_shift = 2
	status_lan_id_mask  = 3 << status_lan_id_shift
)

// ctrl_ext
const (
	ctrl_ext_eeprom_reset = 1 << 13
)

// eerd
const (
	eerd_start      = 1 << 0
	eerd_done       = 1 << 1
	eerd_addr_shift = 2
	eerd_data_shift = 16
)

// mdic
const (
	mdic_data_mask  = 0xffff
	mdic_reg_shift  = 16
	mdic_phy_shift  = 21
	mdic_op_write   = 1 << 26
	mdic_op_read    = 2 << 26
	mdic_ready      = 1 << 28
	mdic_interrupt  = 1 << 29
	mdic_error      = 1 << 30
	mdic_phy_addr   = 1
	mdic_op_mask    = 3 << 26
	mdic_reg_mask   = 0x1f << mdic_reg_shift
	mdic_phy_mask   = 0x1f << mdic_phy_shift
	mdic_done_mask  = mdic_ready | mdic_error
	mdic_request_ok = mdic_ready
)

// PHY registers reached through mdic.
const (
	phy_ctrl                = 0
	phy_status              = 1
	phy_id1                 = 2
	phy_id2                 = 3
	phy_specific_status     = 17
	phy_interrupt_enable    = 18
	phy_interrupt_link      = 1 << 14
	physsr_link             = 1 << 10
	physsr_autoneg_resolved = 1 << 11
	physsr_speed_shift      = 14
)

// icr, ims, imc
const (
	irq_tx_descriptor_written_back = 1 << 0
	irq_tx_queue_empty             = 1 << 1
	irq_link_status_change         = 1 << 2
	irq_rx_sequence_error          = 1 << 3
	irq_rx_min_threshold           = 1 << 4
	irq_rx_overrun                 = 1 << 6
	irq_rx_timer                   = 1 << 7
	irq_mdio_access_complete       = 1 << 9
	irq_rx_ack                     = 1 << 17
)

// rctl
const (
	rctl_enable                = 1 << 1
	rctl_store_bad_packets     = 1 << 2
	rctl_unicast_promiscuous   = 1 << 3
	rctl_multicast_promiscuous = 1 << 4
	rctl_long_packet_enable    = 1 << 5
	rctl_loopback_mask         = 3 << 6
	rctl_rdtms_half            = 0 << 8
	rctl_rdtms_quarter         = 1 << 8
	rctl_rdtms_eighth          = 2 << 8
	rctl_multicast_offset_mask = 3 << 12
	rctl_broadcast_accept      = 1 << 15
	rctl_bsize_2048            = 0 << 16
	rctl_bsize_1024            = 1 << 16
	rctl_bsize_512             = 2 << 16
	rctl_bsize_256             = 3 << 16
	rctl_bsize_16384           = 1 << 16 // with rctl_bsize_extension
	rctl_bsize_8192            = 2 << 16 // with rctl_bsize_extension
	rctl_bsize_4096            = 3 << 16 // with rctl_bsize_extension
	rctl_vlan_filter           = 1 << 18
	rctl_cfi_enable            = 1 << 19
	rctl_discard_pause         = 1 << 22
	rctl_pass_mac_control      = 1 << 23
	rctl_bsize_extension       = 1 << 25
	rctl_strip_crc             = 1 << 26
	// [30:27] flexible buffer size in kilobytes.
	rctl_bsize_flex_shift = 27
)

// tctl
const (
	tctl_enable                    = 1 << 1
	tctl_pad_short_packets         = 1 << 3
	tctl_collision_threshold_shift = 4
	tctl_collision_distance_shift  = 12
	tctl_rtlc                      = 1 << 24
	tctl_multiple_requests         = 1 << 28
)

// rxdctl and txdctl
const (
	dctl_pthresh_shift = 0
	dctl_hthresh_shift = 8
	dctl_wthresh_shift = 16
	dctl_wthresh_mask  = 0x3f << dctl_wthresh_shift
	dctl_granularity   = 1 << 24
)

// rxcsum
const (
	rxcsum_start_shift = 0
	rxcsum_ip_offload  = 1 << 8
	rxcsum_tcp_offload = 1 << 9
)

// rah
const (
	rah_address_valid = 1 << 31
)

const ethernet_header_bytes = 14
