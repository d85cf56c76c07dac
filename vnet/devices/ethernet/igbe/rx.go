// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"context"
	"time"

	"github.com/platinasystems/igbe/vnet"
	"github.com/platinasystems/log"
)

const (
	// Refill once this many descriptors have been consumed.
	rx_replenish_deficit = 32

	default_rdtr = 25
	default_radv = 500
)

// Warnings from the packet path are limited so that a storm can not flood
// syslog.
var ratelimited = log.NewRateLimited(16, time.Minute)

func (c *Controller) rxinit() {
	c.rlock.Lock()
	defer c.rlock.Unlock()
	r := &c.rx

	rctl.set(c, rctl_discard_pause|rctl_broadcast_accept|rctl_rdtms_half|c.chip.rctl_buffer_size())
	if c.chip.ert != 0 {
		ert.set(c, c.chip.ert)
	}
	if c.chip.pbs != 0 {
		pbs.set(c, c.chip.pbs)
	}

	rdbal.set(c, uint32(r.phys))
	rdbah.set(c, uint32(r.phys>>32))
	rdlen.set(c, r.bytes())
	r.head, r.tail = 0, 0
	rdh.set(c, 0)
	rdt.set(c, 0)

	c.set_rdtr(default_rdtr)
	c.set_radv(default_radv)

	r.release()
	for i := range r.desc {
		r.desc[i] = rx_desc{}
	}
	r.n_free = 0
	c.replenish()

	rxdctl.set(c, 2<<dctl_wthresh_shift|2<<dctl_pthresh_shift)
	rxcsum.set(c, rxcsum_tcp_offload|rxcsum_ip_offload|ethernet_header_bytes<<rxcsum_start_shift)
}

// replenish hands pool buffers to every free slot from tail up to the slot
// before head.
func (c *Controller) replenish() {
	r := &c.rx
	c.m.replenish.Inc(1)
	for !r.full() {
		s := &r.slots[r.tail]
		if s.busy() {
			log.Print("err", c.Name, ": rx overrun at ", r.tail)
			c.m.rx_overrun.Inc(1)
			break
		}
		b := c.pool.Get()
		if b == nil {
			ratelimited.Print("warn", c.Name, ": no available buffers")
			c.m.rx_nobuf.Inc(1)
			break
		}
		s.put(b)
		r.desc[r.tail].set_buffer(b.Phys())
		r.n_free++
		r.tail = r.next(r.tail)
		c.m.refill.Inc(1)
	}
	rdt.set(c, r.tail)
}

// rx_process delivers every completed descriptor from head onward.  Causes
// recorded while the batch runs are added to rim.
func (c *Controller) rx_process(rim uint32) (n int) {
	r := &c.rx
	for r.head != r.tail {
		d := &r.desc[r.head]
		status, errors, _ := d.get_status()
		if status&rx_desc_is_done == 0 {
			break
		}
		b := r.slots[r.head].take()
		length, checksum := d.get_length_checksum()
		if status&rx_desc_is_end_of_packet != 0 && errors == 0 {
			b.Extend(int(length))
			if status&rx_desc_ignore_checksum == 0 {
				c.m.ixsm.Inc(1)
				if status&rx_desc_is_ip4_checksummed != 0 {
					b.Flags |= vnet.IP4ChecksumOk
					c.m.ipcs.Inc(1)
				}
				if status&rx_desc_is_tcp_checksummed != 0 {
					b.Flags |= vnet.L4ChecksumOk
					c.m.tcpcs.Inc(1)
				}
				b.Checksum = checksum
				b.Flags |= vnet.PacketChecksum
			}
			c.m.rx_packets.Inc(1)
			c.m.rx_bytes.Inc(int64(length))
			c.up.Inbound(b)
		} else {
			c.m.rx_errors.Inc(1)
			b.Free()
		}
		d.clear_status()
		r.head = r.next(r.head)
		r.n_free--
		n++

		rim |= c.rim.Swap(0)
		if int(r.len())-r.n_free >= rx_replenish_deficit || rim&irq_rx_min_threshold != 0 {
			c.replenish()
		}
	}
	return
}

func (c *Controller) rx_worker(ctx context.Context) error {
	for {
		c.enable(rx_irqs)
		c.m.rsleep.Inc(1)
		rim, ok := c.wait(ctx, c.rwake, &c.rim)
		if !ok {
			return nil
		}
		c.rlock.Lock()
		c.rx_process(rim)
		c.rlock.Unlock()
	}
}
