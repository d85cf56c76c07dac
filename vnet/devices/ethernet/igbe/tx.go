// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"context"
)

const (
	tx_collision_threshold = 0x0f
	tx_collision_distance  = 66
	tx_ipg                 = 0x00702008

	default_tidv = 128
	default_tadv = 64
)

func (c *Controller) txinit() {
	r := &c.tx

	tctl.set(c, tx_collision_threshold<<tctl_collision_threshold_shift|
		tctl_pad_short_packets|
		tx_collision_distance<<tctl_collision_distance_shift|
		tctl_multiple_requests)
	tipg.set(c, tx_ipg)

	c.tlock.Lock()
	tdbal.set(c, uint32(r.phys))
	tdbah.set(c, uint32(r.phys>>32))
	tdlen.set(c, r.bytes())
	// Head is the last slot reclaimed.
	r.head = r.len() - 1
	tdh.set(c, 0)
	r.tail = 0
	tdt.set(c, 0)
	r.release()
	for i := range r.desc {
		r.desc[i] = tx_desc{}
	}
	r.n_free = 0
	c.tlock.Unlock()

	tidv.set(c, default_tidv)
	tadv.set(c, default_tadv)

	v := txdctl.get(c) &^ dctl_wthresh_mask
	txdctl.set(c, v|4<<dctl_wthresh_shift|4<<dctl_pthresh_shift)

	tctl.or(c, tctl_enable)
}

// tx_reclaim frees buffers of descriptors hardware has written back.
// Called with tlock held.
func (c *Controller) tx_reclaim() (n int) {
	r := &c.tx
	for {
		i := r.next(r.head)
		if i == r.tail {
			break
		}
		d := &r.desc[i]
		if d.get_status()&tx_desc_is_done == 0 {
			break
		}
		r.head = i
		if b := r.slots[i].take(); b != nil {
			b.Free()
			r.n_free--
			n++
		} else {
			ratelimited.Print("warn", c.Name, ": tx underrun at ", i)
			c.m.tx_underrun.Inc(1)
		}
		d.clear_status()
	}
	return
}

// transmit reclaims finished descriptors and queues what upstream has to
// send.  It is called by upstream and by the tx worker.
func (c *Controller) transmit() {
	c.tlock.Lock()
	defer c.tlock.Unlock()

	r := &c.tx
	c.tx_reclaim()
	tail := r.tail
	for {
		if r.full() {
			c.m.txdw.Inc(1)
			c.enable(tx_irqs)
			break
		}
		b := c.up.Outbound()
		if b == nil {
			break
		}
		n := uint32(b.Len())
		r.desc[r.tail].set(b.Phys(), tx_desc_interrupt_delay|tx_desc_report_status|
			tx_desc_insert_fcs|tx_desc_end_of_packet|n&tx_desc_length_mask)
		r.slots[r.tail].put(b)
		r.n_free++
		r.tail = r.next(r.tail)
		c.m.tx_packets.Inc(1)
		c.m.tx_bytes.Inc(int64(n))
	}
	if r.tail != tail {
		tdt.set(c, r.tail)
	}
}

func (c *Controller) tx_worker(ctx context.Context) error {
	for {
		if _, ok := c.wait(ctx, c.twake, nil); !ok {
			return nil
		}
		c.transmit()
	}
}
