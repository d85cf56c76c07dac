// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
	"strings"
)

// Interrupt classes, one per worker.
const (
	link_irqs = irq_link_status_change
	rx_irqs   = irq_rx_timer | irq_rx_overrun | irq_rx_min_threshold | irq_rx_sequence_error | irq_rx_ack
	tx_irqs   = irq_tx_descriptor_written_back
)

var irqStrings = map[uint32]string{
	irq_tx_descriptor_written_back: "tx descriptor written back",
	irq_tx_queue_empty:             "tx queue empty",
	irq_link_status_change:         "link status change",
	irq_rx_sequence_error:          "rx sequence error",
	irq_rx_min_threshold:           "rx min threshold",
	irq_rx_overrun:                 "rx overrun",
	irq_rx_timer:                   "rx timer",
	irq_mdio_access_complete:       "mdio access complete",
	irq_rx_ack:                     "rx ack",
}

func irq_string(v uint32) string {
	var s []string
	for i := uint(0); i < 32; i++ {
		b := uint32(1) << i
		if v&b == 0 {
			continue
		}
		if n, ok := irqStrings[b]; ok {
			s = append(s, n)
		} else {
			s = append(s, fmt.Sprintf("irq %d", i))
		}
	}
	return strings.Join(s, ", ")
}

// Interrupt demultiplexes the cause register.  All interrupts are masked on
// entry; each signalled class stays masked until its worker re-arms it.
// Interrupt never blocks.
func (c *Controller) Interrupt() {
	c.imlock.Lock()
	imc.set(c, ^uint32(0))
	im := c.im
	for {
		v := icr.get(c) & im
		if v == 0 {
			break
		}
		if v&link_irqs != 0 {
			im &^= link_irqs
			c.lim.Or(v & link_irqs)
			wake(c.lwake)
			c.m.lintr.Inc(1)
		}
		if v&rx_irqs != 0 {
			im &^= rx_irqs
			c.rim.Or(v & rx_irqs)
			wake(c.rwake)
			c.m.rintr.Inc(1)
		}
		if v&tx_irqs != 0 {
			im &^= tx_irqs
			wake(c.twake)
			c.m.tintr.Inc(1)
		}
	}
	c.im = im
	ims.set(c, im)
	c.imlock.Unlock()
}

// enable re-arms interrupt bits; workers only ever pass their own class.
func (c *Controller) enable(bits uint32) {
	c.imlock.Lock()
	c.im |= bits
	ims.set(c, c.im)
	c.imlock.Unlock()
}

// interrupt_mask returns the soft copy of ims.
func (c *Controller) interrupt_mask() uint32 {
	c.imlock.Lock()
	defer c.imlock.Unlock()
	return c.im
}
