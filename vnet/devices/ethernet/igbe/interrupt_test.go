// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classes = []uint32{link_irqs, rx_irqs, tx_irqs}

// Interrupt causes in the order bits of a random byte select them.
var causes = []uint32{
	irq_link_status_change,
	irq_rx_timer,
	irq_rx_overrun,
	irq_rx_min_threshold,
	irq_rx_sequence_error,
	irq_rx_ack,
	irq_tx_descriptor_written_back,
	irq_tx_queue_empty,
}

func drain(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestInterruptMask(t *testing.T) {
	r := newRig(t, id82571)
	c := r.c
	f := func(armed, raised uint8) bool {
		var im, icr uint32
		for i, class := range classes {
			if armed&(1<<uint(i)) != 0 {
				im |= class
			}
		}
		for i, cause := range causes {
			if raised&(1<<uint(i)) != 0 {
				icr |= cause
			}
		}
		c.imlock.Lock()
		c.im = im
		c.imlock.Unlock()
		r.sim.Store32(uint(imc), ^uint32(0))
		r.sim.Store32(uint(ims), im)
		c.lim.Store(0)
		c.rim.Store(0)
		drain(c.lwake)
		drain(c.rwake)
		drain(c.twake)

		r.sim.Raise(icr)
		c.Interrupt()

		want := im
		for _, class := range classes {
			if icr&im&class != 0 {
				want &^= class
			}
		}
		ok := c.interrupt_mask() == want && r.sim.Load32(uint(ims)) == want
		ok = ok && drain(c.lwake) == (icr&im&link_irqs != 0)
		ok = ok && drain(c.rwake) == (icr&im&rx_irqs != 0)
		ok = ok && drain(c.twake) == (icr&im&tx_irqs != 0)
		ok = ok && c.rim.Load() == icr&im&rx_irqs
		ok = ok && c.lim.Load() == icr&im&link_irqs
		return ok
	}
	require.NoError(t, quick.Check(f, nil))
}

func TestInterruptRearm(t *testing.T) {
	r := newRig(t, id82573)
	c := r.c
	c.enable(link_irqs | rx_irqs)

	r.sim.Raise(irq_rx_timer | irq_rx_min_threshold)
	c.Interrupt()
	assert.Equal(t, uint32(link_irqs), c.interrupt_mask())
	assert.EqualValues(t, 1, c.m.rintr.Count())

	// A second cause of a masked class is not dispatched.
	r.sim.Raise(irq_rx_overrun)
	c.Interrupt()
	assert.EqualValues(t, 1, c.m.rintr.Count())
	assert.Equal(t, uint32(irq_rx_timer|irq_rx_min_threshold), c.rim.Swap(0))

	c.enable(rx_irqs)
	assert.Equal(t, uint32(link_irqs|rx_irqs), c.interrupt_mask())
	assert.Equal(t, uint32(link_irqs|rx_irqs), r.sim.Load32(uint(ims)))

	r.sim.Raise(irq_link_status_change)
	c.Interrupt()
	assert.Equal(t, uint32(rx_irqs), c.interrupt_mask())
	assert.EqualValues(t, 1, c.m.lintr.Count())
	assert.True(t, drain(c.lwake))
}

func TestInterruptNoCause(t *testing.T) {
	r := newRig(t, id82573)
	c := r.c
	c.enable(rx_irqs)
	c.Interrupt()
	assert.Equal(t, uint32(rx_irqs), c.interrupt_mask())
	assert.False(t, drain(c.rwake))
}

func TestSimQuiet(t *testing.T) {
	r := newRig(t, id82573)
	assert.Zero(t, r.sim.Load32(uint(icr)))
	assert.NotZero(t, r.sim.Load32(uint(status))&status_link_up)

	r.sim.SetLink(false, 0)
	assert.Equal(t, uint32(irq_link_status_change), r.sim.Load32(uint(icr)))
	assert.Zero(t, r.sim.Load32(uint(status))&status_link_up)
}

func TestIrqString(t *testing.T) {
	assert.Equal(t, "tx descriptor written back, link status change", irq_string(irq_tx_descriptor_written_back|irq_link_status_change))
	assert.Equal(t, "irq 31", irq_string(1<<31))
}
