// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
	"testing"

	"github.com/platinasystems/igbe/vnet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxInit(t *testing.T) {
	r := newRig(t, id82572)
	r.configure(t)
	c := r.c

	assert.Equal(t, c.tx.len()-1, c.tx.head)
	assert.Zero(t, c.tx.tail)
	assert.Zero(t, tdh.get(c))
	assert.Zero(t, tdt.get(c))
	assert.Equal(t, uint32(0x00702008), tipg.get(c))
	assert.Equal(t, uint32(0x0f<<4|1<<3|66<<12|1<<28|tctl_enable), tctl.get(c))
	assert.Equal(t, uint32(default_tidv), tidv.get(c))
	assert.Equal(t, uint32(default_tadv), tadv.get(c))
	assert.Equal(t, uint32(4<<16|4), txdctl.get(c)&(dctl_wthresh_mask|0x3f))
}

// Five queued packets advance tail by five; once hardware completes them
// reclaim frees exactly those buffers, oldest first.
func TestTxQueueAndReclaim(t *testing.T) {
	r := newRig(t, id82573)
	r.sim.TxHold = true
	r.configure(t)
	c := r.c

	var sent []*vnet.Buffer
	for i := 0; i < 5; i++ {
		b := r.frame(t, []byte(fmt.Sprintf("packet %d", i)))
		sent = append(sent, b)
		r.up.out.Put(b)
	}
	head := c.tx.head
	c.transmit()
	assert.Equal(t, uint32(5), c.tx.tail)
	assert.Equal(t, head, c.tx.head)
	assert.Equal(t, uint32(5), tdt.get(c))
	assert.Equal(t, 5, c.tx.n_free)
	for i, b := range sent {
		d := &c.tx.desc[i]
		assert.Equal(t, b.Phys(), d.buffer())
		assert.Equal(t, uint32(tx_desc_interrupt_delay|tx_desc_report_status|tx_desc_insert_fcs|
			tx_desc_end_of_packet|uint32(b.Len())), d.get_control())
	}

	// Nothing is reclaimed until hardware writes back.
	c.transmit()
	assert.Equal(t, head, c.tx.head)

	free := c.pool.Len()
	r.sim.CompleteTx()
	c.transmit()
	assert.Equal(t, uint32(4), c.tx.head)
	assert.Zero(t, c.tx.n_free)
	assert.Equal(t, free+5, c.pool.Len())

	// The pool is a stack so the buffers come back newest first.
	for i := len(sent) - 1; i >= 0; i-- {
		assert.Same(t, sent[i], c.pool.Get())
	}
}

func TestTxRingFull(t *testing.T) {
	r := newRig(t, id82573)
	r.sim.TxHold = true
	r.configure(t)
	c := r.c

	n := int(c.tx.len())
	for i := 0; i < n; i++ {
		r.up.out.Put(r.frame(t, []byte("x")))
	}
	c.transmit()
	assert.Equal(t, c.tx.len()-2, c.tx.tail)
	assert.True(t, c.tx.full())
	assert.Equal(t, 2, r.up.out.Len())
	assert.EqualValues(t, 1, c.m.txdw.Count())
	assert.Equal(t, uint32(tx_irqs), c.interrupt_mask()&tx_irqs)

	// The written back interrupt brings the tx worker around to finish.
	r.sim.CompleteTx()
	c.Interrupt()
	require.True(t, drain(c.twake))
	assert.Zero(t, c.interrupt_mask()&tx_irqs)
	c.transmit()
	assert.Zero(t, r.up.out.Len())
	assert.Equal(t, c.tx.len()-3, c.tx.head)
	assert.Zero(t, c.tx.tail)
}

func TestTxUnderrun(t *testing.T) {
	r := newRig(t, id82573)
	r.sim.TxHold = true
	r.configure(t)
	c := r.c

	c.tlock.Lock()
	c.tx.tail = 1
	c.tx.desc[0].write_back(tx_desc_is_done)
	c.tlock.Unlock()

	c.transmit()
	assert.EqualValues(t, 1, c.m.tx_underrun.Count())
	assert.Zero(t, c.tx.head)
	assert.Zero(t, c.tx.desc[0].get_status())
}

func TestTransmitEmpty(t *testing.T) {
	r := newRig(t, id82573)
	r.sim.TxHold = true
	r.configure(t)
	c := r.c
	tdt.set(c, 0x7f)
	c.transmit()
	// Tail did not move so tdt is not rewritten.
	assert.Equal(t, uint32(0x7f), tdt.get(c))
}
