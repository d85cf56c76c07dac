// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"context"

	"github.com/platinasystems/log"
)

func (c *Controller) link_worker(ctx context.Context) error {
	if v := c.phy_read(phy_interrupt_enable); v != sentinel {
		if !c.phy_write(phy_interrupt_enable, uint16(v|phy_interrupt_link)) {
			c.m.phy_timeouts.Inc(1)
		}
	} else {
		c.m.phy_timeouts.Inc(1)
	}
	for {
		c.link_update()
		c.lim.Store(0)
		c.enable(link_irqs)
		c.m.lsleep.Inc(1)
		if _, ok := c.wait(ctx, c.lwake, &c.lim); !ok {
			return nil
		}
	}
}

// link_update reads PHY status and reports it upstream.  Speed is left at
// its last value when the chip can not tell.
func (c *Controller) link_update() {
	v := c.phy_read(phy_specific_status)
	if v == sentinel {
		c.m.phy_timeouts.Inc(1)
		return
	}
	up := v&physsr_link != 0
	mbps := int(c.link_mbps.Load())
	if i, ok := c.chip.speed_index(v); ok {
		c.m.speeds[i].Inc(1)
		mbps = speed_mbps[i]
	}
	was := c.link_up.Swap(up)
	c.link_mbps.Store(int32(mbps))
	if up != was {
		if up {
			log.Print("info", c.Name, ": link up, ", mbps, " mbps")
		} else {
			log.Print("info", c.Name, ": link down")
		}
	}
	c.up.LinkChanged(up, mbps)
}
