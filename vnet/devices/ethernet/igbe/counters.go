// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// Names of the hardware statistics block, by register index.  Unnamed
// entries are reserved or the high half of a 64 bit counter.
var statistic_names = [n_statistics]string{
	"crc errors",
	"alignment errors",
	"symbol errors",
	"rx errors",
	"missed packets",
	"single collisions",
	"excessive collisions",
	"multiple collisions",
	"late collisions",
	"",
	"collisions",
	"tx underruns",
	"defers",
	"tx no crs",
	"sequence errors",
	"carrier extension errors",
	"rx length errors",
	"",
	"xon received",
	"xon transmitted",
	"xoff received",
	"xoff transmitted",
	"flow control unsupported",
	"rx packets 64 bytes",
	"rx packets 65 to 127 bytes",
	"rx packets 128 to 255 bytes",
	"rx packets 256 to 511 bytes",
	"rx packets 512 to 1023 bytes",
	"rx packets 1024 to max bytes",
	"good packets received",
	"broadcast packets received",
	"multicast packets received",
	"good packets transmitted",
	"",
	"good octets received",
	"",
	"good octets transmitted",
	"",
	"",
	"",
	"rx no buffers",
	"rx undersize",
	"rx fragments",
	"rx oversize",
	"rx jabbers",
	"management packets received",
	"management packets dropped",
	"management packets transmitted",
	"total octets received",
	"",
	"total octets transmitted",
	"",
	"total packets received",
	"total packets transmitted",
	"tx packets 64 bytes",
	"tx packets 65 to 127 bytes",
	"tx packets 128 to 255 bytes",
	"tx packets 256 to 511 bytes",
	"tx packets 512 to 1023 bytes",
	"tx packets 1024 to max bytes",
	"multicast packets transmitted",
	"broadcast packets transmitted",
	"tcp segmentation contexts",
	"tcp segmentation context failures",
	"interrupt assertions",
	"interrupt rx packet timer",
	"interrupt rx absolute timer",
	"interrupt tx packet timer",
	"interrupt tx absolute timer",
	"interrupt tx queue empty",
	"interrupt tx descriptor low",
	"interrupt rx min threshold",
	"interrupt rx overrun",
}

const (
	stat_missed_packets  = 4
	stat_good_packets_rx = 29
	stat_good_packets_tx = 32

	// Low halves of the 64 bit octet counters.
	stat_good_octets_rx  = 34
	stat_good_octets_tx  = 36
	stat_total_octets_rx = 48
	stat_total_octets_tx = 50
)

func is_stat64(i int) bool {
	switch i {
	case stat_good_octets_rx, stat_good_octets_tx, stat_total_octets_rx, stat_total_octets_tx:
		return true
	}
	return false
}

// update_stats folds the clear on read statistics block into the running
// totals.  Called with slock held.
func (c *Controller) update_stats() {
	for i := 0; i < n_statistics; i++ {
		r := uint64(statistics.get_stat(c, i))
		if is_stat64(i) {
			r |= uint64(statistics.get_stat(c, i+1)) << 32
			c.stats_last[i] = r
			c.stats[i] += r
			i++
			continue
		}
		c.stats_last[i] = r
		c.stats[i] += r
	}
}

func (r reg) get_stat(c *Controller, i int) uint32 { return (r + reg(4*i)).get(c) }

// Counters returns hardware statistics totals and soft counters by name.
// Zero hardware counters are omitted.
func (c *Controller) Counters() map[string]uint64 {
	m := make(map[string]uint64)
	c.slock.Lock()
	c.update_stats()
	for i, n := range statistic_names {
		if n != "" && c.stats[i] != 0 {
			m[n] = c.stats[i]
		}
	}
	c.slock.Unlock()
	c.Registry.Each(func(name string, v interface{}) {
		if x, ok := v.(interface{ Count() int64 }); ok {
			m[name] = uint64(x.Count())
		}
	})
	return m
}

// Dump writes the driver's diagnostic report: each non-zero hardware
// counter with its total and the change since the last dump, then soft
// counters and register snapshots.
func (c *Controller) Dump(w io.Writer) {
	c.slock.Lock()
	defer c.slock.Unlock()

	c.update_stats()
	for i, n := range statistic_names {
		if n == "" || c.stats[i] == 0 {
			continue
		}
		if is_stat64(i) {
			fmt.Fprintf(w, "%s: %d %d (%s)\n", n, c.stats[i], c.stats_last[i],
				humanize.Bytes(c.stats[i]))
		} else {
			fmt.Fprintf(w, "%s: %d %d\n", n, c.stats[i], c.stats_last[i])
		}
	}

	m := c.m
	fmt.Fprintf(w, "lintr: %d %d\n", m.lintr.Count(), m.lsleep.Count())
	fmt.Fprintf(w, "rintr: %d %d\n", m.rintr.Count(), m.rsleep.Count())
	fmt.Fprintf(w, "tintr: %d %d\n", m.tintr.Count(), m.txdw.Count())
	fmt.Fprintf(w, "ixcs: %d %d %d\n", m.ixsm.Count(), m.ipcs.Count(), m.tcpcs.Count())
	fmt.Fprintf(w, "rdtr: %d\n", c.rdtr_value.Load())
	fmt.Fprintf(w, "radv: %d\n", c.radv_value.Load())
	fmt.Fprintf(w, "ctrl: %08x\n", ctrl.get(c))
	fmt.Fprintf(w, "ctrlext: %08x\n", ctrl_ext.get(c))
	fmt.Fprintf(w, "status: %08x\n", status.get(c))
	fmt.Fprintf(w, "txcw: %08x\n", txcw.get(c))
	fmt.Fprintf(w, "txdctl: %08x\n", txdctl.get(c))
	fmt.Fprintf(w, "pba: %08x\n", c.pba.Load())

	var s []string
	for i, n := range speed_names {
		s = append(s, fmt.Sprintf("%s:%d", n, m.speeds[i].Count()))
	}
	fmt.Fprintf(w, "speeds: %s\n", strings.Join(s, " "))
	fmt.Fprintf(w, "type: %s\n", c.chip.name)
	fmt.Fprintf(w, "state: %s\n", c.State())
	fmt.Fprintf(w, "interrupt mask: %s\n", irq_string(c.interrupt_mask()))
	if up, mbps := c.Link(); up {
		fmt.Fprintf(w, "link: up %d mbps\n", mbps)
	} else {
		fmt.Fprintf(w, "link: down\n")
	}
	c.rlock.Lock()
	fmt.Fprintf(w, "rx ring: head %d tail %d free %d\n", c.rx.head, c.rx.tail, c.rx.n_free)
	c.rlock.Unlock()
	c.tlock.Lock()
	fmt.Fprintf(w, "tx ring: head %d tail %d free %d\n", c.tx.head, c.tx.tail, c.tx.n_free)
	c.tlock.Unlock()
	if c.pool != nil {
		fmt.Fprintf(w, "pool: %s\n", c.pool)
	}
}

// DumpRing writes every descriptor of a ring, "rx" or "tx".
func (c *Controller) DumpRing(w io.Writer, which string) error {
	switch which {
	case "rx":
		c.rlock.Lock()
		defer c.rlock.Unlock()
		for i := range c.rx.desc {
			fmt.Fprintf(w, "%3d: %s\n", i, &c.rx.desc[i])
		}
	case "tx":
		c.tlock.Lock()
		defer c.tlock.Unlock()
		for i := range c.tx.desc {
			fmt.Fprintf(w, "%3d: %s\n", i, &c.tx.desc[i])
		}
	default:
		return fmt.Errorf("%s: ring %q: %w", c.Name, which, ErrBadArgument)
	}
	return nil
}
