// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"github.com/rcrowley/go-metrics"
)

// Soft counters kept by the driver itself, as opposed to the statistics
// block maintained by hardware.
type counters struct {
	lintr, lsleep metrics.Counter
	rintr, rsleep metrics.Counter
	tintr, txdw   metrics.Counter

	// Checksum offload: ignored, ip4 valid, tcp/udp valid.
	ixsm, ipcs, tcpcs metrics.Counter

	rx_packets, rx_bytes metrics.Counter
	rx_errors            metrics.Counter
	rx_nobuf, rx_overrun metrics.Counter
	replenish, refill    metrics.Counter

	tx_packets, tx_bytes metrics.Counter
	tx_underrun          metrics.Counter

	phy_timeouts metrics.Counter

	// Indexed like speed_mbps.
	speeds [4]metrics.Counter
}

var speed_names = [4]string{"10", "100", "1000", "unknown"}

func new_counters(r metrics.Registry) *counters {
	f := func(name string) metrics.Counter {
		return metrics.GetOrRegisterCounter(name, r)
	}
	m := &counters{
		lintr:        f("link.interrupts"),
		lsleep:       f("link.sleeps"),
		rintr:        f("rx.interrupts"),
		rsleep:       f("rx.sleeps"),
		tintr:        f("tx.interrupts"),
		txdw:         f("tx.txdw"),
		ixsm:         f("rx.ixsm"),
		ipcs:         f("rx.ipcs"),
		tcpcs:        f("rx.tcpcs"),
		rx_packets:   f("rx.packets"),
		rx_bytes:     f("rx.bytes"),
		rx_errors:    f("rx.errors"),
		rx_nobuf:     f("rx.nobuf"),
		rx_overrun:   f("rx.overrun"),
		replenish:    f("rx.replenish"),
		refill:       f("rx.refill"),
		tx_packets:   f("tx.packets"),
		tx_bytes:     f("tx.bytes"),
		tx_underrun:  f("tx.underrun"),
		phy_timeouts: f("link.phy_timeouts"),
	}
	for i := range m.speeds {
		m.speeds[i] = f("link.speed." + speed_names[i])
	}
	return m
}
