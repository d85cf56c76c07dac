// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticNames(t *testing.T) {
	for _, i := range []int{stat_good_octets_rx, stat_good_octets_tx, stat_total_octets_rx, stat_total_octets_tx} {
		assert.NotEmpty(t, statistic_names[i])
		assert.Empty(t, statistic_names[i+1])
	}
	assert.Equal(t, "missed packets", statistic_names[stat_missed_packets])
	assert.Equal(t, "good packets received", statistic_names[stat_good_packets_rx])
	assert.Equal(t, "good packets transmitted", statistic_names[stat_good_packets_tx])
	assert.Equal(t, "interrupt rx overrun", statistic_names[n_statistics-1])
}

func TestDump(t *testing.T) {
	r := newRig(t, id82566)
	r.configure(t)
	c := r.c

	r.sim.Stats[0] = 3
	r.sim.Stats[stat_good_packets_rx] = 5
	r.sim.Stats[stat_good_octets_rx] = 1500
	r.sim.Stats[stat_total_octets_tx] = 7
	r.sim.Stats[stat_total_octets_tx+1] = 1
	var w bytes.Buffer
	c.Dump(&w)
	s := w.String()
	assert.Contains(t, s, "crc errors: 3 3\n")
	assert.Contains(t, s, "good packets received: 5 5\n")
	assert.Contains(t, s, "good octets received: 1500 1500 (1.5 kB)\n")
	assert.Contains(t, s, "total octets transmitted: 4294967303 4294967303")
	assert.NotContains(t, s, "alignment errors")
	assert.Contains(t, s, "rdtr: 25\n")
	assert.Contains(t, s, "radv: 500\n")
	assert.Contains(t, s, "speeds: 10:0 100:0 1000:0 unknown:0\n")
	assert.Contains(t, s, "type: i82566\n")

	// Hardware counters clear on read; the dump shows totals and deltas.
	r.sim.Stats[stat_good_packets_rx] = 2
	w.Reset()
	c.Dump(&w)
	s = w.String()
	assert.Contains(t, s, "good packets received: 7 2\n")
	assert.Contains(t, s, "crc errors: 3 0\n")
}

func TestCounters(t *testing.T) {
	r := newRig(t, id82573)
	r.configure(t)
	c := r.c
	r.sim.Stats[stat_missed_packets] = 4
	c.rx.desc[0].write_back(64, 0, rx_desc_is_done|rx_desc_is_end_of_packet, 0)
	require.Equal(t, 1, c.rx_process(irq_rx_timer))

	m := c.Counters()
	assert.Equal(t, uint64(4), m["missed packets"])
	assert.Equal(t, uint64(1), m["rx.packets"])
	assert.Equal(t, uint64(64), m["rx.bytes"])
	assert.Equal(t, uint64(1), m["rx.ixsm"])
	_, ok := m["crc errors"]
	assert.False(t, ok)
}

func TestDumpRing(t *testing.T) {
	r := newRig(t, id82573)
	r.configure(t)
	var w bytes.Buffer
	require.NoError(t, r.c.DumpRing(&w, "rx"))
	lines := strings.Split(strings.TrimRight(w.String(), "\n"), "\n")
	assert.Len(t, lines, int(r.c.rx.len()))
	assert.True(t, strings.HasPrefix(lines[0], "  0: hw: buffer 0x"))
	w.Reset()
	require.NoError(t, r.c.DumpRing(&w, "tx"))
	assert.ErrorIs(t, r.c.DumpRing(&w, "both"), ErrBadArgument)
}
