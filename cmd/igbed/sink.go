// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbed

import (
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/platinasystems/igbe/vnet"
	"github.com/platinasystems/log"
)

const default_tx_queue = 1024

// sink is the daemon's stand in for a network stack.  Received frames are
// decoded, optionally logged and freed; frames to send wait on a queue.
type sink struct {
	name    string
	verbose bool

	tx vnet.Queue

	rx_frames atomic.Uint64
	rx_bytes  atomic.Uint64
	// Frames gopacket could not decode as ethernet.
	rx_undecoded atomic.Uint64

	link_up   atomic.Bool
	link_mbps atomic.Int32
}

func newSink(name string, verbose bool) *sink {
	s := &sink{name: name, verbose: verbose}
	s.tx.Limit = default_tx_queue
	return s
}

var decodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}

func (s *sink) Inbound(b *vnet.Buffer) {
	defer b.Free()
	s.rx_frames.Add(1)
	s.rx_bytes.Add(uint64(b.Len()))
	p := gopacket.NewPacket(b.Bytes(), layers.LayerTypeEthernet, decodeOptions)
	if l := p.ErrorLayer(); l != nil {
		s.rx_undecoded.Add(1)
		if s.verbose {
			log.Print("debug", s.name, ": undecoded frame: ", l.Error())
		}
		return
	}
	if s.verbose {
		log.Print("debug", s.name, ": rx ", summary(p), ", ", b.Flags)
	}
}

// summary names the layers of p and the addresses of the outermost
// ethernet and network layers.
func summary(p gopacket.Packet) (s string) {
	if e, ok := p.LinkLayer().(*layers.Ethernet); ok {
		s = e.SrcMAC.String() + " > " + e.DstMAC.String() + " " + e.EthernetType.String()
	}
	if n := p.NetworkLayer(); n != nil {
		f := n.NetworkFlow()
		s += " " + f.Src().String() + " > " + f.Dst().String()
	}
	if t := p.TransportLayer(); t != nil {
		s += " " + t.LayerType().String()
	}
	return
}

func (s *sink) Outbound() *vnet.Buffer { return s.tx.Get() }

func (s *sink) LinkChanged(up bool, mbps int) {
	s.link_up.Store(up)
	s.link_mbps.Store(int32(mbps))
}

// Send queues frame p in a buffer from pool; it reports false when the
// pool is empty or the queue is full.
func (s *sink) Send(pool *vnet.BufferPool, p []byte) bool {
	b := pool.Get()
	if b == nil {
		return false
	}
	if _, err := b.Write(p); err != nil {
		b.Free()
		return false
	}
	return s.tx.Put(b)
}

// Counters returns the sink's counters for publishing.
func (s *sink) Counters() map[string]uint64 {
	m := map[string]uint64{
		"sink.rx.frames":    s.rx_frames.Load(),
		"sink.rx.bytes":     s.rx_bytes.Load(),
		"sink.rx.undecoded": s.rx_undecoded.Load(),
		"sink.tx.queued":    uint64(s.tx.Len()),
		"sink.link.mbps":    uint64(s.link_mbps.Load()),
	}
	if s.link_up.Load() {
		m["sink.link.up"] = 1
	} else {
		m["sink.link.up"] = 0
	}
	return m
}
