// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbed

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// min_frame is the ethernet minimum less the FCS the hardware appends.
const min_frame = 60

// arpProbe builds an ARP request from src asking who has ip, padded to
// the minimum frame size.
func arpProbe(src net.HardwareAddr, ip net.IP) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       src,
		DstMAC:       layers.EthernetBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte(src),
		SourceProtAddress: []byte{0, 0, 0, 0},
		DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
		DstProtAddress:    []byte(ip.To4()),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	if err := gopacket.SerializeLayers(buf, opts, eth, arp); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	if len(b) < min_frame {
		b = append(b, make([]byte, min_frame-len(b))...)
	}
	return b, nil
}
