// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbed

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/platinasystems/igbe/elib/hw/pci"
	"gopkg.in/yaml.v3"
)

const (
	default_interval      = 5 * time.Second
	default_hash          = "igbe"
	default_dma_log2_page = 21
	default_dma_bytes     = 64 << 20
)

// Config is the daemon's YAML configuration file.
//
//	controllers:
//	  - pci: 0000:03:00.0
//	    name: eth1
//	    ctl: [rdtr 0, radv 64]
//	listen: 127.0.0.1:9101
//	redis: 127.0.0.1:6379
type Config struct {
	Controllers []ControllerConfig `yaml:"controllers"`

	// Prometheus listen address; empty disables /metrics.
	Listen string `yaml:"listen"`
	// Redis server counters are published to; empty disables.
	Redis string `yaml:"redis"`
	// Redis hash prefix, one hash per controller.
	Hash string `yaml:"hash"`
	// Period of counter publishing and terminal dumps.
	Interval time.Duration `yaml:"interval"`

	// log2 of the DMA arena page size: 21 for 2M hugepages.
	DmaLog2Page uint `yaml:"dma_log2_page"`
	// Size of the simulated arena.
	DmaBytes int `yaml:"dma_bytes"`
}

type ControllerConfig struct {
	Pci  string `yaml:"pci"`
	Name string `yaml:"name"`

	RxRing    uint `yaml:"rx_ring"`
	TxRing    uint `yaml:"tx_ring"`
	RxBuffers int  `yaml:"rx_buffers"`

	FlowControlLow  uint32 `yaml:"flow_control_low"`
	FlowControlHigh uint32 `yaml:"flow_control_high"`

	// Control messages applied after attach, e.g. "rdtr 0".
	Ctl         []string `yaml:"ctl"`
	Promiscuous bool     `yaml:"promiscuous"`
	Multicast   []string `yaml:"multicast"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(fn string) (*Config, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return cfg, nil
}

func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) defaults() {
	if cfg.Hash == "" {
		cfg.Hash = default_hash
	}
	if cfg.Interval == 0 {
		cfg.Interval = default_interval
	}
	if cfg.DmaLog2Page == 0 {
		cfg.DmaLog2Page = default_dma_log2_page
	}
	if cfg.DmaBytes == 0 {
		cfg.DmaBytes = default_dma_bytes
	}
}

func power_of_2(n uint) bool { return n&(n-1) == 0 }

func (cfg *Config) validate() error {
	names := make(map[string]bool)
	for i, cc := range cfg.Controllers {
		if cc.Pci != "" {
			if _, err := pci.ParseBusAddress(cc.Pci); err != nil {
				return fmt.Errorf("controllers[%d]: %w", i, err)
			}
		}
		if !power_of_2(cc.RxRing) || !power_of_2(cc.TxRing) {
			return fmt.Errorf("controllers[%d]: ring sizes must be powers of 2", i)
		}
		if cc.RxRing == 1 || cc.TxRing == 1 {
			return fmt.Errorf("controllers[%d]: ring too small", i)
		}
		for _, s := range cc.Multicast {
			a, err := net.ParseMAC(s)
			if err != nil {
				return fmt.Errorf("controllers[%d]: %w", i, err)
			}
			if len(a) != 6 || a[0]&1 == 0 {
				return fmt.Errorf("controllers[%d]: %s: not an ethernet multicast address", i, s)
			}
		}
		if cc.Name != "" {
			if names[cc.Name] {
				return fmt.Errorf("controllers[%d]: %s: duplicate name", i, cc.Name)
			}
			names[cc.Name] = true
		}
	}
	if cfg.Interval < 0 {
		return fmt.Errorf("interval: %v: negative", cfg.Interval)
	}
	if cfg.DmaLog2Page < 12 || cfg.DmaLog2Page > 30 {
		return fmt.Errorf("dma_log2_page: %d: out of range", cfg.DmaLog2Page)
	}
	return nil
}
