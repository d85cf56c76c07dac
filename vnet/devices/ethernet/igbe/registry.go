// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinasystems/igbe/elib/hw"
	"github.com/platinasystems/igbe/vnet"
)

// A Registry owns the DMA arena and receive buffer pools shared by a set of
// controllers.  Controllers whose chips use the same buffer size share a
// pool.
type Registry struct {
	mu          sync.Mutex
	dma         *hw.Dma
	pools       map[uint]*vnet.BufferPool
	controllers []*Controller
}

func NewRegistry(m *hw.Dma) *Registry {
	return &Registry{
		dma:   m,
		pools: make(map[uint]*vnet.BufferPool),
	}
}

// Pool returns the pool of size byte buffers, creating it if needed.
func (r *Registry) Pool(size uint) *vnet.BufferPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool(size)
}

func (r *Registry) pool(size uint) *vnet.BufferPool {
	p, ok := r.pools[size]
	if !ok {
		p = vnet.NewBufferPool(fmt.Sprintf("rx%d", size))
		r.pools[size] = p
	}
	return p
}

// New makes a controller for the device behind regs and adds it to the
// registry.  Unnamed controllers are named igbe0, igbe1 and so on.
func (r *Registry) New(cfg Config, deviceID uint16, regs hw.Window, up vnet.Upstream) (*Controller, error) {
	ch, err := chip_for(deviceID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("igbe%d", len(r.controllers))
	}
	c, err := New(cfg, deviceID, regs, r.dma, r.pool(ch.buffer_bytes()), up)
	if err != nil {
		return nil, err
	}
	r.controllers = append(r.controllers, c)
	return c, nil
}

// Each calls f for every controller in the order they were added.
func (r *Registry) Each(f func(*Controller)) {
	r.mu.Lock()
	cs := append([]*Controller(nil), r.controllers...)
	r.mu.Unlock()
	for _, c := range cs {
		f(c)
	}
}

// Close closes every controller.
func (r *Registry) Close() error {
	var errs []error
	r.Each(func(c *Controller) {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	})
	r.mu.Lock()
	r.controllers = nil
	r.mu.Unlock()
	return errors.Join(errs...)
}
