// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/platinasystems/igbe/elib/hw"
	"github.com/platinasystems/igbe/vnet"
	"github.com/platinasystems/log"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"
)

var (
	ErrHardwareTimeout = errors.New("hardware timeout")
	ErrEepromChecksum  = errors.New("bad eeprom checksum")
	ErrBadArgument     = errors.New("bad argument")
	ErrFaulted         = errors.New("controller faulted")
	ErrNotRunning      = errors.New("controller not running")
)

const (
	default_rx_ring_len = 256
	default_tx_ring_len = 128
	default_rx_buffers  = 512
)

type Config struct {
	Name string

	// Descriptor ring sizes; powers of 2.
	RxRingLen, TxRingLen uint
	// Buffers contributed to the shared pool at attach.
	RxBuffers int

	// Receive flow control watermarks (fcrtl, fcrth).
	FlowControlLow, FlowControlHigh uint32

	// Pause between register polls; nil sleeps.
	Delay hw.Delay

	// Soft counters are registered here; nil makes a private registry.
	Registry metrics.Registry
}

func (c *Config) defaults() {
	if c.RxRingLen == 0 {
		c.RxRingLen = default_rx_ring_len
	}
	if c.TxRingLen == 0 {
		c.TxRingLen = default_tx_ring_len
	}
	if c.RxBuffers == 0 {
		c.RxBuffers = default_rx_buffers
	}
	if c.Registry == nil {
		c.Registry = metrics.NewRegistry()
	}
}

type State int32

const (
	PoweredUnknown State = iota
	Resetting
	EepromLoading
	Configured
	Running
	Faulted
)

var stateStrings = [...]string{
	PoweredUnknown: "powered-unknown",
	Resetting:      "resetting",
	EepromLoading:  "eeprom-loading",
	Configured:     "configured",
	Running:        "running",
	Faulted:        "faulted",
}

func (s State) String() string {
	if int(s) < len(stateStrings) {
		return stateStrings[s]
	}
	return fmt.Sprintf("state %d", int(s))
}

// Controller is one adapter: its registers, both rings, a handle on the
// shared buffer pool and the three workers that service interrupts.
type Controller struct {
	Config

	chip *chip
	regs hw.Window
	dma  *hw.Dma
	pool *vnet.BufferPool
	up   vnet.Upstream

	state atomic.Int32

	// Serializes Reset, Attach and Shutdown.
	alock sync.Mutex

	eeprom [n_eeprom_words]uint16
	addr   net.HardwareAddr
	// Packet buffer allocation after reset.
	pba atomic.Uint32

	// Soft copy of ims.
	imlock sync.Mutex
	im     uint32

	// Causes recorded by the dispatcher for the link and rx workers.
	lim, rim atomic.Uint32

	lwake, rwake, twake chan struct{}

	// Held by the rx worker across a batch.
	rlock sync.Mutex
	rx    rx_ring

	// Held across tx reclaim and refill.
	tlock sync.Mutex
	tx    tx_ring

	mlock sync.Mutex
	mta   [n_mta]uint32

	rdtr_value, radv_value atomic.Uint32

	// Diagnostic path only.
	slock      sync.Mutex
	stats      [n_statistics]uint64
	stats_last [n_statistics]uint64

	link_up   atomic.Bool
	link_mbps atomic.Int32

	m *counters

	// Buffers this controller added to pool.
	n_rx_buffers int

	cancel context.CancelFunc
	g      *errgroup.Group
}

// New binds a controller to the register window of a device with the
// given PCI device id.  Rings and buffers come from m and pool, which may be
// shared with other controllers.
func New(cfg Config, deviceID uint16, regs hw.Window, m *hw.Dma, pool *vnet.BufferPool, up vnet.Upstream) (c *Controller, err error) {
	cfg.defaults()
	ch, err := chip_for(deviceID)
	if err != nil {
		return
	}
	if cfg.Name == "" {
		cfg.Name = ch.name
	}
	c = &Controller{
		Config: cfg,
		chip:   ch,
		regs:   regs,
		dma:    m,
		pool:   pool,
		up:     up,
		lwake:  make(chan struct{}, 1),
		rwake:  make(chan struct{}, 1),
		twake:  make(chan struct{}, 1),
	}
	c.m = new_counters(cfg.Registry)
	return
}

func (c *Controller) String() string { return c.Name }

func (c *Controller) State() State      { return State(c.state.Load()) }
func (c *Controller) set_state(s State) { c.state.Store(int32(s)) }

// Chip is the controller family name.
func (c *Controller) Chip() string { return c.chip.name }

// HardwareAddr is the station address read from EEPROM.
func (c *Controller) HardwareAddr() net.HardwareAddr {
	c.alock.Lock()
	defer c.alock.Unlock()
	return c.addr
}

// MaxFrame is the largest frame the receive buffers hold.
func (c *Controller) MaxFrame() int { return int(c.chip.rx_buffer_bytes) }

// Pool is the receive buffer pool, which also serves transmit.
func (c *Controller) Pool() *vnet.BufferPool { return c.pool }

// Link returns the last link state reported by the PHY.
func (c *Controller) Link() (up bool, mbps int) {
	return c.link_up.Load(), int(c.link_mbps.Load())
}

// Metrics holds the controller's soft counters.
func (c *Controller) Metrics() metrics.Registry { return c.Registry }

func (c *Controller) delay(d time.Duration) { c.Delay.Sleep(d) }

// Attach resets the controller if needed, sets up both rings and starts
// the workers.  A second Attach is a no-op.
func (c *Controller) Attach(ctx context.Context) (err error) {
	c.alock.Lock()
	defer c.alock.Unlock()
	switch c.State() {
	case Running:
		return nil
	case Faulted:
		return fmt.Errorf("%s: attach: %w", c.Name, ErrFaulted)
	case Configured:
	default:
		if err = c.reset(); err != nil {
			return
		}
	}
	if err = c.configure(); err != nil {
		return
	}
	c.start(ctx)
	c.set_state(Running)
	log.Print("info", c.Name, ": running, ", c.addr, ", ", c.chip.name)
	return
}

// configure allocates rings and receive buffers and programs both
// engines.
func (c *Controller) configure() (err error) {
	if err = c.rx.alloc(c.dma, c.RxRingLen); err != nil {
		return fmt.Errorf("%s: rx ring: %w", c.Name, err)
	}
	if err = c.tx.alloc(c.dma, c.TxRingLen); err != nil {
		return fmt.Errorf("%s: tx ring: %w", c.Name, err)
	}
	if c.n_rx_buffers == 0 {
		var n int
		n, err = c.pool.Grow(c.dma, c.RxBuffers, c.chip.buffer_bytes())
		c.n_rx_buffers = n
		if n == 0 {
			return fmt.Errorf("%s: rx buffers: %w", c.Name, err)
		}
		if err != nil {
			log.Print("warn", c.Name, ": ", n, " of ", c.RxBuffers, " rx buffers: ", err)
			err = nil
		}
	}
	c.rxinit()
	rctl.or(c, rctl_enable)
	c.txinit()
	return
}

func (c *Controller) start(ctx context.Context) {
	if c.cancel != nil {
		// Workers from an earlier attach are still parked and reset
		// cleared the mask they armed.
		c.enable(rx_irqs)
		c.lim.Or(link_irqs)
		wake(c.lwake)
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.g, ctx = errgroup.WithContext(ctx)
	c.g.Go(func() error { return c.link_worker(ctx) })
	c.g.Go(func() error { return c.rx_worker(ctx) })
	c.g.Go(func() error { return c.tx_worker(ctx) })
}

// Transmit sends whatever the upstream queue holds.
func (c *Controller) Transmit() error {
	switch s := c.State(); s {
	case Running:
	case Faulted:
		return fmt.Errorf("%s: transmit: %w", c.Name, ErrFaulted)
	default:
		return fmt.Errorf("%s: transmit: %w", c.Name, ErrNotRunning)
	}
	c.transmit()
	return nil
}

// Shutdown resets the hardware, which halts DMA.  Workers stay parked.
func (c *Controller) Shutdown() (err error) {
	c.alock.Lock()
	defer c.alock.Unlock()
	if c.State() == Faulted {
		return nil
	}
	if err = c.detach(); err != nil {
		c.set_state(Faulted)
		return
	}
	c.set_state(PoweredUnknown)
	return
}

// Close shuts down the hardware, stops the workers and returns receive
// buffers to the pool.
func (c *Controller) Close() error {
	err := c.Shutdown()
	if c.cancel != nil {
		c.cancel()
		c.g.Wait()
		c.cancel = nil
	}
	c.rx.release()
	c.tlock.Lock()
	c.tx.release()
	c.tlock.Unlock()
	c.pool.Shrink(c.n_rx_buffers)
	c.n_rx_buffers = 0
	return err
}

// wake is the dispatcher's only way to reach a worker.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// wait parks until the dispatcher has recorded a cause.
func (c *Controller) wait(ctx context.Context, ch chan struct{}, cause *atomic.Uint32) (v uint32, ok bool) {
	for {
		if cause == nil {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				return 0, true
			}
		}
		if v = cause.Swap(0); v != 0 {
			return v, true
		}
		select {
		case <-ctx.Done():
			return
		case <-ch:
		}
	}
}
