// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package igbed runs Intel gigabit controllers from user space, or a
// simulation of them, and reports their counters.
package igbed

import (
	"context"
	"fmt"
	"io"
	"math/bits"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/igbe/elib/hw"
	"github.com/platinasystems/igbe/elib/hw/pci"
	"github.com/platinasystems/igbe/vnet/devices/ethernet/igbe"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"golang.org/x/sync/errgroup"
)

const (
	// Simulated controllers are this device: 82572EI copper.
	sim_device_id = 0x10b9
	sim_dma_phys  = 0x40000000
)

// Probed by simulated controllers.
var sim_probe_ip = net.IPv4(192, 168, 0, 1)

type Command struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (*Command) String() string { return "igbed" }

func (*Command) Usage() string {
	return "igbed [-sim] [-v] [-config FILE] [-pci ADDR] [-listen ADDR] [-redis ADDR]"
}

// Close stops a running Main.
func (c *Command) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return nil
}

// interrupter calls f for each device interrupt until ctx is done.
type interrupter interface {
	Run(ctx context.Context, f func()) error
}

// port is one attached controller and what feeds it.
type port struct {
	c    *igbe.Controller
	s    *sink
	irq  interrupter
	sim  *igbe.Sim
	done func() error
}

func (c *Command) Main(args ...string) error {
	flag, args := flags.New(args, "-sim", "-v")
	parm, args := parms.New(args, "-config", "-pci", "-listen", "-redis")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}

	var (
		cfg *Config
		err error
	)
	if fn := parm.ByName["-config"]; fn != "" {
		cfg, err = LoadConfig(fn)
	} else {
		cfg, err = ParseConfig(nil)
	}
	if err != nil {
		return err
	}
	if s := parm.ByName["-pci"]; s != "" {
		for _, a := range strings.Split(s, ",") {
			cfg.Controllers = append(cfg.Controllers, ControllerConfig{Pci: a})
		}
	}
	if s := parm.ByName["-listen"]; s != "" {
		cfg.Listen = s
	}
	if s := parm.ByName["-redis"]; s != "" {
		cfg.Redis = s
	}
	sim := flag.ByName["-sim"]
	verbose := flag.ByName["-v"]
	if len(cfg.Controllers) == 0 {
		if !sim {
			return fmt.Errorf("no controllers; use -pci, -config or -sim")
		}
		cfg.Controllers = append(cfg.Controllers, ControllerConfig{})
	}
	if err = cfg.validate(); err != nil {
		return err
	}

	var dma *hw.Dma
	if sim {
		dma = hw.NewDma(make([]byte, cfg.DmaBytes), sim_dma_phys, cfg.DmaLog2Page)
	} else if dma, err = hw.NewHugeDma(uint(bits.Len(uint(cfg.DmaBytes - 1)))); err != nil {
		return err
	}
	defer dma.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	defer c.Close()

	g, ctx := errgroup.WithContext(ctx)
	reg := igbe.NewRegistry(dma)
	var ports []*port
	defer func() {
		cancel()
		if err := g.Wait(); err != nil {
			log.Print("err", err)
		}
		if err := reg.Close(); err != nil {
			log.Print("err", err)
		}
		for _, p := range ports {
			if p.done != nil {
				p.done()
			}
		}
	}()

	for i, cc := range cfg.Controllers {
		p, err := open(reg, dma, i, cc, sim, verbose)
		if err != nil {
			return err
		}
		ports = append(ports, p)
		g.Go(func() error { return p.irq.Run(ctx, p.c.Interrupt) })
		if err = p.c.Attach(ctx); err != nil {
			return err
		}
		if err = apply(p.c, cc); err != nil {
			return err
		}
		log.Print("info", p.c.Name, ": ", p.c.Chip(), " ", p.c.HardwareAddr(), " attached")
	}

	if cfg.Listen != "" {
		pr := newPrometheus(reg, cfg.Interval)
		g.Go(func() error { return serveMetrics(ctx, cfg.Listen, pr) })
	}
	if cfg.Redis != "" {
		pub := newPublisher(cfg.Redis, cfg.Hash)
		g.Go(func() error {
			return pub.run(ctx, cfg.Interval, func() map[string]map[string]uint64 {
				return counters(ports)
			})
		})
	}
	if sim {
		for _, p := range ports {
			g.Go(func() error { return probe(ctx, p, cfg.Interval) })
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var tick <-chan time.Time
	if verbose && isatty.IsTerminal(os.Stdout.Fd()) {
		t := time.NewTicker(cfg.Interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			dump(os.Stdout, reg)
		case sig := <-sigs:
			if sig == syscall.SIGUSR1 {
				dump(os.Stdout, reg)
				continue
			}
			log.Print("info", "igbed: ", sig)
			return nil
		}
	}
}

// open makes the i'th controller, simulated or behind a PCI device.
func open(reg *igbe.Registry, dma *hw.Dma, i int, cc ControllerConfig, sim, verbose bool) (p *port, err error) {
	p = &port{}
	id := uint16(sim_device_id)
	var regs hw.Window
	if sim {
		if p.sim, err = igbe.NewSim(id, dma); err != nil {
			return
		}
		p.sim.Loopback = true
		p.sim.SetStationAddress(net.HardwareAddr{2, 0, 0, 0, 0, byte(i + 1)})
		regs, p.irq = p.sim, p.sim
	} else {
		var (
			a pci.BusAddress
			d *pci.Device
			m hw.Mem
			u *pci.Uio
		)
		if a, err = pci.ParseBusAddress(cc.Pci); err != nil {
			return
		}
		if d, err = pci.Open(a); err != nil {
			return
		}
		if d.Vendor != pci.Intel {
			return nil, fmt.Errorf("%v: not an intel device", d)
		}
		if m, err = d.MapResource(0); err != nil {
			return
		}
		if err = d.EnableBusMaster(); err != nil {
			d.UnmapResource(0)
			return
		}
		if u, err = pci.OpenUio(d); err != nil {
			d.UnmapResource(0)
			return
		}
		id = uint16(d.Device)
		regs, p.irq = m, u
		p.done = func() error {
			u.Close()
			return d.UnmapResource(0)
		}
	}
	name := cc.Name
	if name == "" {
		name = fmt.Sprintf("igbe%d", i)
	}
	p.s = newSink(name, verbose)
	p.c, err = reg.New(igbe.Config{
		Name:            name,
		RxRingLen:       cc.RxRing,
		TxRingLen:       cc.TxRing,
		RxBuffers:       cc.RxBuffers,
		FlowControlLow:  cc.FlowControlLow,
		FlowControlHigh: cc.FlowControlHigh,
	}, id, regs, p.s)
	if err != nil && p.done != nil {
		p.done()
	}
	return
}

// apply sends the configured control messages.
func apply(c *igbe.Controller, cc ControllerConfig) error {
	for _, s := range cc.Ctl {
		if err := c.Ctl(s); err != nil {
			return err
		}
	}
	if cc.Promiscuous {
		c.SetPromiscuous(true)
	}
	for _, s := range cc.Multicast {
		a, err := net.ParseMAC(s)
		if err != nil {
			return err
		}
		if err = c.SetMulticast(a, true); err != nil {
			return err
		}
	}
	return nil
}

// probe sends an ARP request every interval; simulated controllers loop
// them back to their own receive ring.
func probe(ctx context.Context, p *port, interval time.Duration) error {
	b, err := arpProbe(p.c.HardwareAddr(), sim_probe_ip)
	if err != nil {
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if !p.s.Send(p.c.Pool(), b) {
			log.Print("warn", p.c.Name, ": probe dropped")
			continue
		}
		if err := p.c.Transmit(); err != nil {
			log.Print("warn", err)
		}
	}
}

// counters merges each controller's counters with those of its sink.
func counters(ports []*port) map[string]map[string]uint64 {
	m := make(map[string]map[string]uint64, len(ports))
	for _, p := range ports {
		cs := p.c.Counters()
		for k, v := range p.s.Counters() {
			cs[k] = v
		}
		m[p.c.Name] = cs
	}
	return m
}

func dump(w io.Writer, reg *igbe.Registry) {
	reg.Each(func(c *igbe.Controller) {
		fmt.Fprintf(w, "%s:\n", c.Name)
		c.Dump(w)
	})
}
