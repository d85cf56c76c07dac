// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package igbed

import (
	"context"
	"sort"
	"time"

	redigo "github.com/garyburd/redigo/redis"
	"github.com/jpillora/backoff"
	"github.com/platinasystems/log"
)

// publisher writes counters to one redis hash per controller, redialing
// with backoff when the server goes away.
type publisher struct {
	addr   string
	prefix string
	dial   func(network, addr string) (redigo.Conn, error)

	conn redigo.Conn
	b    *backoff.Backoff
	next time.Time
}

func newPublisher(addr, prefix string) *publisher {
	return &publisher{
		addr:   addr,
		prefix: prefix,
		dial: func(network, addr string) (redigo.Conn, error) {
			return redigo.Dial(network, addr,
				redigo.DialConnectTimeout(time.Second),
				redigo.DialWriteTimeout(time.Second),
				redigo.DialReadTimeout(time.Second))
		},
		b: &backoff.Backoff{
			Min:    1 * time.Second,
			Max:    60 * time.Second,
			Factor: 2,
			Jitter: false,
		},
	}
}

func (p *publisher) connect(now time.Time) bool {
	if p.conn != nil {
		return true
	}
	if now.Before(p.next) {
		return false
	}
	c, err := p.dial("tcp", p.addr)
	if err != nil {
		d := p.b.Duration()
		p.next = now.Add(d)
		log.Print("warn", "redis ", p.addr, ": ", err, ", retry in ", d)
		return false
	}
	p.b.Reset()
	p.conn = c
	return true
}

// Publish sets every counter of name in hash prefix.name.  Counters are
// sent in one HSET, keys sorted.
func (p *publisher) Publish(now time.Time, name string, counters map[string]uint64) error {
	if !p.connect(now) {
		return nil
	}
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := redigo.Args{}.Add(p.prefix + "." + name)
	for _, k := range keys {
		args = args.Add(k, counters[k])
	}
	if len(args) == 1 {
		return nil
	}
	if _, err := p.conn.Do("HSET", args...); err != nil {
		p.conn.Close()
		p.conn = nil
		p.next = now.Add(p.b.Duration())
		return err
	}
	return nil
}

func (p *publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

// run publishes what get returns every interval until ctx is done.
func (p *publisher) run(ctx context.Context, interval time.Duration, get func() map[string]map[string]uint64) error {
	defer p.Close()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			for name, m := range get() {
				if err := p.Publish(now, name, m); err != nil {
					log.Print("warn", "redis ", p.addr, ": ", name, ": ", err)
				}
			}
		}
	}
}
