// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"fmt"
	"strings"
	"sync"

	"github.com/platinasystems/igbe/elib/hw"
)

type BufferFlag uint32

const (
	// Hardware verified the IPv4 header checksum.
	IP4ChecksumOk BufferFlag = 1 << iota
	// Hardware verified the TCP or UDP checksum.
	L4ChecksumOk
	// Buffer.Checksum holds the hardware's raw packet checksum.
	PacketChecksum
)

var bufferFlagStrings = [...]string{
	"ip4-checksum-ok",
	"l4-checksum-ok",
	"packet-checksum",
}

func (f BufferFlag) String() string {
	var s []string
	for i, n := range bufferFlagStrings {
		if f&(1<<uint(i)) != 0 {
			s = append(s, n)
		}
	}
	return strings.Join(s, ",")
}

// A Buffer is a DMA capable packet buffer with independent read and write
// cursors.  It is owned by exactly one of a pool, a descriptor ring slot or
// the stack at any time.
type Buffer struct {
	data []byte
	phys uint64

	rp, wp int

	Flags BufferFlag
	// Raw checksum reported by hardware when PacketChecksum is set.
	Checksum uint16

	pool *BufferPool
	next *Buffer
}

// NewBuffer wraps DMA memory data at physical address phys.
func NewBuffer(data []byte, phys uint64) *Buffer {
	return &Buffer{data: data, phys: phys}
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer 0x%x rp %d wp %d flags %v", b.phys, b.rp, b.wp, b.Flags)
}

// Reset moves both cursors back to the base of the buffer.
func (b *Buffer) Reset() {
	b.rp, b.wp = 0, 0
	b.Flags = 0
	b.Checksum = 0
}

func (b *Buffer) ReadOffset() int  { return b.rp }
func (b *Buffer) WriteOffset() int { return b.wp }

// Len is the number of unread bytes.
func (b *Buffer) Len() int { return b.wp - b.rp }

// Cap is the total size of the buffer.
func (b *Buffer) Cap() int { return len(b.data) }

// Bytes returns the unread bytes.
func (b *Buffer) Bytes() []byte { return b.data[b.rp:b.wp] }

// Phys returns the physical address of the read cursor.
func (b *Buffer) Phys() uint64 { return b.phys + uint64(b.rp) }

// Extend advances the write cursor by n bytes the device has written.
func (b *Buffer) Extend(n int) {
	if b.wp+n > len(b.data) {
		n = len(b.data) - b.wp
	}
	b.wp += n
}

// Write appends p, truncating at the end of the buffer.
func (b *Buffer) Write(p []byte) (n int, err error) {
	n = copy(b.data[b.wp:], p)
	b.wp += n
	if n < len(p) {
		err = fmt.Errorf("buffer full: wrote %d of %d bytes", n, len(p))
	}
	return
}

// Advance consumes n bytes from the read cursor.
func (b *Buffer) Advance(n int) {
	if n > b.Len() {
		n = b.Len()
	}
	b.rp += n
}

// Free returns the buffer to the pool it came from.
func (b *Buffer) Free() {
	if b.pool != nil {
		b.pool.Put(b)
	}
}

// A BufferPool hands out fixed size buffers.  Get and Put are O(1) under a
// short lock; a pool may be shared by several controllers.
type BufferPool struct {
	Name string

	mu    sync.Mutex
	free  *Buffer
	nfree int
	n     int
}

func NewBufferPool(name string) *BufferPool { return &BufferPool{Name: name} }

func (p *BufferPool) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("%s: %d of %d free", p.Name, p.nfree, p.n)
}

// Grow allocates n buffers of size bytes from m.  It returns the number
// added, which is short of n only when m is exhausted.
func (p *BufferPool) Grow(m *hw.Dma, n int, size uint) (added int, err error) {
	for ; added < n; added++ {
		var (
			data []byte
			phys uint64
		)
		if data, phys, err = m.Alloc(size, 64); err != nil {
			return
		}
		b := NewBuffer(data, phys)
		b.pool = p
		p.mu.Lock()
		p.n++
		p.mu.Unlock()
		p.Put(b)
	}
	return
}

// Shrink removes up to n free buffers from the pool for good.
func (p *BufferPool) Shrink(n int) (removed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ; removed < n && p.free != nil; removed++ {
		b := p.free
		p.free = b.next
		b.next, b.pool = nil, nil
		p.nfree--
		p.n--
	}
	return
}

// Get returns a buffer with its cursors at base or nil when the pool is
// empty.
func (p *BufferPool) Get() (b *Buffer) {
	p.mu.Lock()
	if b = p.free; b != nil {
		p.free = b.next
		p.nfree--
	}
	p.mu.Unlock()
	if b != nil {
		b.next = nil
	}
	return
}

// Put resets b and returns it to the pool.
func (p *BufferPool) Put(b *Buffer) {
	b.Reset()
	p.mu.Lock()
	b.next = p.free
	p.free = b
	p.nfree++
	p.mu.Unlock()
}

// Len is the number of free buffers.
func (p *BufferPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nfree
}

// Cap is the number of buffers owned by the pool, free or not.
func (p *BufferPool) Cap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
