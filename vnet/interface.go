// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vnet

import (
	"sync"
)

// Upstream is the network stack above an interface driver.
type Upstream interface {
	// Inbound takes ownership of a received buffer.
	Inbound(b *Buffer)
	// Outbound returns the next buffer to send or nil.
	Outbound() *Buffer
	// LinkChanged reports link state; mbps is 0 when unknown.
	LinkChanged(up bool, mbps int)
}

// Queue is a FIFO of buffers waiting to be transmitted.
type Queue struct {
	mu         sync.Mutex
	head, tail *Buffer
	n          int
	// Maximum length; 0 means unbounded.
	Limit int
	Drops uint64
}

// Put appends b; a full queue frees b and counts a drop.
func (q *Queue) Put(b *Buffer) bool {
	q.mu.Lock()
	if q.Limit > 0 && q.n >= q.Limit {
		q.Drops++
		q.mu.Unlock()
		b.Free()
		return false
	}
	b.next = nil
	if q.tail == nil {
		q.head = b
	} else {
		q.tail.next = b
	}
	q.tail = b
	q.n++
	q.mu.Unlock()
	return true
}

// Get removes the oldest buffer or returns nil.
func (q *Queue) Get() (b *Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if b = q.head; b == nil {
		return
	}
	q.head = b.next
	if q.head == nil {
		q.tail = nil
	}
	b.next = nil
	q.n--
	return
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}
