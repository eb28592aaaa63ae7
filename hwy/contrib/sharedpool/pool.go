// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package sharedpool provides a goroutine-safe free list of reusable scratch
// objects. A pool is seeded with a prototype; Retrieve hands out a recycled
// object when one is available and a deep copy of the seed otherwise, and
// Recycle returns an object to the pool for later reuse.
//
// Entries live in an arena of fixed-size chunks and are addressed by index
// handles. Every slot is linked into exactly one of two lists: the recycled
// list (slot holds an object waiting for reuse) or the free list (slot is
// empty). Both lists are protected by a single spin lock whose critical
// sections are a few handle updates.
//
// SetSeed, ClearRecycled, Reset, Clone and the FirstRecycled/NextRecycled
// enumeration do not take the lock. Callers must make sure no other goroutine
// uses the pool while they run.
//
// Usage:
//
//	var pool sharedpool.Pool
//	pool.SetSeed(&sharedpool.RealVector{Data: make([]float64, n)})
//
//	buf := sharedpool.RetrieveAs[*sharedpool.RealVector](&pool)
//	use(buf.Data)
//	pool.Recycle(buf)
package sharedpool

import (
	"github.com/gncnum/linalg/hwy/contrib/spinlock"
	"github.com/grailbio/base/must"
)

// chunkSize is the number of entry slots allocated at once.
const chunkSize = 64

// handle addresses an arena slot; 0 is the nil handle and slot i has handle i+1.
type handle int32

type entry struct {
	obj  Object
	next handle
}

type chunk [chunkSize]entry

// Pool is a shared object pool. The zero value is an empty, unseeded pool.
// A Pool must not be copied after first use; use Clone instead.
type Pool struct {
	lock spinlock.Lock

	seed      Object
	chunks    []*chunk
	recycled  handle
	free      handle
	nRecycled int

	// cursor is the enumeration position of FirstRecycled/NextRecycled.
	cursor handle
}

func (p *Pool) at(h handle) *entry {
	i := int(h) - 1
	return &p.chunks[i/chunkSize][i%chunkSize]
}

// IsSeeded reports whether SetSeed has been called since the pool was
// created or last Reset.
func (p *Pool) IsSeeded() bool {
	return p.seed != nil
}

// SetSeed stores a deep copy of obj as the prototype for new objects and
// discards all recycled objects. It is not goroutine-safe.
func (p *Pool) SetSeed(obj Object) {
	must.True(obj != nil, "sharedpool: nil seed")
	p.seed = Copy(obj)
	p.clearRecycled()
}

// Retrieve returns an object from the pool. It is goroutine-safe.
// The caller owns the object until it passes it to Recycle.
func (p *Pool) Retrieve() Object {
	must.True(p.seed != nil, "sharedpool: retrieve from an unseeded pool")

	p.lock.Acquire()
	if h := p.recycled; h != 0 {
		e := p.at(h)
		obj := e.obj
		p.recycled = e.next
		e.obj = nil
		e.next = p.free
		p.free = h
		p.nRecycled--
		p.lock.Release()
		return obj
	}
	p.lock.Release()

	// The seed is read-only once the pool is in concurrent use.
	return Copy(p.seed)
}

// RetrieveAs is Retrieve followed by a checked conversion to the pooled kind T.
func RetrieveAs[T Object](p *Pool) T {
	obj, ok := p.Retrieve().(T)
	must.True(ok, "sharedpool: pooled object has unexpected kind")
	return obj
}

// Recycle returns obj to the pool. It is goroutine-safe. Ownership passes to
// the pool: the caller must not use obj afterwards.
func (p *Pool) Recycle(obj Object) {
	must.True(obj != nil, "sharedpool: recycling a nil object")
	must.True(p.seed != nil, "sharedpool: recycle into an unseeded pool")
	must.True(obj != p.seed, "sharedpool: recycling the seed object")

	p.lock.Acquire()
	for p.free == 0 {
		// Allocate outside the lock so a slow or failing allocation never
		// holds up other goroutines.
		p.lock.Release()
		c := new(chunk)
		p.lock.Acquire()
		p.linkChunk(c)
	}
	h := p.free
	e := p.at(h)
	p.free = e.next
	e.obj = obj
	e.next = p.recycled
	p.recycled = h
	p.nRecycled++
	p.lock.Release()
}

// linkChunk adds c to the arena and pushes its slots onto the free list.
// Must be called with the lock held or from single-goroutine code.
func (p *Pool) linkChunk(c *chunk) {
	base := len(p.chunks) * chunkSize
	p.chunks = append(p.chunks, c)
	for i := chunkSize - 1; i >= 0; i-- {
		c[i].next = p.free
		p.free = handle(base + i + 1)
	}
}

// push links obj into the recycled list without locking.
func (p *Pool) push(obj Object) {
	if p.free == 0 {
		p.linkChunk(new(chunk))
	}
	h := p.free
	e := p.at(h)
	p.free = e.next
	e.obj = obj
	e.next = p.recycled
	p.recycled = h
	p.nRecycled++
}

// RecycledLen returns the number of objects waiting in the recycled list.
// It is goroutine-safe.
func (p *Pool) RecycledLen() int {
	p.lock.Acquire()
	n := p.nRecycled
	p.lock.Release()
	return n
}

// FirstRecycled starts an enumeration of the recycled objects and returns
// the first one, or nil if there is none or the pool is unseeded. Objects
// stay in the pool. It is not goroutine-safe.
func (p *Pool) FirstRecycled() Object {
	if p.seed == nil {
		p.cursor = 0
		return nil
	}
	p.cursor = p.recycled
	return p.advance()
}

// NextRecycled returns the next recycled object of the enumeration, or nil
// at the end of the list. It is not goroutine-safe.
func (p *Pool) NextRecycled() Object {
	if p.seed == nil {
		return nil
	}
	return p.advance()
}

func (p *Pool) advance() Object {
	if p.cursor == 0 {
		return nil
	}
	e := p.at(p.cursor)
	p.cursor = e.next
	return e.obj
}

// ClearRecycled discards all recycled objects. It is not goroutine-safe.
func (p *Pool) ClearRecycled() {
	p.clearRecycled()
}

func (p *Pool) clearRecycled() {
	for h := p.recycled; h != 0; {
		e := p.at(h)
		next := e.next
		e.obj = nil
		e.next = p.free
		p.free = h
		h = next
	}
	p.recycled = 0
	p.nRecycled = 0
	p.cursor = 0
}

// Reset discards the recycled objects and the seed; the pool becomes
// unseeded. It is not goroutine-safe.
func (p *Pool) Reset() {
	p.clearRecycled()
	p.seed = nil
}

// Clone returns a deep copy of the pool: the seed and every recycled object
// are copied, in the same order. The copy has a fresh arena and no
// enumeration in progress. It is not goroutine-safe.
func (p *Pool) Clone() *Pool {
	c := new(Pool)
	c.seed = Copy(p.seed)

	var objs []Object
	for h := p.recycled; h != 0; h = p.at(h).next {
		objs = append(objs, p.at(h).obj)
	}
	// push prepends, so walk backwards to keep the order.
	for i := len(objs) - 1; i >= 0; i-- {
		c.push(Copy(objs[i]))
	}
	return c
}
