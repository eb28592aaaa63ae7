// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides a persistent worker pool for the parallel
// phases of the sparse factorization and the kernel benchmarks.
//
// A Pool is created once and reused for every level of an elimination tree,
// so each level costs one round of channel sends rather than a fresh set of
// goroutines. Supernodes on a level are independent and vary widely in cost,
// which is what the atomic work-stealing loops are for.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	for _, level := range levels {
//	    err := pool.ParallelForErr(ctx, len(level), func(i int) error {
//	        return factorSupernode(level[i])
//	    })
//	    if err != nil {
//	        return err
//	    }
//	}
package workerpool

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of worker goroutines that execute parallel loops.
// Loops issued from one goroutine run one at a time; a Pool may be shared by
// several goroutines, whose loops then interleave on the same workers.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New starts a pool with numWorkers goroutines, or GOMAXPROCS of them when
// numWorkers <= 0. The workers live until Close.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers once pending work completes. It is safe to call
// more than once; loops issued after Close run on the calling goroutine.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// workersFor returns how many workers a loop over n items should use, or 1
// when it should run inline.
func (p *Pool) workersFor(n int) int {
	if p.closed.Load() {
		return 1
	}
	return min(p.numWorkers, n)
}

// run hands body to the given number of workers and waits for all of them.
func (p *Pool) run(workers int, body func()) {
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		p.workC <- workItem{fn: body, barrier: &wg}
	}
	wg.Wait()
}

// ParallelFor splits [0, n) into one contiguous range per worker and calls
// fn(start, end) for each. It blocks until every range is done.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := p.workersFor(n)
	if workers == 1 {
		fn(0, n)
		return
	}

	chunkSize := (n + workers - 1) / workers
	var next atomic.Int32
	p.run(workers, func() {
		start := int(next.Add(1)-1) * chunkSize
		if start >= n {
			return
		}
		fn(start, min(start+chunkSize, n))
	})
}

// ParallelForAtomic calls fn(i) for every i in [0, n), with workers claiming
// indices one at a time. It blocks until all calls return.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	p.ParallelForAtomicBatched(n, 1, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}

// ParallelForAtomicBatched is ParallelForAtomic with workers claiming
// batchSize indices per step; fn receives each claimed range [start, end).
func (p *Pool) ParallelForAtomicBatched(n int, batchSize int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	batchSize = max(batchSize, 1)
	numBatches := (n + batchSize - 1) / batchSize
	workers := p.workersFor(numBatches)
	if workers == 1 {
		fn(0, n)
		return
	}

	var nextBatch atomic.Int32
	p.run(workers, func() {
		for {
			start := int(nextBatch.Add(1)-1) * batchSize
			if start >= n {
				return
			}
			fn(start, min(start+batchSize, n))
		}
	})
}

// ParallelForErr calls fn(i) for i in [0, n) like ParallelForAtomic, but stops
// handing out indices once fn fails or ctx is done. Calls already running
// finish. It returns the first error from fn, or ctx.Err() when the context
// ended the loop early.
func (p *Pool) ParallelForErr(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}

	var (
		nextIdx  atomic.Int32
		failed   atomic.Bool
		errOnce  sync.Once
		firstErr error
	)
	body := func() {
		for !failed.Load() {
			idx := int(nextIdx.Add(1)) - 1
			if idx >= n {
				return
			}
			err := ctx.Err()
			if err == nil {
				err = fn(idx)
			}
			if err != nil {
				errOnce.Do(func() { firstErr = err })
				failed.Store(true)
			}
		}
	}

	if workers := p.workersFor(n); workers == 1 {
		body()
	} else {
		p.run(workers, body)
	}
	return firstErr
}
