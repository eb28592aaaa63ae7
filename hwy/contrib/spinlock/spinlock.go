// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package spinlock provides a minimal mutual-exclusion lock for critical
// sections that last a handful of pointer updates.
//
// Acquire never parks the goroutine on the common path: it retries an atomic
// compare-and-swap, busy-waits for a bounded number of iterations between
// attempts and, after too many failed rounds, yields the processor with
// runtime.Gosched. There is no timeout. A lock that is never released blocks
// its competitors forever, so holders must keep critical sections short.
//
// Usage:
//
//	l := spinlock.New()
//	l.Acquire()
//	head = node.next
//	l.Release()
package spinlock

import (
	"runtime"
	"sync/atomic"

	"github.com/grailbio/base/must"
)

const (
	free int32 = 0
	held int32 = 1
)

// Config controls the backoff of a Lock.
type Config struct {
	// SpinCount is the number of busy-wait iterations between two
	// compare-and-swap attempts.
	SpinCount int
	// YieldAfter is the number of failed spin rounds after which the
	// goroutine yields its time slice.
	YieldAfter int
}

// DefaultConfig is used by New when no Config is supplied.
var DefaultConfig = Config{SpinCount: 64, YieldAfter: 16}

// Lock is a spin lock. The zero value is an unlocked lock using DefaultConfig.
type Lock struct {
	state atomic.Int32
	cfg   Config
}

// New returns a lock in the free state. At most one Config may be given.
func New(cfg ...Config) *Lock {
	must.True(len(cfg) <= 1, "spinlock: at most one Config")
	l := &Lock{cfg: DefaultConfig}
	if len(cfg) == 1 {
		l.cfg = cfg[0]
	}
	if l.cfg.SpinCount <= 0 {
		l.cfg.SpinCount = DefaultConfig.SpinCount
	}
	if l.cfg.YieldAfter <= 0 {
		l.cfg.YieldAfter = DefaultConfig.YieldAfter
	}
	return l
}

// Acquire blocks until the calling goroutine exclusively holds the lock.
func (l *Lock) Acquire() {
	spinCount, yieldAfter := l.cfg.SpinCount, l.cfg.YieldAfter
	if spinCount <= 0 {
		spinCount = DefaultConfig.SpinCount
	}
	if yieldAfter <= 0 {
		yieldAfter = DefaultConfig.YieldAfter
	}

	rounds := 0
	for {
		if l.state.CompareAndSwap(free, held) {
			return
		}
		l.spin(spinCount)
		rounds++
		if rounds >= yieldAfter {
			runtime.Gosched()
			rounds = 0
		}
	}
}

// spin busy-waits for up to n iterations, returning early once the lock
// looks free. The atomic load keeps the loop from being optimized away.
func (l *Lock) spin(n int) {
	for range n {
		if l.state.Load() == free {
			return
		}
	}
}

// TryAcquire makes a single attempt to take the lock.
func (l *Lock) TryAcquire() bool {
	return l.state.CompareAndSwap(free, held)
}

// Release makes the lock available to other goroutines. It must be called
// by the current holder; releasing a free lock is a programming error.
func (l *Lock) Release() {
	must.True(l.state.Swap(free) == held, "spinlock: release of a lock that is not held")
}

// Held reports whether the lock is currently held by some goroutine.
func (l *Lock) Held() bool {
	return l.state.Load() == held
}
