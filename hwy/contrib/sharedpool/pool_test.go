// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package sharedpool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func seeded(n int) *Pool {
	p := new(Pool)
	p.SetSeed(NewRealVector(n))
	return p
}

func TestRetrieveFromSeed(t *testing.T) {
	seed := &RealVector{Data: []float64{1, 2, 3}}
	var p Pool
	require.False(t, p.IsSeeded())
	p.SetSeed(seed)
	require.True(t, p.IsSeeded())

	// SetSeed keeps a deep copy.
	seed.Data[0] = 100

	a := RetrieveAs[*RealVector](&p)
	b := RetrieveAs[*RealVector](&p)
	assert.Equal(t, []float64{1, 2, 3}, a.Data)
	assert.Equal(t, []float64{1, 2, 3}, b.Data)
	a.Data[1] = -1
	assert.Equal(t, 2.0, b.Data[1], "fresh objects must not share storage")
}

func TestRecycleRoundTrip(t *testing.T) {
	p := seeded(4)
	obj := RetrieveAs[*RealVector](p)
	obj.Data[2] = 42
	p.Recycle(obj)
	require.Equal(t, 1, p.RecycledLen())

	got := RetrieveAs[*RealVector](p)
	assert.Same(t, obj, got)
	assert.Equal(t, []float64{0, 0, 42, 0}, got.Data)
	assert.Equal(t, 0, p.RecycledLen())
}

func TestRecycleIsLIFO(t *testing.T) {
	p := seeded(1)
	objs := make([]*RealVector, 5)
	for i := range objs {
		objs[i] = RetrieveAs[*RealVector](p)
		objs[i].Data[0] = float64(i)
	}
	for _, o := range objs {
		p.Recycle(o)
	}
	for i := len(objs) - 1; i >= 0; i-- {
		assert.Same(t, objs[i], p.Retrieve())
	}
}

func TestEnumeration(t *testing.T) {
	p := seeded(1)
	assert.Nil(t, p.FirstRecycled())

	objs := make([]*RealVector, 3)
	for i := range objs {
		objs[i] = RetrieveAs[*RealVector](p)
		objs[i].Data[0] = float64(i)
	}
	for _, o := range objs {
		p.Recycle(o)
	}

	var seen []float64
	for o := p.FirstRecycled(); o != nil; o = p.NextRecycled() {
		seen = append(seen, o.(*RealVector).Data[0])
	}
	assert.Equal(t, []float64{2, 1, 0}, seen)
	assert.Equal(t, 3, p.RecycledLen(), "enumeration must not remove objects")
	assert.Nil(t, p.NextRecycled())

	var unseeded Pool
	assert.Nil(t, unseeded.FirstRecycled())
	assert.Nil(t, unseeded.NextRecycled())
}

func TestClearAndReset(t *testing.T) {
	p := seeded(2)
	p.Recycle(p.Retrieve())
	p.Recycle(p.Retrieve())
	require.Equal(t, 1, p.RecycledLen())

	p.ClearRecycled()
	assert.Equal(t, 0, p.RecycledLen())
	assert.Nil(t, p.FirstRecycled())
	assert.True(t, p.IsSeeded())

	p.Recycle(NewRealVector(2))
	p.Reset()
	assert.False(t, p.IsSeeded())
	assert.Equal(t, 0, p.RecycledLen())
	assert.Panics(t, func() { p.Retrieve() })
}

func TestSetSeedClearsRecycled(t *testing.T) {
	p := seeded(2)
	p.Recycle(NewRealVector(2))
	p.SetSeed(NewIntVector(3))
	assert.Equal(t, 0, p.RecycledLen())
	iv := RetrieveAs[*IntVector](p)
	assert.Len(t, iv.Data, 3)
}

func TestClone(t *testing.T) {
	p := new(Pool)
	p.SetSeed(&SupernodeScratch{Raw2SMap: []int32{1, 2}, Update: []float64{3}})
	objs := make([]*SupernodeScratch, 3)
	for i := range objs {
		objs[i] = RetrieveAs[*SupernodeScratch](p)
		objs[i].Accum = []float64{float64(i)}
	}
	for _, o := range objs {
		p.Recycle(o)
	}
	require.Equal(t, 3, p.RecycledLen())
	first := p.FirstRecycled()

	c := p.Clone()
	require.Equal(t, p.RecycledLen(), c.RecycledLen())

	var orig, cloned []float64
	for o := p.FirstRecycled(); o != nil; o = p.NextRecycled() {
		orig = append(orig, o.(*SupernodeScratch).Accum[0])
	}
	for o := c.FirstRecycled(); o != nil; o = c.NextRecycled() {
		cloned = append(cloned, o.(*SupernodeScratch).Accum[0])
	}
	assert.Equal(t, []float64{2, 1, 0}, orig)
	assert.Equal(t, orig, cloned)

	// Payloads are deep copies.
	cf := c.FirstRecycled().(*SupernodeScratch)
	assert.NotSame(t, first, cf)
	cf.Accum[0] = 99
	assert.NotEqual(t, 99.0, first.(*SupernodeScratch).Accum[0])

	fresh := RetrieveAs[*SupernodeScratch](c)
	assert.Equal(t, 2, c.RecycledLen())
	assert.Equal(t, 3, p.RecycledLen())
	_ = fresh

	var empty Pool
	ec := empty.Clone()
	assert.False(t, ec.IsSeeded())
}

func TestCopyKinds(t *testing.T) {
	tests := []Object{
		&RealVector{Data: []float64{1, 2}},
		&IntVector{Data: []int32{3}},
		&SupernodeScratch{Raw2SMap: []int32{1}, Update: []float64{2}, Accum: []float64{3, 4}},
	}
	for _, obj := range tests {
		t.Run(fmt.Sprintf("%T", obj), func(t *testing.T) {
			c := Copy(obj)
			assert.Equal(t, obj, c)
			assert.NotSame(t, obj, c)
		})
	}
	assert.Nil(t, Copy(nil))
}

func TestGrow(t *testing.T) {
	v := &RealVector{Data: []float64{1}}
	v.Grow(5)
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, v.Data)
	v.Grow(2)
	assert.Len(t, v.Data, 5)

	iv := NewIntVector(0)
	iv.Grow(3)
	assert.Len(t, iv.Data, 3)

	var sc SupernodeScratch
	sc.Reserve(4, 8, 2)
	assert.Len(t, sc.Raw2SMap, 4)
	assert.Len(t, sc.Update, 8)
	assert.Len(t, sc.Accum, 2)
	sc.Reserve(1, 1, 1)
	assert.Len(t, sc.Update, 8, "Reserve never shrinks")
}

func TestPreconditions(t *testing.T) {
	var p Pool
	assert.Panics(t, func() { p.Retrieve() }, "unseeded retrieve")
	assert.Panics(t, func() { p.Recycle(NewRealVector(1)) }, "unseeded recycle")
	assert.Panics(t, func() { p.SetSeed(nil) }, "nil seed")

	p.SetSeed(NewRealVector(1))
	assert.Panics(t, func() { p.Recycle(nil) }, "nil object")
	assert.Panics(t, func() { p.Recycle(p.seed) }, "seed object")
	assert.Panics(t, func() { RetrieveAs[*IntVector](&p) }, "wrong kind")
}

func TestArenaGrowth(t *testing.T) {
	p := seeded(1)
	n := 3*chunkSize + 5
	objs := make([]Object, n)
	for i := range objs {
		objs[i] = p.Retrieve()
	}
	for _, o := range objs {
		p.Recycle(o)
	}
	assert.Equal(t, n, p.RecycledLen())
	assert.Len(t, p.chunks, 4)

	// Draining and refilling reuses the free slots instead of growing.
	for range n {
		p.Retrieve()
	}
	for range n {
		p.Recycle(NewRealVector(1))
	}
	assert.Len(t, p.chunks, 4)
}

func TestConcurrentRetrieveRecycle(t *testing.T) {
	const (
		goroutines = 8
		cycles     = 2000
	)
	for _, keepLast := range []bool{false, true} {
		t.Run(fmt.Sprintf("keepLast=%v", keepLast), func(t *testing.T) {
			p := seeded(4)

			var (
				mu       sync.Mutex
				owned    = map[*RealVector]bool{}
				distinct = map[*RealVector]bool{}
			)
			take := func(o *RealVector) error {
				mu.Lock()
				defer mu.Unlock()
				if owned[o] {
					return fmt.Errorf("object %p handed out twice", o)
				}
				owned[o] = true
				distinct[o] = true
				return nil
			}
			give := func(o *RealVector) {
				mu.Lock()
				delete(owned, o)
				mu.Unlock()
			}

			var g errgroup.Group
			for w := range goroutines {
				g.Go(func() error {
					var last *RealVector
					for i := range cycles {
						o := RetrieveAs[*RealVector](p)
						if err := take(o); err != nil {
							return err
						}
						o.Data[0] = float64(w*cycles + i)
						if keepLast && i == cycles-1 {
							last = o
							break
						}
						give(o)
						p.Recycle(o)
					}
					_ = last
					return nil
				})
			}
			require.NoError(t, g.Wait())

			want := len(distinct)
			if keepLast {
				want -= goroutines
			}
			assert.Equal(t, want, p.RecycledLen())

			count := 0
			for o := p.FirstRecycled(); o != nil; o = p.NextRecycled() {
				count++
			}
			assert.Equal(t, want, count)
		})
	}
}

func BenchmarkRetrieveRecycle(b *testing.B) {
	p := seeded(64)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			p.Recycle(p.Retrieve())
		}
	})
}
