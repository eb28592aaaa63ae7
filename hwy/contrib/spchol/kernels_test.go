// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spchol

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/gncnum/linalg/hwy"
	"github.com/stretchr/testify/require"
)

const unusedIndex = 1 << 20

// updateCase lays out one target supernode and one update panel in a shared
// row storage, the way the factorization does.
type updateCase struct {
	storage     []float64
	offsS       int
	sStride     int
	tWidth      int
	tHeight     int
	offsU       int
	uHeight     int
	uRank       int
	uRowStride  int
	uWidth      int
	diagD       []float64
	offsD       int
	raw2smap    []int32
	superRowIdx []int32
	urBase      int
}

// newUpdateCase builds a random case. The target's columns are global rows
// 0..tWidth-1 followed by tOff off-diagonal rows; the panel's head picks
// uWidth of the columns and its tail uHeight-uWidth of the off-diagonal rows.
// Slots that must not be read hold NaN or out-of-range indices.
func newUpdateCase(rng *rand.Rand, tWidth, tOff, uRank, uWidth, uHeight int, contiguous bool) *updateCase {
	const nGlobal = 40
	c := &updateCase{
		tWidth:     tWidth,
		tHeight:    tWidth + tOff,
		sStride:    hwy.AlignedSize(tWidth),
		uRank:      uRank,
		uWidth:     uWidth,
		uHeight:    uHeight,
		uRowStride: hwy.AlignedSize(uRank),
		offsD:      1,
		urBase:     2,
	}

	offRows := rng.Perm(nGlobal - tWidth)[:tOff]
	for i := range offRows {
		offRows[i] += tWidth
	}
	slices.Sort(offRows)

	c.raw2smap = make([]int32, nGlobal)
	for i := range c.raw2smap {
		c.raw2smap[i] = unusedIndex
	}
	for j := range tWidth {
		c.raw2smap[j] = int32(j)
	}
	for q, r := range offRows {
		c.raw2smap[r] = int32(tWidth + q)
	}

	var head, tail []int
	if contiguous {
		for j := range tWidth {
			head = append(head, j)
		}
		tail = offRows
	} else {
		head = rng.Perm(tWidth)[:uWidth]
		slices.Sort(head)
		tail = rng.Perm(tOff)[:uHeight-uWidth]
		slices.Sort(tail)
		for i := range tail {
			tail[i] = offRows[tail[i]]
		}
	}
	c.superRowIdx = []int32{unusedIndex, unusedIndex}
	for _, r := range append(head, tail...) {
		c.superRowIdx = append(c.superRowIdx, int32(r))
	}

	c.offsS = 0
	c.offsU = c.tHeight*c.sStride + 3
	c.storage = make([]float64, c.offsU+uHeight*c.uRowStride)
	for i := range c.storage {
		c.storage[i] = 2*rng.Float64() - 1
	}
	for k := range uHeight {
		for r := uRank; r < c.uRowStride; r++ {
			c.storage[c.offsU+k*c.uRowStride+r] = math.NaN()
		}
	}
	for i := 0; i < c.tHeight; i++ {
		for j := tWidth; j < c.sStride; j++ {
			c.storage[c.offsS+i*c.sStride+j] = 0
		}
	}

	c.diagD = make([]float64, c.offsD+uRank+1)
	for i := range c.diagD {
		c.diagD[i] = math.NaN()
	}
	for r := range uRank {
		c.diagD[c.offsD+r] = 0.5 + rng.Float64()
	}
	return c
}

// reference applies the update with plain loops.
func (c *updateCase) reference() []float64 {
	out := slices.Clone(c.storage)
	u := func(k, r int) float64 { return c.storage[c.offsU+k*c.uRowStride+r] }
	for k := range c.uHeight {
		row := int(c.raw2smap[c.superRowIdx[c.urBase+k]])
		for j := range c.uWidth {
			col := int(c.raw2smap[c.superRowIdx[c.urBase+j]])
			var sum float64
			for r := range c.uRank {
				sum += u(k, r) * c.diagD[c.offsD+r] * u(j, r)
			}
			out[c.offsS+row*c.sStride+col] -= sum
		}
	}
	return out
}

func requireClose(t *testing.T, want, got []float64, tol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			require.True(t, math.IsNaN(got[i]), "element %d: got %v, want NaN", i, got[i])
			continue
		}
		require.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func requireSameBits(t *testing.T, want, got []float64, msgAndArgs ...any) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Equal(t, math.Float64bits(want[i]), math.Float64bits(got[i]), msgAndArgs...)
	}
}

func TestUpdateKernelABC4(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for tWidth := 1; tWidth <= 4; tWidth++ {
		for uWidth := 1; uWidth <= tWidth; uWidth++ {
			for uRank := 1; uRank <= 4; uRank++ {
				for _, extra := range []int{0, 1, 5} {
					c := newUpdateCase(rng, tWidth, 6, uRank, uWidth, uWidth+extra, false)
					want := c.reference()

					scalar := slices.Clone(c.storage)
					updateABC4Scalar(scalar, c.offsS, c.offsU, c.uHeight, c.uRank, c.uRowStride, c.uWidth,
						c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)
					vector := slices.Clone(c.storage)
					updateABC4Vector(vector, c.offsS, c.offsU, c.uHeight, c.uRank, c.uRowStride, c.uWidth,
						c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)
					dispatched := slices.Clone(c.storage)
					ok := UpdateKernelABC4(dispatched, c.offsS, c.tWidth, c.offsU, c.uHeight, c.uRank, c.uRowStride, c.uWidth,
						c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)

					require.True(t, ok)
					requireSameBits(t, scalar, vector, "tWidth=%d uWidth=%d uRank=%d", tWidth, uWidth, uRank)
					requireSameBits(t, scalar, dispatched)
					requireClose(t, want, scalar, 1e-14)
				}
			}
		}
	}
}

func TestUpdateKernelABC4Declines(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	c := newUpdateCase(rng, 4, 4, 4, 4, 6, false)
	orig := slices.Clone(c.storage)

	shapes := []struct{ tWidth, uRank, uWidth int }{
		{0, 4, 4}, {5, 4, 4}, {4, 0, 4}, {4, 5, 4}, {4, 4, 0}, {4, 4, 5},
	}
	for _, sh := range shapes {
		ok := UpdateKernelABC4(c.storage, c.offsS, sh.tWidth, c.offsU, c.uHeight, sh.uRank, c.uRowStride, sh.uWidth,
			c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)
		require.False(t, ok, "shape %+v", sh)
		requireSameBits(t, orig, c.storage, "declined kernel modified storage")
	}
}

func TestUpdateKernel4444(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for _, contiguous := range []bool{true, false} {
		for _, tOff := range []int{0, 1, 3, 8} {
			uHeight := 4 + tOff
			if !contiguous {
				if tOff == 0 {
					continue
				}
				uHeight = 4 + tOff/2
			}
			c := newUpdateCase(rng, 4, tOff, 4, 4, uHeight, contiguous)
			want := c.reference()

			scalar := slices.Clone(c.storage)
			update4444Scalar(scalar, c.offsS, c.tHeight, c.offsU, c.uHeight, c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)
			vector := slices.Clone(c.storage)
			update4444Vector(vector, c.offsS, c.tHeight, c.offsU, c.uHeight, c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)
			dispatched := slices.Clone(c.storage)
			require.True(t, UpdateKernel4444(dispatched, c.offsS, c.tHeight, c.offsU, c.uHeight,
				c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase))

			requireSameBits(t, scalar, vector, "contiguous=%v tOff=%d", contiguous, tOff)
			requireSameBits(t, scalar, dispatched)
			requireClose(t, want, scalar, 1e-14)

			// The general kernel must agree with the specialization.
			abc4 := slices.Clone(c.storage)
			updateABC4Scalar(abc4, c.offsS, c.offsU, c.uHeight, 4, 4, 4, c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase)
			requireSameBits(t, scalar, abc4)
		}
	}
}

func TestUpdateKernel4444Declines(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	c := newUpdateCase(rng, 4, 2, 4, 4, 6, true)
	require.False(t, UpdateKernel4444(c.storage, c.offsS, c.uHeight-1, c.offsU, c.uHeight,
		c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase))
}

func TestUpdateGeneric(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	for _, tWidth := range []int{1, 3, 5, 7} {
		for _, uRank := range []int{1, 4, 6, 9} {
			uWidth := max(1, tWidth-1)
			c := newUpdateCase(rng, tWidth, 5, uRank, uWidth, uWidth+3, false)
			want := c.reference()

			got := slices.Clone(c.storage)
			du := make([]float64, uWidth*uRank)
			updateGeneric(got, c.offsS, c.sStride, c.offsU, c.uHeight, c.uRank, c.uRowStride, c.uWidth,
				c.diagD, c.offsD, c.raw2smap, c.superRowIdx, c.urBase, du)
			requireClose(t, want, got, 1e-13)
		}
	}
}
