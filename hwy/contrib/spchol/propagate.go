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
	"github.com/gncnum/linalg/hwy"
	"github.com/gncnum/linalg/hwy/contrib/ablas"
)

// PropagateForward pushes the contribution of a solved block of the forward
// substitution to the rows that still depend on it.
//
// The block covers x[cols0:cols0+blockSize]. Its off-diagonal rows are
// offdiagSize rows of rowStorage starting at offsS, sStride apart; row k
// belongs to global row superRowIdx[rBase+k]. For each of them the dot
// product of the row with the block of x is subtracted from the row's
// accumulator slot simdBuf[row*simdWidth:(row+1)*simdWidth]. The vector path
// leaves per-lane partial sums in the slot; the scalar path uses lane 0 only.
// Either way the pending contribution to x[row] is the sum of its slot.
func PropagateForward(x []float64, cols0, blockSize int, superRowIdx []int32, rBase, offdiagSize int,
	rowStorage []float64, offsS, sStride int, simdBuf []float64, simdWidth int) {
	if simdWidth == hwy.Lanes64 && hwy.HasVector256() {
		propagateForwardVector(x, cols0, blockSize, superRowIdx, rBase, offdiagSize, rowStorage, offsS, sStride, simdBuf)
		return
	}
	propagateForwardScalar(x, cols0, blockSize, superRowIdx, rBase, offdiagSize, rowStorage, offsS, sStride, simdBuf, simdWidth)
}

func propagateForwardScalar(x []float64, cols0, blockSize int, superRowIdx []int32, rBase, offdiagSize int,
	rowStorage []float64, offsS, sStride int, simdBuf []float64, simdWidth int) {
	xs := x[cols0:]
	for k := range offdiagSize {
		row := int(superRowIdx[rBase+k])
		simdBuf[row*simdWidth] -= ablas.Dot(blockSize, rowStorage[offsS+k*sStride:], xs)
	}
}

func propagateForwardVector(x []float64, cols0, blockSize int, superRowIdx []int32, rBase, offdiagSize int,
	rowStorage []float64, offsS, sStride int, simdBuf []float64) {
	xs := x[cols0:]
	full := blockSize &^ (hwy.Lanes64 - 1)
	rem := blockSize - full
	var xTail hwy.Float64x4
	if rem > 0 {
		xTail = hwy.LoadFloat64x4N(xs[full:], rem)
	}

	for k := range offdiagSize {
		src := rowStorage[offsS+k*sStride:]
		var acc hwy.Float64x4
		for j := 0; j < full; j += hwy.Lanes64 {
			acc = hwy.LoadFloat64x4(src[j:]).MulAdd(hwy.LoadFloat64x4(xs[j:]), acc)
		}
		if rem > 0 {
			acc = hwy.LoadFloat64x4N(src[full:], rem).MulAdd(xTail, acc)
		}
		slot := simdBuf[int(superRowIdx[rBase+k])*hwy.Lanes64:]
		hwy.LoadFloat64x4(slot).Sub(acc).Store(slot)
	}
}

// drainSlot returns the pending contribution accumulated in one slot.
func drainSlot(simdBuf []float64, row, simdWidth int) float64 {
	slot := simdBuf[row*simdWidth : (row+1)*simdWidth]
	if simdWidth == hwy.Lanes64 {
		return hwy.LoadFloat64x4(slot).ReduceSum()
	}
	var sum float64
	for _, v := range slot {
		sum += v
	}
	return sum
}
