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

// Shared notation for the update kernels:
//
//   - rowStorage holds both the update panel U and the target supernode S.
//   - U has uHeight rows starting at offsU, uRowStride apart; only the first
//     uRank entries of each row are read.
//   - The first uWidth rows of U are its head: they fall into the columns of
//     S, so together with D they form the right factor D·Uᵀ.
//   - Row k of U targets local row raw2smap[superRowIdx[urBase+k]] of S.
//   - D is read from diagD[offsD:offsD+uRank].
//
// Every kernel computes, for k < uHeight and j < uWidth,
//
//	S[row(k)][row(j)] -= sum over r of U[k][r]·D[r]·U[j][r]
//
// summing r = 0..3 in order, with missing ranks padded by zeros. Head pairs
// with k < j land in the upper triangle of the target's diagonal block, which
// is never read afterwards.

// UpdateKernelABC4 applies the trailing update of a panel with rank and head
// width up to 4 to a target supernode of width up to 4 whose rows are stored
// with stride 4 starting at offsS. It reports false, leaving the storage
// untouched, when tWidth, uRank or uWidth is outside [1, 4].
func UpdateKernelABC4(rowStorage []float64, offsS, tWidth, offsU, uHeight, uRank, uRowStride, uWidth int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) bool {
	if tWidth < 1 || tWidth > 4 || uRank < 1 || uRank > 4 || uWidth < 1 || uWidth > 4 {
		return false
	}
	if hwy.HasVector256() {
		updateABC4Vector(rowStorage, offsS, offsU, uHeight, uRank, uRowStride, uWidth, diagD, offsD, raw2smap, superRowIdx, urBase)
	} else {
		updateABC4Scalar(rowStorage, offsS, offsU, uHeight, uRank, uRowStride, uWidth, diagD, offsD, raw2smap, superRowIdx, urBase)
	}
	return true
}

// UpdateKernel4444 is the rank-4, width-4 update into a width-4 target with
// sHeight rows. When sHeight == uHeight the panel covers every target row in
// order and rows are written without scatter. It reports false when the
// panel has more rows than the target.
func UpdateKernel4444(rowStorage []float64, offsS, sHeight, offsU, uHeight int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) bool {
	if uHeight > sHeight {
		return false
	}
	if hwy.HasVector256() {
		update4444Vector(rowStorage, offsS, sHeight, offsU, uHeight, diagD, offsD, raw2smap, superRowIdx, urBase)
	} else {
		update4444Scalar(rowStorage, offsS, sHeight, offsU, uHeight, diagD, offsD, raw2smap, superRowIdx, urBase)
	}
	return true
}

// loadRow4 returns the first n <= 4 entries of src padded with zeros.
func loadRow4(src []float64, n int) [4]float64 {
	var u [4]float64
	copy(u[:n], src[:n])
	return u
}

// headDU returns du[j][r] = D[r]*U[j][r] for the uWidth head rows, together
// with the target column of every head row.
func headDU(rowStorage []float64, offsU, uRank, uRowStride, uWidth int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) (du [4][4]float64, cols [4]int) {
	d := loadRow4(diagD[offsD:], uRank)
	for j := range uWidth {
		u := loadRow4(rowStorage[offsU+j*uRowStride:], uRank)
		du[j] = [4]float64{d[0] * u[0], d[1] * u[1], d[2] * u[2], d[3] * u[3]}
		cols[j] = int(raw2smap[superRowIdx[urBase+j]])
	}
	return du, cols
}

func updateABC4Scalar(rowStorage []float64, offsS, offsU, uHeight, uRank, uRowStride, uWidth int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) {
	du, cols := headDU(rowStorage, offsU, uRank, uRowStride, uWidth, diagD, offsD, raw2smap, superRowIdx, urBase)
	for k := range uHeight {
		u := loadRow4(rowStorage[offsU+k*uRowStride:], uRank)
		target := offsS + int(raw2smap[superRowIdx[urBase+k]])*4
		for j := range uWidth {
			v := u[0] * du[j][0]
			v = float64(u[1]*du[j][1]) + v
			v = float64(u[2]*du[j][2]) + v
			v = float64(u[3]*du[j][3]) + v
			rowStorage[target+cols[j]] -= v
		}
	}
}

// transposeDU turns head rows into lane vectors: lane j of the result r is
// du[j][r].
func transposeDU(du [4][4]float64) [4]hwy.Float64x4 {
	var t [4]hwy.Float64x4
	for r := range 4 {
		t[r] = hwy.Float64x4{du[0][r], du[1][r], du[2][r], du[3][r]}
	}
	return t
}

// rankUpdate4 returns the four lane sums of u against the transposed head.
func rankUpdate4(u [4]float64, dut *[4]hwy.Float64x4) hwy.Float64x4 {
	acc := hwy.BroadcastFloat64x4(u[0]).Mul(dut[0])
	acc = hwy.BroadcastFloat64x4(u[1]).MulAdd(dut[1], acc)
	acc = hwy.BroadcastFloat64x4(u[2]).MulAdd(dut[2], acc)
	return hwy.BroadcastFloat64x4(u[3]).MulAdd(dut[3], acc)
}

func updateABC4Vector(rowStorage []float64, offsS, offsU, uHeight, uRank, uRowStride, uWidth int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) {
	du, cols := headDU(rowStorage, offsU, uRank, uRowStride, uWidth, diagD, offsD, raw2smap, superRowIdx, urBase)
	dut := transposeDU(du)
	for k := range uHeight {
		acc := rankUpdate4(loadRow4(rowStorage[offsU+k*uRowStride:], uRank), &dut)
		target := offsS + int(raw2smap[superRowIdx[urBase+k]])*4
		for j := range uWidth {
			rowStorage[target+cols[j]] -= acc[j]
		}
	}
}

func update4444Scalar(rowStorage []float64, offsS, sHeight, offsU, uHeight int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) {
	du, _ := headDU(rowStorage, offsU, 4, 4, 4, diagD, offsD, raw2smap, superRowIdx, urBase)
	for k := range uHeight {
		u0, u1, u2, u3 := rowStorage[offsU+k*4], rowStorage[offsU+k*4+1], rowStorage[offsU+k*4+2], rowStorage[offsU+k*4+3]
		row := k
		if sHeight != uHeight {
			row = int(raw2smap[superRowIdx[urBase+k]])
		}
		target := rowStorage[offsS+row*4 : offsS+row*4+4]
		for j := range 4 {
			v := u0 * du[j][0]
			v = float64(u1*du[j][1]) + v
			v = float64(u2*du[j][2]) + v
			v = float64(u3*du[j][3]) + v
			target[j] -= v
		}
	}
}

func update4444Vector(rowStorage []float64, offsS, sHeight, offsU, uHeight int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int) {
	du, _ := headDU(rowStorage, offsU, 4, 4, 4, diagD, offsD, raw2smap, superRowIdx, urBase)
	dut := transposeDU(du)
	contiguous := sHeight == uHeight
	for k := range uHeight {
		acc := rankUpdate4(hwy.LoadFloat64x4(rowStorage[offsU+k*4:]), &dut)
		row := k
		if !contiguous {
			row = int(raw2smap[superRowIdx[urBase+k]])
		}
		target := rowStorage[offsS+row*4:]
		hwy.LoadFloat64x4(target).Sub(acc).Store(target)
	}
}

// updateGeneric applies the same update for any rank and head width into a
// target with row stride sStride. du must hold uWidth*uRank elements.
func updateGeneric(rowStorage []float64, offsS, sStride, offsU, uHeight, uRank, uRowStride, uWidth int,
	diagD []float64, offsD int, raw2smap, superRowIdx []int32, urBase int, du []float64) {
	for j := range uWidth {
		dj := du[j*uRank : (j+1)*uRank]
		ablas.Copy(uRank, rowStorage[offsU+j*uRowStride:], dj)
		ablas.MergeMul(uRank, diagD[offsD:], dj)
	}
	for k := range uHeight {
		u := rowStorage[offsU+k*uRowStride:]
		target := offsS + int(raw2smap[superRowIdx[urBase+k]])*sStride
		for j := range uWidth {
			col := int(raw2smap[superRowIdx[urBase+j]])
			rowStorage[target+col] -= ablas.Dot(uRank, u, du[j*uRank:])
		}
	}
}
