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

package ablas

import (
	"github.com/gncnum/linalg/hwy"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// BlockSize is the largest m, n or k handled by the packed GEMM32 kernel.
const BlockSize = 32

// GEMM computes C := alpha*op(A)*op(B) + beta*C where op(A) is m x k,
// op(B) is k x n and C is m x n, all row-major with explicit strides.
//
// Blocks up to BlockSize in every dimension go through GEMM32; anything the
// packed kernel declines is handed to the blas64 implementation, which is the
// pure-Go gonum engine unless the host installed another one with blas64.Use.
func GEMM(m, n, k int, alpha float64, a []float64, strideA int, transA blas.Transpose,
	b []float64, strideB int, transB blas.Transpose, beta float64, c []float64, strideC int) {
	if m == 0 || n == 0 {
		return
	}
	if GEMM32(m, n, k, alpha, a, strideA, transA, b, strideB, transB, beta, c, strideC) {
		return
	}
	blas64.Implementation().Dgemm(transA, transB, m, n, k, alpha, a, strideA, b, strideB, beta, c, strideC)
}

// GEMM32 computes C := alpha*op(A)*op(B) + beta*C for small blocks and
// reports whether it did. It declines (returns false, C untouched) unless
// 1 < m, n, k <= BlockSize and 256-bit vectors are available; the caller then
// runs its own generic path.
//
// op(A) rows and op(B) columns are packed into zero-padded horizontal storage
// with k rounded up to a multiple of 4, products are computed in 2x2 tiles of
// dot products, and the result is merged into C with a specialized loop for
// beta == 1, beta == 0 and general beta. With beta == 0, C is never read.
func GEMM32(m, n, k int, alpha float64, a []float64, strideA int, transA blas.Transpose,
	b []float64, strideB int, transB blas.Transpose, beta float64, c []float64, strideC int) bool {
	if m <= 1 || n <= 1 || k <= 1 || m > BlockSize || n > BlockSize || k > BlockSize {
		return false
	}
	if !hwy.HasVector256() {
		return false
	}
	gemm32(m, n, k, alpha, a, strideA, transA, b, strideB, transB, beta, c, strideC)
	return true
}

// gemm32 is the packed kernel behind GEMM32 without the eligibility checks.
func gemm32(m, n, k int, alpha float64, a []float64, strideA int, transA blas.Transpose,
	b []float64, strideB int, transB blas.Transpose, beta float64, c []float64, strideC int) {
	var packA, packB, res [BlockSize * BlockSize]float64

	packBlockH(a, strideA, m, k, transA != blas.NoTrans, packA[:])
	// op(B) columns become packed rows: a non-transposed B is read by column.
	packBlockH(b, strideB, n, k, transB == blas.NoTrans, packB[:])

	dotBlockH(m, n, hwy.AlignedSize(k), packA[:], packB[:], res[:])
	addBlockH(m, n, alpha, res[:], beta, c, strideC)
}

// packBlockH writes rows x cols values of src into dst with row stride
// BlockSize. With byColumn set, packed row r is column r of src. dst must be
// zeroed beforehand so the padding past cols stays zero.
func packBlockH(src []float64, stride, rows, cols int, byColumn bool, dst []float64) {
	for r := range rows {
		out := dst[r*BlockSize : r*BlockSize+cols]
		if byColumn {
			for j := range out {
				out[j] = src[j*stride+r]
			}
			continue
		}
		copy(out, src[r*stride:r*stride+cols])
	}
}

// dotBlockH fills res[i*BlockSize+j] with the dot product of packed row i of
// pa and packed row j of pb, two rows of each at a time. kp must be a multiple
// of 4. With odd m or n the last tile reads one zero padding row.
func dotBlockH(m, n, kp int, pa, pb, res []float64) {
	for i := 0; i < m; i += 2 {
		a0 := pa[i*BlockSize : i*BlockSize+kp]
		a1 := pa[(i+1)*BlockSize : (i+1)*BlockSize+kp]
		for j := 0; j < n; j += 2 {
			b0 := pb[j*BlockSize : j*BlockSize+kp]
			b1 := pb[(j+1)*BlockSize : (j+1)*BlockSize+kp]
			var c00, c01, c10, c11 hwy.Float64x4
			for p := 0; p < kp; p += hwy.Lanes64 {
				va0 := hwy.LoadFloat64x4(a0[p:])
				va1 := hwy.LoadFloat64x4(a1[p:])
				vb0 := hwy.LoadFloat64x4(b0[p:])
				vb1 := hwy.LoadFloat64x4(b1[p:])
				c00 = va0.MulAdd(vb0, c00)
				c01 = va0.MulAdd(vb1, c01)
				c10 = va1.MulAdd(vb0, c10)
				c11 = va1.MulAdd(vb1, c11)
			}
			res[i*BlockSize+j] = c00.ReduceSum()
			if j+1 < n {
				res[i*BlockSize+j+1] = c01.ReduceSum()
			}
			if i+1 < m {
				res[(i+1)*BlockSize+j] = c10.ReduceSum()
				if j+1 < n {
					res[(i+1)*BlockSize+j+1] = c11.ReduceSum()
				}
			}
		}
	}
}

// addBlockH merges the m x n block res (stride BlockSize) into C.
func addBlockH(m, n int, alpha float64, res []float64, beta float64, c []float64, strideC int) {
	va := hwy.BroadcastFloat64x4(alpha)
	vb := hwy.BroadcastFloat64x4(beta)
	for i := range m {
		r := res[i*BlockSize : i*BlockSize+n]
		row := c[i*strideC : i*strideC+n]
		j := 0
		switch beta {
		case 1:
			for ; j+4 <= n; j += 4 {
				va.MulAdd(hwy.LoadFloat64x4(r[j:]), hwy.LoadFloat64x4(row[j:])).Store(row[j:])
			}
			for ; j < n; j++ {
				row[j] += float64(alpha * r[j])
			}
		case 0:
			for ; j+4 <= n; j += 4 {
				hwy.LoadFloat64x4(r[j:]).Scale(alpha).Store(row[j:])
			}
			for ; j < n; j++ {
				row[j] = alpha * r[j]
			}
		default:
			for ; j+4 <= n; j += 4 {
				scaled := vb.Mul(hwy.LoadFloat64x4(row[j:]))
				va.MulAdd(hwy.LoadFloat64x4(r[j:]), scaled).Store(row[j:])
			}
			for ; j < n; j++ {
				row[j] = float64(alpha*r[j]) + float64(beta*row[j])
			}
		}
	}
}
