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

// Package ablas provides BLAS-style float64 kernels with runtime dispatch
// between a vectorized fast path and a portable scalar fallback.
//
// # Dispatch
//
// Every kernel compares its operand size against a per-kernel threshold
// (8 elements for the vector kernels) and consults hwy.HasVector256. When both
// allow it, the fast path processes 4 or 8 doubles per step and finishes the
// remainder with a scalar tail loop; otherwise the scalar loop handles every
// element. Elementwise kernels produce bit-identical results on both paths.
// Reductions (Dot, DotSquared) may differ in the last bits because the
// summation order differs.
//
// # Preconditions
//
// Kernels take explicit lengths and strides and do not validate them: slices
// must be long enough for the requested operation and, unless a kernel says
// otherwise, inputs and outputs must not overlap. Violations surface as Go
// slice-bounds panics at best and wrong results at worst.
//
// # Matrices
//
// Matrices are row-major with an explicit row stride (stride >= columns), so a
// sub-matrix is a re-sliced view of its parent. Transposition is selected with
// the gonum blas.Transpose values, triangle and diagonal kinds with blas.Uplo
// and blas.Diag.
//
// # Example Usage
//
//	import "github.com/gncnum/linalg/hwy/contrib/ablas"
//
//	// y := 2*A*x + y, A is 3x4 stored with stride 4
//	ablas.GEMV(3, 4, 2, a, 4, blas.NoTrans, x, 1, y)
//
//	// C := A*B for 20x20 blocks
//	ablas.GEMM(20, 20, 20, 1, a, 20, blas.NoTrans, b, 20, blas.NoTrans, 0, c, 20)
package ablas

// Size thresholds below which the scalar loops are faster than setting up
// the vector path. Tuned empirically.
const (
	dotThreshold         = 8
	axpyThreshold        = 8
	elementwiseThreshold = 8
)
