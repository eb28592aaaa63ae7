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

import "gonum.org/v1/gonum/blas"

// GEMV computes y := alpha*op(A)*x + beta*y where op(A) is m x n.
//
// With trans == blas.NoTrans, A is stored as m rows of n elements; otherwise
// A is stored as n rows of m elements and op(A) is its transpose. x holds n
// elements and y holds m.
//
// Special cases:
//   - m == 0 returns immediately.
//   - n == 0 or alpha == 0 only scales y by beta (or zeroes it when beta
//     is 0). A and x are not read.
//   - beta == 0 overwrites y, so NaN or Inf values already in y are
//     discarded rather than propagated.
func GEMV(m, n int, alpha float64, a []float64, stride int, trans blas.Transpose, x []float64, beta float64, y []float64) {
	if m == 0 {
		return
	}
	switch beta {
	case 0:
		Set(m, 0, y)
	case 1:
	default:
		Scale(m, beta, y)
	}
	if n == 0 || alpha == 0 {
		return
	}

	if trans == blas.NoTrans {
		for i := range m {
			y[i] += alpha * Dot(n, a[i*stride:], x)
		}
		return
	}
	// op(A) = Aᵀ: accumulate one stored row of A per element of x.
	for j := range n {
		if v := alpha * x[j]; v != 0 {
			Axpy(m, v, a[j*stride:], y)
		}
	}
}

// Rank1Update computes A := A + alpha*u*vᵀ where A is m x n with the given
// row stride, u holds m elements and v holds n.
func Rank1Update(m, n int, alpha float64, u, v, a []float64, stride int) {
	if m == 0 || n == 0 || alpha == 0 {
		return
	}
	for i := range m {
		Axpy(n, alpha*u[i], v, a[i*stride:])
	}
}
