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

// TriangularSolve solves op(A)*x = b in place for the n x n triangular
// matrix A stored row-major with the given stride. On entry x holds b, on
// exit the solution.
//
// Only the triangle selected by uplo is read. With diag == blas.Unit the
// diagonal is assumed to be 1 and is not read.
//
// The transposed variants walk A column by column; an element of x that is
// already zero skips both its division and its update, so a zero pivot paired
// with a zero right-hand side is not an error. Any other zero pivot yields
// Inf or NaN in x.
func TriangularSolve(n int, a []float64, stride int, uplo blas.Uplo, trans blas.Transpose, diag blas.Diag, x []float64) {
	if n == 0 {
		return
	}
	nonUnit := diag == blas.NonUnit

	if trans == blas.NoTrans {
		if uplo == blas.Upper {
			for i := n - 1; i >= 0; i-- {
				row := a[i*stride:]
				v := x[i] - Dot(n-1-i, row[i+1:], x[i+1:])
				if nonUnit {
					v /= row[i]
				}
				x[i] = v
			}
			return
		}
		for i := range n {
			row := a[i*stride:]
			v := x[i] - Dot(i, row, x)
			if nonUnit {
				v /= row[i]
			}
			x[i] = v
		}
		return
	}

	if uplo == blas.Upper {
		// Aᵀ is lower triangular: forward substitution by columns of Aᵀ,
		// which are the rows of A.
		for i := range n {
			if x[i] == 0 {
				continue
			}
			row := a[i*stride:]
			if nonUnit {
				x[i] /= row[i]
			}
			Axpy(n-1-i, -x[i], row[i+1:], x[i+1:])
		}
		return
	}
	for i := n - 1; i >= 0; i-- {
		if x[i] == 0 {
			continue
		}
		row := a[i*stride:]
		if nonUnit {
			x[i] /= row[i]
		}
		Axpy(i, -x[i], row, x)
	}
}
