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
	"fmt"
	"slices"

	"github.com/gncnum/linalg/hwy"
	"github.com/gncnum/linalg/hwy/contrib/ablas"
	"github.com/gncnum/linalg/hwy/contrib/workerpool"
	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/blas"
)

// Solve returns x with A·x = b.
//
// The forward substitution walks supernodes in column order: pending
// contributions are drained from the accumulator slots, the diagonal block is
// solved, and PropagateForward hands the block's contribution to the rows
// below. The backward substitution walks the supernodes in reverse.
func (f *Factor) Solve(b []float64) ([]float64, error) {
	an := f.an
	n := an.n
	if len(b) != n {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: right-hand side has %d elements, want %d", len(b), n))
	}
	if i := ablas.FirstNonFinite(n, b); i >= 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: right-hand side element %d is %g", i, b[i]))
	}

	diag := blas.NonUnit
	if f.mode == ModeLDLT {
		diag = blas.Unit
	}
	x := slices.Clone(b)
	slots := make([]float64, n*hwy.Lanes64)

	for s := range an.NumSupernodes() {
		c0, w := an.superCols[s], an.width(s)
		stride, off := an.rowStride[s], an.rowOffset[s]
		for c := c0; c < c0+w; c++ {
			x[c] += drainSlot(slots, c, hwy.Lanes64)
		}
		ablas.TriangularSolve(w, f.storage[off:], stride, blas.Lower, blas.NoTrans, diag, x[c0:])
		PropagateForward(x, c0, w, an.superRowIdx, an.rowBegin[s], an.offdiag(s),
			f.storage, off+w*stride, stride, slots, hwy.Lanes64)
	}

	if f.mode == ModeLDLT {
		ablas.MergeDiv(n, f.d, x)
	}

	for s := an.NumSupernodes() - 1; s >= 0; s-- {
		c0, w := an.superCols[s], an.width(s)
		stride, off := an.rowStride[s], an.rowOffset[s]
		for q, r := range an.rows(s) {
			ablas.Axpy(w, -x[r], f.storage[off+(w+q)*stride:], x[c0:])
		}
		ablas.TriangularSolve(w, f.storage[off:], stride, blas.Lower, blas.Trans, diag, x[c0:])
	}
	return x, nil
}

// SolveAll solves A·x = b for every b in rhs and returns the solutions in
// order. With a non-nil pool the right-hand sides are split into one
// contiguous range per worker. On failure it returns the error of the lowest
// failing index.
func (f *Factor) SolveAll(pool *workerpool.Pool, rhs [][]float64) ([][]float64, error) {
	xs := make([][]float64, len(rhs))
	errs := make([]error, len(rhs))
	solveRange := func(start, end int) {
		for i := start; i < end; i++ {
			xs[i], errs[i] = f.Solve(rhs[i])
		}
	}
	if pool == nil {
		solveRange(0, len(rhs))
	} else {
		pool.ParallelFor(len(rhs), solveRange)
	}
	for i, err := range errs {
		if err != nil {
			return nil, errors.E(fmt.Sprintf("spchol: right-hand side %d", i), err)
		}
	}
	return xs, nil
}
