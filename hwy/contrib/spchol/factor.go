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
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/gncnum/linalg/hwy/contrib/ablas"
	"github.com/gncnum/linalg/hwy/contrib/sharedpool"
	"github.com/gncnum/linalg/hwy/contrib/workerpool"
	"github.com/grailbio/base/errors"
	"gonum.org/v1/gonum/blas"
)

// Mode selects the factorization.
type Mode int

const (
	// ModeCholesky computes A = L·Lᵀ for symmetric positive definite A.
	ModeCholesky Mode = iota
	// ModeLDLT computes A = L·D·Lᵀ with unit lower L and diagonal D, for
	// symmetric matrices whose leading minors are non-singular.
	ModeLDLT
)

func (m Mode) String() string {
	switch m {
	case ModeCholesky:
		return "cholesky"
	case ModeLDLT:
		return "ldlt"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// DefaultMaxSupernodeWidth is the widest supernode Analyze forms unless told
// otherwise; it is the widest shape the fixed update kernels handle.
const DefaultMaxSupernodeWidth = 4

// Options configures Analyze and Factorize.
type Options struct {
	Mode Mode
	// MaxSupernodeWidth caps supernode width. Zero means
	// DefaultMaxSupernodeWidth.
	MaxSupernodeWidth int
	// Workers runs the supernodes of each tree level in parallel. Nil
	// factors serially on the calling goroutine.
	Workers *workerpool.Pool
	// Scratch supplies per-supernode scratch buffers. It must be seeded
	// with a *sharedpool.SupernodeScratch. Nil uses a private pool.
	Scratch *sharedpool.Pool
}

// DefaultOptions returns serial Cholesky options with the default supernode
// width.
func DefaultOptions() Options {
	return Options{Mode: ModeCholesky, MaxSupernodeWidth: DefaultMaxSupernodeWidth}
}

func (o Options) supernodeWidth() (int, error) {
	switch {
	case o.MaxSupernodeWidth == 0:
		return DefaultMaxSupernodeWidth, nil
	case o.MaxSupernodeWidth < 0:
		return 0, errors.E(errors.Invalid, fmt.Sprintf("spchol: negative MaxSupernodeWidth %d", o.MaxSupernodeWidth))
	}
	return o.MaxSupernodeWidth, nil
}

// Factor is a numeric factorization produced by Factorize.
type Factor struct {
	an      *Analysis
	mode    Mode
	storage []float64
	d       []float64
}

// Factorize computes the numeric factorization of a using the symbolic
// analysis an, which must come from a matrix with the same dimension and a
// pattern containing a's.
//
// Supernodes are processed left-looking, one elimination-tree level at a
// time: a supernode first gathers the updates of all its descendants and is
// then factored in place. ctx is checked between levels. A non-positive
// pivot in Cholesky mode, or a zero or non-finite pivot in LDLT mode, yields
// an error of kind errors.Invalid.
func Factorize(ctx context.Context, an *Analysis, a *Matrix, opts Options) (*Factor, error) {
	switch {
	case an == nil || a == nil:
		return nil, errors.E(errors.Invalid, "spchol: nil analysis or matrix")
	case a.n != an.n:
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: matrix is %dx%d, analysis is for n=%d", a.n, a.n, an.n))
	case opts.Mode != ModeCholesky && opts.Mode != ModeLDLT:
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: unknown mode %v", opts.Mode))
	}

	scratch := opts.Scratch
	if scratch == nil {
		scratch = new(sharedpool.Pool)
		scratch.SetSeed(&sharedpool.SupernodeScratch{})
	} else if !scratch.IsSeeded() {
		return nil, errors.E(errors.Invalid, "spchol: scratch pool is not seeded")
	}

	f := &Factor{
		an:      an,
		mode:    opts.Mode,
		storage: make([]float64, an.storageSize),
		d:       make([]float64, an.n),
	}
	for _, level := range an.levels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		factorOne := func(i int) error {
			return f.factorSupernode(a, level[i], scratch)
		}
		if opts.Workers != nil {
			if err := opts.Workers.ParallelForErr(ctx, len(level), factorOne); err != nil {
				return nil, err
			}
			continue
		}
		for i := range level {
			if err := factorOne(i); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

// factorSupernode assembles supernode t from a and its updaters, then
// factors it. Only the storage and D entries of t are written.
func (f *Factor) factorSupernode(a *Matrix, t int, pool *sharedpool.Pool) error {
	an := f.an
	sc := sharedpool.RetrieveAs[*sharedpool.SupernodeScratch](pool)
	defer pool.Recycle(sc)

	t0, wt := an.superCols[t], an.width(t)
	stride := an.rowStride[t]
	height := wt + an.offdiag(t)
	sc.Reserve(an.n, wt*an.maxWidth, stride)

	raw2smap := sc.Raw2SMap
	for j := range wt {
		raw2smap[t0+j] = int32(j)
	}
	for q, r := range an.rows(t) {
		raw2smap[r] = int32(wt + q)
	}

	s := f.storage[an.rowOffset[t] : an.rowOffset[t]+height*stride]
	for j := range wt {
		c := t0 + j
		for p := a.colPtr[c]; p < a.colPtr[c+1]; p++ {
			r := a.rowIdx[p]
			local := int(raw2smap[r])
			if !an.holds(t, r, local) {
				return errors.E(errors.Invalid, fmt.Sprintf("spchol: entry (%d, %d) is outside the analyzed pattern", r, c))
			}
			s[local*stride+j] = a.values[p]
		}
	}

	for _, u := range an.updaters[t] {
		f.applyUpdate(t, u, raw2smap, sc.Update)
	}
	return f.factorBlock(t, s, sc.Accum)
}

// holds reports whether global row r maps to local row local of supernode t.
func (an *Analysis) holds(t, r, local int) bool {
	t0, wt := an.superCols[t], an.width(t)
	if r >= t0 && r < t0+wt {
		return true
	}
	q := local - wt
	return q >= 0 && q < an.offdiag(t) && int(an.superRowIdx[an.rowBegin[t]+q]) == r
}

// applyUpdate subtracts the contribution of the factored supernode u from t.
func (f *Factor) applyUpdate(t, u int, raw2smap []int32, du []float64) {
	an := f.an
	t0, wt := an.superCols[t], an.width(t)
	rows := an.rows(u)
	first, _ := slices.BinarySearch(rows, int32(t0))
	past, _ := slices.BinarySearch(rows, int32(t0+wt))

	urBase := an.rowBegin[u] + first
	uHeight := len(rows) - first
	uWidth := past - first
	uRank := an.width(u)
	uStride := an.rowStride[u]
	offsU := an.rowOffset[u] + (uRank+first)*uStride
	offsS := an.rowOffset[t]
	offsD := an.superCols[u]
	sStride := an.rowStride[t]

	if wt == 4 && uRank == 4 && uWidth == 4 && uStride == 4 {
		if UpdateKernel4444(f.storage, offsS, wt+an.offdiag(t), offsU, uHeight, f.d, offsD, raw2smap, an.superRowIdx, urBase) {
			return
		}
	}
	if sStride == 4 {
		if UpdateKernelABC4(f.storage, offsS, wt, offsU, uHeight, uRank, uStride, uWidth, f.d, offsD, raw2smap, an.superRowIdx, urBase) {
			return
		}
	}
	updateGeneric(f.storage, offsS, sStride, offsU, uHeight, uRank, uStride, uWidth, f.d, offsD, raw2smap, an.superRowIdx, urBase, du)
}

// factorBlock factors the assembled rows s of supernode t: the dense
// diagonal block first, then every off-diagonal row by a triangular solve
// against it.
func (f *Factor) factorBlock(t int, s, acc []float64) error {
	an := f.an
	t0, wt := an.superCols[t], an.width(t)
	stride := an.rowStride[t]
	d := f.d[t0 : t0+wt]

	for j := range wt {
		rowJ := s[j*stride : j*stride+wt]
		weights := rowJ
		switch f.mode {
		case ModeCholesky:
			pivot := rowJ[j] - ablas.DotSquared(j, rowJ)
			if !(pivot > 0) {
				return errors.E(errors.Invalid, fmt.Sprintf("spchol: matrix is not positive definite (pivot %g at column %d)", pivot, t0+j))
			}
			rowJ[j] = math.Sqrt(pivot)
			d[j] = 1
		case ModeLDLT:
			weights = acc[:j]
			ablas.Copy(j, rowJ, weights)
			ablas.MergeMul(j, d, weights)
			pivot := rowJ[j] - ablas.Dot(j, rowJ, weights)
			if pivot == 0 || math.IsNaN(pivot) || math.IsInf(pivot, 0) {
				return errors.E(errors.Invalid, fmt.Sprintf("spchol: zero or non-finite pivot %g at column %d", pivot, t0+j))
			}
			rowJ[j] = 1
			d[j] = pivot
		}
		diag := rowJ[j] * d[j]
		for i := j + 1; i < wt; i++ {
			rowI := s[i*stride:]
			rowI[j] = (rowI[j] - ablas.Dot(j, rowI, weights)) / diag
		}
	}

	diagKind := blas.NonUnit
	if f.mode == ModeLDLT {
		diagKind = blas.Unit
	}
	for q := range an.offdiag(t) {
		row := s[(wt+q)*stride:]
		ablas.TriangularSolve(wt, s, stride, blas.Lower, blas.NoTrans, diagKind, row)
		if f.mode == ModeLDLT {
			ablas.MergeDiv(wt, d, row)
		}
	}
	return nil
}

// Analysis returns the symbolic analysis the factor was computed from.
func (f *Factor) Analysis() *Analysis { return f.an }

// Mode returns the factorization mode.
func (f *Factor) Mode() Mode { return f.mode }

// D returns the diagonal of D; all ones in Cholesky mode.
func (f *Factor) D() []float64 { return slices.Clone(f.d) }

// L returns the lower factor as a dense row-major n x n array. In LDLT mode
// its diagonal is all ones.
func (f *Factor) L() []float64 {
	an := f.an
	n := an.n
	l := make([]float64, n*n)
	for s := range an.NumSupernodes() {
		t0, w := an.superCols[s], an.width(s)
		stride, off := an.rowStride[s], an.rowOffset[s]
		for i := range w {
			row := f.storage[off+i*stride:]
			copy(l[(t0+i)*n+t0:(t0+i)*n+t0+i+1], row[:i+1])
		}
		for q, r := range an.rows(s) {
			row := f.storage[off+(w+q)*stride:]
			copy(l[int(r)*n+t0:int(r)*n+t0+w], row[:w])
		}
	}
	return l
}
