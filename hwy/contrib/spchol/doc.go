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

// Package spchol implements supernodal sparse Cholesky (LLᵀ) and LDLᵀ
// factorization of symmetric matrices.
//
// The package is organized around the rank-k trailing update: once a
// supernode U (a dense panel of columns sharing one sparsity pattern) has been
// factored, U·D·Uᵀ is subtracted from every later supernode its rows touch.
// Two fixed-shape kernels cover the common narrow cases:
//
//   - UpdateKernelABC4 handles target widths, update ranks and update widths
//     up to 4 and scatters through the raw2smap/superRowIdx index maps.
//   - UpdateKernel4444 is the rank-4, width-4 specialization, with a
//     contiguous variant when no row scatter is needed.
//
// Both kernels report false for shapes they do not handle; the factorization
// then uses a generic update built on the ablas kernels. PropagateForward is
// the matching block step of the forward triangular solve.
//
// # Row storage
//
// A factor lives in one flat []float64. Supernode s occupies width+offdiag
// rows of stride hwy.AlignedSize(width): first the dense diagonal block (lower
// triangle), then one row per off-diagonal row index listed in superRowIdx.
// raw2smap translates a global row index into the local row of the supernode
// currently being assembled.
//
// # Usage
//
//	an, err := spchol.Analyze(a, spchol.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	f, err := spchol.Factorize(ctx, an, a, spchol.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	x, err := f.Solve(b)
//
// Columns are eliminated in their natural order; no fill-reducing permutation
// is applied.
package spchol
