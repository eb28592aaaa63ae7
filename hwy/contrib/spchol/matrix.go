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

	"github.com/grailbio/base/errors"
)

// Matrix is a symmetric n x n sparse matrix holding its lower triangle in
// compressed sparse column form. Row indices in each column are sorted and
// the diagonal entry is always present, first in its column.
type Matrix struct {
	n      int
	colPtr []int
	rowIdx []int
	values []float64
}

// NewFromDense builds a Matrix from the lower triangle of the row-major n x n
// array a. Off-diagonal zeros are not stored.
func NewFromDense(n int, a []float64) (*Matrix, error) {
	if n < 0 || len(a) < n*n {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: dense matrix needs %d elements, got %d", n*n, len(a)))
	}
	m := &Matrix{n: n, colPtr: make([]int, n+1)}
	for j := range n {
		for i := j; i < n; i++ {
			if v := a[i*n+j]; i == j || v != 0 {
				m.rowIdx = append(m.rowIdx, i)
				m.values = append(m.values, v)
			}
		}
		m.colPtr[j+1] = len(m.rowIdx)
	}
	return m, nil
}

// NewFromTriplets builds an n x n Matrix from coordinate entries. Entries in
// the upper triangle are mirrored into the lower one and duplicates are
// summed, so a symmetric input may list either triangle or both halves of
// every pair, but not a mix for the same pair.
func NewFromTriplets(n int, rows, cols []int, vals []float64) (*Matrix, error) {
	if n < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: negative dimension %d", n))
	}
	if len(rows) != len(vals) || len(cols) != len(vals) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: triplet lengths differ (%d rows, %d cols, %d values)",
			len(rows), len(cols), len(vals)))
	}

	type entry struct {
		i, j int
		v    float64
	}
	entries := make([]entry, 0, len(vals)+n)
	for k, v := range vals {
		i, j := rows[k], cols[k]
		if i < 0 || i >= n || j < 0 || j >= n {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("spchol: entry (%d, %d) outside %dx%d matrix", i, j, n, n))
		}
		if i < j {
			i, j = j, i
		}
		entries = append(entries, entry{i, j, v})
	}
	for j := range n {
		entries = append(entries, entry{j, j, 0})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		if a.j != b.j {
			return a.j - b.j
		}
		return a.i - b.i
	})

	m := &Matrix{n: n, colPtr: make([]int, n+1)}
	for k, e := range entries {
		if k > 0 && e.i == entries[k-1].i && e.j == entries[k-1].j {
			m.values[len(m.values)-1] += e.v
			continue
		}
		m.rowIdx = append(m.rowIdx, e.i)
		m.values = append(m.values, e.v)
		m.colPtr[e.j+1]++
	}
	for j := range n {
		m.colPtr[j+1] += m.colPtr[j]
	}
	return m, nil
}

// N returns the dimension of the matrix.
func (m *Matrix) N() int { return m.n }

// NNZ returns the number of stored lower-triangle entries.
func (m *Matrix) NNZ() int { return len(m.rowIdx) }

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 {
	if i < j {
		i, j = j, i
	}
	col := m.rowIdx[m.colPtr[j]:m.colPtr[j+1]]
	if p, ok := slices.BinarySearch(col, i); ok {
		return m.values[m.colPtr[j]+p]
	}
	return 0
}

// Dense returns the full symmetric matrix as a row-major n x n array.
func (m *Matrix) Dense() []float64 {
	n := m.n
	out := make([]float64, n*n)
	for j := range n {
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			i := m.rowIdx[p]
			out[i*n+j] = m.values[p]
			out[j*n+i] = m.values[p]
		}
	}
	return out
}

// MulVec computes y = A·x. x and y must hold N elements and not overlap.
func (m *Matrix) MulVec(x, y []float64) {
	clear(y[:m.n])
	for j := range m.n {
		for p := m.colPtr[j]; p < m.colPtr[j+1]; p++ {
			i, v := m.rowIdx[p], m.values[p]
			y[i] += v * x[j]
			if i != j {
				y[j] += v * x[i]
			}
		}
	}
}
