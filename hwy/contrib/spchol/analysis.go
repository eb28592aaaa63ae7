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
	"github.com/grailbio/base/errors"
	"github.com/rs/zerolog/log"
)

// Analysis is the symbolic factorization of a sparsity pattern: elimination
// tree, supernode partition, row-storage layout and the schedule of updates.
// It depends only on the pattern and can be reused for any matrix with the
// same (or a sparser) pattern.
type Analysis struct {
	n        int
	maxWidth int
	parent   []int

	// Supernode s spans columns superCols[s] to superCols[s+1]-1 and has
	// off-diagonal rows superRowIdx[rowBegin[s]:rowBegin[s+1]].
	superCols   []int
	colToSuper  []int
	rowBegin    []int
	superRowIdx []int32

	rowOffset   []int
	rowStride   []int
	storageSize int

	superParent []int
	levels      [][]int
	// updaters[t] lists the supernodes whose rows reach the columns of t.
	updaters [][]int
}

// Analyze computes the symbolic factorization of a's pattern. Supernodes are
// fundamental (each column's parent is the next column and the patterns nest)
// and at most opts.MaxSupernodeWidth columns wide.
func Analyze(a *Matrix, opts Options) (*Analysis, error) {
	if a == nil {
		return nil, errors.E(errors.Invalid, "spchol: nil matrix")
	}
	maxWidth, err := opts.supernodeWidth()
	if err != nil {
		return nil, err
	}

	n := a.n
	an := &Analysis{n: n, maxWidth: maxWidth, parent: make([]int, n)}
	colStruct, nChildren := columnStructure(a, an.parent)

	// Supernode partition. Column j extends the current supernode when its
	// only child is j-1 and the patterns nest.
	an.colToSuper = make([]int, n)
	for j := range n {
		extends := j > 0 &&
			j-an.superCols[len(an.superCols)-1] < maxWidth &&
			an.parent[j-1] == j &&
			nChildren[j] == 1 &&
			len(colStruct[j-1]) == len(colStruct[j])+1
		if !extends {
			an.superCols = append(an.superCols, j)
		}
		an.colToSuper[j] = len(an.superCols) - 1
	}
	an.superCols = append(an.superCols, n)
	ns := an.NumSupernodes()

	// Off-diagonal rows and storage layout.
	an.rowBegin = make([]int, ns+1)
	an.rowOffset = make([]int, ns)
	an.rowStride = make([]int, ns)
	for s := range ns {
		last := an.superCols[s+1] - 1
		for _, r := range colStruct[last] {
			an.superRowIdx = append(an.superRowIdx, int32(r))
		}
		an.rowBegin[s+1] = len(an.superRowIdx)

		w := an.width(s)
		an.rowStride[s] = hwy.AlignedSize(w)
		an.rowOffset[s] = an.storageSize
		an.storageSize += (w + an.offdiag(s)) * an.rowStride[s]
	}

	// Supernodal tree, levels and update lists.
	an.superParent = make([]int, ns)
	level := make([]int, ns)
	an.updaters = make([][]int, ns)
	numLevels := 0
	for s := range ns {
		an.superParent[s] = -1
		rows := an.rows(s)
		if len(rows) > 0 {
			p := an.colToSuper[rows[0]]
			an.superParent[s] = p
			level[p] = max(level[p], level[s]+1)
		}
		numLevels = max(numLevels, level[s]+1)

		prev := -1
		for _, r := range rows {
			if t := an.colToSuper[r]; t != prev {
				an.updaters[t] = append(an.updaters[t], s)
				prev = t
			}
		}
	}
	an.levels = make([][]int, numLevels)
	for s, l := range level {
		an.levels[l] = append(an.levels[l], s)
	}

	log.Debug().
		Int("n", n).
		Int("nnz", a.NNZ()).
		Int("supernodes", ns).
		Int("levels", numLevels).
		Int("factorNonzeros", an.FactorNonzeros()).
		Int("storage", an.storageSize).
		Msg("spchol: symbolic analysis")
	return an, nil
}

// columnStructure computes the row pattern of every column of L below the
// diagonal, fills in the elimination tree and counts each column's children.
func columnStructure(a *Matrix, parent []int) (colStruct [][]int, nChildren []int) {
	n := a.n
	colStruct = make([][]int, n)
	children := make([][]int, n)
	mark := make([]int, n)
	for i := range mark {
		mark[i] = -1
	}

	for j := range n {
		var rows []int
		add := func(r int) {
			if r > j && mark[r] != j {
				mark[r] = j
				rows = append(rows, r)
			}
		}
		for _, r := range a.rowIdx[a.colPtr[j]:a.colPtr[j+1]] {
			add(r)
		}
		for _, c := range children[j] {
			for _, r := range colStruct[c] {
				add(r)
			}
		}
		slices.Sort(rows)
		colStruct[j] = rows

		parent[j] = -1
		if len(rows) > 0 {
			parent[j] = rows[0]
			children[rows[0]] = append(children[rows[0]], j)
		}
	}

	nChildren = make([]int, n)
	for j, c := range children {
		nChildren[j] = len(c)
	}
	return colStruct, nChildren
}

// N returns the dimension of the analyzed pattern.
func (an *Analysis) N() int { return an.n }

// NumSupernodes returns the number of supernodes.
func (an *Analysis) NumSupernodes() int { return len(an.superCols) - 1 }

// NumLevels returns the height of the supernodal elimination tree. Supernodes
// on one level are independent of each other.
func (an *Analysis) NumLevels() int { return len(an.levels) }

// SupernodeColumns returns the column range [start, end) of supernode s.
func (an *Analysis) SupernodeColumns(s int) (start, end int) {
	return an.superCols[s], an.superCols[s+1]
}

// EliminationTree returns the parent of every column, -1 for roots.
func (an *Analysis) EliminationTree() []int { return slices.Clone(an.parent) }

// FactorNonzeros returns the number of nonzeros in the lower factor,
// diagonal included.
func (an *Analysis) FactorNonzeros() int {
	nnz := 0
	for s := range an.NumSupernodes() {
		w := an.width(s)
		nnz += w*(w+1)/2 + w*an.offdiag(s)
	}
	return nnz
}

func (an *Analysis) width(s int) int { return an.superCols[s+1] - an.superCols[s] }

func (an *Analysis) offdiag(s int) int { return an.rowBegin[s+1] - an.rowBegin[s] }

func (an *Analysis) rows(s int) []int32 { return an.superRowIdx[an.rowBegin[s]:an.rowBegin[s+1]] }

// String summarizes the analysis for logs and the command line.
func (an *Analysis) String() string {
	return fmt.Sprintf("n=%d supernodes=%d levels=%d factor-nnz=%d",
		an.n, an.NumSupernodes(), an.NumLevels(), an.FactorNonzeros())
}
