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
	"github.com/grailbio/base/simd"
)

// Max returns the largest element of x[:n], or 0 when n <= 0.
func Max(n int, x []float64) float64 {
	if n <= 0 {
		return 0
	}
	if n >= elementwiseThreshold && hwy.HasVector256() {
		return maxVector(n, x)
	}
	return maxScalar(n, x)
}

func maxScalar(n int, x []float64) float64 {
	m := x[0]
	for i := 1; i < n; i++ {
		if x[i] > m {
			m = x[i]
		}
	}
	return m
}

func maxVector(n int, x []float64) float64 {
	acc := hwy.LoadFloat64x4(x)
	i := 4
	for ; i+4 <= n; i += 4 {
		acc = acc.Max(hwy.LoadFloat64x4(x[i:]))
	}
	m := acc.ReduceMax()
	for ; i < n; i++ {
		if x[i] > m {
			m = x[i]
		}
	}
	return m
}

// MaxAbs returns the largest absolute value in x[:n], or 0 when n <= 0.
func MaxAbs(n int, x []float64) float64 {
	if n <= 0 {
		return 0
	}
	if n >= elementwiseThreshold && hwy.HasVector256() {
		return maxAbsVector(n, x)
	}
	return maxAbsScalar(n, x)
}

func maxAbsScalar(n int, x []float64) float64 {
	var m float64
	for i := range n {
		v := x[i]
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

func maxAbsVector(n int, x []float64) float64 {
	var acc hwy.Float64x4
	i := 0
	for ; i+4 <= n; i += 4 {
		acc = acc.Max(hwy.LoadFloat64x4(x[i:]).Abs())
	}
	m := acc.ReduceMax()
	for ; i < n; i++ {
		v := x[i]
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

// RowMax returns the largest of the first n elements of row i of the
// row-major matrix a with the given stride.
func RowMax(n int, a []float64, i, stride int) float64 {
	return Max(n, a[i*stride:])
}

// FirstNonFinite returns the index of the first NaN or infinite element of
// x[:n], or -1 when all of them are finite.
func FirstNonFinite(n int, x []float64) int {
	if n <= 0 {
		return -1
	}
	return simd.FindNaNOrInf64(x[:n])
}
