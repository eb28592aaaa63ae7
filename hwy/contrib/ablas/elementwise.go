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
	"github.com/cwbudde/algo-vecmath"
	"github.com/gncnum/linalg/hwy"
	"github.com/tphakala/simd/f64"
)

// MergeMul computes y[:n] *= x[:n] elementwise.
func MergeMul(n int, x, y []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		mergeMulVector(n, x, y)
		return
	}
	mergeMulScalar(n, x, y)
}

func mergeMulScalar(n int, x, y []float64) {
	for i := range n {
		y[i] *= x[i]
	}
}

func mergeMulVector(n int, x, y []float64) {
	vecmath.MulBlockInPlace(y[:n], x[:n])
}

// MergeDiv computes y[:n] /= x[:n] elementwise.
func MergeDiv(n int, x, y []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		mergeDivVector(n, x, y)
		return
	}
	mergeDivScalar(n, x, y)
}

func mergeDivScalar(n int, x, y []float64) {
	for i := range n {
		y[i] /= x[i]
	}
}

func mergeDivVector(n int, x, y []float64) {
	i := 0
	for ; i+4 <= n; i += 4 {
		hwy.LoadFloat64x4(y[i:]).Div(hwy.LoadFloat64x4(x[i:])).Store(y[i:])
	}
	for ; i < n; i++ {
		y[i] /= x[i]
	}
}

// MergeMax sets y[i] = x[i] wherever x[i] > y[i].
func MergeMax(n int, x, y []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		mergeMaxVector(n, x, y)
		return
	}
	mergeMaxScalar(n, x, y)
}

func mergeMaxScalar(n int, x, y []float64) {
	for i := range n {
		if x[i] > y[i] {
			y[i] = x[i]
		}
	}
}

func mergeMaxVector(n int, x, y []float64) {
	i := 0
	for ; i+4 <= n; i += 4 {
		hwy.LoadFloat64x4(y[i:]).Max(hwy.LoadFloat64x4(x[i:])).Store(y[i:])
	}
	for ; i < n; i++ {
		if x[i] > y[i] {
			y[i] = x[i]
		}
	}
}

// MergeMin sets y[i] = x[i] wherever x[i] < y[i].
func MergeMin(n int, x, y []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		mergeMinVector(n, x, y)
		return
	}
	mergeMinScalar(n, x, y)
}

func mergeMinScalar(n int, x, y []float64) {
	for i := range n {
		if x[i] < y[i] {
			y[i] = x[i]
		}
	}
}

func mergeMinVector(n int, x, y []float64) {
	i := 0
	for ; i+4 <= n; i += 4 {
		hwy.LoadFloat64x4(y[i:]).Min(hwy.LoadFloat64x4(x[i:])).Store(y[i:])
	}
	for ; i < n; i++ {
		if x[i] < y[i] {
			y[i] = x[i]
		}
	}
}

// Set fills x[:n] with v.
func Set(n int, v float64, x []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		setVector(n, v, x)
		return
	}
	setScalar(n, v, x)
}

func setScalar(n int, v float64, x []float64) {
	for i := range n {
		x[i] = v
	}
}

func setVector(n int, v float64, x []float64) {
	vv := hwy.BroadcastFloat64x4(v)
	i := 0
	for ; i+4 <= n; i += 4 {
		vv.Store(x[i:])
	}
	for ; i < n; i++ {
		x[i] = v
	}
}

// Copy copies x[:n] into y[:n]. The ranges must not overlap.
func Copy(n int, x, y []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		copy(y[:n], x[:n])
		return
	}
	copyScalar(n, x, y)
}

func copyScalar(n int, x, y []float64) {
	for i := range n {
		y[i] = x[i]
	}
}

// CopyWithScale computes y[:n] = alpha*x[:n]. The ranges must not overlap.
func CopyWithScale(n int, alpha float64, x, y []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		copyWithScaleVector(n, alpha, x, y)
		return
	}
	copyWithScaleScalar(n, alpha, x, y)
}

func copyWithScaleScalar(n int, alpha float64, x, y []float64) {
	for i := range n {
		y[i] = alpha * x[i]
	}
}

func copyWithScaleVector(n int, alpha float64, x, y []float64) {
	f64.Scale(y[:n], x[:n], alpha)
}
