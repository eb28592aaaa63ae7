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
	"github.com/tphakala/simd/f64"
)

// Dot returns the dot product of x[:n] and y[:n].
func Dot(n int, x, y []float64) float64 {
	if n >= dotThreshold && hwy.HasVector256() {
		return dotVector(n, x, y)
	}
	return dotScalar(n, x, y)
}

// DotSquared returns the squared Euclidean norm of x[:n], that is x·x.
func DotSquared(n int, x []float64) float64 {
	if n >= dotThreshold && hwy.HasVector256() {
		return dotVector(n, x, x)
	}
	return dotScalar(n, x, x)
}

func dotScalar(n int, x, y []float64) float64 {
	var sum float64
	for i := range n {
		sum += x[i] * y[i]
	}
	return sum
}

func dotVector(n int, x, y []float64) float64 {
	return f64.DotProductUnsafe(x[:n], y[:n])
}

// dotLanes is the Float64x4 dot product used by kernels that need the
// reduction order of the packed GEMM tiles.
func dotLanes(n int, x, y []float64) float64 {
	var acc0, acc1 hwy.Float64x4
	i := 0
	for ; i+8 <= n; i += 8 {
		acc0 = hwy.LoadFloat64x4(x[i:]).MulAdd(hwy.LoadFloat64x4(y[i:]), acc0)
		acc1 = hwy.LoadFloat64x4(x[i+4:]).MulAdd(hwy.LoadFloat64x4(y[i+4:]), acc1)
	}
	if i+4 <= n {
		acc0 = hwy.LoadFloat64x4(x[i:]).MulAdd(hwy.LoadFloat64x4(y[i:]), acc0)
		i += 4
	}
	sum := acc0.Add(acc1).ReduceSum()
	for ; i < n; i++ {
		sum += x[i] * y[i]
	}
	return sum
}

// Axpy computes y[:n] += alpha*x[:n]. y is updated in place.
func Axpy(n int, alpha float64, x, y []float64) {
	if n >= axpyThreshold && hwy.HasVector256() {
		axpyVector(n, alpha, x, y)
		return
	}
	axpyScalar(n, alpha, x, y)
}

func axpyScalar(n int, alpha float64, x, y []float64) {
	for i := range n {
		y[i] += float64(alpha * x[i])
	}
}

func axpyVector(n int, alpha float64, x, y []float64) {
	va := hwy.BroadcastFloat64x4(alpha)
	i := 0
	for ; i+8 <= n; i += 8 {
		y0 := hwy.LoadFloat64x4(y[i:])
		y1 := hwy.LoadFloat64x4(y[i+4:])
		va.MulAdd(hwy.LoadFloat64x4(x[i:]), y0).Store(y[i:])
		va.MulAdd(hwy.LoadFloat64x4(x[i+4:]), y1).Store(y[i+4:])
	}
	if i+4 <= n {
		va.MulAdd(hwy.LoadFloat64x4(x[i:]), hwy.LoadFloat64x4(y[i:])).Store(y[i:])
		i += 4
	}
	for ; i < n; i++ {
		y[i] += float64(alpha * x[i])
	}
}

// AxpyTo computes z[:n] = y[:n] + alpha*x[:n]. z may alias y.
func AxpyTo(n int, alpha float64, x, y, z []float64) {
	if n >= axpyThreshold && hwy.HasVector256() {
		axpyToVector(n, alpha, x, y, z)
		return
	}
	axpyToScalar(n, alpha, x, y, z)
}

func axpyToScalar(n int, alpha float64, x, y, z []float64) {
	for i := range n {
		z[i] = y[i] + float64(alpha*x[i])
	}
}

func axpyToVector(n int, alpha float64, x, y, z []float64) {
	va := hwy.BroadcastFloat64x4(alpha)
	i := 0
	for ; i+4 <= n; i += 4 {
		va.MulAdd(hwy.LoadFloat64x4(x[i:]), hwy.LoadFloat64x4(y[i:])).Store(z[i:])
	}
	for ; i < n; i++ {
		z[i] = y[i] + float64(alpha*x[i])
	}
}

// MulAdd computes y[:n] += x[:n]*z[:n] elementwise.
func MulAdd(n int, x, z, y []float64) {
	if n >= axpyThreshold && hwy.HasVector256() {
		mulAddVector(n, x, z, y)
		return
	}
	mulAddScalar(n, x, z, y)
}

func mulAddScalar(n int, x, z, y []float64) {
	for i := range n {
		y[i] += float64(x[i] * z[i])
	}
}

func mulAddVector(n int, x, z, y []float64) {
	i := 0
	for ; i+4 <= n; i += 4 {
		vx := hwy.LoadFloat64x4(x[i:])
		vx.MulAdd(hwy.LoadFloat64x4(z[i:]), hwy.LoadFloat64x4(y[i:])).Store(y[i:])
	}
	for ; i < n; i++ {
		y[i] += float64(x[i] * z[i])
	}
}

// NegMulAdd computes y[:n] -= x[:n]*z[:n] elementwise.
func NegMulAdd(n int, x, z, y []float64) {
	if n >= axpyThreshold && hwy.HasVector256() {
		negMulAddVector(n, x, z, y)
		return
	}
	negMulAddScalar(n, x, z, y)
}

func negMulAddScalar(n int, x, z, y []float64) {
	for i := range n {
		y[i] -= float64(x[i] * z[i])
	}
}

func negMulAddVector(n int, x, z, y []float64) {
	i := 0
	for ; i+4 <= n; i += 4 {
		vx := hwy.LoadFloat64x4(x[i:])
		vx.NegMulAdd(hwy.LoadFloat64x4(z[i:]), hwy.LoadFloat64x4(y[i:])).Store(y[i:])
	}
	for ; i < n; i++ {
		y[i] -= float64(x[i] * z[i])
	}
}

// Scale computes x[:n] *= alpha.
func Scale(n int, alpha float64, x []float64) {
	if n >= elementwiseThreshold && hwy.HasVector256() {
		scaleVector(n, alpha, x)
		return
	}
	scaleScalar(n, alpha, x)
}

func scaleScalar(n int, alpha float64, x []float64) {
	for i := range n {
		x[i] *= alpha
	}
}

func scaleVector(n int, alpha float64, x []float64) {
	i := 0
	for ; i+4 <= n; i += 4 {
		hwy.LoadFloat64x4(x[i:]).Scale(alpha).Store(x[i:])
	}
	for ; i < n; i++ {
		x[i] *= alpha
	}
}
