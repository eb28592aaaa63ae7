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

// Package hwy provides runtime CPU dispatch and a portable 256-bit lane type
// for the numeric kernels in hwy/contrib.
//
// The capability flag is detected once at process start (see CurrentLevel and
// HasVector256). Kernels compare their operand size against a per-kernel
// threshold and consult HasVector256 to choose between a vectorized fast path
// and a scalar fallback. The scalar fallback is the canonical reference; the
// fast path must agree with it bit-for-bit for elementwise operations.
//
// Basic usage:
//
//	import "github.com/gncnum/linalg/hwy"
//
//	a := hwy.LoadFloat64x4(x[i:])
//	b := hwy.LoadFloat64x4(y[i:])
//	a.Mul(b).Store(z[i:])
//
// Float64x4 is the only place where kernels step outside plain scalar loops:
// code written against it processes four doubles per step, which is the shape
// of a 256-bit register and what the Go compiler turns into straight-line,
// bounds-check-free code.
package hwy

// Lanes64 is the number of float64 lanes in one 256-bit vector.
const Lanes64 = 4

// Float64x4 holds four float64 lanes, the contents of one 256-bit register.
type Float64x4 [Lanes64]float64

// LoadFloat64x4 loads the first four elements of src.
// src must hold at least four elements.
func LoadFloat64x4(src []float64) Float64x4 {
	return Float64x4(src[:Lanes64])
}

// BroadcastFloat64x4 returns a vector with all lanes set to x.
func BroadcastFloat64x4(x float64) Float64x4 {
	return Float64x4{x, x, x, x}
}

// Store writes the four lanes to dst[0:4].
func (v Float64x4) Store(dst []float64) {
	*(*[Lanes64]float64)(dst[:Lanes64]) = v
}

// StoreN writes the first n lanes to dst.
func (v Float64x4) StoreN(dst []float64, n int) {
	copy(dst[:n], v[:n])
}

// LoadFloat64x4N loads n < 4 elements of src and zero-fills the rest.
func LoadFloat64x4N(src []float64, n int) Float64x4 {
	var v Float64x4
	copy(v[:n], src[:n])
	return v
}
