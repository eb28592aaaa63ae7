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

package hwy

import "math"

// Lane-wise operations on Float64x4.
//
// Products are rounded before they are added (float64(a*b) + c) so that the
// compiler never contracts them into FMA instructions. Scalar fallbacks write
// the same expression, which keeps elementwise kernels bit-identical between
// the two paths on every architecture.

// Add performs element-wise addition.
func (v Float64x4) Add(w Float64x4) Float64x4 {
	return Float64x4{v[0] + w[0], v[1] + w[1], v[2] + w[2], v[3] + w[3]}
}

// Sub performs element-wise subtraction.
func (v Float64x4) Sub(w Float64x4) Float64x4 {
	return Float64x4{v[0] - w[0], v[1] - w[1], v[2] - w[2], v[3] - w[3]}
}

// Mul performs element-wise multiplication.
func (v Float64x4) Mul(w Float64x4) Float64x4 {
	return Float64x4{v[0] * w[0], v[1] * w[1], v[2] * w[2], v[3] * w[3]}
}

// Div performs element-wise division.
func (v Float64x4) Div(w Float64x4) Float64x4 {
	return Float64x4{v[0] / w[0], v[1] / w[1], v[2] / w[2], v[3] / w[3]}
}

// MulAdd computes v*w + acc with the product rounded first.
func (v Float64x4) MulAdd(w, acc Float64x4) Float64x4 {
	return Float64x4{
		float64(v[0]*w[0]) + acc[0],
		float64(v[1]*w[1]) + acc[1],
		float64(v[2]*w[2]) + acc[2],
		float64(v[3]*w[3]) + acc[3],
	}
}

// NegMulAdd computes acc - v*w with the product rounded first.
func (v Float64x4) NegMulAdd(w, acc Float64x4) Float64x4 {
	return Float64x4{
		acc[0] - float64(v[0]*w[0]),
		acc[1] - float64(v[1]*w[1]),
		acc[2] - float64(v[2]*w[2]),
		acc[3] - float64(v[3]*w[3]),
	}
}

// Scale multiplies every lane by s.
func (v Float64x4) Scale(s float64) Float64x4 {
	return Float64x4{v[0] * s, v[1] * s, v[2] * s, v[3] * s}
}

// Max returns the lane-wise maximum: a lane of w replaces v only when it
// compares greater, the same rule the scalar kernels apply.
func (v Float64x4) Max(w Float64x4) Float64x4 {
	for i := range v {
		if w[i] > v[i] {
			v[i] = w[i]
		}
	}
	return v
}

// Min returns the lane-wise minimum.
func (v Float64x4) Min(w Float64x4) Float64x4 {
	for i := range v {
		if w[i] < v[i] {
			v[i] = w[i]
		}
	}
	return v
}

// Abs clears the sign of every lane, including negative zero.
func (v Float64x4) Abs() Float64x4 {
	return Float64x4{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2]), math.Abs(v[3])}
}

// ReduceSum returns the horizontal sum of the lanes, pairing (0+1)+(2+3)
// as a 256-bit horizontal add does.
func (v Float64x4) ReduceSum() float64 {
	return (v[0] + v[1]) + (v[2] + v[3])
}

// ReduceMax returns the largest lane.
func (v Float64x4) ReduceMax() float64 {
	m01 := v[0]
	if v[1] > m01 {
		m01 = v[1]
	}
	m23 := v[2]
	if v[3] > m23 {
		m23 = v[3]
	}
	if m23 > m01 {
		return m23
	}
	return m01
}
