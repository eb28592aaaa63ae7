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
	"math"
	"math/rand/v2"
	"slices"
	"testing"
)

var testSizes = []int{0, 1, 3, 4, 5, 7, 8, 9, 15, 16, 17, 31, 33, 64, 100}

func randVec(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 2*rng.Float64() - 1
	}
	return v
}

// nonZeroVec returns values with magnitude in [0.5, 1.5).
func nonZeroVec(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 0.5 + rng.Float64()
		if rng.IntN(2) == 0 {
			v[i] = -v[i]
		}
	}
	return v
}

func bitsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// TestElementwiseBitIdentical runs every in-place kernel through both paths
// on the same input and requires identical bits.
func TestElementwiseBitIdentical(t *testing.T) {
	type kernel struct {
		name           string
		minN           int
		scalar, vector func(n int, x, z, y []float64)
	}
	const alpha = 0.7310585786300049
	kernels := []kernel{
		{"Axpy", 0,
			func(n int, x, _, y []float64) { axpyScalar(n, alpha, x, y) },
			func(n int, x, _, y []float64) { axpyVector(n, alpha, x, y) }},
		{"AxpyTo", 0,
			func(n int, x, z, y []float64) { axpyToScalar(n, alpha, x, z, y) },
			func(n int, x, z, y []float64) { axpyToVector(n, alpha, x, z, y) }},
		{"MulAdd", 0, mulAddScalar, mulAddVector},
		{"NegMulAdd", 0, negMulAddScalar, negMulAddVector},
		{"Scale", 0,
			func(n int, _, _, y []float64) { scaleScalar(n, alpha, y) },
			func(n int, _, _, y []float64) { scaleVector(n, alpha, y) }},
		{"MergeMul", 8,
			func(n int, x, _, y []float64) { mergeMulScalar(n, x, y) },
			func(n int, x, _, y []float64) { mergeMulVector(n, x, y) }},
		{"MergeDiv", 0,
			func(n int, x, _, y []float64) { mergeDivScalar(n, x, y) },
			func(n int, x, _, y []float64) { mergeDivVector(n, x, y) }},
		{"MergeMax", 0,
			func(n int, x, _, y []float64) { mergeMaxScalar(n, x, y) },
			func(n int, x, _, y []float64) { mergeMaxVector(n, x, y) }},
		{"MergeMin", 0,
			func(n int, x, _, y []float64) { mergeMinScalar(n, x, y) },
			func(n int, x, _, y []float64) { mergeMinVector(n, x, y) }},
		{"Set", 0,
			func(n int, _, _, y []float64) { setScalar(n, alpha, y) },
			func(n int, _, _, y []float64) { setVector(n, alpha, y) }},
		{"CopyWithScale", 8,
			func(n int, x, _, y []float64) { copyWithScaleScalar(n, alpha, x, y) },
			func(n int, x, _, y []float64) { copyWithScaleVector(n, alpha, x, y) }},
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for _, k := range kernels {
		t.Run(k.name, func(t *testing.T) {
			for _, n := range testSizes {
				if n < k.minN {
					continue
				}
				x := nonZeroVec(rng, n)
				z := randVec(rng, n)
				y := randVec(rng, n)

				ys := slices.Clone(y)
				yv := slices.Clone(y)
				k.scalar(n, x, z, ys)
				k.vector(n, x, z, yv)
				if !bitsEqual(ys, yv) {
					t.Errorf("n=%d: scalar and vector paths differ\nscalar: %v\nvector: %v", n, ys, yv)
				}
			}
		})
	}
}

func TestPublicKernelsMatchScalar(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for _, n := range testSizes {
		x := nonZeroVec(rng, n+2)
		y := randVec(rng, n+2)

		got := slices.Clone(y)
		want := slices.Clone(y)
		Axpy(n, -1.5, x, got)
		axpyScalar(n, -1.5, x, want)
		if !bitsEqual(got, want) {
			t.Errorf("Axpy n=%d: got %v, want %v", n, got, want)
		}

		got = slices.Clone(y)
		want = slices.Clone(y)
		MergeMul(n, x, got)
		mergeMulScalar(n, x, want)
		if !bitsEqual(got, want) {
			t.Errorf("MergeMul n=%d: got %v, want %v", n, got, want)
		}

		got = slices.Clone(y)
		want = slices.Clone(y)
		CopyWithScale(n, 3, x, got)
		copyWithScaleScalar(n, 3, x, want)
		if !bitsEqual(got, want) {
			t.Errorf("CopyWithScale n=%d: got %v, want %v", n, got, want)
		}

		got = slices.Clone(y)
		Copy(n, x, got)
		if !slices.Equal(got[:n], x[:n]) || !slices.Equal(got[n:], y[n:]) {
			t.Errorf("Copy n=%d wrote outside [0, n) or copied wrong values", n)
		}
	}
}

func TestKernelsLeaveTailUntouched(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	y := make([]float64, 12)
	for i := range y {
		y[i] = -1
	}
	Set(9, 5, y)
	for i, v := range y {
		want := 5.0
		if i >= 9 {
			want = -1
		}
		if v != want {
			t.Errorf("Set: y[%d] = %v, want %v", i, v, want)
		}
	}
	MergeMax(10, x, y)
	if y[8] != 9 || y[9] != 10 || y[10] != -1 {
		t.Errorf("MergeMax tail = %v", y[8:])
	}
}

func TestMergeMaxMinStrict(t *testing.T) {
	// Equal elements keep the original, so -0 stays -0 against +0.
	negZero := math.Copysign(0, -1)
	for _, n := range []int{1, 8} {
		y := make([]float64, n)
		x := make([]float64, n)
		for i := range y {
			y[i] = negZero
		}
		MergeMax(n, x, y)
		MergeMin(n, x, y)
		for i := range y {
			if !math.Signbit(y[i]) {
				t.Errorf("n=%d: y[%d] replaced by an equal value", n, i)
			}
		}
	}
}

func TestDot(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for _, n := range testSizes {
		x := randVec(rng, n)
		y := randVec(rng, n)

		want := dotScalar(n, x, y)
		var scale float64
		for i := range n {
			scale += math.Abs(x[i] * y[i])
		}
		tol := 1e-12 * math.Max(scale, 1)

		if got := Dot(n, x, y); math.Abs(got-want) > tol {
			t.Errorf("Dot n=%d: got %v, want %v", n, got, want)
		}
		if got := dotLanes(n, x, y); math.Abs(got-want) > tol {
			t.Errorf("dotLanes n=%d: got %v, want %v", n, got, want)
		}
		if n >= dotThreshold {
			if got := dotVector(n, x, y); math.Abs(got-want) > tol {
				t.Errorf("dotVector n=%d: got %v, want %v", n, got, want)
			}
		}
		if got, want := DotSquared(n, x), dotScalar(n, x, x); math.Abs(got-want) > 1e-12*math.Max(want, 1) {
			t.Errorf("DotSquared n=%d: got %v, want %v", n, got, want)
		}
	}
}

func TestDotEmpty(t *testing.T) {
	if got := Dot(0, nil, nil); got != 0 {
		t.Errorf("Dot(0) = %v, want 0", got)
	}
}

func BenchmarkDot(b *testing.B) {
	rng := rand.New(rand.NewPCG(7, 8))
	x := randVec(rng, 1024)
	y := randVec(rng, 1024)
	b.Run("Dispatch", func(b *testing.B) {
		for b.Loop() {
			Dot(len(x), x, y)
		}
	})
	b.Run("Scalar", func(b *testing.B) {
		for b.Loop() {
			dotScalar(len(x), x, y)
		}
	})
	b.Run("Lanes", func(b *testing.B) {
		for b.Loop() {
			dotLanes(len(x), x, y)
		}
	})
}

func BenchmarkAxpy(b *testing.B) {
	rng := rand.New(rand.NewPCG(9, 10))
	x := randVec(rng, 1024)
	y := randVec(rng, 1024)
	b.Run("Scalar", func(b *testing.B) {
		for b.Loop() {
			axpyScalar(len(x), 1e-9, x, y)
		}
	})
	b.Run("Vector", func(b *testing.B) {
		for b.Loop() {
			axpyVector(len(x), 1e-9, x, y)
		}
	})
}
