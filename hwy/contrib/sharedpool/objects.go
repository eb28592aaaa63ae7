// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

package sharedpool

import (
	"slices"

	"github.com/grailbio/base/must"
)

// Object is a poolable scratch object. The set of kinds is closed: only the
// types declared in this file implement it, and Copy knows how to deep-copy
// each of them.
type Object interface {
	poolObject()
}

// RealVector is a pooled float64 buffer.
type RealVector struct {
	Data []float64
}

// IntVector is a pooled int32 index buffer.
type IntVector struct {
	Data []int32
}

// SupernodeScratch is the per-worker state of the supernodal factorization:
// a raw-to-supernode row map, a dense update block for updates the
// fixed-shape kernels decline, and SIMD-padded accumulator slots for the
// triangular solves.
type SupernodeScratch struct {
	Raw2SMap []int32
	Update   []float64
	Accum    []float64
}

func (*RealVector) poolObject()       {}
func (*IntVector) poolObject()        {}
func (*SupernodeScratch) poolObject() {}

// NewRealVector returns a zeroed RealVector of length n.
func NewRealVector(n int) *RealVector {
	return &RealVector{Data: make([]float64, n)}
}

// NewIntVector returns a zeroed IntVector of length n.
func NewIntVector(n int) *IntVector {
	return &IntVector{Data: make([]int32, n)}
}

// Grow makes sure Data holds at least n elements, keeping its contents.
func (v *RealVector) Grow(n int) {
	if len(v.Data) < n {
		v.Data = slices.Grow(v.Data, n-len(v.Data))[:n]
	}
}

// Grow makes sure Data holds at least n elements, keeping its contents.
func (v *IntVector) Grow(n int) {
	if len(v.Data) < n {
		v.Data = slices.Grow(v.Data, n-len(v.Data))[:n]
	}
}

// Reserve makes sure the scratch buffers hold at least nRaw, nUpdate and
// nAccum elements. Contents are not preserved.
func (s *SupernodeScratch) Reserve(nRaw, nUpdate, nAccum int) {
	if len(s.Raw2SMap) < nRaw {
		s.Raw2SMap = make([]int32, nRaw)
	}
	if len(s.Update) < nUpdate {
		s.Update = make([]float64, nUpdate)
	}
	if len(s.Accum) < nAccum {
		s.Accum = make([]float64, nAccum)
	}
}

// Copy returns a deep copy of obj. Copy(nil) is nil.
func Copy(obj Object) Object {
	switch o := obj.(type) {
	case nil:
		return nil
	case *RealVector:
		return &RealVector{Data: slices.Clone(o.Data)}
	case *IntVector:
		return &IntVector{Data: slices.Clone(o.Data)}
	case *SupernodeScratch:
		return &SupernodeScratch{
			Raw2SMap: slices.Clone(o.Raw2SMap),
			Update:   slices.Clone(o.Update),
			Accum:    slices.Clone(o.Accum),
		}
	default:
		must.Neverf("sharedpool: unknown object kind %T", obj)
		return nil
	}
}
