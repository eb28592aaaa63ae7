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

// FullChunks returns the number of elements of an n-element operand covered
// by whole vectors of the given lane count; n - FullChunks(n, lanes) elements
// are left for the scalar tail loop.
func FullChunks(n, lanes int) int {
	return n - n%lanes
}

// AlignedSize rounds up size to the next multiple of the 256-bit float64
// vector width. Packed buffers are sized with it so that vector loads never
// run past the logical operand.
func AlignedSize(size int) int {
	return (size + Lanes64 - 1) / Lanes64 * Lanes64
}

// IsAligned returns true if size is a multiple of the vector width.
func IsAligned(size int) bool {
	return size%Lanes64 == 0
}
