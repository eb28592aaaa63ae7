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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--log-level", "warn"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "dispatch level:")
	assert.Contains(t, out, "256-bit kernels:")
}

func TestGemm(t *testing.T) {
	out, err := execute(t, "gemm", "--max", "6", "--reps", "2", "--parallel", "3")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Contains(t, lines[0], "GFLOP/s")
}

func TestGemmInvalid(t *testing.T) {
	_, err := execute(t, "gemm", "--max", "0")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestFactor(t *testing.T) {
	for _, mode := range []string{"cholesky", "ldlt"} {
		t.Run(mode, func(t *testing.T) {
			out, err := execute(t, "factor", "--n", "60", "--band", "5", "--trials", "3",
				"--parallel", "2", "--workers", "2", "--rhs", "6", "--mode", mode)
			require.NoError(t, err)
			assert.Contains(t, out, "supernodes")
			assert.Contains(t, out, mode)
		})
	}
}

func TestFactorSerial(t *testing.T) {
	_, err := execute(t, "factor", "--n", "17", "--band", "0", "--trials", "1", "--workers", "1")
	require.NoError(t, err)
}

func TestFactorInvalidRHS(t *testing.T) {
	_, err := execute(t, "factor", "--n", "10", "--rhs", "0")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestFactorBadMode(t *testing.T) {
	_, err := execute(t, "factor", "--n", "10", "--mode", "lu")
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestBadLogLevel(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--log-level", "loud", "info"})
	require.Error(t, cmd.Execute())
}
