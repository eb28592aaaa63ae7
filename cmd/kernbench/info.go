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
	"fmt"

	"github.com/gncnum/linalg/hwy"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the detected dispatch level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "dispatch level:  %s\n", hwy.CurrentName())
			fmt.Fprintf(w, "vector width:    %d bytes\n", hwy.CurrentWidth())
			fmt.Fprintf(w, "256-bit kernels: %v\n", hwy.HasVector256())
			fmt.Fprintf(w, "HWY_NO_SIMD:     %v\n", hwy.NoSimdEnv())
			return nil
		},
	}
}
