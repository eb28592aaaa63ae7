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
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"text/tabwriter"
	"time"

	"github.com/gncnum/linalg/hwy"
	"github.com/gncnum/linalg/hwy/contrib/ablas"
	"github.com/gncnum/linalg/hwy/contrib/workerpool"
	"github.com/grailbio/base/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/blas"
)

type gemmFlags struct {
	max      int
	reps     int
	parallel int
}

type gemmResult struct {
	size   int
	packed bool
	perOp  time.Duration
	maxErr float64
}

func newGemmCmd() *cobra.Command {
	var fl gemmFlags
	cmd := &cobra.Command{
		Use:   "gemm",
		Short: "Check GEMM against a naive product and time it for every square size up to --max",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGemm(cmd.Context(), cmd.OutOrStdout(), fl)
		},
	}
	cmd.Flags().IntVar(&fl.max, "max", 2*ablas.BlockSize, "largest matrix dimension")
	cmd.Flags().IntVar(&fl.reps, "reps", 200, "timed repetitions per size")
	cmd.Flags().IntVar(&fl.parallel, "parallel", 1, "sizes measured concurrently")
	return cmd
}

func runGemm(ctx context.Context, w io.Writer, fl gemmFlags) error {
	if fl.max < 1 || fl.reps < 1 || fl.parallel < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("gemm: --max, --reps and --parallel must be positive (got %d, %d, %d)",
			fl.max, fl.reps, fl.parallel))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool := workerpool.New(fl.parallel)
	defer pool.Close()
	results := make([]gemmResult, fl.max)
	errs := make([]error, fl.max)
	pool.ParallelForAtomic(fl.max, func(i int) {
		if errs[i] = ctx.Err(); errs[i] == nil {
			results[i], errs[i] = benchGemm(i+1, fl.reps)
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "size\tpacked\tns/op\tGFLOP/s\tmax error\t")
	for _, r := range results {
		flops := 2 * math.Pow(float64(r.size), 3)
		fmt.Fprintf(tw, "%d\t%v\t%d\t%.2f\t%.1e\t\n", r.size, r.packed, r.perOp.Nanoseconds(),
			flops/float64(r.perOp.Nanoseconds()), r.maxErr)
	}
	return tw.Flush()
}

// benchGemm checks C := A·B for one square size and times it.
func benchGemm(size, reps int) (gemmResult, error) {
	rng := rand.New(rand.NewPCG(uint64(size), 0x9e3779b97f4a7c15))
	a := make([]float64, size*size)
	b := make([]float64, size*size)
	for i := range a {
		a[i] = 2*rng.Float64() - 1
		b[i] = 2*rng.Float64() - 1
	}
	c := make([]float64, size*size)

	ablas.GEMM(size, size, size, 1, a, size, blas.NoTrans, b, size, blas.NoTrans, 0, c, size)
	var maxErr float64
	for i := range size {
		for j := range size {
			var want float64
			for p := range size {
				want += a[i*size+p] * b[p*size+j]
			}
			maxErr = max(maxErr, math.Abs(c[i*size+j]-want))
		}
	}
	if maxErr > 1e-12*float64(size) {
		return gemmResult{}, errors.E(errors.Integrity, fmt.Sprintf("gemm: size %d differs from the naive product by %g", size, maxErr))
	}

	start := time.Now()
	for range reps {
		ablas.GEMM(size, size, size, 1, a, size, blas.NoTrans, b, size, blas.NoTrans, 0, c, size)
	}
	res := gemmResult{
		size:   size,
		packed: size > 1 && size <= ablas.BlockSize && hwy.HasVector256(),
		perOp:  max(time.Since(start)/time.Duration(reps), time.Nanosecond),
		maxErr: maxErr,
	}
	log.Debug().Int("size", size).Bool("packed", res.packed).Dur("perOp", res.perOp).Msg("gemm measured")
	return res, nil
}
