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

	"github.com/gncnum/linalg/hwy/contrib/ablas"
	"github.com/gncnum/linalg/hwy/contrib/sharedpool"
	"github.com/gncnum/linalg/hwy/contrib/spchol"
	"github.com/gncnum/linalg/hwy/contrib/workerpool"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/traverse"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type factorFlags struct {
	n        int
	band     int
	density  float64
	width    int
	mode     string
	workers  int
	trials   int
	rhs      int
	parallel int
	seed     uint64
}

type trialResult struct {
	factor   time.Duration
	solve    time.Duration
	residual float64
}

func newFactorCmd() *cobra.Command {
	var fl factorFlags
	cmd := &cobra.Command{
		Use:   "factor",
		Short: "Factor and solve a random banded symmetric positive definite matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFactor(cmd.Context(), cmd.OutOrStdout(), fl)
		},
	}
	f := cmd.Flags()
	f.IntVar(&fl.n, "n", 1000, "matrix dimension")
	f.IntVar(&fl.band, "band", 8, "half bandwidth")
	f.Float64Var(&fl.density, "density", 0.6, "probability that an entry inside the band is nonzero")
	f.IntVar(&fl.width, "width", spchol.DefaultMaxSupernodeWidth, "maximum supernode width")
	f.StringVar(&fl.mode, "mode", "cholesky", "factorization: cholesky or ldlt")
	f.IntVar(&fl.workers, "workers", 0, "factorization workers, 0 for GOMAXPROCS, 1 for serial")
	f.IntVar(&fl.trials, "trials", 4, "number of factorizations")
	f.IntVar(&fl.rhs, "rhs", 4, "right-hand sides solved per trial")
	f.IntVar(&fl.parallel, "parallel", 1, "trials run concurrently")
	f.Uint64Var(&fl.seed, "seed", 1, "random seed")
	return cmd
}

func parseMode(s string) (spchol.Mode, error) {
	for _, m := range []spchol.Mode{spchol.ModeCholesky, spchol.ModeLDLT} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errors.E(errors.Invalid, fmt.Sprintf("factor: unknown mode %q", s))
}

// bandedSPD returns a random symmetric matrix with the given half bandwidth
// whose diagonal dominates each row, so it is positive definite.
func bandedSPD(n, band int, density float64, seed uint64) (*spchol.Matrix, error) {
	rng := rand.New(rand.NewPCG(seed, 0xda3e39cb94b95bdb))
	var rows, cols []int
	var vals []float64
	rowSum := make([]float64, n)
	for j := range n {
		for i := j + 1; i < min(n, j+band+1); i++ {
			if rng.Float64() >= density {
				continue
			}
			v := 2*rng.Float64() - 1
			rows, cols, vals = append(rows, i), append(cols, j), append(vals, v)
			rowSum[i] += math.Abs(v)
			rowSum[j] += math.Abs(v)
		}
	}
	for i := range n {
		rows, cols, vals = append(rows, i), append(cols, i), append(vals, rowSum[i]+1)
	}
	return spchol.NewFromTriplets(n, rows, cols, vals)
}

func runFactor(ctx context.Context, w io.Writer, fl factorFlags) error {
	if fl.n < 1 || fl.band < 0 || fl.trials < 1 || fl.rhs < 1 || fl.parallel < 1 {
		return errors.E(errors.Invalid, "factor: --n, --trials, --rhs and --parallel must be positive and --band non-negative")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	mode, err := parseMode(fl.mode)
	if err != nil {
		return err
	}
	a, err := bandedSPD(fl.n, fl.band, fl.density, fl.seed)
	if err != nil {
		return err
	}

	opts := spchol.Options{Mode: mode, MaxSupernodeWidth: fl.width}
	start := time.Now()
	an, err := spchol.Analyze(a, opts)
	if err != nil {
		return err
	}
	analyzeTime := time.Since(start)
	log.Info().Int("n", fl.n).Int("nnz", a.NNZ()).Stringer("analysis", an).Dur("elapsed", analyzeTime).Msg("analyzed")

	opts.Workers = workerpool.New(fl.workers)
	defer opts.Workers.Close()
	opts.Scratch = new(sharedpool.Pool)
	opts.Scratch.SetSeed(&sharedpool.SupernodeScratch{})

	results := make([]trialResult, fl.trials)
	err = traverse.Limit(fl.parallel).Each(fl.trials, func(i int) error {
		res, err := runTrial(ctx, an, a, opts, fl.rhs, fl.seed+uint64(i))
		if err != nil {
			return errors.E(fmt.Sprintf("factor: trial %d", i), err)
		}
		results[i] = res
		log.Debug().Int("trial", i).Dur("factor", res.factor).Float64("residual", res.residual).Msg("trial done")
		return nil
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "n\tnnz(A)\tnnz(L)\tsupernodes\tlevels\tmode\t\n")
	fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\t\n\n", an.N(), a.NNZ(), an.FactorNonzeros(), an.NumSupernodes(), an.NumLevels(), mode)
	fmt.Fprintf(tw, "trial\tfactor\tsolve\tresidual\t\n")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%v\t%v\t%.1e\t\n", i, r.factor, r.solve, r.residual)
	}
	return tw.Flush()
}

// residualBatch is the number of right-hand sides a worker checks per claim.
const residualBatch = 4

// runTrial factors a, solves against nRHS random right-hand sides and returns
// the worst relative residual |A·x - b|∞ / |b|∞.
func runTrial(ctx context.Context, an *spchol.Analysis, a *spchol.Matrix, opts spchol.Options, nRHS int, seed uint64) (trialResult, error) {
	var res trialResult
	start := time.Now()
	f, err := spchol.Factorize(ctx, an, a, opts)
	if err != nil {
		return res, err
	}
	res.factor = time.Since(start)

	n := a.N()
	rng := rand.New(rand.NewPCG(seed, 0x2545f4914f6cdd1d))
	rhs := make([][]float64, nRHS)
	for k := range rhs {
		rhs[k] = make([]float64, n)
		for i := range rhs[k] {
			rhs[k][i] = 2*rng.Float64() - 1
		}
	}
	start = time.Now()
	xs, err := f.SolveAll(opts.Workers, rhs)
	if err != nil {
		return res, err
	}
	res.solve = time.Since(start)

	residuals := make([]float64, nRHS)
	opts.Workers.ParallelForAtomicBatched(nRHS, residualBatch, func(lo, hi int) {
		ax := make([]float64, n)
		for k := lo; k < hi; k++ {
			a.MulVec(xs[k], ax)
			ablas.Axpy(n, -1, rhs[k], ax)
			residuals[k] = ablas.MaxAbs(n, ax) / ablas.MaxAbs(n, rhs[k])
		}
	})
	for _, r := range residuals {
		if r > 1e-8 || math.IsNaN(r) {
			return res, errors.E(errors.Integrity, fmt.Sprintf("residual %g too large", r))
		}
		res.residual = max(res.residual, r)
	}
	return res, nil
}
