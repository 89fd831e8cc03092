// Package batch runs several independent hill climbs over the same space in
// parallel and summarizes their outcomes.
//
// Every run owns a generator seeded from the batch seed and its run index,
// so no random state is shared between goroutines and a batch with a fixed
// seed is reproducible regardless of scheduling.
package batch

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/hillclimb"
	"github.com/copyleftdev/bitclimb/internal/optimization/objective"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// DefaultWorkers bounds concurrency when Config.Workers is not positive.
const DefaultWorkers = 4

// Config describes a batch of searches.
type Config struct {
	Space     space.SolutionSpace
	Rounds    int
	Runs      int
	Workers   int
	Seed      int64
	Goal      optimization.Goal
	Objective objective.Func
	Logger    *zap.Logger

	// OnRunDone is called after each successful run with the number of
	// finished runs. Calls are serialized.
	OnRunDone func(done, total int)
}

// Run is the outcome of one search in a batch.
type Run struct {
	Index  int
	Seed   int64
	Result *optimization.OptimizationResult
}

// Summary aggregates the runs of a batch.
type Summary struct {
	Runs             int
	Best             *optimization.Solution
	Worst            *optimization.Solution
	MeanValue        float64
	StdDevValue      float64
	MeanX            float64
	DistinctOptima   int
	TotalMoves       int
	TotalEvaluations int
}

// Report is the outcome of a batch.
type Report struct {
	Runs    []Run
	Summary Summary
}

// Execute runs cfg.Runs searches with at most cfg.Workers in flight. The
// first failing run cancels the others and its error is returned.
func Execute(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Runs < 1 {
		return nil, optimization.NewErrorf(optimization.KindUnknown, "runs must be positive, got %d", cfg.Runs).
			WithComponent("batch").WithOperation("Execute")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	runs := make([]Run, cfg.Runs)
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range runs {
		i := i
		seed := base + int64(i)
		g.Go(func() error {
			climber, err := hillclimb.NewClimber(hillclimb.Config{
				Space:     cfg.Space,
				Rounds:    cfg.Rounds,
				Goal:      cfg.Goal,
				Objective: cfg.Objective,
				Source:    rand.New(rand.NewSource(seed)),
				Logger:    logger.With(zap.Int("run", i)),
			})
			if err != nil {
				return err
			}

			res, err := climber.Optimize(gctx)
			if err != nil {
				return err
			}
			runs[i] = Run{Index: i, Seed: seed, Result: res}

			mu.Lock()
			done++
			if cfg.OnRunDone != nil {
				cfg.OnRunDone(done, cfg.Runs)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("batch failed", zap.Int("runs", cfg.Runs), zap.Error(err))
		return nil, err
	}

	summary := Summarize(runs, cfg.Goal)
	logger.Debug("batch finished",
		zap.Int("runs", summary.Runs),
		zap.Float64("mean_value", summary.MeanValue),
		zap.Int("distinct_optima", summary.DistinctOptima),
	)
	return &Report{Runs: runs, Summary: summary}, nil
}

// Summarize computes the statistics of completed runs. Best follows goal;
// ties go to the lowest run index.
func Summarize(runs []Run, goal optimization.Goal) Summary {
	s := Summary{Runs: len(runs)}
	if len(runs) == 0 {
		return s
	}

	values := make([]float64, len(runs))
	xs := make([]float64, len(runs))
	distinct := make(map[uint32]struct{}, len(runs))
	for i, r := range runs {
		sol := r.Result.BestSolution
		values[i] = float64(sol.Value)
		xs[i] = float64(sol.X)
		distinct[sol.Bits] = struct{}{}
		s.TotalMoves += r.Result.Moves
		s.TotalEvaluations += r.Result.Evaluations
	}

	s.MeanValue, s.StdDevValue = stat.MeanStdDev(values, nil)
	if len(values) == 1 || math.IsNaN(s.StdDevValue) {
		s.StdDevValue = 0
	}
	s.MeanX = stat.Mean(xs, nil)
	s.DistinctOptima = len(distinct)

	hi, lo := floats.MaxIdx(values), floats.MinIdx(values)
	if goal == optimization.GoalMin {
		hi, lo = lo, hi
	}
	s.Best = runs[hi].Result.BestSolution
	s.Worst = runs[lo].Result.BestSolution
	return s
}
