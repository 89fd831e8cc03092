package hillclimb

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/objective"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// Config contains configuration for a Climber
type Config struct {
	// Space to search
	Space space.SolutionSpace

	// Rounds of climbing to perform
	Rounds int

	// Goal of the search
	Goal optimization.Goal

	// Objective function, objective.Default when nil
	Objective objective.Func

	// Random seed for reproducibility; 0 seeds from the clock
	RandomSeed int64

	// Source overrides the seeded generator when set
	Source Source

	// Logger for debug output
	Logger *zap.Logger
}

// Climber runs a hill climb as an optimization.Optimizer. Unlike Climb it
// checks for cancellation before every round.
type Climber struct {
	config Config
	src    Source

	mu      sync.RWMutex
	best    *optimization.Solution
	history []optimization.Evaluation

	// For cancellation
	cancel context.CancelFunc
}

// NewClimber creates a new Climber
func NewClimber(config Config) (*Climber, error) {
	if config.Rounds < 0 {
		return nil, optimization.NewErrorf(optimization.KindUnknown,
			"rounds must be non-negative, got %d", config.Rounds).
			WithComponent(component).WithOperation("NewClimber")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	src := config.Source
	if src == nil {
		seed := config.RandomSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		src = rand.New(rand.NewSource(seed))
	}

	return &Climber{
		config:  config,
		src:     src,
		history: make([]optimization.Evaluation, 0),
	}, nil
}

// Optimize runs the configured number of rounds
func (c *Climber) Optimize(ctx context.Context) (*optimization.OptimizationResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.history = c.history[:0]
	c.mu.Unlock()

	l := c.config.Space.L()
	opts := Options{
		Objective: c.config.Objective,
		Goal:      c.config.Goal,
		Logger:    c.config.Logger,
		Hook: func(round, step int, current space.BitPattern, value float32) {
			c.record(round, step, current, value)
		},
	}

	sr := newSearch(c.config.Space, c.src, opts)
	c.setBest(sr.current, sr.report(sr.score), l)

	for i := 0; i < c.config.Rounds; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := sr.round(); err != nil {
			c.config.Logger.Warn("hill climb failed", zap.Int("round", i), zap.Error(err))
			return nil, err
		}
	}

	res := sr.result()
	return &optimization.OptimizationResult{
		BestSolution: c.setBest(res.Bits, res.Value, l),
		History:      c.GetHistory(),
		Trace:        res.Trace,
		Rounds:       res.Rounds,
		Moves:        res.Moves,
		Evaluations:  res.Evaluations,
		Converged:    true,
	}, nil
}

// GetBestSolution returns the current pattern of the search
func (c *Climber) GetBestSolution() *optimization.Solution {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.best
}

// GetHistory returns a copy of the accepted moves so far
func (c *Climber) GetHistory() []optimization.Evaluation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]optimization.Evaluation(nil), c.history...)
}

// Stop cancels a running Optimize
func (c *Climber) Stop() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Climber) record(round, step int, p space.BitPattern, value float32) {
	sol := c.setBest(p, value, c.config.Space.L())
	c.mu.Lock()
	c.history = append(c.history, optimization.Evaluation{
		Round:    round,
		Step:     step,
		Solution: sol,
	})
	c.mu.Unlock()
}

func (c *Climber) setBest(p space.BitPattern, value float32, l int) *optimization.Solution {
	sol := &optimization.Solution{
		X:     c.config.Space.DecodePattern(p),
		Bits:  uint32(p),
		Width: l,
		Value: value,
	}
	c.mu.Lock()
	c.best = sol
	c.mu.Unlock()
	return sol
}
