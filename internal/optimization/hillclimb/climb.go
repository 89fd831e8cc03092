// Package hillclimb implements bit-flip hill climbing over a binary-encoded
// solution space.
//
// A search starts from a uniformly random bit pattern and repeatedly moves to
// the best single-bit-flip neighbor while that neighbor scores strictly
// higher. The climb is repeated for a configured number of rounds. Nothing
// perturbs the pattern between rounds, so once the first round reaches a
// local optimum every later round ends without moving.
package hillclimb

import (
	"math"

	"go.uber.org/zap"

	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/objective"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

const component = "hillclimb"

// Source supplies the randomness for the initial pattern. *rand.Rand from
// math/rand and math/rand/v2 both satisfy it. A Source must not be shared
// between concurrent searches without synchronization.
type Source interface {
	Uint32() uint32
}

// Hook is called after every accepted move with the new current pattern and
// its objective value.
type Hook func(round, step int, current space.BitPattern, value float32)

// Options tunes a search. The zero value maximizes objective.Default.
type Options struct {
	// Objective to optimize. Defaults to objective.Default.
	Objective objective.Func
	// Goal selects maximization (default) or minimization.
	Goal optimization.Goal
	// Hook receives accepted moves. Optional.
	Hook Hook
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Result is the outcome of a search.
type Result struct {
	// X is the decoded final pattern.
	X float32
	// Bits is the final pattern.
	Bits space.BitPattern
	// Value is the objective at X.
	Value float32
	// Initial is the randomly drawn starting pattern.
	Initial space.BitPattern
	// Rounds is the number of rounds performed.
	Rounds int
	// Moves counts accepted moves over all rounds.
	Moves int
	// Evaluations counts objective evaluations.
	Evaluations int
	// Trace holds, per round, the objective value of the current pattern
	// before the first and after every accepted move.
	Trace [][]float32
}

// RandomPattern draws a pattern uniformly from [0, 2^l - 1].
func RandomPattern(src Source, l int) space.BitPattern {
	return space.BitPattern(src.Uint32() & (uint32(1)<<uint(l) - 1))
}

// Climb runs a t-round search over s maximizing objective.Default.
func Climb(s space.SolutionSpace, t int, src Source) (*Result, error) {
	return ClimbWith(s, t, src, Options{})
}

// ClimbWith runs a t-round search over s with the given options.
func ClimbWith(s space.SolutionSpace, t int, src Source, opts Options) (*Result, error) {
	sr := newSearch(s, src, opts)
	for i := 0; i < t; i++ {
		if err := sr.round(); err != nil {
			return nil, err
		}
	}
	return sr.result(), nil
}

// search holds the working state of one climb. It is confined to a single
// goroutine.
type search struct {
	space   space.SolutionSpace
	fitness objective.Func
	negated bool
	hook    Hook
	logger  *zap.Logger

	initial space.BitPattern
	current space.BitPattern
	score   float32

	rounds      int
	moves       int
	evaluations int
	trace       [][]float32
}

func newSearch(s space.SolutionSpace, src Source, opts Options) *search {
	f := opts.Objective
	if f == nil {
		f = objective.Default
	}
	fitness := f
	if opts.Goal == optimization.GoalMin {
		fitness = objective.Negate(f)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sr := &search{
		space:   s,
		fitness: fitness,
		negated: opts.Goal == optimization.GoalMin,
		hook:    opts.Hook,
		logger:  logger,
	}
	sr.initial = RandomPattern(src, s.L())
	sr.current = sr.initial
	sr.score = sr.eval(sr.current)
	return sr
}

func (sr *search) eval(p space.BitPattern) float32 {
	sr.evaluations++
	return objective.EvalBits(sr.fitness, p, sr.space)
}

// round climbs from the current pattern until no neighbor scores strictly
// higher.
func (sr *search) round() error {
	trace := []float32{sr.report(sr.score)}
	step := 0
	for {
		best, bestScore, err := sr.bestNeighbor()
		if err != nil {
			return err
		}
		if !(bestScore > sr.score) {
			break
		}

		sr.current, sr.score = best, bestScore
		sr.moves++
		step++
		trace = append(trace, sr.report(bestScore))
		if sr.hook != nil {
			sr.hook(sr.rounds, step, best, sr.report(bestScore))
		}
	}

	sr.trace = append(sr.trace, trace)
	sr.logger.Debug("hill climb round finished",
		zap.Int("round", sr.rounds),
		zap.Int("moves", step),
		zap.Uint32("bits", uint32(sr.current)),
		zap.Float32("value", sr.report(sr.score)),
	)
	sr.rounds++
	return nil
}

// bestNeighbor folds over the l single-bit-flip neighbors from bit 0 upward,
// replacing the best only on a strictly greater score so that the lowest
// flipped bit wins ties.
func (sr *search) bestNeighbor() (space.BitPattern, float32, error) {
	var (
		best      space.BitPattern
		bestScore float32
	)
	for n := 0; n < sr.space.L(); n++ {
		candidate := sr.current.FlipBit(n)
		score := sr.eval(candidate)
		if math.IsNaN(float64(score)) {
			return 0, 0, optimization.NewErrorf(optimization.KindNaNScore,
				"non-comparable score for neighbor %s (bit %d flipped)",
				sr.space.Format(candidate.Index()), n).
				WithComponent(component).WithOperation("bestNeighbor")
		}
		if n == 0 || score > bestScore {
			best, bestScore = candidate, score
		}
	}
	return best, bestScore, nil
}

// report converts an internal score back to the objective's value.
func (sr *search) report(score float32) float32 {
	if sr.negated {
		return -score
	}
	return score
}

func (sr *search) result() *Result {
	return &Result{
		X:           sr.space.DecodePattern(sr.current),
		Bits:        sr.current,
		Value:       sr.report(sr.score),
		Initial:     sr.initial,
		Rounds:      sr.rounds,
		Moves:       sr.moves,
		Evaluations: sr.evaluations,
		Trace:       sr.trace,
	}
}
