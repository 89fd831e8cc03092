package optimization

import (
	"context"
	"strings"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize runs the optimization process
	Optimize(ctx context.Context) (*OptimizationResult, error)

	// GetBestSolution returns the current solution of the last or running search
	GetBestSolution() *Solution

	// GetHistory returns the history of accepted moves
	GetHistory() []Evaluation

	// Stop gracefully stops the optimization process
	Stop()
}

// Goal selects the direction of the search.
type Goal int

const (
	// GoalMax maximizes the objective.
	GoalMax Goal = iota
	// GoalMin minimizes the objective.
	GoalMin
)

// String returns "max" or "min".
func (g Goal) String() string {
	if g == GoalMin {
		return "min"
	}
	return "max"
}

// ParseGoal parses "max" or "min" (case-insensitive). Empty input yields GoalMax.
func ParseGoal(s string) (Goal, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max":
		return GoalMax, true
	case "min":
		return GoalMin, true
	default:
		return GoalMax, false
	}
}

// Solution represents an encoded candidate and its decoded form
type Solution struct {
	// X is the decoded real value
	X float32
	// Bits is the encoded bit pattern
	Bits uint32
	// Width is the bit-length of the encoding
	Width int
	// Value is the objective value at X
	Value float32
}

// Evaluation represents one accepted move of the search
type Evaluation struct {
	Round    int
	Step     int
	Solution *Solution
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	BestSolution *Solution
	History      []Evaluation
	// Trace holds, per round, the score of the current pattern at every inner iteration.
	Trace       [][]float32
	Rounds      int
	Moves       int
	Evaluations int
	Converged   bool
}
