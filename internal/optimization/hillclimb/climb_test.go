package hillclimb

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/objective"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// fixedSource always returns the same word.
type fixedSource uint32

func (f fixedSource) Uint32() uint32 { return uint32(f) }

// scriptedSource returns its words in order, then repeats the last one.
type scriptedSource struct {
	words []uint32
	next  int
}

func (s *scriptedSource) Uint32() uint32 {
	w := s.words[s.next]
	if s.next < len(s.words)-1 {
		s.next++
	}
	return w
}

func defaultSpace(t *testing.T) space.SolutionSpace {
	t.Helper()
	s, err := space.FromStep(-4, 12, 0.001)
	require.NoError(t, err)
	return s
}

// indexSpace maps every index of a 4-bit pattern to the real number equal to it.
func indexSpace(t *testing.T) space.SolutionSpace {
	t.Helper()
	s, err := space.FromBitLength(0, 15, 4)
	require.NoError(t, err)
	return s
}

// table scores x by looking it up as an integer position.
func table(scores map[int]float32) objective.Func {
	return func(x float32) float32 {
		return scores[int(math.Round(float64(x)))]
	}
}

func TestRandomPattern(t *testing.T) {
	assert.Equal(t, space.BitPattern(31), RandomPattern(fixedSource(0xffffffff), 5))
	assert.Equal(t, space.BitPattern(0x3eef), RandomPattern(fixedSource(0xdeadbeef), 14))
	assert.Equal(t, space.BitPattern(1), RandomPattern(fixedSource(0x3), 1))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		p := RandomPattern(rng, 10)
		require.Less(t, uint32(p), uint32(1024))
	}
}

func TestClimbZeroRoundsReturnsInitialPattern(t *testing.T) {
	s := defaultSpace(t)

	res, err := Climb(s, 0, fixedSource(0xdeadbeef))
	require.NoError(t, err)

	assert.Equal(t, space.BitPattern(0x3eef), res.Initial)
	assert.Equal(t, res.Initial, res.Bits)
	assert.Equal(t, s.DecodePattern(res.Bits), res.X)
	assert.Equal(t, objective.Default(res.X), res.Value)
	assert.Equal(t, 0, res.Rounds)
	assert.Equal(t, 0, res.Moves)
	assert.Equal(t, 1, res.Evaluations)
	assert.Empty(t, res.Trace)
}

func TestClimbReachesLocalOptimum(t *testing.T) {
	s := defaultSpace(t)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 20; i++ {
		res, err := Climb(s, 1, rng)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, res.X, s.A())
		assert.LessOrEqual(t, res.X, s.B()+1e-5)
		assert.Equal(t, objective.Default(res.X), res.Value)

		for n := 0; n < s.L(); n++ {
			neighbor := objective.EvalBits(objective.Default, res.Bits.FlipBit(n), s)
			assert.LessOrEqual(t, neighbor, res.Value, "flipping bit %d of %s improves", n, s.Format(res.Bits.Index()))
		}
	}
}

func TestClimbScoresNeverDecrease(t *testing.T) {
	s := defaultSpace(t)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 20; i++ {
		res, err := Climb(s, 1, rng)
		require.NoError(t, err)
		require.Len(t, res.Trace, 1)

		trace := res.Trace[0]
		assert.Len(t, trace, res.Moves+1)
		for j := 1; j < len(trace); j++ {
			assert.Greater(t, trace[j], trace[j-1], "step %d", j)
		}
		assert.LessOrEqual(t, res.Moves, int(s.MaxIndex()))
		assert.Equal(t, 1+s.L()*(res.Moves+1), res.Evaluations)
	}
}

func TestLaterRoundsDoNotMove(t *testing.T) {
	s := defaultSpace(t)

	one, err := Climb(s, 1, fixedSource(0x1234))
	require.NoError(t, err)
	many, err := Climb(s, 5, fixedSource(0x1234))
	require.NoError(t, err)

	assert.Equal(t, one.Bits, many.Bits)
	assert.Equal(t, one.Value, many.Value)
	assert.Equal(t, one.Moves, many.Moves)
	assert.Equal(t, 5, many.Rounds)
	require.Len(t, many.Trace, 5)
	for r := 1; r < 5; r++ {
		assert.Equal(t, []float32{one.Value}, many.Trace[r], "round %d", r)
	}
}

func TestClimbTieBreaksOnLowestBit(t *testing.T) {
	s := indexSpace(t)
	// From 0 the neighbors are 1, 2, 4 and 8; 2 (bit 1) and 8 (bit 3) tie.
	f := table(map[int]float32{0: 0, 2: 5, 8: 5})

	var moves []space.BitPattern
	res, err := ClimbWith(s, 1, fixedSource(0), Options{
		Objective: f,
		Hook: func(round, step int, current space.BitPattern, value float32) {
			assert.Equal(t, 0, round)
			assert.Equal(t, float32(5), value)
			moves = append(moves, current)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, space.BitPattern(2), res.Bits)
	assert.Equal(t, float32(2), res.X)
	assert.Equal(t, []space.BitPattern{2}, moves)
	assert.Equal(t, 1+4+4, res.Evaluations)
}

func TestClimbRequiresStrictImprovement(t *testing.T) {
	s := indexSpace(t)
	flat := func(float32) float32 { return 1 }

	res, err := ClimbWith(s, 3, fixedSource(6), Options{Objective: flat})
	require.NoError(t, err)

	assert.Equal(t, space.BitPattern(6), res.Bits)
	assert.Equal(t, 0, res.Moves)
}

func TestClimbGoal(t *testing.T) {
	s := indexSpace(t)
	identity := func(x float32) float32 { return x }

	up, err := ClimbWith(s, 1, fixedSource(5), Options{Objective: identity})
	require.NoError(t, err)
	assert.Equal(t, space.BitPattern(15), up.Bits)
	assert.Equal(t, float32(15), up.Value)
	// 5 -> 13 -> 15: the highest clear bit is set first.
	assert.Equal(t, []float32{5, 13, 15}, up.Trace[0])

	down, err := ClimbWith(s, 1, fixedSource(5), Options{Objective: identity, Goal: optimization.GoalMin})
	require.NoError(t, err)
	assert.Equal(t, space.BitPattern(0), down.Bits)
	assert.Equal(t, float32(0), down.Value)
	assert.Equal(t, []float32{5, 1, 0}, down.Trace[0])
}

func TestClimbNaNNeighborFails(t *testing.T) {
	s := indexSpace(t)
	nan := float32(math.NaN())
	f := table(map[int]float32{0: 0, 1: 1, 4: nan})

	res, err := ClimbWith(s, 1, fixedSource(0), Options{Objective: f})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, optimization.ErrNaNScore)
	assert.Contains(t, err.Error(), "0100")
}

func TestClimbNaNIgnoredWithoutRounds(t *testing.T) {
	s := indexSpace(t)
	nan := func(float32) float32 { return float32(math.NaN()) }

	res, err := ClimbWith(s, 0, fixedSource(3), Options{Objective: nan})
	require.NoError(t, err)
	assert.Equal(t, space.BitPattern(3), res.Bits)
}

func TestClimbDeterministicWithSeed(t *testing.T) {
	s := defaultSpace(t)

	a, err := Climb(s, 3, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := Climb(s, 3, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestClimbSingleBitSpace(t *testing.T) {
	s, err := space.FromBitLength(0, 1, 1)
	require.NoError(t, err)
	identity := func(x float32) float32 { return x }

	src := &scriptedSource{words: []uint32{0}}
	res, err := ClimbWith(s, 2, src, Options{Objective: identity})
	require.NoError(t, err)

	assert.Equal(t, space.BitPattern(1), res.Bits)
	assert.Equal(t, float32(1), res.X)
	assert.Equal(t, 1, res.Moves)
}
