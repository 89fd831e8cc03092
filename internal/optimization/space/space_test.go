package space

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bitclimb/internal/optimization"
)

func TestFromStep(t *testing.T) {
	tests := []struct {
		name       string
		a, b, d    float32
		wantL      int
		wantPlaces int
		wantErr    error
	}{
		{name: "default inputs", a: -4, b: 12, d: 0.001, wantL: 14, wantPlaces: 3},
		{name: "tenth", a: 0, b: 1, d: 0.1, wantL: 4, wantPlaces: 1},
		{name: "hundredth", a: -1, b: 1, d: 0.01, wantL: 8, wantPlaces: 2},
		{name: "whole mantissa", a: 0, b: 1, d: 0.002, wantL: 9, wantPlaces: 3},
		{name: "unit step", a: 0, b: 7, d: 1, wantL: 3, wantPlaces: 0},
		{name: "degenerate range", a: 2, b: 2, d: 0.1, wantL: 1, wantPlaces: 1},
		{name: "reversed range", a: 1, b: 0, d: 0.1, wantErr: optimization.ErrInvalidRange},
		{name: "zero step", a: 0, b: 1, d: 0, wantErr: optimization.ErrInvalidStep},
		{name: "negative step", a: 0, b: 1, d: -0.1, wantErr: optimization.ErrInvalidStep},
		{name: "fractional mantissa", a: 0, b: 1, d: 0.0025, wantErr: optimization.ErrInvalidStep},
		{name: "one and a half tenths", a: 0, b: 1, d: 0.15, wantErr: optimization.ErrInvalidStep},
		{name: "too fine", a: 0, b: 1e6, d: 0.0001, wantErr: optimization.ErrTooManySolutions},
		{name: "infinite upper bound", a: 0, b: float32(math.Inf(1)), d: 0.1, wantErr: optimization.ErrInvalidRange},
		{name: "infinite lower bound", a: float32(math.Inf(-1)), b: 0, d: 0.1, wantErr: optimization.ErrInvalidRange},
		{name: "NaN bound", a: float32(math.NaN()), b: 1, d: 0.1, wantErr: optimization.ErrInvalidRange},
		{name: "huge finite range", a: -3e38, b: 3e38, d: 1, wantErr: optimization.ErrTooManySolutions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromStep(tt.a, tt.b, tt.d)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantL, s.L())
			assert.Equal(t, tt.d, s.D())
			assert.Equal(t, tt.wantPlaces, s.Precision().DecimalPlaces())
			assert.Equal(t, tt.a, s.A())
			assert.Equal(t, tt.b, s.B())
		})
	}
}

func TestFromStepResolvesStep(t *testing.T) {
	ranges := [][2]float32{{-4, 12}, {0, 1}, {-1, 1}, {10, 20.5}, {-100, -3}}
	steps := []float32{1, 0.1, 0.01, 0.001, 0.002, 0.0001}

	for _, r := range ranges {
		for _, d := range steps {
			s, err := FromStep(r[0], r[1], d)
			require.NoError(t, err, "a=%g b=%g d=%g", r[0], r[1], d)

			need := (float64(r[1]) - float64(r[0])) / float64(d)
			assert.GreaterOrEqual(t, float64(s.MaxIndex()), need, "a=%g b=%g d=%g l=%d", r[0], r[1], d, s.L())
			if s.L() > 1 {
				// l is minimal: one bit fewer cannot resolve the range.
				assert.Less(t, float64(uint32(1)<<uint(s.L()-1)), need+1, "a=%g b=%g d=%g l=%d", r[0], r[1], d, s.L())
			}
		}
	}
}

func TestFromDecimalPlaces(t *testing.T) {
	tests := []struct {
		name    string
		a, b    float32
		p       int
		wantL   int
		wantD   float32
		wantErr error
	}{
		{name: "three places", a: -4, b: 12, p: 3, wantL: 14, wantD: 0.001},
		{name: "no places", a: 0, b: 7, p: 0, wantL: 3, wantD: 1},
		{name: "one place", a: 0, b: 1, p: 1, wantL: 4, wantD: 0.1},
		{name: "reversed range", a: 3, b: 2, p: 2, wantErr: optimization.ErrInvalidRange},
		{name: "negative places", a: 0, b: 1, p: -1, wantErr: optimization.ErrInvalidStep},
		{name: "too many solutions", a: 0, b: 1000, p: 9, wantErr: optimization.ErrTooManySolutions},
		{name: "subnormal step", a: 0, b: 1, p: 45, wantErr: optimization.ErrTooManySolutions},
		{name: "step underflows to zero", a: 0, b: 1, p: 46, wantErr: optimization.ErrTooManySolutions},
		{name: "step underflows on a point", a: 2, b: 2, p: 50, wantErr: optimization.ErrTooManySolutions},
		{name: "infinite range", a: 0, b: float32(math.Inf(1)), p: 1, wantErr: optimization.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromDecimalPlaces(tt.a, tt.b, tt.p)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantL, s.L())
			assert.Equal(t, tt.wantD, s.D())
			assert.Equal(t, tt.p, s.Precision().DecimalPlaces())
		})
	}
}

func TestFromBitLength(t *testing.T) {
	tests := []struct {
		name       string
		a, b       float32
		l          int
		wantD      float32
		wantPlaces int
		wantErr    error
	}{
		{name: "unit interval one bit", a: 0, b: 1, l: 1, wantD: 1, wantPlaces: 0},
		{name: "unit interval ten bits", a: 0, b: 1, l: 10, wantD: float32(1) / 1023, wantPlaces: 3},
		{name: "wide range", a: -4, b: 12, l: 5, wantD: float32(16) / 31, wantPlaces: 0},
		{name: "max bits", a: 0, b: 1, l: 31, wantD: 1 / (float32(1<<31) - 1), wantPlaces: 9},
		{name: "zero bits", a: 0, b: 1, l: 0, wantErr: optimization.ErrBitLengthOutOfRange},
		{name: "too many bits", a: 0, b: 1, l: 32, wantErr: optimization.ErrBitLengthOutOfRange},
		{name: "step above one", a: -4, b: 12, l: 4, wantErr: optimization.ErrUnrepresentableRange},
		{name: "reversed range", a: 1, b: 0, l: 4, wantErr: optimization.ErrInvalidRange},
		{name: "infinite range", a: 0, b: float32(math.Inf(1)), l: 8, wantErr: optimization.ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromBitLength(tt.a, tt.b, tt.l)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.l, s.L())
			assert.InDelta(t, tt.wantD, s.D(), 1e-9)
			assert.Equal(t, tt.wantPlaces, s.Precision().DecimalPlaces())
		})
	}
}

func TestConstructionErrorMessages(t *testing.T) {
	_, err := FromStep(1, 0, 0.1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid range")

	_, err = FromStep(0, 1, 0.25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step size must be a fractional power of ten")

	_, err = FromBitLength(0, 1, 40)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bit-length out of range")

	_, err = FromBitLength(0, 100, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "range cannot be represented with this many bits")

	e, ok := optimization.IsOptimizationError(err)
	require.True(t, ok)
	assert.Equal(t, "space", e.Component)
	assert.Equal(t, "FromBitLength", e.Op)
	assert.Equal(t, optimization.KindUnrepresentableRange, optimization.KindOf(err))
}

func TestConstructorsAgree(t *testing.T) {
	byStep, err := FromStep(-4, 12, 0.001)
	require.NoError(t, err)
	byPlaces, err := FromDecimalPlaces(-4, 12, 3)
	require.NoError(t, err)
	byLength, err := FromBitLength(-4, 12, byStep.L())
	require.NoError(t, err)

	assert.Equal(t, byStep, byPlaces)
	assert.Equal(t, byStep.L(), byLength.L())
	assert.LessOrEqual(t, byLength.D(), byStep.D())

	// Encoding only depends on (a, b, l).
	for _, i := range []Index{0, 1, 777, 8191, byStep.MaxIndex()} {
		assert.Equal(t, byStep.Decode(i), byLength.Decode(i))
	}
}

func TestSpaceString(t *testing.T) {
	s, err := FromStep(-4, 12, 0.001)
	require.NoError(t, err)
	assert.Equal(t, "[-4, 12] l=14 d=0.001", s.String())
	assert.Equal(t, Index(16383), s.MaxIndex())
	assert.Equal(t, BitPattern(0x3fff), s.Mask())
	assert.False(t, math.IsNaN(float64(s.D())))
}

func TestPrecisionRound(t *testing.T) {
	tests := []struct {
		places int
		x      float32
		want   float64
	}{
		{3, 11.6306, 11.631},
		{3, -3.99951, -4.0},
		{0, 2.5, 3},
		{0, -2.5, -3},
		{1, 0.25, 0.3},
	}

	for _, tt := range tests {
		s, err := FromDecimalPlaces(-4, 12, tt.places)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, s.Precision().Round(tt.x), 1e-9, "x=%g places=%d", tt.x, tt.places)
	}
}
