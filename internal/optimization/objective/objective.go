// Package objective holds the scalar function maximized by the hill climber.
package objective

import (
	"math"

	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// Func is a scalar objective of one real variable.
type Func func(x float32) float32

const pi32 = float32(math.Pi)

// Default evaluates frac(x) * (cos(20πx) - sin(x)) in single precision.
// Every intermediate, including the cosine argument, is rounded to float32.
func Default(x float32) float32 {
	arg := 20 * pi32 * x
	c := float32(math.Cos(float64(arg)))
	s := float32(math.Sin(float64(x)))
	frac := float32(Frac(float64(x)))
	return frac * (c - s)
}

// Frac returns the fractional part of x with the sign of x, i.e. x minus x
// truncated towards zero. Frac(-1.25) is -0.25, not 0.75.
func Frac(x float64) float64 {
	_, frac := math.Modf(x)
	return frac
}

// EvalBits decodes p through s and evaluates f at the result.
func EvalBits(f Func, p space.BitPattern, s space.SolutionSpace) float32 {
	return f(s.DecodePattern(p))
}

// Negate returns -f, turning a maximizer of -f into a minimizer of f.
func Negate(f Func) Func {
	return func(x float32) float32 {
		return -f(x)
	}
}
