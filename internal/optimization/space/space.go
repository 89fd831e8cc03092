// Package space defines the discretized solution space searched by the
// optimizers: a closed real interval [a, b] together with the binary
// precision (bit-length l and step d) used to encode points of it.
package space

import (
	"fmt"
	"math"

	"github.com/copyleftdev/bitclimb/internal/optimization"
)

const (
	// MinBitLength is the shortest supported encoding.
	MinBitLength = 1
	// MaxBitLength is the longest supported encoding; every index fits in a
	// 32-bit unsigned integer with the top bit unused.
	MaxBitLength = 31

	component = "space"
)

// Precision describes how finely a SolutionSpace is resolved.
type Precision struct {
	l             int
	d             float32
	decimalPlaces int
}

// L returns the bit-length of the encoding.
func (p Precision) L() int { return p.l }

// D returns the decimal step size.
func (p Precision) D() float32 { return p.d }

// DecimalPlaces returns the number of decimal places worth showing for
// values of the space.
func (p Precision) DecimalPlaces() int { return p.decimalPlaces }

// Round rounds x half away from zero to DecimalPlaces digits for display.
func (p Precision) Round(x float32) float64 {
	scale := math.Pow(10, float64(p.decimalPlaces))
	return math.Round(float64(x)*scale) / scale
}

// SolutionSpace is the closed interval [a, b] discretized by a Precision.
// Values are only produced by the From* constructors and never change.
type SolutionSpace struct {
	a, b      float32
	precision Precision
}

// A returns the lower bound of the interval.
func (s SolutionSpace) A() float32 { return s.a }

// B returns the upper bound of the interval.
func (s SolutionSpace) B() float32 { return s.b }

// Precision returns the precision of the space.
func (s SolutionSpace) Precision() Precision { return s.precision }

// L is shorthand for s.Precision().L().
func (s SolutionSpace) L() int { return s.precision.l }

// D is shorthand for s.Precision().D().
func (s SolutionSpace) D() float32 { return s.precision.d }

// MaxIndex returns 2^l - 1, the largest valid index.
func (s SolutionSpace) MaxIndex() Index {
	return Index(uint32(1)<<uint(s.precision.l) - 1)
}

// Mask returns the bit mask selecting the low l bits of a pattern.
func (s SolutionSpace) Mask() BitPattern {
	return BitPattern(s.MaxIndex())
}

// String implements fmt.Stringer.
func (s SolutionSpace) String() string {
	return fmt.Sprintf("[%g, %g] l=%d d=%g", s.a, s.b, s.precision.l, s.precision.d)
}

// FromStep builds a space over [a, b] whose adjacent encoded values are at
// most d apart. d must be positive and its mantissa, once the order of
// magnitude is divided out, must be a whole number (0.001 and 0.002 are
// accepted, 0.0025 is not).
func FromStep(a, b, d float32) (SolutionSpace, error) {
	const op = "FromStep"

	if err := checkRange(a, b, op); err != nil {
		return SolutionSpace{}, err
	}
	if !isDecimalStep(d) {
		return SolutionSpace{}, optimization.NewErrorf(optimization.KindInvalidStep,
			"step size must be a fractional power of ten, got d=%g", d).
			WithComponent(component).WithOperation(op)
	}

	l, err := bitLengthFor(a, b, d, op)
	if err != nil {
		return SolutionSpace{}, err
	}

	return SolutionSpace{
		a: a,
		b: b,
		precision: Precision{
			l:             l,
			d:             d,
			decimalPlaces: decimalPlacesOf(d),
		},
	}, nil
}

// FromDecimalPlaces builds a space over [a, b] resolving p decimal places,
// i.e. with step d = 10^-p. The range is not required to be a multiple of d.
func FromDecimalPlaces(a, b float32, p int) (SolutionSpace, error) {
	const op = "FromDecimalPlaces"

	if err := checkRange(a, b, op); err != nil {
		return SolutionSpace{}, err
	}
	if p < 0 {
		return SolutionSpace{}, optimization.NewErrorf(optimization.KindInvalidStep,
			"step size must be a fractional power of ten, got %d decimal places", p).
			WithComponent(component).WithOperation(op)
	}

	d := float32(math.Pow(10, -float64(p)))
	l, err := bitLengthFor(a, b, d, op)
	if err != nil {
		return SolutionSpace{}, err
	}

	return SolutionSpace{
		a: a,
		b: b,
		precision: Precision{
			l:             l,
			d:             d,
			decimalPlaces: p,
		},
	}, nil
}

// FromBitLength builds a space over [a, b] encoded with exactly l bits. The
// resulting step (b-a)/(2^l-1) must not exceed 1.0.
func FromBitLength(a, b float32, l int) (SolutionSpace, error) {
	const op = "FromBitLength"

	if l < MinBitLength || l > MaxBitLength {
		return SolutionSpace{}, optimization.NewErrorf(optimization.KindBitLengthOutOfRange,
			"bit-length out of range [%d, %d], got l=%d", MinBitLength, MaxBitLength, l).
			WithComponent(component).WithOperation(op)
	}
	if err := checkRange(a, b, op); err != nil {
		return SolutionSpace{}, err
	}

	d := (b - a) / (float32(uint32(1)<<uint(l)) - 1)
	if d > 1.0 {
		return SolutionSpace{}, optimization.NewErrorf(optimization.KindUnrepresentableRange,
			"range cannot be represented with this many bits: [%g, %g] with l=%d gives d=%g", a, b, l, d).
			WithComponent(component).WithOperation(op)
	}

	// Round the display precision towards the coarser power of ten so every
	// shown value is reachable with step d.
	places := 0
	if d > 0 {
		places = -int(math.Ceil(math.Log10(float64(d))))
		if places < 0 {
			places = 0
		}
	}

	return SolutionSpace{
		a: a,
		b: b,
		precision: Precision{
			l:             l,
			d:             d,
			decimalPlaces: places,
		},
	}, nil
}

func checkRange(a, b float32, op string) error {
	if !isFinite(a) || !isFinite(b) || b < a {
		return optimization.NewErrorf(optimization.KindInvalidRange, "invalid range [%g, %g]", a, b).
			WithComponent(component).WithOperation(op)
	}
	return nil
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

// bitLengthFor returns ceil(log2((b-a)/d + 1)), at least 1. A step that
// underflowed to zero counts as needing too many bits.
func bitLengthFor(a, b, d float32, op string) (int, error) {
	n := (float64(b)-float64(a))/float64(d) + 1
	bits := math.Ceil(math.Log2(n))
	l := MaxBitLength + 1
	if d > 0 && !math.IsNaN(bits) && !math.IsInf(bits, 0) && bits <= MaxBitLength {
		l = int(bits)
	}
	if l < MinBitLength {
		l = MinBitLength
	}
	if l > MaxBitLength {
		return 0, optimization.NewErrorf(optimization.KindTooManySolutions,
			"too many solutions for range [%g, %g] with d=%g: more than %d bits needed",
			a, b, d, MaxBitLength).
			WithComponent(component).WithOperation(op)
	}
	return l, nil
}

// isDecimalStep reports whether d > 0 and d / 10^floor(log10 d) is whole,
// compared at float32 precision.
func isDecimalStep(d float32) bool {
	if !(d > 0) || math.IsInf(float64(d), 0) {
		return false
	}
	exp := math.Floor(math.Log10(float64(d)))
	mantissa := float32(float64(d) / math.Pow(10, exp))
	return mantissa == float32(math.Round(float64(mantissa)))
}

func decimalPlacesOf(d float32) int {
	places := int(math.Ceil(-math.Log10(float64(d)) - 1e-6))
	if places < 0 {
		return 0
	}
	return places
}
