package space

import (
	"fmt"
	"math"
	"strconv"

	"github.com/copyleftdev/bitclimb/internal/optimization"
)

// BitPattern is an encoded candidate viewed as a vector of bits.
type BitPattern uint32

// Index is an encoded candidate viewed as an ordinal position in a space.
// It holds the same number as the corresponding BitPattern; the two types
// only keep bit operations and arithmetic apart.
type Index uint32

// Index reinterprets the pattern as an ordinal position.
func (p BitPattern) Index() Index { return Index(p) }

// Pattern reinterprets the index as a bit vector.
func (i Index) Pattern() BitPattern { return BitPattern(i) }

// FlipBit returns p with bit n inverted. n must lie in [0, MaxBitLength);
// callers searching a space only pass n in [0, l).
func (p BitPattern) FlipBit(n int) BitPattern {
	if n < 0 || n >= MaxBitLength {
		panic(fmt.Sprintf("space: bit index %d out of range [0, %d)", n, MaxBitLength))
	}
	return p ^ BitPattern(1)<<uint(n)
}

// Decode maps an index to its real value: a + i*(b-a)/(2^l-1).
// Floating-point drift over repeated round trips is not corrected.
func (s SolutionSpace) Decode(i Index) float32 {
	return float32(i)*(s.b-s.a)/s.steps() + s.a
}

// Encode maps a real value to the nearest index, rounding halves away from
// zero. Values outside [a, b] are not rejected; they give indices outside
// [0, 2^l-1], with negative positions wrapping modulo 2^32.
func (s SolutionSpace) Encode(x float32) Index {
	if s.b == s.a {
		return 0
	}
	pos := math.Round(float64((x - s.a) / (s.b - s.a) * s.steps()))
	return Index(uint32(int64(pos)))
}

// DecodePattern decodes a bit pattern.
func (s SolutionSpace) DecodePattern(p BitPattern) float32 {
	return s.Decode(p.Index())
}

// Contains reports whether i is a valid index of the space.
func (s SolutionSpace) Contains(i Index) bool {
	return i <= s.MaxIndex()
}

func (s SolutionSpace) steps() float32 {
	return float32(uint32(1)<<uint(s.precision.l)) - 1
}

// FormatBinary renders i as a base-2 string left-padded with zeros to width.
// Numbers wider than width are not truncated.
func FormatBinary(i Index, width int) string {
	return fmt.Sprintf("%0*b", width, uint32(i))
}

// ParseBinary parses a base-2 string of at most 32 digits.
func ParseBinary(s string) (Index, error) {
	v, err := strconv.ParseUint(s, 2, 32)
	if err != nil {
		return 0, optimization.WrapError(err, optimization.KindInvalidBinary,
			fmt.Sprintf("invalid binary string %q", s)).
			WithComponent(component).WithOperation("ParseBinary")
	}
	return Index(v), nil
}

// Format renders i padded to the bit-length of the space.
func (s SolutionSpace) Format(i Index) string {
	return FormatBinary(i, s.precision.l)
}

// RealToBinary encodes x and renders it at the bit-length of the space.
func (s SolutionSpace) RealToBinary(x float32) string {
	return s.Format(s.Encode(x))
}

// BinaryToReal parses a binary string and decodes it.
func (s SolutionSpace) BinaryToReal(bin string) (float32, error) {
	i, err := ParseBinary(bin)
	if err != nil {
		return 0, err
	}
	return s.Decode(i), nil
}
