package server

import (
	"github.com/go-playground/validator/v10"

	"github.com/copyleftdev/bitclimb/internal/config"
	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// SpaceRequest describes a solution space. A and B default to the
// configured search interval. At most one of Step, DecimalPlaces and
// BitLength may be set; with none the configured step is used.
type SpaceRequest struct {
	A             *float32 `json:"a,omitempty"`
	B             *float32 `json:"b,omitempty"`
	Step          *float32 `json:"step,omitempty" validate:"excluded_with=DecimalPlaces BitLength"`
	DecimalPlaces *int     `json:"decimal_places,omitempty" validate:"excluded_with=Step BitLength"`
	BitLength     *int     `json:"bit_length,omitempty" validate:"excluded_with=Step DecimalPlaces"`
}

// Build constructs the space, filling unset fields from defaults.
func (r SpaceRequest) Build(defaults *config.Config) (space.SolutionSpace, error) {
	a, b := defaults.Search.A, defaults.Search.B
	if r.A != nil {
		a = *r.A
	}
	if r.B != nil {
		b = *r.B
	}

	switch {
	case r.DecimalPlaces != nil:
		return space.FromDecimalPlaces(a, b, *r.DecimalPlaces)
	case r.BitLength != nil:
		return space.FromBitLength(a, b, *r.BitLength)
	case r.Step != nil:
		return space.FromStep(a, b, *r.Step)
	default:
		return space.FromStep(a, b, defaults.Search.Step)
	}
}

// OptimizeRequest starts an optimization job. Runs greater than one starts a
// batch of independent searches.
type OptimizeRequest struct {
	SpaceRequest
	Rounds *int   `json:"rounds,omitempty" validate:"omitempty,gte=0"`
	Runs   int    `json:"runs,omitempty" validate:"omitempty,gte=1"`
	Seed   int64  `json:"seed,omitempty"`
	Goal   string `json:"goal,omitempty" validate:"omitempty,oneof=max min"`
}

// EncodeRequest maps a real value into a space.
type EncodeRequest struct {
	SpaceRequest
	X *float32 `json:"x" validate:"required"`
}

// DecodeRequest maps a binary string back into a space.
type DecodeRequest struct {
	SpaceRequest
	Binary string `json:"binary" validate:"required,max=31,binary"`
}

// IDRequest names an existing optimization job.
type IDRequest struct {
	OptimizationID string `json:"optimization_id" validate:"required,uuid4"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("binary", func(fl validator.FieldLevel) bool {
		for _, c := range fl.Field().String() {
			if c != '0' && c != '1' {
				return false
			}
		}
		return true
	})
	return v
}

// SpaceInfo is the wire form of a solution space.
type SpaceInfo struct {
	A             float32 `json:"a"`
	B             float32 `json:"b"`
	L             int     `json:"l"`
	D             float32 `json:"d"`
	DecimalPlaces int     `json:"decimal_places"`
	MaxIndex      uint32  `json:"max_index"`
	Description   string  `json:"description"`
}

func spaceInfo(s space.SolutionSpace) SpaceInfo {
	return SpaceInfo{
		A:             s.A(),
		B:             s.B(),
		L:             s.L(),
		D:             s.D(),
		DecimalPlaces: s.Precision().DecimalPlaces(),
		MaxIndex:      uint32(s.MaxIndex()),
		Description:   s.String(),
	}
}

// SolutionInfo is the wire form of a solution, with X rounded to the
// space's decimal places.
type SolutionInfo struct {
	X      float64 `json:"x"`
	Binary string  `json:"binary"`
	Value  float32 `json:"value"`
}

func solutionInfo(s space.SolutionSpace, sol *optimization.Solution) *SolutionInfo {
	if sol == nil {
		return nil
	}
	return &SolutionInfo{
		X:      s.Precision().Round(sol.X),
		Binary: s.Format(space.Index(sol.Bits)),
		Value:  sol.Value,
	}
}
