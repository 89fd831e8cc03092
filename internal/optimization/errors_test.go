package optimization

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message", NewError(KindInvalidRange, "invalid range [2, 1]"), "invalid range [2, 1]"},
		{"component and op", NewError(KindInvalidRange, "bad").WithComponent("space").WithOperation("FromStep"), "space: FromStep: bad"},
		{"op only", NewErrorf(KindNaNScore, "score %d", 3).WithOperation("bestNeighbor"), "bestNeighbor: score 3"},
		{"wrapped", WrapError(errors.New("syntax"), KindInvalidBinary, "invalid binary string"), "invalid binary string: syntax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("build space: %w",
		NewErrorf(KindBitLengthOutOfRange, "got l=%d", 40).WithComponent("space"))

	assert.ErrorIs(t, err, ErrBitLengthOutOfRange)
	assert.NotErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, KindBitLengthOutOfRange, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))

	// Unknown kinds never match each other.
	assert.NotErrorIs(t, NewError(KindUnknown, "a"), NewError(KindUnknown, "b"))

	inner := errors.New("inner")
	assert.ErrorIs(t, WrapError(inner, KindInvalidBinary, "outer"), inner)
	assert.Nil(t, WrapError(nil, KindInvalidBinary, "outer"))

	e, ok := IsOptimizationError(ErrNaNScore)
	assert.True(t, ok)
	assert.Equal(t, KindNaNScore, e.Kind)
	_, ok = IsOptimizationError(inner)
	assert.False(t, ok)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "too many solutions", KindTooManySolutions.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

func TestParseGoal(t *testing.T) {
	tests := []struct {
		in   string
		want Goal
		ok   bool
	}{
		{"", GoalMax, true},
		{"max", GoalMax, true},
		{" MIN ", GoalMin, true},
		{"up", GoalMax, false},
	}

	for _, tt := range tests {
		got, ok := ParseGoal(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.Equal(t, tt.want.String(), got.String())
		}
	}
}
