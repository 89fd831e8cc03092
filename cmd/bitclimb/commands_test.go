package main

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/bitclimb/internal/config"
	"github.com/copyleftdev/bitclimb/internal/optimization/hillclimb"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Optimization.WorkerCount = 2
	cfg.Search.A = -4
	cfg.Search.B = 12
	cfg.Search.Step = 0.001
	cfg.Search.Rounds = 5
	return cfg
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(testConfig())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level=error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSpaceCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"defaults", nil, []string{"[-4, 12]", "bit-length      14", "decimal places  3", "points          16384"}},
		{"decimal places", []string{"--decimal-places=1"}, []string{"bit-length      8", "step            0.1"}},
		{"bit length", []string{"-a", "0", "-b", "15", "-l", "4"}, []string{"[0, 15]", "bit-length      4", "points          16"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"space"}, tt.args...)...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestSpaceCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad step", []string{"--step=0.25"}, "fractional power of ten"},
		{"inverted", []string{"--lower=3", "--upper=1"}, "invalid range"},
		{"bits", []string{"--bit-length=32"}, "bit-length out of range"},
		{"exclusive", []string{"--step=0.01", "--bit-length=8"}, "none of the others can be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"space"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunCommand(t *testing.T) {
	out, err := run(t, "run", "--seed=11", "--rounds=2", "--trace")
	require.NoError(t, err)

	s, err := space.FromStep(-4, 12, 0.001)
	require.NoError(t, err)
	want, err := hillclimb.Climb(s, 2, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, []string{"x", "real", "x", "bin", "f(x)"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{
		formatReal(s, want.X),
		s.Format(want.Bits.Index()),
		formatValue(want.Value),
	}, strings.Fields(lines[1]))
	assert.Contains(t, out, "2 rounds")
	assert.Contains(t, out, "round  values")
}

func TestRunCommandRejectsGoal(t *testing.T) {
	_, err := run(t, "run", "--goal=up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown goal")
}

func TestBatchCommand(t *testing.T) {
	out, err := run(t, "batch", "--runs=3", "--rounds=1", "--seed=2", "--goal=min")
	require.NoError(t, err)
	assert.Contains(t, out, "best")
	assert.Contains(t, out, "worst")
	assert.Contains(t, out, "3 runs")
}

func TestEncodeDecodeCommands(t *testing.T) {
	out, err := run(t, "encode", "0")
	require.NoError(t, err)
	assert.Equal(t, "01000000000000\n", out)

	out, err = run(t, "decode", "11111111111111")
	require.NoError(t, err)
	assert.Equal(t, "12.000\n", out)

	_, err = run(t, "decode", "12")
	assert.Error(t, err)

	_, err = run(t, "encode", "twelve")
	assert.Error(t, err)
}
