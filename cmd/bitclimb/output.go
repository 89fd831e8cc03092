package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/batch"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid real value %q: %w", s, err)
	}
	return float32(v), nil
}

// formatReal prints x with the decimal places the space resolves.
func formatReal(s space.SolutionSpace, x float32) string {
	return strconv.FormatFloat(s.Precision().Round(x), 'f', s.Precision().DecimalPlaces(), 64)
}

func formatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 3, 32)
}

func printSpace(out io.Writer, s space.SolutionSpace) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "interval\t[%g, %g]\n", s.A(), s.B())
	fmt.Fprintf(w, "bit-length\t%d\n", s.L())
	fmt.Fprintf(w, "step\t%g\n", s.D())
	fmt.Fprintf(w, "decimal places\t%d\n", s.Precision().DecimalPlaces())
	fmt.Fprintf(w, "points\t%d\n", uint64(s.MaxIndex())+1)
	_ = w.Flush()
}

func printResult(out io.Writer, s space.SolutionSpace, res *optimization.OptimizationResult) {
	sol := res.BestSolution
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "x real\tx bin\tf(x)")
	fmt.Fprintf(w, "%s\t%s\t%s\n", formatReal(s, sol.X), s.Format(space.Index(sol.Bits)), formatValue(sol.Value))
	_ = w.Flush()
	fmt.Fprintf(out, "\n%d rounds, %d moves, %d evaluations\n", res.Rounds, res.Moves, res.Evaluations)
}

func printTrace(out io.Writer, trace [][]float32) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "round\tvalues")
	for i, values := range trace {
		fmt.Fprintf(w, "%d\t", i)
		for j, v := range values {
			if j > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprint(w, formatValue(v))
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func printSummary(out io.Writer, s space.SolutionSpace, sum batch.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tx real\tx bin\tf(x)")
	for _, row := range []struct {
		name string
		sol  *optimization.Solution
	}{{"best", sum.Best}, {"worst", sum.Worst}} {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", row.name,
			formatReal(s, row.sol.X), s.Format(space.Index(row.sol.Bits)), formatValue(row.sol.Value))
	}
	_ = w.Flush()

	fmt.Fprintf(out, "\n%d runs, %d distinct optima\n", sum.Runs, sum.DistinctOptima)
	fmt.Fprintf(out, "f(x) mean %.3f, std dev %.3f; mean x %.3f\n", sum.MeanValue, sum.StdDevValue, sum.MeanX)
	fmt.Fprintf(out, "%d moves, %d evaluations\n", sum.TotalMoves, sum.TotalEvaluations)
}
