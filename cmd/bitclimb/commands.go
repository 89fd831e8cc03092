package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/bitclimb/internal/config"
	"github.com/copyleftdev/bitclimb/internal/logging"
	"github.com/copyleftdev/bitclimb/internal/optimization"
	"github.com/copyleftdev/bitclimb/internal/optimization/batch"
	"github.com/copyleftdev/bitclimb/internal/optimization/hillclimb"
	"github.com/copyleftdev/bitclimb/internal/optimization/space"
)

// spaceFlags are shared by every command that needs a solution space.
type spaceFlags struct {
	a, b          float32
	step          float32
	decimalPlaces int
	bitLength     int
}

func (f *spaceFlags) build(cmd *cobra.Command) (space.SolutionSpace, error) {
	switch {
	case cmd.Flags().Changed("decimal-places"):
		return space.FromDecimalPlaces(f.a, f.b, f.decimalPlaces)
	case cmd.Flags().Changed("bit-length"):
		return space.FromBitLength(f.a, f.b, f.bitLength)
	default:
		return space.FromStep(f.a, f.b, f.step)
	}
}

type searchFlags struct {
	rounds int
	seed   int64
	goal   string
}

func (f *searchFlags) parseGoal() (optimization.Goal, error) {
	goal, ok := optimization.ParseGoal(f.goal)
	if !ok {
		return goal, fmt.Errorf("unknown goal %q, want max or min", f.goal)
	}
	return goal, nil
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	sf := &spaceFlags{}
	var (
		logLevel  string
		logFormat string
		zl        = zap.NewNop()
	)

	rootCmd := &cobra.Command{
		Use:   "bitclimb",
		Short: "Bit-flip hill climbing over a binary-encoded interval",
		Long: `bitclimb discretizes [a, b] into 2^l points, encodes each as an l-bit
pattern and maximizes f(x) = frac(x) * (cos(20*pi*x) - sin(x)) by repeatedly
moving to the best single-bit-flip neighbor.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(&logging.Config{
				Level:  logLevel,
				Format: logFormat,
				Output: "stderr",
			})
			if err != nil {
				return err
			}
			zl = logging.NewZapLogger(logger.WithField("component", "hillclimb"))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.Float32VarP(&sf.a, "lower", "a", cfg.Search.A, "lower bound of the interval")
	pf.Float32VarP(&sf.b, "upper", "b", cfg.Search.B, "upper bound of the interval")
	pf.Float32VarP(&sf.step, "step", "d", cfg.Search.Step, "step size, a fractional power of ten")
	pf.IntVar(&sf.decimalPlaces, "decimal-places", 3, "resolve this many decimal places instead of --step")
	pf.IntVarP(&sf.bitLength, "bit-length", "l", 0, "encode with exactly this many bits instead of --step")
	pf.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (json, text)")
	rootCmd.MarkFlagsMutuallyExclusive("step", "decimal-places", "bit-length")

	logger := func() *zap.Logger { return zl }
	rootCmd.AddCommand(
		newRunCmd(cfg, sf, logger),
		newBatchCmd(cfg, sf, logger),
		newSpaceCmd(sf),
		newEncodeCmd(sf),
		newDecodeCmd(sf),
	)
	return rootCmd
}

func addSearchFlags(cmd *cobra.Command, cfg *config.Config, f *searchFlags) {
	cmd.Flags().IntVarP(&f.rounds, "rounds", "t", cfg.Search.Rounds, "number of climbing rounds")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed, 0 seeds from the clock")
	cmd.Flags().StringVar(&f.goal, "goal", "max", "max or min")
}

func newRunCmd(cfg *config.Config, sf *spaceFlags, logger func() *zap.Logger) *cobra.Command {
	f := &searchFlags{}
	var showTrace bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single hill climb and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sf.build(cmd)
			if err != nil {
				return err
			}
			goal, err := f.parseGoal()
			if err != nil {
				return err
			}

			climber, err := hillclimb.NewClimber(hillclimb.Config{
				Space:      s,
				Rounds:     f.rounds,
				Goal:       goal,
				RandomSeed: f.seed,
				Logger:     logger(),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res, err := climber.Optimize(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printResult(out, s, res)
			if showTrace {
				printTrace(out, res.Trace)
			}
			return nil
		},
	}
	addSearchFlags(cmd, cfg, f)
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the objective values visited in each round")
	return cmd
}

func newBatchCmd(cfg *config.Config, sf *spaceFlags, logger func() *zap.Logger) *cobra.Command {
	f := &searchFlags{}
	var runs, workers int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run independent hill climbs in parallel and summarize them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sf.build(cmd)
			if err != nil {
				return err
			}
			goal, err := f.parseGoal()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			rep, err := batch.Execute(ctx, batch.Config{
				Space:   s,
				Rounds:  f.rounds,
				Runs:    runs,
				Workers: workers,
				Seed:    f.seed,
				Goal:    goal,
				Logger:  logger(),
			})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), s, rep.Summary)
			return nil
		},
	}
	addSearchFlags(cmd, cfg, f)
	cmd.Flags().IntVarP(&runs, "runs", "n", 10, "number of independent climbs")
	cmd.Flags().IntVarP(&workers, "workers", "w", cfg.Optimization.WorkerCount, "climbs in flight at once")
	return cmd
}

func newSpaceCmd(sf *spaceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "space",
		Short: "Describe the solution space derived from the flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sf.build(cmd)
			if err != nil {
				return err
			}
			printSpace(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newEncodeCmd(sf *spaceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "encode [x]",
		Short: "Print the bit pattern closest to a real value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sf.build(cmd)
			if err != nil {
				return err
			}
			x, err := parseFloat32(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.RealToBinary(x))
			return nil
		},
	}
}

func newDecodeCmd(sf *spaceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [binary]",
		Short: "Print the real value of a bit pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := sf.build(cmd)
			if err != nil {
				return err
			}
			x, err := s.BinaryToReal(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatReal(s, x))
			return nil
		},
	}
}

