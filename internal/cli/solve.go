package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pdrpinto/gridastar"
	"github.com/pdrpinto/gridastar/internal/config"
)

type solveFlags struct {
	json        bool
	random      bool
	probability float64
	seed        int64
	frontier    string
	heuristic   string
	workers     int
}

var solveOpts solveFlags

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run one search headless and print the result",
	Long: `Run a search to completion without pauses between iterations and print the
grid with the path, or the result as JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applySolveFlags(cmd, &cfg)

		logger, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runSolve(ctx, cmd.OutOrStdout(), cfg, logger, solveOpts.json)
	},
}

func init() {
	solveCmd.Flags().BoolVar(&solveOpts.json, "json", false, "Output the result as JSON")
	solveCmd.Flags().BoolVar(&solveOpts.random, "random", false, "Place random walls before searching")
	solveCmd.Flags().Float64Var(&solveOpts.probability, "probability", gridastar.DefaultWallProbability, "Wall probability for --random")
	solveCmd.Flags().Int64Var(&solveOpts.seed, "seed", 0, "Seed for --random (0 seeds from the clock)")
	solveCmd.Flags().StringVar(&solveOpts.frontier, "frontier", "", "Open-set implementation: scan or heap")
	solveCmd.Flags().StringVar(&solveOpts.heuristic, "heuristic", "", "Distance estimate: euclidean or octile")
	solveCmd.Flags().IntVar(&solveOpts.workers, "workers", 0, "Worker goroutines pricing neighbours (0 prices inline)")
}

// applySolveFlags overrides config values with flags given on the command line.
func applySolveFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("random") {
		cfg.Randomize.Enabled = solveOpts.random
	}
	if flags.Changed("probability") {
		cfg.Randomize.Probability = solveOpts.probability
	}
	if flags.Changed("seed") {
		cfg.Randomize.Seed = solveOpts.seed
	}
	if flags.Changed("frontier") {
		cfg.Search.Frontier = solveOpts.frontier
	}
	if flags.Changed("heuristic") {
		cfg.Search.Heuristic = solveOpts.heuristic
	}
	if flags.Changed("workers") {
		cfg.Search.Workers = solveOpts.workers
	}
}

type solveResult struct {
	RunID     string            `json:"run_id"`
	State     string            `json:"state"`
	Found     bool              `json:"found"`
	Cost      float64           `json:"cost"`
	Expanded  int               `json:"expanded"`
	Path      []gridastar.Point `json:"path"`
	ElapsedMS float64           `json:"elapsed_ms"`
}

func runSolve(ctx context.Context, out io.Writer, cfg config.Config, logger *slog.Logger, asJSON bool) error {
	grid, err := newGrid(cfg, logger)
	if err != nil {
		return err
	}
	options, err := engineOptions(cfg, logger, nil)
	if err != nil {
		return err
	}

	result, err := gridastar.Search(ctx, grid, options...)
	if err != nil {
		return err
	}

	if asJSON {
		path := result.Path
		if path == nil {
			path = []gridastar.Point{}
		}
		return outputJSON(out, solveResult{
			RunID:     result.RunID.String(),
			State:     result.State.String(),
			Found:     result.Found,
			Cost:      result.TotalCost,
			Expanded:  result.ExpandedNodes,
			Path:      path,
			ElapsedMS: float64(result.Elapsed.Microseconds()) / 1000,
		})
	}

	renderGrid(out, grid.Snapshot(), result.Path)
	_, _ = fmt.Fprintln(out)
	if result.Found {
		_, _ = successColor.Fprintf(out, "✓ path found\n")
		printLabelValue(out, "Cost", fmt.Sprintf("%.3f", result.TotalCost))
		printLabelValue(out, "Length", fmt.Sprintf("%d cells", len(result.Path)))
	} else {
		_, _ = warningColor.Fprintf(out, "⚠ no path\n")
	}
	printLabelValue(out, "Expanded", fmt.Sprintf("%d", result.ExpandedNodes))
	printLabelValue(out, "Elapsed", result.Elapsed.String())
	return nil
}
