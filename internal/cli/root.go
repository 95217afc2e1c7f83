package cli

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdrpinto/gridastar"
	"github.com/pdrpinto/gridastar/internal/config"
	"github.com/pdrpinto/gridastar/internal/logging"
)

var (
	// Global flags
	configPath string
	logLevel   string
)

// rootCmd is the root command for gridastar.
var rootCmd = &cobra.Command{
	Use:     "gridastar",
	Version: "dev",
	Short:   "A* pathfinding on an editable grid",
	Long: `gridastar searches an 8-connected grid for the cheapest path between a start
and a target cell, with walls that can be edited while the search runs.

Run it headless, in the terminal, or behind an HTTP server with a live event stream.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the gridastar version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), rootCmd.Version)
		},
	}
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file and environment, then applies the
// --log-level flag.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config, output io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:   level,
		JSON:    cfg.Log.Format == "json",
		Service: "gridastar",
		Output:  output,
	}), nil
}

// newGrid builds the configured grid, with random walls when enabled.
func newGrid(cfg config.Config, logger *slog.Logger) (*gridastar.Grid, error) {
	target := cfg.TargetPoint()
	grid, err := gridastar.NewGrid(cfg.Grid.Width, cfg.Grid.Height,
		gridastar.Point{X: cfg.Grid.Start.X, Y: cfg.Grid.Start.Y},
		gridastar.Point{X: target.X, Y: target.Y})
	if err != nil {
		return nil, fmt.Errorf("failed to create grid: %w", err)
	}
	if cfg.Randomize.Enabled {
		if err := grid.Randomize(cfg.Randomize.Probability, newRand(cfg.Randomize.Seed)); err != nil {
			return nil, err
		}
		logger.Debug("random walls placed",
			"probability", cfg.Randomize.Probability,
			"seed", cfg.Randomize.Seed)
	}
	return grid, nil
}

// newRand seeds from the clock when seed is zero.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func engineOptions(cfg config.Config, logger *slog.Logger, metrics *gridastar.Metrics) ([]gridastar.Option, error) {
	frontier, err := gridastar.ParseFrontierKind(cfg.Search.Frontier)
	if err != nil {
		return nil, err
	}
	heuristic, err := gridastar.ParseHeuristic(cfg.Search.Heuristic)
	if err != nil {
		return nil, err
	}
	return []gridastar.Option{
		gridastar.WithFrontier(frontier),
		gridastar.WithHeuristic(heuristic),
		gridastar.WithWorkers(cfg.Search.Workers),
		gridastar.WithStepDelay(cfg.Search.StepDelay),
		gridastar.WithLogger(logger),
		gridastar.WithMetrics(metrics),
	}, nil
}

func openLogFile(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
