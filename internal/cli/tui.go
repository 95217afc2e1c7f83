package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/pdrpinto/gridastar"
	"github.com/pdrpinto/gridastar/internal/tui"
)

var tuiLogFile string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Edit the grid and watch searches in the terminal",
	Long: `Open an interactive terminal view of the grid.

Left click toggles a wall, drag the start cell with the left button, right click
moves the target. Keys: s start, r reset (cancels a running search), g random
walls, c cancel, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// The terminal belongs to the UI, so logs go to a file or nowhere.
		logOutput, closeLog, err := openLogFile(tuiLogFile)
		if err != nil {
			return err
		}
		defer closeLog()
		logger, err := newLogger(cfg, logOutput)
		if err != nil {
			return err
		}

		grid, err := newGrid(cfg, logger)
		if err != nil {
			return err
		}
		options, err := engineOptions(cfg, logger, nil)
		if err != nil {
			return err
		}
		engine := gridastar.NewEngine(grid, options...)
		defer engine.Close()

		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to open terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialise terminal: %w", err)
		}
		defer screen.Fini()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		app := tui.New(screen, engine, tui.Options{
			WallProbability: cfg.Randomize.Probability,
			Rand:            newRand(cfg.Randomize.Seed),
			Logger:          logger,
		})
		logger.Info("terminal session started", "width", cfg.Grid.Width, "height", cfg.Grid.Height)
		return app.Run(ctx)
	},
}

func init() {
	tuiCmd.Flags().StringVar(&tuiLogFile, "log-file", "", "Write logs to this file (discarded when empty)")
}
