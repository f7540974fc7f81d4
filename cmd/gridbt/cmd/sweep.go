package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/backtest"
	"github.com/rustyeddy/gridtrader/config"
	"github.com/rustyeddy/gridtrader/pricing"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Backtest several grid spacings over the same bars",
	Long: `Run one independent backtest per grid percentage. The grid value is
scaled with the percentage, so grid.grid_value is the value at
grid.grid_pct.

Examples:
  gridbt sweep -c grid.yaml
  gridbt sweep -c grid.yaml --pcts 0.0005,0.001,0.002,0.005 --workers 4`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	sweepPcts    []float64
	sweepWorkers int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	addDataFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&sweepPcts, "pcts", nil, "grid percentages (overrides sweep.pcts)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel runs (0 uses all CPUs)")
}

func runSweep(cmd *cobra.Command, args []string) error {
	if len(sweepPcts) > 0 {
		cfg.Sweep.Pcts = sweepPcts
	}
	if cmd.Flags().Changed("workers") {
		cfg.Sweep.Workers = sweepWorkers
	}
	if err := applyRunFlags(cmd); err != nil {
		return err
	}
	if len(cfg.Sweep.Pcts) == 0 {
		return fmt.Errorf("no grid percentages: set sweep.pcts or --pcts")
	}

	feed, err := openFeed()
	if err != nil {
		return fmt.Errorf("open bars: %w", err)
	}
	bars, err := pricing.Collect(feed)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	r := &backtest.Runner{
		Params:  cfg.Grid,
		Dataset: filepath.Base(cfg.Data.Bars),
		Logger:  &log.Logger,
	}
	if cfg.Journal.Type == config.JournalSQLite {
		store, err := openStore(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		r.Store = store
	}

	rows, err := r.Sweep(cmd.Context(), bars, cfg.Sweep.Pcts, cfg.Sweep.Workers)
	if err != nil {
		return err
	}

	backtest.PrintSweep(os.Stdout, rows)
	fmt.Printf("✓ Sweep complete: %d runs over %d bars\n", len(rows), len(bars))
	return nil
}
