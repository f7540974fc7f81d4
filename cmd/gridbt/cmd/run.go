package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/backtest"
	"github.com/rustyeddy/gridtrader/config"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/pricing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a grid backtest over a bar file",
	Long: `Replay a CSV of OHLC bars through the configured grid.

The CSV holds time,open,high,low,close[,volume] rows, with time in
RFC3339 or Unix milliseconds. A zero grid.init_price anchors the grid
on the first close.

Examples:
  gridbt run -c grid.yaml
  gridbt run -c grid.yaml --bars data/dydx-5m.csv --db runs.db
  gridbt run --bars data/dydx-5m.csv --pct 0.005 --journal none`,
	Args: cobra.NoArgs,
	RunE: runBacktest,
}

var (
	runBars      string
	runDB        string
	runFrom      string
	runTo        string
	runJournal   string
	runPct       float64
	runValue     float64
	runInitPrice float64
)

func init() {
	rootCmd.AddCommand(runCmd)

	addDataFlags(runCmd)
	runCmd.Flags().StringVar(&runJournal, "journal", "", "journal type override: none, csv or sqlite")
	runCmd.Flags().Float64Var(&runPct, "pct", 0, "grid spacing override, e.g. 0.01")
	runCmd.Flags().Float64Var(&runValue, "value", 0, "grid value override")
	runCmd.Flags().Float64Var(&runInitPrice, "init-price", 0, "init price override (0 uses the first close)")
}

// addDataFlags registers the bar source flags shared by run and sweep.
func addDataFlags(c *cobra.Command) {
	c.Flags().StringVar(&runBars, "bars", "", "bar CSV path (overrides data.bars)")
	c.Flags().StringVar(&runDB, "db", "", "SQLite run store (overrides journal.db_path)")
	c.Flags().StringVar(&runFrom, "from", "", "first bar time, inclusive (RFC3339 or unix ms)")
	c.Flags().StringVar(&runTo, "to", "", "last bar time, exclusive (RFC3339 or unix ms)")
}

// applyRunFlags folds command line overrides into cfg and revalidates.
func applyRunFlags(c *cobra.Command) error {
	if runBars != "" {
		cfg.Data.Bars = runBars
	}
	if runFrom != "" {
		cfg.Data.From = runFrom
	}
	if runTo != "" {
		cfg.Data.To = runTo
	}
	if runDB != "" {
		cfg.Journal.Type = config.JournalSQLite
		cfg.Journal.DBPath = runDB
	}
	if c.Flags().Changed("journal") {
		cfg.Journal.Type = runJournal
	}
	if c.Flags().Changed("pct") {
		cfg.Grid.GridPct = runPct
	}
	if c.Flags().Changed("value") {
		cfg.Grid.GridValue = runValue
	}
	if c.Flags().Changed("init-price") {
		cfg.Grid.InitPrice = runInitPrice
	}
	if cfg.Data.Bars == "" {
		return fmt.Errorf("no bar file: set data.bars or --bars")
	}
	return cfg.Validate()
}

func openFeed() (pricing.Feed, error) {
	from, to, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}
	return pricing.NewCSVFeed(cfg.Data.Bars, from, to)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := applyRunFlags(cmd); err != nil {
		return err
	}

	feed, err := openFeed()
	if err != nil {
		return fmt.Errorf("open bars: %w", err)
	}

	r := &backtest.Runner{
		Params:  cfg.Grid,
		Feed:    feed,
		Dataset: filepath.Base(cfg.Data.Bars),
		Logger:  &log.Logger,
	}

	switch cfg.Journal.Type {
	case config.JournalCSV:
		j, err := journal.NewCSV(cfg.Journal.FillsFile, cfg.Journal.ResultsFile)
		if err != nil {
			return fmt.Errorf("open csv journal: %w", err)
		}
		defer j.Close()
		r.Journal = j
	case config.JournalSQLite:
		store, err := openStore(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		r.Store = store
	}

	start := time.Now()
	res, err := r.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	rec := res.RunRecord(r.Dataset)
	if r.Store != nil {
		if stored, err := r.Store.GetRun(cmd.Context(), res.RunID); err == nil {
			rec = stored
		}
	}
	backtest.PrintSummary(os.Stdout, rec)

	fmt.Printf("✓ Backtest complete in %s\n", time.Since(start).Round(time.Millisecond))
	switch cfg.Journal.Type {
	case config.JournalCSV:
		fmt.Printf("  Fills:   %s\n", cfg.Journal.FillsFile)
		fmt.Printf("  Results: %s\n", cfg.Journal.ResultsFile)
	case config.JournalSQLite:
		fmt.Printf("  Stored in %s, see: gridbt runs show %s\n", cfg.Journal.DBPath, res.RunID)
	}
	return nil
}
