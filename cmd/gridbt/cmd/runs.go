package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/backtest"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query stored backtest runs",
	Long: `Query and display backtest runs from the SQLite run store.

Subcommands:
  list  - List recent runs
  show  - Show one run, optionally with its per-bar results

Examples:
  gridbt runs list --limit 10
  gridbt runs show 01HV5R3J9Q8W6ZKX2M4N7P0T1S --results`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show details of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var (
	runsDBPath  string
	runsLimit   int
	runsResults bool
)

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.PersistentFlags().StringVarP(&runsDBPath, "db", "d", "", "path to SQLite run store (default journal.db_path)")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 for all)")
	runsShowCmd.Flags().BoolVar(&runsResults, "results", false, "also print per-bar results")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(runsDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN_ID\tCREATED\tSTATUS\tSYMBOL\tGRID_PCT\tBARS\tPROFIT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunID,
			r.Created.Local().Format(time.DateTime),
			r.Status,
			r.Symbol,
			decimal.NewFromFloat(r.GridPct).String(),
			r.Summary.Bars,
			decimal.NewFromFloat(r.Summary.FinalProfit).StringFixed(6),
		)
	}
	return tw.Flush()
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(runsDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	backtest.PrintSummary(os.Stdout, run)

	if !runsResults {
		return nil
	}

	recs, err := store.ListResults(cmd.Context(), run.RunID)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCLOSE\tAMOUNT\tPROFIT\tFEE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Time.UTC().Format(time.RFC3339),
			decimal.NewFromFloat(r.ClosePrice).String(),
			decimal.NewFromFloat(r.PositionAmount).StringFixed(6),
			decimal.NewFromFloat(r.CumulativeProfit).StringFixed(6),
			decimal.NewFromFloat(r.CumulativeFee).StringFixed(6),
		)
	}
	return tw.Flush()
}
