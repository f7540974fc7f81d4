package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/gridtrader/journal"
)

func fixed(x float64, places int32) string {
	return decimal.NewFromFloat(x).StringFixed(places)
}

// pctOf returns x as a percentage of base, rounded to two places.
func pctOf(x, base float64) string {
	if base == 0 {
		return "0.00"
	}
	return decimal.NewFromFloat(x).
		Div(decimal.NewFromFloat(base)).
		Mul(decimal.NewFromInt(100)).
		StringFixed(2)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func PrintSummary(w io.Writer, run journal.RunRecord) {
	s := run.Summary

	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Grid Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", run.RunID)
	if !run.Created.IsZero() {
		fmt.Fprintf(w, "Created:       %s\n", stamp(run.Created))
	}
	if run.Status != "" {
		fmt.Fprintf(w, "Status:        %s\n", run.Status)
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error:         %s\n", run.Error)
	}
	if run.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", run.Dataset)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Grid")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Symbol:        %s\n", run.Symbol)
	fmt.Fprintf(w, "Grid Value:    %s\n", fixed(run.GridValue, 2))
	fmt.Fprintf(w, "Grid Pct:      %s%%\n", pctOf(run.GridPct, 1))
	fmt.Fprintf(w, "Fee Rate:      %s%%\n", pctOf(run.FeeRate, 1))
	fmt.Fprintf(w, "Init Price:    %s\n", fixed(run.InitPrice, 6))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", stamp(s.Start))
	fmt.Fprintf(w, "End:           %s\n", stamp(s.End))
	fmt.Fprintf(w, "Bars:          %d\n", s.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Fills")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Buys:          %d\n", s.Buys)
	fmt.Fprintf(w, "Sells:         %d\n", s.Sells)
	fmt.Fprintf(w, "Final Amount:  %s\n", fixed(s.FinalAmount, 6))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Balance: %s\n", fixed(run.InitialBalance, 2))
	fmt.Fprintf(w, "Net Profit:    %s\n", fixed(s.FinalProfit, 6))
	fmt.Fprintf(w, "Return:        %s%%\n", pctOf(s.FinalProfit, run.InitialBalance))
	fmt.Fprintf(w, "Min Profit:    %s\n", fixed(s.MinProfit, 6))
	fmt.Fprintf(w, "Max Profit:    %s\n", fixed(s.MaxProfit, 6))
	fmt.Fprintf(w, "Max Drawdown:  %s\n", fixed(s.MaxDrawdown, 6))
	fmt.Fprintf(w, "Fees:          %s\n", fixed(s.TotalFee, 6))

	fmt.Fprintln(w)
}

// RunRecord builds the report view of an in-memory result.
func (res Result) RunRecord(dataset string) journal.RunRecord {
	p := res.Params
	return journal.RunRecord{
		RunID:          res.RunID,
		Dataset:        dataset,
		Symbol:         p.Symbol,
		GridValue:      p.GridValue,
		GridPct:        p.GridPct,
		FeeRate:        p.FeeRate,
		InitialBalance: p.InitialBalance,
		InitPrice:      p.InitPrice,
		Summary:        res.Summary,
	}
}

// PrintSweep prints one line per grid percentage.
func PrintSweep(w io.Writer, rows []SweepRow) {
	fmt.Fprintf(w, "%-10s %-12s %-6s %-6s %-16s %-14s %-12s %s\n",
		"GRID_PCT", "GRID_VALUE", "BUYS", "SELLS", "PROFIT", "MAX_DD", "FEES", "RUN_ID")
	for _, r := range rows {
		if r.Err != nil {
			fmt.Fprintf(w, "%-10s %-12s error: %v\n", pctOf(r.GridPct, 1)+"%", fixed(r.GridValue, 2), r.Err)
			continue
		}
		s := r.Result.Summary
		fmt.Fprintf(w, "%-10s %-12s %-6d %-6d %-16s %-14s %-12s %s\n",
			pctOf(r.GridPct, 1)+"%",
			fixed(r.GridValue, 2),
			s.Buys,
			s.Sells,
			fixed(s.FinalProfit, 6),
			fixed(s.MaxDrawdown, 6),
			fixed(s.TotalFee, 6),
			r.Result.RunID,
		)
	}
}
