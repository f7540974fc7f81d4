package backtest

import "github.com/rustyeddy/gridtrader/journal"

// Summarize computes headline metrics from a run's records. Drawdown is
// measured on the cumulative profit curve, which starts at zero.
func Summarize(records []journal.ResultRecord, buys, sells int) journal.Summary {
	s := journal.Summary{Bars: len(records), Buys: buys, Sells: sells}
	if len(records) == 0 {
		return s
	}

	first, last := records[0], records[len(records)-1]
	s.Start, s.End = first.Time, last.Time
	s.FinalProfit = last.CumulativeProfit
	s.TotalFee = last.CumulativeFee
	s.FinalAmount = last.PositionAmount
	s.MinProfit, s.MaxProfit = first.CumulativeProfit, first.CumulativeProfit

	peak := 0.0
	for _, r := range records {
		p := r.CumulativeProfit
		s.MinProfit = min(s.MinProfit, p)
		s.MaxProfit = max(s.MaxProfit, p)
		peak = max(peak, p)
		s.MaxDrawdown = max(s.MaxDrawdown, peak-p)
	}
	return s
}
