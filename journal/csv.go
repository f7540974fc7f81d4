package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

var (
	fillsHeader   = []string{"time", "symbol", "side", "price", "amount", "cover_amount", "open_amount", "fee", "realized_pnl"}
	resultsHeader = []string{"time", "close_price", "position_amount", "cumulative_profit", "cumulative_fee"}
)

// CSV writes fills and per-bar results to two CSV files.
type CSV struct {
	fills   *csv.Writer
	results *csv.Writer
	ff, rf  io.WriteCloser
}

func NewCSV(fillsPath, resultsPath string) (*CSV, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	rf, err := os.Create(resultsPath)
	if err != nil {
		_ = ff.Close()
		return nil, err
	}
	return newCSV(ff, rf)
}

// newCSV writes the headers to ff and rf. Both are closed if that fails.
func newCSV(ff, rf io.WriteCloser) (*CSV, error) {
	fw := csv.NewWriter(ff)
	rw := csv.NewWriter(rf)

	if err := writeHeader(fw, fillsHeader); err != nil {
		_ = ff.Close()
		_ = rf.Close()
		return nil, fmt.Errorf("fills header: %w", err)
	}
	if err := writeHeader(rw, resultsHeader); err != nil {
		_ = ff.Close()
		_ = rf.Close()
		return nil, fmt.Errorf("results header: %w", err)
	}

	return &CSV{fills: fw, results: rw, ff: ff, rf: rf}, nil
}

func writeHeader(w *csv.Writer, header []string) error {
	if err := w.Write(header); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordFill(fl FillRecord) error {
	err := j.fills.Write([]string{
		fl.Time.UTC().Format(time.RFC3339Nano),
		fl.Symbol,
		fl.Side,
		f(fl.Price),
		f(fl.Amount),
		f(fl.CoverAmount),
		f(fl.OpenAmount),
		f(fl.Fee),
		f(fl.RealizedPnL),
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSV) RecordResult(r ResultRecord) error {
	err := j.results.Write([]string{
		r.Time.UTC().Format(time.RFC3339Nano),
		f(r.ClosePrice),
		f(r.PositionAmount),
		f(r.CumulativeProfit),
		f(r.CumulativeFee),
	})
	if err != nil {
		return err
	}
	j.results.Flush()
	return j.results.Error()
}

func (j *CSV) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	j.results.Flush()
	if err := j.results.Error(); err != nil {
		return err
	}

	if err := j.ff.Close(); err != nil {
		return err
	}
	if err := j.rf.Close(); err != nil {
		return err
	}
	return nil
}

// f formats x with six fixed decimals, rounding half away from zero.
func f(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(6)
}
