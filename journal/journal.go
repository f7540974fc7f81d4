// journal/journal.go
package journal

import "time"

// FillRecord is one synthetic fill, stamped with the bar it happened on.
type FillRecord struct {
	Time        time.Time `json:"time"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"` // "buy" or "sell"
	Price       float64   `json:"price"`
	Amount      float64   `json:"amount"`
	CoverAmount float64   `json:"cover_amount"`
	OpenAmount  float64   `json:"open_amount"`
	Fee         float64   `json:"fee"`
	RealizedPnL float64   `json:"realized_pnl"` // cover profit before fees
}

// ResultRecord is the per-bar output of a grid run. Records are
// appended once and never changed.
type ResultRecord struct {
	Time             time.Time `json:"time"`
	ClosePrice       float64   `json:"close_price"`
	PositionAmount   float64   `json:"position_amount"`
	CumulativeProfit float64   `json:"cumulative_profit"`
	CumulativeFee    float64   `json:"cumulative_fee"`
}

// Journal receives fills and results as a run progresses.
type Journal interface {
	RecordFill(FillRecord) error
	RecordResult(ResultRecord) error
	Close() error
}

// Discard is a Journal that drops everything.
var Discard Journal = discard{}

type discard struct{}

func (discard) RecordFill(FillRecord) error     { return nil }
func (discard) RecordResult(ResultRecord) error { return nil }
func (discard) Close() error                    { return nil }

// Multi fans records out to several journals, stopping at the first error.
func Multi(js ...Journal) Journal {
	return multi(js)
}

type multi []Journal

func (m multi) RecordFill(f FillRecord) error {
	for _, j := range m {
		if err := j.RecordFill(f); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) RecordResult(r ResultRecord) error {
	for _, j := range m {
		if err := j.RecordResult(r); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var first error
	for _, j := range m {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
