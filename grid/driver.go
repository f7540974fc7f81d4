// Package grid replays price bars through a grid strategy on top of a
// ledger.
//
// Each bar can fill at most one synthetic buy and one synthetic sell,
// at the limit prices computed from the inventory held when the bar
// opens. A bar whose range would have crossed several grid levels still
// fills once per side.
package grid

import (
	"fmt"
	"time"

	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/ledger"
	"github.com/rustyeddy/gridtrader/pricing"
)

// ResultRecord is the per-bar output of a run.
type ResultRecord = journal.ResultRecord

type Driver struct {
	params  Params
	ledger  *ledger.Ledger
	journal journal.Journal

	records  []ResultRecord
	lastTime time.Time
	bars     int
	buys     int
	sells    int
}

// New validates p and creates a driver with a fresh single-symbol
// ledger. A nil journal discards fills and results.
func New(p Params, j journal.Journal) (*Driver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l, err := ledger.New([]string{p.Symbol}, p.InitialBalance, p.FeeRate)
	if err != nil {
		return nil, err
	}
	return NewWithLedger(p, l, j)
}

// NewWithLedger runs the grid on an existing ledger, for example one
// that already carries inventory. The ledger must hold p.Symbol and
// agree with p on fee rate and initial balance.
func NewWithLedger(p Params, l *ledger.Ledger, j journal.Journal) (*Driver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("grid: ledger is required: %w", ledger.ErrInvalidArgument)
	}
	if _, err := l.Position(p.Symbol); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}
	if l.FeeRate() != p.FeeRate || l.Cash().InitialBalance != p.InitialBalance {
		return nil, fmt.Errorf("grid: ledger fee rate or balance differs from params: %w", ledger.ErrInvalidArgument)
	}
	if j == nil {
		j = journal.Discard
	}
	return &Driver{params: p, ledger: l, journal: j}, nil
}

func (d *Driver) Params() Params { return d.params }

// Ledger exposes the ledger for inspection. Callers must not trade on it.
func (d *Driver) Ledger() *ledger.Ledger { return d.ledger }

// Records returns a copy of the results so far.
func (d *Driver) Records() []ResultRecord {
	out := make([]ResultRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Fills returns how many buy and sell fills the run has made.
func (d *Driver) Fills() (buys, sells int) { return d.buys, d.sells }

// Step processes one bar.
func (d *Driver) Step(bar pricing.Bar) (ResultRecord, error) {
	if err := bar.Validate(); err != nil {
		return ResultRecord{}, fmt.Errorf("bar %d: %w", d.bars, err)
	}
	if d.bars > 0 && !bar.Time.After(d.lastTime) {
		return ResultRecord{}, fmt.Errorf("bar %d: time %s not after %s: %w",
			d.bars, bar.Time.Format(time.RFC3339), d.lastTime.Format(time.RFC3339), pricing.ErrMalformedInput)
	}

	sym := d.params.Symbol
	pos, err := d.ledger.Position(sym)
	if err != nil {
		return ResultRecord{}, err
	}

	buyPrice, sellPrice, err := d.params.Prices(pos.Amount)
	if err != nil {
		return ResultRecord{}, fmt.Errorf("bar %d (%s): %w", d.bars, bar.Time.Format(time.RFC3339), err)
	}

	if bar.Low < buyPrice {
		if err := d.fill(bar.Time, ledger.Buy, buyPrice); err != nil {
			return ResultRecord{}, err
		}
		d.buys++
	}
	if bar.High > sellPrice {
		if err := d.fill(bar.Time, ledger.Sell, sellPrice); err != nil {
			return ResultRecord{}, err
		}
		d.sells++
	}

	if err := d.ledger.MarkToMarket(map[string]float64{sym: bar.Close}); err != nil {
		return ResultRecord{}, fmt.Errorf("bar %d: %w", d.bars, err)
	}

	pos, _ = d.ledger.Position(sym)
	cash := d.ledger.Cash()
	rec := ResultRecord{
		Time:             bar.Time,
		ClosePrice:       bar.Close,
		PositionAmount:   pos.Amount,
		CumulativeProfit: cash.TotalEquity - cash.InitialBalance,
		CumulativeFee:    cash.CumulativeFee,
	}

	if err := d.journal.RecordResult(rec); err != nil {
		return ResultRecord{}, fmt.Errorf("bar %d: record result: %w", d.bars, err)
	}
	d.records = append(d.records, rec)
	d.lastTime = bar.Time
	d.bars++
	return rec, nil
}

func (d *Driver) fill(at time.Time, dir ledger.Direction, price float64) error {
	f, err := d.ledger.Trade(d.params.Symbol, dir, price, d.params.GridValue/price)
	if err != nil {
		return fmt.Errorf("bar %d: %s: %w", d.bars, dir, err)
	}
	err = d.journal.RecordFill(journal.FillRecord{
		Time:        at,
		Symbol:      f.Symbol,
		Side:        f.Direction.String(),
		Price:       f.Price,
		Amount:      f.Amount,
		CoverAmount: f.CoverAmount,
		OpenAmount:  f.OpenAmount,
		Fee:         f.Fee,
		RealizedPnL: f.RealizedPnL,
	})
	if err != nil {
		return fmt.Errorf("bar %d: record fill: %w", d.bars, err)
	}
	return nil
}

// Run steps through bars in order and returns the result records. It
// stops at the first error.
func (d *Driver) Run(bars []pricing.Bar) ([]ResultRecord, error) {
	for _, b := range bars {
		if _, err := d.Step(b); err != nil {
			return d.Records(), err
		}
	}
	return d.Records(), nil
}

// Run is a convenience wrapper creating a driver and running bars
// through it.
func Run(p Params, bars []pricing.Bar) ([]ResultRecord, error) {
	d, err := New(p, nil)
	if err != nil {
		return nil, err
	}
	return d.Run(bars)
}
