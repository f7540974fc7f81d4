// Package ledger is the accounting core of the grid backtester. It keeps
// the cash account and one position per instrument and only changes
// them through Trade and MarkToMarket.
//
// A Ledger is not safe for concurrent use. Independent backtests use
// independent ledgers.
package ledger

import (
	"fmt"
	"math"
	"strings"
)

type Ledger struct {
	feeRate   float64
	cash      CashAccount
	symbols   []string
	positions map[string]*Position
}

// New creates a ledger for a fixed instrument set.
func New(symbols []string, initialBalance, feeRate float64) (*Ledger, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("new ledger: no symbols: %w", ErrInvalidArgument)
	}
	if !positive(initialBalance) {
		return nil, fmt.Errorf("new ledger: initial balance %v must be positive: %w", initialBalance, ErrInvalidArgument)
	}
	if feeRate < 0 || !finite(feeRate) {
		return nil, fmt.Errorf("new ledger: fee rate %v must be >= 0: %w", feeRate, ErrInvalidArgument)
	}

	l := &Ledger{
		feeRate: feeRate,
		cash: CashAccount{
			InitialBalance: initialBalance,
			TotalEquity:    initialBalance,
		},
		symbols:   make([]string, 0, len(symbols)),
		positions: make(map[string]*Position, len(symbols)),
	}
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("new ledger: blank symbol: %w", ErrInvalidArgument)
		}
		if _, dup := l.positions[s]; dup {
			return nil, fmt.Errorf("new ledger: duplicate symbol %q: %w", s, ErrInvalidArgument)
		}
		l.symbols = append(l.symbols, s)
		l.positions[s] = &Position{Symbol: s}
	}
	return l, nil
}

func (l *Ledger) FeeRate() float64 { return l.feeRate }

// Cash returns a copy of the cash account.
func (l *Ledger) Cash() CashAccount { return l.cash }

// Symbols returns the instrument set in construction order.
func (l *Ledger) Symbols() []string {
	out := make([]string, len(l.symbols))
	copy(out, l.symbols)
	return out
}

// Position returns a copy of the position for symbol.
func (l *Ledger) Position(symbol string) (Position, error) {
	p, ok := l.positions[symbol]
	if !ok {
		return Position{}, fmt.Errorf("position %q: %w", symbol, ErrUnknownSymbol)
	}
	return *p, nil
}

func (l *Ledger) Buy(symbol string, price, amount float64) (Fill, error) {
	return l.Trade(symbol, Buy, price, amount)
}

func (l *Ledger) Sell(symbol string, price, amount float64) (Fill, error) {
	return l.Trade(symbol, Sell, price, amount)
}

// Trade executes amount units of symbol at price. The part of the trade
// that opposes the current position covers it first (realizing profit
// against the hold price); the rest opens or extends exposure in the
// trade's direction. The fee is charged on the full amount.
func (l *Ledger) Trade(symbol string, dir Direction, price, amount float64) (Fill, error) {
	if !dir.valid() {
		return Fill{}, fmt.Errorf("trade %q: direction %d: %w", symbol, int(dir), ErrInvalidArgument)
	}
	if !positive(price) {
		return Fill{}, fmt.Errorf("trade %q: price %v must be positive: %w", symbol, price, ErrInvalidArgument)
	}
	if !positive(amount) {
		return Fill{}, fmt.Errorf("trade %q: amount %v must be positive: %w", symbol, amount, ErrInvalidArgument)
	}
	p, ok := l.positions[symbol]
	if !ok {
		return Fill{}, fmt.Errorf("trade %q: %w", symbol, ErrUnknownSymbol)
	}

	d := float64(dir)

	cover := 0.0
	if d*p.Amount < 0 {
		cover = math.Min(math.Abs(p.Amount), amount)
	}
	open := amount - cover

	fee := price * amount * l.feeRate
	p.RealizedProfit -= fee
	p.CumulativeFee += fee
	l.cash.RealizedProfit -= fee
	l.cash.CumulativeFee += fee

	fill := Fill{
		Symbol:      symbol,
		Direction:   dir,
		Price:       price,
		Amount:      amount,
		CoverAmount: cover,
		OpenAmount:  open,
		Fee:         fee,
	}

	if cover > 0 {
		pnl := -d * (price - p.HoldPrice) * cover
		p.RealizedProfit += pnl
		l.cash.RealizedProfit += pnl
		fill.RealizedPnL = pnl

		p.Amount -= -d * cover
		if p.Amount == 0 {
			p.HoldPrice = 0
		}
	}

	if open > 0 {
		// After a full cover Amount is zero, so a flip opens at price.
		cost := p.HoldPrice*d*p.Amount + price*open
		size := d*p.Amount + open
		p.HoldPrice = cost / size
		p.Amount += d * open
	}

	return fill, nil
}

// MarkToMarket revalues every position at the given prices and
// recomputes the unrealized profit and total equity of the account.
// Every instrument of the ledger must have a finite, non-negative price.
func (l *Ledger) MarkToMarket(prices map[string]float64) error {
	for _, s := range l.symbols {
		px, ok := prices[s]
		if !ok {
			return fmt.Errorf("mark to market %q: %w", s, ErrMissingPrice)
		}
		if px < 0 || !finite(px) {
			return fmt.Errorf("mark to market %q: price %v must be finite and >= 0: %w", s, px, ErrInvalidArgument)
		}
	}

	unrealized := 0.0
	for _, s := range l.symbols {
		p := l.positions[s]
		px := prices[s]

		p.UnrealizedProfit = p.UnrealizedAt(px)
		p.LastPrice = px
		p.MarketValue = math.Abs(p.Amount) * px
		unrealized += p.UnrealizedProfit
	}

	l.cash.UnrealizedProfit = unrealized
	l.cash.TotalEquity = l.cash.InitialBalance + l.cash.RealizedProfit + l.cash.UnrealizedProfit
	return nil
}

// Profit is total equity minus the initial balance as of the last
// MarkToMarket.
func (l *Ledger) Profit() float64 {
	return l.cash.TotalEquity - l.cash.InitialBalance
}
