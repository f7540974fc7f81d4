package ledger

import "math"

// Direction is the side of a trade: Buy (+1) or Sell (-1).
type Direction int

const (
	Buy  Direction = 1
	Sell Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "invalid"
	}
}

func (d Direction) valid() bool { return d == Buy || d == Sell }

// CashAccount holds the account level totals. TotalEquity and
// UnrealizedProfit are only refreshed by MarkToMarket.
type CashAccount struct {
	InitialBalance   float64
	RealizedProfit   float64
	UnrealizedProfit float64
	TotalEquity      float64
	CumulativeFee    float64
}

// Position is the state of one instrument. Amount is signed: positive
// is net long, negative net short. HoldPrice is the average cost of the
// open exposure and is zero whenever the position is flat.
type Position struct {
	Symbol    string
	Amount    float64
	HoldPrice float64

	RealizedProfit   float64
	UnrealizedProfit float64
	CumulativeFee    float64

	LastPrice   float64
	MarketValue float64
}

// Flat reports whether the position has no open exposure.
func (p Position) Flat() bool { return p.Amount == 0 }

// UnrealizedAt is the mark-to-market profit of the open exposure at price.
func (p Position) UnrealizedAt(price float64) float64 {
	return (price - p.HoldPrice) * p.Amount
}

// Fill describes what a single Trade call did to a position.
type Fill struct {
	Symbol      string
	Direction   Direction
	Price       float64
	Amount      float64
	CoverAmount float64
	OpenAmount  float64
	Fee         float64

	// RealizedPnL is the profit of the covered portion, before fees.
	RealizedPnL float64
}

// Notional is price times amount of the fill.
func (f Fill) Notional() float64 { return f.Price * f.Amount }

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

func finite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}
