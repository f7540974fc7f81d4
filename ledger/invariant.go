package ledger

import (
	"fmt"
	"math"
)

const invariantTolerance = 1e-9

func near(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= invariantTolerance*scale
}

// CheckInvariant verifies that the cash account agrees with the
// positions and that equity is conserved:
//
//	TotalEquity == InitialBalance + RealizedProfit + UnrealizedProfit
//
// It is meaningful after MarkToMarket; trades move realized profit
// between revaluations without touching TotalEquity.
func (l *Ledger) CheckInvariant() error {
	var realized, unrealized, fee float64

	for _, s := range l.symbols {
		p := l.positions[s]
		if p.HoldPrice < 0 {
			return fmt.Errorf("%q: negative hold price %v: %w", s, p.HoldPrice, ErrInvariantViolated)
		}
		if p.Amount == 0 && p.HoldPrice != 0 {
			return fmt.Errorf("%q: flat position with hold price %v: %w", s, p.HoldPrice, ErrInvariantViolated)
		}
		if p.CumulativeFee < 0 {
			return fmt.Errorf("%q: negative cumulative fee %v: %w", s, p.CumulativeFee, ErrInvariantViolated)
		}
		realized += p.RealizedProfit
		unrealized += p.UnrealizedProfit
		fee += p.CumulativeFee
	}

	c := l.cash
	switch {
	case !near(c.RealizedProfit, realized):
		return fmt.Errorf("cash realized %v != positions %v: %w", c.RealizedProfit, realized, ErrInvariantViolated)
	case !near(c.UnrealizedProfit, unrealized):
		return fmt.Errorf("cash unrealized %v != positions %v: %w", c.UnrealizedProfit, unrealized, ErrInvariantViolated)
	case !near(c.CumulativeFee, fee):
		return fmt.Errorf("cash fee %v != positions %v: %w", c.CumulativeFee, fee, ErrInvariantViolated)
	case !near(c.TotalEquity, c.InitialBalance+c.RealizedProfit+c.UnrealizedProfit):
		return fmt.Errorf("equity %v != %v + %v + %v: %w",
			c.TotalEquity, c.InitialBalance, c.RealizedProfit, c.UnrealizedProfit, ErrInvariantViolated)
	}
	return nil
}
