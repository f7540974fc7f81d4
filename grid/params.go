package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/gridtrader/ledger"
)

// ErrDegenerateGridPrice is returned when the inventory drives the grid
// denominator to zero or below, where buy/sell targets are undefined.
var ErrDegenerateGridPrice = errors.New("degenerate grid price")

// Params configures one grid run.
type Params struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	GridValue      float64 `json:"grid_value" yaml:"grid_value"`           // notional per grid level
	GridPct        float64 `json:"grid_pct" yaml:"grid_pct"`               // fractional spacing, (0, 1)
	FeeRate        float64 `json:"fee_rate" yaml:"fee_rate"`               // fractional fee, >= 0
	InitialBalance float64 `json:"initial_balance" yaml:"initial_balance"` // starting cash
	InitPrice      float64 `json:"init_price" yaml:"init_price"`           // reference price anchoring the grid
}

func (p Params) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("grid params: "+format+": %w", append(args, ledger.ErrInvalidArgument)...)
	}
	for name, v := range map[string]float64{
		"grid_value": p.GridValue, "grid_pct": p.GridPct, "fee_rate": p.FeeRate,
		"initial_balance": p.InitialBalance, "init_price": p.InitPrice,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return bad("%s is not finite", name)
		}
	}

	switch {
	case strings.TrimSpace(p.Symbol) == "":
		return bad("symbol is required")
	case p.GridValue <= 0:
		return bad("grid_value must be positive")
	case p.GridPct <= 0 || p.GridPct >= 1:
		return bad("grid_pct must be between 0 and 1")
	case p.FeeRate < 0:
		return bad("fee_rate must be >= 0")
	case p.InitialBalance <= 0:
		return bad("initial_balance must be positive")
	case p.InitPrice <= 0:
		return bad("init_price must be positive")
	}
	return nil
}

// Prices returns the limit prices at which the next grid buy and sell
// fill for the given inventory:
//
//	base = GridValue/(GridPct*InitPrice) + inventory
//	buy  = (GridValue/GridPct - GridValue) / base
//	sell = (GridValue/GridPct + GridValue) / base
//
// Long inventory lowers both targets and short inventory raises them.
func (p Params) Prices(inventory float64) (buy, sell float64, err error) {
	base := p.GridValue/(p.GridPct*p.InitPrice) + inventory
	if !(base > 0) || math.IsInf(base, 0) {
		return 0, 0, fmt.Errorf("inventory %v gives grid base %v: %w", inventory, base, ErrDegenerateGridPrice)
	}

	levels := p.GridValue / p.GridPct
	buy = (levels - p.GridValue) / base
	sell = (levels + p.GridValue) / base

	if !(buy > 0) || !(sell > buy) || math.IsInf(sell, 0) {
		return 0, 0, fmt.Errorf("inventory %v gives buy %v sell %v: %w", inventory, buy, sell, ErrDegenerateGridPrice)
	}
	return buy, sell, nil
}
