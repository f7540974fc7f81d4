package backtest

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/rustyeddy/gridtrader/grid"
	"github.com/rustyeddy/gridtrader/pricing"
)

// SweepRow is the outcome of one grid percentage. A run that fails keeps
// its error here and does not stop the other runs.
type SweepRow struct {
	GridPct   float64
	GridValue float64
	Result    Result
	Err       error
}

// ScaleParams sets the grid percentage to pct and scales GridValue by the
// same ratio, so the notional per percent of spacing stays constant.
func ScaleParams(base grid.Params, pct float64) grid.Params {
	p := base
	p.GridValue = base.GridValue * pct / base.GridPct
	p.GridPct = pct
	return p
}

// Sweep runs one independent backtest per pct over the same bars, using
// r.Params as the base. Runs use separate ledgers and share only r.Store.
// Rows come back in the order of pcts. The error is non-nil only when ctx
// ends the sweep or the base params are unusable.
func (r *Runner) Sweep(ctx context.Context, bars []pricing.Bar, pcts []float64, workers int) ([]SweepRow, error) {
	base, err := ResolveParams(r.Params, bars)
	if err != nil {
		return nil, err
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rows := make([]SweepRow, len(pcts))
	p := pool.New().WithMaxGoroutines(workers).WithErrors().WithContext(ctx)
	for i, pct := range pcts {
		i, pct := i, pct // per-iteration copy (pre-Go 1.22 loop semantics)
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			run := Runner{
				Params:  ScaleParams(base, pct),
				Store:   r.Store,
				Dataset: r.Dataset,
				Logger:  r.Logger,
			}
			res, err := run.RunBars(ctx, bars)
			rows[i] = SweepRow{GridPct: pct, GridValue: run.Params.GridValue, Result: res, Err: err}
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return rows, fmt.Errorf("backtest: sweep: %w", err)
	}

	r.log().Info().Int("runs", len(pcts)).Int("workers", workers).Msg("sweep finished")
	return rows, nil
}
