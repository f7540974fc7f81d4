// Package backtest runs grid backtests end to end: it loads bars, drives
// the grid, stores the run and summarizes the result.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/gridtrader/grid"
	"github.com/rustyeddy/gridtrader/internal/id"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/pricing"
)

// ErrNoBars is returned when a run has no bars to anchor its grid on.
var ErrNoBars = errors.New("backtest: no bars")

// Runner drives one grid run over a feed.
type Runner struct {
	Params grid.Params
	Feed   pricing.Feed

	// Journal receives fills and results in addition to Store. The caller
	// owns it and closes it.
	Journal journal.Journal

	// Store, if set, records the run with its fills and results.
	Store *journal.SQLite

	Dataset string
	Logger  *zerolog.Logger
}

// Result is the outcome of a run. Params carries the init price the run
// actually used.
type Result struct {
	RunID   string
	Params  grid.Params
	Summary journal.Summary
	Records []journal.ResultRecord
}

func (r *Runner) log() *zerolog.Logger {
	if r.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return r.Logger
}

// Run reads the whole feed and replays it through the grid.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Feed == nil {
		return Result{}, fmt.Errorf("backtest: Feed is required")
	}
	bars, err := pricing.Collect(r.Feed)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: load bars: %w", err)
	}
	return r.RunBars(ctx, bars)
}

// ResolveParams fills a zero InitPrice with the first close.
func ResolveParams(p grid.Params, bars []pricing.Bar) (grid.Params, error) {
	if p.InitPrice != 0 {
		return p, nil
	}
	if len(bars) == 0 {
		return p, fmt.Errorf("init price from first close: %w", ErrNoBars)
	}
	p.InitPrice = bars[0].Close
	return p, nil
}

// RunBars replays bars through a fresh grid driver. On failure the
// returned Result holds the records produced before the error.
func (r *Runner) RunBars(ctx context.Context, bars []pricing.Bar) (Result, error) {
	p, err := ResolveParams(r.Params, bars)
	if err != nil {
		return Result{}, err
	}
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{RunID: id.New(), Params: p}
	log := r.log().With().Str("run_id", res.RunID).Str("symbol", p.Symbol).Logger()

	var (
		js      []journal.Journal
		storeJr journal.Journal
	)
	if r.Store != nil {
		err := r.Store.CreateRun(ctx, journal.RunRecord{
			RunID:          res.RunID,
			Created:        time.Now().UTC(),
			Dataset:        r.Dataset,
			Symbol:         p.Symbol,
			GridValue:      p.GridValue,
			GridPct:        p.GridPct,
			FeeRate:        p.FeeRate,
			InitialBalance: p.InitialBalance,
			InitPrice:      p.InitPrice,
		})
		if err != nil {
			return Result{}, fmt.Errorf("backtest: %w", err)
		}
		storeJr = r.Store.ForRun(ctx, res.RunID)
		js = append(js, storeJr)
	}
	if r.Journal != nil {
		js = append(js, r.Journal)
	}

	d, err := grid.New(p, journal.Multi(js...))
	if err != nil {
		return Result{}, err
	}

	log.Info().
		Float64("grid_value", p.GridValue).
		Float64("grid_pct", p.GridPct).
		Float64("init_price", p.InitPrice).
		Int("bars", len(bars)).
		Msg("backtest started")

	runErr := ctx.Err()
	for _, b := range bars {
		if runErr != nil {
			break
		}
		if _, runErr = d.Step(b); runErr != nil {
			break
		}
		runErr = ctx.Err()
	}

	if runErr == nil {
		runErr = d.Ledger().CheckInvariant()
	}

	res.Records = d.Records()
	buys, sells := d.Fills()
	res.Summary = Summarize(res.Records, buys, sells)

	if storeJr != nil {
		if err := storeJr.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("backtest: %w", err)
		}
	}

	if r.Store != nil {
		// Record the outcome even when ctx was cancelled mid-run.
		if err := r.Store.FinishRun(context.WithoutCancel(ctx), res.RunID, res.Summary, runErr); err != nil {
			log.Error().Err(err).Msg("finish run")
			if runErr == nil {
				runErr = fmt.Errorf("backtest: %w", err)
			}
		}
	}

	if runErr != nil {
		log.Error().Err(runErr).Int("bars_done", res.Summary.Bars).Msg("backtest failed")
		return res, runErr
	}

	log.Info().
		Int("buys", buys).
		Int("sells", sells).
		Float64("final_profit", res.Summary.FinalProfit).
		Float64("max_drawdown", res.Summary.MaxDrawdown).
		Msg("backtest finished")
	return res, nil
}
