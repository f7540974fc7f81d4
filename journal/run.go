package journal

import "time"

const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusFailed   = "failed"
)

// Summary holds the headline metrics of a finished run.
type Summary struct {
	Bars  int `json:"bars"`
	Buys  int `json:"buys"`
	Sells int `json:"sells"`

	FinalProfit float64 `json:"final_profit"`
	MinProfit   float64 `json:"min_profit"`
	MaxProfit   float64 `json:"max_profit"`
	MaxDrawdown float64 `json:"max_drawdown"`
	TotalFee    float64 `json:"total_fee"`
	FinalAmount float64 `json:"final_amount"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// RunRecord mirrors the runs table.
type RunRecord struct {
	RunID   string    `json:"run_id"`
	Created time.Time `json:"created"`
	Status  string    `json:"status"`
	Error   string    `json:"error,omitempty"`
	Dataset string    `json:"dataset,omitempty"`

	Symbol         string  `json:"symbol"`
	GridValue      float64 `json:"grid_value"`
	GridPct        float64 `json:"grid_pct"`
	FeeRate        float64 `json:"fee_rate"`
	InitialBalance float64 `json:"initial_balance"`
	InitPrice      float64 `json:"init_price"`

	Summary Summary `json:"summary"`
}
