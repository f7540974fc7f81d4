package api

import (
	"github.com/rustyeddy/gridtrader/grid"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/pricing"
)

// BacktestRequest is the body of POST /api/v1/backtests. A zero
// params.init_price means the first bar's close.
type BacktestRequest struct {
	Params  grid.Params   `json:"params"`
	Bars    []pricing.Bar `json:"bars"`
	Dataset string        `json:"dataset,omitempty"`
}

// BacktestResponse carries the outcome of one run.
type BacktestResponse struct {
	RunID   string                 `json:"run_id"`
	Stored  bool                   `json:"stored"`
	Params  grid.Params            `json:"params"`
	Summary journal.Summary        `json:"summary"`
	Records []journal.ResultRecord `json:"records"`
}

type RunsResponse struct {
	Runs []journal.RunRecord `json:"runs"`
}

type ResultsResponse struct {
	RunID   string                 `json:"run_id"`
	Records []journal.ResultRecord `json:"records"`
}

type FillsResponse struct {
	RunID string               `json:"run_id"`
	Fills []journal.FillRecord `json:"fills"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeMalformedInput   = "MALFORMED_INPUT"
	CodeDegenerateGrid   = "DEGENERATE_GRID_PRICE"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)
