package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/gridtrader/backtest"
	"github.com/rustyeddy/gridtrader/grid"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/ledger"
	"github.com/rustyeddy/gridtrader/pricing"
)

// errorStatus maps engine errors onto HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, grid.ErrDegenerateGridPrice):
		return http.StatusBadRequest, CodeDegenerateGrid
	case errors.Is(err, pricing.ErrMalformedInput):
		return http.StatusBadRequest, CodeMalformedInput
	case errors.Is(err, ledger.ErrInvalidArgument), errors.Is(err, backtest.ErrNoBars):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "An unexpected error occurred"
	}
	c.JSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": s.store != nil})
}

// runBacktest handles POST /api/v1/backtests
func (s *Server) runBacktest(c *gin.Context) {
	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{Code: CodeInvalidRequest, Message: err.Error()},
		})
		return
	}

	// Reject bad input before a run row is created for it.
	if err := pricing.ValidateSeries(req.Bars); err != nil {
		s.fail(c, err)
		return
	}

	r := backtest.Runner{
		Params:  req.Params,
		Store:   s.store,
		Dataset: req.Dataset,
		Logger:  &s.log,
	}
	res, err := r.RunBars(c.Request.Context(), req.Bars)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, BacktestResponse{
		RunID:   res.RunID,
		Stored:  s.store != nil,
		Params:  res.Params,
		Summary: res.Summary,
		Records: res.Records,
	})
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: ErrorDetail{Code: CodeStoreUnavailable, Message: "no run store configured"},
	})
	return false
}

// listRuns handles GET /api/v1/runs?limit=N
func (s *Server) listRuns(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: ErrorDetail{Code: CodeInvalidArgument, Message: "limit must be a non-negative integer"},
			})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if runs == nil {
		runs = []journal.RunRecord{}
	}
	c.JSON(http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) getRun(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	run, err := s.store.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) getResults(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	ctx, runID := c.Request.Context(), c.Param("id")
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		s.fail(c, err)
		return
	}
	recs, err := s.store.ListResults(ctx, runID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if recs == nil {
		recs = []journal.ResultRecord{}
	}
	c.JSON(http.StatusOK, ResultsResponse{RunID: runID, Records: recs})
}

func (s *Server) getFills(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	ctx, runID := c.Request.Context(), c.Param("id")
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		s.fail(c, err)
		return
	}
	fills, err := s.store.ListFills(ctx, runID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if fills == nil {
		fills = []journal.FillRecord{}
	}
	c.JSON(http.StatusOK, FillsResponse{RunID: runID, Fills: fills})
}
