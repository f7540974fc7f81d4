package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gridtrader/grid"
	"github.com/rustyeddy/gridtrader/journal"
	"github.com/rustyeddy/gridtrader/ledger"
	"github.com/rustyeddy/gridtrader/pricing"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func at(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
}

func testRequest() BacktestRequest {
	return BacktestRequest{
		Params: grid.Params{
			Symbol:         "DYDX",
			GridValue:      100,
			GridPct:        0.01,
			FeeRate:        0.0002,
			InitialBalance: 10_000,
		},
		Bars: []pricing.Bar{
			{Time: at(1), Open: 100, Low: 95, High: 105, Close: 100},
			{Time: at(2), Open: 100, Low: 90, High: 100, Close: 95},
			{Time: at(3), Open: 95, Low: 95, High: 115, Close: 110},
		},
		Dataset: "api-test",
	}
}

func newTestServer(t *testing.T, withStore bool) *Server {
	t.Helper()

	opts := Options{AllowedOrigins: []string{"*"}}
	if withStore {
		store, err := journal.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		opts.Store = store
	}
	return New(opts)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := do(t, newTestServer(t, false), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRunBacktest_StoresRun(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, true)

	w := do(t, s, http.MethodPost, "/api/v1/backtests", testRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[BacktestResponse](t, w)
	assert.NotEmpty(t, resp.RunID)
	assert.True(t, resp.Stored)
	assert.Equal(t, 100.0, resp.Params.InitPrice)
	require.Len(t, resp.Records, 3)
	assert.InDelta(t, 15.456444577795992, resp.Summary.FinalProfit, 1e-9)
	assert.Equal(t, 3, resp.Summary.Buys)
	assert.Equal(t, 2, resp.Summary.Sells)

	w = do(t, s, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[RunsResponse](t, w)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, resp.RunID, runs.Runs[0].RunID)
	assert.Equal(t, journal.StatusFinished, runs.Runs[0].Status)

	w = do(t, s, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	run := decode[journal.RunRecord](t, w)
	assert.Equal(t, "api-test", run.Dataset)

	w = do(t, s, http.MethodGet, "/api/v1/runs/"+resp.RunID+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[ResultsResponse](t, w)
	require.Len(t, results.Records, 3)
	assert.InDelta(t, resp.Records[2].CumulativeProfit, results.Records[2].CumulativeProfit, 1e-12)

	w = do(t, s, http.MethodGet, "/api/v1/runs/"+resp.RunID+"/fills", nil)
	require.Equal(t, http.StatusOK, w.Code)
	fills := decode[FillsResponse](t, w)
	require.Len(t, fills.Fills, 5)
	assert.Equal(t, "buy", fills.Fills[0].Side)
}

func TestRunBacktest_WithoutStore(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)

	w := do(t, s, http.MethodPost, "/api/v1/backtests", testRequest())
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[BacktestResponse](t, w)
	assert.False(t, resp.Stored)

	for _, path := range []string{"/api/v1/runs", "/api/v1/runs/x", "/api/v1/runs/x/results"} {
		w = do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Equal(t, CodeStoreUnavailable, decode[ErrorResponse](t, w).Error.Code)
	}
}

func TestRunBacktest_Errors(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, true)

	badParams := testRequest()
	badParams.Params.GridPct = 1.5

	badBar := testRequest()
	badBar.Bars[1].Low = 120

	outOfOrder := testRequest()
	outOfOrder.Bars[2].Time = at(0)

	noBars := testRequest()
	noBars.Bars = nil

	tests := []struct {
		name string
		body any
		code string
	}{
		{"bad json", `{"params":`, CodeInvalidRequest},
		{"bad params", badParams, CodeInvalidArgument},
		{"bar outside range", badBar, CodeMalformedInput},
		{"bars out of order", outOfOrder, CodeMalformedInput},
		{"no bars", noBars, CodeInvalidArgument},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/backtests", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.Message)
		})
	}

	// Rejected requests never reach the store.
	w := do(t, s, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[RunsResponse](t, w).Runs)
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("bar 3: %w", grid.ErrDegenerateGridPrice), http.StatusBadRequest, CodeDegenerateGrid},
		{fmt.Errorf("x: %w", pricing.ErrMalformedInput), http.StatusBadRequest, CodeMalformedInput},
		{ledger.ErrUnknownSymbol, http.StatusBadRequest, CodeInvalidArgument},
		{fmt.Errorf("run: %w", journal.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestRunNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, true)
	for _, path := range []string{"/api/v1/runs/missing", "/api/v1/runs/missing/results", "/api/v1/runs/missing/fills"} {
		w := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, w).Error.Code)
	}
}

func TestListRunsLimit(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, true)
	for i := 0; i < 3; i++ {
		w := do(t, s, http.MethodPost, "/api/v1/backtests", testRequest())
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, s, http.MethodGet, "/api/v1/runs?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[RunsResponse](t, w).Runs, 2)

	w = do(t, s, http.MethodGet, "/api/v1/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/backtests", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()

	w := do(t, newTestServer(t, false), http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, w).Error.Code)
}
