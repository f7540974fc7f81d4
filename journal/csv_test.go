package journal

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCSV(t *testing.T) (*CSV, string, string) {
	t.Helper()

	dir := t.TempDir()
	fillsPath := filepath.Join(dir, "fills.csv")
	resultsPath := filepath.Join(dir, "results.csv")

	j, err := NewCSV(fillsPath, resultsPath)
	require.NoError(t, err)
	return j, fillsPath, resultsPath
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	j, fillsPath, resultsPath := newTestCSV(t)
	assert.NoError(t, j.Close())

	fills := readCSV(t, fillsPath)
	results := readCSV(t, resultsPath)
	require.Len(t, fills, 1)
	require.Len(t, results, 1)

	assert.Equal(t, []string{"time", "symbol", "side", "price", "amount", "cover_amount", "open_amount", "fee", "realized_pnl"}, fills[0])
	assert.Equal(t, []string{"time", "close_price", "position_amount", "cumulative_profit", "cumulative_fee"}, results[0])
}

func TestCSVJournalRecordFill(t *testing.T) {
	t.Parallel()

	j, fillsPath, _ := newTestCSV(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	err := j.RecordFill(FillRecord{
		Time:        ts,
		Symbol:      "DYDX",
		Side:        "sell",
		Price:       1.2345678,
		Amount:      123.456,
		CoverAmount: 100,
		OpenAmount:  23.456,
		Fee:         0.0000004,
		RealizedPnL: -12.5,
	})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	rows := readCSV(t, fillsPath)
	require.Len(t, rows, 2)

	want := []string{
		ts.Format(time.RFC3339),
		"DYDX",
		"sell",
		"1.234568",
		"123.456000",
		"100.000000",
		"23.456000",
		"0.000000",
		"-12.500000",
	}
	assert.Equal(t, want, rows[1])
}

func TestCSVJournalRecordResult(t *testing.T) {
	t.Parallel()

	j, _, resultsPath := newTestCSV(t)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordResult(ResultRecord{
			Time:             ts.Add(time.Duration(i) * time.Hour),
			ClosePrice:       100 + float64(i),
			PositionAmount:   0.0200020002,
			CumulativeProfit: 1.9602000200,
			CumulativeFee:    0.04,
		}))
	}
	require.NoError(t, j.Close())

	rows := readCSV(t, resultsPath)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{ts.Format(time.RFC3339), "100.000000", "0.020002", "1.960200", "0.040000"}, rows[1])
	assert.Equal(t, "102.000000", rows[3][1])
}

func TestCSVJournalKeepsMilliseconds(t *testing.T) {
	t.Parallel()

	j, fillsPath, resultsPath := newTestCSV(t)

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := ts.Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, j.RecordResult(ResultRecord{Time: at, ClosePrice: 1}))
		require.NoError(t, j.RecordFill(FillRecord{Time: at, Symbol: "DYDX", Side: "buy"}))
	}
	require.NoError(t, j.Close())

	want := []string{
		"2024-02-03T04:05:06Z",
		"2024-02-03T04:05:06.001Z",
		"2024-02-03T04:05:06.002Z",
	}
	for _, path := range []string{resultsPath, fillsPath} {
		rows := readCSV(t, path)
		require.Len(t, rows, 4)
		for i, w := range want {
			assert.Equal(t, w, rows[i+1][0])
			parsed, err := time.Parse(time.RFC3339Nano, rows[i+1][0])
			require.NoError(t, err)
			assert.True(t, parsed.Equal(ts.Add(time.Duration(i)*time.Millisecond)))
		}
	}
}

type closeTracker struct {
	failWrites bool
	closed     bool
}

func (c *closeTracker) Write(p []byte) (int, error) {
	if c.failWrites {
		return 0, errors.New("disk full")
	}
	return len(p), nil
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestNewCSVClosesFilesOnHeaderError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		failFills   bool
		failResults bool
	}{
		{"fills header", true, false},
		{"results header", false, true},
	}
	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			ff := &closeTracker{failWrites: tt.failFills}
			rf := &closeTracker{failWrites: tt.failResults}

			j, err := newCSV(ff, rf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.name)
			assert.Nil(t, j)
			assert.True(t, ff.closed)
			assert.True(t, rf.closed)
		})
	}
}

func TestDiscardAndMulti(t *testing.T) {
	t.Parallel()

	j, _, resultsPath := newTestCSV(t)
	m := Multi(Discard, j)

	require.NoError(t, m.RecordResult(ResultRecord{ClosePrice: 1}))
	require.NoError(t, m.RecordFill(FillRecord{Side: "buy"}))
	require.NoError(t, m.Close())

	assert.Len(t, readCSV(t, resultsPath), 2)
}
