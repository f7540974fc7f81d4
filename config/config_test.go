package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "DYDX", cfg.Grid.Symbol)
	assert.Equal(t, 100.0, cfg.Grid.GridValue)
	assert.Equal(t, 0.01, cfg.Grid.GridPct)
	assert.Zero(t, cfg.Grid.InitPrice)
	assert.Equal(t, JournalSQLite, cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		errMsg string
	}{
		{name: "valid config", modify: func(c *Config) {}},
		{name: "missing symbol", modify: func(c *Config) { c.Grid.Symbol = " " }, errMsg: "grid.symbol is required"},
		{name: "zero grid value", modify: func(c *Config) { c.Grid.GridValue = 0 }, errMsg: "grid.grid_value must be positive"},
		{name: "grid pct too large", modify: func(c *Config) { c.Grid.GridPct = 1 }, errMsg: "grid.grid_pct must be between 0 and 1"},
		{name: "negative fee", modify: func(c *Config) { c.Grid.FeeRate = -0.1 }, errMsg: "grid.fee_rate must not be negative"},
		{name: "negative balance", modify: func(c *Config) { c.Grid.InitialBalance = -1000 }, errMsg: "grid.initial_balance must be positive"},
		{name: "negative init price", modify: func(c *Config) { c.Grid.InitPrice = -1 }, errMsg: "grid.init_price must not be negative"},
		{name: "explicit init price", modify: func(c *Config) { c.Grid.InitPrice = 3.2 }},
		{name: "bad from", modify: func(c *Config) { c.Data.From = "yesterday" }, errMsg: "data.from"},
		{
			name: "to before from",
			modify: func(c *Config) {
				c.Data.From = "2024-01-02T00:00:00Z"
				c.Data.To = "2024-01-01T00:00:00Z"
			},
			errMsg: "data.to must be after data.from",
		},
		{name: "bad sweep pct", modify: func(c *Config) { c.Sweep.Pcts = []float64{0.01, 0} }, errMsg: "sweep.pcts must be between 0 and 1"},
		{name: "negative workers", modify: func(c *Config) { c.Sweep.Workers = -1 }, errMsg: "sweep.workers must not be negative"},
		{name: "unknown journal", modify: func(c *Config) { c.Journal.Type = "postgres" }, errMsg: "journal.type must be"},
		{
			name:   "csv without files",
			modify: func(c *Config) { c.Journal = JournalConfig{Type: JournalCSV, FillsFile: "fills.csv"} },
			errMsg: "journal fills_file and results_file required for CSV type",
		},
		{
			name:   "sqlite without path",
			modify: func(c *Config) { c.Journal = JournalConfig{Type: JournalSQLite} },
			errMsg: "journal db_path required for SQLite type",
		},
		{name: "no journal", modify: func(c *Config) { c.Journal = JournalConfig{Type: JournalNone} }},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "loud" }, errMsg: "log.level"},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDataRange(t *testing.T) {
	d := DataConfig{From: "1700000000000", To: "2024-01-01T00:00:00Z"}
	from, to, err := d.Range()
	require.NoError(t, err)
	assert.True(t, from.Equal(time.UnixMilli(1_700_000_000_000)))
	assert.True(t, to.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	from, to, err = DataConfig{}.Range()
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
	}{
		{"JSON format", "config.json"},
		{"YAML format", "config.yaml"},
		{"YML format", "config.yml"},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (pre-Go 1.22 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.filename)

			original := Default()
			original.Grid.InitPrice = 2.5
			original.Data.From = "2024-01-01T00:00:00Z"
			require.NoError(t, original.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, original.Grid, loaded.Grid)
			assert.Equal(t, original.Data, loaded.Data)
			assert.Equal(t, original.Sweep, loaded.Sweep)
			assert.Equal(t, original.Journal, loaded.Journal)
			assert.Equal(t, original.Server, loaded.Server)
		})
	}
}

func TestLoadYAMLKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	content := `
grid:
  symbol: BTCUSDT
  grid_value: 50
  grid_pct: 0.005
  fee_rate: 0.001
  initial_balance: 5000
data:
  bars: btc.csv
journal:
  type: csv
  fills_file: fills.csv
  results_file: results.csv
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", cfg.Grid.Symbol)
	assert.Equal(t, 0.005, cfg.Grid.GridPct)
	assert.Equal(t, 5000.0, cfg.Grid.InitialBalance)
	assert.Equal(t, "btc.csv", cfg.Data.Bars)
	assert.Equal(t, JournalCSV, cfg.Journal.Type)
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(tmpDir, "nonexistent.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	invalidPath := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalidPath, []byte("grid: [not: valid"), 0644))
	_, err = LoadFromFile(invalidPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	badPath := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("grid:\n  symbol: X\n  grid_pct: 2\n"), 0644))
	_, err = LoadFromFile(badPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("GRIDBT_LOG_LEVEL=debug\nGRIDBT_ADDR=:9090\n"), 0644))

	// Register for cleanup; godotenv does not override variables that are
	// already set, so clear them first.
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvDBPath, "/tmp/env.db")
	require.NoError(t, os.Unsetenv(EnvLogLevel))
	require.NoError(t, os.Unsetenv(EnvAddr))

	cfg := Default()
	cfg.Journal = JournalConfig{Type: JournalNone}
	require.NoError(t, cfg.LoadEnv(envFile, filepath.Join(t.TempDir(), "missing.env")))

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/tmp/env.db", cfg.Journal.DBPath)
	assert.Equal(t, JournalSQLite, cfg.Journal.Type)
	assert.NoError(t, cfg.Validate())
}
