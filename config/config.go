package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/gridtrader/grid"
	"github.com/rustyeddy/gridtrader/pricing"
)

// Environment variables that override file settings.
const (
	EnvLogLevel = "GRIDBT_LOG_LEVEL"
	EnvDBPath   = "GRIDBT_DB_PATH"
	EnvAddr     = "GRIDBT_ADDR"
)

// Journal types.
const (
	JournalNone   = "none"
	JournalCSV    = "csv"
	JournalSQLite = "sqlite"
)

// Config represents the complete backtest configuration
type Config struct {
	Grid    grid.Params   `json:"grid" yaml:"grid"`
	Data    DataConfig    `json:"data" yaml:"data"`
	Sweep   SweepConfig   `json:"sweep" yaml:"sweep"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Server  ServerConfig  `json:"server" yaml:"server"`
}

// DataConfig points at the bar history. From and To accept RFC3339 or
// Unix milliseconds and bound the bars to [from, to).
type DataConfig struct {
	Bars string `json:"bars" yaml:"bars"`
	From string `json:"from,omitempty" yaml:"from,omitempty"`
	To   string `json:"to,omitempty" yaml:"to,omitempty"`
}

// SweepConfig lists the grid percentages tried by a sweep.
type SweepConfig struct {
	Pcts    []float64 `json:"pcts,omitempty" yaml:"pcts,omitempty"`
	Workers int       `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile   string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	ResultsFile string `json:"results_file,omitempty" yaml:"results_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// Range parses the optional from/to bounds. Missing bounds are zero.
func (d DataConfig) Range() (from, to time.Time, err error) {
	if d.From != "" {
		if from, err = pricing.ParseTime(d.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("data.from: %w", err)
		}
	}
	if d.To != "" {
		if to, err = pricing.ParseTime(d.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("data.to: %w", err)
		}
	}
	return from, to, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadEnv loads .env style files into the process environment and then
// applies the GRIDBT_* overrides to c. With no files it tries ".env".
// Missing files are not an error.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Journal.DBPath = v
		if c.Journal.Type == "" || c.Journal.Type == JournalNone {
			c.Journal.Type = JournalSQLite
		}
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	return nil
}

// Validate checks if the configuration is valid. A zero grid.init_price
// is allowed and means the first close of the data.
func (c *Config) Validate() error {
	g := c.Grid
	for name, v := range map[string]float64{
		"grid.grid_value": g.GridValue, "grid.grid_pct": g.GridPct, "grid.fee_rate": g.FeeRate,
		"grid.initial_balance": g.InitialBalance, "grid.init_price": g.InitPrice,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite", name)
		}
	}
	if strings.TrimSpace(g.Symbol) == "" {
		return fmt.Errorf("grid.symbol is required")
	}
	if g.GridValue <= 0 {
		return fmt.Errorf("grid.grid_value must be positive")
	}
	if g.GridPct <= 0 || g.GridPct >= 1 {
		return fmt.Errorf("grid.grid_pct must be between 0 and 1")
	}
	if g.FeeRate < 0 {
		return fmt.Errorf("grid.fee_rate must not be negative")
	}
	if g.InitialBalance <= 0 {
		return fmt.Errorf("grid.initial_balance must be positive")
	}
	if g.InitPrice < 0 {
		return fmt.Errorf("grid.init_price must not be negative")
	}

	from, to, err := c.Data.Range()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		return fmt.Errorf("data.to must be after data.from")
	}

	for _, p := range c.Sweep.Pcts {
		if !(p > 0 && p < 1) {
			return fmt.Errorf("sweep.pcts must be between 0 and 1, got %v", p)
		}
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must not be negative")
	}

	switch c.Journal.Type {
	case "", JournalNone:
	case JournalCSV:
		if c.Journal.FillsFile == "" || c.Journal.ResultsFile == "" {
			return fmt.Errorf("journal fills_file and results_file required for CSV type")
		}
	case JournalSQLite:
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Log.Level != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}

	return nil
}

// Default returns a default configuration: the DYDX 5m grid the engine
// was first tuned on, with runs stored in gridbt.db.
func Default() *Config {
	return &Config{
		Grid: grid.Params{
			Symbol:         "DYDX",
			GridValue:      100,
			GridPct:        0.01,
			FeeRate:        0.0002,
			InitialBalance: 10_000,
		},
		Data: DataConfig{
			Bars: "data/bars.csv",
		},
		Sweep: SweepConfig{
			Pcts: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02},
		},
		Journal: JournalConfig{
			Type:   JournalSQLite,
			DBPath: "gridbt.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}
