package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/config"
	"github.com/rustyeddy/gridtrader/journal"
)

var rootCmd = &cobra.Command{
	Use:   "gridbt",
	Short: "Grid trading backtester",
	Long: `gridbt replays OHLC bars through a grid trading strategy.

It provides tools for:
  - Backtesting a grid over historical bars
  - Sweeping grid spacings over the same data
  - Storing runs, fills and per-bar results in SQLite
  - Serving backtests over HTTP

Complete documentation is available at https://github.com/rustyeddy/gridtrader`,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

var (
	cfgFile  string
	envFiles []string
	logLevel string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); defaults are used when empty")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func loadSettings(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		c, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg = config.Default()
	}

	if err := cfg.LoadEnv(envFiles...); err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	setupLogging(cfg.Log.Level)
	return nil
}

// setupLogging configures the global logger for the console.
func setupLogging(level string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(lvl)
}

// openStore opens the SQLite run store at path, or at the configured
// path when path is empty.
func openStore(path string) (*journal.SQLite, error) {
	if path == "" {
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no database path: set journal.db_path or --db")
	}
	s, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return s, nil
}
