package cmd

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/gridtrader/api"
	"github.com/rustyeddy/gridtrader/config"
	"github.com/rustyeddy/gridtrader/journal"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve backtests over HTTP",
	Long: `Start the HTTP API. Runs are stored when the journal is SQLite.

Endpoints:
  GET  /health
  POST /api/v1/backtests
  GET  /api/v1/runs
  GET  /api/v1/runs/:id
  GET  /api/v1/runs/:id/results
  GET  /api/v1/runs/:id/fills

Example:
  gridbt serve --addr :8080 --db runs.db`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr string
	serveDB   string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite run store (overrides journal.db_path)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveDB != "" {
		cfg.Journal.Type = config.JournalSQLite
		cfg.Journal.DBPath = serveDB
	}

	if log.Logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	var store *journal.SQLite
	if cfg.Journal.Type == config.JournalSQLite {
		s, err := openStore(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	} else {
		log.Warn().Msg("no run store configured; runs will not be kept")
	}

	srv := api.New(api.Options{
		Store:          store,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         &log.Logger,
	})
	return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
}
