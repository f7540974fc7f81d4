// Package api exposes grid backtests over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/gridtrader/journal"
)

type Options struct {
	// Store keeps submitted runs. Without it runs are computed but not
	// stored and the /runs endpoints answer 503.
	Store *journal.SQLite

	AllowedOrigins []string
	Logger         *zerolog.Logger
}

type Server struct {
	store   *journal.SQLite
	log     zerolog.Logger
	handler http.Handler
}

func New(opts Options) *Server {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	s := &Server{store: opts.Store, log: log}

	router := gin.New()
	router.Use(recovery(log))
	router.Use(requestLogger(log))

	router.GET("/health", s.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/backtests", s.runBacktest)
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/:id", s.getRun)
		v1.GET("/runs/:id/results", s.getResults)
		v1.GET("/runs/:id/fills", s.getFills)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: CodeNotFound, Message: "Not found"}})
	})

	s.handler = withCORS(router, opts.AllowedOrigins)
	return s
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info().Msg("api stopped")
	return nil
}
