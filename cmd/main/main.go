package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helpdesk-transfer/internal/config"
	"helpdesk-transfer/internal/store"
	"helpdesk-transfer/internal/transfer/handler"
	serverhttp "helpdesk-transfer/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	st := store.New(pool, cfg.FieldDefsTTL, logger)
	go refreshFieldDefinitions(ctx, st, cfg.FieldDefsTTL, logger)

	r := serverhttp.NewRouter(cfg, logger, pool, handler.New(cfg, st, logger))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info().Str("addr", cfg.Addr()).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	<-ctx.Done()
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("bye")
}
