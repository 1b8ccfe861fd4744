package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/agenthands/catalog-dedupe/internal/app"
	"github.com/agenthands/catalog-dedupe/internal/config"
	"github.com/agenthands/catalog-dedupe/internal/logging"
	"github.com/agenthands/catalog-dedupe/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := app.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fallback := logging.New(config.LogConfig{}, nil)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Log, nil)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}
	defer a.Close()

	gin.SetMode(cfg.Server.Mode)
	srv := server.NewServer(a.Detector, a.Catalog, cfg.Search, logger)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: srv.SetupRouter(),
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
