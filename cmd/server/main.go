package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sreejitheg/DFES/internal/api"
	"github.com/sreejitheg/DFES/internal/config"
	"github.com/sreejitheg/DFES/internal/relay"
	"github.com/sreejitheg/DFES/internal/webhook"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	// Message relay: ring buffer history + live fan-out
	rly := relay.New(cfg.HistorySize, logger)

	// Outbound webhook dispatcher
	hooks := webhook.NewDispatcher(
		cfg.TextWebhookURL,
		cfg.VoiceWebhookURL,
		cfg.MaxAudioBytes,
		cfg.WebhookTimeout,
		logger,
	)

	// Create router
	router := api.NewRouter(logger, cfg, rly, hooks)

	// Create server. WriteTimeout must stay 0: the SSE stream holds its
	// response open indefinitely.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Int("history_size", cfg.HistorySize).
			Msg("starting relay server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
