// Command server runs the idempotent user gateway: an HTTP API whose
// mutating routes are deduplicated by client-supplied idempotency keys,
// backed by a bounded Postgres connection pool.
//
// Boot order: env file, config, logging, tracing, then the server itself.
// The process stays up through database outages (degraded mode) and drains
// cleanly on SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/noventa/go-user-gateway/internal/config"
	"github.com/noventa/go-user-gateway/internal/observability"
	"github.com/noventa/go-user-gateway/internal/server"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// A missing .env is fine; real deployments configure the environment.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	setupLogging(cfg)
	gin.SetMode(cfg.GinMode)

	shutdownTracing, err := observability.Setup(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}

	srv := server.New(cfg, server.Options{})
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server start failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-srv.ServeErr():
		if err != nil {
			log.Error().Err(err).Msg("serve failed")
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Stop(drainCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
	if err := shutdownTracing(drainCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
	log.Info().Msg("server stopped")
}

// setupLogging configures zerolog's global level and output format.
func setupLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(parseLevel(cfg.LogLevel))
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// parseLevel maps a config string to a zerolog level, defaulting to info.
func parseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
