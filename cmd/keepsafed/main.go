package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keepsafe/internal/config"
	"keepsafe/internal/infra/db"
	httpinfra "keepsafe/internal/infra/http"

	"github.com/rs/zerolog"
)

func main() {
	cfg := config.FromEnv()
	log := newLogger(cfg)

	store, err := db.NewStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init store")
	}
	if err := store.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	srv, err := httpinfra.NewServer(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go srv.Background(ctx)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("keepsafed listening")
	if err := srv.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "keepsafed").Logger()
}
