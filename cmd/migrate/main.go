package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"sixtylens/internal/config"
	"sixtylens/internal/database"
	"sixtylens/internal/logging"
)

const migrateTimeout = 2 * time.Minute

type migrateConfig struct {
	DatabaseURL string           `env:"DATABASE_URL,required"`
	Log         config.LogConfig `envPrefix:"LOG_"`
}

func main() {
	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("log setup error: %v", err)
	}

	err = run(cfg, logger)
	_ = closer.Close()
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

func run(cfg migrateConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.ApplyMigrations(ctx, db); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}
