package main

import (
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/db"
	"github.com/hackgods/covid-test-booking/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("applying migrations")
	if err := db.Migrate(cfg.PostgresDSN); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	logger.Info("migrations applied")
}
