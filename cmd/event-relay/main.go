package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/db"
	"github.com/hackgods/covid-test-booking/internal/events"
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

	logger.Info("event-relay starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.RelayInterval),
		zap.String("exchange", cfg.EventsExchange),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	publisher, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange)
	if err != nil {
		logger.Fatal("rabbitmq connection error", zap.Error(err))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("error closing rabbitmq", zap.Error(err))
		}
	}()
	logger.Info("connected to RabbitMQ")

	relay := events.NewRelay(events.NewPgOutbox(pgPool), publisher, cfg.RelayBatchSize, logger.Named("relay"))

	// Run once at startup
	runOnce(rootCtx, relay, logger)

	ticker := time.NewTicker(cfg.RelayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping event relay")
			return
		case <-ticker.C:
			runOnce(rootCtx, relay, logger)
		}
	}
}

// runOnce drains the outbox batch by batch until it is empty or a batch
// fails.
func runOnce(ctx context.Context, relay *events.Relay, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	total := 0
	for {
		n, err := relay.RunOnce(runCtx)
		total += n
		if err != nil {
			logger.Error("relay run error", zap.Error(err), zap.Int("published", total))
			return
		}
		if n == 0 {
			break
		}
	}
	logger.Info("relay run complete", zap.Int("published", total), zap.Duration("took", time.Since(start)))
}
