package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/api"
	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/db"
	"github.com/hackgods/covid-test-booking/internal/logging"
	"github.com/hackgods/covid-test-booking/internal/metrics"
	redisclient "github.com/hackgods/covid-test-booking/internal/redis"
	"github.com/hackgods/covid-test-booking/internal/site"
	"github.com/hackgods/covid-test-booking/internal/symptom"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

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

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
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

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal("symptom catalog error", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lifecycle := metrics.NewLifecycle(reg)

	sites := site.NewSearcher(site.NewPgRepository(pgPool))
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL, redisclient.WithAcquireWait(cfg.LockWait))
	manager := booking.NewManager(booking.NewPgStore(pgPool), sites, locker, cfg, logger.Named("booking"), lifecycle)
	triageSvc := triage.NewService(triage.NewPgRecordStore(pgPool), manager, logger.Named("triage"), lifecycle)

	health := api.NewHealthHandler(
		api.PingFunc(pgPool.Ping),
		api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		cfg.Env,
		version,
	)

	router := api.NewRouter(api.RouterConfig{
		Bookings:  manager,
		Sites:     sites,
		Triage:    triageSvc,
		Catalog:   catalog,
		Health:    health,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		JWTSecret: cfg.JWTSecret,
		Logger:    logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
}

func loadCatalog(cfg config.Config) (*symptom.Catalog, error) {
	if cfg.SymptomsDir != "" {
		return symptom.LoadDir(cfg.SymptomsDir)
	}
	return symptom.Default()
}
