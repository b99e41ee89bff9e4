package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/db"
	"github.com/hackgods/covid-test-booking/internal/interview"
	"github.com/hackgods/covid-test-booking/internal/logging"
	redisclient "github.com/hackgods/covid-test-booking/internal/redis"
	"github.com/hackgods/covid-test-booking/internal/site"
	"github.com/hackgods/covid-test-booking/internal/symptom"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

// stationConfig identifies the testing site and health worker running the
// console.
type stationConfig struct {
	SiteID   string `envconfig:"TRIAGE_SITE_ID" required:"true"`
	WorkerID string `envconfig:"TRIAGE_WORKER_ID" required:"true"`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	// Console output belongs to the interview; logs stay at warn and above.
	logger, err := logging.New(cfg.Env, "warn")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	var station stationConfig
	if err := envconfig.Process("", &station); err != nil {
		logger.Fatal("station config error", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	catalog, err := symptom.Default()
	if cfg.SymptomsDir != "" {
		catalog, err = symptom.LoadDir(cfg.SymptomsDir)
	}
	if err != nil {
		logger.Fatal("symptom catalog error", zap.Error(err))
	}

	sites := site.NewSearcher(site.NewPgRepository(pgPool))
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL, redisclient.WithAcquireWait(cfg.LockWait))
	manager := booking.NewManager(booking.NewPgStore(pgPool), sites, locker, cfg, logger, nil)
	svc := triage.NewService(triage.NewPgRecordStore(pgPool), manager, logger, nil)

	prompter := interview.NewConsolePrompter(os.Stdin, os.Stdout)
	if err := run(rootCtx, prompter, interview.NewEngine(prompter, catalog), svc, station); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, prompter interview.Prompter, engine *interview.Engine, svc *triage.Service, station stationConfig) error {
	pin, err := prompter.Ask(ctx, interview.Question{Key: "pin", Text: "Please enter the resident's PIN:", Kind: interview.KindText})
	if err != nil {
		return err
	}

	assessment, err := engine.Conduct(ctx)
	if errors.Is(err, interview.ErrInterviewAborted) {
		prompter.Notify(ctx, "Form was not submitted")
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := svc.Recommend(ctx, triage.RecommendRequest{
		SiteID:         station.SiteID,
		Pin:            pin,
		AdministererID: station.WorkerID,
		Assessment:     assessment,
	})
	switch {
	case errors.Is(err, triage.ErrInvalidPin):
		prompter.Notify(ctx, "Invalid Pin")
		return nil
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		prompter.Notify(ctx, "This booking has already been processed")
		return nil
	case err != nil:
		return err
	}

	prompter.Notify(ctx, rec.Message())
	return nil
}
