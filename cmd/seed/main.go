package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/access"
	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/db"
	"github.com/hackgods/covid-test-booking/internal/logging"
)

var suburbs = []string{
	"Clayton", "Caulfield", "Carlton", "Brunswick", "Footscray",
	"Richmond", "Box Hill", "Dandenong", "Frankston", "Geelong",
}

var openingHours = [][2]string{
	{"08:00", "17:00"},
	{"07:00", "19:00"},
	{"09:00", "15:00"},
	{"00:00", "23:59"},
}

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

	logger.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	siteIDs, err := seedSites(context.Background(), pool, 40, logger)
	if err != nil {
		logger.Fatal("seed sites", zap.Error(err))
	}
	customerIDs, err := seedCustomers(context.Background(), pool, 5000, logger)
	if err != nil {
		logger.Fatal("seed customers", zap.Error(err))
	}
	if err := seedBookings(context.Background(), pool, customerIDs, siteIDs, 2000, cfg, logger); err != nil {
		logger.Fatal("seed bookings", zap.Error(err))
	}

	printTokens(cfg.JWTSecret, customerIDs[0])

	logger.Info("seed complete")
}

func seedSites(ctx context.Context, pool *pgxpool.Pool, count int, logger *zap.Logger) ([]string, error) {
	logger.Info("seeding testing sites", zap.Int("count", count))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.NewString()
		suburb := suburbs[gofakeit.Number(0, len(suburbs)-1)]
		hours := openingHours[gofakeit.Number(0, len(openingHours)-1)]
		hospital := gofakeit.Bool()

		_, err := tx.Exec(ctx, `
			INSERT INTO testing_sites (id, name, description, suburb, drive_through, walk_in,
				hospital, gp, home_testing, open_time, close_time)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, id, suburb+" "+gofakeit.Company()+" Testing", "Testing clinic on "+gofakeit.Street(), suburb,
			gofakeit.Bool(), gofakeit.Bool(), hospital, !hospital && gofakeit.Bool(), gofakeit.Bool(),
			hours[0], hours[1])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	logger.Info("testing sites seeded")
	return ids, nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count int, logger *zap.Logger) ([]string, error) {
	logger.Info("seeding customers", zap.Int("count", count))

	const batchSize = 500

	ids := make([]string, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.NewString()
			_, err := tx.Exec(ctx, `
				INSERT INTO customers (id, given_name, family_name, username, phone)
				VALUES ($1, $2, $3, $4, $5)
			`, id, gofakeit.FirstName(), gofakeit.LastName(), fmt.Sprintf("%s%d", gofakeit.Username(), i), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		logger.Info("customers seeded", zap.Int("done", end), zap.Int("total", count))
	}

	return ids, nil
}

// seedBookings writes upcoming bookings straight to the table with the same
// field set the booking manager produces.
func seedBookings(ctx context.Context, pool *pgxpool.Pool, customers, sites []string, count int, cfg config.Config, logger *zap.Logger) error {
	logger.Info("seeding bookings", zap.Int("count", count))

	store := booking.NewPgStore(pool)
	now := time.Now().In(cfg.Location()).Truncate(time.Hour)

	for i := 0; i < count; i++ {
		nb := booking.NewBooking{
			CustomerID: customers[gofakeit.Number(0, len(customers)-1)],
			SiteID:     sites[gofakeit.Number(0, len(sites)-1)],
			StartTime:  now.Add(time.Duration(gofakeit.Number(1, 24*14)) * time.Hour),
			Status:     booking.StatusInitiated,
		}
		if _, err := store.CreateBooking(ctx, nb); err != nil {
			return fmt.Errorf("booking %d: %w", i, err)
		}
	}

	logger.Info("bookings seeded")
	return nil
}

// printTokens prints one bearer token per role for trying the API by hand.
func printTokens(secret, residentID string) {
	users := []struct {
		id   string
		role access.Role
	}{
		{residentID, access.Resident},
		{"reception-1", access.Receptionist},
		{"nurse-1", access.HealthWorker},
	}
	for _, u := range users {
		token, err := access.IssueToken(secret, u.id, u.role, 24*time.Hour)
		if err != nil {
			continue
		}
		fmt.Printf("%-13s %s\n", u.role, token)
	}
}
