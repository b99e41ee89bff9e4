package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/access"
	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/db"
	"github.com/hackgods/covid-test-booking/internal/logging"
)

type SimConfig struct {
	APIBaseURL    string        `envconfig:"SIM_API_BASE_URL" default:"http://localhost:8080"`
	Duration      time.Duration `envconfig:"SIM_DURATION" default:"30s"`
	Workers       int           `envconfig:"SIM_WORKERS" default:"10"`
	BookingRatio  float64       `envconfig:"SIM_BOOKING_RATIO" default:"0.4"`
	ModifyRatio   float64       `envconfig:"SIM_MODIFY_RATIO" default:"0.15"`
	CancelRatio   float64       `envconfig:"SIM_CANCEL_RATIO" default:"0.1"`
	ReadRatio     float64       `envconfig:"SIM_READ_RATIO" default:"0.35"`
	CustomerLimit int           `envconfig:"SIM_CUSTOMER_LIMIT" default:"4000"`
	SiteLimit     int           `envconfig:"SIM_SITE_LIMIT" default:"200"`

	PostgresDSN string `ignored:"true"`
	JWTSecret   string `ignored:"true"`
}

type simBooking struct {
	ID         string
	CustomerID string
	SiteID     string
	Pin        string
}

type DataPool struct {
	Customers []string
	Sites     []string
	mu        sync.RWMutex
	bookings  []simBooking
}

func (dp *DataPool) AddBooking(b simBooking) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, b)
}

func (dp *DataPool) RandomBooking(rng *rand.Rand) (simBooking, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return simBooking{}, false
	}
	return dp.bookings[rng.Intn(len(dp.bookings))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Refused   int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

// Record counts a 4xx lifecycle refusal separately from transport and
// server errors.
func (om *OperationMetrics) Record(latency time.Duration, success, refused bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case refused:
		atomic.AddInt64(&om.Refused, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := append([]time.Duration(nil), om.Latencies...)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	n := len(latencies)
	return sum / time.Duration(n), latencies[0], latencies[n-1], latencies[n*50/100], latencies[min(n*95/100, n-1)]
}

type Metrics struct {
	Booking  OperationMetrics
	Modify   OperationMetrics
	Cancel   OperationMetrics
	Status   OperationMetrics
	Describe OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	logger  *zap.Logger
	metrics Metrics

	tokenMu sync.Mutex
	tokens  map[string]string
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		panic("failed to load base config: " + err.Error())
	}

	logger, err := logging.New(baseCfg.Env, baseCfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfig(baseCfg)
	if err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("modify", cfg.ModifyRatio),
		zap.Float64("cancel", cfg.CancelRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	// Load data from Postgres
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}

	logger.Info("data pool loaded", zap.Int("customers", len(dataPool.Customers)), zap.Int("sites", len(dataPool.Sites)))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
		tokens: map[string]string{},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig(base config.Config) (SimConfig, error) {
	var cfg SimConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return SimConfig{}, fmt.Errorf("process env: %w", err)
	}
	cfg.PostgresDSN = base.PostgresDSN
	cfg.JWTSecret = base.JWTSecret

	if cfg.Workers <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ModifyRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ModifyRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg, nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	var err error
	dataPool.Customers, err = loadIDs(ctx, pool, `SELECT id::text FROM customers LIMIT $1`, cfg.CustomerLimit)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	dataPool.Sites, err = loadIDs(ctx, pool, `SELECT id::text FROM testing_sites WHERE NOT home_testing LIMIT $1`, cfg.SiteLimit)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}

	if len(dataPool.Customers) == 0 {
		return nil, fmt.Errorf("no customers loaded")
	}
	if len(dataPool.Sites) == 0 {
		return nil, fmt.Errorf("no sites loaded")
	}

	return dataPool, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]string, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation", zap.Duration("duration", s.config.Duration), zap.Int("workers", s.config.Workers))

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.ModifyRatio:
				s.doModify(ctx, rng)
			case r < s.config.BookingRatio+s.config.ModifyRatio+s.config.CancelRatio:
				s.doCancel(ctx, rng)
			default:
				if rng.Intn(2) == 0 {
					s.doStatus(ctx, rng)
				} else {
					s.doDescribe(ctx, rng)
				}
			}
		}
	}
}

// token returns a cached JWT for userID acting as role.
func (s *Simulator) token(userID string, role access.Role) string {
	key := string(role) + ":" + userID

	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()
	if tok, ok := s.tokens[key]; ok {
		return tok
	}
	tok, err := access.IssueToken(s.config.JWTSecret, userID, role, s.config.Duration+time.Minute)
	if err != nil {
		s.logger.Fatal("issue token", zap.Error(err))
	}
	s.tokens[key] = tok
	return tok
}

// call sends one request and reports the status code, or 0 when the
// request never got a response.
func (s *Simulator) call(ctx context.Context, method, path, token string, body any, out any) int {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, reader)
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < http.StatusMultipleChoices {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func refused(code int) bool {
	return code == http.StatusConflict || code == http.StatusNotFound || code == http.StatusUnprocessableEntity
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	customerID := s.pool.Customers[rng.Intn(len(s.pool.Customers))]
	siteID := s.pool.Sites[rng.Intn(len(s.pool.Sites))]
	startTime := time.Now().Add(time.Duration(1+rng.Intn(72)) * time.Hour).Format(booking.TimestampLayout)

	start := time.Now()
	var resp struct {
		ID     string `json:"id"`
		SMSPin string `json:"sms_pin"`
	}
	code := s.call(ctx, http.MethodPost, "/bookings", s.token(customerID, access.Resident), map[string]any{
		"customer_id": customerID,
		"site_id":     siteID,
		"start_time":  startTime,
	}, &resp)
	latency := time.Since(start)

	if code == http.StatusCreated && resp.ID != "" {
		s.pool.AddBooking(simBooking{ID: resp.ID, CustomerID: customerID, SiteID: siteID, Pin: resp.SMSPin})
	}
	s.metrics.Booking.Record(latency, code == http.StatusCreated, refused(code))
}

func (s *Simulator) doModify(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}
	startTime := time.Now().Add(time.Duration(1+rng.Intn(72)) * time.Hour).Format(booking.TimestampLayout)

	start := time.Now()
	var resp struct {
		NewBookingID string `json:"new_booking_id"`
	}
	code := s.call(ctx, http.MethodPost, "/bookings/"+b.ID+"/modify", s.token(b.CustomerID, access.Resident),
		map[string]any{"start_time": startTime}, &resp)
	latency := time.Since(start)

	if code == http.StatusCreated && resp.NewBookingID != "" {
		s.pool.AddBooking(simBooking{ID: resp.NewBookingID, CustomerID: b.CustomerID, SiteID: b.SiteID, Pin: b.Pin})
	}
	s.metrics.Modify.Record(latency, code == http.StatusCreated, refused(code))
}

func (s *Simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	code := s.call(ctx, http.MethodPost, "/bookings/"+b.ID+"/cancel", s.token(b.CustomerID, access.Resident), nil, nil)
	s.metrics.Cancel.Record(time.Since(start), code == http.StatusOK, refused(code))
}

func (s *Simulator) doStatus(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	code := s.call(ctx, http.MethodGet, "/sites/"+b.SiteID+"/status?pin="+b.Pin, s.token("front-desk", access.Receptionist), nil, nil)
	s.metrics.Status.Record(time.Since(start), code == http.StatusOK, false)
}

func (s *Simulator) doDescribe(ctx context.Context, rng *rand.Rand) {
	b, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	start := time.Now()
	code := s.call(ctx, http.MethodGet, "/bookings/"+b.ID, s.token(b.CustomerID, access.Resident), nil, nil)
	s.metrics.Describe.Record(time.Since(start), code == http.StatusOK, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Modify", &s.metrics.Modify)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Status by PIN", &s.metrics.Status)
	printOperationReport("Describe", &s.metrics.Describe)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	refusals := atomic.LoadInt64(&om.Refused)
	errs := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if refusals > 0 {
		fmt.Printf("  Refused: %d (%.1f%%)\n", refusals, float64(refusals)/float64(total)*100)
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
