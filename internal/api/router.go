package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/access"
	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/logging"
	"github.com/hackgods/covid-test-booking/internal/site"
	"github.com/hackgods/covid-test-booking/internal/symptom"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

// BookingService is the booking lifecycle as the HTTP layer uses it.
// *booking.Manager implements it.
type BookingService interface {
	Create(ctx context.Context, req booking.CreateRequest) (*booking.Booking, error)
	Get(ctx context.Context, id string) (*booking.Booking, error)
	Describe(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Modify(ctx context.Context, id string, req booking.ModifyRequest) (*booking.ModifyResult, error)
	RevertToPrevious(ctx context.Context, currentID, pastID string) (*booking.Booking, error)
	StatusByPin(ctx context.Context, pin, siteID string) (booking.Lookup, error)
	StatusByID(ctx context.Context, bookingID, siteID string) (booking.Lookup, error)
	ModifiedAtSite(ctx context.Context, siteID string) ([]booking.Booking, error)
	ActiveBookings(ctx context.Context, customerID string) ([]booking.Booking, error)
	CollectRATKit(ctx context.Context, siteID, qrCode string) (*booking.Booking, error)
	Location() *time.Location
}

// SiteService is implemented by *site.Searcher.
type SiteService interface {
	SearchBySuburb(ctx context.Context, suburb string) ([]site.Site, error)
	Search(ctx context.Context, f site.Filter) ([]site.Site, error)
	WaitingTime(ctx context.Context, siteID string) (time.Duration, error)
}

// TriageService is implemented by *triage.Service.
type TriageService interface {
	Recommend(ctx context.Context, req triage.RecommendRequest) (*triage.Recommendation, error)
}

type RouterConfig struct {
	Bookings  BookingService
	Sites     SiteService
	Triage    TriageService
	Catalog   *symptom.Catalog
	Health    *HealthHandler
	Metrics   http.Handler // served on /metrics when set
	JWTSecret string
	Logger    *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := logging.OrNop(cfg.Logger)
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.With(Require(access.Book, access.BookHome)).Post("/bookings", createBookingHandler(cfg.Bookings, cfg.Catalog))
		r.With(Require(access.View)).Get("/bookings/{id}", describeBookingHandler(cfg.Bookings))
		r.With(Require(access.Delete)).Delete("/bookings/{id}", deleteBookingHandler(cfg.Bookings))
		r.With(Require(access.Cancel)).Post("/bookings/{id}/cancel", cancelBookingHandler(cfg.Bookings))
		r.With(Require(access.Modify)).Post("/bookings/{id}/modify", modifyBookingHandler(cfg.Bookings))
		r.With(Require(access.Revert)).Post("/bookings/{id}/revert", revertBookingHandler(cfg.Bookings))
		r.With(Require(access.ActiveBookings)).Get("/customers/{customerID}/bookings", activeBookingsHandler(cfg.Bookings))

		r.With(Require(access.SearchSites)).Get("/sites", searchSitesHandler(cfg.Sites, cfg.Bookings.Location()))
		r.With(Require(access.CheckStatus)).Get("/sites/{siteID}/status", bookingStatusHandler(cfg.Bookings))
		r.With(Require(access.Notifications)).Get("/sites/{siteID}/notifications", notificationsHandler(cfg.Bookings))
		r.With(Require(access.CollectRATKit)).Post("/sites/{siteID}/rat-kits/collect", collectRATKitHandler(cfg.Bookings))
		r.With(Require(access.Triage)).Post("/sites/{siteID}/triage", triageHandler(cfg.Triage, cfg.Catalog))
	})

	return r
}
