package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/config"
	"github.com/hackgods/covid-test-booking/internal/logging"
	"github.com/hackgods/covid-test-booking/internal/metrics"
	redisclient "github.com/hackgods/covid-test-booking/internal/redis"
	"github.com/hackgods/covid-test-booking/internal/site"
)

const (
	EventBookingCreated   = "BOOKING_CREATED"
	EventBookingModified  = "BOOKING_MODIFIED"
	EventBookingCancelled = "BOOKING_CANCELLED"
	EventBookingReverted  = "BOOKING_REVERTED"
	EventBookingProcessed = "BOOKING_PROCESSED"
	EventBookingDeleted   = "BOOKING_DELETED"
	EventRATKitCollected  = "RAT_KIT_COLLECTED"
)

var tracer = otel.Tracer("github.com/hackgods/covid-test-booking/internal/booking")

// SiteSearcher finds testing sites for a venue change. Results are ordered
// and an empty result is not an error.
type SiteSearcher interface {
	SearchBySuburb(ctx context.Context, suburb string) ([]site.Site, error)
}

// Manager owns the lifecycle of bookings. Every operation reads the current
// record from the Store before deciding and writes full representations
// back.
type Manager struct {
	store   Store
	sites   SiteSearcher
	locker  redisclient.Locker
	metrics *metrics.Lifecycle
	logger  *zap.Logger

	loc          *time.Location
	videoBaseURL string
	now          func() time.Time
}

func NewManager(store Store, sites SiteSearcher, locker redisclient.Locker, cfg config.Config, logger *zap.Logger, m *metrics.Lifecycle) *Manager {
	return &Manager{
		store:        store,
		sites:        sites,
		locker:       locker,
		metrics:      m,
		logger:       logging.OrNop(logger),
		loc:          cfg.Location(),
		videoBaseURL: cfg.VideoBaseURL,
		now:          time.Now,
	}
}

// Location is the zone booking times are entered and shown in.
func (m *Manager) Location() *time.Location {
	return m.loc
}

type CreateRequest struct {
	CustomerID     string
	SiteID         string
	StartTime      time.Time // zero means now
	HomeTest       bool
	RATKitRequired bool
}

// Create books a test. Home bookings get a QR code, a video meeting URL and
// a RAT kit status.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Create", trace.WithAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.String("site.id", req.SiteID),
		attribute.Bool("booking.home_test", req.HomeTest),
	))
	defer span.End()

	b, err := m.create(ctx, req)
	m.finish(span, "create", err)
	return b, err
}

func (m *Manager) create(ctx context.Context, req CreateRequest) (*Booking, error) {
	start := req.StartTime
	if start.IsZero() {
		start = m.now()
	}

	nb := NewBooking{
		CustomerID: req.CustomerID,
		SiteID:     req.SiteID,
		StartTime:  start.Truncate(time.Second),
	}

	if req.HomeTest {
		code, err := NewQRCode()
		if err != nil {
			return nil, err
		}
		kit := RATKitNotApplicable
		if req.RATKitRequired {
			kit = RATKitNotReceived
		}
		nb.AdditionalInfo = AdditionalInfo{
			HomeTest:       true,
			RATKitRequired: req.RATKitRequired,
			RATKitStatus:   kit,
			QRCode:         code,
			URL:            meetingURL(m.videoBaseURL),
		}
	}

	id, err := m.store.CreateBooking(ctx, nb)
	if err != nil {
		if errors.Is(err, ErrWriteRejected) {
			return nil, fmt.Errorf("%w: %w", ErrBookingNotMade, err)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	m.logEvent(ctx, id, EventBookingCreated, map[string]any{
		"customer_id": req.CustomerID,
		"site_id":     req.SiteID,
		"start_time":  FormatTimestamp(nb.StartTime, m.loc),
		"home_test":   req.HomeTest,
	})

	created, err := m.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load created booking: %w", err)
	}
	return created, nil
}

// Cancel marks a booking CANCELLED in place. Lapsed, completed and already
// cancelled bookings are refused without a write.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "booking.Cancel", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	err := m.withLock(ctx, id, func(lockCtx context.Context) error {
		b, err := m.load(lockCtx, id)
		if err != nil {
			return err
		}
		if err := m.guardMutable(b); err != nil {
			return err
		}
		return m.cancel(lockCtx, b)
	})
	m.finish(span, "cancel", err)
	return err
}

func (m *Manager) cancel(ctx context.Context, b *Booking) error {
	info := b.AdditionalInfo
	info.Modified = true

	upd := StatusUpdate{
		Status:         StatusCancelled,
		Notes:          CancelledNotes,
		AdditionalInfo: info,
	}
	if err := m.store.UpdateBookingStatus(ctx, b.ID, upd); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	m.logEvent(ctx, b.ID, EventBookingCancelled, map[string]any{
		"previous_status": string(b.Status),
	})
	return nil
}

// MarkProcessed records that a test type was recommended for an INITIATED
// booking. record, when set, runs under the booking lock once the booking is
// known to be INITIATED and before the status changes; an error from it
// leaves the booking untouched.
func (m *Manager) MarkProcessed(ctx context.Context, id, notes string, record func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "booking.MarkProcessed", trace.WithAttributes(attribute.String("booking.id", id)))
	defer span.End()

	err := m.withLock(ctx, id, func(lockCtx context.Context) error {
		b, err := m.load(lockCtx, id)
		if err != nil {
			return err
		}
		if b.Status != StatusInitiated {
			return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, b.Status, StatusProcessed)
		}
		if record != nil {
			if err := record(lockCtx); err != nil {
				return err
			}
		}

		upd := StatusUpdate{
			Status:         StatusProcessed,
			Notes:          notes,
			AdditionalInfo: b.AdditionalInfo,
		}
		if err := m.store.UpdateBookingStatus(lockCtx, b.ID, upd); err != nil {
			return fmt.Errorf("mark booking processed: %w", err)
		}

		m.logEvent(lockCtx, b.ID, EventBookingProcessed, map[string]any{"notes": notes})
		return nil
	})
	m.finish(span, "mark_processed", err)
	return err
}

// Describe renders the booking summary shown to residents and staff.
func (m *Manager) Describe(ctx context.Context, id string) (string, error) {
	b, err := m.load(ctx, id)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"Booking ID: %s\nCustomer ID: %s\nCustomer Name: %s %s\nTesting Site: %s\nBooking Status: %s\nLast Updated: %s",
		b.ID,
		b.Customer.ID,
		b.Customer.GivenName,
		b.Customer.FamilyName,
		b.TestingSite.Name,
		b.Status,
		FormatTimestamp(b.UpdatedAt, m.loc),
	), nil
}

// Get returns the current record of a booking.
func (m *Manager) Get(ctx context.Context, id string) (*Booking, error) {
	return m.load(ctx, id)
}

// Delete removes a booking regardless of its state.
func (m *Manager) Delete(ctx context.Context, id string) error {
	err := m.store.DeleteBooking(ctx, id)
	if err == nil {
		m.logEvent(ctx, id, EventBookingDeleted, map[string]any{})
	} else if !errors.Is(err, ErrBookingNotFound) {
		err = fmt.Errorf("delete booking: %w", err)
	}
	m.metrics.ObserveOperation("delete", outcome(err))
	return err
}

// Helpers

func (m *Manager) load(ctx context.Context, id string) (*Booking, error) {
	b, err := m.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

// lapsed compares at second precision; a booking whose start is this very
// second is still current.
func (m *Manager) lapsed(b *Booking) bool {
	return m.now().Truncate(time.Second).After(b.StartTime.Truncate(time.Second))
}

func (m *Manager) guardMutable(b *Booking) error {
	switch {
	case m.lapsed(b):
		return ErrBookingLapsed
	case b.Status == StatusCompleted:
		return ErrAlreadyCompleted
	case b.Status == StatusCancelled:
		return ErrAlreadyCancelled
	}
	return nil
}

func (m *Manager) withLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	err := m.locker.WithBookingLock(ctx, id, fn)
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrBookingBusy
	}
	return err
}

func (m *Manager) finish(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		if !IsRefusal(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	if errors.Is(err, ErrPartialModification) {
		m.metrics.ObservePartialModification()
	}
	m.metrics.ObserveOperation(operation, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRefusal(err):
		return "refused"
	}
	return "error"
}

func (m *Manager) logEvent(ctx context.Context, bookingID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Warn("marshal event payload", zap.String("event_type", eventType), zap.Error(err))
		data = nil
	}

	id := bookingID
	ev := EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: m.now(),
	}

	if err := m.store.InsertEvent(ctx, ev); err != nil {
		m.logger.Warn("insert event log",
			zap.String("event_type", eventType),
			zap.String("booking_id", bookingID),
			zap.Error(err),
		)
	}
}
