package triage

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/logging"
	"github.com/hackgods/covid-test-booking/internal/metrics"
)

var tracer = otel.Tracer("github.com/hackgods/covid-test-booking/internal/triage")

// Bookings is the part of the booking lifecycle triage depends on.
type Bookings interface {
	StatusByPin(ctx context.Context, pin, siteID string) (booking.Lookup, error)
	MarkProcessed(ctx context.Context, id, notes string, record func(ctx context.Context) error) error
}

type Service struct {
	records  RecordStore
	bookings Bookings
	metrics  *metrics.Lifecycle
	logger   *zap.Logger
}

func NewService(records RecordStore, bookings Bookings, logger *zap.Logger, m *metrics.Lifecycle) *Service {
	return &Service{
		records:  records,
		bookings: bookings,
		metrics:  m,
		logger:   logging.OrNop(logger),
	}
}

type RecommendRequest struct {
	SiteID         string
	Pin            string
	AdministererID string
	Assessment     Assessment
}

type Recommendation struct {
	TestType TestType
	Record   *TestRecord
}

// Message is the sentence shown to the health worker.
func (r Recommendation) Message() string {
	return fmt.Sprintf("The System recommends that the Resident should take %s %s test", r.TestType.Article(), r.TestType)
}

// Recommend classifies an assessment for the booking holding pin at the
// site, records the recommended test and marks the booking PROCESSED.
// Only INITIATED bookings can be triaged.
func (s *Service) Recommend(ctx context.Context, req RecommendRequest) (*Recommendation, error) {
	ctx, span := tracer.Start(ctx, "triage.Recommend", trace.WithAttributes(
		attribute.String("site.id", req.SiteID),
		attribute.String("administerer.id", req.AdministererID),
	))
	defer span.End()

	rec, err := s.recommend(ctx, req)
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, ErrInvalidPin) && !booking.IsRefusal(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return rec, err
}

func (s *Service) recommend(ctx context.Context, req RecommendRequest) (*Recommendation, error) {
	testType := Classify(req.Assessment)

	found, err := s.bookings.StatusByPin(ctx, req.Pin, req.SiteID)
	if err != nil {
		return nil, fmt.Errorf("find booking by pin: %w", err)
	}
	if !found.Found {
		return nil, ErrInvalidPin
	}
	if found.Status != booking.StatusInitiated {
		return nil, fmt.Errorf("%w: booking %s is %s", booking.ErrInvalidStatusTransition, found.BookingID, found.Status)
	}

	// The record is written under the booking lock after the INITIATED
	// re-check, so concurrent triage of one booking yields a single record.
	// A failed status write after the insert still leaves the record behind.
	var record *TestRecord
	err = s.bookings.MarkProcessed(ctx, found.BookingID, booking.ProcessedNotes, func(lockCtx context.Context) error {
		rec, err := s.records.CreateTestRecord(lockCtx, TestRecord{
			PatientID:      found.CustomerID,
			AdministererID: req.AdministererID,
			BookingID:      found.BookingID,
			Type:           testType,
			Result:         ResultPending,
			Status:         StatusNotInitiated,
			Notes:          booking.ProcessedNotes,
		})
		if err != nil {
			return fmt.Errorf("create test record: %w", err)
		}
		record = rec
		return nil
	})
	if err != nil {
		if record != nil {
			s.logger.Error("test recorded but booking not processed",
				zap.String("booking_id", found.BookingID),
				zap.String("test_id", record.ID),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("process booking: %w", err)
	}

	s.metrics.ObserveRecommendation(string(testType))
	s.logger.Info("test type recommended",
		zap.String("booking_id", found.BookingID),
		zap.String("test_type", string(testType)),
	)

	return &Recommendation{TestType: testType, Record: record}, nil
}
