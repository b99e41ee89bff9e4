package booking

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type lookupKey int

const (
	byPin lookupKey = iota
	byBookingID
)

// Lookup is the result of a status check at a site. Found is false when no
// booking at the site matches.
type Lookup struct {
	Found      bool
	BookingID  string
	CustomerID string
	Status     Status

	key lookupKey
}

// Describe renders the status, or the message shown for an unknown pin or
// booking id.
func (l Lookup) Describe() string {
	if l.Found {
		return string(l.Status)
	}
	if l.key == byPin {
		return "Invalid Pin"
	}
	return "Invalid Booking ID"
}

// StatusByPin scans the site's bookings for pin. When several match, the
// most recent booking wins.
func (m *Manager) StatusByPin(ctx context.Context, pin, siteID string) (Lookup, error) {
	return m.lookup(ctx, siteID, byPin, func(b Booking) bool { return b.SMSPin == pin })
}

func (m *Manager) StatusByID(ctx context.Context, bookingID, siteID string) (Lookup, error) {
	return m.lookup(ctx, siteID, byBookingID, func(b Booking) bool { return b.ID == bookingID })
}

func (m *Manager) lookup(ctx context.Context, siteID string, key lookupKey, match func(Booking) bool) (Lookup, error) {
	res := Lookup{key: key}

	bookings, err := m.store.ListBookingsAtSite(ctx, siteID)
	if err != nil {
		return res, fmt.Errorf("list bookings at site: %w", err)
	}

	for _, b := range bookings {
		if match(b) {
			res.Found = true
			res.BookingID = b.ID
			res.CustomerID = b.Customer.ID
			res.Status = b.Status
		}
	}
	return res, nil
}

// CollectRATKit hands over the RAT kit of the home booking identified by
// its QR code. A code belonging to another site's booking is refused as
// invalid.
func (m *Manager) CollectRATKit(ctx context.Context, siteID, qrCode string) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.CollectRATKit", trace.WithAttributes(attribute.String("site.id", siteID)))
	defer span.End()

	b, err := m.collectRATKit(ctx, siteID, qrCode)
	if b != nil {
		span.SetAttributes(attribute.String("booking.id", b.ID))
	}
	m.finish(span, "collect_rat_kit", err)
	return b, err
}

func (m *Manager) collectRATKit(ctx context.Context, siteID, qrCode string) (*Booking, error) {
	if qrCode == "" || siteID == "" {
		return nil, ErrInvalidQRCode
	}

	found, err := m.store.FindBookingByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return nil, ErrInvalidQRCode
		}
		return nil, fmt.Errorf("find booking by qr code: %w", err)
	}
	if found.TestingSite.ID != siteID {
		return nil, ErrInvalidQRCode
	}

	var updated *Booking
	err = m.withLock(ctx, found.ID, func(lockCtx context.Context) error {
		b, err := m.load(lockCtx, found.ID)
		if err != nil {
			return err
		}
		if b.TestingSite.ID != siteID {
			return ErrInvalidQRCode
		}
		if b.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}

		switch b.AdditionalInfo.RATKitStatus {
		case RATKitNotReceived:
		case RATKitReceived:
			return ErrRATKitAlreadyCollected
		default:
			return ErrRATKitNotRequired
		}

		info := b.AdditionalInfo
		info.RATKitStatus = RATKitReceived
		upd := StatusUpdate{
			Status:         b.Status,
			Notes:          b.Notes,
			AdditionalInfo: info,
		}
		if err := m.store.UpdateBookingStatus(lockCtx, b.ID, upd); err != nil {
			return fmt.Errorf("update rat kit status: %w", err)
		}

		m.logEvent(lockCtx, b.ID, EventRATKitCollected, map[string]any{"qr_code": qrCode})

		b.AdditionalInfo = info
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ModifiedAtSite lists the site's bookings that were changed after they
// were made, for the receptionist's notifications.
func (m *Manager) ModifiedAtSite(ctx context.Context, siteID string) ([]Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.ModifiedAtSite", trace.WithAttributes(attribute.String("site.id", siteID)))
	defer span.End()

	bookings, err := m.store.ListBookingsAtSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("list bookings at site: %w", err)
	}

	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.AdditionalInfo.Modified {
			out = append(out, b)
		}
	}
	return out, nil
}

// ActiveBookings lists the customer's bookings that are not cancelled.
func (m *Manager) ActiveBookings(ctx context.Context, customerID string) ([]Booking, error) {
	bookings, err := m.store.ListBookingsByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by customer: %w", err)
	}

	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status != StatusCancelled {
			out = append(out, b)
		}
	}
	return out, nil
}
