package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/covid-test-booking/internal/db"
)

const bookingSelect = `
		SELECT b.id, b.customer_id, c.given_name, c.family_name,
		       b.testing_site_id, s.name, s.home_testing,
		       b.sms_pin, b.start_time, b.status, b.notes, b.additional_info,
		       b.created_at, b.updated_at
		FROM bookings b
		JOIN customers c ON c.id = b.customer_id
		JOIN testing_sites s ON s.id = b.testing_site_id`

type PgStore struct {
	db db.DBTX
}

func NewPgStore(conn db.DBTX) *PgStore {
	return &PgStore{db: conn}
}

// Helpers

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var id, customerID, siteID uuid.UUID
	var status string
	var info []byte

	err := row.Scan(
		&id,
		&customerID,
		&b.Customer.GivenName,
		&b.Customer.FamilyName,
		&siteID,
		&b.TestingSite.Name,
		&b.TestingSite.HomeTesting,
		&b.SMSPin,
		&b.StartTime,
		&status,
		&b.Notes,
		&info,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if len(info) > 0 {
		if err := json.Unmarshal(info, &b.AdditionalInfo); err != nil {
			return nil, fmt.Errorf("decode additional info of booking %s: %w", id, err)
		}
	}

	b.ID = id.String()
	b.Customer.ID = customerID.String()
	b.TestingSite.ID = siteID.String()
	b.Status = Status(status)
	return &b, nil
}

func (s *PgStore) listBookings(ctx context.Context, where string, arg any) ([]Booking, error) {
	rows, err := s.db.Query(ctx, bookingSelect+`
		WHERE `+where+`
		ORDER BY b.created_at, b.id
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// Interface methods

func (s *PgStore) GetBooking(ctx context.Context, id string) (*Booking, error) {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrBookingNotFound
	}

	row := s.db.QueryRow(ctx, bookingSelect+`
		WHERE b.id = $1
	`, bookingID)
	return scanBooking(row)
}

// ListBookingsAtSite returns the site's bookings oldest first. An id that
// is not a UUID cannot name a site and yields no bookings.
func (s *PgStore) ListBookingsAtSite(ctx context.Context, siteID string) ([]Booking, error) {
	id, err := uuid.Parse(siteID)
	if err != nil {
		return nil, nil
	}

	bookings, err := s.listBookings(ctx, "b.testing_site_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("list bookings at site: %w", err)
	}
	return bookings, nil
}

func (s *PgStore) ListBookingsByCustomer(ctx context.Context, customerID string) ([]Booking, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		return nil, nil
	}

	bookings, err := s.listBookings(ctx, "b.customer_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("list bookings by customer: %w", err)
	}
	return bookings, nil
}

func (s *PgStore) FindBookingByQRCode(ctx context.Context, code string) (*Booking, error) {
	row := s.db.QueryRow(ctx, bookingSelect+`
		WHERE b.additional_info ->> 'qrCode' = $1
		ORDER BY b.created_at DESC
		LIMIT 1
	`, code)
	return scanBooking(row)
}

const (
	livePinConstraint = "uq_bookings_live_site_pin"
	maxPinAttempts    = 5
)

func (s *PgStore) CreateBooking(ctx context.Context, nb NewBooking) (string, error) {
	customerID, err := uuid.Parse(nb.CustomerID)
	if err != nil {
		return "", fmt.Errorf("%w: invalid customer id %q", ErrWriteRejected, nb.CustomerID)
	}
	siteID, err := uuid.Parse(nb.SiteID)
	if err != nil {
		return "", fmt.Errorf("%w: invalid site id %q", ErrWriteRejected, nb.SiteID)
	}

	info, err := json.Marshal(nb.AdditionalInfo)
	if err != nil {
		return "", fmt.Errorf("encode additional info: %w", err)
	}

	status := nb.Status
	if status == "" {
		status = StatusInitiated
	}

	// A pin may not repeat among the live bookings of a site; a clash draws
	// a fresh pin.
	for attempt := 1; ; attempt++ {
		pin, err := newSMSPin()
		if err != nil {
			return "", err
		}

		id := uuid.New()
		_, err = s.db.Exec(ctx, `
			INSERT INTO bookings (id, customer_id, testing_site_id, sms_pin, start_time, status, notes, additional_info, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		`, id, customerID, siteID, pin, nb.StartTime, string(status), nb.Notes, info)
		switch {
		case err == nil:
			return id.String(), nil
		case db.IsForeignKeyViolation(err):
			return "", fmt.Errorf("%w: %w", ErrWriteRejected, err)
		case db.IsUniqueViolation(err, livePinConstraint) && attempt < maxPinAttempts:
			continue
		default:
			return "", fmt.Errorf("insert booking: %w", err)
		}
	}
}

func (s *PgStore) UpdateBookingStatus(ctx context.Context, id string, upd StatusUpdate) error {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return ErrBookingNotFound
	}

	info, err := json.Marshal(upd.AdditionalInfo)
	if err != nil {
		return fmt.Errorf("encode additional info: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, notes = $3, additional_info = $4, updated_at = now()
		WHERE id = $1
	`, bookingID, string(upd.Status), upd.Notes, info)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (s *PgStore) DeleteBooking(ctx context.Context, id string) error {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return ErrBookingNotFound
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	var bookingID *uuid.UUID
	if ev.BookingID != nil {
		if id, err := uuid.Parse(*ev.BookingID); err == nil {
			bookingID = &id
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.EventType, bookingID, ev.Payload, ev.CreatedAt)
	return err
}
