package booking

import (
	"context"
	"errors"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrWriteRejected is returned when the store refuses a write, for
	// example because the customer or site does not exist.
	ErrWriteRejected = errors.New("booking write rejected")
)

// Store is the booking gateway the lifecycle manager reads from and writes
// full representations back to.
type Store interface {
	GetBooking(ctx context.Context, id string) (*Booking, error)
	ListBookingsAtSite(ctx context.Context, siteID string) ([]Booking, error)
	ListBookingsByCustomer(ctx context.Context, customerID string) ([]Booking, error)
	FindBookingByQRCode(ctx context.Context, code string) (*Booking, error)

	CreateBooking(ctx context.Context, nb NewBooking) (string, error)
	UpdateBookingStatus(ctx context.Context, id string, upd StatusUpdate) error
	DeleteBooking(ctx context.Context, id string) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
