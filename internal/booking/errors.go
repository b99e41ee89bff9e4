package booking

import (
	"errors"
	"fmt"
)

var (
	ErrBookingLapsed           = errors.New("booking time has lapsed, please create a new booking")
	ErrAlreadyCompleted        = errors.New("test has already been conducted, please create a new booking")
	ErrAlreadyCancelled        = errors.New("booking has already been cancelled")
	ErrBookingNotMade          = errors.New("booking cannot be made")
	ErrBookingBusy             = errors.New("booking is currently being changed, please retry")
	ErrNoSitesFound            = errors.New("no sites were found")
	ErrInvalidSelection        = errors.New("site selection is out of range")
	ErrPartialModification     = errors.New("booking change only partially applied")
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	ErrInvalidQRCode          = errors.New("invalid QR code")
	ErrRATKitNotRequired      = errors.New("booking does not require a RAT kit")
	ErrRATKitAlreadyCollected = errors.New("RAT kit has already been collected")
)

// DateParseError reports a booking time that does not match TimestampLayout.
type DateParseError struct {
	Input string
	Err   error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("date %q must be in the format yyyy-MM-dd HH:mm:ss", e.Input)
}

func (e *DateParseError) Unwrap() error {
	return e.Err
}

// IsRefusal reports whether err is a lifecycle refusal or bad caller
// input rather than a store failure.
func IsRefusal(err error) bool {
	var dateErr *DateParseError
	switch {
	case errors.As(err, &dateErr),
		errors.Is(err, ErrBookingLapsed),
		errors.Is(err, ErrAlreadyCompleted),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrBookingBusy),
		errors.Is(err, ErrNoSitesFound),
		errors.Is(err, ErrInvalidSelection),
		errors.Is(err, ErrInvalidStatusTransition),
		errors.Is(err, ErrInvalidQRCode),
		errors.Is(err, ErrRATKitNotRequired),
		errors.Is(err, ErrRATKitAlreadyCollected),
		errors.Is(err, ErrBookingNotFound):
		return true
	}
	return false
}
