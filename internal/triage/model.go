package triage

import (
	"errors"
	"time"
)

var (
	ErrInvalidPin = errors.New("invalid PIN")
)

type TestType string

const (
	TestPCR TestType = "PCR"
	TestRAT TestType = "RAT"
)

const (
	ResultPending      = "PENDING"
	StatusNotInitiated = "NOT INITIATED"
)

// Assessment is the outcome of one interview. It is never stored.
type Assessment struct {
	OverseasTravel bool `json:"overseas_travel"`
	RATPositive    bool `json:"rat_positive"`
	ContactLevel   int  `json:"contact_level"` // 1 confirmed, 2 suspected, 3 other case
	MildCount      int  `json:"mild_count"`
	ModerateCount  int  `json:"moderate_count"`
	SevereCount    int  `json:"severe_count"`
}

// TestRecord is the recommended test persisted for a booking. It is not
// changed after creation.
type TestRecord struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id"`
	AdministererID string    `json:"administerer_id"`
	BookingID      string    `json:"booking_id"`
	Type           TestType  `json:"type"`
	Result         string    `json:"result"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`
}
