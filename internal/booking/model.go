package booking

import (
	"time"
)

type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusProcessed Status = "PROCESSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

type RATKitStatus string

const (
	RATKitNotApplicable RATKitStatus = "N/A"
	RATKitNotReceived   RATKitStatus = "NOT RECEIVED"
	RATKitReceived      RATKitStatus = "RECEIVED"
)

// TimestampLayout is the yyyy-MM-dd HH:mm:ss format used for booking times
// entered by people and exchanged as text.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	CancelledNotes = "Booking has been cancelled"
	ProcessedNotes = "Test type recommended"
)

// AdditionalInfo carries the variant specific fields of a booking. Home
// bookings fill every field; on-site bookings only use Modified.
type AdditionalInfo struct {
	Modified       bool         `json:"modified"`
	HomeTest       bool         `json:"homeTest,omitempty"`
	RATKitRequired bool         `json:"ratKitRequired,omitempty"`
	RATKitStatus   RATKitStatus `json:"ratKitStatus,omitempty"`
	QRCode         string       `json:"qrCode,omitempty"`
	URL            string       `json:"url,omitempty"`
}

type Customer struct {
	ID         string
	GivenName  string
	FamilyName string
}

type SiteRef struct {
	ID          string
	Name        string
	HomeTesting bool
}

type Booking struct {
	ID             string
	Customer       Customer
	TestingSite    SiteRef
	SMSPin         string
	StartTime      time.Time
	Status         Status
	Notes          string
	AdditionalInfo AdditionalInfo
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewBooking is the field set sent to the store on creation. An empty
// Status lets the store apply INITIATED.
type NewBooking struct {
	CustomerID     string
	SiteID         string
	StartTime      time.Time
	Status         Status
	Notes          string
	AdditionalInfo AdditionalInfo
}

// StatusUpdate is the full representation written back on every in-place
// transition.
type StatusUpdate struct {
	Status         Status
	Notes          string
	AdditionalInfo AdditionalInfo
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *string
	Payload   []byte
	CreatedAt time.Time
}

// ParseTimestamp parses a yyyy-MM-dd HH:mm:ss string in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, raw, loc)
}

// FormatTimestamp renders t in loc using TimestampLayout.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(TimestampLayout)
}
