package api

import (
	"time"

	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/site"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

type CreateBookingRequest struct {
	CustomerID string `json:"customer_id"`
	SiteID     string `json:"site_id"`
	StartTime  string `json:"start_time,omitempty"` // yyyy-MM-dd HH:mm:ss, empty means now
	HomeTest   bool   `json:"home_test"`
	RATKit     string `json:"rat_kit,omitempty"` // YES or NO, home bookings only
}

type ModifyBookingRequest struct {
	StartTime *string `json:"start_time,omitempty"`
	Suburb    *string `json:"suburb,omitempty"`
	SiteIndex int     `json:"site_index,omitempty"` // 1-based position in the suburb's sites
}

type RevertBookingRequest struct {
	PastBookingID string `json:"past_booking_id"`
}

type CollectRATKitRequest struct {
	QRCode string `json:"qr_code"`
}

// TriageRequest carries the interview answers keyed by question key, e.g.
// "overseas_travel", "contact_level" or "symptom:fever".
type TriageRequest struct {
	Pin     string            `json:"pin"`
	Answers map[string]string `json:"answers"`
}

type BookingResponse struct {
	ID             string                 `json:"id"`
	CustomerID     string                 `json:"customer_id"`
	CustomerName   string                 `json:"customer_name,omitempty"`
	SiteID         string                 `json:"site_id"`
	SiteName       string                 `json:"site_name,omitempty"`
	SMSPin         string                 `json:"sms_pin,omitempty"`
	StartTime      string                 `json:"start_time"`
	Status         string                 `json:"status"`
	Notes          string                 `json:"notes"`
	AdditionalInfo booking.AdditionalInfo `json:"additional_info"`
	UpdatedAt      string                 `json:"updated_at,omitempty"`
}

func newBookingResponse(b *booking.Booking, loc *time.Location) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID,
		CustomerID:     b.Customer.ID,
		SiteID:         b.TestingSite.ID,
		SiteName:       b.TestingSite.Name,
		SMSPin:         b.SMSPin,
		StartTime:      booking.FormatTimestamp(b.StartTime, loc),
		Status:         string(b.Status),
		Notes:          b.Notes,
		AdditionalInfo: b.AdditionalInfo,
	}
	if b.Customer.GivenName != "" || b.Customer.FamilyName != "" {
		resp.CustomerName = b.Customer.GivenName + " " + b.Customer.FamilyName
	}
	if !b.UpdatedAt.IsZero() {
		resp.UpdatedAt = booking.FormatTimestamp(b.UpdatedAt, loc)
	}
	return resp
}

func newBookingList(bookings []booking.Booking, loc *time.Location) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, newBookingResponse(&bookings[i], loc))
	}
	return out
}

type DescribeResponse struct {
	Summary string `json:"summary"`
}

type ModifyResponse struct {
	Modified     bool   `json:"modified"`
	NewBookingID string `json:"new_booking_id,omitempty"`
}

type StatusResponse struct {
	Found     bool   `json:"found"`
	BookingID string `json:"booking_id,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message"`
}

type SiteResponse struct {
	site.Site
	State        site.State `json:"state"`
	WaitingHours int        `json:"waiting_hours"`
}

type TriageResponse struct {
	TestType  triage.TestType `json:"test_type"`
	Message   string          `json:"message"`
	TestID    string          `json:"test_id"`
	BookingID string          `json:"booking_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
