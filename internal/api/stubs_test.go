package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hackgods/covid-test-booking/internal/access"
	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/site"
	"github.com/hackgods/covid-test-booking/internal/symptom"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

const (
	testSecret   = "test-secret"
	residentID   = "11111111-1111-1111-1111-111111111111"
	otherID      = "22222222-2222-2222-2222-222222222222"
	staffID      = "33333333-3333-3333-3333-333333333333"
	testSiteID   = "44444444-4444-4444-4444-444444444444"
	testBooking  = "55555555-5555-5555-5555-555555555555"
	newBookingID = "66666666-6666-6666-6666-666666666666"
)

type stubBookings struct {
	bookings map[string]*booking.Booking
	err      error
	lookup   booking.Lookup
	modify   *booking.ModifyResult

	created   []booking.CreateRequest
	modified  []booking.ModifyRequest
	cancelled []string
}

func newStubBookings(bs ...*booking.Booking) *stubBookings {
	s := &stubBookings{bookings: map[string]*booking.Booking{}}
	for _, b := range bs {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *stubBookings) Location() *time.Location { return time.UTC }

func (s *stubBookings) Create(_ context.Context, req booking.CreateRequest) (*booking.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, req)
	return &booking.Booking{
		ID:          newBookingID,
		Customer:    booking.Customer{ID: req.CustomerID},
		TestingSite: booking.SiteRef{ID: req.SiteID},
		SMSPin:      "123456",
		StartTime:   req.StartTime,
		Status:      booking.StatusInitiated,
	}, nil
}

func (s *stubBookings) Get(_ context.Context, id string) (*booking.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return b, nil
}

func (s *stubBookings) Describe(ctx context.Context, id string) (string, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return "Booking ID: " + b.ID, nil
}

func (s *stubBookings) Delete(_ context.Context, id string) error {
	if _, ok := s.bookings[id]; !ok {
		return booking.ErrBookingNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *stubBookings) Cancel(_ context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.cancelled = append(s.cancelled, id)
	s.bookings[id].Status = booking.StatusCancelled
	return nil
}

func (s *stubBookings) Modify(_ context.Context, _ string, req booking.ModifyRequest) (*booking.ModifyResult, error) {
	s.modified = append(s.modified, req)
	return s.modify, s.err
}

func (s *stubBookings) RevertToPrevious(_ context.Context, _, pastID string) (*booking.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	past := *s.bookings[pastID]
	past.ID = newBookingID
	past.Status = booking.StatusInitiated
	return &past, nil
}

func (s *stubBookings) StatusByPin(context.Context, string, string) (booking.Lookup, error) {
	return s.lookup, s.err
}

func (s *stubBookings) StatusByID(context.Context, string, string) (booking.Lookup, error) {
	return s.lookup, s.err
}

func (s *stubBookings) ModifiedAtSite(context.Context, string) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.AdditionalInfo.Modified {
			out = append(out, *b)
		}
	}
	return out, s.err
}

func (s *stubBookings) ActiveBookings(_ context.Context, customerID string) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range s.bookings {
		if b.Customer.ID == customerID && b.Status != booking.StatusCancelled {
			out = append(out, *b)
		}
	}
	return out, s.err
}

func (s *stubBookings) CollectRATKit(_ context.Context, siteID, qrCode string) (*booking.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, b := range s.bookings {
		if b.AdditionalInfo.QRCode == qrCode && b.TestingSite.ID == siteID {
			b.AdditionalInfo.RATKitStatus = booking.RATKitReceived
			return b, nil
		}
	}
	return nil, booking.ErrInvalidQRCode
}

type stubSites struct {
	sites []site.Site
	wait  time.Duration
}

func (s *stubSites) SearchBySuburb(_ context.Context, suburb string) ([]site.Site, error) {
	var out []site.Site
	for _, st := range s.sites {
		if strings.EqualFold(st.Suburb, suburb) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *stubSites) Search(_ context.Context, f site.Filter) ([]site.Site, error) {
	var out []site.Site
	for _, st := range s.sites {
		if f.Match(st) {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *stubSites) WaitingTime(context.Context, string) (time.Duration, error) {
	return s.wait, nil
}

type stubTriage struct {
	err  error
	last triage.RecommendRequest
}

func (s *stubTriage) Recommend(_ context.Context, req triage.RecommendRequest) (*triage.Recommendation, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	testType := triage.Classify(req.Assessment)
	return &triage.Recommendation{
		TestType: testType,
		Record:   &triage.TestRecord{ID: "test-1", BookingID: testBooking, Type: testType},
	}, nil
}

type testServer struct {
	handler  http.Handler
	bookings *stubBookings
	sites    *stubSites
	triage   *stubTriage
}

func newTestServer(t *testing.T, bookings *stubBookings) *testServer {
	t.Helper()

	catalog, err := symptom.New([]string{"cough"}, []string{"fever"}, []string{"chest pain"})
	require.NoError(t, err)

	ts := &testServer{
		bookings: bookings,
		sites:    &stubSites{},
		triage:   &stubTriage{},
	}
	ts.handler = NewRouter(RouterConfig{
		Bookings:  ts.bookings,
		Sites:     ts.sites,
		Triage:    ts.triage,
		Catalog:   catalog,
		JWTSecret: testSecret,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, role access.Role, userID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := access.IssueToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func upcomingBooking(id, customerID string) *booking.Booking {
	return &booking.Booking{
		ID:          id,
		Customer:    booking.Customer{ID: customerID, GivenName: "Ada", FamilyName: "Lee"},
		TestingSite: booking.SiteRef{ID: testSiteID, Name: "Clayton Clinic"},
		SMSPin:      "123456",
		StartTime:   time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:      booking.StatusInitiated,
	}
}
