package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/covid-test-booking/internal/config"
	redisclient "github.com/hackgods/covid-test-booking/internal/redis"
	"github.com/hackgods/covid-test-booking/internal/site"
)

var testNow = time.Date(2022, 5, 10, 10, 0, 0, 0, time.UTC)

// fakeStore keeps bookings in memory and counts writes.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	order    []string
	events   []EventLog
	writes   int
	seq      int

	createErr error
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[string]*Booking{}}
}

func (s *fakeStore) seed(b Booking) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	if b.ID == "" {
		b.ID = fmt.Sprintf("b-%d", s.seq)
	}
	if b.SMSPin == "" {
		b.SMSPin = fmt.Sprintf("%06d", s.seq)
	}
	if b.Status == "" {
		b.Status = StatusInitiated
	}
	b.CreatedAt = testNow
	b.UpdatedAt = testNow
	s.bookings[b.ID] = &b
	s.order = append(s.order, b.ID)
	return b.ID
}

func (s *fakeStore) get(id string) Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bookings[id]
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *fakeStore) GetBooking(_ context.Context, id string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeStore) list(keep func(*Booking) bool) []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Booking
	for _, id := range s.order {
		if b, ok := s.bookings[id]; ok && keep(b) {
			out = append(out, *b)
		}
	}
	return out
}

func (s *fakeStore) ListBookingsAtSite(_ context.Context, siteID string) ([]Booking, error) {
	return s.list(func(b *Booking) bool { return b.TestingSite.ID == siteID }), nil
}

func (s *fakeStore) ListBookingsByCustomer(_ context.Context, customerID string) ([]Booking, error) {
	return s.list(func(b *Booking) bool { return b.Customer.ID == customerID }), nil
}

func (s *fakeStore) FindBookingByQRCode(_ context.Context, code string) (*Booking, error) {
	found := s.list(func(b *Booking) bool { return b.AdditionalInfo.QRCode == code })
	if len(found) == 0 {
		return nil, ErrBookingNotFound
	}
	return &found[len(found)-1], nil
}

func (s *fakeStore) CreateBooking(_ context.Context, nb NewBooking) (string, error) {
	s.mu.Lock()
	s.writes++
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}

	status := nb.Status
	if status == "" {
		status = StatusInitiated
	}
	return s.seed(Booking{
		Customer:       Customer{ID: nb.CustomerID},
		TestingSite:    SiteRef{ID: nb.SiteID},
		StartTime:      nb.StartTime,
		Status:         status,
		Notes:          nb.Notes,
		AdditionalInfo: nb.AdditionalInfo,
	}), nil
}

func (s *fakeStore) UpdateBookingStatus(_ context.Context, id string, upd StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	if s.updateErr != nil {
		return s.updateErr
	}
	b, ok := s.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	b.Status = upd.Status
	b.Notes = upd.Notes
	b.AdditionalInfo = upd.AdditionalInfo
	b.UpdatedAt = testNow.Add(time.Minute)
	return nil
}

func (s *fakeStore) DeleteBooking(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writes++
	if _, ok := s.bookings[id]; !ok {
		return ErrBookingNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *fakeStore) InsertEvent(_ context.Context, ev EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		types = append(types, ev.EventType)
	}
	return types
}

type stubSearcher struct {
	sites []site.Site
	calls int
}

func (s *stubSearcher) SearchBySuburb(_ context.Context, _ string) ([]site.Site, error) {
	s.calls++
	return s.sites, nil
}

func newTestManager(t *testing.T, store Store, sites SiteSearcher) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	cfg := config.Config{Timezone: "UTC", VideoBaseURL: "https://video.test/rooms/"}
	m := NewManager(store, sites, redisclient.NewRedisBookingLocker(client, 5*time.Second), cfg, nil, nil)
	m.now = func() time.Time { return testNow }
	return m, mr
}

func upcoming(status Status) Booking {
	return Booking{
		Customer:    Customer{ID: "c-1", GivenName: "Ada", FamilyName: "Lovelace"},
		TestingSite: SiteRef{ID: "site-1", Name: "Clayton Drive Through"},
		StartTime:   testNow.Add(24 * time.Hour),
		Status:      status,
	}
}
