package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/covid-test-booking/internal/site"
)

func claytonSites() []site.Site {
	return []site.Site{
		{ID: "site-2", Name: "Clayton Drive Through", Suburb: "Clayton"},
		{ID: "site-3", Name: "Monash Medical Centre", Suburb: "Clayton"},
	}
}

func TestModifyWithoutChangesIsNoop(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	searcher := &stubSearcher{sites: claytonSites()}
	m, _ := newTestManager(t, store, searcher)

	res, err := m.Modify(context.Background(), id, ModifyRequest{})
	require.NoError(t, err)
	assert.False(t, res.Modified)
	assert.Empty(t, res.NewBookingID)
	assert.Zero(t, store.writeCount())
	assert.Zero(t, searcher.calls)
}

func TestChangeTime(t *testing.T) {
	store := newFakeStore()
	orig := upcoming(StatusInitiated)
	orig.Notes = "bring photo id"
	id := store.seed(orig)
	m, _ := newTestManager(t, store, &stubSearcher{})

	res, err := m.ChangeTime(context.Background(), id, "2022-05-12 09:30:00")
	require.NoError(t, err)
	require.True(t, res.Modified)

	replaced := store.get(id)
	assert.Equal(t, StatusCancelled, replaced.Status)
	assert.Equal(t, CancelledNotes, replaced.Notes)

	fresh := store.get(res.NewBookingID)
	assert.Equal(t, StatusInitiated, fresh.Status)
	assert.Equal(t, time.Date(2022, 5, 12, 9, 30, 0, 0, time.UTC), fresh.StartTime)
	assert.Equal(t, "site-1", fresh.TestingSite.ID)
	assert.Equal(t, "c-1", fresh.Customer.ID)
	assert.Empty(t, fresh.Notes)
	assert.True(t, fresh.AdditionalInfo.Modified)
	assert.Equal(t, []string{EventBookingModified, EventBookingCancelled}, store.eventTypes())
}

func TestChangeTimeRejectsMalformedDate(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	m, _ := newTestManager(t, store, &stubSearcher{})

	for _, raw := range []string{"12/05/2022 09:30", "", "2022-05-12T09:30:00"} {
		_, err := m.ChangeTime(context.Background(), id, raw)

		var dateErr *DateParseError
		require.ErrorAs(t, err, &dateErr, raw)
		assert.Equal(t, raw, dateErr.Input)
	}
	assert.Zero(t, store.writeCount())
}

func TestChangeVenue(t *testing.T) {
	store := newFakeStore()
	orig := upcoming(StatusInitiated)
	id := store.seed(orig)
	m, _ := newTestManager(t, store, &stubSearcher{sites: claytonSites()})

	res, err := m.ChangeVenue(context.Background(), id, "clayton", IndexSelector(2))
	require.NoError(t, err)

	fresh := store.get(res.NewBookingID)
	assert.Equal(t, "site-3", fresh.TestingSite.ID)
	assert.Equal(t, orig.StartTime, fresh.StartTime)
	assert.Equal(t, StatusCancelled, store.get(id).Status)
}

func TestModifyTimeAndVenueTogether(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	m, _ := newTestManager(t, store, &stubSearcher{sites: claytonSites()})

	res, err := m.Modify(context.Background(), id, ModifyRequest{
		ChangeTime:   true,
		NewStartTime: "2022-06-01 14:00:00",
		ChangeVenue:  true,
		Suburb:       "Clayton",
		Selector:     IndexSelector(1),
	})
	require.NoError(t, err)

	fresh := store.get(res.NewBookingID)
	assert.Equal(t, "site-2", fresh.TestingSite.ID)
	assert.Equal(t, time.Date(2022, 6, 1, 14, 0, 0, 0, time.UTC), fresh.StartTime)
	assert.Equal(t, 2, store.count())
}

func TestChangeVenueWithNoSites(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	m, _ := newTestManager(t, store, &stubSearcher{})

	_, err := m.ChangeVenue(context.Background(), id, "Atlantis", IndexSelector(1))
	assert.ErrorIs(t, err, ErrNoSitesFound)
	assert.Zero(t, store.writeCount())
	assert.Equal(t, StatusInitiated, store.get(id).Status)
}

func TestChangeVenueSelectionOutOfRange(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	m, _ := newTestManager(t, store, &stubSearcher{sites: claytonSites()})

	for _, n := range []int{0, 3, -1} {
		_, err := m.ChangeVenue(context.Background(), id, "Clayton", IndexSelector(n))
		assert.ErrorIs(t, err, ErrInvalidSelection)
	}
	_, err := m.ChangeVenue(context.Background(), id, "Clayton", nil)
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Zero(t, store.writeCount())
}

func TestModifyRefusals(t *testing.T) {
	lapsed := upcoming(StatusInitiated)
	lapsed.StartTime = testNow.Add(-time.Hour)

	tests := []struct {
		name    string
		booking Booking
		want    error
	}{
		{"lapsed", lapsed, ErrBookingLapsed},
		{"completed", upcoming(StatusCompleted), ErrAlreadyCompleted},
		{"cancelled", upcoming(StatusCancelled), ErrAlreadyCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			id := store.seed(tt.booking)
			m, _ := newTestManager(t, store, &stubSearcher{sites: claytonSites()})

			_, err := m.ChangeTime(context.Background(), id, "2022-06-01 14:00:00")
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.writeCount())
			assert.Equal(t, 1, store.count())
		})
	}
}

func TestModifyPartialFailureKeepsNewBooking(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	store.updateErr = errors.New("gateway timeout")
	m, _ := newTestManager(t, store, &stubSearcher{})

	res, err := m.ChangeTime(context.Background(), id, "2022-05-20 08:00:00")
	require.ErrorIs(t, err, ErrPartialModification)
	require.NotNil(t, res)
	assert.NotEmpty(t, res.NewBookingID)
	assert.Contains(t, err.Error(), res.NewBookingID)

	assert.Equal(t, StatusInitiated, store.get(id).Status)
	assert.Equal(t, StatusInitiated, store.get(res.NewBookingID).Status)
}

func TestModifyCreateRejected(t *testing.T) {
	store := newFakeStore()
	id := store.seed(upcoming(StatusInitiated))
	store.createErr = ErrWriteRejected
	m, _ := newTestManager(t, store, &stubSearcher{})

	_, err := m.ChangeTime(context.Background(), id, "2022-05-20 08:00:00")
	assert.ErrorIs(t, err, ErrBookingNotMade)
	assert.Equal(t, StatusInitiated, store.get(id).Status)
}

func TestRevertToPrevious(t *testing.T) {
	store := newFakeStore()
	past := upcoming(StatusCancelled)
	past.TestingSite = SiteRef{ID: "site-9", Name: "Caulfield GP"}
	past.StartTime = testNow.Add(72 * time.Hour)
	past.Notes = CancelledNotes
	pastID := store.seed(past)
	currentID := store.seed(upcoming(StatusInitiated))
	m, _ := newTestManager(t, store, &stubSearcher{})

	restored, err := m.RevertToPrevious(context.Background(), currentID, pastID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, store.get(currentID).Status)
	assert.Equal(t, past, withoutBookkeeping(store.get(pastID), past))

	assert.NotEqual(t, pastID, restored.ID)
	assert.Equal(t, StatusInitiated, restored.Status)
	assert.Equal(t, "site-9", restored.TestingSite.ID)
	assert.Equal(t, "c-1", restored.Customer.ID)
	assert.Equal(t, past.StartTime, restored.StartTime)
	assert.Empty(t, restored.Notes)
	assert.True(t, restored.AdditionalInfo.Modified)
	assert.Equal(t, []string{EventBookingCancelled, EventBookingReverted}, store.eventTypes())
}

// withoutBookkeeping clears the store assigned fields so a stored booking
// can be compared with the one it was seeded from.
func withoutBookkeeping(b, seeded Booking) Booking {
	b.ID = seeded.ID
	b.SMSPin = seeded.SMSPin
	b.CreatedAt = seeded.CreatedAt
	b.UpdatedAt = seeded.UpdatedAt
	return b
}

func TestRevertRefusals(t *testing.T) {
	lapsed := upcoming(StatusInitiated)
	lapsed.StartTime = testNow.Add(-time.Minute)

	tests := []struct {
		name    string
		current Booking
		past    Booking
		want    error
	}{
		{"past completed", upcoming(StatusInitiated), upcoming(StatusCompleted), ErrAlreadyCompleted},
		{"current completed", upcoming(StatusCompleted), upcoming(StatusCancelled), ErrAlreadyCompleted},
		{"past lapsed", upcoming(StatusInitiated), lapsed, ErrBookingLapsed},
		{"current lapsed", lapsed, upcoming(StatusCancelled), ErrBookingLapsed},
		{"current cancelled", upcoming(StatusCancelled), upcoming(StatusCancelled), ErrAlreadyCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			currentID := store.seed(tt.current)
			pastID := store.seed(tt.past)
			m, _ := newTestManager(t, store, &stubSearcher{})

			_, err := m.RevertToPrevious(context.Background(), currentID, pastID)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.writeCount())
			assert.Equal(t, tt.current.Status, store.get(currentID).Status)
			assert.Equal(t, tt.past.Status, store.get(pastID).Status)
		})
	}
}

func TestRevertPartialFailure(t *testing.T) {
	store := newFakeStore()
	pastID := store.seed(upcoming(StatusCancelled))
	currentID := store.seed(upcoming(StatusInitiated))
	store.createErr = errors.New("gateway timeout")
	m, _ := newTestManager(t, store, &stubSearcher{})

	_, err := m.RevertToPrevious(context.Background(), currentID, pastID)
	assert.ErrorIs(t, err, ErrPartialModification)
	assert.Equal(t, StatusCancelled, store.get(currentID).Status)
	assert.Equal(t, 2, store.count())
}
