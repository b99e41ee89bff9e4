package site

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var siteColumnNames = []string{
	"id", "name", "description", "suburb", "drive_through", "walk_in", "hospital", "gp",
	"home_testing", "open_time", "close_time", "created_at",
}

func TestPgRepositoryListSites(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2022, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM testing_sites").
		WillReturnRows(pgxmock.NewRows(siteColumnNames).
			AddRow(id, "Clayton Drive Through", "Open air", "Clayton", true, false, false, false, false, "08:00", "17:00", created))

	repo := NewPgRepository(mock)
	sites, err := repo.ListSites(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, id.String(), sites[0].ID)
	assert.True(t, sites[0].DriveThrough)
	assert.Equal(t, "17:00", sites[0].CloseTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryListSitesBySuburb(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	first, second := uuid.New(), uuid.New()
	created := time.Date(2022, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE lower\\(suburb\\) = lower\\(\\$1\\)\\s+ORDER BY created_at, name").
		WithArgs("clayton").
		WillReturnRows(pgxmock.NewRows(siteColumnNames).
			AddRow(first, "Clayton Drive Through", "", "Clayton", true, false, false, false, false, "08:00", "17:00", created).
			AddRow(second, "Clayton South Clinic", "", "clayton", false, true, false, false, false, "09:00", "16:00", created))

	sites, err := NewPgRepository(mock).ListSitesBySuburb(context.Background(), " clayton ")
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, first.String(), sites[0].ID)
	assert.Equal(t, second.String(), sites[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGetSite(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	created := time.Date(2022, 4, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(siteColumnNames).
			AddRow(id, "Caulfield GP", "", "Caulfield", false, false, false, true, true, "08:00", "18:00", created))

	s, err := NewPgRepository(mock).GetSite(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, "Caulfield GP", s.Name)
	assert.True(t, s.HomeTesting)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryGetSiteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("WHERE id = \\$1").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	repo := NewPgRepository(mock)
	_, err = repo.GetSite(context.Background(), id.String())
	assert.ErrorIs(t, err, ErrSiteNotFound)

	_, err = repo.GetSite(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrSiteNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepositoryCountBookings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT count\\(\\*\\)").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewPgRepository(mock).CountBookings(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
