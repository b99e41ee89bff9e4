package site

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/covid-test-booking/internal/db"
)

const siteColumns = `id, name, description, suburb, drive_through, walk_in, hospital, gp,
		home_testing, open_time, close_time, created_at`

type PgRepository struct {
	db db.DBTX
}

func NewPgRepository(conn db.DBTX) *PgRepository {
	return &PgRepository{db: conn}
}

func scanSite(row pgx.Row) (*Site, error) {
	var s Site
	var id uuid.UUID

	err := row.Scan(
		&id,
		&s.Name,
		&s.Description,
		&s.Suburb,
		&s.DriveThrough,
		&s.WalkIn,
		&s.Hospital,
		&s.GP,
		&s.HomeTesting,
		&s.OpenTime,
		&s.CloseTime,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}

	s.ID = id.String()
	return &s, nil
}

func (r *PgRepository) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+siteColumns+`
		FROM testing_sites
		ORDER BY created_at, name
	`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return collectSites(rows)
}

// ListSitesBySuburb matches the suburb case-insensitively.
func (r *PgRepository) ListSitesBySuburb(ctx context.Context, suburb string) ([]Site, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+siteColumns+`
		FROM testing_sites
		WHERE lower(suburb) = lower($1)
		ORDER BY created_at, name
	`, strings.TrimSpace(suburb))
	if err != nil {
		return nil, fmt.Errorf("list sites by suburb: %w", err)
	}
	return collectSites(rows)
}

func collectSites(rows pgx.Rows) ([]Site, error) {
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}

	return sites, nil
}

func (r *PgRepository) GetSite(ctx context.Context, id string) (*Site, error) {
	siteID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSiteNotFound
	}

	row := r.db.QueryRow(ctx, `
		SELECT `+siteColumns+`
		FROM testing_sites
		WHERE id = $1
	`, siteID)
	return scanSite(row)
}

func (r *PgRepository) CountBookings(ctx context.Context, siteID string) (int, error) {
	id, err := uuid.Parse(siteID)
	if err != nil {
		return 0, ErrSiteNotFound
	}

	var n int
	err = r.db.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE testing_site_id = $1
	`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}
