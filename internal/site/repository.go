package site

import "context"

type Repository interface {
	ListSites(ctx context.Context) ([]Site, error)
	ListSitesBySuburb(ctx context.Context, suburb string) ([]Site, error)
	GetSite(ctx context.Context, id string) (*Site, error)
	CountBookings(ctx context.Context, siteID string) (int, error)
}
