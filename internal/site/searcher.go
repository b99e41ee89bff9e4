package site

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Searcher answers site queries on top of a Repository. Results keep the
// repository's order.
type Searcher struct {
	repo Repository
}

func NewSearcher(repo Repository) *Searcher {
	return &Searcher{repo: repo}
}

// SearchBySuburb returns the sites whose suburb equals suburb, ignoring
// case. No match is an empty result, not an error.
func (s *Searcher) SearchBySuburb(ctx context.Context, suburb string) ([]Site, error) {
	if strings.TrimSpace(suburb) == "" {
		return []Site{}, nil
	}

	sites, err := s.repo.ListSitesBySuburb(ctx, suburb)
	if err != nil {
		return nil, fmt.Errorf("search sites: %w", err)
	}
	if sites == nil {
		sites = []Site{}
	}
	return sites, nil
}

func (s *Searcher) Search(ctx context.Context, f Filter) ([]Site, error) {
	all, err := s.repo.ListSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("search sites: %w", err)
	}

	out := make([]Site, 0, len(all))
	for _, site := range all {
		if f.Match(site) {
			out = append(out, site)
		}
	}
	return out, nil
}

// WaitingTime estimates the queue at a site, one hour per booking. An
// unknown site is ErrSiteNotFound.
func (s *Searcher) WaitingTime(ctx context.Context, siteID string) (time.Duration, error) {
	if _, err := s.repo.GetSite(ctx, siteID); err != nil {
		return 0, fmt.Errorf("waiting time: %w", err)
	}

	n, err := s.repo.CountBookings(ctx, siteID)
	if err != nil {
		return 0, fmt.Errorf("waiting time: %w", err)
	}
	return time.Duration(n) * time.Hour, nil
}
