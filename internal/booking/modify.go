package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hackgods/covid-test-booking/internal/site"
)

// SiteSelector picks one of the sites offered for a venue change and
// returns its 1-based position.
type SiteSelector interface {
	SelectSite(ctx context.Context, sites []site.Site) (int, error)
}

// IndexSelector is a selection made up front, e.g. from a request body.
type IndexSelector int

func (i IndexSelector) SelectSite(context.Context, []site.Site) (int, error) {
	return int(i), nil
}

type ModifyRequest struct {
	ChangeTime   bool
	NewStartTime string // yyyy-MM-dd HH:mm:ss in the manager's zone
	ChangeVenue  bool
	Suburb       string
	Selector     SiteSelector
}

type ModifyResult struct {
	Modified     bool
	NewBookingID string
}

// Modify moves a booking to a new time, a new site or both. The change is
// a two step saga under the booking lock: a new booking carrying the
// changes is created, then the original is cancelled. If the cancel fails
// the new booking stays and ErrPartialModification is returned together
// with its id.
func (m *Manager) Modify(ctx context.Context, id string, req ModifyRequest) (*ModifyResult, error) {
	ctx, span := tracer.Start(ctx, "booking.Modify", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.Bool("booking.change_time", req.ChangeTime),
		attribute.Bool("booking.change_venue", req.ChangeVenue),
	))
	defer span.End()

	res, err := m.modify(ctx, id, req)
	m.finish(span, "modify", err)
	return res, err
}

// ChangeTime moves a booking to raw, a yyyy-MM-dd HH:mm:ss time.
func (m *Manager) ChangeTime(ctx context.Context, id, raw string) (*ModifyResult, error) {
	return m.Modify(ctx, id, ModifyRequest{ChangeTime: true, NewStartTime: raw})
}

// ChangeVenue moves a booking to a site in suburb picked by sel.
func (m *Manager) ChangeVenue(ctx context.Context, id, suburb string, sel SiteSelector) (*ModifyResult, error) {
	return m.Modify(ctx, id, ModifyRequest{ChangeVenue: true, Suburb: suburb, Selector: sel})
}

func (m *Manager) modify(ctx context.Context, id string, req ModifyRequest) (*ModifyResult, error) {
	b, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.guardMutable(b); err != nil {
		return nil, err
	}
	if !req.ChangeTime && !req.ChangeVenue {
		return &ModifyResult{}, nil
	}

	start := b.StartTime
	if req.ChangeTime {
		start, err = m.parseStartTime(req.NewStartTime)
		if err != nil {
			return nil, err
		}
	}

	siteID := b.TestingSite.ID
	if req.ChangeVenue {
		siteID, err = m.selectSite(ctx, req.Suburb, req.Selector)
		if err != nil {
			return nil, err
		}
	}

	var res *ModifyResult
	err = m.withLock(ctx, id, func(lockCtx context.Context) error {
		// Re-check under the lock; another caller may have changed it.
		current, err := m.load(lockCtx, id)
		if err != nil {
			return err
		}
		if err := m.guardMutable(current); err != nil {
			return err
		}

		info := current.AdditionalInfo
		info.Modified = true

		newID, err := m.store.CreateBooking(lockCtx, NewBooking{
			CustomerID:     current.Customer.ID,
			SiteID:         siteID,
			StartTime:      start,
			Status:         StatusInitiated,
			AdditionalInfo: info,
		})
		if err != nil {
			if errors.Is(err, ErrWriteRejected) {
				return fmt.Errorf("%w: %w", ErrBookingNotMade, err)
			}
			return fmt.Errorf("create modified booking: %w", err)
		}
		res = &ModifyResult{Modified: true, NewBookingID: newID}

		m.logEvent(lockCtx, newID, EventBookingModified, map[string]any{
			"replaces":   current.ID,
			"site_id":    siteID,
			"start_time": FormatTimestamp(start, m.loc),
		})

		if err := m.cancel(lockCtx, current); err != nil {
			return fmt.Errorf("%w: booking %s created but %s is still active: %w",
				ErrPartialModification, newID, current.ID, err)
		}
		return nil
	})
	return res, err
}

func (m *Manager) parseStartTime(raw string) (time.Time, error) {
	t, err := ParseTimestamp(strings.TrimSpace(raw), m.loc)
	if err != nil {
		return time.Time{}, &DateParseError{Input: raw, Err: err}
	}
	return t, nil
}

func (m *Manager) selectSite(ctx context.Context, suburb string, sel SiteSelector) (string, error) {
	sites, err := m.sites.SearchBySuburb(ctx, suburb)
	if err != nil {
		return "", fmt.Errorf("search sites: %w", err)
	}
	if len(sites) == 0 {
		return "", ErrNoSitesFound
	}
	if sel == nil {
		return "", ErrInvalidSelection
	}

	n, err := sel.SelectSite(ctx, sites)
	if err != nil {
		return "", fmt.Errorf("select site: %w", err)
	}
	if n < 1 || n > len(sites) {
		return "", fmt.Errorf("%w: %d of %d", ErrInvalidSelection, n, len(sites))
	}
	return sites[n-1].ID, nil
}

// RevertToPrevious cancels the current booking and books again with the
// customer, site and time of a past booking. The past booking itself is
// never changed. If the new booking cannot be made after the cancel,
// ErrPartialModification is returned.
func (m *Manager) RevertToPrevious(ctx context.Context, currentID, pastID string) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.RevertToPrevious", trace.WithAttributes(
		attribute.String("booking.id", currentID),
		attribute.String("booking.past_id", pastID),
	))
	defer span.End()

	b, err := m.revert(ctx, currentID, pastID)
	m.finish(span, "revert", err)
	return b, err
}

func (m *Manager) revert(ctx context.Context, currentID, pastID string) (*Booking, error) {
	past, err := m.load(ctx, pastID)
	if err != nil {
		return nil, err
	}

	var newID string
	err = m.withLock(ctx, currentID, func(lockCtx context.Context) error {
		current, err := m.load(lockCtx, currentID)
		if err != nil {
			return err
		}
		if err := m.guardRevert(current, past); err != nil {
			return err
		}

		if err := m.cancel(lockCtx, current); err != nil {
			return err
		}

		newID, err = m.store.CreateBooking(lockCtx, NewBooking{
			CustomerID:     past.Customer.ID,
			SiteID:         past.TestingSite.ID,
			StartTime:      past.StartTime,
			Status:         StatusInitiated,
			Notes:          "",
			AdditionalInfo: AdditionalInfo{Modified: true},
		})
		if err != nil {
			return fmt.Errorf("%w: %s cancelled but the past booking could not be restored: %w",
				ErrPartialModification, current.ID, err)
		}

		m.logEvent(lockCtx, newID, EventBookingReverted, map[string]any{
			"cancelled": current.ID,
			"restored":  past.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	restored, err := m.store.GetBooking(ctx, newID)
	if err != nil {
		return nil, fmt.Errorf("load restored booking: %w", err)
	}
	return restored, nil
}

// guardRevert refuses when either booking is completed or lapsed. A
// cancelled past booking may be restored; a cancelled current one may not
// be cancelled again.
func (m *Manager) guardRevert(current, past *Booking) error {
	switch {
	case current.Status == StatusCompleted, past.Status == StatusCompleted:
		return ErrAlreadyCompleted
	case m.lapsed(current), m.lapsed(past):
		return ErrBookingLapsed
	case current.Status == StatusCancelled:
		return ErrAlreadyCancelled
	}
	return nil
}
