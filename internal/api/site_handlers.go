package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/site"
)

func searchSitesHandler(svc SiteService, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		suburb, rawFilter := q.Get("suburb"), q.Get("filter")

		var (
			sites []site.Site
			err   error
		)
		switch {
		case suburb != "" && rawFilter != "":
			writeError(w, http.StatusBadRequest, "invalid_query", "search by either suburb or filter")
			return
		case suburb != "":
			sites, err = svc.SearchBySuburb(r.Context(), suburb)
		case rawFilter != "":
			f, perr := site.ParseFilter(rawFilter)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "unknown_filter", perr.Error())
				return
			}
			sites, err = svc.Search(r.Context(), f)
		default:
			writeError(w, http.StatusBadRequest, "invalid_query", "suburb or filter is required")
			return
		}
		if err != nil {
			handleSiteError(w, err)
			return
		}

		now := time.Now().In(loc)
		resp := make([]SiteResponse, 0, len(sites))
		for _, s := range sites {
			wait, err := svc.WaitingTime(r.Context(), s.ID)
			if err != nil {
				handleSiteError(w, err)
				return
			}
			resp = append(resp, SiteResponse{
				Site:         s,
				State:        s.State(now),
				WaitingHours: int(wait / time.Hour),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func bookingStatusHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, ok := siteIDParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		pin, bookingID := q.Get("pin"), q.Get("booking_id")

		var (
			l   booking.Lookup
			err error
		)
		switch {
		case pin != "":
			l, err = svc.StatusByPin(r.Context(), pin, siteID)
		case bookingID != "":
			l, err = svc.StatusByID(r.Context(), bookingID, siteID)
		default:
			writeError(w, http.StatusBadRequest, "invalid_query", "pin or booking_id is required")
			return
		}
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, StatusResponse{
			Found:     l.Found,
			BookingID: l.BookingID,
			Status:    string(l.Status),
			Message:   l.Describe(),
		})
	}
}

func notificationsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, ok := siteIDParam(w, r)
		if !ok {
			return
		}

		bookings, err := svc.ModifiedAtSite(r.Context(), siteID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newBookingList(bookings, svc.Location()))
	}
}

func siteIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "siteID")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_site_id", "site id must be a valid UUID")
		return "", false
	}
	return id, true
}

func handleSiteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, site.ErrSiteNotFound):
		writeError(w, http.StatusNotFound, "site_not_found", err.Error())
	case errors.Is(err, site.ErrUnknownFilter):
		writeError(w, http.StatusBadRequest, "unknown_filter", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
