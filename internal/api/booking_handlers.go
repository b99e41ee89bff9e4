package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/covid-test-booking/internal/access"
	"github.com/hackgods/covid-test-booking/internal/booking"
	"github.com/hackgods/covid-test-booking/internal/interview"
	"github.com/hackgods/covid-test-booking/internal/symptom"
)

func createBookingHandler(svc BookingService, catalog *symptom.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if _, err := uuid.Parse(req.CustomerID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
			return
		}
		if _, err := uuid.Parse(req.SiteID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_site_id", "site_id must be a valid UUID")
			return
		}

		claims, _ := ClaimsFromContext(r.Context())
		if !ownsCustomer(claims, req.CustomerID) {
			writeError(w, http.StatusForbidden, "forbidden", "residents may only book for themselves")
			return
		}
		needed := access.Book
		if req.HomeTest {
			needed = access.BookHome
		}
		if !claims.Role.Can(needed) {
			writeError(w, http.StatusForbidden, "forbidden", string(claims.Role)+" may not perform this operation")
			return
		}

		create := booking.CreateRequest{
			CustomerID: req.CustomerID,
			SiteID:     req.SiteID,
			HomeTest:   req.HomeTest,
		}
		if req.StartTime != "" {
			start, err := booking.ParseTimestamp(req.StartTime, svc.Location())
			if err != nil {
				handleBookingError(w, &booking.DateParseError{Input: req.StartTime, Err: err})
				return
			}
			create.StartTime = start
		}
		if req.HomeTest {
			sheet := interview.NewAnswerSheet(map[string]string{interview.KeyRATKit: req.RATKit})
			kit, err := interview.NewEngine(sheet, catalog).AskRATKit(r.Context())
			if err != nil {
				handleInterviewError(w, err)
				return
			}
			create.RATKitRequired = kit
		}

		b, err := svc.Create(r.Context(), create)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newBookingResponse(b, svc.Location()))
	}
}

func describeBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingIDParam(w, r)
		if !ok || !authorizeBooking(w, r, svc, id) {
			return
		}

		summary, err := svc.Describe(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DescribeResponse{Summary: summary})
	}
}

func deleteBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingIDParam(w, r)
		if !ok || !authorizeBooking(w, r, svc, id) {
			return
		}

		if err := svc.Cancel(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}

		b, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newBookingResponse(b, svc.Location()))
	}
}

func modifyBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingIDParam(w, r)
		if !ok {
			return
		}

		var req ModifyBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if !authorizeBooking(w, r, svc, id) {
			return
		}

		mod := booking.ModifyRequest{Selector: booking.IndexSelector(req.SiteIndex)}
		if req.StartTime != nil {
			mod.ChangeTime = true
			mod.NewStartTime = *req.StartTime
		}
		if req.Suburb != nil {
			mod.ChangeVenue = true
			mod.Suburb = *req.Suburb
		}

		res, err := svc.Modify(r.Context(), id, mod)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		status := http.StatusOK
		if res.Modified {
			status = http.StatusCreated
		}
		writeJSON(w, status, ModifyResponse{Modified: res.Modified, NewBookingID: res.NewBookingID})
	}
}

func revertBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingIDParam(w, r)
		if !ok {
			return
		}

		var req RevertBookingRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if _, err := uuid.Parse(req.PastBookingID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_booking_id", "past_booking_id must be a valid UUID")
			return
		}

		if !authorizeBooking(w, r, svc, id) || !authorizeBooking(w, r, svc, req.PastBookingID) {
			return
		}

		b, err := svc.RevertToPrevious(r.Context(), id, req.PastBookingID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, newBookingResponse(b, svc.Location()))
	}
}

func activeBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := chi.URLParam(r, "customerID")
		if _, err := uuid.Parse(customerID); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer id must be a valid UUID")
			return
		}

		claims, _ := ClaimsFromContext(r.Context())
		if !ownsCustomer(claims, customerID) {
			writeError(w, http.StatusForbidden, "forbidden", "residents may only view their own bookings")
			return
		}

		bookings, err := svc.ActiveBookings(r.Context(), customerID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newBookingList(bookings, svc.Location()))
	}
}

func collectRATKitHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, ok := siteIDParam(w, r)
		if !ok {
			return
		}

		var req CollectRATKitRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := svc.CollectRATKit(r.Context(), siteID, req.QRCode)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, newBookingResponse(b, svc.Location()))
	}
}

func bookingIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
		return "", false
	}
	return id, true
}

// ownsCustomer is true for staff, and for a resident acting on their own
// customer record.
func ownsCustomer(claims *access.Claims, customerID string) bool {
	if claims == nil {
		return false
	}
	return claims.Role != access.Resident || claims.UserID() == customerID
}

// authorizeBooking loads the booking for residents and refuses bookings
// that belong to another customer. It writes the response on refusal.
func authorizeBooking(w http.ResponseWriter, r *http.Request, svc BookingService, id string) bool {
	claims, _ := ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token", "request is not authenticated")
		return false
	}
	if claims.Role != access.Resident {
		return true
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	b, err := svc.Get(ctx, id)
	if err != nil {
		handleBookingError(w, err)
		return false
	}
	if b.Customer.ID != claims.UserID() {
		// Reported as missing so ids of other customers are not confirmed.
		writeError(w, http.StatusNotFound, "booking_not_found", booking.ErrBookingNotFound.Error())
		return false
	}
	return true
}

func handleBookingError(w http.ResponseWriter, err error) {
	var dateErr *booking.DateParseError
	switch {
	case errors.As(err, &dateErr):
		writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrNoSitesFound):
		writeError(w, http.StatusNotFound, "no_sites_found", err.Error())
	case errors.Is(err, booking.ErrInvalidQRCode):
		writeError(w, http.StatusNotFound, "invalid_qr_code", err.Error())
	case errors.Is(err, booking.ErrInvalidSelection):
		writeError(w, http.StatusBadRequest, "invalid_selection", err.Error())
	case errors.Is(err, booking.ErrBookingLapsed):
		writeError(w, http.StatusConflict, "booking_lapsed", err.Error())
	case errors.Is(err, booking.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "booking_completed", err.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "booking_cancelled", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrRATKitNotRequired):
		writeError(w, http.StatusConflict, "rat_kit_not_required", err.Error())
	case errors.Is(err, booking.ErrRATKitAlreadyCollected):
		writeError(w, http.StatusConflict, "rat_kit_already_collected", err.Error())
	case errors.Is(err, booking.ErrBookingBusy):
		writeError(w, http.StatusConflict, "booking_busy", "booking is being changed, please retry shortly")
	case errors.Is(err, booking.ErrBookingNotMade):
		writeError(w, http.StatusUnprocessableEntity, "booking_not_made", err.Error())
	case errors.Is(err, booking.ErrPartialModification):
		writeError(w, http.StatusInternalServerError, "partial_modification", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleInterviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrMissingAnswer):
		writeError(w, http.StatusBadRequest, "missing_answer", err.Error())
	case errors.Is(err, interview.ErrAnswerRejected):
		writeError(w, http.StatusBadRequest, "invalid_answer", err.Error())
	case errors.Is(err, interview.ErrInterviewAborted):
		writeError(w, http.StatusUnprocessableEntity, "interview_not_submitted", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
