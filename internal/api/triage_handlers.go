package api

import (
	"errors"
	"net/http"

	"github.com/hackgods/covid-test-booking/internal/interview"
	"github.com/hackgods/covid-test-booking/internal/symptom"
	"github.com/hackgods/covid-test-booking/internal/triage"
)

// triageHandler replays the health worker's interview answers through the
// interview engine and records the recommended test for the booking
// holding the pin.
func triageHandler(svc TriageService, catalog *symptom.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		siteID, ok := siteIDParam(w, r)
		if !ok {
			return
		}

		var req TriageRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Pin == "" {
			writeError(w, http.StatusBadRequest, "invalid_pin", "pin is required")
			return
		}

		sheet := interview.NewAnswerSheet(req.Answers)
		assessment, err := interview.NewEngine(sheet, catalog).Conduct(r.Context())
		if err != nil {
			handleInterviewError(w, err)
			return
		}

		claims, _ := ClaimsFromContext(r.Context())
		rec, err := svc.Recommend(r.Context(), triage.RecommendRequest{
			SiteID:         siteID,
			Pin:            req.Pin,
			AdministererID: claims.UserID(),
			Assessment:     assessment,
		})
		if err != nil {
			handleTriageError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, TriageResponse{
			TestType:  rec.TestType,
			Message:   rec.Message(),
			TestID:    rec.Record.ID,
			BookingID: rec.Record.BookingID,
		})
	}
}

func handleTriageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, triage.ErrInvalidPin):
		writeError(w, http.StatusNotFound, "invalid_pin", "Invalid Pin")
	default:
		handleBookingError(w, err)
	}
}
