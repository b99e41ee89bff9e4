package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/covid-test-booking/internal/db"
)

type PgRecordStore struct {
	db db.DBTX
}

func NewPgRecordStore(conn db.DBTX) *PgRecordStore {
	return &PgRecordStore{db: conn}
}

func (s *PgRecordStore) CreateTestRecord(ctx context.Context, rec TestRecord) (*TestRecord, error) {
	patientID, err := uuid.Parse(rec.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient id %q: %w", rec.PatientID, err)
	}
	bookingID, err := uuid.Parse(rec.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking id %q: %w", rec.BookingID, err)
	}

	id := uuid.New()
	out := rec
	out.ID = id.String()

	err = s.db.QueryRow(ctx, `
		INSERT INTO covid_tests (id, type, patient_id, administerer_id, booking_id, result, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`, id, string(rec.Type), patientID, rec.AdministererID, bookingID, rec.Result, rec.Status, rec.Notes).Scan(&out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert covid test: %w", err)
	}

	return &out, nil
}
