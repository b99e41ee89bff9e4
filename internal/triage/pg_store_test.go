package triage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgRecordStoreCreateTestRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	patientID, bookingID := uuid.New(), uuid.New()
	created := time.Date(2022, 5, 12, 9, 31, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO covid_tests").
		WithArgs(pgxmock.AnyArg(), "RAT", patientID, "hw-7", bookingID, ResultPending, StatusNotInitiated, "Test type recommended").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	rec, err := NewPgRecordStore(mock).CreateTestRecord(context.Background(), TestRecord{
		PatientID:      patientID.String(),
		AdministererID: "hw-7",
		BookingID:      bookingID.String(),
		Type:           TestRAT,
		Result:         ResultPending,
		Status:         StatusNotInitiated,
		Notes:          "Test type recommended",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, created, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRecordStoreRejectsBadIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPgRecordStore(mock).CreateTestRecord(context.Background(), TestRecord{PatientID: "c-1", BookingID: uuid.NewString()})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
