package triage

import "context"

type RecordStore interface {
	CreateTestRecord(ctx context.Context, rec TestRecord) (*TestRecord, error)
}
