// Package events relays the booking event log to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hackgods/covid-test-booking/internal/db"
)

// Event is one row of the event log as published.
type Event struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	BookingID string          `json:"booking_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

type PgOutbox struct {
	db db.DBTX
}

func NewPgOutbox(conn db.DBTX) *PgOutbox {
	return &PgOutbox{db: conn}
}

func (o *PgOutbox) FetchUnpublished(ctx context.Context, limit int) ([]Event, error) {
	rows, err := o.db.Query(ctx, `
		SELECT id, event_type, coalesce(booking_id::text, ''), coalesce(payload, 'null'::jsonb), created_at
		FROM event_logs
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.BookingID, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Payload = payload
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (o *PgOutbox) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := o.db.Exec(ctx, `
		UPDATE event_logs
		SET published_at = now()
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("mark events published: %w", err)
	}
	return nil
}
