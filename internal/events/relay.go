package events

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hackgods/covid-test-booking/internal/logging"
)

// Relay moves unpublished events from the outbox to the broker in id
// order. Events are delivered at least once: a crash between publish and
// mark republishes the batch.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	batchSize int
	logger    *zap.Logger
}

func NewRelay(outbox Outbox, publisher Publisher, batchSize int, logger *zap.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		batchSize: batchSize,
		logger:    logging.OrNop(logger),
	}
}

// RoutingKey places every event under booking.*, so BOOKING_CANCELLED is
// sent as booking.cancelled and RAT_KIT_COLLECTED as
// booking.rat_kit_collected.
func RoutingKey(eventType string) string {
	return "booking." + strings.TrimPrefix(strings.ToLower(eventType), "booking_")
}

// RunOnce publishes one batch and returns how many events were published.
// A publish failure stops the batch; events published before it are still
// marked.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := make([]int64, 0, len(events))
	var pubErr error
	for _, ev := range events {
		if err := r.publisher.PublishJSON(ctx, RoutingKey(ev.EventType), ev); err != nil {
			pubErr = fmt.Errorf("publish event %d: %w", ev.ID, err)
			break
		}
		published = append(published, ev.ID)
	}

	if err := r.outbox.MarkPublished(ctx, published); err != nil {
		r.logger.Error("events published but not marked",
			zap.Int("count", len(published)),
			zap.Error(err),
		)
		return 0, err
	}

	if pubErr != nil {
		return len(published), pubErr
	}
	return len(published), nil
}
