package notify

import (
	"context"

	"immigration/internal/model"
	"immigration/internal/repo"
)

// DBSink persists changes as StatusEvent rows, which back the history endpoint.
type DBSink struct {
	events repo.EventRepository
}

func NewDBSink(events repo.EventRepository) *DBSink {
	return &DBSink{events: events}
}

func (s *DBSink) Publish(ctx context.Context, c StatusChange) error {
	return s.events.AppendStatusEvent(ctx, &model.StatusEvent{
		DocumentID:     c.DocumentID,
		DocumentNumber: c.DocumentNumber,
		OldStatus:      c.OldStatus,
		NewStatus:      c.NewStatus,
		Actor:          c.Actor,
		OccurredAt:     c.Timestamp.UTC(),
	})
}
