package repo

import (
	"context"

	"immigration/internal/model"

	"gorm.io/gorm"
)

// EventRepository keeps the status history and the audit trail of travel documents.
type EventRepository interface {
	AppendStatusEvent(ctx context.Context, e *model.StatusEvent) error
	// ListStatusEvents returns the history of one document, oldest first.
	ListStatusEvents(ctx context.Context, documentID uint) ([]model.StatusEvent, error)
	AppendAudit(ctx context.Context, e *model.AuditEntry) error
	ListAudit(ctx context.Context, documentID uint) ([]model.AuditEntry, error)
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) AppendStatusEvent(ctx context.Context, e *model.StatusEvent) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *eventRepo) ListStatusEvents(ctx context.Context, documentID uint) ([]model.StatusEvent, error) {
	events := []model.StatusEvent{}
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).
		Order("occurred_at ASC, id ASC").Find(&events).Error
	return events, err
}

func (r *eventRepo) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *eventRepo) ListAudit(ctx context.Context, documentID uint) ([]model.AuditEntry, error) {
	entries := []model.AuditEntry{}
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").Find(&entries).Error
	return entries, err
}
