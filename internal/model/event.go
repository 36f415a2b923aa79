package model

import (
	"time"

	"gorm.io/datatypes"
)

// StatusEvent is one persisted status change of a travel document. Rows
// outlive the document so the history survives deletion.
type StatusEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DocumentID     uint      `gorm:"not null;index" json:"document_id"`
	DocumentNumber string    `gorm:"size:50" json:"document_number"`
	OldStatus      Status    `gorm:"size:10" json:"old_status"`
	NewStatus      Status    `gorm:"size:10;not null" json:"new_status"`
	Actor          string    `gorm:"size:150" json:"user,omitempty"`
	OccurredAt     time.Time `gorm:"not null;index" json:"timestamp"`
}

// Audit actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionApprove = "approve"
	ActionPrint   = "print"
	ActionDelete  = "delete"
)

// AuditEntry records a mutation of a travel document.
type AuditEntry struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	DocumentID     uint              `gorm:"not null;index" json:"document_id"`
	DocumentNumber string            `gorm:"size:50" json:"document_number"`
	Action         string            `gorm:"size:20;not null" json:"action"`
	Actor          string            `gorm:"size:150" json:"user"`
	Changes        datatypes.JSONMap `json:"changes"`
	CreatedAt      time.Time         `gorm:"autoCreateTime;index" json:"timestamp"`
}
