// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Audit event kinds. Structural mutations and record writes each emit
// one event so downstream consumers can reconstruct who changed what
// without querying the primary database.
const (
	EventTypeCreated       = "type.created"
	EventTypeDeleted       = "type.deleted"
	EventFieldAdded        = "field.added"
	EventFieldRemoved      = "field.removed"
	EventRecordCreated     = "record.created"
	EventRecordUpdated     = "record.updated"
	EventRecordDeleted     = "record.deleted"
	EventPermissionGranted = "permission.granted"
	EventPermissionRevoked = "permission.revoked"
)

// AuditEvent is published for every catalog or record mutation.
type AuditEvent struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	UserID     int64  `json:"user_id"`
	DataTypeID int64  `json:"data_type_id,omitempty"`
	RecordID   int64  `json:"record_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewAuditEvent stamps a fresh event with a unique id and the current
// time.
func NewAuditEvent(kind string, userID int64) AuditEvent {
	return AuditEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
