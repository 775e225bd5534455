package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies an audit event.
type EventKind string

const (
	EventAuthSuccess     EventKind = "auth_success"
	EventAuthFailure     EventKind = "auth_failure"
	EventPermissionCheck EventKind = "permission_check"
	EventDataAccess      EventKind = "data_access"
)

// Outcome of an audited operation.
type Outcome string

const (
	OutcomeAllowed Outcome = "allowed"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
	OutcomeOK      Outcome = "ok"
)

// AuditEvent is one append-only audit record. KeyID is the truncated key
// identity; full keys are never persisted.
type AuditEvent struct {
	ID         uuid.UUID         `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	KeyName    string            `json:"key_name"`
	KeyID      string            `json:"key_id"`
	Kind       EventKind         `json:"event_kind"`
	Endpoint   string            `json:"endpoint"`
	ClientIP   string            `json:"client_ip"`
	Params     map[string]string `json:"params,omitempty"`
	Outcome    Outcome           `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	DurationMs float64           `json:"duration_ms,omitempty"`
	RowCount   int64             `json:"row_count,omitempty"`
}

// AuditSink accepts audit events. Submit must never block request handling:
// implementations buffer internally and drop on overflow rather than
// back-pressure the caller. A failed write is an internal condition, logged
// and swallowed.
type AuditSink interface {
	Submit(ctx context.Context, event AuditEvent)
}

// NewAuditEvent fills the common identity fields.
func NewAuditEvent(kind EventKind, keyName, keyID, endpoint, clientIP string) AuditEvent {
	return AuditEvent{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		KeyName:   keyName,
		KeyID:     keyID,
		Kind:      kind,
		Endpoint:  endpoint,
		ClientIP:  clientIP,
	}
}
