package model

import (
	"encoding/json"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// AuditEvent records a recoverable or unrecoverable failure.
type AuditEvent struct {
	Message   string          `db:"message"`
	Source    string          `db:"source"`
	Severity  Severity        `db:"severity"`
	Details   json.RawMessage `db:"details"`
	RelatedID *string         `db:"related_id"`
	CreatedAt time.Time       `db:"created_at"`
}
