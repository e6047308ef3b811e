package audit

import "time"

// Event is an immutable, append-only audit log record of dialing decisions.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit is best-effort; never block a batch on audit failures.
//
// Storage (Postgres): table audit_events with an INSERT-only policy.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the category of the audit record.
	Type EventType `json:"type" db:"type"`

	// Target identifiers (optional, depending on the event type).
	BatchID     string `json:"batch_id,omitempty" db:"batch_id"`
	LeadID      string `json:"lead_id,omitempty" db:"lead_id"`
	CallID      string `json:"call_id,omitempty" db:"call_id"`
	PhoneNumber string `json:"phone_number,omitempty" db:"phone_number"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeDNCSuppressed  EventType = "dnc_suppressed"
	EventTypeCallFailed     EventType = "call_failed"
	EventTypeBatchCompleted EventType = "batch_completed"
)
