package calls

import "time"

// Call represents a single outbound (or inbound) phone interaction with a lead.
//
// ID is owned by the Store and exists before the provider call is placed.
// ProviderCallID stays empty until the provider accepted the call.
//
// NOTE: Provider-specific payloads never land here. Adapters map vendor data onto
// the canonical Status and the optional metadata fields below.
type Call struct {
	ID       string `json:"id" db:"id"`
	LeadID   string `json:"lead_id" db:"lead_id"`
	ScriptID string `json:"script_id,omitempty" db:"script_id"`
	BatchID  string `json:"batch_id,omitempty" db:"batch_id"`

	Provider       string `json:"provider" db:"provider"`
	PhoneNumber    string `json:"phone_number" db:"phone_number"`
	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`

	Status Status `json:"status" db:"status"`

	// Filled by terminal webhooks or polling.
	DurationSeconds *int     `json:"duration_seconds,omitempty" db:"duration_seconds"`
	RecordingURL    string   `json:"recording_url,omitempty" db:"recording_url"`
	Transcript      string   `json:"transcript,omitempty" db:"transcript"`
	Summary         string   `json:"summary,omitempty" db:"summary"`
	Cost            *float64 `json:"cost,omitempty" db:"cost"`
	EndedReason     string   `json:"ended_reason,omitempty" db:"ended_reason"`

	// AnsweredBy is the answering-machine-detection verdict, when the provider reports one.
	AnsweredBy string `json:"answered_by,omitempty" db:"answered_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Status is the canonical call status. Every adapter maps its vendor vocabulary onto
// exactly this set.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRinging    Status = "ringing"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBusy       Status = "busy"
	StatusNoAnswer   Status = "no-answer"
	StatusUnknown    Status = "unknown"
)

// Statuses lists the canonical vocabulary in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusQueued,
		StatusRinging,
		StatusInProgress,
		StatusCompleted,
		StatusFailed,
		StatusBusy,
		StatusNoAnswer,
		StatusUnknown,
	}
}

// IsTerminal reports whether no further status change is valid.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// IsKnown reports whether s belongs to the canonical set and is not StatusUnknown.
func (s Status) IsKnown() bool {
	switch s {
	case StatusQueued, StatusRinging, StatusInProgress, StatusCompleted, StatusFailed, StatusBusy, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// ParseStatus maps a canonical string onto Status, falling back to StatusUnknown.
func ParseStatus(v string) Status {
	s := Status(v)
	if s.IsKnown() {
		return s
	}
	return StatusUnknown
}
