package dialer

import (
	"errors"
	"fmt"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/telephony"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidJob  = errors.New("dialer: invalid job")
	ErrCircuitOpen = errors.New("dialer: circuit open after consecutive failures")
	ErrBatchLimit  = errors.New("dialer: too many concurrent batches")
)

var validate = validator.New()

type Lead struct {
	LeadID      string `json:"lead_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required,e164"`
}

// Job is one batch of outbound calls sharing a script, pacing delay and assistant.
type Job struct {
	Leads    []Lead `json:"leads" validate:"required,min=1,dive"`
	ScriptID string `json:"script_id,omitempty"`

	// Delay is the pause between two placed calls.
	Delay     time.Duration             `json:"-"`
	Assistant telephony.AssistantConfig `json:"assistant"`
}

// Validate checks the job shape. maxDelay <= 0 means no upper bound.
func (j Job) Validate(maxDelay time.Duration) error {
	if err := validate.Struct(j); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if j.Delay < 0 {
		return fmt.Errorf("%w: delay must not be negative", ErrInvalidJob)
	}
	if maxDelay > 0 && j.Delay > maxDelay {
		return fmt.Errorf("%w: delay %s exceeds max %s", ErrInvalidJob, j.Delay, maxDelay)
	}
	return nil
}

// LeadResult is the outcome of one lead that was not DNC-suppressed.
type LeadResult struct {
	LeadID         string       `json:"lead_id"`
	Success        bool         `json:"success"`
	CallID         string       `json:"call_id,omitempty"`
	ProviderCallID string       `json:"provider_call_id,omitempty"`
	Status         calls.Status `json:"status,omitempty"`
	Error          string       `json:"error,omitempty"`
}

type SkippedLead struct {
	LeadID      string `json:"lead_id"`
	PhoneNumber string `json:"phone_number"`
}

// Result summarizes a batch. Queued and Failed count Results; DNC-suppressed leads
// appear only in Skipped and Filtered.
type Result struct {
	BatchID  string        `json:"batch_id"`
	Results  []LeadResult  `json:"results"`
	Queued   int           `json:"queued"`
	Failed   int           `json:"failed"`
	Filtered int           `json:"filtered"`
	Skipped  []SkippedLead `json:"skipped"`

	// Aborted is set when the context ended before every lead was processed.
	Aborted bool `json:"aborted"`
}
