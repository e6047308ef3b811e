package telephony

import (
	"context"
	"errors"
	"fmt"

	"outreach-dialer/internal/calls"
)

var (
	ErrNotConfigured   = errors.New("telephony: provider not configured")
	ErrInvalidPayload  = errors.New("telephony: invalid webhook payload")
	ErrRecordingLookup = errors.New("telephony: recording lookup failed")
)

// Provider defines the vendor-agnostic interface used by the dialer and the webhook transport.
//
// Rules:
// - No vendor SDK calls outside telephony adapters.
// - Request/response types stay vendor-agnostic; statuses are always canonical (calls.Status).
// - HandleWebhook is pure: no I/O, no store access.
type Provider interface {
	Name() string

	// InitiateCall places one outbound call. It returns once the vendor accepted the
	// request; it never waits for the call to be answered.
	InitiateCall(ctx context.Context, req CallRequest) (CallResult, error)

	GetCallStatus(ctx context.Context, providerCallID string) (CallDetails, error)

	// EndCall never returns an error; failures are reported in the result.
	EndCall(ctx context.Context, providerCallID string) EndCallResult

	HandleWebhook(raw []byte) (WebhookEvent, error)

	GetPhoneNumbers(ctx context.Context) ([]PhoneNumber, error)
}

// CallRequest is one outbound call to place.
type CallRequest struct {
	// CallID is the internal call record id, created before the vendor is contacted.
	CallID string `json:"call_id"`
	LeadID string `json:"lead_id"`

	// PhoneNumber is E.164.
	PhoneNumber string `json:"phone_number"`
	ScriptID    string `json:"script_id,omitempty"`

	Assistant AssistantConfig `json:"assistant"`
}

type CallResult struct {
	CallID         string       `json:"call_id"`
	ProviderCallID string       `json:"provider_call_id"`
	Status         calls.Status `json:"status"`
}

// CallDetails is the polled view of a call at the vendor.
type CallDetails struct {
	Status          calls.Status `json:"status"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
	RecordingURL    string       `json:"recording_url,omitempty"`
	Transcript      string       `json:"transcript,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	Cost            *float64     `json:"cost,omitempty"`
}

type EndCallResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type PhoneNumber struct {
	ID           string   `json:"id"`
	Number       string   `json:"number"`
	Capabilities []string `json:"capabilities"`
}

// VendorError is returned when the vendor rejected a request or the transport failed.
// StatusCode is 0 when no HTTP response was received.
type VendorError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *VendorError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("telephony: %s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("telephony: %s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsAuthFailure reports whether the vendor rejected our credentials.
func (e *VendorError) IsAuthFailure() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
