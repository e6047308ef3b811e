package telephony

import "outreach-dialer/internal/calls"

// WebhookEvent is a vendor webhook reduced to the canonical vocabulary.
// Absent fields are nil/empty and never clear existing call data.
type WebhookEvent struct {
	ProviderCallID  string       `json:"provider_call_id"`
	Status          calls.Status `json:"status"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
	RecordingURL    string       `json:"recording_url,omitempty"`
	Transcript      string       `json:"transcript,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	EndedReason     string       `json:"ended_reason,omitempty"`
	Cost            *float64     `json:"cost,omitempty"`

	// Metadata carries vendor extras worth keeping (event type, answered_by, lead id).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MetaAnsweredBy is the Metadata key holding the answering-machine-detection verdict.
const MetaAnsweredBy = "answered_by"

// PatchFromEvent converts a normalized event into a store patch.
// StatusUnknown is dropped so it never overwrites a known status.
func PatchFromEvent(ev WebhookEvent) calls.Patch {
	p := calls.Patch{
		DurationSeconds: ev.DurationSeconds,
		RecordingURL:    calls.StringPtr(ev.RecordingURL),
		Transcript:      calls.StringPtr(ev.Transcript),
		Summary:         calls.StringPtr(ev.Summary),
		EndedReason:     calls.StringPtr(ev.EndedReason),
		Cost:            ev.Cost,
		AnsweredBy:      calls.StringPtr(ev.Metadata[MetaAnsweredBy]),
	}
	if ev.Status.IsKnown() {
		p.Status = calls.StatusPtr(ev.Status)
	}
	return p
}

// PatchFromDetails converts polled call details into a store patch.
func PatchFromDetails(d CallDetails) calls.Patch {
	p := calls.Patch{
		DurationSeconds: d.DurationSeconds,
		RecordingURL:    calls.StringPtr(d.RecordingURL),
		Transcript:      calls.StringPtr(d.Transcript),
		Summary:         calls.StringPtr(d.Summary),
		Cost:            d.Cost,
	}
	if d.Status.IsKnown() {
		p.Status = calls.StatusPtr(d.Status)
	}
	return p
}

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }
