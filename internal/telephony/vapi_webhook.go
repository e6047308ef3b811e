package telephony

import (
	"encoding/json"
	"fmt"

	"outreach-dialer/internal/calls"
)

// Vapi server messages arrive as {"message": {"type": ..., ...}}.
// Only the fields we normalize are decoded; everything else is ignored. A field with an
// unexpected JSON type is dropped rather than failing the whole message.
type vapiWebhook struct {
	Message json.RawMessage `json:"message"`
}

type vapiServerMessage struct {
	Type            looseString     `json:"type"`
	Status          looseString     `json:"status"`
	EndedReason     looseString     `json:"endedReason"`
	DurationSeconds looseNumber     `json:"durationSeconds"`
	Cost            looseNumber     `json:"cost"`
	RecordingURL    looseString     `json:"recordingUrl"`
	Transcript      looseString     `json:"transcript"`
	Summary         looseString     `json:"summary"`
	Artifact        json.RawMessage `json:"artifact"`
	Analysis        json.RawMessage `json:"analysis"`
	Call            json.RawMessage `json:"call"`
}

type vapiWebhookCall struct {
	ID       looseString     `json:"id"`
	Duration looseNumber     `json:"duration"`
	Metadata json.RawMessage `json:"metadata"`
}

type vapiWebhookArtifact struct {
	RecordingURL looseString `json:"recordingUrl"`
	Transcript   looseString `json:"transcript"`
}

type vapiWebhookAnalysis struct {
	Summary looseString `json:"summary"`
}

// looseString keeps JSON strings and ignores any other type.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	var v string
	if json.Unmarshal(b, &v) == nil {
		*s = looseString(v)
	}
	return nil
}

// looseNumber keeps JSON numbers and numeric strings; anything else leaves it unset.
type looseNumber struct {
	val float64
	ok  bool
}

func (n *looseNumber) UnmarshalJSON(b []byte) error {
	var num json.Number
	if json.Unmarshal(b, &num) != nil {
		return nil
	}
	if f, err := num.Float64(); err == nil {
		n.val, n.ok = f, true
	}
	return nil
}

func (n looseNumber) ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.val
	return &v
}

// decodeLoose reports whether raw held a value that decoded into v.
func decodeLoose(raw json.RawMessage, v any) bool {
	return len(raw) > 0 && json.Unmarshal(raw, v) == nil
}

// ParseVapiWebhook normalizes a Vapi server message. It fails only on JSON that is
// malformed or is not an object.
func ParseVapiWebhook(raw []byte) (WebhookEvent, error) {
	var in vapiWebhook
	if err := json.Unmarshal(raw, &in); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	var m vapiServerMessage
	decodeLoose(in.Message, &m)

	ev := WebhookEvent{
		Status:   calls.StatusUnknown,
		Metadata: map[string]string{},
	}
	if m.Type != "" {
		ev.Metadata["event"] = string(m.Type)
	}

	var call vapiWebhookCall
	if decodeLoose(m.Call, &call) {
		ev.ProviderCallID = string(call.ID)
		var meta map[string]any
		if decodeLoose(call.Metadata, &meta) {
			for _, k := range []string{"callId", "leadId", "scriptId"} {
				if v, ok := meta[k].(string); ok && v != "" {
					ev.Metadata[k] = v
				}
			}
		}
	}

	switch m.Type {
	case "call-started", "speech-update", "transcript", "tool-calls":
		ev.Status = calls.StatusInProgress
	case "end-of-call-report":
		ev.Status = calls.StatusCompleted
		fillVapiReport(&ev, m, call)
	case "hang":
		ev.Status = calls.StatusCompleted
		ev.EndedReason = string(m.EndedReason)
	case "call-failed":
		ev.Status = calls.StatusFailed
		ev.EndedReason = firstNonEmpty(string(m.EndedReason), "call-failed")
	case "status-update":
		ev.Status = mapVapiStatus(string(m.Status), string(m.EndedReason))
		if m.Status == "ended" {
			ev.EndedReason = string(m.EndedReason)
		}
	}
	return ev, nil
}

func fillVapiReport(ev *WebhookEvent, m vapiServerMessage, call vapiWebhookCall) {
	ev.DurationSeconds = secondsPtr(m.DurationSeconds.ptr())
	if ev.DurationSeconds == nil {
		ev.DurationSeconds = secondsPtr(call.Duration.ptr())
	}
	ev.EndedReason = string(m.EndedReason)
	ev.Cost = m.Cost.ptr()
	ev.RecordingURL = string(m.RecordingURL)
	ev.Transcript = string(m.Transcript)
	ev.Summary = string(m.Summary)

	var artifact vapiWebhookArtifact
	if decodeLoose(m.Artifact, &artifact) {
		ev.RecordingURL = firstNonEmpty(ev.RecordingURL, string(artifact.RecordingURL))
		ev.Transcript = firstNonEmpty(ev.Transcript, string(artifact.Transcript))
	}
	var analysis vapiWebhookAnalysis
	if decodeLoose(m.Analysis, &analysis) {
		ev.Summary = firstNonEmpty(ev.Summary, string(analysis.Summary))
	}
}
