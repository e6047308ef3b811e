package telephony

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"outreach-dialer/internal/calls"
)

// Twilio posts application/x-www-form-urlencoded callbacks. The same parser handles
// status, recording and async AMD callbacks; absent fields stay empty.
// Ref: https://www.twilio.com/docs/voice/api/call-resource#statuscallback

// ParseTwilioWebhook normalizes a Twilio callback body. It fails only when the body
// cannot be decoded as a form.
func ParseTwilioWebhook(raw []byte) (WebhookEvent, error) {
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	callStatus := strings.TrimSpace(form.Get("CallStatus"))
	ev := WebhookEvent{
		ProviderCallID: strings.TrimSpace(form.Get("CallSid")),
		Status:         mapTwilioStatus(callStatus),
		Metadata:       map[string]string{},
	}

	if v := form.Get("CallDuration"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ev.DurationSeconds = intPtr(n)
		}
	}
	if v := form.Get("RecordingUrl"); v != "" {
		ev.RecordingURL = v
		if !strings.HasSuffix(v, ".mp3") {
			ev.RecordingURL = v + ".mp3"
		}
		ev.Metadata["event"] = "recording"
		// The call length wins when both are present.
		if ev.DurationSeconds == nil {
			if n, err := strconv.Atoi(form.Get("RecordingDuration")); err == nil {
				ev.DurationSeconds = intPtr(n)
			}
		}
	}
	if v := form.Get("AnsweredBy"); v != "" {
		ev.Metadata[MetaAnsweredBy] = v
		ev.Metadata["event"] = "amd"
	}
	if callStatus != "" {
		ev.Metadata["call_status"] = callStatus
		if _, ok := ev.Metadata["event"]; !ok {
			ev.Metadata["event"] = "status"
		}
	}

	switch ev.Status {
	case calls.StatusBusy, calls.StatusNoAnswer, calls.StatusFailed:
		ev.EndedReason = string(ev.Status)
	}
	return ev, nil
}
