package telephony

import (
	"errors"
	"testing"

	"outreach-dialer/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapters_ImplementProvider(t *testing.T) {
	var _ Provider = (*TwilioProvider)(nil)
	var _ Provider = (*VapiProvider)(nil)
	var _ Provider = (*MockProvider)(nil)
}

func TestNew_SelectsAdapter(t *testing.T) {
	for name, want := range map[string]string{"twilio": "twilio", "VAPI": "vapi", "mock": "mock", "": "mock"} {
		p, err := New(Settings{Provider: name}, nil)
		require.NoError(t, err)
		assert.Equal(t, want, p.Name())
	}

	_, err := New(Settings{Provider: "plivo"}, nil)
	require.Error(t, err)
}

func TestVendorError(t *testing.T) {
	err := error(&VendorError{Provider: "twilio", StatusCode: 401, Message: "bad creds"})
	var ve *VendorError
	require.True(t, errors.As(err, &ve))
	assert.True(t, ve.IsAuthFailure())
	assert.Contains(t, err.Error(), "status 401")

	assert.Equal(t, "telephony: vapi: dial tcp: refused", (&VendorError{Provider: "vapi", Message: "dial tcp: refused"}).Error())
}

func TestPatchFromEvent_DropsUnknownStatus(t *testing.T) {
	p := PatchFromEvent(WebhookEvent{
		ProviderCallID: "CA1",
		Status:         calls.StatusUnknown,
		Metadata:       map[string]string{MetaAnsweredBy: "human"},
	})
	assert.Nil(t, p.Status)
	require.NotNil(t, p.AnsweredBy)
	assert.Equal(t, "human", *p.AnsweredBy)
}

func TestPatchFromEvent_CarriesMetadata(t *testing.T) {
	cost := 0.12
	p := PatchFromEvent(WebhookEvent{
		ProviderCallID:  "c1",
		Status:          calls.StatusCompleted,
		DurationSeconds: intPtr(42),
		Summary:         "booked",
		Cost:            &cost,
	})
	require.NotNil(t, p.Status)
	assert.Equal(t, calls.StatusCompleted, *p.Status)
	assert.Equal(t, 42, *p.DurationSeconds)
	assert.Equal(t, "booked", *p.Summary)
	assert.Nil(t, p.RecordingURL)
	assert.Nil(t, p.EndedReason)
}

func TestDecodeAssistantConfig(t *testing.T) {
	cfg, err := DecodeAssistantConfig(map[string]any{
		"firstMessage":              "Hi!",
		"temperature":               "0.4",
		"maxDurationSeconds":        300.0,
		"endCallPhrases":            []any{"goodbye"},
		"answeringMachineDetection": false,
		"somethingElse":             "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", cfg.FirstMessage)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.4, *cfg.Temperature, 1e-9)
	assert.Equal(t, 300, cfg.MaxDurationSeconds)
	assert.Equal(t, []string{"goodbye"}, cfg.EndCallPhrases)
	assert.False(t, cfg.amdEnabled())
	assert.True(t, cfg.recordEnabled())

	empty, err := DecodeAssistantConfig(nil)
	require.NoError(t, err)
	assert.True(t, empty.amdEnabled())
}
