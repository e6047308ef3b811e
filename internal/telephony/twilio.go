package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"

	"outreach-dialer/internal/calls"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	twilioName = "twilio"

	twilioRecordingBaseURL = "https://api.twilio.com/2010-04-01/Accounts"
)

// twilioAPI is the subset of the Twilio REST API the adapter depends on.
// *api.ApiService satisfies it; tests provide a fake.
type twilioAPI interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
	FetchCall(sid string, params *api.FetchCallParams) (*api.ApiV2010Call, error)
	UpdateCall(sid string, params *api.UpdateCallParams) (*api.ApiV2010Call, error)
	ListRecording(params *api.ListRecordingParams) ([]api.ApiV2010Recording, error)
	ListIncomingPhoneNumber(params *api.ListIncomingPhoneNumberParams) ([]api.ApiV2010IncomingPhoneNumber, error)
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string

	// PublicBaseURL is where Twilio reaches our webhooks, e.g. https://dialer.example.com.
	PublicBaseURL string
}

// TwilioProvider places calls through the Twilio Programmable Voice REST API.
//
// Call control happens over TwiML: the voice URL points back at /webhooks/twilio/voice,
// and status/recording/AMD callbacks land on the sibling webhook routes.
type TwilioProvider struct {
	cfg TwilioConfig
	api twilioAPI
	log *slog.Logger
}

func NewTwilioProvider(cfg TwilioConfig, log *slog.Logger) *TwilioProvider {
	p := &TwilioProvider{cfg: cfg, log: log}
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		p.api = rest.Api
	}
	return p
}

func newTwilioProviderWithAPI(cfg TwilioConfig, a twilioAPI, log *slog.Logger) *TwilioProvider {
	return &TwilioProvider{cfg: cfg, api: a, log: log}
}

func (p *TwilioProvider) Name() string { return twilioName }

func (p *TwilioProvider) logger() *slog.Logger {
	if p.log == nil {
		return slog.Default()
	}
	return p.log
}

func (p *TwilioProvider) InitiateCall(ctx context.Context, req CallRequest) (CallResult, error) {
	if p.api == nil || p.cfg.FromNumber == "" || p.cfg.PublicBaseURL == "" {
		return CallResult{}, ErrNotConfigured
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return CallResult{}, errors.New("telephony: phone number is required")
	}
	if err := ctx.Err(); err != nil {
		return CallResult{}, err
	}

	params := &api.CreateCallParams{}
	params.SetTo(req.PhoneNumber)
	params.SetFrom(p.cfg.FromNumber)
	params.SetUrl(p.voiceURL(req))
	params.SetStatusCallback(p.webhookURL("status"))
	params.SetStatusCallbackMethod("POST")
	params.SetStatusCallbackEvent([]string{"initiated", "ringing", "answered", "completed"})
	if req.Assistant.recordEnabled() {
		params.SetRecord(true)
		params.SetRecordingStatusCallback(p.webhookURL("recording"))
	}
	if req.Assistant.amdEnabled() {
		params.SetMachineDetection("DetectMessageEnd")
		params.SetAsyncAmd("true")
		params.SetAsyncAmdStatusCallback(p.webhookURL("amd"))
	}

	resp, err := p.api.CreateCall(params)
	if err != nil {
		return CallResult{}, twilioVendorError(err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return CallResult{}, &VendorError{Provider: twilioName, Message: "missing call sid"}
	}

	status := calls.StatusQueued
	if resp.Status != nil {
		if s := mapTwilioStatus(*resp.Status); s != calls.StatusUnknown {
			status = s
		}
	}
	return CallResult{CallID: req.CallID, ProviderCallID: *resp.Sid, Status: status}, nil
}

func (p *TwilioProvider) GetCallStatus(ctx context.Context, providerCallID string) (CallDetails, error) {
	if p.api == nil {
		return CallDetails{}, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return CallDetails{}, err
	}

	call, err := p.api.FetchCall(providerCallID, &api.FetchCallParams{})
	if err != nil {
		return CallDetails{}, twilioVendorError(err)
	}
	d := CallDetails{Status: calls.StatusUnknown}
	if call.Status != nil {
		d.Status = mapTwilioStatus(*call.Status)
	}
	if call.Duration != nil {
		if n, err := strconv.Atoi(*call.Duration); err == nil {
			d.DurationSeconds = intPtr(n)
		}
	}
	if call.Price != nil {
		if f, err := strconv.ParseFloat(*call.Price, 64); err == nil {
			// Twilio reports charges as negative amounts.
			d.Cost = floatPtr(math.Abs(f))
		}
	}

	rec, err := p.recordingURL(providerCallID)
	if err != nil {
		return CallDetails{}, err
	}
	d.RecordingURL = rec
	return d, nil
}

// recordingURL returns the first recording for the call, or "" when there is none yet.
// Only authorization failures are surfaced; anything else means "not available yet".
func (p *TwilioProvider) recordingURL(callSid string) (string, error) {
	params := &api.ListRecordingParams{}
	params.SetCallSid(callSid)
	params.SetLimit(1)

	recs, err := p.api.ListRecording(params)
	if err != nil {
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) && (restErr.Status == 401 || restErr.Status == 403) {
			return "", fmt.Errorf("%w: %s", ErrRecordingLookup, restErr.Message)
		}
		p.logger().Warn("twilio recording lookup failed", "provider_call_id", callSid, "err", err)
		return "", nil
	}
	if len(recs) == 0 || recs[0].Sid == nil {
		return "", nil
	}
	return fmt.Sprintf("%s/%s/Recordings/%s.mp3", twilioRecordingBaseURL, p.cfg.AccountSID, *recs[0].Sid), nil
}

func (p *TwilioProvider) EndCall(ctx context.Context, providerCallID string) EndCallResult {
	if p.api == nil {
		return EndCallResult{Error: ErrNotConfigured.Error()}
	}
	if err := ctx.Err(); err != nil {
		return EndCallResult{Error: err.Error()}
	}
	params := &api.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := p.api.UpdateCall(providerCallID, params); err != nil {
		return EndCallResult{Error: twilioVendorError(err).Error()}
	}
	return EndCallResult{Success: true}
}

func (p *TwilioProvider) HandleWebhook(raw []byte) (WebhookEvent, error) {
	return ParseTwilioWebhook(raw)
}

func (p *TwilioProvider) GetPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	if p.api == nil {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	nums, err := p.api.ListIncomingPhoneNumber(&api.ListIncomingPhoneNumberParams{})
	if err != nil {
		return nil, twilioVendorError(err)
	}
	out := make([]PhoneNumber, 0, len(nums))
	for _, n := range nums {
		pn := PhoneNumber{Capabilities: []string{}}
		if n.Sid != nil {
			pn.ID = *n.Sid
		}
		if n.PhoneNumber != nil {
			pn.Number = *n.PhoneNumber
		}
		if c := n.Capabilities; c != nil {
			if c.Voice {
				pn.Capabilities = append(pn.Capabilities, "voice")
			}
			if c.Sms {
				pn.Capabilities = append(pn.Capabilities, "sms")
			}
			if c.Mms {
				pn.Capabilities = append(pn.Capabilities, "mms")
			}
			if c.Fax {
				pn.Capabilities = append(pn.Capabilities, "fax")
			}
		}
		out = append(out, pn)
	}
	return out, nil
}

func (p *TwilioProvider) baseURL() string {
	return strings.TrimRight(p.cfg.PublicBaseURL, "/")
}

func (p *TwilioProvider) webhookURL(kind string) string {
	return p.baseURL() + "/webhooks/twilio/" + kind
}

func (p *TwilioProvider) voiceURL(req CallRequest) string {
	q := url.Values{}
	q.Set("callId", req.CallID)
	q.Set("leadId", req.LeadID)
	q.Set("scriptId", req.ScriptID)
	if req.Assistant.StreamURL != "" {
		q.Set("stream", "1")
		q.Set("streamUrl", req.Assistant.StreamURL)
	}
	if req.Assistant.FirstMessage != "" {
		q.Set("greeting", req.Assistant.FirstMessage)
	}
	return p.webhookURL("voice") + "?" + q.Encode()
}

func twilioVendorError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		return &VendorError{Provider: twilioName, StatusCode: restErr.Status, Message: restErr.Message}
	}
	return &VendorError{Provider: twilioName, Message: err.Error()}
}

// mapTwilioStatus maps Twilio CallStatus values onto the canonical vocabulary.
func mapTwilioStatus(s string) calls.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued":
		return calls.StatusQueued
	case "initiated", "ringing":
		return calls.StatusRinging
	case "in-progress":
		return calls.StatusInProgress
	case "completed":
		return calls.StatusCompleted
	case "failed", "canceled":
		return calls.StatusFailed
	case "busy":
		return calls.StatusBusy
	case "no-answer":
		return calls.StatusNoAnswer
	default:
		return calls.StatusUnknown
	}
}
