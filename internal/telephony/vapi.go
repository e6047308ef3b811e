package telephony

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"outreach-dialer/internal/calls"

	"github.com/go-resty/resty/v2"
)

const (
	vapiName           = "vapi"
	defaultVapiBaseURL = "https://api.vapi.ai"

	defaultVapiModelProvider       = "openai"
	defaultVapiModel               = "gpt-4o-mini"
	defaultVapiVoiceProvider       = "11labs"
	defaultVapiVoiceID             = "21m00Tcm4TlvDq8ikWAM"
	defaultVapiTranscriberProvider = "deepgram"
	defaultVapiTranscriberModel    = "nova-2"
	defaultVapiLanguage            = "en"

	defaultVapiFirstMessage = "Hi, this is Alex. Do you have a quick minute?"
	defaultVapiSystemPrompt = "You are a friendly, concise sales assistant. Qualify the lead, " +
		"handle objections politely and try to book a follow-up meeting."
)

type VapiConfig struct {
	APIKey        string
	BaseURL       string
	PhoneNumberID string
	Timeout       time.Duration
}

// VapiProvider places calls through the Vapi voice-agent REST API.
// Vapi runs the conversation itself; we only send the assistant definition.
type VapiProvider struct {
	cfg  VapiConfig
	http *resty.Client
	log  *slog.Logger
}

func NewVapiProvider(cfg VapiConfig, log *slog.Logger) *VapiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVapiBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)
	return &VapiProvider{cfg: cfg, http: c, log: log}
}

func (p *VapiProvider) Name() string { return vapiName }

func (p *VapiProvider) logger() *slog.Logger {
	if p.log == nil {
		return slog.Default()
	}
	return p.log
}

type vapiCreateCallRequest struct {
	PhoneNumberID string            `json:"phoneNumberId"`
	Customer      vapiCustomer      `json:"customer"`
	Assistant     vapiAssistant     `json:"assistant"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type vapiCustomer struct {
	Number string `json:"number"`
}

type vapiAssistant struct {
	FirstMessage       string                  `json:"firstMessage"`
	Model              vapiModel               `json:"model"`
	Voice              vapiVoice               `json:"voice"`
	Transcriber        vapiTranscriber         `json:"transcriber"`
	EndCallPhrases     []string                `json:"endCallPhrases,omitempty"`
	MaxDurationSeconds int                     `json:"maxDurationSeconds,omitempty"`
	RecordingEnabled   bool                    `json:"recordingEnabled"`
	ServerMessages     []string                `json:"serverMessages,omitempty"`
	VoicemailDetection *vapiVoicemailDetection `json:"voicemailDetection,omitempty"`
}

type vapiModel struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	Temperature *float64      `json:"temperature,omitempty"`
	Messages    []vapiMessage `json:"messages"`
}

type vapiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type vapiVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type vapiTranscriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type vapiVoicemailDetection struct {
	Provider string `json:"provider"`
}

// vapiCall is the subset of the Vapi call object we read.
type vapiCall struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	EndedReason  string        `json:"endedReason"`
	StartedAt    *time.Time    `json:"startedAt"`
	EndedAt      *time.Time    `json:"endedAt"`
	Cost         *float64      `json:"cost"`
	Transcript   string        `json:"transcript"`
	Summary      string        `json:"summary"`
	RecordingURL string        `json:"recordingUrl"`
	Artifact     *vapiArtifact `json:"artifact"`
	Analysis     *vapiAnalysis `json:"analysis"`
}

type vapiArtifact struct {
	RecordingURL string `json:"recordingUrl"`
	Transcript   string `json:"transcript"`
}

type vapiAnalysis struct {
	Summary string `json:"summary"`
}

type vapiPhoneNumber struct {
	ID       string `json:"id"`
	Number   string `json:"number"`
	Provider string `json:"provider"`
}

func (p *VapiProvider) InitiateCall(ctx context.Context, req CallRequest) (CallResult, error) {
	if p.cfg.APIKey == "" || p.cfg.PhoneNumberID == "" {
		return CallResult{}, ErrNotConfigured
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return CallResult{}, errors.New("telephony: phone number is required")
	}

	body := vapiCreateCallRequest{
		PhoneNumberID: p.cfg.PhoneNumberID,
		Customer:      vapiCustomer{Number: req.PhoneNumber},
		Assistant:     buildVapiAssistant(req.Assistant),
		Metadata: map[string]string{
			"callId":   req.CallID,
			"leadId":   req.LeadID,
			"scriptId": req.ScriptID,
		},
	}

	var out vapiCall
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/call")
	if err := vapiVendorError(resp, err); err != nil {
		p.logger().Warn("vapi create call failed", "call_id", req.CallID, "lead_id", req.LeadID, "err", err)
		return CallResult{}, err
	}
	if out.ID == "" {
		return CallResult{}, &VendorError{Provider: vapiName, StatusCode: resp.StatusCode(), Message: "missing call id"}
	}

	status := mapVapiStatus(out.Status, out.EndedReason)
	if status == calls.StatusUnknown {
		status = calls.StatusQueued
	}
	return CallResult{CallID: req.CallID, ProviderCallID: out.ID, Status: status}, nil
}

func buildVapiAssistant(a AssistantConfig) vapiAssistant {
	out := vapiAssistant{
		FirstMessage: firstNonEmpty(a.FirstMessage, defaultVapiFirstMessage),
		Model: vapiModel{
			Provider:    firstNonEmpty(a.ModelProvider, defaultVapiModelProvider),
			Model:       firstNonEmpty(a.Model, defaultVapiModel),
			Temperature: a.Temperature,
			Messages: []vapiMessage{
				{Role: "system", Content: firstNonEmpty(a.SystemPrompt, defaultVapiSystemPrompt)},
			},
		},
		Voice: vapiVoice{
			Provider: firstNonEmpty(a.VoiceProvider, defaultVapiVoiceProvider),
			VoiceID:  firstNonEmpty(a.VoiceID, defaultVapiVoiceID),
		},
		Transcriber: vapiTranscriber{
			Provider: firstNonEmpty(a.TranscriberProvider, defaultVapiTranscriberProvider),
			Model:    firstNonEmpty(a.TranscriberModel, defaultVapiTranscriberModel),
			Language: firstNonEmpty(a.Language, defaultVapiLanguage),
		},
		EndCallPhrases:     a.EndCallPhrases,
		MaxDurationSeconds: a.MaxDurationSeconds,
		RecordingEnabled:   a.recordEnabled(),
		ServerMessages:     []string{"end-of-call-report", "status-update", "hang"},
	}
	if a.amdEnabled() {
		out.VoicemailDetection = &vapiVoicemailDetection{Provider: "twilio"}
	}
	return out
}

func (p *VapiProvider) GetCallStatus(ctx context.Context, providerCallID string) (CallDetails, error) {
	if p.cfg.APIKey == "" {
		return CallDetails{}, ErrNotConfigured
	}
	var out vapiCall
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/call/" + url.PathEscape(providerCallID))
	if err := vapiVendorError(resp, err); err != nil {
		return CallDetails{}, err
	}

	d := CallDetails{
		Status:       mapVapiStatus(out.Status, out.EndedReason),
		RecordingURL: out.RecordingURL,
		Transcript:   out.Transcript,
		Summary:      out.Summary,
		Cost:         out.Cost,
	}
	if out.Artifact != nil {
		d.RecordingURL = firstNonEmpty(d.RecordingURL, out.Artifact.RecordingURL)
		d.Transcript = firstNonEmpty(d.Transcript, out.Artifact.Transcript)
	}
	if out.Analysis != nil {
		d.Summary = firstNonEmpty(d.Summary, out.Analysis.Summary)
	}
	if out.StartedAt != nil && out.EndedAt != nil {
		secs := int(out.EndedAt.Sub(*out.StartedAt) / time.Second)
		if secs < 0 {
			secs = 0
		}
		d.DurationSeconds = intPtr(secs)
	}
	return d, nil
}

func (p *VapiProvider) EndCall(ctx context.Context, providerCallID string) EndCallResult {
	if p.cfg.APIKey == "" {
		return EndCallResult{Error: ErrNotConfigured.Error()}
	}
	resp, err := p.http.R().
		SetContext(ctx).
		Delete("/call/" + url.PathEscape(providerCallID))
	if err := vapiVendorError(resp, err); err != nil {
		return EndCallResult{Error: err.Error()}
	}
	return EndCallResult{Success: true}
}

func (p *VapiProvider) HandleWebhook(raw []byte) (WebhookEvent, error) {
	return ParseVapiWebhook(raw)
}

func (p *VapiProvider) GetPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	var out []vapiPhoneNumber
	resp, err := p.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/phone-number")
	if err := vapiVendorError(resp, err); err != nil {
		return nil, err
	}
	nums := make([]PhoneNumber, 0, len(out))
	for _, n := range out {
		nums = append(nums, PhoneNumber{ID: n.ID, Number: n.Number, Capabilities: []string{"voice"}})
	}
	return nums, nil
}

func vapiVendorError(resp *resty.Response, err error) error {
	if err != nil {
		return &VendorError{Provider: vapiName, Message: err.Error()}
	}
	if resp.IsError() {
		return &VendorError{Provider: vapiName, StatusCode: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}
	return nil
}

// mapVapiStatus maps a Vapi call status onto the canonical vocabulary. For ended calls
// the endedReason refines the outcome.
func mapVapiStatus(status, endedReason string) calls.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued":
		return calls.StatusQueued
	case "ringing":
		return calls.StatusRinging
	case "in-progress", "forwarding":
		return calls.StatusInProgress
	case "ended":
		return refineVapiEnded(endedReason)
	default:
		return calls.StatusUnknown
	}
}

func refineVapiEnded(reason string) calls.Status {
	r := strings.ToLower(reason)
	switch {
	case r == "customer-busy":
		return calls.StatusBusy
	case r == "customer-did-not-answer":
		return calls.StatusNoAnswer
	case strings.Contains(r, "error"), strings.Contains(r, "failed"):
		return calls.StatusFailed
	default:
		return calls.StatusCompleted
	}
}

func secondsPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	return intPtr(int(math.Round(*f)))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
