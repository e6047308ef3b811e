package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"outreach-dialer/internal/calls"
)

// MockProvider is a deterministic, network-free adapter for tests and local runs.
//
// Calls are accepted immediately with status queued and provider ids mock-1, mock-2, ...
// Numbers listed in FailNumbers are rejected with a VendorError, which lets tests
// exercise per-lead failure isolation in the dialer.
//
// Webhooks are JSON encoded WebhookEvent values; see ParseMockWebhook.
type MockProvider struct {
	mu sync.Mutex

	// FailNumbers maps E.164 numbers to the error message returned by InitiateCall.
	FailNumbers map[string]string
	Numbers     []PhoneNumber

	seq    int
	placed []CallRequest
	status map[string]CallDetails
	ended  map[string]bool
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		FailNumbers: map[string]string{},
		Numbers: []PhoneNumber{
			{ID: "mock-number-1", Number: "+15550000001", Capabilities: []string{"voice"}},
		},
		status: map[string]CallDetails{},
		ended:  map[string]bool{},
	}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) InitiateCall(ctx context.Context, req CallRequest) (CallResult, error) {
	if err := ctx.Err(); err != nil {
		return CallResult{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.placed = append(p.placed, req)
	if msg, ok := p.FailNumbers[req.PhoneNumber]; ok {
		return CallResult{}, &VendorError{Provider: "mock", StatusCode: 400, Message: msg}
	}
	p.seq++
	id := fmt.Sprintf("mock-%d", p.seq)
	if p.status == nil {
		p.status = map[string]CallDetails{}
	}
	p.status[id] = CallDetails{Status: calls.StatusQueued}
	return CallResult{CallID: req.CallID, ProviderCallID: id, Status: calls.StatusQueued}, nil
}

func (p *MockProvider) GetCallStatus(ctx context.Context, providerCallID string) (CallDetails, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.status[providerCallID]
	if !ok {
		return CallDetails{Status: calls.StatusUnknown}, nil
	}
	return d, nil
}

// SetStatus overrides what GetCallStatus reports for a call.
func (p *MockProvider) SetStatus(providerCallID string, d CallDetails) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		p.status = map[string]CallDetails{}
	}
	p.status[providerCallID] = d
}

func (p *MockProvider) EndCall(ctx context.Context, providerCallID string) EndCallResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.status[providerCallID]; !ok {
		return EndCallResult{Error: "unknown call"}
	}
	if p.ended == nil {
		p.ended = map[string]bool{}
	}
	p.ended[providerCallID] = true
	d := p.status[providerCallID]
	d.Status = calls.StatusCompleted
	p.status[providerCallID] = d
	return EndCallResult{Success: true}
}

func (p *MockProvider) HandleWebhook(raw []byte) (WebhookEvent, error) {
	return ParseMockWebhook(raw)
}

func (p *MockProvider) GetPhoneNumbers(ctx context.Context) ([]PhoneNumber, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PhoneNumber, len(p.Numbers))
	copy(out, p.Numbers)
	return out, nil
}

// Placed returns every InitiateCall request seen so far, including rejected ones.
func (p *MockProvider) Placed() []CallRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CallRequest, len(p.placed))
	copy(out, p.placed)
	return out
}

// ParseMockWebhook decodes a JSON WebhookEvent. Statuses outside the canonical set
// become unknown.
func ParseMockWebhook(raw []byte) (WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	ev.Status = calls.ParseStatus(string(ev.Status))
	return ev, nil
}
