package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/dialer"
	"outreach-dialer/internal/steps"
	"outreach-dialer/internal/telephony"
	"outreach-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

// BatchRunner is satisfied by *dialer.Dialer.
type BatchRunner interface {
	Run(ctx context.Context, job dialer.Job) (dialer.Result, error)
}

type Handlers struct {
	Dialer   BatchRunner
	Provider telephony.Provider
	Calls    calls.ReadWriter

	// DefaultDelay applies when a batch request carries no delay_ms.
	DefaultDelay time.Duration

	// Ready reports backing store health for /healthz; optional.
	Ready func(ctx context.Context) error
}

func (h Handlers) Health(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("health check failed", "err", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Calls ---

type leadRequest struct {
	LeadID      string `json:"lead_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type startCallRequest struct {
	leadRequest
	ScriptID  string         `json:"script_id"`
	Assistant map[string]any `json:"assistant"`
}

type batchRequest struct {
	Leads     []leadRequest  `json:"leads" binding:"required,min=1,dive"`
	ScriptID  string         `json:"script_id"`
	DelayMS   *int64         `json:"delay_ms"`
	Assistant map[string]any `json:"assistant"`
}

// StartCall places one call through the batch path, so DNC and call records apply.
func (h Handlers) StartCall(c *gin.Context) {
	if h.Dialer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dialer not configured"})
		return
	}
	var req startCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id and phone_number required"})
		return
	}
	assistant, err := telephony.DecodeAssistantConfig(req.Assistant)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Dialer.Run(c.Request.Context(), dialer.Job{
		Leads:     []dialer.Lead{{LeadID: req.LeadID, PhoneNumber: req.PhoneNumber}},
		ScriptID:  req.ScriptID,
		Assistant: assistant,
	})
	if err != nil {
		writeDialError(c, err, res)
		return
	}
	if res.Filtered > 0 {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "number is on the do-not-call list", "batch_id": res.BatchID})
		return
	}
	if len(res.Results) == 0 {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "no result"})
		return
	}
	lr := res.Results[0]
	if !lr.Success {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": lr.Error, "result": lr, "batch_id": res.BatchID})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"batch_id": res.BatchID, "result": lr})
}

// StartBatch dials all leads before responding; the request context bounds the batch.
func (h Handlers) StartBatch(c *gin.Context) {
	if h.Dialer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dialer not configured"})
		return
	}
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "leads required"})
		return
	}
	assistant, err := telephony.DecodeAssistantConfig(req.Assistant)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := dialer.Job{
		Leads:     make([]dialer.Lead, 0, len(req.Leads)),
		ScriptID:  req.ScriptID,
		Delay:     h.DefaultDelay,
		Assistant: assistant,
	}
	if req.DelayMS != nil {
		job.Delay = time.Duration(*req.DelayMS) * time.Millisecond
	}
	for _, l := range req.Leads {
		job.Leads = append(job.Leads, dialer.Lead{LeadID: l.LeadID, PhoneNumber: l.PhoneNumber})
	}

	res, err := h.Dialer.Run(c.Request.Context(), job)
	if err != nil {
		writeDialError(c, err, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, call)
}

// PollCallStatus asks the provider for the current call state and persists it.
func (h Handlers) PollCallStatus(c *gin.Context) {
	if h.Provider == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider not configured"})
		return
	}
	log := logger.FromGin(c)
	providerCallID := c.Param("provider_call_id")

	details, err := h.Provider.GetCallStatus(c.Request.Context(), providerCallID)
	if err != nil {
		log.Warn("call status lookup failed", "provider_call_id", providerCallID, "err", err)
		writeProviderError(c, err)
		return
	}

	tracked := false
	if h.Calls != nil {
		patch := telephony.PatchFromDetails(details)
		switch err := h.Calls.UpdateByProviderCallID(c.Request.Context(), providerCallID, patch); {
		case err == nil:
			tracked = true
		case errors.Is(err, calls.ErrNotFound):
		default:
			log.Error("call status persist failed", "provider_call_id", providerCallID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store update failed"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"provider_call_id": providerCallID,
		"details":          details,
		"tracked":          tracked,
		"next_step":        steps.ForCallStatus(details.Status),
	})
}

func (h Handlers) EndCall(c *gin.Context) {
	if h.Provider == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider not configured"})
		return
	}
	providerCallID := c.Param("provider_call_id")

	if h.Calls != nil {
		call, err := h.Calls.GetByProviderCallID(c.Request.Context(), providerCallID)
		switch {
		case err == nil && call.Status.IsTerminal():
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "call already ended", "status": call.Status})
			return
		case err != nil && !errors.Is(err, calls.ErrNotFound):
			writeStoreError(c, err)
			return
		}
	}

	res := h.Provider.EndCall(c.Request.Context(), providerCallID)
	if !res.Success {
		logger.FromGin(c).Warn("end call failed", "provider_call_id", providerCallID, "err", res.Error)
		c.AbortWithStatusJSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) ListPhoneNumbers(c *gin.Context) {
	if h.Provider == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider not configured"})
		return
	}
	numbers, err := h.Provider.GetPhoneNumbers(c.Request.Context())
	if err != nil {
		logger.FromGin(c).Warn("phone number lookup failed", "err", err)
		writeProviderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": h.Provider.Name(), "phone_numbers": numbers})
}

// --- Steps ---

func (h Handlers) ListSteps(c *gin.Context) {
	out := make([]steps.Description, 0, len(steps.States()))
	for _, s := range steps.States() {
		d, _ := steps.Describe(s)
		out = append(out, d)
	}
	c.JSON(http.StatusOK, gin.H{"states": out, "initial": steps.Idle, "terminal": steps.Completed})
}

func (h Handlers) GetStep(c *gin.Context) {
	d, ok := steps.Describe(steps.State(c.Param("state")))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown state"})
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h Handlers) StepGraph(c *gin.Context) {
	current := steps.State(c.Query("current"))
	if current != "" && !steps.Known(current) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown state"})
		return
	}
	c.JSON(http.StatusOK, steps.BuildTransitionGraph(current))
}

type transitionRequest struct {
	From steps.State `json:"from" binding:"required"`
	To   steps.State `json:"to" binding:"required"`
}

// ValidateTransition reports whether from -> to is in the table. Unknown states are
// simply invalid.
func (h Handlers) ValidateTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from and to required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"from":  req.From,
		"to":    req.To,
		"valid": steps.IsValidTransition(req.From, req.To),
	})
}

// --- Error mapping ---

func writeDialError(c *gin.Context, err error, partial dialer.Result) {
	switch {
	case errors.Is(err, dialer.ErrInvalidJob):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, dialer.ErrBatchLimit):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "batch interrupted", "result": partial})
	default:
		logger.FromGin(c).Error("batch failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "batch failed"})
	}
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case errors.Is(err, calls.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
	default:
		logger.FromGin(c).Error("call store failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
	}
}

func writeProviderError(c *gin.Context, err error) {
	var ve *telephony.VendorError
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": ve.Error(), "vendor_status": ve.StatusCode})
	case errors.Is(err, telephony.ErrRecordingLookup):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, telephony.ErrNotConfigured):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider not configured"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider request failed"})
	}
}
