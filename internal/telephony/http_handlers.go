package telephony

import (
	"errors"
	"io"
	"net/http"

	"outreach-dialer/internal/calls"
	"outreach-dialer/pkg/logger"

	"github.com/gin-gonic/gin"
)

// WebhookHandler turns a vendor callback into a store patch.
//
// No business logic here: parse, normalize, patch by provider call id.
// Unknown calls and empty events are acknowledged with 200 so vendors stop retrying.
type WebhookHandler struct {
	Source string
	Parse  func(raw []byte) (WebhookEvent, error)
	Store  calls.Store

	// NextStep reports the agent step suggested for a call status; optional.
	NextStep func(calls.Status) string
}

// NewWebhookHandler builds a handler that normalizes with p.HandleWebhook.
func NewWebhookHandler(p Provider, store calls.Store, nextStep func(calls.Status) string) WebhookHandler {
	return WebhookHandler{Source: p.Name(), Parse: p.HandleWebhook, Store: store, NextStep: nextStep}
}

func (h WebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c).With("source", h.Source)

	if h.Parse == nil || h.Store == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook handler not configured"})
		return
	}

	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ev, err := h.Parse(raw)
	if err != nil {
		log.Warn("webhook parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if ev.ProviderCallID == "" {
		c.JSON(http.StatusOK, gin.H{"received": true, "ignored": "missing call id"})
		return
	}

	resp := gin.H{
		"received":         true,
		"provider_call_id": ev.ProviderCallID,
		"status":           ev.Status,
	}
	if h.NextStep != nil && ev.Status.IsKnown() {
		resp["next_step"] = h.NextStep(ev.Status)
	}

	patch := PatchFromEvent(ev)
	if patch.IsEmpty() {
		c.JSON(http.StatusOK, resp)
		return
	}
	if err := h.Store.UpdateByProviderCallID(c.Request.Context(), ev.ProviderCallID, patch); err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			log.Warn("webhook for unknown call", "provider_call_id", ev.ProviderCallID)
			resp["ignored"] = "unknown call"
			c.JSON(http.StatusOK, resp)
			return
		}
		log.Error("webhook store update failed", "provider_call_id", ev.ProviderCallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "store update failed"})
		return
	}

	log.Info("webhook applied", "provider_call_id", ev.ProviderCallID, "status", ev.Status, "event", ev.Metadata["event"])
	c.JSON(http.StatusOK, resp)
}

// VoiceHandler answers Twilio's voice URL with TwiML for an outbound call.
type VoiceHandler struct {
	// Defaults apply when the voice URL carries no per-call override.
	Defaults VoiceInstructions
}

func (h VoiceHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	in := h.Defaults
	if c.Query("stream") == "1" && c.Query("streamUrl") != "" {
		in.StreamURL = c.Query("streamUrl")
	}
	if g := c.Query("greeting"); g != "" {
		in.Greeting = g
	}
	in.Parameters = map[string]string{
		"callId":   c.Query("callId"),
		"leadId":   c.Query("leadId"),
		"scriptId": c.Query("scriptId"),
	}

	twiml, err := RenderVoiceTwiML(in)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
