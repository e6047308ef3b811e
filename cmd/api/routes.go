package main

import (
	"outreach-dialer/internal/app"
	"outreach-dialer/internal/calls"
	"outreach-dialer/internal/config"
	"outreach-dialer/internal/httpapi"
	"outreach-dialer/internal/steps"
	"outreach-dialer/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, cfg config.Config, deps *app.Deps) {
	httpapi.Handlers{
		Dialer:       deps.Dialer,
		Provider:     deps.Provider,
		Calls:        deps.Calls,
		DefaultDelay: cfg.Dialer.DefaultDelay,
		Ready:        deps.Ready,
	}.Register(r)

	nextStep := func(s calls.Status) string { return string(steps.ForCallStatus(s)) }

	// The configured provider normalizes its own route; the other vendor routes stay
	// mounted so calls placed before a provider switch still get their callbacks.
	webhook := func(source string, parse func([]byte) (telephony.WebhookEvent, error)) gin.HandlerFunc {
		if deps.Provider != nil && deps.Provider.Name() == source {
			return telephony.NewWebhookHandler(deps.Provider, deps.Calls, nextStep).Handle
		}
		return telephony.WebhookHandler{Source: source, Parse: parse, Store: deps.Calls, NextStep: nextStep}.Handle
	}

	// Provider webhooks (public). Each vendor reports on its own path; all of them patch
	// the same call store by provider call id.
	wh := r.Group("/webhooks")
	{
		tw := wh.Group("/twilio")
		if cfg.Twilio.ValidateSignature {
			tw.Use(telephony.TwilioSignature(cfg.Twilio.AuthToken, cfg.Telephony.PublicBaseURL))
		}
		status := webhook("twilio", telephony.ParseTwilioWebhook)
		tw.POST("/status", status)
		tw.POST("/recording", status)
		tw.POST("/amd", status)

		voice := telephony.VoiceHandler{Defaults: telephony.VoiceInstructions{
			StreamURL: cfg.Twilio.StreamURL,
			Greeting:  cfg.Twilio.Greeting,
		}}
		tw.POST("/voice", voice.Handle)
		tw.GET("/voice", voice.Handle)

		wh.POST("/vapi", webhook("vapi", telephony.ParseVapiWebhook))
		wh.POST("/mock", webhook("mock", telephony.ParseMockWebhook))
	}
}
