package telephony

import (
	"fmt"
	"log/slog"
	"strings"
)

// Settings selects and configures one adapter at process start.
type Settings struct {
	Provider string
	Twilio   TwilioConfig
	Vapi     VapiConfig
}

// New returns the adapter named by s.Provider.
func New(s Settings, log *slog.Logger) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case twilioName:
		return NewTwilioProvider(s.Twilio, log), nil
	case vapiName:
		return NewVapiProvider(s.Vapi, log), nil
	case "mock", "":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("telephony: unknown provider %q", s.Provider)
	}
}
