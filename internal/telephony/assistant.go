package telephony

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// AssistantConfig is the free-form agent configuration attached to a batch.
// Adapters read only the keys they understand; unknown keys are ignored.
type AssistantConfig struct {
	FirstMessage string `json:"firstMessage,omitempty" mapstructure:"firstMessage"`
	SystemPrompt string `json:"systemPrompt,omitempty" mapstructure:"systemPrompt"`

	ModelProvider string   `json:"modelProvider,omitempty" mapstructure:"modelProvider"`
	Model         string   `json:"model,omitempty" mapstructure:"model"`
	Temperature   *float64 `json:"temperature,omitempty" mapstructure:"temperature"`

	VoiceProvider string `json:"voiceProvider,omitempty" mapstructure:"voiceProvider"`
	VoiceID       string `json:"voiceId,omitempty" mapstructure:"voiceId"`

	TranscriberProvider string `json:"transcriberProvider,omitempty" mapstructure:"transcriberProvider"`
	TranscriberModel    string `json:"transcriberModel,omitempty" mapstructure:"transcriberModel"`
	Language            string `json:"language,omitempty" mapstructure:"language"`

	EndCallPhrases     []string `json:"endCallPhrases,omitempty" mapstructure:"endCallPhrases"`
	MaxDurationSeconds int      `json:"maxDurationSeconds,omitempty" mapstructure:"maxDurationSeconds"`

	// StreamURL requests a bidirectional media stream (Twilio only).
	StreamURL string `json:"streamUrl,omitempty" mapstructure:"streamUrl"`

	// AnsweringMachineDetection defaults to on when nil.
	AnsweringMachineDetection *bool `json:"answeringMachineDetection,omitempty" mapstructure:"answeringMachineDetection"`
	// Record defaults to on when nil.
	Record *bool `json:"record,omitempty" mapstructure:"record"`
}

// DecodeAssistantConfig decodes a capability bag. Numeric strings and floats are coerced.
func DecodeAssistantConfig(in map[string]any) (AssistantConfig, error) {
	var out AssistantConfig
	if len(in) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return AssistantConfig{}, err
	}
	if err := dec.Decode(in); err != nil {
		return AssistantConfig{}, fmt.Errorf("telephony: assistant config: %w", err)
	}
	return out, nil
}

func (a AssistantConfig) amdEnabled() bool {
	return a.AnsweringMachineDetection == nil || *a.AnsweringMachineDetection
}

func (a AssistantConfig) recordEnabled() bool {
	return a.Record == nil || *a.Record
}
