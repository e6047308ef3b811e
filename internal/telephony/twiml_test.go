package telephony

import (
	"strings"
	"testing"
)

func TestRenderVoiceTwiML_Say(t *testing.T) {
	xml, err := RenderVoiceTwiML(VoiceInstructions{Greeting: "Hi Sam"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{"<Say>Hi Sam</Say>", `<Pause length="2"></Pause>`} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in xml: %s", want, xml)
		}
	}
	if strings.Contains(xml, "<Connect") {
		t.Fatalf("did not expect a stream: %s", xml)
	}
}

func TestRenderVoiceTwiML_DefaultGreeting(t *testing.T) {
	xml, err := RenderVoiceTwiML(VoiceInstructions{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, defaultGreeting) {
		t.Fatalf("expected default greeting: %s", xml)
	}
}

func TestRenderVoiceTwiML_Stream(t *testing.T) {
	xml, err := RenderVoiceTwiML(VoiceInstructions{
		StreamURL:  "wss://media.example.com/stream",
		Parameters: map[string]string{"leadId": "lead-1", "callId": "c1", "scriptId": ""},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{
		"<Connect>",
		`<Stream url="wss://media.example.com/stream">`,
		`<Parameter name="callId" value="c1"></Parameter>`,
		`<Parameter name="leadId" value="lead-1"></Parameter>`,
	} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in xml: %s", want, xml)
		}
	}
	if strings.Contains(xml, "scriptId") {
		t.Fatalf("empty parameters should be dropped: %s", xml)
	}
	if strings.Index(xml, `name="callId"`) > strings.Index(xml, `name="leadId"`) {
		t.Fatalf("expected parameters in key order: %s", xml)
	}
}

func TestRenderVoiceTwiML_RejectsHTTPStream(t *testing.T) {
	if _, err := RenderVoiceTwiML(VoiceInstructions{StreamURL: "https://media.example.com"}); err == nil {
		t.Fatalf("expected error")
	}
}
