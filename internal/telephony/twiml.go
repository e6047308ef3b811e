package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"sort"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// Only the verbs the voice webhook needs are modelled.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlPause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr,omitempty"`
}

type twimlConnect struct {
	XMLName xml.Name    `xml:"Connect"`
	Stream  twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter,omitempty"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// VoiceInstructions describes what Twilio should do once the callee picks up.
type VoiceInstructions struct {
	// StreamURL connects the call to a bidirectional media stream when set.
	StreamURL string
	// Parameters are forwarded to the stream as custom parameters.
	Parameters map[string]string

	// Greeting is spoken when no stream is requested.
	Greeting     string
	PauseSeconds int
}

const defaultGreeting = "Hello, this is a quick call on behalf of our team."

// RenderVoiceTwiML renders the answer-time instructions for an outbound call.
func RenderVoiceTwiML(in VoiceInstructions) (string, error) {
	var r twimlResponse

	if strings.TrimSpace(in.StreamURL) != "" {
		if !strings.HasPrefix(in.StreamURL, "wss://") && !strings.HasPrefix(in.StreamURL, "ws://") {
			return "", errors.New("telephony: stream url must be a websocket url")
		}
		s := twimlStream{URL: in.StreamURL}
		for _, k := range sortedKeys(in.Parameters) {
			if in.Parameters[k] == "" {
				continue
			}
			s.Parameters = append(s.Parameters, twimlParameter{Name: k, Value: in.Parameters[k]})
		}
		r.Verbs = append(r.Verbs, twimlConnect{Stream: s})
	} else {
		greeting := strings.TrimSpace(in.Greeting)
		if greeting == "" {
			greeting = defaultGreeting
		}
		pause := in.PauseSeconds
		if pause <= 0 {
			pause = 2
		}
		r.Verbs = append(r.Verbs, twimlSay{Text: greeting}, twimlPause{Length: pause})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
