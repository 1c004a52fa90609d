package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

// Call is the subset of a voice-platform call record the service reads.
type Call struct {
	CallID                   string         `json:"call_id"`
	AgentID                  string         `json:"agent_id,omitempty"`
	AgentName                string         `json:"agent_name,omitempty"`
	AgentVersion             *int           `json:"agent_version,omitempty"`
	UserPhoneNumber          string         `json:"user_phone_number,omitempty"`
	StartTimestamp           *float64       `json:"start_timestamp,omitempty"`
	EndTimestamp             *float64       `json:"end_timestamp,omitempty"`
	DurationMS               *float64       `json:"duration_ms,omitempty"`
	RecordingMultiChannelURL string         `json:"recording_multi_channel_url,omitempty"`
	Transcript               string         `json:"transcript,omitempty"`
	TranscriptObject         []rawUtterance `json:"transcript_object,omitempty"`
	DisconnectionReason      string         `json:"disconnection_reason,omitempty"`
	EndReason                string         `json:"end_reason,omitempty"`
	InVoicemail              *bool          `json:"in_voicemail,omitempty"`
	Summary                  string         `json:"summary,omitempty"`
	CallSummary              string         `json:"call_summary,omitempty"`
	CallAnalysis             *CallAnalysis  `json:"call_analysis,omitempty"`
	DynamicVariables         map[string]any `json:"retell_llm_dynamic_variables,omitempty"`
}

// CallAnalysis is the post-call analysis block attached by the voice platform.
type CallAnalysis struct {
	CallSummary string `json:"call_summary,omitempty"`
	Summary     string `json:"summary,omitempty"`
	InVoicemail *bool  `json:"in_voicemail,omitempty"`
}

// Envelope is a normalized webhook delivery.
type Envelope struct {
	Event string
	Call  *Call
}

// ParseCallEnvelope normalizes the three webhook shapes in circulation:
// {event, call:{...}}, {event, call_id, ...} with call fields at the top
// level, and {body:{event, ...}} from workflow relays. A bare call object is
// accepted as the second shape without an event.
func ParseCallEnvelope(data []byte) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode call envelope: %w", err)
	}

	if body, ok := top["body"]; ok && isObject(body) {
		return decodeFlat(body)
	}
	if call, ok := top["call"]; ok && isObject(call) {
		env := &Envelope{Event: stringField(top, "event")}
		env.Call = &Call{}
		if err := json.Unmarshal(call, env.Call); err != nil {
			return nil, fmt.Errorf("decode call: %w", err)
		}
		env.Call.normalize()
		return env, nil
	}
	if _, ok := top["call_id"]; ok {
		return decodeFlat(data)
	}
	if _, ok := top["recording_multi_channel_url"]; ok {
		return decodeFlat(data)
	}
	return nil, errors.New("call envelope carries no call data")
}

func decodeFlat(data []byte) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode call envelope: %w", err)
	}
	env := &Envelope{Event: stringField(top, "event"), Call: &Call{}}
	if err := json.Unmarshal(data, env.Call); err != nil {
		return nil, fmt.Errorf("decode call: %w", err)
	}
	env.Call.normalize()
	return env, nil
}

// normalize folds top-level voicemail and summary fields into CallAnalysis.
func (c *Call) normalize() {
	if c.InVoicemail == nil && c.CallSummary == "" {
		return
	}
	if c.CallAnalysis == nil {
		c.CallAnalysis = &CallAnalysis{}
	}
	if c.CallAnalysis.InVoicemail == nil && c.InVoicemail != nil {
		v := *c.InVoicemail
		c.CallAnalysis.InVoicemail = &v
	}
	if c.CallAnalysis.CallSummary == "" {
		c.CallAnalysis.CallSummary = c.CallSummary
	}
}

// SummaryText returns the first non-blank summary the call carries.
func (c *Call) SummaryText() string {
	var candidates []string
	if c.CallAnalysis != nil {
		candidates = append(candidates, c.CallAnalysis.CallSummary, c.CallAnalysis.Summary)
	}
	candidates = append(candidates, c.Summary, c.CallSummary)
	for _, s := range candidates {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return ""
}

// Utterances returns the call's normalized transcript.
func (c *Call) Utterances() []timeline.Utterance {
	return normalizeUtterances(c.TranscriptObject)
}

// Duration returns the call length in milliseconds, from duration_ms or the
// start and end timestamps.
func (c *Call) Duration() (int64, bool) {
	if c.DurationMS != nil {
		return int64(*c.DurationMS), true
	}
	if c.StartTimestamp != nil && c.EndTimestamp != nil {
		if d := int64(*c.EndTimestamp - *c.StartTimestamp); d >= 0 {
			return d, true
		}
	}
	return 0, false
}

var profileKeys = []string{"first_name", "program", "lead_status", "university"}

// Profile assembles agent and customer details for the classifier prompt and
// result metadata. It returns nil when the call carries none.
func (c *Call) Profile() map[string]any {
	profile := make(map[string]any)

	agent := make(map[string]any)
	if c.AgentID != "" {
		agent["id"] = c.AgentID
	}
	if c.AgentName != "" {
		agent["name"] = c.AgentName
	}
	if c.AgentVersion != nil {
		agent["version"] = *c.AgentVersion
	}
	if len(agent) > 0 {
		profile["agent"] = agent
	}

	customer := make(map[string]any)
	for _, k := range profileKeys {
		if v, ok := c.DynamicVariables[k]; ok && v != nil && v != "" {
			customer[k] = v
		}
	}
	if len(customer) > 0 {
		profile["customer"] = customer
	}

	if len(profile) == 0 {
		return nil
	}
	return profile
}

func isObject(raw json.RawMessage) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
