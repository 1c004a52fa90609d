package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/analysis"
)

// AnalysisRequest is the wire form of a request to analyze one call, shared
// by the event subscriber and the HTTP API. PredictionsURL is resolved by the
// caller when Predictions is not embedded.
type AnalysisRequest struct {
	CallID         string          `json:"call_id"`
	Predictions    json.RawMessage `json:"predictions,omitempty"`
	PredictionsURL string          `json:"predictions_url,omitempty"`
	Call           json.RawMessage `json:"call,omitempty"`
	Transcript     json.RawMessage `json:"transcript,omitempty"`
	Summary        string          `json:"summary,omitempty"`
}

// Prepared is a request normalized for the engine. Constraints is nil when
// the request carried no call record to evaluate.
type Prepared struct {
	Request     analysis.Request
	Call        *Call
	Constraints *Constraints
}

// ParseRequest decodes and normalizes a request body.
func ParseRequest(data []byte, minCallMS int64) (*Prepared, error) {
	var req AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode analysis request: %w", err)
	}
	return req.Prepare(minCallMS)
}

// Prepare normalizes the request. An explicit transcript or summary wins over
// the ones found in the call record.
func (r *AnalysisRequest) Prepare(minCallMS int64) (*Prepared, error) {
	if len(r.Predictions) == 0 {
		return nil, errors.New("predictions are required")
	}
	channels, err := ParsePredictions(r.Predictions)
	if err != nil {
		return nil, err
	}

	p := &Prepared{Request: analysis.Request{
		CallID:   strings.TrimSpace(r.CallID),
		Channels: channels,
		Summary:  strings.TrimSpace(r.Summary),
	}}

	if len(r.Call) > 0 && string(r.Call) != "null" {
		env, err := ParseCallEnvelope(r.Call)
		if err != nil {
			return nil, err
		}
		p.Call = env.Call
		if p.Request.CallID == "" {
			p.Request.CallID = env.Call.CallID
		}
		if p.Request.Summary == "" {
			p.Request.Summary = env.Call.SummaryText()
		}
		p.Request.Transcript = env.Call.Utterances()
		p.Request.Profile = env.Call.Profile()
		con := EvaluateConstraints(env.Call, minCallMS)
		p.Constraints = &con
	}

	if len(r.Transcript) > 0 {
		utts, err := ParseTranscript(r.Transcript)
		if err != nil {
			return nil, err
		}
		if len(utts) > 0 {
			p.Request.Transcript = utts
		}
	}

	if p.Request.CallID == "" {
		return nil, errors.New("call_id is required")
	}
	return p, nil
}
