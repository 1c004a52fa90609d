package ingest

import (
	"testing"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const minimalPredictions = `[{"source":{"filename":"a.wav"},"results":{"predictions":[{"models":{"prosody":{"grouped_predictions":[{"predictions":[{"time":{"begin":0,"end":2},"text":"ok","emotions":[{"name":"Joy","score":0.8}]}]}]}}}]}}]`

func TestParseRequest_WithCall(t *testing.T) {
	body := `{
		"predictions": ` + minimalPredictions + `,
		"call": {"event": "call_analyzed", "call": {
			"call_id": "c-77", "duration_ms": 45000, "agent_name": "Enrollment",
			"call_analysis": {"call_summary": "Customer asked for details."},
			"transcript_object": [{"role": "user", "content": "ok", "start": 0, "end": 2}]
		}}
	}`

	p, err := ParseRequest([]byte(body), DefaultMinCallMS)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if p.Request.CallID != "c-77" {
		t.Errorf("expected call id from call record, got %q", p.Request.CallID)
	}
	if p.Request.Summary != "Customer asked for details." {
		t.Errorf("unexpected summary %q", p.Request.Summary)
	}
	if len(p.Request.Transcript) != 1 || p.Request.Transcript[0].Speaker != timeline.SpeakerCustomer {
		t.Errorf("unexpected transcript %+v", p.Request.Transcript)
	}
	if p.Request.Profile == nil {
		t.Error("expected profile from call record")
	}
	if p.Constraints == nil || !p.Constraints.Allowed {
		t.Errorf("expected allowed constraints, got %+v", p.Constraints)
	}
	if len(p.Request.Channels) != 1 {
		t.Errorf("expected 1 channel, got %d", len(p.Request.Channels))
	}
}

func TestParseRequest_ExplicitFieldsWin(t *testing.T) {
	body := `{
		"call_id": "explicit",
		"summary": "given summary",
		"predictions": ` + minimalPredictions + `,
		"transcript": [{"role": "agent", "content": "hello", "start": 0, "end": 1}],
		"call": {"call_id": "other", "summary": "record summary",
			"transcript_object": [{"role": "user", "content": "ok", "start": 0, "end": 2}]}
	}`

	p, err := ParseRequest([]byte(body), DefaultMinCallMS)
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if p.Request.CallID != "explicit" || p.Request.Summary != "given summary" {
		t.Errorf("explicit fields should win, got %q %q", p.Request.CallID, p.Request.Summary)
	}
	if len(p.Request.Transcript) != 1 || p.Request.Transcript[0].Speaker != timeline.SpeakerAgent {
		t.Errorf("explicit transcript should win, got %+v", p.Request.Transcript)
	}
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `nope`},
		{"missing predictions", `{"call_id": "c"}`},
		{"missing call id", `{"predictions": ` + minimalPredictions + `}`},
		{"bad call", `{"call_id": "c", "predictions": ` + minimalPredictions + `, "call": {"event": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRequest([]byte(tt.body), DefaultMinCallMS); err == nil {
				t.Error("expected error")
			}
		})
	}
}
