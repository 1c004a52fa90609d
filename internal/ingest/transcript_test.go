package ingest

import (
	"testing"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

func TestNormalizeSpeaker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user", timeline.SpeakerCustomer},
		{"Customer", timeline.SpeakerCustomer},
		{"agent", timeline.SpeakerAgent},
		{"ASSISTANT", timeline.SpeakerAgent},
		{"transfer target", "Transfer Target"},
		{"  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeSpeaker(tt.in); got != tt.want {
				t.Errorf("NormalizeSpeaker(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTranscript_Array(t *testing.T) {
	payload := `[
		{"role": "agent", "content": "Hello, this is Sam.", "start": 0.4, "end": 2.1, "confidence": 0.93},
		{"role": "user", "text": "Hi.", "words": [{"word": "Hi", "start": 2.5, "end": 2.9}, {"word": ".", "start": 2.9, "end": 3.0}]},
		{"content": "no speaker", "start": 3, "end": 4},
		{"role": "user", "content": "no timing"},
		{"speaker": "user", "content": "backwards", "start": 9, "end": 8}
	]`

	utts, err := ParseTranscript([]byte(payload))
	if err != nil {
		t.Fatalf("ParseTranscript: %v", err)
	}
	if len(utts) != 2 {
		t.Fatalf("expected 2 usable utterances, got %d: %+v", len(utts), utts)
	}
	if utts[0].Speaker != timeline.SpeakerAgent || utts[0].Text != "Hello, this is Sam." {
		t.Errorf("unexpected first utterance %+v", utts[0])
	}
	if utts[0].Confidence == nil || *utts[0].Confidence != 0.93 {
		t.Errorf("expected confidence carried, got %v", utts[0].Confidence)
	}
	if utts[1].Start != 2.5 || utts[1].End != 3.0 || utts[1].Text != "Hi." {
		t.Errorf("expected timing from words, got %+v", utts[1])
	}
	if utts[1].Confidence != nil {
		t.Errorf("expected no confidence, got %v", *utts[1].Confidence)
	}
}

func TestParseTranscript_CallObject(t *testing.T) {
	payload := `{"call_id": "c1", "transcript_object": [{"role": "user", "content": "sure", "start": 1, "end": 2}]}`
	utts, err := ParseTranscript([]byte(payload))
	if err != nil {
		t.Fatalf("ParseTranscript: %v", err)
	}
	if len(utts) != 1 || utts[0].Speaker != timeline.SpeakerCustomer {
		t.Errorf("unexpected utterances %+v", utts)
	}
}

func TestParseTranscript_EmptyAndInvalid(t *testing.T) {
	for _, in := range []string{"", "null"} {
		utts, err := ParseTranscript([]byte(in))
		if err != nil || utts != nil {
			t.Errorf("%q: expected no transcript, got %v, %v", in, utts, err)
		}
	}
	if _, err := ParseTranscript([]byte(`"text"`)); err == nil {
		t.Error("expected error for string transcript")
	}
}
