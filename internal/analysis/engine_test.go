package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/anthropic"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/outcome"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubCompleter answers summary requests with summary and everything else
// with reply.
type stubCompleter struct {
	reply     string
	summary   string
	err       error
	summaries int
	lastInput string
}

func (s *stubCompleter) Complete(_ context.Context, _ string, messages []anthropic.Message, _ int) (string, error) {
	if len(messages) > 0 && strings.Contains(messages[0].Content, "emotion_highlights") {
		s.summaries++
		return s.summary, s.err
	}
	if len(messages) > 0 {
		s.lastInput = messages[0].Content
	}
	return s.reply, s.err
}

func newTestEngine(t *testing.T, llm outcome.Completer) *Engine {
	t.Helper()
	e, err := New(timeline.DefaultConfig(),
		outcome.New(llm, timeline.DefaultTailWindow, discardLogger()),
		outcome.NewSummarizer(llm, discardLogger()),
		discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	n := 0
	e.newID = func() string {
		n++
		return []string{"id-a", "id-b", "id-c"}[n-1]
	}
	return e
}

func agentChannel() timeline.ChannelInput {
	return timeline.ChannelInput{
		Filename: "agent.wav",
		Prosody: []timeline.Window{
			{Start: 0, End: 2, Text: "would you like to enroll", Emotions: []timeline.Score{{Name: "Interest", Score: 0.6}}},
			{Start: 5, End: 7, Text: "great, sending it now", Emotions: []timeline.Score{{Name: "Joy", Score: 0.7}}},
		},
	}
}

func customerChannel() timeline.ChannelInput {
	return timeline.ChannelInput{
		Filename: "customer.wav",
		Prosody: []timeline.Window{
			{Start: 2, End: 4, Text: "okay send it over", Emotions: []timeline.Score{{Name: "Contentment", Score: 0.8}}},
		},
		Burst: []timeline.Window{
			{Start: 3, End: 3.4, Emotions: []timeline.Score{{Name: "Amusement", Score: 0.9}}},
		},
	}
}

func TestAnalyze_TwoChannels(t *testing.T) {
	e := newTestEngine(t, nil)
	results, err := e.Analyze(context.Background(), Request{
		CallID:   "call-1",
		Channels: []timeline.ChannelInput{agentChannel(), customerChannel()},
		Summary:  "Customer agreed to receive the enrollment form.",
		Profile:  map[string]any{"customer": map[string]any{"first_name": "Ana"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected merged + 2 channel results, got %d", len(results))
	}

	merged := results[0]
	if merged.Filename != "call-1_combined" || !merged.Metadata.Combined || merged.Metadata.ResultID != "id-a" {
		t.Errorf("unexpected merged header %+v", merged.Metadata)
	}
	wantSpeakers := []string{timeline.SpeakerAgent, timeline.SpeakerCustomer, timeline.SpeakerAgent}
	if len(merged.Prosody) != 3 {
		t.Fatalf("expected 3 merged prosody segments, got %d", len(merged.Prosody))
	}
	for i, s := range merged.Prosody {
		if s.Speaker != wantSpeakers[i] {
			t.Errorf("segment %d speaker = %q, want %q", i, s.Speaker, wantSpeakers[i])
		}
	}
	if merged.Summary == "" || merged.Metadata.Profile == nil {
		t.Error("summary and profile should pass through to the merged result")
	}

	j := merged.Metadata.OverallCallEmotion
	if j == nil {
		t.Fatal("expected judgment on merged result")
	}
	// last segment is the agent's, but the final customer segment drives the fallback
	if j.Source != timeline.JudgmentFromFallback || j.CallOutcome != timeline.OutcomeSuccess || j.Label != emotion.Positive {
		t.Errorf("unexpected judgment %+v", j)
	}

	for _, r := range results[1:] {
		if r.Metadata.OverallCallEmotion != nil {
			t.Errorf("channel %s must not carry a judgment", r.Filename)
		}
	}
	if results[1].Metadata.Channel != timeline.SpeakerAgent || results[2].Metadata.Channel != timeline.SpeakerCustomer {
		t.Errorf("unexpected channel roles %q %q", results[1].Metadata.Channel, results[2].Metadata.Channel)
	}
}

func TestAnalyze_SingleChannelWithTranscript(t *testing.T) {
	e := newTestEngine(t, &stubCompleter{reply: `{"overall_emotion":"neutral","call_outcome":"pending","confidence":0.66,"reasoning":"Asked for a callback."}`})
	results, err := e.Analyze(context.Background(), Request{
		CallID: "call-2",
		Channels: []timeline.ChannelInput{{
			Filename: "recording.wav",
			Prosody: []timeline.Window{
				{Start: 10, End: 12.5, Text: "call me back later", Emotions: []timeline.Score{{Name: "Annoyance", Score: 0.5}}},
			},
		}},
		Transcript: []timeline.Utterance{{Speaker: timeline.SpeakerCustomer, Start: 10, End: 12, Text: "can you call me back later"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected a single result, got %d", len(results))
	}
	r := results[0]
	if r.Metadata.ResultID != "id-a" || r.Metadata.CallID != "call-2" {
		t.Errorf("unexpected metadata %+v", r.Metadata)
	}
	if len(r.Prosody) != 1 || r.Prosody[0].TimeEnd != 12 {
		t.Errorf("expected segment re-anchored to the utterance, got %+v", r.Prosody)
	}
	j := r.Metadata.OverallCallEmotion
	if j == nil || j.Source != timeline.JudgmentFromModel || j.CallOutcome != timeline.OutcomePending {
		t.Errorf("unexpected judgment %+v", j)
	}
}

func TestAnalyze_GeneratesSummaryWhenMissing(t *testing.T) {
	stub := &stubCompleter{
		summary: "  Customer agreed at 2.0s to receive the form.  ",
		reply:   `{"overall_emotion":"positive","call_outcome":"success","confidence":0.8,"reasoning":"Agreed."}`,
	}
	e := newTestEngine(t, stub)
	results, err := e.Analyze(context.Background(), Request{
		CallID:   "call-6",
		Channels: []timeline.ChannelInput{agentChannel(), customerChannel()},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if stub.summaries != 1 {
		t.Errorf("expected one summary request for the call, got %d", stub.summaries)
	}
	for _, r := range results {
		if r.Summary != "Customer agreed at 2.0s to receive the form." {
			t.Errorf("%s: summary = %q", r.Filename, r.Summary)
		}
	}
	if !strings.Contains(stub.lastInput, "Customer agreed at 2.0s") {
		t.Error("classifier input should carry the generated summary")
	}
}

func TestAnalyze_SummaryHandling(t *testing.T) {
	tests := []struct {
		name      string
		stub      *stubCompleter
		supplied  string
		want      string
		summaries int
	}{
		{"supplied summary is kept", &stubCompleter{summary: "generated"}, "Supplied.", "Supplied.", 0},
		{"model failure leaves summary empty", &stubCompleter{err: errors.New("unavailable")}, "", "", 1},
		{"no model configured", nil, "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var llm outcome.Completer
			if tt.stub != nil {
				llm = tt.stub
			}
			e := newTestEngine(t, llm)
			results, err := e.Analyze(context.Background(), Request{
				CallID:   "call-7",
				Channels: []timeline.ChannelInput{customerChannel()},
				Summary:  tt.supplied,
			})
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if results[0].Summary != tt.want {
				t.Errorf("summary = %q, want %q", results[0].Summary, tt.want)
			}
			if results[0].Metadata.OverallCallEmotion == nil {
				t.Error("a summary failure must not prevent classification")
			}
			if tt.stub != nil && tt.stub.summaries != tt.summaries {
				t.Errorf("summary requests = %d, want %d", tt.stub.summaries, tt.summaries)
			}
		})
	}
}

func TestAnalyze_NoSegmentsLeavesJudgmentNil(t *testing.T) {
	e := newTestEngine(t, nil)
	results, err := e.Analyze(context.Background(), Request{
		CallID:   "call-3",
		Channels: []timeline.ChannelInput{{Filename: "silent.wav"}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if results[0].Metadata.OverallCallEmotion != nil {
		t.Errorf("expected undetermined judgment, got %+v", results[0].Metadata.OverallCallEmotion)
	}
}

func TestAnalyze_NoChannels(t *testing.T) {
	e := newTestEngine(t, nil)
	results, err := e.Analyze(context.Background(), Request{CallID: "call-4"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(results) != 1 || results[0].Filename != "call-4_combined" {
		t.Errorf("expected one empty call-level result, got %+v", results)
	}
}

func TestReclassify(t *testing.T) {
	stub := &stubCompleter{err: errors.New("unavailable")}
	e := newTestEngine(t, stub)
	results, err := e.Analyze(context.Background(), Request{
		CallID:   "call-5",
		Channels: []timeline.ChannelInput{agentChannel(), customerChannel()},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if results[0].Metadata.OverallCallEmotion.Source != timeline.JudgmentFromFallback {
		t.Fatalf("expected fallback judgment first")
	}

	stub.err = nil
	stub.reply = `{"overall_emotion":"negative","call_outcome":"unsuccessful","confidence":0.9,"reasoning":"Refused."}`
	j, err := e.Reclassify(context.Background(), &results[0])
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}
	if j.Source != timeline.JudgmentFromModel || results[0].Metadata.OverallCallEmotion != j {
		t.Errorf("expected fresh model judgment attached, got %+v", results[0].Metadata.OverallCallEmotion)
	}

	if _, err := e.Reclassify(context.Background(), nil); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := timeline.DefaultConfig()
	cfg.TailWindow = -1
	if _, err := New(cfg, outcome.New(nil, 12, discardLogger()), nil, discardLogger()); !errors.Is(err, timeline.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := New(timeline.DefaultConfig(), nil, nil, discardLogger()); !errors.Is(err, timeline.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil classifier, got %v", err)
	}
}
