package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/anthropic"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const (
	maxSummaryTokens = 256
	unknownSpeaker   = "Unknown"
	vocalBurst       = "vocal_burst"
)

// Highlight marks a point where a speaker's primary emotion changed.
type Highlight struct {
	Speaker        string  `json:"speaker"`
	TimeStart      float64 `json:"time_start"`
	TimeEnd        float64 `json:"time_end"`
	Text           string  `json:"text"`
	PrimaryEmotion string  `json:"primary_emotion"`
	Score          float64 `json:"score"`
	Type           string  `json:"type,omitempty"`
}

// EmotionTally counts how often an emotion led a speaker's segments.
type EmotionTally struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
}

// DigestSegment is a timeline entry as shown to the summary model.
type DigestSegment struct {
	TimeStart   float64                  `json:"time_start"`
	TimeEnd     float64                  `json:"time_end"`
	TimeRange   string                   `json:"time_range"`
	Speaker     string                   `json:"speaker"`
	Text        string                   `json:"text,omitempty"`
	Type        string                   `json:"type,omitempty"`
	TopEmotions []timeline.RankedEmotion `json:"top_emotions"`
}

// Digest condenses a reconciled result into what the summary model reads.
type Digest struct {
	Filename        string                    `json:"filename"`
	Segments        []DigestSegment           `json:"segments"`
	Transcript      []timeline.Utterance      `json:"transcript"`
	Highlights      []Highlight               `json:"emotion_highlights"`
	SpeakerEmotions map[string][]EmotionTally `json:"speaker_primary_emotions"`
}

// BuildDigest walks prosody then burst segments. A highlight is recorded
// whenever a speaker's leading emotion differs from the last one seen for that
// speaker; the last-seen state is shared across both segment kinds. Segments
// without ranked emotions are skipped. Tallies are ordered by count, ties
// keeping first-seen order.
func BuildDigest(res timeline.FileResult) Digest {
	d := Digest{
		Filename:        res.Filename,
		Segments:        []DigestSegment{},
		Transcript:      res.Metadata.Transcript,
		Highlights:      []Highlight{},
		SpeakerEmotions: map[string][]EmotionTally{},
	}
	if d.Transcript == nil {
		d.Transcript = []timeline.Utterance{}
	}

	last := map[string]string{}
	tallies := map[string]*tally{}

	visit := func(s timeline.ReconciledSegment, kind string) {
		if len(s.TopEmotions) == 0 {
			return
		}
		speaker := s.Speaker
		if speaker == "" {
			speaker = unknownSpeaker
		}
		text := s.Text
		if kind == vocalBurst {
			text = s.TranscriptText
		}

		top := s.TopEmotions[0]
		if top.Name != "" {
			if last[speaker] != top.Name {
				d.Highlights = append(d.Highlights, Highlight{
					Speaker:        speaker,
					TimeStart:      s.TimeStart,
					TimeEnd:        s.TimeEnd,
					Text:           text,
					PrimaryEmotion: top.Name,
					Score:          top.Score,
					Type:           kind,
				})
				last[speaker] = top.Name
			}
			t, ok := tallies[speaker]
			if !ok {
				t = &tally{counts: map[string]int{}}
				tallies[speaker] = t
			}
			t.add(top.Name)
		}

		seg := DigestSegment{
			TimeStart:   s.TimeStart,
			TimeEnd:     s.TimeEnd,
			TimeRange:   fmt.Sprintf("%.1fs-%.1fs", s.TimeStart, s.TimeEnd),
			Speaker:     speaker,
			Type:        kind,
			TopEmotions: s.TopEmotions,
		}
		if kind == "" {
			seg.Text = text
		}
		d.Segments = append(d.Segments, seg)
	}

	for _, s := range res.Prosody {
		visit(s, "")
	}
	for _, s := range res.Burst {
		visit(s, vocalBurst)
	}

	sort.SliceStable(d.Segments, func(i, j int) bool {
		return d.Segments[i].TimeStart < d.Segments[j].TimeStart
	})
	for speaker, t := range tallies {
		d.SpeakerEmotions[speaker] = t.ranked()
	}
	return d
}

type tally struct {
	order  []string
	counts map[string]int
}

func (t *tally) add(name string) {
	if _, ok := t.counts[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

func (t *tally) ranked() []EmotionTally {
	out := make([]EmotionTally, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, EmotionTally{Emotion: name, Count: t.counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Summarizer writes a short narrative of a call from its digest.
type Summarizer struct {
	llm    Completer
	logger *slog.Logger
}

// NewSummarizer returns a Summarizer. A nil llm disables summaries.
func NewSummarizer(llm Completer, logger *slog.Logger) *Summarizer {
	return &Summarizer{llm: llm, logger: logger}
}

// Summarize returns a short call summary, or "" when no model is configured,
// the result has no segments, or the model call fails.
func (s *Summarizer) Summarize(ctx context.Context, res timeline.FileResult) string {
	if s == nil || s.llm == nil {
		return ""
	}
	if len(res.Prosody) == 0 && len(res.Burst) == 0 {
		return ""
	}

	payload, err := json.MarshalIndent([]Digest{BuildDigest(res)}, "", "  ")
	if err != nil {
		s.logger.Warn("could not build summary input", "call_id", res.Metadata.CallID, "error", err)
		return ""
	}

	messages := []anthropic.Message{
		{Role: "user", Content: fmt.Sprintf(summaryUserPrompt, payload)},
	}
	raw, err := s.llm.Complete(ctx, summarySystemPrompt, messages, maxSummaryTokens)
	if err != nil {
		s.logger.Warn("call summary failed", "call_id", res.Metadata.CallID, "error", err)
		return ""
	}

	summary := strings.TrimSpace(raw)
	s.logger.Info("call summarized", "call_id", res.Metadata.CallID, "length", len(summary))
	return summary
}
