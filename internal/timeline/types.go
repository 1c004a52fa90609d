package timeline

import (
	"errors"
	"math"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
)

// Source identifies which acoustic model produced a segment.
type Source string

const (
	SourceProsody Source = "prosody"
	SourceBurst   Source = "burst"
)

// Speaker roles produced by transcript normalization.
const (
	SpeakerAgent    = "Agent"
	SpeakerCustomer = "Customer"
)

// Outcome labels for a finished call.
const (
	OutcomeSuccess      = "success"
	OutcomePending      = "pending"
	OutcomeUnsuccessful = "unsuccessful"
)

// Judgment sources.
const (
	JudgmentFromModel    = "model"
	JudgmentFromFallback = "fallback"
)

var (
	// ErrInvalidConfig reports a programmer error in engine configuration.
	ErrInvalidConfig = errors.New("invalid timeline config")
	// ErrJudgmentAttached is returned when a result already carries a judgment.
	ErrJudgmentAttached = errors.New("outcome judgment already attached")
)

// Score is one raw (name, score) pair as reported by the acoustic model.
type Score struct {
	Name  string
	Score float64
}

// Window is one normalized prediction window before ranking.
type Window struct {
	Start    float64
	End      float64
	Text     string
	Emotions []Score
}

// ChannelInput is the normalized prediction stream for one audio file.
type ChannelInput struct {
	Filename string
	Prosody  []Window
	Burst    []Window
	Errors   []string
}

// RankedEmotion is a scored emotion with its derived percentage and category.
type RankedEmotion struct {
	Name       string           `json:"name"`
	Score      float64          `json:"score"`
	Percentage float64          `json:"percentage"`
	Category   emotion.Category `json:"category"`
}

// AcousticSegment is one scored window from the acoustic model. Emotions are
// sorted by score descending and truncated to the configured top-N; Top is the
// strongest emotion regardless of truncation.
type AcousticSegment struct {
	TimeStart float64
	TimeEnd   float64
	Source    Source
	Text      string
	Top       RankedEmotion
	Emotions  []RankedEmotion
}

// TopScore is the score of the highest-ranked emotion.
func (a AcousticSegment) TopScore() float64 {
	return a.Top.Score
}

// Utterance is one diarized transcript line.
type Utterance struct {
	Speaker    string   `json:"speaker"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ReconciledSegment is one entry of the displayed timeline.
type ReconciledSegment struct {
	TimeStart       float64          `json:"time_start"`
	TimeEnd         float64          `json:"time_end"`
	Speaker         string           `json:"speaker,omitempty"`
	Text            string           `json:"text,omitempty"`
	TranscriptText  string           `json:"transcript_text,omitempty"`
	PrimaryCategory emotion.Category `json:"primary_category"`
	TopEmotions     []RankedEmotion  `json:"top_emotions"`
	Source          Source           `json:"source"`
}

// CategoryCounts tallies primary categories across a timeline.
type CategoryCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Add increments the bucket for c.
func (cc *CategoryCounts) Add(c emotion.Category) {
	switch c {
	case emotion.Positive:
		cc.Positive++
	case emotion.Negative:
		cc.Negative++
	default:
		cc.Neutral++
	}
}

// CountCategories tallies the primary category of each segment.
func CountCategories(segs []ReconciledSegment) CategoryCounts {
	var cc CategoryCounts
	for _, s := range segs {
		cc.Add(s.PrimaryCategory)
	}
	return cc
}

// Judgment is the overall outcome of a call.
type Judgment struct {
	Label       emotion.Category `json:"label"`
	CallOutcome string           `json:"call_outcome"`
	Confidence  float64          `json:"confidence"`
	Reasoning   string           `json:"reasoning"`
	Source      string           `json:"source"`
}

// Metadata is the block attached to each file result.
type Metadata struct {
	CallID              string               `json:"call_id,omitempty"`
	ResultID            string               `json:"result_id,omitempty"`
	Combined            bool                 `json:"combined,omitempty"`
	Channel             string               `json:"channel,omitempty"`
	Speakers            []string             `json:"speakers,omitempty"`
	CategoryCounts      CategoryCounts       `json:"category_counts"`
	TranscriptAvailable bool                 `json:"transcript_available"`
	Transcript          []Utterance          `json:"transcript_segments,omitempty"`
	Profile             map[string]any       `json:"profile,omitempty"`
	Errors              []string             `json:"errors,omitempty"`
	PerSpeaker          map[string]*Metadata `json:"per_speaker,omitempty"`
	OverallCallEmotion  *Judgment            `json:"overall_call_emotion,omitempty"`
}

// FileResult is the timeline for one audio file, or the merged view of several.
type FileResult struct {
	Filename string              `json:"filename"`
	Prosody  []ReconciledSegment `json:"prosody"`
	Burst    []ReconciledSegment `json:"burst"`
	Summary  string              `json:"summary,omitempty"`
	Metadata Metadata            `json:"metadata"`
}

// AttachJudgment stores j on the result. A result carries at most one judgment;
// replacing it requires ClearJudgment first.
func (r *FileResult) AttachJudgment(j *Judgment) error {
	if r.Metadata.OverallCallEmotion != nil {
		return ErrJudgmentAttached
	}
	r.Metadata.OverallCallEmotion = j
	return nil
}

// ClearJudgment removes an attached judgment ahead of an explicit recomputation.
func (r *FileResult) ClearJudgment() {
	r.Metadata.OverallCallEmotion = nil
}

// Segments returns the timeline used for outcome classification: prosody when
// present, otherwise bursts.
func (r *FileResult) Segments() []ReconciledSegment {
	if len(r.Prosody) > 0 {
		return r.Prosody
	}
	return r.Burst
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Round2 rounds to two decimal places, the tolerance used for time ranges.
func Round2(v float64) float64 {
	return round(v, 2)
}
