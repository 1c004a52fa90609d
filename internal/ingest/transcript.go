package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

type rawUtterance struct {
	Speaker    string `json:"speaker"`
	Role       string `json:"role"`
	Start      any    `json:"start"`
	End        any    `json:"end"`
	Content    string `json:"content"`
	Text       string `json:"text"`
	Confidence any    `json:"confidence"`
	Words      []struct {
		Word  string `json:"word"`
		Start any    `json:"start"`
		End   any    `json:"end"`
	} `json:"words"`
}

// NormalizeSpeaker maps upstream speaker or role names onto the two call
// roles. Unrecognized names are title-cased.
func NormalizeSpeaker(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "customer":
		return timeline.SpeakerCustomer
	case "agent", "assistant":
		return timeline.SpeakerAgent
	case "":
		return ""
	}
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// ParseTranscript accepts either a bare utterance array or a call object
// carrying transcript_object.
func ParseTranscript(data []byte) ([]timeline.Utterance, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var raw []rawUtterance
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
	case '{':
		var obj struct {
			TranscriptObject []rawUtterance `json:"transcript_object"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		raw = obj.TranscriptObject
	default:
		return nil, errors.New("transcript must be an array or an object")
	}
	return normalizeUtterances(raw), nil
}

// normalizeUtterances drops lines without a speaker or usable timing. Missing
// start or end is taken from the first and last word timestamps.
func normalizeUtterances(raw []rawUtterance) []timeline.Utterance {
	var out []timeline.Utterance
	for _, r := range raw {
		speaker := r.Speaker
		if speaker == "" {
			speaker = r.Role
		}
		speaker = NormalizeSpeaker(speaker)
		if speaker == "" {
			continue
		}

		start, okStart := number(r.Start)
		end, okEnd := number(r.End)
		if (!okStart || !okEnd) && len(r.Words) > 0 {
			start, okStart = number(r.Words[0].Start)
			end, okEnd = number(r.Words[len(r.Words)-1].End)
		}
		if !okStart || !okEnd || end < start {
			continue
		}

		text := r.Content
		if text == "" {
			text = r.Text
		}
		u := timeline.Utterance{Speaker: speaker, Start: start, End: end, Text: text}
		if c, ok := number(r.Confidence); ok {
			u.Confidence = &c
		}
		out = append(out, u)
	}
	return out
}
