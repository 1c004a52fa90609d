package outcome

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const defaultConfidence = 0.5

var errNoObject = errors.New("no JSON object in response")

type modelResponse struct {
	OverallEmotion string `json:"overall_emotion"`
	CallOutcome    string `json:"call_outcome"`
	Confidence     any    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}

// parseResponse decodes the model's reply. A direct decode is tried first;
// failing that, the first balanced {...} in the text is decoded.
func parseResponse(raw string) (*timeline.Judgment, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errors.New("empty response")
	}

	var resp modelResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		obj, ok := firstObject(text)
		if !ok {
			return nil, errNoObject
		}
		resp = modelResponse{}
		if err := json.Unmarshal([]byte(obj), &resp); err != nil {
			return nil, fmt.Errorf("decode embedded object: %w", err)
		}
	}
	return resp.judgment()
}

func (r modelResponse) judgment() (*timeline.Judgment, error) {
	label, ok := emotion.ParseCategory(r.OverallEmotion)
	if !ok {
		return nil, fmt.Errorf("invalid overall_emotion %q", r.OverallEmotion)
	}

	callOutcome := strings.ToLower(strings.TrimSpace(r.CallOutcome))
	switch callOutcome {
	case timeline.OutcomeSuccess, timeline.OutcomePending, timeline.OutcomeUnsuccessful:
	default:
		callOutcome = outcomeFor(label)
	}

	reasoning := strings.TrimSpace(r.Reasoning)
	if reasoning == "" {
		reasoning = "Model classification without stated reasoning."
	}

	return &timeline.Judgment{
		Label:       label,
		CallOutcome: callOutcome,
		Confidence:  confidenceValue(r.Confidence),
		Reasoning:   reasoning,
		Source:      timeline.JudgmentFromModel,
	}, nil
}

// confidenceValue accepts a number or numeric string and clamps it to [0,1].
func confidenceValue(v any) float64 {
	var c float64
	switch t := v.(type) {
	case float64:
		c = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return defaultConfidence
		}
		c = f
	default:
		return defaultConfidence
	}
	if math.IsNaN(c) {
		return defaultConfidence
	}
	return min(1, max(0, c))
}

// firstObject returns the first balanced {...} substring of s, ignoring
// braces inside JSON string literals.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func outcomeFor(label emotion.Category) string {
	switch label {
	case emotion.Positive:
		return timeline.OutcomeSuccess
	case emotion.Negative:
		return timeline.OutcomeUnsuccessful
	default:
		return timeline.OutcomePending
	}
}
