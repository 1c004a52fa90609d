package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const unknownLabel = "Unknown"

// predictionFile is one entry of a batch expression-measurement response.
type predictionFile struct {
	Source struct {
		Filename string `json:"filename"`
	} `json:"source"`
	Results *struct {
		Predictions []struct {
			File   string `json:"file"`
			Models struct {
				Prosody *modelOutput `json:"prosody"`
				Burst   *modelOutput `json:"burst"`
			} `json:"models"`
		} `json:"predictions"`
		Errors []json.RawMessage `json:"errors"`
	} `json:"results"`
}

type modelOutput struct {
	GroupedPredictions []struct {
		ID          string      `json:"id"`
		Predictions []rawWindow `json:"predictions"`
	} `json:"grouped_predictions"`
}

type rawWindow struct {
	Time *struct {
		Begin any `json:"begin"`
		End   any `json:"end"`
	} `json:"time"`
	Text     string `json:"text"`
	Emotions []struct {
		Name  string `json:"name"`
		Score any    `json:"score"`
	} `json:"emotions"`
}

type predictionError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ParsePredictions normalizes a batch prediction payload, either an array of
// per-file entries or a single entry, into one ChannelInput per file. Entries
// without results are skipped. Windows with a missing time range or a
// non-numeric score are dropped.
func ParsePredictions(data []byte) ([]timeline.ChannelInput, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty predictions payload")
	}

	var files []predictionFile
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &files); err != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
	} else {
		var f predictionFile
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return nil, fmt.Errorf("decode predictions: %w", err)
		}
		files = []predictionFile{f}
	}

	var channels []timeline.ChannelInput
	for _, f := range files {
		if f.Results == nil {
			continue
		}
		ch := timeline.ChannelInput{Filename: f.Source.Filename}
		if ch.Filename == "" {
			ch.Filename = "unknown"
		}
		for _, p := range f.Results.Predictions {
			ch.Prosody = append(ch.Prosody, windows(p.Models.Prosody)...)
			ch.Burst = append(ch.Burst, windows(p.Models.Burst)...)
		}
		for _, raw := range f.Results.Errors {
			ch.Errors = append(ch.Errors, errorText(raw))
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func windows(m *modelOutput) []timeline.Window {
	if m == nil {
		return nil
	}
	var out []timeline.Window
	for _, g := range m.GroupedPredictions {
		for _, rw := range g.Predictions {
			if w, ok := rw.window(); ok {
				out = append(out, w)
			}
		}
	}
	return out
}

func (rw rawWindow) window() (timeline.Window, bool) {
	if rw.Time == nil {
		return timeline.Window{}, false
	}
	start, ok1 := number(rw.Time.Begin)
	end, ok2 := number(rw.Time.End)
	if !ok1 || !ok2 {
		return timeline.Window{}, false
	}

	w := timeline.Window{Start: start, End: end, Text: rw.Text}
	for _, e := range rw.Emotions {
		score, ok := number(e.Score)
		if !ok {
			return timeline.Window{}, false
		}
		name := e.Name
		if name == "" {
			name = unknownLabel
		}
		w.Emotions = append(w.Emotions, timeline.Score{Name: name, Score: score})
	}
	return w, true
}

func errorText(raw json.RawMessage) string {
	var pe predictionError
	if err := json.Unmarshal(raw, &pe); err == nil && pe.Message != "" {
		if pe.File != "" {
			return pe.File + ": " + pe.Message
		}
		return pe.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// number accepts only finite JSON numbers.
func number(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
