package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/outcome"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

// Request is one call's normalized input.
type Request struct {
	CallID     string
	Channels   []timeline.ChannelInput
	Transcript []timeline.Utterance
	Summary    string
	Profile    map[string]any
}

// Engine turns a call's predictions and transcript into reconciled timelines
// with an outcome judgment. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	builder    *timeline.Builder
	classifier *outcome.Classifier
	summarizer *outcome.Summarizer
	logger     *slog.Logger
	newID      func() string
}

// New returns an Engine. A nil summarizer leaves calls without a supplied
// summary unsummarized.
func New(cfg timeline.Config, classifier *outcome.Classifier, summarizer *outcome.Summarizer, logger *slog.Logger) (*Engine, error) {
	b, err := timeline.NewBuilder(cfg)
	if err != nil {
		return nil, err
	}
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", timeline.ErrInvalidConfig)
	}
	return &Engine{
		builder:    b,
		classifier: classifier,
		summarizer: summarizer,
		logger:     logger,
		newID:      uuid.NewString,
	}, nil
}

// Config returns the timeline settings the engine runs with.
func (e *Engine) Config() timeline.Config {
	return e.builder.Config()
}

// Analyze builds one timeline per channel. With more than one channel the
// merged call-level timeline comes first, followed by the per-channel
// results. When the request carries no summary, one is generated from the
// call-level result and set on every result. The call-level result carries
// the outcome judgment, which is nil when the call produced no acoustic
// segments.
func (e *Engine) Analyze(ctx context.Context, req Request) ([]timeline.FileResult, error) {
	channels := make([]timeline.FileResult, 0, len(req.Channels))
	for _, in := range req.Channels {
		res := e.builder.Build(in, req.Transcript)
		res.Summary = req.Summary
		res.Metadata.CallID = req.CallID
		res.Metadata.Channel = timeline.InferSpeaker(in.Filename, res.Prosody)
		res.Metadata.Profile = req.Profile
		channels = append(channels, res)
	}

	var results []timeline.FileResult
	if len(channels) == 1 {
		channels[0].Metadata.ResultID = e.newID()
		results = channels
	} else {
		merged := timeline.Merge(req.CallID, channels, req.Transcript, e.newID)
		merged.Summary = req.Summary
		merged.Metadata.Profile = req.Profile
		results = append([]timeline.FileResult{merged}, channels...)
	}

	call := &results[0]
	e.logger.Info("timeline reconciled",
		"call_id", req.CallID,
		"channels", len(req.Channels),
		"prosody", len(call.Prosody),
		"burst", len(call.Burst),
		"transcript", len(req.Transcript),
	)

	if strings.TrimSpace(req.Summary) == "" {
		if summary := e.summarizer.Summarize(ctx, *call); summary != "" {
			for i := range results {
				results[i].Summary = summary
			}
		}
	}

	if err := e.classify(ctx, call); err != nil {
		return nil, err
	}
	return results, nil
}

// Reclassify discards the judgment on res and computes a fresh one.
func (e *Engine) Reclassify(ctx context.Context, res *timeline.FileResult) (*timeline.Judgment, error) {
	if res == nil {
		return nil, errors.New("no result to reclassify")
	}
	res.ClearJudgment()
	if err := e.classify(ctx, res); err != nil {
		return nil, err
	}
	return res.Metadata.OverallCallEmotion, nil
}

func (e *Engine) classify(ctx context.Context, res *timeline.FileResult) error {
	j := e.classifier.Classify(ctx, res.Metadata.CallID, res.Segments(), res.Summary, res.Metadata.Profile)
	if j == nil {
		e.logger.Info("no acoustic segments, outcome undetermined", "call_id", res.Metadata.CallID)
		return nil
	}
	if err := res.AttachJudgment(j); err != nil {
		return fmt.Errorf("attach judgment: %w", err)
	}
	return nil
}
