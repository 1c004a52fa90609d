package outcome

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/anthropic"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const maxResponseTokens = 512

// Completer is the text-in/text-out classification service.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

// Classifier decides how a call ended. The model-assisted path runs when a
// Completer is configured; any failure there falls through to Fallback.
type Classifier struct {
	llm        Completer
	tailWindow int
	logger     *slog.Logger
}

// New returns a Classifier. A nil llm runs the deterministic fallback only.
func New(llm Completer, tailWindow int, logger *slog.Logger) *Classifier {
	return &Classifier{llm: llm, tailWindow: tailWindow, logger: logger}
}

// Classify judges the call represented by segs. An empty timeline yields nil,
// meaning undetermined. Service failures never surface as errors.
func (c *Classifier) Classify(ctx context.Context, callID string, segs []timeline.ReconciledSegment, summary string, profile map[string]any) *timeline.Judgment {
	if len(segs) == 0 {
		return nil
	}
	in := BuildInput(segs, c.tailWindow, summary, profile)

	if c.llm != nil {
		j, err := c.classifyWithModel(ctx, in)
		if err == nil {
			c.logger.Info("call classified",
				"call_id", callID,
				"source", j.Source,
				"outcome", j.CallOutcome,
				"label", j.Label,
			)
			return j
		}
		c.logger.Warn("model classification failed, using fallback",
			"call_id", callID,
			"error", err,
		)
	}

	j := Fallback(in)
	c.logger.Info("call classified",
		"call_id", callID,
		"source", j.Source,
		"outcome", j.CallOutcome,
		"label", j.Label,
	)
	return j
}

func (c *Classifier) classifyWithModel(ctx context.Context, in Input) (*timeline.Judgment, error) {
	payload, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal classifier input: %w", err)
	}

	messages := []anthropic.Message{
		{Role: "user", Content: fmt.Sprintf(classifyUserPrompt, payload)},
	}

	raw, err := c.llm.Complete(ctx, systemPrompt, messages, maxResponseTokens)
	if err != nil {
		return nil, fmt.Errorf("llm classification: %w", err)
	}

	j, err := parseResponse(raw)
	if err != nil {
		c.logger.Debug("unparseable classifier response", "raw", raw)
		return nil, fmt.Errorf("parse classification: %w", err)
	}
	return j, nil
}
