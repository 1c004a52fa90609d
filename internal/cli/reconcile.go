package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/analysis"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/anthropic"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/ingest"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/outcome"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/processor"
)

func NewReconcileCmd(deps *Dependencies) *cobra.Command {
	var (
		predictionsPath string
		transcriptPath  string
		callPath        string
		callID          string
		summary         string
		offline         bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile a call from a predictions file",
		Example: `  emotionctl reconcile --predictions predictions.json --transcript transcript.json
  emotionctl reconcile --predictions predictions.json --call webhook.json --offline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ingest.AnalysisRequest{CallID: callID, Summary: summary}

			var err error
			if req.Predictions, err = readJSON(predictionsPath); err != nil {
				return err
			}
			if transcriptPath != "" {
				if req.Transcript, err = readJSON(transcriptPath); err != nil {
					return err
				}
			}
			if callPath != "" {
				if req.Call, err = readJSON(callPath); err != nil {
					return err
				}
			}
			if req.CallID == "" && req.Call == nil {
				req.CallID = "offline"
			}

			tcfg, err := deps.Config.Timeline()
			if err != nil {
				return err
			}
			var llm outcome.Completer
			if !offline && deps.Config.AnthropicAPIKey != "" {
				llm = anthropic.NewClient(deps.Config.AnthropicAPIKey, deps.Config.AnthropicModel)
			}
			engine, err := analysis.New(tcfg,
				outcome.New(llm, tcfg.TailWindow, deps.Logger),
				outcome.NewSummarizer(llm, deps.Logger),
				deps.Logger)
			if err != nil {
				return err
			}

			res, err := processor.New(engine, nil, nil, deps.Config.MinCallMS, deps.Logger).Process(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&predictionsPath, "predictions", "", "prediction payload file (required)")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "diarized transcript file")
	cmd.Flags().StringVar(&callPath, "call", "", "call webhook payload file")
	cmd.Flags().StringVar(&callID, "call-id", "", "call identifier")
	cmd.Flags().StringVar(&summary, "summary", "", "call summary text")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the classification model and use the deterministic fallback")
	_ = cmd.MarkFlagRequired("predictions")

	return cmd
}

func readJSON(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return data, nil
}
