package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/analysis"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/hermes"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/ingest"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/store"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

// ErrInvalidRequest wraps every failure caused by the request payload itself.
var ErrInvalidRequest = errors.New("invalid analysis request")

// AnalysisStore is the persistence the processor writes to.
type AnalysisStore interface {
	UpsertCall(ctx context.Context, c store.CallRecord) error
	SaveAnalysis(ctx context.Context, callID string, res timeline.FileResult) error
	SetCallStatus(ctx context.Context, callID, status, errMsg string) error
}

// Publisher emits outcome signals.
type Publisher interface {
	Publish(subject string, data any) error
}

// Result is the outcome of processing one request. Results is empty when the
// call was blocked.
type Result struct {
	CallID      string                `json:"call_id"`
	Status      string                `json:"status"`
	Constraints *ingest.Constraints   `json:"analysis_constraints,omitempty"`
	Results     []timeline.FileResult `json:"results,omitempty"`
}

// Processor orchestrates the analysis pipeline: ingest, constraints, engine,
// persistence and publication. Store and publisher are optional.
type Processor struct {
	engine     *analysis.Engine
	store      AnalysisStore
	publisher  Publisher
	httpClient *http.Client
	minCallMS  int64
	logger     *slog.Logger
}

func New(engine *analysis.Engine, s AnalysisStore, pub Publisher, minCallMS int64, logger *slog.Logger) *Processor {
	return &Processor{
		engine:     engine,
		store:      s,
		publisher:  pub,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		minCallMS:  minCallMS,
		logger:     logger,
	}
}

// HandlePredictionsReady is the NATS handler for emotion.predictions.ready.
func (p *Processor) HandlePredictionsReady(subject string, data []byte) {
	ctx := context.Background()

	var req ingest.AnalysisRequest
	if err := json.Unmarshal(data, &req); err != nil {
		p.logger.Error("failed to parse predictions event", "subject", subject, "error", err)
		return
	}

	res, err := p.Process(ctx, req)
	if err != nil {
		p.logger.Error("analysis failed", "call_id", req.CallID, "error", err)
		return
	}
	p.logger.Info("predictions processed", "call_id", res.CallID, "status", res.Status)
}

// Process runs one analysis request end to end.
func (p *Processor) Process(ctx context.Context, req ingest.AnalysisRequest) (*Result, error) {
	if len(req.Predictions) == 0 && req.PredictionsURL != "" {
		body, err := p.fetchPredictions(ctx, req.PredictionsURL)
		if err != nil {
			return nil, err
		}
		req.Predictions = body
	}

	prepared, err := req.Prepare(p.minCallMS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	callID := prepared.Request.CallID
	con := prepared.Constraints

	blocked := con != nil && !con.Allowed
	status := store.StatusProcessing
	if blocked {
		status = store.StatusBlocked
	}
	p.recordCall(ctx, prepared, status)

	if blocked {
		p.logger.Info("call blocked from analysis", "call_id", callID, "reason", con.BlockReason)
		p.publish(hermes.SubjectCallBlocked, hermes.OutcomeSignal{
			CallID:      callID,
			Status:      store.StatusBlocked,
			BlockReason: con.BlockReason,
			Timestamp:   time.Now().UTC(),
		})
		return &Result{CallID: callID, Status: store.StatusBlocked, Constraints: con}, nil
	}

	results, err := p.engine.Analyze(ctx, prepared.Request)
	if err != nil {
		p.markFailed(ctx, callID, err)
		return nil, fmt.Errorf("analyze %s: %w", callID, err)
	}

	if p.store != nil {
		if err := p.store.SaveAnalysis(ctx, callID, results[0]); err != nil {
			p.markFailed(ctx, callID, err)
			return nil, fmt.Errorf("persist %s: %w", callID, err)
		}
	}

	p.publish(hermes.SubjectCallReconciled, hermes.SignalFor(results[0], store.StatusCompleted))

	return &Result{
		CallID:      callID,
		Status:      store.StatusCompleted,
		Constraints: con,
		Results:     results,
	}, nil
}

func (p *Processor) recordCall(ctx context.Context, prepared *ingest.Prepared, status string) {
	if p.store == nil {
		return
	}
	rec := store.CallRecord{
		CallID:  prepared.Request.CallID,
		Summary: prepared.Request.Summary,
		Profile: prepared.Request.Profile,
		Status:  status,
		Allowed: true,
	}
	if c := prepared.Call; c != nil {
		rec.AgentID = c.AgentID
		rec.AgentName = c.AgentName
		rec.StartTimestamp = millis(c.StartTimestamp)
		rec.EndTimestamp = millis(c.EndTimestamp)
		if d, ok := c.Duration(); ok {
			rec.DurationMS = &d
		}
	}
	if con := prepared.Constraints; con != nil {
		rec.Allowed = con.Allowed
		rec.BlockReason = con.BlockReason
		rec.Constraints = con
	}
	if err := p.store.UpsertCall(ctx, rec); err != nil {
		p.logger.Error("failed to record call", "call_id", rec.CallID, "error", err)
	}
}

func (p *Processor) markFailed(ctx context.Context, callID string, cause error) {
	if p.store == nil {
		return
	}
	if err := p.store.SetCallStatus(ctx, callID, store.StatusFailed, cause.Error()); err != nil {
		p.logger.Error("failed to record call failure", "call_id", callID, "error", err)
	}
}

func (p *Processor) publish(subject string, sig hermes.OutcomeSignal) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, sig); err != nil {
		p.logger.Error("failed to publish outcome", "subject", subject, "call_id", sig.CallID, "error", err)
	}
}

func (p *Processor) fetchPredictions(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build predictions request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predictions source returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read predictions response: %w", err)
	}
	return body, nil
}

func millis(v *float64) *int64 {
	if v == nil {
		return nil
	}
	ms := int64(*v)
	return &ms
}
