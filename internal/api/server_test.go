package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/ingest"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/processor"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/store"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

type fakeAnalyzer struct {
	last ingest.AnalysisRequest
	err  error
}

func (f *fakeAnalyzer) Process(_ context.Context, req ingest.AnalysisRequest) (*processor.Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Result{
		CallID:  req.CallID,
		Status:  store.StatusCompleted,
		Results: []timeline.FileResult{{Filename: req.CallID + "_combined"}},
	}, nil
}

type fakeEngine struct {
	judgment *timeline.Judgment
	calls    int
}

func (f *fakeEngine) Config() timeline.Config { return timeline.DefaultConfig() }

func (f *fakeEngine) Reclassify(_ context.Context, res *timeline.FileResult) (*timeline.Judgment, error) {
	f.calls++
	res.ClearJudgment()
	res.AttachJudgment(f.judgment)
	return f.judgment, nil
}

type fakeStore struct {
	results  map[string]*timeline.FileResult
	statuses map[string][2]string
	saved    map[string]*timeline.Judgment
	loadErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results:  map[string]*timeline.FileResult{},
		statuses: map[string][2]string{},
		saved:    map[string]*timeline.Judgment{},
	}
}

func (f *fakeStore) LoadAnalysis(_ context.Context, callID string) (*timeline.FileResult, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	res, ok := f.results[callID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return res, nil
}

func (f *fakeStore) SaveJudgment(_ context.Context, callID string, j *timeline.Judgment) error {
	f.saved[callID] = j
	return nil
}

func (f *fakeStore) CallStatus(_ context.Context, callID string) (string, string, error) {
	st, ok := f.statuses[callID]
	if !ok {
		return "", "", store.ErrNotFound
	}
	return st[0], st[1], nil
}

type fakeBus struct{ connected bool }

func (f fakeBus) Connected() bool { return f.connected }

type fakeModel string

func (f fakeModel) Model() string { return string(f) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(token string, db AnalysisStore) (*Server, *fakeAnalyzer, *fakeEngine) {
	a := &fakeAnalyzer{}
	e := &fakeEngine{judgment: &timeline.Judgment{Label: emotion.Neutral, CallOutcome: timeline.OutcomePending, Source: timeline.JudgmentFromFallback}}
	return NewServer(8760, token, a, e, db, nil, nil, discardLogger()), a, e
}

func do(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer("secret", nil)

	w := do(srv, "GET", "/health", "", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer("", nil)

	w := do(srv, "GET", "/api/v1/emotion/status", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["agent"] != "emotion-extractor" {
		t.Errorf("expected agent emotion-extractor, got %v", body["agent"])
	}
	if body["persistence"] != false {
		t.Errorf("expected persistence false, got %v", body["persistence"])
	}
	if body["tail_window"] != float64(timeline.DefaultTailWindow) {
		t.Errorf("unexpected tail window %v", body["tail_window"])
	}
}

func TestStatusEndpoint_Dependencies(t *testing.T) {
	tests := []struct {
		name       string
		bus        Messaging
		llm        LanguageModel
		connected  bool
		classifier string
		model      string
	}{
		{"nothing configured", nil, nil, false, "fallback", ""},
		{"bus down", fakeBus{connected: false}, nil, false, "fallback", ""},
		{"bus up with model", fakeBus{connected: true}, fakeModel("claude-sonnet-4-20250514"), true, "model", "claude-sonnet-4-20250514"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(8760, "", &fakeAnalyzer{}, &fakeEngine{}, nil, tt.bus, tt.llm, discardLogger())
			w := do(srv, "GET", "/api/v1/emotion/status", "", "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			body := decode(t, w)
			if body["nats_connected"] != tt.connected {
				t.Errorf("nats_connected = %v, want %v", body["nats_connected"], tt.connected)
			}
			if body["classifier"] != tt.classifier || body["model"] != tt.model {
				t.Errorf("classifier/model = %v/%v, want %s/%s", body["classifier"], body["model"], tt.classifier, tt.model)
			}
		})
	}
}

func TestBearerAuth(t *testing.T) {
	srv, _, _ := newTestServer("secret", nil)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, "GET", "/api/v1/emotion/status", "", tt.token)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv, a, _ := newTestServer("", nil)

	w := do(srv, "POST", "/api/v1/calls/call-9/analyze", `{"call_id":"ignored","predictions":[]}`, "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if a.last.CallID != "call-9" {
		t.Errorf("expected path call id to win, got %q", a.last.CallID)
	}
	body := decode(t, w)
	if body["status"] != store.StatusCompleted {
		t.Errorf("unexpected status %v", body["status"])
	}
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"malformed body", "{", nil, http.StatusBadRequest},
		{"invalid request", `{}`, fmt.Errorf("%w: predictions are required", processor.ErrInvalidRequest), http.StatusBadRequest},
		{"engine failure", `{}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, a, _ := newTestServer("", nil)
			a.err = tt.err

			w := do(srv, "POST", "/api/v1/calls/c/analyze", tt.body, "")

			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
			if body := decode(t, w); body["error"] == "" {
				t.Error("expected error body")
			}
		})
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	db := newFakeStore()
	db.results["done"] = &timeline.FileResult{Filename: "done_combined", Metadata: timeline.Metadata{CallID: "done"}}
	db.statuses["vm"] = [2]string{store.StatusBlocked, ingest.ReasonVoicemail}
	srv, _, _ := newTestServer("", db)

	w := do(srv, "GET", "/api/v1/calls/done/analysis", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["filename"] != "done_combined" {
		t.Errorf("unexpected body %v", body)
	}

	w = do(srv, "GET", "/api/v1/calls/vm/analysis", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != store.StatusBlocked || body["block_reason"] != ingest.ReasonVoicemail {
		t.Errorf("expected blocked status details, got %v", body)
	}

	w = do(srv, "GET", "/api/v1/calls/unknown/analysis", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	db.loadErr = errors.New("db down")
	w = do(srv, "GET", "/api/v1/calls/done/analysis", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestReclassifyEndpoint(t *testing.T) {
	db := newFakeStore()
	db.results["c1"] = &timeline.FileResult{
		Metadata: timeline.Metadata{
			CallID:             "c1",
			OverallCallEmotion: &timeline.Judgment{Label: emotion.Positive, CallOutcome: timeline.OutcomeSuccess},
		},
	}
	srv, _, e := newTestServer("", db)

	w := do(srv, "POST", "/api/v1/calls/c1/reclassify", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if e.calls != 1 {
		t.Errorf("expected one reclassification, got %d", e.calls)
	}
	if db.saved["c1"] == nil || db.saved["c1"].CallOutcome != timeline.OutcomePending {
		t.Errorf("expected new judgment saved, got %+v", db.saved["c1"])
	}
	body := decode(t, w)
	j, ok := body["overall_call_emotion"].(map[string]any)
	if !ok || j["call_outcome"] != timeline.OutcomePending {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReadEndpointsWithoutStore(t *testing.T) {
	srv, _, _ := newTestServer("", nil)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/v1/calls/c/analysis"},
		{"POST", "/api/v1/calls/c/reclassify"},
	} {
		w := do(srv, tc.method, tc.path, "", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected 503, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _, _ := newTestServer("", nil)

	w := do(srv, "GET", "/nonexistent", "", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
