package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/ingest"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/processor"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/store"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const maxBodyBytes = 32 << 20

// Analyzer runs an analysis request end to end.
type Analyzer interface {
	Process(ctx context.Context, req ingest.AnalysisRequest) (*processor.Result, error)
}

// Engine recomputes outcome judgments.
type Engine interface {
	Config() timeline.Config
	Reclassify(ctx context.Context, res *timeline.FileResult) (*timeline.Judgment, error)
}

// AnalysisStore reads stored analyses. Nil disables the read endpoints.
type AnalysisStore interface {
	LoadAnalysis(ctx context.Context, callID string) (*timeline.FileResult, error)
	SaveJudgment(ctx context.Context, callID string, j *timeline.Judgment) error
	CallStatus(ctx context.Context, callID string) (status, blockReason string, err error)
}

// Messaging reports the state of the message bus connection.
type Messaging interface {
	Connected() bool
}

// LanguageModel names the model behind classification and summaries.
type LanguageModel interface {
	Model() string
}

type Server struct {
	router   *chi.Mux
	analyzer Analyzer
	engine   Engine
	db       AnalysisStore
	bus      Messaging
	llm      LanguageModel
	logger   *slog.Logger
	http     *http.Server
}

// NewServer wires the HTTP API. db, bus and llm may be nil when the
// corresponding dependency is not configured.
func NewServer(port int, apiToken string, analyzer Analyzer, engine Engine, db AnalysisStore, bus Messaging, llm LanguageModel, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		analyzer: analyzer,
		engine:   engine,
		db:       db,
		bus:      bus,
		llm:      llm,
		logger:   logger,
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/emotion/status", s.status)
		r.Post("/calls/{callID}/analyze", s.analyze)
		r.Get("/calls/{callID}/analysis", s.analysis)
		r.Post("/calls/{callID}/reclassify", s.reclassify)
	})

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	classifier, model := "fallback", ""
	if s.llm != nil {
		classifier, model = "model", s.llm.Model()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":                  "emotion-extractor",
		"status":                 "ok",
		"persistence":            s.db != nil,
		"nats_connected":         s.bus != nil && s.bus.Connected(),
		"classifier":             classifier,
		"model":                  model,
		"top_n":                  cfg.TopN,
		"tail_window":            cfg.TailWindow,
		"near_duplicate_overlap": cfg.NearDuplicateOverlap,
	})
}

// analyze handles POST /api/v1/calls/{callID}/analyze. The path call id
// overrides any id in the body.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "callID")

	var req ingest.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	req.CallID = callID

	res, err := s.analyzer.Process(r.Context(), req)
	if err != nil {
		if errors.Is(err, processor.ErrInvalidRequest) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("analysis failed", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// analysis handles GET /api/v1/calls/{callID}/analysis.
func (s *Server) analysis(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	callID := chi.URLParam(r, "callID")

	res, ok := s.load(r.Context(), w, callID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// reclassify handles POST /api/v1/calls/{callID}/reclassify.
func (s *Server) reclassify(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	callID := chi.URLParam(r, "callID")

	res, ok := s.load(r.Context(), w, callID)
	if !ok {
		return
	}

	j, err := s.engine.Reclassify(r.Context(), res)
	if err != nil {
		s.logger.Error("reclassify failed", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "reclassify failed")
		return
	}
	if err := s.db.SaveJudgment(r.Context(), callID, j); err != nil {
		s.logger.Error("failed to save judgment", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save judgment")
		return
	}

	s.logger.Info("call reclassified", "call_id", callID)
	writeJSON(w, http.StatusOK, map[string]any{
		"call_id":              callID,
		"overall_call_emotion": j,
	})
}

func (s *Server) load(ctx context.Context, w http.ResponseWriter, callID string) (*timeline.FileResult, bool) {
	res, err := s.db.LoadAnalysis(ctx, callID)
	if err == nil {
		return res, true
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Error("failed to load analysis", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return nil, false
	}

	status, reason, statusErr := s.db.CallStatus(ctx, callID)
	if statusErr != nil {
		writeError(w, http.StatusNotFound, "call not found")
		return nil, false
	}
	body := map[string]string{"error": "analysis not available", "status": status}
	if reason != "" {
		body["block_reason"] = reason
	}
	writeJSON(w, http.StatusNotFound, body)
	return nil, false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
