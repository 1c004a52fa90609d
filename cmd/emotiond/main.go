package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/analysis"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/anthropic"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/api"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/config"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/hermes"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/outcome"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/processor"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("emotiond starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tcfg, err := cfg.Timeline()
	if err != nil {
		slog.Error("invalid engine configuration", "error", err)
		os.Exit(1)
	}

	// Database is optional; without it analyses are returned but not stored
	var (
		analysisStore processor.AnalysisStore
		readStore     api.AnalysisStore
	)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		analysisStore, readStore = db, db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, running without persistence")
	}

	// Classification model is optional; without a key only the fallback runs
	var llm outcome.Completer
	var model api.LanguageModel
	if cfg.AnthropicAPIKey != "" {
		client := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		llm, model = client, client
		slog.Info("anthropic client ready", "model", client.Model())
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, outcome classification uses the fallback only")
	}

	engine, err := analysis.New(tcfg,
		outcome.New(llm, tcfg.TailWindow, slog.Default()),
		outcome.NewSummarizer(llm, slog.Default()),
		slog.Default())
	if err != nil {
		slog.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	// NATS/Hermes
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer hermesClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Processor: the main pipeline
	proc := processor.New(engine, analysisStore, hermesClient, cfg.MinCallMS, slog.Default())

	if err := hermesClient.Subscribe(hermes.SubjectPredictionsReady, proc.HandlePredictionsReady); err != nil {
		slog.Error("failed to subscribe to prediction events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, engine, readStore, hermesClient, model, slog.Default())
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("emotiond ready", "port", cfg.Port, "persistence", analysisStore != nil)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	cancel()
	slog.Info("emotiond stopped")
}

func setupLogging(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(level)})
	slog.SetDefault(slog.New(handler))
}
