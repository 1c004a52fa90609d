package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/cli"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/config"
)

func main() {
	cfg := config.Load()

	// stdout carries results; logs go to stderr
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLevel(cfg.LogLevel)})

	deps := &cli.Dependencies{
		Config: cfg,
		Logger: slog.New(handler),
	}

	if err := cli.NewRootCmd(deps).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
