package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	APIToken        string

	TopN                 int
	TailWindow           int
	NearDuplicateOverlap float64
	TaxonomyFile         string
	MinCallMS            int64
}

func Load() Config {
	return Config{
		Port:            envInt("EMOTION_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("EMOTION_MODEL", "claude-sonnet-4-20250514"),
		APIToken:        envStr("EMOTION_API_TOKEN", ""),

		TopN:                 envInt("EMOTION_TOP_N", timeline.DefaultTopN),
		TailWindow:           envInt("EMOTION_TAIL_WINDOW", timeline.DefaultTailWindow),
		NearDuplicateOverlap: envFloat("EMOTION_NEAR_DUP_OVERLAP", 0),
		TaxonomyFile:         envStr("EMOTION_TAXONOMY_FILE", ""),
		MinCallMS:            int64(envInt("EMOTION_MIN_CALL_MS", 15000)),
	}
}

// Timeline builds the engine configuration, loading the taxonomy override
// file when one is set.
func (c Config) Timeline() (timeline.Config, error) {
	cfg := timeline.DefaultConfig()
	cfg.TopN = c.TopN
	cfg.TailWindow = c.TailWindow
	cfg.NearDuplicateOverlap = c.NearDuplicateOverlap

	if c.TaxonomyFile != "" {
		tax, err := emotion.LoadTaxonomy(c.TaxonomyFile)
		if err != nil {
			return timeline.Config{}, fmt.Errorf("taxonomy: %w", err)
		}
		cfg.Taxonomy = tax
	}

	if err := cfg.Validate(); err != nil {
		return timeline.Config{}, err
	}
	return cfg, nil
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
