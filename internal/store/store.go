package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a call has no stored analysis.
var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the analysis tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	call_id               TEXT PRIMARY KEY,
	agent_id              TEXT,
	agent_name            TEXT,
	start_timestamp       BIGINT,
	end_timestamp         BIGINT,
	duration_ms           BIGINT,
	call_summary          TEXT,
	profile               JSONB,
	analysis_status       TEXT NOT NULL DEFAULT 'pending',
	analysis_allowed      BOOLEAN NOT NULL DEFAULT true,
	analysis_block_reason TEXT,
	analysis_constraints  JSONB,
	analysis_available    BOOLEAN NOT NULL DEFAULT false,
	error_message         TEXT,
	result_id             UUID,
	speakers              TEXT[],
	analysis_errors       TEXT[],
	transcript_available  BOOLEAN NOT NULL DEFAULT false,
	overall_emotion_label TEXT,
	overall_emotion_json  JSONB,
	created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS calls_status_idx ON calls (analysis_status);
CREATE INDEX IF NOT EXISTS calls_emotion_label_idx ON calls (overall_emotion_label);

CREATE TABLE IF NOT EXISTS emotion_segments (
	id               UUID PRIMARY KEY,
	call_id          TEXT NOT NULL REFERENCES calls (call_id) ON DELETE CASCADE,
	segment_type     TEXT NOT NULL,
	time_start       DOUBLE PRECISION NOT NULL,
	time_end         DOUBLE PRECISION NOT NULL,
	speaker          TEXT,
	text             TEXT,
	transcript_text  TEXT,
	primary_category TEXT,
	source           TEXT,
	seq              INTEGER NOT NULL DEFAULT 0
);

ALTER TABLE emotion_segments ADD COLUMN IF NOT EXISTS seq INTEGER NOT NULL DEFAULT 0;

CREATE INDEX IF NOT EXISTS emotion_segments_call_idx ON emotion_segments (call_id, segment_type, seq);

CREATE TABLE IF NOT EXISTS emotion_predictions (
	id           UUID PRIMARY KEY,
	segment_id   UUID NOT NULL REFERENCES emotion_segments (id) ON DELETE CASCADE,
	emotion_name TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	percentage   DOUBLE PRECISION NOT NULL,
	category     TEXT NOT NULL,
	rank         INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS emotion_predictions_segment_idx ON emotion_predictions (segment_id, rank);

CREATE TABLE IF NOT EXISTS transcript_segments (
	id         UUID PRIMARY KEY,
	call_id    TEXT NOT NULL REFERENCES calls (call_id) ON DELETE CASCADE,
	speaker    TEXT NOT NULL,
	start_time DOUBLE PRECISION NOT NULL,
	end_time   DOUBLE PRECISION NOT NULL,
	text       TEXT NOT NULL,
	confidence DOUBLE PRECISION,
	seq        INTEGER NOT NULL DEFAULT 0
);

ALTER TABLE transcript_segments ADD COLUMN IF NOT EXISTS seq INTEGER NOT NULL DEFAULT 0;

CREATE TABLE IF NOT EXISTS analysis_summaries (
	id           UUID PRIMARY KEY,
	call_id      TEXT NOT NULL REFERENCES calls (call_id) ON DELETE CASCADE,
	summary_text TEXT NOT NULL,
	summary_type TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
