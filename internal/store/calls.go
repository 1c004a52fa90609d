package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Call analysis statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusBlocked    = "blocked"
	StatusFailed     = "failed"
)

// CallRecord is the call-level row written before analysis runs.
type CallRecord struct {
	CallID         string
	AgentID        string
	AgentName      string
	StartTimestamp *int64
	EndTimestamp   *int64
	DurationMS     *int64
	Summary        string
	Profile        map[string]any
	Status         string
	Allowed        bool
	BlockReason    string
	Constraints    any
}

// UpsertCall inserts or refreshes a call row. Empty fields never overwrite
// stored values.
func (s *Store) UpsertCall(ctx context.Context, c CallRecord) error {
	constraints, err := jsonOrNil(c.Constraints)
	if err != nil {
		return fmt.Errorf("marshal constraints: %w", err)
	}
	profile, err := jsonOrNil(c.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	status := c.Status
	if status == "" {
		status = StatusPending
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO calls (call_id, agent_id, agent_name, start_timestamp, end_timestamp, duration_ms,
			call_summary, profile, analysis_status, analysis_allowed, analysis_block_reason, analysis_constraints)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), $8, $9, $10, NULLIF($11, ''), $12)
		ON CONFLICT (call_id) DO UPDATE SET
			agent_id              = COALESCE(EXCLUDED.agent_id, calls.agent_id),
			agent_name            = COALESCE(EXCLUDED.agent_name, calls.agent_name),
			start_timestamp       = COALESCE(EXCLUDED.start_timestamp, calls.start_timestamp),
			end_timestamp         = COALESCE(EXCLUDED.end_timestamp, calls.end_timestamp),
			duration_ms           = COALESCE(EXCLUDED.duration_ms, calls.duration_ms),
			call_summary          = COALESCE(EXCLUDED.call_summary, calls.call_summary),
			profile               = COALESCE(EXCLUDED.profile, calls.profile),
			analysis_status       = EXCLUDED.analysis_status,
			analysis_allowed      = EXCLUDED.analysis_allowed,
			analysis_block_reason = EXCLUDED.analysis_block_reason,
			analysis_constraints  = COALESCE(EXCLUDED.analysis_constraints, calls.analysis_constraints),
			updated_at            = now()`,
		c.CallID, c.AgentID, c.AgentName, c.StartTimestamp, c.EndTimestamp, c.DurationMS,
		c.Summary, profile, status, c.Allowed, c.BlockReason, constraints,
	)
	if err != nil {
		return fmt.Errorf("upsert call: %w", err)
	}
	return nil
}

// SetCallStatus records an analysis status transition.
func (s *Store) SetCallStatus(ctx context.Context, callID, status, errMsg string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE calls SET analysis_status = $1, error_message = NULLIF($2, ''), updated_at = now()
		WHERE call_id = $3`,
		status, errMsg, callID,
	)
	if err != nil {
		return fmt.Errorf("set call status: %w", err)
	}
	return nil
}

// CallStatus returns the analysis status and block reason of a call.
func (s *Store) CallStatus(ctx context.Context, callID string) (status, blockReason string, err error) {
	var reason *string
	err = s.pool.QueryRow(ctx, `
		SELECT analysis_status, analysis_block_reason FROM calls WHERE call_id = $1`,
		callID,
	).Scan(&status, &reason)
	if err != nil {
		return "", "", notFound(err)
	}
	if reason != nil {
		blockReason = *reason
	}
	return status, blockReason, nil
}

func jsonOrNil(v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
