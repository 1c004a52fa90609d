package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/daniyalraza-braincx/emotion-extractor/internal/emotion"
	"github.com/daniyalraza-braincx/emotion-extractor/internal/timeline"
)

const summaryTypeCall = "call"

// SaveAnalysis replaces the stored analysis of a call with res, the
// call-level result. Tables: emotion_segments, emotion_predictions,
// transcript_segments, analysis_summaries, calls.
func (s *Store) SaveAnalysis(ctx context.Context, callID string, res timeline.FileResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Make sure the call row exists
	_, err = tx.Exec(ctx, `
		INSERT INTO calls (call_id, analysis_status) VALUES ($1, $2)
		ON CONFLICT (call_id) DO NOTHING`,
		callID, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("ensure call: %w", err)
	}

	// 2. Clear the previous analysis
	for _, table := range []string{"emotion_segments", "transcript_segments", "analysis_summaries"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE call_id = $1", callID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	// 3. Insert segments with their ranked predictions
	if err := insertSegments(ctx, tx, callID, string(timeline.SourceProsody), res.Prosody); err != nil {
		return err
	}
	if err := insertSegments(ctx, tx, callID, string(timeline.SourceBurst), res.Burst); err != nil {
		return err
	}

	// 4. Insert transcript
	for i, u := range res.Metadata.Transcript {
		_, err = tx.Exec(ctx, `
			INSERT INTO transcript_segments (id, call_id, speaker, start_time, end_time, text, confidence, seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.New(), callID, u.Speaker, u.Start, u.End, u.Text, u.Confidence, i,
		)
		if err != nil {
			return fmt.Errorf("insert transcript segment: %w", err)
		}
	}

	// 5. Insert summary
	if res.Summary != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO analysis_summaries (id, call_id, summary_text, summary_type)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), callID, res.Summary, summaryTypeCall,
		)
		if err != nil {
			return fmt.Errorf("insert summary: %w", err)
		}
	}

	// 6. Mark the call analyzed
	judgment, label, err := judgmentColumns(res.Metadata.OverallCallEmotion)
	if err != nil {
		return err
	}
	profile, err := jsonOrNil(res.Metadata.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	var resultID *uuid.UUID
	if id, err := uuid.Parse(res.Metadata.ResultID); err == nil {
		resultID = &id
	}
	_, err = tx.Exec(ctx, `
		UPDATE calls SET
			analysis_status       = $2,
			analysis_available    = true,
			error_message         = NULL,
			result_id             = $3,
			speakers              = $4,
			analysis_errors       = $5,
			transcript_available  = $6,
			profile               = COALESCE($7, profile),
			overall_emotion_json  = $8,
			overall_emotion_label = $9,
			updated_at            = now()
		WHERE call_id = $1`,
		callID, StatusCompleted, resultID, res.Metadata.Speakers, res.Metadata.Errors,
		res.Metadata.TranscriptAvailable, profile, judgment, label,
	)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertSegments stores segs in timeline order; seq records each segment's
// position so equal start times load back in the same order.
func insertSegments(ctx context.Context, tx pgx.Tx, callID, segmentType string, segs []timeline.ReconciledSegment) error {
	for i, seg := range segs {
		segID := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO emotion_segments (id, call_id, segment_type, time_start, time_end, speaker, text, transcript_text, primary_category, source, seq)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)`,
			segID, callID, segmentType, seg.TimeStart, seg.TimeEnd, seg.Speaker, seg.Text, seg.TranscriptText,
			string(seg.PrimaryCategory), string(seg.Source), i,
		)
		if err != nil {
			return fmt.Errorf("insert %s segment: %w", segmentType, err)
		}

		for rank, e := range seg.TopEmotions {
			_, err := tx.Exec(ctx, `
				INSERT INTO emotion_predictions (id, segment_id, emotion_name, score, percentage, category, rank)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), segID, e.Name, e.Score, e.Percentage, string(e.Category), rank+1,
			)
			if err != nil {
				return fmt.Errorf("insert prediction: %w", err)
			}
		}
	}
	return nil
}

// SaveJudgment replaces the stored outcome judgment of a call.
func (s *Store) SaveJudgment(ctx context.Context, callID string, j *timeline.Judgment) error {
	judgment, label, err := judgmentColumns(j)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE calls SET overall_emotion_json = $2, overall_emotion_label = $3, updated_at = now()
		WHERE call_id = $1`,
		callID, judgment, label,
	)
	if err != nil {
		return fmt.Errorf("save judgment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LoadAnalysis reconstructs the call-level result of a completed analysis.
func (s *Store) LoadAnalysis(ctx context.Context, callID string) (*timeline.FileResult, error) {
	var (
		available           bool
		resultID            *uuid.UUID
		speakers, errs      []string
		transcriptAvailable bool
		profileJSON         []byte
		judgmentJSON        []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT analysis_available, result_id, speakers, analysis_errors, transcript_available, profile, overall_emotion_json
		FROM calls WHERE call_id = $1`,
		callID,
	).Scan(&available, &resultID, &speakers, &errs, &transcriptAvailable, &profileJSON, &judgmentJSON)
	if err != nil {
		return nil, notFound(err)
	}
	if !available {
		return nil, ErrNotFound
	}

	res := &timeline.FileResult{Filename: callID + "_combined"}
	res.Metadata = timeline.Metadata{
		CallID:              callID,
		Combined:            len(speakers) > 1,
		Speakers:            speakers,
		Errors:              errs,
		TranscriptAvailable: transcriptAvailable,
	}
	if resultID != nil {
		res.Metadata.ResultID = resultID.String()
	}
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &res.Metadata.Profile); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
	}
	if len(judgmentJSON) > 0 {
		var j timeline.Judgment
		if err := json.Unmarshal(judgmentJSON, &j); err != nil {
			return nil, fmt.Errorf("decode judgment: %w", err)
		}
		res.Metadata.OverallCallEmotion = &j
	}

	if res.Prosody, err = s.loadSegments(ctx, callID, string(timeline.SourceProsody)); err != nil {
		return nil, err
	}
	if res.Burst, err = s.loadSegments(ctx, callID, string(timeline.SourceBurst)); err != nil {
		return nil, err
	}
	res.Metadata.CategoryCounts = timeline.CountCategories(res.Prosody)

	if res.Metadata.Transcript, err = s.loadTranscript(ctx, callID); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `
		SELECT summary_text FROM analysis_summaries WHERE call_id = $1
		ORDER BY created_at DESC LIMIT 1`,
		callID,
	).Scan(&res.Summary)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load summary: %w", err)
	}
	return res, nil
}

func (s *Store) loadSegments(ctx context.Context, callID, segmentType string) ([]timeline.ReconciledSegment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.time_start, s.time_end, COALESCE(s.speaker, ''), COALESCE(s.text, ''),
			COALESCE(s.transcript_text, ''), COALESCE(s.primary_category, ''), COALESCE(s.source, ''),
			p.emotion_name, p.score, p.percentage, p.category
		FROM emotion_segments s
		LEFT JOIN emotion_predictions p ON p.segment_id = s.id
		WHERE s.call_id = $1 AND s.segment_type = $2
		ORDER BY s.seq, p.rank`,
		callID, segmentType,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s segments: %w", segmentType, err)
	}
	defer rows.Close()

	var (
		out    []timeline.ReconciledSegment
		lastID uuid.UUID
	)
	for rows.Next() {
		var (
			id                    uuid.UUID
			seg                   timeline.ReconciledSegment
			category, source      string
			name, emotionCategory *string
			score, percentage     *float64
		)
		if err := rows.Scan(&id, &seg.TimeStart, &seg.TimeEnd, &seg.Speaker, &seg.Text, &seg.TranscriptText,
			&category, &source, &name, &score, &percentage, &emotionCategory); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}

		if len(out) == 0 || id != lastID {
			seg.PrimaryCategory = emotion.Category(category)
			seg.Source = timeline.Source(source)
			seg.TopEmotions = []timeline.RankedEmotion{}
			out = append(out, seg)
			lastID = id
		}
		if name != nil {
			cur := &out[len(out)-1]
			cur.TopEmotions = append(cur.TopEmotions, timeline.RankedEmotion{
				Name:       *name,
				Score:      deref(score),
				Percentage: deref(percentage),
				Category:   emotion.Category(derefString(emotionCategory)),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate segments: %w", err)
	}
	return out, nil
}

func (s *Store) loadTranscript(ctx context.Context, callID string) ([]timeline.Utterance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT speaker, start_time, end_time, text, confidence
		FROM transcript_segments WHERE call_id = $1
		ORDER BY seq`,
		callID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var out []timeline.Utterance
	for rows.Next() {
		var u timeline.Utterance
		if err := rows.Scan(&u.Speaker, &u.Start, &u.End, &u.Text, &u.Confidence); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript: %w", err)
	}
	return out, nil
}

func judgmentColumns(j *timeline.Judgment) ([]byte, *string, error) {
	if j == nil {
		return nil, nil, nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal judgment: %w", err)
	}
	label := string(j.Label)
	return data, &label, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
