package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"videopins-go/internal/types"
)

// SaveTranscript stores a transcript for a video. Older transcripts are kept
// for inspection; readers take the most recent row.
func (s *Store) SaveTranscript(ctx context.Context, videoID string, segments []types.Segment) error {
	payload, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO video_transcripts (id, video_id, segments, created_at) VALUES (?, ?, ?, ?)`,
		uuid.New().String(),
		videoID,
		string(payload),
		timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	return nil
}

// LatestTranscript returns the most recently saved transcript for a video,
// or ErrNotFound when none exists.
func (s *Store) LatestTranscript(ctx context.Context, videoID string) ([]types.Segment, error) {
	var payload string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT segments FROM video_transcripts WHERE video_id = ? ORDER BY created_at DESC LIMIT 1`,
		videoID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select transcript: %w", err)
	}

	var segments []types.Segment
	if err := json.Unmarshal([]byte(payload), &segments); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return segments, nil
}
