package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"videopins-go/internal/types"
)

// CreateVideo registers an uploaded video, starting its lifecycle at queued.
func (s *Store) CreateVideo(ctx context.Context, tripID, filename, storagePath, locationHint string) (*types.Video, error) {
	now := time.Now().UTC()
	video := &types.Video{
		ID:           uuid.New().String(),
		TripID:       tripID,
		Filename:     filename,
		StoragePath:  storagePath,
		LocationHint: locationHint,
		Status:       types.StatusQueued,
		CreatedAt:    now,
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO videos (id, trip_id, filename, storage_path, location_hint, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		video.ID,
		video.TripID,
		video.Filename,
		video.StoragePath,
		nullableString(video.LocationHint),
		video.Status,
		timestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

// GetVideo fetches one video by id.
func (s *Store) GetVideo(ctx context.Context, id string) (*types.Video, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, trip_id, filename, storage_path, location_hint, status, created_at
         FROM videos WHERE id = ?`,
		id,
	)
	return scanVideo(row)
}

// UpdateVideoStatus mirrors the owning job's status onto the video row.
func (s *Store) UpdateVideoStatus(ctx context.Context, id string, status types.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update video status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVideo(row *sql.Row) (*types.Video, error) {
	var (
		video     types.Video
		hint      sql.NullString
		createdAt string
	)
	err := row.Scan(&video.ID, &video.TripID, &video.Filename, &video.StoragePath, &hint, &video.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan video: %w", err)
	}
	video.LocationHint = hint.String
	video.CreatedAt = parseTimestamp(createdAt)
	return &video, nil
}
