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

const jobColumns = `id, video_id, status, progress, error,
    generative_used, generative_fallback, generative_prompt, generative_output,
    created_at, updated_at`

// CreateJob enqueues a processing run for a video.
func (s *Store) CreateJob(ctx context.Context, videoID string) (*types.Job, error) {
	now := time.Now().UTC()
	job := &types.Job{
		ID:        uuid.New().String(),
		VideoID:   videoID,
		Status:    types.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO video_jobs (id, video_id, status, progress, created_at, updated_at)
         VALUES (?, ?, ?, 0, ?, ?)`,
		job.ID,
		job.VideoID,
		job.Status,
		timestamp(now),
		timestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches one job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*types.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM video_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// GetLatestJob returns the most recent job for a video, or ErrNotFound.
func (s *Store) GetLatestJob(ctx context.Context, videoID string) (*types.Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM video_jobs WHERE video_id = ? ORDER BY created_at DESC LIMIT 1`,
		videoID,
	)
	return scanJob(row)
}

// ClaimNextJob atomically moves the oldest queued job to processing and
// returns it. The conditional update guarantees at most one worker claims
// any given job. Returns (nil, nil) when the queue is empty.
func (s *Store) ClaimNextJob(ctx context.Context) (*types.Job, error) {
	for {
		var id string
		err := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM video_jobs WHERE status = ? ORDER BY created_at ASC LIMIT 1`,
			types.StatusQueued,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select queued job: %w", err)
		}

		res, err := s.db.ExecContext(
			ctx,
			`UPDATE video_jobs SET status = ?, progress = 0, error = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			types.StatusProcessing,
			timestamp(time.Now()),
			id,
			types.StatusQueued,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		if affected == 0 {
			// Raced with another worker; try the next queued job.
			continue
		}
		return s.GetJob(ctx, id)
	}
}

// UpdateJobProgress advances a job's progress. Progress never moves
// backwards within a run.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE video_jobs
         SET progress = CASE WHEN progress > ? THEN progress ELSE ? END, updated_at = ?
         WHERE id = ?`,
		progress,
		progress,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// SetJobGenerativeDebug persists the generative pass observability fields.
func (s *Store) SetJobGenerativeDebug(ctx context.Context, id string, used bool, fallback, prompt, output string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE video_jobs
         SET generative_used = ?, generative_fallback = ?, generative_prompt = ?, generative_output = ?, updated_at = ?
         WHERE id = ?`,
		boolToInt(used),
		nullableString(fallback),
		nullableString(prompt),
		nullableString(output),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set job generative debug: %w", err)
	}
	return nil
}

// FinishJob marks a job done with full progress.
func (s *Store) FinishJob(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE video_jobs SET status = ?, progress = 100, error = NULL, updated_at = ? WHERE id = ?`,
		types.StatusDone,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// FailJob marks a job failed, recording the error message and leaving
// progress where the run stopped.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE video_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		types.StatusFailed,
		message,
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// RetryJob resets a terminal job and its video back to queued, clearing
// progress, error, generative debug fields, and every artifact produced
// by the prior run so the rerun starts clean. Pins approved from prior
// candidates survive with their candidate reference cleared.
func (s *Store) RetryJob(ctx context.Context, videoID string) (*types.Job, error) {
	job, err := s.GetLatestJob(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if job.Status != types.StatusFailed && job.Status != types.StatusDone {
		return nil, fmt.Errorf("retry job: job is %s, only done or failed jobs can be retried", job.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("retry job: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := timestamp(time.Now())
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE video_jobs
         SET status = ?, progress = 0, error = NULL,
             generative_used = 0, generative_fallback = NULL,
             generative_prompt = NULL, generative_output = NULL,
             updated_at = ?
         WHERE id = ?`,
		types.StatusQueued, now, job.ID,
	); err != nil {
		return nil, fmt.Errorf("retry job: reset job: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx, `UPDATE videos SET status = ? WHERE id = ?`, types.StatusQueued, videoID,
	); err != nil {
		return nil, fmt.Errorf("retry job: reset video: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx, `DELETE FROM video_candidates WHERE video_id = ?`, videoID,
	); err != nil {
		return nil, fmt.Errorf("retry job: clear candidates: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx, `DELETE FROM video_transcripts WHERE video_id = ?`, videoID,
	); err != nil {
		return nil, fmt.Errorf("retry job: clear transcripts: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("retry job: %w", err)
	}
	return s.GetJob(ctx, job.ID)
}

func scanJob(row *sql.Row) (*types.Job, error) {
	var (
		job                      types.Job
		errMsg                   sql.NullString
		used                     int
		fallback, prompt, output sql.NullString
		createdAt, updatedAt     string
	)
	err := row.Scan(
		&job.ID, &job.VideoID, &job.Status, &job.Progress, &errMsg,
		&used, &fallback, &prompt, &output,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Error = errMsg.String
	job.GenerativeUsed = used != 0
	job.GenerativeFallback = fallback.String
	job.GenerativePrompt = prompt.String
	job.GenerativeOutput = output.String
	job.CreatedAt = parseTimestamp(createdAt)
	job.UpdatedAt = parseTimestamp(updatedAt)
	return &job, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
