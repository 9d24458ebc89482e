package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"videopins-go/internal/types"
)

const candidateColumns = `id, video_id, name, address_hint, confidence, start_ms, end_ms,
    evidence, extraction_method, latitude, longitude,
    places_query, places_place_id, places_name, places_address, places_raw, places_failed,
    created_at`

// SaveCandidates inserts the extracted candidates for a video in one
// transaction. IDs are assigned here; callers get them back on the slice.
func (s *Store) SaveCandidates(ctx context.Context, videoID string, candidates []types.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save candidates: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range candidates {
		c := &candidates[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.VideoID = videoID
		c.CreatedAt = now

		evidence, err := json.Marshal(c.Evidence)
		if err != nil {
			return fmt.Errorf("marshal evidence for %q: %w", c.Name, err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO video_candidates (
                id, video_id, name, address_hint, confidence, start_ms, end_ms,
                evidence, extraction_method, latitude, longitude,
                places_query, places_place_id, places_name, places_address, places_raw, places_failed,
                created_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID,
			c.VideoID,
			c.Name,
			nullableString(c.AddressHint),
			c.Confidence,
			nullableInt64(c.StartMs),
			nullableInt64(c.EndMs),
			string(evidence),
			c.Method,
			nullableFloat(c.Latitude),
			nullableFloat(c.Longitude),
			nullableString(c.PlacesQuery),
			nullableString(c.PlacesID),
			nullableString(c.PlacesName),
			nullableString(c.PlacesAddress),
			nullableString(c.PlacesRaw),
			boolToInt(c.PlacesFailed),
			timestamp(now),
		); err != nil {
			return fmt.Errorf("insert candidate %q: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// UpdateCandidateEnrichment writes the resolver outcome for one candidate
// in a single statement so readers never see partial resolver fields.
func (s *Store) UpdateCandidateEnrichment(ctx context.Context, id string, e types.Enrichment) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE video_candidates
         SET places_query = ?, places_place_id = ?, places_name = ?, places_address = ?,
             places_raw = ?, places_failed = ?, latitude = ?, longitude = ?
         WHERE id = ?`,
		nullableString(e.Query),
		nullableString(e.PlaceID),
		nullableString(e.Name),
		nullableString(e.Address),
		nullableString(e.Raw),
		boolToInt(e.Failed),
		nullableFloat(e.Latitude),
		nullableFloat(e.Longitude),
		id,
	)
	if err != nil {
		return fmt.Errorf("update candidate enrichment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update candidate enrichment: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCandidates returns a video's candidates ordered by confidence descending.
func (s *Store) ListCandidates(ctx context.Context, videoID string) ([]types.Candidate, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+candidateColumns+` FROM video_candidates
         WHERE video_id = ? ORDER BY confidence DESC, name ASC`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// GetCandidatesByIDs returns the candidates matching ids, in confidence order.
// Unknown ids are silently absent from the result.
func (s *Store) GetCandidatesByIDs(ctx context.Context, ids []string) ([]types.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+candidateColumns+` FROM video_candidates
         WHERE id IN (`+placeholders+`) ORDER BY confidence DESC, name ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get candidates by ids: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func collectCandidates(rows *sql.Rows) ([]types.Candidate, error) {
	var out []types.Candidate
	for rows.Next() {
		var (
			c                    types.Candidate
			addressHint          sql.NullString
			startMs, endMs       sql.NullInt64
			evidence             sql.NullString
			latitude, longitude  sql.NullFloat64
			query, placeID, name sql.NullString
			address, raw         sql.NullString
			failed               int
			createdAt            string
		)
		if err := rows.Scan(
			&c.ID, &c.VideoID, &c.Name, &addressHint, &c.Confidence, &startMs, &endMs,
			&evidence, &c.Method, &latitude, &longitude,
			&query, &placeID, &name, &address, &raw, &failed,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.AddressHint = addressHint.String
		if startMs.Valid {
			v := startMs.Int64
			c.StartMs = &v
		}
		if endMs.Valid {
			v := endMs.Int64
			c.EndMs = &v
		}
		if evidence.Valid && evidence.String != "" {
			if err := json.Unmarshal([]byte(evidence.String), &c.Evidence); err != nil {
				return nil, fmt.Errorf("unmarshal evidence for %q: %w", c.Name, err)
			}
		}
		if latitude.Valid {
			v := latitude.Float64
			c.Latitude = &v
		}
		if longitude.Valid {
			v := longitude.Float64
			c.Longitude = &v
		}
		c.PlacesQuery = query.String
		c.PlacesID = placeID.String
		c.PlacesName = name.String
		c.PlacesAddress = address.String
		c.PlacesRaw = raw.String
		c.PlacesFailed = failed != 0
		c.CreatedAt = parseTimestamp(createdAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}
