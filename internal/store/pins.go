package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"videopins-go/internal/types"
)

// CreatePins persists approved pins in one transaction, assigning ids.
func (s *Store) CreatePins(ctx context.Context, pins []types.Pin) error {
	if len(pins) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create pins: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range pins {
		p := &pins[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.CreatedAt = now
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO pins (id, trip_id, candidate_id, name, address, latitude, longitude, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID,
			p.TripID,
			nullableString(p.CandidateID),
			p.Name,
			nullableString(p.Address),
			p.Latitude,
			p.Longitude,
			timestamp(now),
		); err != nil {
			return fmt.Errorf("insert pin for candidate %s: %w", p.CandidateID, err)
		}
	}
	return tx.Commit()
}

// ListPins returns the pins for a trip, newest first.
func (s *Store) ListPins(ctx context.Context, tripID string) ([]types.Pin, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, trip_id, candidate_id, name, address, latitude, longitude, created_at
         FROM pins WHERE trip_id = ? ORDER BY created_at DESC`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	defer rows.Close()

	var out []types.Pin
	for rows.Next() {
		var (
			p           types.Pin
			candidateID *string
			address     *string
			createdAt   string
		)
		if err := rows.Scan(&p.ID, &p.TripID, &candidateID, &p.Name, &address, &p.Latitude, &p.Longitude, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pin: %w", err)
		}
		// The candidate reference is cleared when a retry discards the
		// source candidate; the pin itself survives.
		if candidateID != nil {
			p.CandidateID = *candidateID
		}
		if address != nil {
			p.Address = *address
		}
		p.CreatedAt = parseTimestamp(createdAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pins: %w", err)
	}
	return out, nil
}
