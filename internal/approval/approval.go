// Package approval converts resolved candidates into trip pins. A
// candidate without coordinates is never pinned; it is skipped and
// reported back to the caller.
package approval

import (
	"context"
	"errors"
	"fmt"

	"videopins-go/internal/store"
	"videopins-go/internal/types"
)

// ErrNothingToApprove is returned when no submitted candidate has
// resolved coordinates.
var ErrNothingToApprove = errors.New("approval: no submitted candidate has resolved coordinates")

// Result reports what an approval created and what it had to skip.
type Result struct {
	Created    int         `json:"created"`
	Pins       []types.Pin `json:"pins"`
	SkippedIDs []string    `json:"skipped_ids,omitempty"`
}

// Service creates pins from approved candidates.
type Service struct {
	store *store.Store
}

// NewService builds the approval service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Approve creates one pin per resolved candidate among candidateIDs in
// the video's owning trip. Candidates lacking coordinates are skipped and
// listed in the result; if none is resolvable the call fails.
func (s *Service) Approve(ctx context.Context, videoID string, candidateIDs []string) (*Result, error) {
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", err)
	}

	candidates, err := s.store.GetCandidatesByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	result := &Result{}
	var pins []types.Pin
	for _, c := range candidates {
		if c.VideoID != videoID {
			result.SkippedIDs = append(result.SkippedIDs, c.ID)
			continue
		}
		if !c.Resolved() {
			result.SkippedIDs = append(result.SkippedIDs, c.ID)
			continue
		}
		name := c.PlacesName
		if name == "" {
			name = c.Name
		}
		pins = append(pins, types.Pin{
			TripID:      video.TripID,
			CandidateID: c.ID,
			Name:        name,
			Address:     c.PlacesAddress,
			Latitude:    *c.Latitude,
			Longitude:   *c.Longitude,
		})
	}

	if len(pins) == 0 {
		return nil, fmt.Errorf("%w: %d submitted", ErrNothingToApprove, len(candidateIDs))
	}
	if err := s.store.CreatePins(ctx, pins); err != nil {
		return nil, fmt.Errorf("create pins: %w", err)
	}

	result.Created = len(pins)
	result.Pins = pins
	return result, nil
}
