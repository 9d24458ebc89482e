package places

import (
	"context"

	"videopins-go/internal/logger"
	"videopins-go/internal/types"
)

// PersistFunc writes one candidate's resolver outcome before the enricher
// moves on, so partial enrichment survives a crash mid-batch.
type PersistFunc func(ctx context.Context, candidateID string, e types.Enrichment) error

// Enricher resolves extracted candidates against the places provider.
type Enricher struct {
	searcher Searcher
	geocoder Geocoder
}

// NewEnricher builds an enricher over the given provider clients.
func NewEnricher(searcher Searcher, geocoder Geocoder) *Enricher {
	return &Enricher{searcher: searcher, geocoder: geocoder}
}

// EnrichAll resolves every candidate in place. Per-candidate failures mark
// places_failed and continue; only persistence errors abort the batch.
// The geocode bias is computed once per call and cached for the batch,
// never shared across runs.
func (e *Enricher) EnrichAll(ctx context.Context, candidates []types.Candidate, locationHint string, persist PersistFunc) error {
	log := logger.Component("places")

	var bias *Point
	if locationHint != "" {
		point, err := e.geocoder.Geocode(ctx, locationHint)
		if err != nil {
			log.WithError(err).WithField("hint", locationHint).Warn("geocoding location hint failed, searching without bias")
		} else {
			bias = point
		}
	}

	for i := range candidates {
		c := &candidates[i]
		enrichment := e.resolve(ctx, c, locationHint, bias)
		applyEnrichment(c, enrichment)
		if err := persist(ctx, c.ID, enrichment); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enricher) resolve(ctx context.Context, c *types.Candidate, locationHint string, bias *Point) types.Enrichment {
	log := logger.Component("places").WithField("candidate", c.Name)

	query := BuildQuery(c.Name, c.AddressHint, locationHint)
	enrichment := types.Enrichment{
		Query: query,
		// A failed lookup keeps whatever coordinates the candidate had.
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Failed:    true,
	}
	if query == "" {
		return enrichment
	}

	result, err := e.searcher.TextSearch(ctx, query, bias, BiasRadiusMeters)
	if err != nil {
		log.WithError(err).Warn("places search failed")
		return enrichment
	}
	if result == nil {
		log.Info("places search returned no results")
		return enrichment
	}

	lat, lng := result.Lat, result.Lng
	enrichment.PlaceID = result.PlaceID
	enrichment.Name = result.Name
	enrichment.Address = result.Address
	enrichment.Latitude = &lat
	enrichment.Longitude = &lng
	enrichment.Raw = result.Raw
	enrichment.Failed = false
	return enrichment
}

func applyEnrichment(c *types.Candidate, e types.Enrichment) {
	c.PlacesQuery = e.Query
	c.PlacesID = e.PlaceID
	c.PlacesName = e.Name
	c.PlacesAddress = e.Address
	c.PlacesRaw = e.Raw
	c.PlacesFailed = e.Failed
	c.Latitude = e.Latitude
	c.Longitude = e.Longitude
}
