package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"videopins-go/internal/logger"
)

// BiasRadiusMeters is the fixed radius applied when a search is biased
// toward a geocoded location hint.
const BiasRadiusMeters = 50000

// ErrNoAPIKey is returned by provider calls when no key is configured.
var ErrNoAPIKey = errors.New("places: api key not configured")

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lng float64
}

// SearchResult is the extracted portion of a places-search hit. Raw holds
// the provider payload verbatim for audit; never assume its shape.
type SearchResult struct {
	PlaceID string
	Name    string
	Address string
	Lat     float64
	Lng     float64
	Raw     string
}

// Searcher resolves a free-text query to a place, optionally biased
// toward a point. A nil result with nil error means no match.
type Searcher interface {
	TextSearch(ctx context.Context, query string, bias *Point, radiusMeters int) (*SearchResult, error)
}

// Geocoder resolves free text to coordinates. Nil result means no match.
type Geocoder interface {
	Geocode(ctx context.Context, freeText string) (*Point, error)
}

// BuildQuery joins the candidate name, its address hint, and the video's
// location hint with ", ". Empty parts are dropped, as are parts that
// repeat an earlier part ignoring case.
func BuildQuery(parts ...string) string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key := strings.ToLower(part)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, part)
	}
	return strings.Join(out, ", ")
}

// Client implements Searcher and Geocoder against the Google Maps
// geocoding and text-search JSON endpoints.
type Client struct {
	apiKey     string
	geocodeURL string
	searchURL  string
	httpClient *http.Client
}

// NewClient builds a places client. An empty key is allowed; calls then
// fail with ErrNoAPIKey so candidates are uniformly marked unresolved.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		apiKey:     apiKey,
		geocodeURL: "https://maps.googleapis.com/maps/api/geocode/json",
		searchURL:  "https://maps.googleapis.com/maps/api/place/textsearch/json",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithEndpoints overrides the provider URLs (for testing).
func (c *Client) WithEndpoints(geocodeURL, searchURL string) *Client {
	c.geocodeURL = geocodeURL
	c.searchURL = searchURL
	return c
}

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type providerResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		FormattedAddress string   `json:"formatted_address"`
		Geometry         geometry `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves a location hint to a bias point.
func (c *Client) Geocode(ctx context.Context, freeText string) (*Point, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	params := url.Values{}
	params.Set("address", freeText)
	params.Set("key", c.apiKey)

	parsed, _, err := c.get(ctx, c.geocodeURL, params)
	if err != nil {
		return nil, err
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return nil, nil
	}
	loc := parsed.Results[0].Geometry.Location
	return &Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// TextSearch runs a free-text place search, biased when bias is non-nil.
func (c *Client) TextSearch(ctx context.Context, query string, bias *Point, radiusMeters int) (*SearchResult, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.apiKey)
	if bias != nil {
		params.Set("location", fmt.Sprintf("%f,%f", bias.Lat, bias.Lng))
		if radiusMeters <= 0 {
			radiusMeters = BiasRadiusMeters
		}
		params.Set("radius", strconv.Itoa(radiusMeters))
	}

	parsed, raw, err := c.get(ctx, c.searchURL, params)
	if err != nil {
		return nil, err
	}
	logger.Component("places").WithField("query", query).
		WithField("status", parsed.Status).
		WithField("results", len(parsed.Results)).
		WithField("used_bias", bias != nil).
		Debug("places text search")
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return nil, nil
	}
	hit := parsed.Results[0]
	return &SearchResult{
		PlaceID: hit.PlaceID,
		Name:    hit.Name,
		Address: hit.FormattedAddress,
		Lat:     hit.Geometry.Location.Lat,
		Lng:     hit.Geometry.Location.Lng,
		Raw:     raw,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*providerResponse, string, error) {
	var (
		parsed providerResponse
		raw    string
	)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: %s", string(body))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, string(body)))
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %v", err))
		}
		raw = string(body)
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, "", err
	}
	return &parsed, raw, nil
}
