package types

import "time"

// Status is the shared lifecycle for videos and jobs.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// ExtractionMethod tags which pass produced a candidate.
type ExtractionMethod string

const (
	MethodHeuristic  ExtractionMethod = "heuristic"
	MethodGenerative ExtractionMethod = "generative"
)

// Video is one uploaded travel video awaiting or through processing.
type Video struct {
	ID           string    `json:"id"`
	TripID       string    `json:"trip_id"`
	Filename     string    `json:"filename"`
	StoragePath  string    `json:"storage_path"`
	LocationHint string    `json:"location_hint,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Job tracks one processing run for a video. Retry resets the same row
// back to queued rather than creating a second job.
type Job struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Generative-pass observability, persisted regardless of success.
	GenerativeUsed     bool   `json:"generative_used"`
	GenerativeFallback string `json:"generative_fallback,omitempty"`
	GenerativePrompt   string `json:"generative_prompt,omitempty"`
	GenerativeOutput   string `json:"generative_output,omitempty"`
}

// Segment is one time-coded span of transcribed speech.
type Segment struct {
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// Snippet is one piece of on-screen text read from a sampled frame.
type Snippet struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Text        string `json:"text"`
}

// Frame is one sampled still with its offset into the video.
type Frame struct {
	TimestampMs int64  `json:"timestamp_ms"`
	Path        string `json:"path"`
}

// Evidence records what produced a candidate, kept for audit and debugging.
type Evidence struct {
	TranscriptSnippets []Segment          `json:"transcript_snippets,omitempty"`
	OCRSnippets        []Snippet          `json:"ocr_snippets,omitempty"`
	ScoreBreakdown     map[string]float64 `json:"score_breakdown,omitempty"`
	Quotes             []string           `json:"quotes,omitempty"`
}

// Candidate is a named place extracted from video evidence, later enriched
// by the place resolver. Resolver fields stay zero until enrichment runs.
type Candidate struct {
	ID          string           `json:"id"`
	VideoID     string           `json:"video_id"`
	Name        string           `json:"name"`
	AddressHint string           `json:"address_hint,omitempty"`
	Confidence  float64          `json:"confidence"`
	StartMs     *int64           `json:"start_ms,omitempty"`
	EndMs       *int64           `json:"end_ms,omitempty"`
	Evidence    Evidence         `json:"evidence"`
	Method      ExtractionMethod `json:"extraction_method"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	PlacesQuery   string `json:"places_query,omitempty"`
	PlacesID      string `json:"places_place_id,omitempty"`
	PlacesName    string `json:"places_name,omitempty"`
	PlacesAddress string `json:"places_address,omitempty"`
	PlacesRaw     string `json:"places_raw,omitempty"`
	PlacesFailed  bool   `json:"places_failed"`

	CreatedAt time.Time `json:"created_at"`
}

// Resolved reports whether enrichment attached usable coordinates.
func (c *Candidate) Resolved() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Pin is the terminal output of the pipeline: an approved candidate
// placed on the owning trip's map. Pins outlive their source candidate;
// CandidateID is empty once a retry has discarded it.
type Pin struct {
	ID          string    `json:"id"`
	TripID      string    `json:"trip_id"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrichment carries the resolver outcome persisted per candidate.
type Enrichment struct {
	Query     string
	PlaceID   string
	Name      string
	Address   string
	Latitude  *float64
	Longitude *float64
	Raw       string
	Failed    bool
}
