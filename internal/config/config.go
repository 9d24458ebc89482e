package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects the environment-driven settings for both binaries.
// Load never fails: every knob has a default so a bare environment still
// starts in mock-friendly local mode.
type Config struct {
	// Storage
	DBPath string

	// Worker
	PollInterval     time.Duration
	FrameIntervalSec int
	MaxCandidates    int

	// Transcription provider
	TranscribeURL     string
	MockTranscribe    bool
	TranscribeTimeout time.Duration

	// OCR provider
	OCRURL     string
	MockOCR    bool
	OCRTimeout time.Duration

	// Generative extraction
	UseGenerative     bool
	GenerativeURL     string
	GenerativeModel   string
	GenerativeTimeout time.Duration

	// Places / geocoding
	MapsAPIKey    string
	PlacesTimeout time.Duration

	// API server
	Port string
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		DBPath: envOr("DB_PATH", "videopins.db"),

		PollInterval:     envDuration("POLL_INTERVAL_SECONDS", 2*time.Second),
		FrameIntervalSec: envInt("FRAME_INTERVAL_SECONDS", 1),
		MaxCandidates:    envInt("MAX_CANDIDATES", 15),

		TranscribeURL:     os.Getenv("TRANSCRIBE_URL"),
		MockTranscribe:    envBool("USE_MOCK_TRANSCRIBE"),
		TranscribeTimeout: envDuration("TRANSCRIBE_TIMEOUT_SECONDS", 120*time.Second),

		OCRURL:     os.Getenv("OCR_URL"),
		MockOCR:    envBool("USE_MOCK_OCR"),
		OCRTimeout: envDuration("OCR_TIMEOUT_SECONDS", 60*time.Second),

		UseGenerative:     envBool("USE_GENERATIVE"),
		GenerativeURL:     envOr("GENERATIVE_URL", "http://localhost:11434/api/generate"),
		GenerativeModel:   envOr("GENERATIVE_MODEL", "qwen2.5:7b-instruct"),
		GenerativeTimeout: envDuration("GENERATIVE_TIMEOUT_SECONDS", 45*time.Second),

		MapsAPIKey:    envOr("GOOGLE_MAPS_API_KEY", os.Getenv("GOOGLE_PLACES_API_KEY")),
		PlacesTimeout: envDuration("PLACES_TIMEOUT_SECONDS", 20*time.Second),

		Port: envOr("PORT", "8080"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return def
}
