package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.DBPath != "videopins.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("PollInterval = %s", cfg.PollInterval)
	}
	if cfg.FrameIntervalSec != 1 || cfg.MaxCandidates != 15 {
		t.Fatalf("worker knobs = %d, %d", cfg.FrameIntervalSec, cfg.MaxCandidates)
	}
	if cfg.GenerativeURL != "http://localhost:11434/api/generate" {
		t.Fatalf("GenerativeURL = %q", cfg.GenerativeURL)
	}
	if cfg.UseGenerative || cfg.MockTranscribe || cfg.MockOCR {
		t.Fatal("boolean knobs must default off")
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q", cfg.Port)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/other.db")
	t.Setenv("POLL_INTERVAL_SECONDS", "7")
	t.Setenv("FRAME_INTERVAL_SECONDS", "3")
	t.Setenv("MAX_CANDIDATES", "5")
	t.Setenv("USE_MOCK_TRANSCRIBE", "true")
	t.Setenv("USE_GENERATIVE", "true")
	t.Setenv("GOOGLE_MAPS_API_KEY", "key-123")

	cfg := Load()
	if cfg.DBPath != "/tmp/other.db" {
		t.Fatalf("DBPath = %q", cfg.DBPath)
	}
	if cfg.PollInterval != 7*time.Second || cfg.FrameIntervalSec != 3 || cfg.MaxCandidates != 5 {
		t.Fatalf("worker knobs = %s, %d, %d", cfg.PollInterval, cfg.FrameIntervalSec, cfg.MaxCandidates)
	}
	if !cfg.MockTranscribe || !cfg.UseGenerative {
		t.Fatal("boolean overrides not applied")
	}
	if cfg.MapsAPIKey != "key-123" {
		t.Fatalf("MapsAPIKey = %q", cfg.MapsAPIKey)
	}
}

func TestLoadRejectsNonPositiveNumbers(t *testing.T) {
	t.Setenv("FRAME_INTERVAL_SECONDS", "-2")
	t.Setenv("MAX_CANDIDATES", "zero")

	cfg := Load()
	if cfg.FrameIntervalSec != 1 || cfg.MaxCandidates != 15 {
		t.Fatalf("invalid values must fall back to defaults, got %d, %d", cfg.FrameIntervalSec, cfg.MaxCandidates)
	}
}
