package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"videopins-go/internal/logger"
	"videopins-go/internal/types"
)

// ErrTranscription marks a failed transcription attempt. The pipeline
// degrades to an empty transcript rather than failing the run.
var ErrTranscription = errors.New("transcription failed")

// Provider converts an extracted audio track into time-coded segments.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.Segment, error)
}

// Client talks to a whisper-style transcription service over HTTP:
// the audio file goes up as multipart form data, segments come back as JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type response struct {
	Segments []types.Segment `json:"segments"`
	Error    string          `json:"error,omitempty"`
}

// NewClient builds a transcription client for the given service URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the audio and returns normalized segments. Silence
// yields an empty slice, not an error.
func (c *Client) Transcribe(ctx context.Context, audioPath string) ([]types.Segment, error) {
	log := logger.Component("transcribe")
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: TRANSCRIBE_URL not set", ErrTranscription)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read audio: %v", ErrTranscription, err)
	}

	var out response
	op := func() error {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		part, err := w.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := part.Write(audio); err != nil {
			return backoff.Permanent(err)
		}
		_ = w.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error: %s", string(raw))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, string(raw)))
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %v", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		log.WithError(err).Warn("transcription request failed")
		return nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrTranscription, out.Error)
	}

	segments := Normalize(out.Segments)
	log.WithField("segments", len(segments)).Info("transcription complete")
	return segments, nil
}

// Normalize drops empty segments, clamps inverted time windows, and
// orders segments by start time ascending, shorter windows first on ties.
func Normalize(segments []types.Segment) []types.Segment {
	out := make([]types.Segment, 0, len(segments))
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		if s.StartMs < 0 {
			s.StartMs = 0
		}
		if s.EndMs < s.StartMs {
			s.EndMs = s.StartMs
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartMs != out[j].StartMs {
			return out[i].StartMs < out[j].StartMs
		}
		return out[i].EndMs < out[j].EndMs
	})
	return out
}

// Mock returns a fixed transcript for offline runs.
type Mock struct{}

func (Mock) Transcribe(ctx context.Context, audioPath string) ([]types.Segment, error) {
	return []types.Segment{
		{StartMs: 0, EndMs: 3000, Text: "grab coffee at Example Cafe"},
		{StartMs: 3000, EndMs: 6500, Text: "then we're heading downtown"},
	}, nil
}
