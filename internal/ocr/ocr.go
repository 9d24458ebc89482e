package ocr

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
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"videopins-go/internal/logger"
	"videopins-go/internal/types"
)

// ErrOCR marks a failed frame-reading attempt. The pipeline degrades to
// no snippets rather than failing the run.
var ErrOCR = errors.New("ocr failed")

// Provider reads on-screen text out of sampled frames.
type Provider interface {
	ReadFrames(ctx context.Context, frames []types.Frame) ([]types.Snippet, error)
}

// Client talks to an OCR sidecar over HTTP, one frame per request.
// Frames with no legible text contribute nothing to the result.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type frameResponse struct {
	Lines []string `json:"lines"`
	Error string   `json:"error,omitempty"`
}

// NewClient builds an OCR client for the given sidecar URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ReadFrames OCRs every frame in order. A single unreadable frame is
// skipped; only a total service failure returns ErrOCR.
func (c *Client) ReadFrames(ctx context.Context, frames []types.Frame) ([]types.Snippet, error) {
	log := logger.Component("ocr")
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: OCR_URL not set", ErrOCR)
	}

	var (
		snippets []types.Snippet
		failures int
	)
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOCR, err)
		}
		lines, err := c.readFrame(ctx, frame)
		if err != nil {
			failures++
			log.WithError(err).WithField("frame", frame.Path).Debug("frame ocr failed")
			continue
		}
		text := joinLines(lines)
		if text == "" {
			continue
		}
		snippets = append(snippets, types.Snippet{TimestampMs: frame.TimestampMs, Text: text})
	}
	if len(frames) > 0 && failures == len(frames) {
		return nil, fmt.Errorf("%w: all %d frames failed", ErrOCR, failures)
	}

	sort.SliceStable(snippets, func(i, j int) bool { return snippets[i].TimestampMs < snippets[j].TimestampMs })
	log.WithField("snippets", len(snippets)).WithField("frames", len(frames)).Info("ocr complete")
	return snippets, nil
}

func (c *Client) readFrame(ctx context.Context, frame types.Frame) ([]string, error) {
	image, err := os.ReadFile(frame.Path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	var out frameResponse
	op := func() error {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		part, err := w.CreateFormFile("image", filepath.Base(frame.Path))
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := part.Write(image); err != nil {
			return backoff.Permanent(err)
		}
		if err := w.WriteField("timestamp_ms", strconv.FormatInt(frame.TimestampMs, 10)); err != nil {
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
		return nil, err
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	return out.Lines, nil
}

func joinLines(lines []string) string {
	var buf bytes.Buffer
	for _, line := range lines {
		if line == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(" | ")
		}
		buf.WriteString(line)
	}
	return buf.String()
}

// Mock returns no snippets, matching a video with no legible signage.
type Mock struct{}

func (Mock) ReadFrames(ctx context.Context, frames []types.Frame) ([]types.Snippet, error) {
	return nil, nil
}
