package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videopins-go/internal/types"
)

func writeTestFrames(t *testing.T, n int) []types.Frame {
	t.Helper()
	dir := t.TempDir()
	frames := make([]types.Frame, n)
	for i := range frames {
		path := filepath.Join(dir, "frame.jpg")
		if i > 0 {
			path = filepath.Join(dir, "frame"+string(rune('a'+i))+".jpg")
		}
		if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
			t.Fatalf("write frame: %v", err)
		}
		frames[i] = types.Frame{TimestampMs: int64(i) * 1000, Path: path}
	}
	return frames
}

func TestJoinLines(t *testing.T) {
	cases := []struct {
		lines []string
		want  string
	}{
		{nil, ""},
		{[]string{"EXAMPLE CAFE"}, "EXAMPLE CAFE"},
		{[]string{"EXAMPLE CAFE", "OPEN LATE"}, "EXAMPLE CAFE | OPEN LATE"},
		{[]string{"", "SIGN", ""}, "SIGN"},
	}
	for _, tc := range cases {
		if got := joinLines(tc.lines); got != tc.want {
			t.Errorf("joinLines(%v) = %q, want %q", tc.lines, got, tc.want)
		}
	}
}

func TestReadFramesCollectsSnippets(t *testing.T) {
	responses := []frameResponse{
		{Lines: []string{"EXAMPLE CAFE", "EST 2010"}},
		{Lines: nil},
		{Lines: []string{"ONE WAY"}},
	}
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		json.NewEncoder(w).Encode(responses[call])
		call++
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	snippets, err := client.ReadFrames(context.Background(), writeTestFrames(t, 3))
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("snippets = %+v", snippets)
	}
	if snippets[0].Text != "EXAMPLE CAFE | EST 2010" || snippets[0].TimestampMs != 0 {
		t.Fatalf("first snippet = %+v", snippets[0])
	}
	if snippets[1].Text != "ONE WAY" || snippets[1].TimestampMs != 2000 {
		t.Fatalf("second snippet = %+v", snippets[1])
	}
}

func TestReadFramesSkipsFailedFrames(t *testing.T) {
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 1 {
			http.Error(w, "unreadable", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(frameResponse{Lines: []string{"LEGIBLE SIGN"}})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	snippets, err := client.ReadFrames(context.Background(), writeTestFrames(t, 2))
	if err != nil {
		t.Fatalf("one bad frame must not fail the batch: %v", err)
	}
	if len(snippets) != 1 || snippets[0].Text != "LEGIBLE SIGN" {
		t.Fatalf("snippets = %+v", snippets)
	}
}

func TestReadFramesAllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service broken", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.ReadFrames(context.Background(), writeTestFrames(t, 2))
	if !errors.Is(err, ErrOCR) {
		t.Fatalf("expected ErrOCR when every frame fails, got %v", err)
	}
}

func TestReadFramesNoFrames(t *testing.T) {
	client := NewClient("http://unused", time.Second)
	snippets, err := client.ReadFrames(context.Background(), nil)
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("snippets = %+v", snippets)
	}
}

func TestReadFramesMissingURL(t *testing.T) {
	client := NewClient("", time.Second)
	if _, err := client.ReadFrames(context.Background(), writeTestFrames(t, 1)); !errors.Is(err, ErrOCR) {
		t.Fatalf("expected ErrOCR, got %v", err)
	}
}
