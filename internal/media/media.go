package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"videopins-go/internal/types"
)

// ErrMedia marks a video file the preprocessor cannot read or decode.
// This error is fatal for the run.
var ErrMedia = errors.New("media unreadable")

var framePattern = regexp.MustCompile(`frame_(\d+)\.jpg$`)

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > 500 {
			msg = msg[len(msg)-500:]
		}
		return fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return nil
}

// Preprocessor extracts the audio track and sampled frames from a video
// file using ffmpeg.
type Preprocessor struct {
	ffmpegPath    string
	frameInterval int
	runner        commandRunner
}

// NewPreprocessor builds a preprocessor sampling one frame every
// frameIntervalSec seconds.
func NewPreprocessor(ffmpegPath string, frameIntervalSec int) *Preprocessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if frameIntervalSec <= 0 {
		frameIntervalSec = 1
	}
	return &Preprocessor{
		ffmpegPath:    ffmpegPath,
		frameInterval: frameIntervalSec,
		runner:        execRunner{},
	}
}

// WithRunner overrides process execution (for testing).
func (p *Preprocessor) WithRunner(runner commandRunner) *Preprocessor {
	p.runner = runner
	return p
}

// ExtractAudio writes the video's audio track as mono 16 kHz WAV and
// returns the file path.
func (p *Preprocessor) ExtractAudio(ctx context.Context, videoPath string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMedia, videoPath, err)
	}
	dir, err := os.MkdirTemp("", "video_audio_")
	if err != nil {
		return "", fmt.Errorf("audio temp dir: %w", err)
	}
	audioPath := filepath.Join(dir, "audio.wav")
	args := []string{"-y", "-i", videoPath, "-vn", "-ac", "1", "-ar", "16000", audioPath}
	if err := p.runner.Run(ctx, p.ffmpegPath, args...); err != nil {
		return "", fmt.Errorf("%w: extract audio: %v", ErrMedia, err)
	}
	return audioPath, nil
}

// SampleFrames writes one JPEG per sampling interval into a fresh temp
// directory and returns the frames ordered by timestamp along with the
// directory, which the caller releases via CleanupDir. The directory is
// returned even when the video yields no frames.
func (p *Preprocessor) SampleFrames(ctx context.Context, videoPath string) ([]types.Frame, string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrMedia, videoPath, err)
	}
	dir, err := os.MkdirTemp("", "video_frames_")
	if err != nil {
		return nil, "", fmt.Errorf("frames temp dir: %w", err)
	}
	pattern := filepath.Join(dir, "frame_%06d.jpg")
	fps := fmt.Sprintf("fps=1/%d", p.frameInterval)
	args := []string{"-y", "-i", videoPath, "-vf", fps, "-q:v", "2", pattern}
	if err := p.runner.Run(ctx, p.ffmpegPath, args...); err != nil {
		CleanupDir(dir)
		return nil, "", fmt.Errorf("%w: sample frames: %v", ErrMedia, err)
	}
	frames, err := p.collectFrames(dir)
	if err != nil {
		CleanupDir(dir)
		return nil, "", err
	}
	return frames, dir, nil
}

// collectFrames maps ffmpeg's 1-based frame numbering back to timestamps.
func (p *Preprocessor) collectFrames(dir string) ([]types.Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}
	var frames []types.Frame
	for _, entry := range entries {
		match := framePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if index < 1 {
			index = 1
		}
		frames = append(frames, types.Frame{
			TimestampMs: int64(index-1) * int64(p.frameInterval) * 1000,
			Path:        filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].TimestampMs < frames[j].TimestampMs })
	return frames, nil
}

// Cleanup removes the temporary directory holding a produced artifact.
func Cleanup(path string) {
	if path == "" {
		return
	}
	_ = os.RemoveAll(filepath.Dir(path))
}

// CleanupDir removes a frames directory returned by SampleFrames.
func CleanupDir(dir string) {
	if dir == "" {
		return
	}
	_ = os.RemoveAll(dir)
}
