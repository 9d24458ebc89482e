// Package pipeline drives the video-to-candidate state machine: it claims
// queued jobs, runs the preprocessing, transcription, OCR, extraction, and
// enrichment stages in order, and checkpoints every artifact so a run can
// be inspected or retried at any point.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"videopins-go/internal/extract"
	"videopins-go/internal/logger"
	"videopins-go/internal/media"
	"videopins-go/internal/ocr"
	"videopins-go/internal/places"
	"videopins-go/internal/store"
	"videopins-go/internal/transcribe"
	"videopins-go/internal/types"
)

// Progress checkpoints per stage boundary.
const (
	progressClaimed   = 10
	progressEvidence  = 40
	progressExtracted = 70
)

// Worker polls for queued jobs and processes one video at a time.
// Multiple workers may run against the same store; the atomic claim
// guarantees at most one active processor per job.
type Worker struct {
	store         *store.Store
	preprocessor  *media.Preprocessor
	transcriber   transcribe.Provider
	reader        ocr.Provider
	generative    *extract.GenerativeExtractor
	enricher      *places.Enricher
	pollInterval  time.Duration
	maxCandidates int
	log           *logrus.Entry
}

// New assembles a worker over its stage collaborators.
func New(
	st *store.Store,
	preprocessor *media.Preprocessor,
	transcriber transcribe.Provider,
	reader ocr.Provider,
	generative *extract.GenerativeExtractor,
	enricher *places.Enricher,
	pollInterval time.Duration,
	maxCandidates int,
) *Worker {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if maxCandidates <= 0 {
		maxCandidates = 15
	}
	return &Worker{
		store:         st,
		preprocessor:  preprocessor,
		transcriber:   transcriber,
		reader:        reader,
		generative:    generative,
		enricher:      enricher,
		pollInterval:  pollInterval,
		maxCandidates: maxCandidates,
		log:           logger.Component("pipeline"),
	}
}

// Run polls the job queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.WithField("poll_interval", w.pollInterval.String()).Info("worker started")
	for {
		job, err := w.store.ClaimNextJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.WithError(err).Error("claiming next job failed")
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.pollInterval):
			}
			continue
		}
		w.ProcessJob(ctx, job)
	}
}

// ProcessJob drives one claimed job through every stage to a terminal
// status. Stage failures that the policy allows degrade to partial
// results; anything else fails the job with the error recorded.
func (w *Worker) ProcessJob(ctx context.Context, job *types.Job) {
	log := w.log.WithField("job_id", job.ID).WithField("video_id", job.VideoID)
	log.Info("processing job")

	if err := w.store.UpdateVideoStatus(ctx, job.VideoID, types.StatusProcessing); err != nil {
		w.fail(ctx, job, fmt.Errorf("mark video processing: %w", err))
		return
	}
	if err := w.runStages(ctx, job, log); err != nil {
		w.fail(ctx, job, err)
		return
	}
	if err := w.store.FinishJob(ctx, job.ID); err != nil {
		log.WithError(err).Error("marking job done failed")
		return
	}
	if err := w.store.UpdateVideoStatus(ctx, job.VideoID, types.StatusDone); err != nil {
		log.WithError(err).Error("marking video done failed")
	}
	log.Info("job done")
}

func (w *Worker) runStages(ctx context.Context, job *types.Job, log *logrus.Entry) error {
	video, err := w.store.GetVideo(ctx, job.VideoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if err := w.store.UpdateJobProgress(ctx, job.ID, progressClaimed); err != nil {
		return err
	}

	segments, snippets, err := w.gatherEvidence(ctx, video, log)
	if err != nil {
		return err
	}
	if err := w.store.SaveTranscript(ctx, video.ID, segments); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	if err := w.store.UpdateJobProgress(ctx, job.ID, progressEvidence); err != nil {
		return err
	}

	candidates, err := w.extractCandidates(ctx, job, video, segments, snippets)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"segments":   len(segments),
		"snippets":   len(snippets),
		"candidates": len(candidates),
	}).Info("extraction complete")
	if err := w.store.UpdateJobProgress(ctx, job.ID, progressExtracted); err != nil {
		return err
	}

	if err := w.enricher.EnrichAll(ctx, candidates, video.LocationHint, w.store.UpdateCandidateEnrichment); err != nil {
		return fmt.Errorf("enrich candidates: %w", err)
	}
	return nil
}

// gatherEvidence extracts audio and frames, then runs transcription and
// OCR concurrently. Provider failures degrade to empty evidence; only the
// preprocessor is fatal.
func (w *Worker) gatherEvidence(ctx context.Context, video *types.Video, log *logrus.Entry) ([]types.Segment, []types.Snippet, error) {
	audioPath, err := w.preprocessor.ExtractAudio(ctx, video.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	defer media.Cleanup(audioPath)

	frames, framesDir, err := w.preprocessor.SampleFrames(ctx, video.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	defer media.CleanupDir(framesDir)

	type transcribeOut struct {
		segments []types.Segment
		err      error
	}
	type ocrOut struct {
		snippets []types.Snippet
		err      error
	}
	transcribeCh := make(chan transcribeOut, 1)
	ocrCh := make(chan ocrOut, 1)
	go func() {
		segments, err := w.transcriber.Transcribe(ctx, audioPath)
		transcribeCh <- transcribeOut{segments, err}
	}()
	go func() {
		snippets, err := w.reader.ReadFrames(ctx, frames)
		ocrCh <- ocrOut{snippets, err}
	}()

	transcribed := <-transcribeCh
	read := <-ocrCh

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Policy: transcription and OCR failures degrade to empty evidence,
	// uniformly for every video. Only the preprocessor fails the run.
	segments := transcribed.segments
	if transcribed.err != nil {
		log.WithError(transcribed.err).Warn("transcription failed, continuing with empty transcript")
		segments = nil
	}
	snippets := read.snippets
	if read.err != nil {
		log.WithError(read.err).Warn("ocr failed, continuing without frame text")
		snippets = nil
	}
	return segments, snippets, nil
}

// extractCandidates runs both extraction passes, persists the generative
// observability fields on the job, merges the sets, and saves them.
func (w *Worker) extractCandidates(ctx context.Context, job *types.Job, video *types.Video, segments []types.Segment, snippets []types.Snippet) ([]types.Candidate, error) {
	heuristic := extract.Heuristic(segments, snippets, video.LocationHint, w.maxCandidates)
	generative := w.generative.Extract(ctx, segments, snippets, video.LocationHint)
	if err := w.store.SetJobGenerativeDebug(
		ctx, job.ID,
		generative.Used, generative.FallbackReason, generative.Prompt, generative.OutputRaw,
	); err != nil {
		return nil, fmt.Errorf("record generative debug: %w", err)
	}

	merged := extract.Merge(heuristic, generative.Candidates, w.maxCandidates)
	if err := w.store.SaveCandidates(ctx, video.ID, merged); err != nil {
		return nil, fmt.Errorf("save candidates: %w", err)
	}
	return merged, nil
}

func (w *Worker) fail(ctx context.Context, job *types.Job, cause error) {
	w.log.WithField("job_id", job.ID).WithError(cause).Error("job failed")
	if err := w.store.FailJob(ctx, job.ID, cause.Error()); err != nil {
		w.log.WithError(err).Error("recording job failure failed")
	}
	if err := w.store.UpdateVideoStatus(ctx, job.VideoID, types.StatusFailed); err != nil {
		w.log.WithError(err).Error("marking video failed failed")
	}
}
