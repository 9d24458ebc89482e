package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"videopins-go/internal/config"
	"videopins-go/internal/extract"
	"videopins-go/internal/logger"
	"videopins-go/internal/media"
	"videopins-go/internal/ocr"
	"videopins-go/internal/pipeline"
	"videopins-go/internal/places"
	"videopins-go/internal/store"
	"videopins-go/internal/transcribe"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New().WithField("service", "videopins-worker")
	log.WithField("pid", os.Getpid()).Info("worker starting")

	cfg := config.Load()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	var transcriber transcribe.Provider
	if cfg.MockTranscribe {
		log.Info("mock transcription enabled")
		transcriber = transcribe.Mock{}
	} else {
		transcriber = transcribe.NewClient(cfg.TranscribeURL, cfg.TranscribeTimeout)
	}

	var reader ocr.Provider
	if cfg.MockOCR {
		log.Info("mock ocr enabled")
		reader = ocr.Mock{}
	} else {
		reader = ocr.NewClient(cfg.OCRURL, cfg.OCRTimeout)
	}

	generative := extract.NewGenerativeExtractor(
		cfg.GenerativeURL,
		cfg.GenerativeModel,
		cfg.UseGenerative,
		cfg.MaxCandidates,
		cfg.GenerativeTimeout,
	)

	placesClient := places.NewClient(cfg.MapsAPIKey, cfg.PlacesTimeout)
	enricher := places.NewEnricher(placesClient, placesClient)

	worker := pipeline.New(
		st,
		media.NewPreprocessor("", cfg.FrameIntervalSec),
		transcriber,
		reader,
		generative,
		enricher,
		cfg.PollInterval,
		cfg.MaxCandidates,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("worker terminated")
	}
	log.Info("worker stopped")
}
