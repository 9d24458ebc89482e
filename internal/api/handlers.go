package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"videopins-go/internal/approval"
	"videopins-go/internal/logger"
	"videopins-go/internal/report"
	"videopins-go/internal/store"
	"videopins-go/internal/types"
)

// Handler serves the pipeline's HTTP surface over the shared store.
type Handler struct {
	store    *store.Store
	approver *approval.Service
}

// NewHandler builds the handler set.
func NewHandler(st *store.Store, approver *approval.Service) *Handler {
	return &Handler{store: st, approver: approver}
}

type registerVideoRequest struct {
	TripID       string `json:"trip_id"`
	Filename     string `json:"filename"`
	StoragePath  string `json:"storage_path"`
	LocationHint string `json:"location_hint,omitempty"`
}

type videoStatusResponse struct {
	Video *types.Video `json:"video"`
	Job   *types.Job   `json:"job,omitempty"`
}

// RegisterVideo handles POST /videos: records an uploaded video and
// queues its processing job.
func (h *Handler) RegisterVideo(w http.ResponseWriter, r *http.Request) {
	log := logger.New().WithRequest(r).WithField("handler", "register_video")

	var req registerVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TripID == "" || req.Filename == "" || req.StoragePath == "" {
		http.Error(w, "trip_id, filename, and storage_path are required", http.StatusBadRequest)
		return
	}

	video, err := h.store.CreateVideo(r.Context(), req.TripID, req.Filename, req.StoragePath, req.LocationHint)
	if err != nil {
		log.WithError(err).Error("creating video failed")
		http.Error(w, "failed to register video", http.StatusInternalServerError)
		return
	}
	job, err := h.store.CreateJob(r.Context(), video.ID)
	if err != nil {
		log.WithError(err).Error("creating job failed")
		http.Error(w, "failed to queue job", http.StatusInternalServerError)
		return
	}

	log.WithFields(logrus.Fields{"video_id": video.ID, "job_id": job.ID}).Info("video registered")
	writeJSON(w, http.StatusCreated, videoStatusResponse{Video: video, Job: job})
}

// GetStatus handles GET /videos/{id}: the polling contract. Status,
// progress, and error on the job row are the only channel clients get.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["id"]

	video, err := h.store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, r, err, "loading video failed")
		return
	}
	job, err := h.store.GetLatestJob(r.Context(), videoID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeStoreError(w, r, err, "loading job failed")
		return
	}
	writeJSON(w, http.StatusOK, videoStatusResponse{Video: video, Job: job})
}

// ListCandidates handles GET /videos/{id}/candidates, ordered by
// confidence descending.
func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["id"]

	if _, err := h.store.GetVideo(r.Context(), videoID); err != nil {
		writeStoreError(w, r, err, "loading video failed")
		return
	}
	candidates, err := h.store.ListCandidates(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, r, err, "listing candidates failed")
		return
	}
	if candidates == nil {
		candidates = []types.Candidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates})
}

// ExportCandidates handles GET /videos/{id}/candidates.xlsx.
func (h *Handler) ExportCandidates(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["id"]

	video, err := h.store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, r, err, "loading video failed")
		return
	}
	candidates, err := h.store.ListCandidates(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, r, err, "listing candidates failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", video.Filename+".candidates.xlsx"))
	if err := report.WriteCandidates(w, video, candidates); err != nil {
		logger.New().WithRequest(r).WithError(err).Error("writing candidate report failed")
	}
}

// RetryVideo handles POST /videos/{id}/retry: resets a terminal job and
// its video back to queued without re-uploading.
func (h *Handler) RetryVideo(w http.ResponseWriter, r *http.Request) {
	log := logger.New().WithRequest(r).WithField("handler", "retry_video")
	videoID := mux.Vars(r)["id"]

	job, err := h.store.RetryJob(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "video or job not found", http.StatusNotFound)
			return
		}
		log.WithError(err).Warn("retry rejected")
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	video, err := h.store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeStoreError(w, r, err, "loading video failed")
		return
	}
	log.WithField("job_id", job.ID).Info("job requeued")
	writeJSON(w, http.StatusOK, videoStatusResponse{Video: video, Job: job})
}

type approveRequest struct {
	CandidateIDs []string `json:"candidate_ids"`
}

// ApproveCandidates handles POST /videos/{id}/approve: creates pins for
// the resolved candidates and reports what was skipped.
func (h *Handler) ApproveCandidates(w http.ResponseWriter, r *http.Request) {
	log := logger.New().WithRequest(r).WithField("handler", "approve_candidates")
	videoID := mux.Vars(r)["id"]

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.CandidateIDs) == 0 {
		http.Error(w, "candidate_ids is required", http.StatusBadRequest)
		return
	}

	result, err := h.approver.Approve(r.Context(), videoID, req.CandidateIDs)
	if err != nil {
		if errors.Is(err, approval.ErrNothingToApprove) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "video not found", http.StatusNotFound)
			return
		}
		log.WithError(err).Error("approval failed")
		http.Error(w, "approval failed", http.StatusInternalServerError)
		return
	}

	log.WithFields(logrus.Fields{"created": result.Created, "skipped": len(result.SkippedIDs)}).Info("candidates approved")
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	logger.New().WithRequest(r).WithError(err).Error(message)
	http.Error(w, message, http.StatusInternalServerError)
}
