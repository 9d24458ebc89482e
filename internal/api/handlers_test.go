package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"videopins-go/internal/store"
	"videopins-go/internal/types"
)

func newTestRouter(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, NewRouter(s)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) videoStatusResponse {
	t.Helper()
	var resp videoStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return resp
}

func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRegisterVideo(t *testing.T) {
	_, router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/videos", registerVideoRequest{
		TripID:       "trip-1",
		Filename:     "walk.mp4",
		StoragePath:  "/videos/walk.mp4",
		LocationHint: "Chicago, IL",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	resp := decodeStatus(t, rec)
	if resp.Video == nil || resp.Video.ID == "" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Video.Status != types.StatusQueued {
		t.Fatalf("video status = %q", resp.Video.Status)
	}
	if resp.Job == nil || resp.Job.VideoID != resp.Video.ID || resp.Job.Status != types.StatusQueued {
		t.Fatalf("job = %+v", resp.Job)
	}
}

func TestRegisterVideoValidation(t *testing.T) {
	_, router := newTestRouter(t)

	cases := []struct {
		name string
		req  registerVideoRequest
	}{
		{"missing trip_id", registerVideoRequest{Filename: "a.mp4", StoragePath: "/a.mp4"}},
		{"missing filename", registerVideoRequest{TripID: "t", StoragePath: "/a.mp4"}},
		{"missing storage_path", registerVideoRequest{TripID: "t", Filename: "a.mp4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/videos", tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/videos", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestGetStatus(t *testing.T) {
	s, router := newTestRouter(t)
	ctx := context.Background()

	video, err := s.CreateVideo(ctx, "trip-1", "walk.mp4", "/videos/walk.mp4", "")
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	job, err := s.CreateJob(ctx, video.ID)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := s.UpdateJobProgress(ctx, job.ID, 40); err != nil {
		t.Fatalf("update progress: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/videos/"+video.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeStatus(t, rec)
	if resp.Video.ID != video.ID || resp.Job.Progress != 40 {
		t.Fatalf("response = %+v", resp)
	}

	rec = doJSON(t, router, http.MethodGet, "/videos/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing video status = %d", rec.Code)
	}
}

func TestListCandidates(t *testing.T) {
	s, router := newTestRouter(t)
	ctx := context.Background()

	video, err := s.CreateVideo(ctx, "trip-1", "walk.mp4", "/videos/walk.mp4", "")
	if err != nil {
		t.Fatalf("create video: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/videos/"+video.ID+"/candidates", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var empty struct {
		Candidates []types.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if empty.Candidates == nil || len(empty.Candidates) != 0 {
		t.Fatalf("expected empty array, got %s", rec.Body.String())
	}

	candidates := []types.Candidate{
		{Name: "Low", Confidence: 0.3, Method: types.MethodHeuristic},
		{Name: "High", Confidence: 0.9, Method: types.MethodGenerative},
	}
	if err := s.SaveCandidates(ctx, video.ID, candidates); err != nil {
		t.Fatalf("save candidates: %v", err)
	}

	rec = doJSON(t, router, http.MethodGet, "/videos/"+video.ID+"/candidates", nil)
	var listed struct {
		Candidates []types.Candidate `json:"candidates"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed.Candidates) != 2 || listed.Candidates[0].Name != "High" {
		t.Fatalf("candidates = %+v", listed.Candidates)
	}

	rec = doJSON(t, router, http.MethodGet, "/videos/missing/candidates", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing video status = %d", rec.Code)
	}
}

func TestExportCandidates(t *testing.T) {
	s, router := newTestRouter(t)
	ctx := context.Background()

	video, err := s.CreateVideo(ctx, "trip-1", "walk.mp4", "/videos/walk.mp4", "")
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	if err := s.SaveCandidates(ctx, video.ID, []types.Candidate{
		{Name: "Example Cafe", Confidence: 0.6, Method: types.MethodHeuristic},
	}); err != nil {
		t.Fatalf("save candidates: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/videos/"+video.ID+"/candidates.xlsx", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "walk.mp4.candidates.xlsx") {
		t.Fatalf("content disposition = %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty workbook body")
	}
}

func TestRetryVideo(t *testing.T) {
	s, router := newTestRouter(t)
	ctx := context.Background()

	video, err := s.CreateVideo(ctx, "trip-1", "walk.mp4", "/videos/walk.mp4", "")
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	job, err := s.CreateJob(ctx, video.ID)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	// Active job: retry conflicts.
	rec := doJSON(t, router, http.MethodPost, "/videos/"+video.ID+"/retry", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("active retry status = %d", rec.Code)
	}

	if err := s.FailJob(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	rec = doJSON(t, router, http.MethodPost, "/videos/"+video.ID+"/retry", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeStatus(t, rec)
	if resp.Job.Status != types.StatusQueued || resp.Job.Progress != 0 {
		t.Fatalf("retried job = %+v", resp.Job)
	}

	rec = doJSON(t, router, http.MethodPost, "/videos/missing/retry", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing retry status = %d", rec.Code)
	}
}

func TestApproveCandidates(t *testing.T) {
	s, router := newTestRouter(t)
	ctx := context.Background()

	video, err := s.CreateVideo(ctx, "trip-1", "walk.mp4", "/videos/walk.mp4", "")
	if err != nil {
		t.Fatalf("create video: %v", err)
	}
	lat, lng := 41.881, -87.623
	candidates := []types.Candidate{
		{Name: "Example Cafe", Confidence: 0.6, Method: types.MethodHeuristic, Latitude: &lat, Longitude: &lng},
		{Name: "Unresolved", Confidence: 0.4, Method: types.MethodHeuristic, PlacesFailed: true},
	}
	if err := s.SaveCandidates(ctx, video.ID, candidates); err != nil {
		t.Fatalf("save candidates: %v", err)
	}

	rec := doJSON(t, router, http.MethodPost, "/videos/"+video.ID+"/approve", approveRequest{
		CandidateIDs: []string{candidates[0].ID, candidates[1].ID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Created    int         `json:"created"`
		Pins       []types.Pin `json:"pins"`
		SkippedIDs []string    `json:"skipped_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Created != 1 || len(result.SkippedIDs) != 1 {
		t.Fatalf("result = %+v", result)
	}

	// Only unresolved candidates submitted.
	rec = doJSON(t, router, http.MethodPost, "/videos/"+video.ID+"/approve", approveRequest{
		CandidateIDs: []string{candidates[1].ID},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unresolvable approve status = %d", rec.Code)
	}

	// Empty submission.
	rec = doJSON(t, router, http.MethodPost, "/videos/"+video.ID+"/approve", approveRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty approve status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/videos/missing/approve", approveRequest{CandidateIDs: []string{"c1"}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing video approve status = %d", rec.Code)
	}
}
