package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"videopins-go/internal/approval"
	"videopins-go/internal/store"
)

// NewRouter wires the collaborator-facing routes the pipeline exposes:
// video registration, status polling, candidate listing, retry, approval,
// and the candidate review export.
func NewRouter(st *store.Store) *mux.Router {
	h := NewHandler(st, approval.NewService(st))

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "ok")
	}).Methods("GET")

	r.HandleFunc("/videos", h.RegisterVideo).Methods("POST")
	r.HandleFunc("/videos/{id}", h.GetStatus).Methods("GET")
	r.HandleFunc("/videos/{id}/candidates", h.ListCandidates).Methods("GET")
	r.HandleFunc("/videos/{id}/candidates.xlsx", h.ExportCandidates).Methods("GET")
	r.HandleFunc("/videos/{id}/retry", h.RetryVideo).Methods("POST")
	r.HandleFunc("/videos/{id}/approve", h.ApproveCandidates).Methods("POST")
	return r
}
