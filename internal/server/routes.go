package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hfarouk/docdex/internal/ingest"
	"github.com/hfarouk/docdex/internal/queue"
	"github.com/hfarouk/docdex/internal/store"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Post("/api/documents", s.uploadDocumentsHandler)
	r.Get("/api/documents", s.listDocumentsHandler)
	r.Get("/api/documents/{id}", s.getDocumentHandler)

	r.Get("/api/jobs", s.listJobsHandler)
	r.Get("/api/jobs/ws", s.jobsWebSocketHandler)
	r.Get("/api/jobs/{id}", s.getJobHandler)

	r.Get("/api/index/status", s.indexStatusHandler)

	r.Post("/api/query", s.queryHandler)
}

// uploadDocumentsHandler accepts one or more files under the "files"
// multipart field and ingests each one. Per-file problems land in that
// file's result; the request only fails when nothing was uploaded.
func (s *Server) uploadDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		http.Error(w, "no files uploaded", http.StatusBadRequest)
		return
	}

	results := make([]ingest.Result, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			results = append(results, ingest.Result{Filename: fh.Filename, Status: "error", Message: err.Error()})
			continue
		}
		res, err := s.deps.Ingest.Ingest(r.Context(), fh.Filename, f)
		f.Close()
		if err != nil {
			s.deps.Log.Error("ingest failed", "file", fh.Filename, "error", err)
			results = append(results, ingest.Result{Filename: fh.Filename, Status: "error", Message: err.Error()})
			continue
		}
		results = append(results, *res)
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Store.ListDocuments(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) getDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.deps.Store.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.deps.Queue.List(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []queue.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) getJobHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid job id", http.StatusBadRequest)
		return
	}
	job, err := s.deps.Queue.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) indexStatusHandler(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.deps.Store.TotalChunks(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"index":  s.deps.Index.CurrentStatus(),
		"chunks": chunks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
