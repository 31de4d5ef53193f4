package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/outliner/internal/parser"
	"github.com/dgallion1/outliner/internal/pipeline"
)

// upload is a validated file from a multipart request.
type upload struct {
	filename string
	data     []byte
}

// readUpload parses the multipart form and reads the "file" field. On
// failure it has already written the error response.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return nil, false
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.opts.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return nil, false
	}
	return &upload{filename: filename, data: data}, true
}

// handleOutline queues an outline job; notes=true also elaborates notes.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	defer removeForm(r)
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	kind := pipeline.KindOutline
	if v := r.FormValue("notes"); v != "" {
		notes, err := strconv.ParseBool(v)
		if err != nil {
			jsonError(w, "notes must be true or false", http.StatusBadRequest)
			return
		}
		if notes {
			kind = pipeline.KindNotes
		}
	}

	job := pipeline.NewJob(kind, up.filename, strings.TrimSpace(r.FormValue("title")), up.data)
	s.submit(w, job)
}

// handleNotes queues a notes job for a transcript. An outline may be sent
// in the "outline" field; without one it is built first.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	defer removeForm(r)
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	job := pipeline.NewJob(pipeline.KindNotes, up.filename, strings.TrimSpace(r.FormValue("title")), up.data)
	if outline := strings.TrimSpace(r.FormValue("outline")); outline != "" {
		job.SetOutline(outline)
	}
	s.submit(w, job)
}

func (s *Server) submit(w http.ResponseWriter, job *pipeline.Job) {
	if err := s.queue.Submit(job); err != nil {
		code := http.StatusServiceUnavailable
		if errors.Is(err, pipeline.ErrQueueFull) {
			code = http.StatusTooManyRequests
		}
		jsonError(w, err.Error(), code)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"kind":     snap.Kind,
		"status":   snap.Status,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.queue.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func removeForm(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
