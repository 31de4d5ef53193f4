package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/outliner/internal/store"
)

func (s *Server) handleListOutlines(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list outlines failed", "error", err)
		jsonError(w, "failed to list outlines", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outlines": entries})
}

// handleGetOutline returns a stored outline or notes file as plain text.
func (s *Server) handleGetOutline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	content, err := s.store.Get(r.Context(), name)
	if err != nil {
		s.storeError(w, name, err)
		return
	}

	ctype := "text/plain; charset=utf-8"
	if strings.HasSuffix(name, ".md") {
		ctype = "text/markdown; charset=utf-8"
	}
	w.Header().Set("Content-Type", ctype)
	w.Write([]byte(content))
}

func (s *Server) handleDeleteOutline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.store.Delete(r.Context(), name); err != nil {
		s.storeError(w, name, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) storeError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidName):
		jsonError(w, "invalid name", http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		s.log.Error("store access failed", "name", name, "error", err)
		jsonError(w, "store error", http.StatusInternalServerError)
	}
}
