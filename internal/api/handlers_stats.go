package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if err := s.llm.Available(); err != nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"model":       s.llm.Model(),
		"stats":       s.llm.Stats(),
		"queue_depth": s.queue.QueueDepth(),
	})
}
