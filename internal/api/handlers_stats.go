package api

import (
	"net/http"
)

func (s *Server) handleExtractStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"routes":      s.extractor.Stats().All(),
		"features":    s.extractor.Features(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
