package oasbind

import (
	"net/http"
	"time"
)

// handleHealth serves the always-present GET /health endpoint, independent of
// the loaded contract. A contract that declares GET /health itself takes
// precedence.
func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "healthy",
		"service":   s.name,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}
