package handler

import (
	"net/http"
)

// ReadyChecker reports whether a backing transport is usable.
type ReadyChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	feed ReadyChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(feed ReadyChecker) *HealthHandler {
	return &HealthHandler{feed: feed}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil || !h.feed.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "change feed not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
