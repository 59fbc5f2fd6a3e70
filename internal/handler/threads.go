package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/middleware"
	"github.com/doorlist/concierge-core/internal/model"
	"github.com/doorlist/concierge-core/internal/session"
	"github.com/doorlist/concierge-core/pkg/logger"
)

// ThreadHandler handles thread endpoints.
type ThreadHandler struct {
	sessions *session.Manager
	logger   *logger.Logger
}

// NewThreadHandler creates a new thread handler.
func NewThreadHandler(sessions *session.Manager, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{
		sessions: sessions,
		logger:   log,
	}
}

// Open handles POST /api/v1/threads
func (h *ThreadHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.OpenThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateVenueID(req.VenueID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateVenueName(req.VenueName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	thread, err := h.sessions.OpenThread(ctx, userID, req.VenueID, req.VenueName, req.BookingID)
	if err != nil {
		h.logger.Error("failed to open thread",
			zap.String("user_id", userID), zap.String("venue_id", req.VenueID), zap.Error(err))
		writeStoreError(w, err, "failed to open thread")
		return
	}

	writeJSON(w, http.StatusOK, &model.OpenThreadResponse{
		ThreadID: thread.ID,
		Thread:   thread,
	})
}

// List handles GET /api/v1/threads
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	threads, err := h.sessions.ListThreads(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list threads", zap.String("user_id", userID), zap.Error(err))
		writeStoreError(w, err, "failed to list threads")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListThreadsResponse{
		Threads: threads,
		Total:   len(threads),
	})
}

// MarkRead handles POST /api/v1/threads/{id}/read
func (h *ThreadHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID := chi.URLParam(r, "id")

	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	marked, err := h.sessions.MarkRead(ctx, threadID, model.SenderRole(middleware.GetRole(ctx)))
	if err != nil {
		writeStoreError(w, err, "failed to mark thread read")
		return
	}

	writeJSON(w, http.StatusOK, &model.MarkReadResponse{Marked: marked})
}
