package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/doorlist/concierge-core/internal/middleware"
	"github.com/doorlist/concierge-core/internal/session"
	"github.com/doorlist/concierge-core/pkg/logger"
	"github.com/doorlist/concierge-core/pkg/metrics"
)

const heartbeatInterval = 30 * time.Second

// StreamHandler handles SSE streaming endpoints. Each connection is backed
// by a session watcher: the full current state is delivered on connect and a
// fresh snapshot follows every change feed signal.
type StreamHandler struct {
	sessions *session.Manager
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions *session.Manager, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		sessions: sessions,
		logger:   log,
	}
}

// StreamMessages handles GET /api/v1/threads/{id}/stream
func (h *StreamHandler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID := chi.URLParam(r, "id")

	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := prepareSSE(w)
	if !ok {
		return
	}

	watcher, err := h.sessions.ObserveMessages(ctx, threadID)
	if err != nil {
		h.logger.Error("failed to observe messages", zap.String("thread_id", threadID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to subscribe")
		return
	}
	defer watcher.Stop()

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{"thread_id": threadID})

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("thread_id", threadID))
			return
		case snapshot, ok := <-watcher.Updates():
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "messages", snapshot)
		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"ts": time.Now().Format(time.RFC3339),
			})
		}
	}
}

// StreamThreads handles GET /api/v1/threads/stream
func (h *StreamHandler) StreamThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	flusher, ok := prepareSSE(w)
	if !ok {
		return
	}

	watcher, err := h.sessions.ObserveThreads(ctx, userID)
	if err != nil {
		h.logger.Error("failed to observe threads", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to subscribe")
		return
	}
	defer watcher.Stop()

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{"user_id": userID})

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("user_id", userID))
			return
		case snapshot, ok := <-watcher.Updates():
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, "threads", snapshot)
		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"ts": time.Now().Format(time.RFC3339),
			})
		}
	}
}

func prepareSSE(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return nil, false
	}
	return flusher, true
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
