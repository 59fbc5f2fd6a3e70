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

// MessageHandler handles message endpoints.
type MessageHandler struct {
	sessions *session.Manager
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(sessions *session.Manager, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		sessions: sessions,
		logger:   log,
	}
}

// List handles GET /api/v1/threads/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID := chi.URLParam(r, "id")

	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.sessions.ListMessages(ctx, threadID)
	if err != nil {
		writeStoreError(w, err, "failed to list messages")
		return
	}

	writeJSON(w, http.StatusOK, &model.ListMessagesResponse{
		Messages: messages,
		Total:    len(messages),
	})
}

// Send handles POST /api/v1/threads/{id}/messages
//
// A failed send surfaces as an error so the calling layer can keep the
// composed text available for retry; a failure confined to the concierge
// reply does not fail the request.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID := chi.URLParam(r, "id")

	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMessageType(req.Type); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sender := session.Sender{
		ID:   middleware.GetUserID(ctx),
		Name: middleware.GetUserName(ctx),
		Role: model.SenderRole(middleware.GetRole(ctx)),
	}

	msg, reply, err := h.sessions.SendMessage(ctx, threadID, sender, req.Content, req.Type)
	if err != nil {
		h.logger.Error("failed to send message",
			zap.String("thread_id", threadID), zap.Error(err))
		writeStoreError(w, err, "failed to send message")
		return
	}

	writeJSON(w, http.StatusCreated, &model.SendMessageResponse{
		Message: msg,
		Reply:   reply,
	})
}
