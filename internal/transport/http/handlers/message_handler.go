package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/service"
	"github.com/shivam222343/aura/internal/transport/http/middleware"
	"github.com/shivam222343/aura/pkg/validator"
)

type MessageHandler struct {
	messageService *service.MessageService
	log            *zap.Logger
}

func NewMessageHandler(messageService *service.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.SendMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if input.ReceiverID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_RECEIVER", "Receiver is required")
		return
	}

	if errs := validator.ValidateMessage(input.Content, input.Attachment != nil, input.Type); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReceiverUnknown):
			writeError(w, http.StatusBadRequest, "RECEIVER_UNKNOWN", "Receiver does not exist")
		case errors.Is(err, service.ErrSelfMessage):
			writeError(w, http.StatusBadRequest, "INVALID_RECEIVER", "Cannot send a message to yourself")
		default:
			writeServiceError(w, h.log, "send message", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// ListConversation returns the full thread with another user.
func (h *MessageHandler) ListConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	messages, err := h.messageService.ListConversation(r.Context(), userID, otherID)
	if err != nil {
		writeServiceError(w, h.log, "list conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	updated, err := h.messageService.MarkConversationRead(r.Context(), userID, otherID)
	if err != nil {
		writeServiceError(w, h.log, "mark conversation read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *MessageHandler) React(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var input struct {
		Emoji string `json:"emoji"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateReaction(input.Emoji); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.React(r.Context(), userID, messageID, input.Emoji)
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		} else {
			writeServiceError(w, h.log, "react to message", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = service.DeleteModeMe
	}

	if err := h.messageService.Delete(r.Context(), userID, messageID, mode); err != nil {
		switch {
		case errors.Is(err, service.ErrMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotMessageSender):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the sender can delete for everyone")
		case errors.Is(err, service.ErrBadDeleteMode):
			writeError(w, http.StatusBadRequest, "INVALID_MODE", "Mode must be \"everyone\" or \"me\"")
		default:
			writeServiceError(w, h.log, "delete message", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListConversations returns the caller's inbox.
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversations, err := h.messageService.ListConversations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}
