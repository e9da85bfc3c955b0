package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/service"
	"github.com/shivam222343/aura/internal/transport/http/middleware"
	"github.com/shivam222343/aura/pkg/validator"
)

type ClubHandler struct {
	clubService *service.ClubService
	log         *zap.Logger
}

func NewClubHandler(clubService *service.ClubService, log *zap.Logger) *ClubHandler {
	return &ClubHandler{clubService: clubService, log: log}
}

func (h *ClubHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	clubID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid club ID")
		return
	}

	var input service.SendClubMessageInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateMessage(input.Content, input.Attachment != nil, input.Type); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.clubService.Send(r.Context(), userID, clubID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Club not found")
		case errors.Is(err, service.ErrNotClubMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this club")
		default:
			writeServiceError(w, h.log, "send club message", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ClubHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	clubID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid club ID")
		return
	}

	var before *uuid.UUID
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		id, err := uuid.Parse(beforeStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid before cursor")
			return
		}
		before = &id
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	resp, err := h.clubService.ListMessages(r.Context(), userID, clubID, before, limit)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Club not found")
		case errors.Is(err, service.ErrNotClubMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this club")
		default:
			writeServiceError(w, h.log, "list club messages", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ClubHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	clubID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid club ID")
		return
	}

	if err := h.clubService.MarkRead(r.Context(), userID, clubID); err != nil {
		switch {
		case errors.Is(err, service.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Club not found")
		case errors.Is(err, service.ErrNotClubMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this club")
		default:
			writeServiceError(w, h.log, "mark club read", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ClubHandler) Unread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	clubID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid club ID")
		return
	}

	count, err := h.clubService.UnreadCount(r.Context(), userID, clubID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Club not found")
		case errors.Is(err, service.ErrNotClubMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this club")
		default:
			writeServiceError(w, h.log, "count club unread", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (h *ClubHandler) React(w http.ResponseWriter, r *http.Request) {
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

	msg, err := h.clubService.React(r.Context(), userID, messageID, input.Emoji)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClubMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotClubMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a member of this club")
		default:
			writeServiceError(w, h.log, "react to club message", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *ClubHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.clubService.Delete(r.Context(), userID, messageID, mode); err != nil {
		switch {
		case errors.Is(err, service.ErrClubMessageNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
		case errors.Is(err, service.ErrNotMessageSender):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the sender can delete for everyone")
		case errors.Is(err, service.ErrBadDeleteMode):
			writeError(w, http.StatusBadRequest, "INVALID_MODE", "Mode must be \"everyone\" or \"me\"")
		default:
			writeServiceError(w, h.log, "delete club message", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
