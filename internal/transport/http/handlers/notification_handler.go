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

type NotificationHandler struct {
	notificationService *service.NotificationService
	log                 *zap.Logger
}

func NewNotificationHandler(notificationService *service.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, log: log}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	unreadOnly := r.URL.Query().Get("unread") == "true"

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	resp, err := h.notificationService.List(r.Context(), userID, unreadOnly, limit)
	if err != nil {
		writeServiceError(w, h.log, "list notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notificationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		} else {
			writeServiceError(w, h.log, "mark notification read", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	updated, err := h.notificationService.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "mark all notifications read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	notificationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	if err := h.notificationService.Delete(r.Context(), userID, notificationID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Notification not found")
		} else {
			writeServiceError(w, h.log, "delete notification", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	deleted, err := h.notificationService.DeleteAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "delete all notifications", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// Announce broadcasts an announcement to a club or to everyone.
func (h *NotificationHandler) Announce(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.AnnounceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateAnnouncement(input.Title, input.Body); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	recipients, err := h.notificationService.Announce(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAdmin):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
		case errors.Is(err, service.ErrClubNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Club not found")
		default:
			writeServiceError(w, h.log, "announce", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"recipients": recipients})
}
