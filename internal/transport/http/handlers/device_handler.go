package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/shivam222343/aura/internal/service"
	"github.com/shivam222343/aura/internal/transport/http/middleware"
	"github.com/shivam222343/aura/pkg/validator"
)

// DeviceHandler manages the caller's push token.
type DeviceHandler struct {
	userService *service.UserService
	log         *zap.Logger
}

func NewDeviceHandler(userService *service.UserService, log *zap.Logger) *DeviceHandler {
	return &DeviceHandler{userService: userService, log: log}
}

func (h *DeviceHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidatePushToken(input.Token); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if err := h.userService.RegisterPushToken(r.Context(), userID, input.Token); err != nil {
		writeServiceError(w, h.log, "register push token", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DeviceHandler) ClearPushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.userService.ClearPushToken(r.Context(), userID); err != nil {
		writeServiceError(w, h.log, "clear push token", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
