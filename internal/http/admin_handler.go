package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"uniqiita/internal/moderation"
	"uniqiita/internal/users"
)

// AdminHandler exposes moderation endpoints. Routes are mounted behind the admin middleware.
type AdminHandler struct {
	service *moderation.Service
	logger  *slog.Logger
}

// NewAdminHandler creates a handler.
func NewAdminHandler(service *moderation.Service, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, logger: logger}
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student moderator mod admin"`
}

// PurgeByEmail removes the content posted by the user with the given email.
func (h *AdminHandler) PurgeByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	result, err := h.service.PurgeByEmail(r.Context(), UserFromContext(r.Context()), email)
	if err != nil {
		h.writeServiceError(w, "purge user", err)
		return
	}
	h.logger.Info("user purged", "articles", result.Articles)
	w.WriteHeader(http.StatusNoContent)
}

// PurgeDummy removes the content of every seeded test account.
func (h *AdminHandler) PurgeDummy(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PurgeDummy(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, "purge dummy users", err)
		return
	}
	h.logger.Info("dummy users purged", "users", result.Users, "articles", result.Articles)
	w.WriteHeader(http.StatusNoContent)
}

// SetRole changes a user's role.
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload setRoleRequest
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}
	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	if err := validateRequest(payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.SetRole(r.Context(), UserFromContext(r.Context()), id, payload.Role)
	if err != nil {
		h.writeServiceError(w, "set role", err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(updated))
}

func (h *AdminHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, moderation.ErrUserNotFound), errors.Is(err, users.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, moderation.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
