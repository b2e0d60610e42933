package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"uniqiita/internal/tags"
)

// TagHandler exposes tag search and creation.
type TagHandler struct {
	service *tags.Service
	logger  *slog.Logger
}

// NewTagHandler creates a handler.
func NewTagHandler(service *tags.Service, logger *slog.Logger) *TagHandler {
	return &TagHandler{service: service, logger: logger}
}

type createTagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// List searches tags by the optional query and limit parameters.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	limit := 0
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		if parsed == 0 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	result, err := h.service.List(r.Context(), values.Get("query"), limit)
	if err != nil {
		h.writeServiceError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Create adds a tag.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createTagRequest
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := validateRequest(payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tag, err := h.service.Create(r.Context(), payload.Name)
	if err != nil {
		h.writeServiceError(w, "create tag", err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tags.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "Tag already exists")
	case errors.Is(err, tags.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}
