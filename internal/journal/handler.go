package journal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
)

// Lister reads journal entries.
type Lister interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Handler serves the save journal.
type Handler struct {
	logger   *slog.Logger
	entries  Lister
	validate *validator.Validate
}

// NewHandler constructs a journal handler.
func NewHandler(logger *slog.Logger, entries Lister) *Handler {
	return &Handler{logger: logger, entries: entries, validate: validator.New()}
}

// MountRoutes registers journal routes; callers guard them with RBAC.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		CodeListID: q.Get("codeListId"),
		DraftID:    q.Get("draftId"),
		Kind:       q.Get("kind"),
		State:      q.Get("state"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("journal: limit: %w", httpx.ErrValidation))
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("before"); raw != "" {
		before, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("journal: before: %w", httpx.ErrValidation))
			return
		}
		filter.Before = before
	}
	if err := h.validate.Struct(filter); err != nil {
		httpx.RespondError(w, fmt.Errorf("journal: %v: %w", err, httpx.ErrValidation))
		return
	}

	entries, err := h.entries.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list save journal", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
