package limits

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves grouped limit results.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the limits handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers limits routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermLimitsView)).Get("/{insuredID}", h.show)
	r.With(h.rbac.RequireAll(shared.PermLimitsView, shared.PermLimitsExport)).Get("/{insuredID}/export.xlsx", h.export)
	r.With(h.rbac.RequireAny(shared.PermLimitsAdmin)).Post("/cache/invalidate", h.invalidate)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	result, err := h.load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	result, err := h.load(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, result.Months); err != nil {
		h.fail(w, r, err)
		return
	}
	name := fmt.Sprintf("limits-%s.xlsx", chi.URLParam(r, "insuredID"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) load(r *http.Request) (Result, error) {
	q := Query{InsuredID: chi.URLParam(r, "insuredID"), Year: h.now().Year()}
	values := r.URL.Query()
	if raw := values.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return Result{}, fmt.Errorf("limits: invalid year %q: %w", raw, httpx.ErrValidation)
		}
		q.Year = year
	}
	if raw := values.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return Result{}, fmt.Errorf("limits: invalid size %q: %w", raw, httpx.ErrValidation)
		}
		q.Size = size
	}
	pages := 1
	if raw := values.Get("pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Result{}, fmt.Errorf("limits: invalid pages %q: %w", raw, httpx.ErrValidation)
		}
		pages = n
	}
	if pages == 1 {
		return h.service.Load(r.Context(), q)
	}
	return h.service.LoadPages(r.Context(), q, pages)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("limits request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.RespondError(w, err)
}
