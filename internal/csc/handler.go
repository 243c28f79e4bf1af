package csc

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Handler exposes draft editing over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	validate *validator.Validate
}

// NewHandler constructs the code-list draft handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validate: validator.New()}
}

// MountRoutes registers draft routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/codelists/{codeListID}/drafts/{draftID}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermCSCView, shared.PermCSCEdit, shared.PermCSCStructureEdit))
			r.Get("/", h.show)
			r.Get("/columns", h.columns)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermCSCStructureEdit))
			r.Post("/columns", h.addColumn)
			r.Patch("/columns/{index}", h.updateColumn)
			r.Post("/columns/remove", h.removeColumns)
			r.Post("/structure/save", h.saveStructure)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermCSCEdit))
			r.Post("/rows", h.addRow)
			r.Patch("/rows/{rowID}", h.updateRow)
			r.Delete("/rows/{rowID}", h.deleteRow)
			r.Post("/rows/save", h.saveRows)
		})
		r.With(h.rbac.RequireAny(shared.PermCSCEdit, shared.PermCSCStructureEdit)).Delete("/", h.discard)
	})
}

type addRowRequest struct {
	RowID  string         `json:"rowId" validate:"omitempty,max=64"`
	Values map[string]any `json:"values" validate:"required"`
}

type updateRowRequest struct {
	Values map[string]any `json:"values" validate:"required,min=1"`
}

type updateColumnRequest struct {
	Code         string       `json:"code" validate:"omitempty,max=64"`
	DefaultValue string       `json:"defaultValue" validate:"max=256"`
	Validations  []Validation `json:"validations" validate:"omitempty,dive"`
}

type removeColumnsRequest struct {
	Indexes []int `json:"indexes" validate:"required,min=1,dive,gte=0"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (Session, bool) {
	userID, ok := rbac.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Session{}, false
	}
	ref := DraftRef{CodeListID: chi.URLParam(r, "codeListID"), DraftID: chi.URLParam(r, "draftID")}
	sess, err := h.service.Open(r.Context(), userID, ref)
	if err != nil {
		h.fail(w, "open csc session", err)
		return Session{}, false
	}
	return sess, true
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"session":          sess,
		"structureBatches": GroupStructureActions(sess.Structure.Actions()),
		"rowBatches":       GroupRowActions(sess.Rows.Actions()),
	})
}

func (h *Handler) columns(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	fields, err := h.service.Columns(r.Context(), sess.ID)
	if err != nil {
		h.fail(w, "load csc columns", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (h *Handler) addColumn(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	var field Field
	if !h.decode(w, r, &field) {
		return
	}
	action, err := h.service.AddColumn(r.Context(), sess.ID, field)
	if err != nil {
		h.fail(w, "queue csc column", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, action)
}

func (h *Handler) updateColumn(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		httpx.RespondError(w, fmt.Errorf("csc: column index: %w", httpx.ErrValidation))
		return
	}
	var req updateColumnRequest
	if !h.decode(w, r, &req) {
		return
	}
	updated, err := h.service.UpdateColumn(r.Context(), sess.ID, index, req.Code, req.DefaultValue, req.Validations)
	if err != nil {
		h.fail(w, "update csc column", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handler) removeColumns(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	var req removeColumnsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RemoveColumns(r.Context(), sess.ID, req.Indexes...); err != nil {
		h.fail(w, "queue csc column removal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	var req addRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	action, err := h.service.AddRow(r.Context(), sess.ID, req.RowID, req.Values)
	if err != nil {
		h.fail(w, "queue csc row", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, action)
}

func (h *Handler) updateRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	var req updateRowRequest
	if !h.decode(w, r, &req) {
		return
	}
	action, err := h.service.UpdateRow(r.Context(), sess.ID, chi.URLParam(r, "rowID"), req.Values)
	if err != nil {
		h.fail(w, "queue csc row update", err)
		return
	}
	httpx.JSON(w, http.StatusOK, action)
}

func (h *Handler) deleteRow(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	action, err := h.service.DeleteRow(r.Context(), sess.ID, chi.URLParam(r, "rowID"))
	if err != nil {
		h.fail(w, "queue csc row delete", err)
		return
	}
	httpx.JSON(w, http.StatusOK, action)
}

func (h *Handler) saveRows(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	out, err := h.service.SaveRows(r.Context(), sess.ID)
	h.respondOutcome(w, r, out, err)
}

func (h *Handler) saveStructure(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	out, err := h.service.SaveStructure(r.Context(), sess.ID)
	h.respondOutcome(w, r, out, err)
}

func (h *Handler) discard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := h.service.Discard(r.Context(), sess.ID); err != nil {
		h.fail(w, "discard csc session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondOutcome(w http.ResponseWriter, r *http.Request, out Outcome, err error) {
	if err != nil {
		h.fail(w, "save csc draft", err)
		return
	}
	if web := shared.SessionFromContext(r.Context()); web != nil {
		for _, n := range out.Notices {
			web.AddNotice(n)
		}
	}
	status := http.StatusOK
	if !out.Succeeded() {
		status = http.StatusBadGateway
	}
	httpx.JSON(w, status, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.RespondError(w, fmt.Errorf("csc: decode body: %w", httpx.ErrValidation))
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		httpx.RespondError(w, fmt.Errorf("csc: %v: %w", err, httpx.ErrValidation))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}
