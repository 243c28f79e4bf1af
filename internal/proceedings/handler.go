package proceedings

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/internal/state"
)

// Handler serves workflow lookups.
type Handler struct {
	logger  *slog.Logger
	rbac    rbac.Middleware
	filings *Filings
}

// NewHandler constructs a proceedings handler. The filing wizard routes are only
// mounted when filings is non-nil.
func NewHandler(logger *slog.Logger, rbac rbac.Middleware, filings *Filings) *Handler {
	return &Handler{logger: logger, rbac: rbac, filings: filings}
}

// MountRoutes registers proceedings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermProceedingsView))
	r.Get("/actions", h.actions)
	r.Get("/transitions", h.transition)
	if h.filings != nil {
		r.Route("/wizard", func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.PermProceedingsFile))
			r.Get("/", h.wizard)
			r.Post("/", h.advance)
			r.Post("/back", h.back)
			r.Post("/submit", h.submit)
			r.Delete("/", h.cancel)
		})
	}
}

type actionView struct {
	Action     Action `json:"action"`
	Next       Status `json:"next"`
	Permission string `json:"permission"`
}

func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	status, err := ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	perms, err := h.rbac.Granted(r.Context())
	if err != nil {
		h.logger.Error("resolve proceedings permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := []actionView{}
	for _, action := range AvailableActions(status, perms) {
		next, _ := Next(status, action)
		views = append(views, actionView{Action: action, Next: next, Permission: Permission(action)})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": status, "actions": views})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status, err := ParseStatus(q.Get("status"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	action := Action(q.Get("action"))
	next, err := Next(status, action)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrConflict, err))
		return
	}
	httpx.JSON(w, http.StatusOK, actionView{Action: action, Next: next, Permission: Permission(action)})
}

type wizardView struct {
	Step   int               `json:"step"`
	Steps  int               `json:"steps"`
	Values map[string]string `json:"values"`
	Ready  bool              `json:"ready"`
}

func newWizardView(w state.Wizard) wizardView {
	return wizardView{Step: w.Step, Steps: FilingSteps(), Values: w.Values, Ready: w.Step > FilingSteps()}
}

func (h *Handler) wizard(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	current, err := h.filings.Current(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newWizardView(current))
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req struct {
		Values map[string]string `json:"values"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	next, err := h.filings.Advance(r.Context(), userID, req.Values)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newWizardView(next))
}

func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	prev, err := h.filings.Back(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newWizardView(prev))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	filing, err := h.filings.Submit(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("proceeding filed", slog.Int64("user_id", userID))
	httpx.JSON(w, http.StatusCreated, filing)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := rbac.CurrentUserID(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.filings.Cancel(r.Context(), userID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Warn("proceedings wizard", slog.Any("error", err))
	httpx.RespondError(w, err)
}
