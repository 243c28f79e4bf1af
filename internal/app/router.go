package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-admin/internal/csc"
	"github.com/odyssey-erp/odyssey-admin/internal/journal"
	"github.com/odyssey-erp/odyssey-admin/internal/limits"
	"github.com/odyssey-erp/odyssey-admin/internal/messages"
	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/proceedings"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
	"github.com/odyssey-erp/odyssey-admin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Localizer      *messages.Localizer
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	PermissionsHandler *rbac.PermissionsHandler
	CSCHandler         *csc.Handler
	JournalHandler     *journal.Handler
	LimitsHandler      *limits.Handler
	ProceedingsHandler *proceedings.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Localizer:      params.Localizer,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/notices", noticesHandler)
	if params.CSRFManager != nil {
		r.Get("/csrf", csrfHandler(params.CSRFManager))
	}
	r.Put("/preferences/language", languageHandler(params.Localizer))

	if params.PermissionsHandler != nil {
		r.Route("/rbac", params.PermissionsHandler.MountRoutes)
	}
	r.Route("/csc", func(r chi.Router) {
		if params.JournalHandler != nil {
			r.Route("/journal", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAny(shared.PermCSCJournalView))
				params.JournalHandler.MountRoutes(r)
			})
		}
		if params.CSCHandler != nil {
			params.CSCHandler.MountRoutes(r)
		}
	})
	if params.LimitsHandler != nil {
		r.Route("/limits", params.LimitsHandler.MountRoutes)
	}
	if params.ProceedingsHandler != nil {
		r.Route("/proceedings", params.ProceedingsHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// noticesHandler drains the one-time notices queued on the caller's session.
func noticesHandler(w http.ResponseWriter, r *http.Request) {
	notices := []shared.Notice{}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if queued := sess.PopNotices(); queued != nil {
			notices = queued
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notices": notices})
}

// csrfHandler issues the token mutating requests must echo in shared.CSRFHeader.
func csrfHandler(csrf *shared.CSRFManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := csrf.EnsureToken(shared.SessionFromContext(r.Context()))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"token": token, "header": shared.CSRFHeader})
	}
}

func languageHandler(localizer *messages.Localizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Language string `json:"language"`
		}
		if err := httpx.DecodeJSON(r, &req); err != nil || strings.TrimSpace(req.Language) == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "language is required")
			return
		}
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		tag := req.Language
		if localizer != nil {
			tag = localizer.Match(req.Language).String()
		}
		sess.SetLanguage(tag)
		httpx.JSON(w, http.StatusOK, map[string]string{"language": tag})
	}
}
