package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/helmdeck/helmdeck/internal/audit"
	"github.com/helmdeck/helmdeck/internal/authz"
	"github.com/helmdeck/helmdeck/internal/grants"
	"github.com/helmdeck/helmdeck/internal/identity"
	"github.com/helmdeck/helmdeck/internal/menus"
	"github.com/helmdeck/helmdeck/internal/observability"
	"github.com/helmdeck/helmdeck/internal/profiles"
	"github.com/helmdeck/helmdeck/internal/shared"
	"github.com/helmdeck/helmdeck/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Authz          *authz.Middleware

	IdentityHandler *identity.Handler
	ProfilesHandler *profiles.Handler
	MenusHandler    *menus.Handler
	GrantsHandler   *grants.Handler
	AuditHandler    *audit.Handler
	JobHandler      *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Helmdeck defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Authz:          params.Authz,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.IdentityHandler.MountSessionRoutes)
	r.Route("/identity", params.IdentityHandler.MountWebhookRoutes)
	r.Route("/profiles", params.ProfilesHandler.MountRoutes)
	r.Route("/menus", func(r chi.Router) {
		params.MenusHandler.MountRoutes(r)
		params.GrantsHandler.MountMenuRoutes(r)
	})
	r.Route("/grants", params.GrantsHandler.MountRoutes)
	r.Route("/audit", params.AuditHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.Authz.RequireAuthenticated)
			r.Use(params.Authz.RequireAdmin)
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
