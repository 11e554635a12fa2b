package app

import (
	"context"
	"log"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/grants"
	"github.com/ledgerdesk/ledgerdesk/internal/guard"
	"github.com/ledgerdesk/ledgerdesk/internal/modules"
	"github.com/ledgerdesk/ledgerdesk/internal/observability"
	"github.com/ledgerdesk/ledgerdesk/internal/platform/httpx"
	"github.com/ledgerdesk/ledgerdesk/internal/shared"
	"github.com/ledgerdesk/ledgerdesk/internal/view"
	"github.com/ledgerdesk/ledgerdesk/jobs"
	"github.com/ledgerdesk/ledgerdesk/web"
)

func init() {
	if mime.TypeByExtension(".css") == "" {
		if err := mime.AddExtensionType(".css", "text/css; charset=utf-8"); err != nil {
			log.Printf("app: register css mime type: %v", err)
		}
	}
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	ServerGuard    *guard.Server
	ClientGuard    *guard.Client
	AccessHandler  *guard.Handler
	GrantsHandler  *grants.Handler
	ModulesHandler *modules.Handler
	JobHandler     *jobs.Handler

	HealthChecks map[string]HealthCheck
}

// NewRouter constructs the chi.Router with LedgerDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/healthz", healthHandler(params.HealthChecks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	staticFS, err := web.Static()
	if err != nil {
		logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(params.ServerGuard.Authenticate)

		pages := pageHandler{logger: logger, templates: params.Templates, client: params.ClientGuard}
		r.Get("/", pages.home)
		for _, res := range authz.Resources() {
			var stack []func(http.Handler) http.Handler
			if module, ok := modules.ModuleFor(res); ok {
				stack = append(stack, params.ClientGuard.Module(module, nil))
			}
			stack = append(stack, params.ClientGuard.Route(res, authz.ActionView))
			r.With(stack...).Get(AreaPath(res), pages.area(res))
		}

		r.Route("/api", func(r chi.Router) {
			r.Get("/csrf", csrfHandler(params.CSRFManager, logger))
			r.Get("/authz/check", params.AccessHandler.Check)
			r.Get("/me/permissions", params.AccessHandler.Permissions)
			r.Route("/admin", func(r chi.Router) {
				r.Route("/grants", params.GrantsHandler.MountRoutes)
				r.Route("/modules", params.ModulesHandler.MountRoutes)
				if params.JobHandler != nil {
					r.Route("/jobs", func(r chi.Router) {
						r.Use(params.ServerGuard.RequireRoles(authz.RoleOwner, authz.RoleAdmin))
						params.JobHandler.MountRoutes(r)
					})
				}
			})
		})
	})

	return r
}

// AreaPath is the page route of resource, e.g. /app/goods-received.
func AreaPath(res authz.Resource) string {
	return "/app/" + strings.ReplaceAll(strings.ToLower(string(res)), "_", "-")
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "degraded"
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		httpx.JSON(w, status, report)
	}
}

func csrfHandler(manager *shared.CSRFManager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := manager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
		if err != nil {
			logger.Error("ensure csrf token", slog.Any("error", err))
			httpx.Error(w, http.StatusInternalServerError, "")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
	}
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
