package app

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	"github.com/odyssey-erp/odyssey-wms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
	dashboardhttp "github.com/odyssey-erp/odyssey-wms/internal/warehouse/dashboard/http"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	DashboardHandler *dashboardhttp.Handler
	IdentityHandler  *rbac.IdentityHandler
	JobHandler       *jobs.Handler
	RBACMiddleware   rbac.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with warehouse defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/warehouse", func(wr chi.Router) {
		if params.DashboardHandler != nil {
			params.DashboardHandler.MountRoutes(wr)
		}
		if params.IdentityHandler != nil {
			params.IdentityHandler.MountRoutes(wr)
		}
	})

	if params.JobHandler != nil && params.RBACMiddleware.Service != nil {
		r.With(params.RBACMiddleware.RequireAny(shared.PermDashboardStaff)).Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.Config != nil && params.Config.DevSessions && params.SessionManager != nil {
		r.Post("/dev/session", devSessionHandler(params.SessionManager, params.Logger))
	}

	return r
}

// devSessionHandler issues a session for the given user id. Authentication
// belongs to the host; this only exists for local runs against fixtures.
func devSessionHandler(manager *shared.SessionManager, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.URL.Query().Get("user_id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Invalid user", "user_id must be a positive integer")
			return
		}
		sess, err := manager.Create(r.Context(), raw)
		if err != nil {
			logger.Error("create dev session", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		if err := manager.Touch(r.Context(), w, sess); err != nil {
			logger.Error("issue dev session", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
