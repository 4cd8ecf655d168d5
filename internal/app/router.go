package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/odyssey-rentals/internal/dashboard"
	"github.com/odyssey-erp/odyssey-rentals/internal/invoicing"
	"github.com/odyssey-erp/odyssey-rentals/internal/landlord"
	"github.com/odyssey-erp/odyssey-rentals/internal/media"
	"github.com/odyssey-erp/odyssey-rentals/internal/observability"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/internal/risk"
	"github.com/odyssey-erp/odyssey-rentals/internal/workflow"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	RBACMiddleware   rbac.Middleware
	PropertyHandler  *property.Handler
	LandlordHandler  *landlord.Handler
	InvoicingHandler *invoicing.Handler
	MediaHandler     *media.Handler
	DashboardHandler *dashboard.Handler
	RiskHandler      *risk.Handler
	WorkflowHandler  *workflow.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		RBAC:    params.RBACMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/properties", func(r chi.Router) {
			if params.PropertyHandler != nil {
				params.PropertyHandler.MountRoutes(r)
			}
			if params.LandlordHandler != nil {
				params.LandlordHandler.MountPropertyRoutes(r)
			}
		})
		if params.LandlordHandler != nil {
			r.Route("/landlords", params.LandlordHandler.MountRoutes)
			r.Route("/payments", params.LandlordHandler.MountPaymentRoutes)
		}
		if params.InvoicingHandler != nil {
			r.Route("/customer-schedules", params.InvoicingHandler.MountRoutes)
		}
		if params.MediaHandler != nil {
			r.Route("/installations", params.MediaHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.RiskHandler != nil {
			r.Route("/risk", params.RiskHandler.MountRoutes)
		}
		if params.WorkflowHandler != nil {
			r.Route("/workflow", params.WorkflowHandler.MountRoutes)
		}
	})

	return r
}
