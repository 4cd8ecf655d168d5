package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-rentals/internal/dashboard"
	"github.com/odyssey-erp/odyssey-rentals/internal/invoicing"
	"github.com/odyssey-erp/odyssey-rentals/internal/landlord"
	"github.com/odyssey-erp/odyssey-rentals/internal/media"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/internal/risk"
	"github.com/odyssey-erp/odyssey-rentals/internal/sales"
	"github.com/odyssey-erp/odyssey-rentals/internal/setup"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
	"github.com/odyssey-erp/odyssey-rentals/internal/workflow"
)

// Services is the wired domain layer shared by the API server, the worker
// and the CLI.
type Services struct {
	Clock     shared.Clock
	Cache     *dashboard.Cache
	RBAC      *rbac.Service
	Property  *property.Service
	Landlord  *landlord.Service
	Payments  *landlord.PaymentService
	Sales     *sales.Service
	Invoicing *invoicing.Service
	Media     *media.Service
	Dashboard *dashboard.Service
	Risk      *risk.Service
	Workflow  *workflow.Service
}

// ServiceDeps are the infrastructure handles the services run on. Mail may be
// nil, in which case reminders are skipped.
type ServiceDeps struct {
	Config *Config
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	Mail   landlord.MailQueue
	Logger *slog.Logger
}

// NewServices wires every domain service over PostgreSQL and Redis.
func NewServices(deps ServiceDeps) *Services {
	cfg, logger := deps.Config, deps.Logger
	clock := shared.SystemClock{Location: cfg.Location()}
	auditor := shared.NewAuditLogger(deps.Pool)
	cache := dashboard.NewCache(deps.Redis, cfg.DashboardCacheTTL)

	rbacService := rbac.NewService(rbac.NewPGStore(deps.Pool))

	propertyRepo := property.NewRepository(deps.Pool)
	propertyService := property.NewService(propertyRepo, auditor, logger)

	landlordRepo := landlord.NewRepository(deps.Pool)
	landlordService := landlord.NewService(landlord.ServiceConfig{
		Repository: landlordRepo,
		Properties: propertyService,
		Auditor:    auditor,
		Cache:      cache,
		Clock:      clock,
		Logger:     logger.With(slog.String("module", "landlord")),
	})
	payments := landlord.NewPaymentService(landlord.PaymentConfig{
		Repository: landlordRepo,
		Mail:       deps.Mail,
		Cache:      cache,
		Auditor:    auditor,
		Clock:      clock,
		Logger:     logger.With(slog.String("module", "payments")),
		Currency:   cfg.Currency,
	})

	salesService := sales.NewService(sales.NewRepository(deps.Pool), logger.With(slog.String("module", "sales")))
	invoicingService := invoicing.NewService(invoicing.Config{
		Repository:  invoicing.NewRepository(deps.Pool),
		Invoicer:    salesService,
		Idempotency: shared.NewIdempotencyStore(deps.Pool),
		Auditor:     auditor,
		Cache:       cache,
		Clock:       clock,
		Mail:        deps.Mail,
		Currency:    cfg.Currency,
		Logger:      logger.With(slog.String("module", "invoicing")),
		LeadMonths:  cfg.InvoiceLeadMonths,
	})

	mediaService := media.NewService(media.NewRepository(deps.Pool), propertyRepo, auditor, cache, clock, logger.With(slog.String("module", "media")))
	riskService := risk.NewService(risk.NewRepository(deps.Pool), propertyRepo, auditor, cache, clock, logger.With(slog.String("module", "risk")))
	dashboardService := dashboard.NewService(dashboard.NewRepository(deps.Pool), cache, clock, logger.With(slog.String("module", "dashboard")))
	workflowService := workflow.NewService(workflow.NewPGStore(deps.Pool), auditor, cache, logger.With(slog.String("module", "workflow")))

	return &Services{
		Clock:     clock,
		Cache:     cache,
		RBAC:      rbacService,
		Property:  propertyService,
		Landlord:  landlordService,
		Payments:  payments,
		Sales:     salesService,
		Invoicing: invoicingService,
		Media:     mediaService,
		Dashboard: dashboardService,
		Risk:      riskService,
		Workflow:  workflowService,
	}
}

// NewProvisioner builds the installation provisioner. Sample data is seeded
// only when withSample is set.
func (s *Services) NewProvisioner(pool *pgxpool.Pool, withSample bool, logger *slog.Logger) *setup.Provisioner {
	store := setup.NewPGStore(pool)
	var seeder setup.Seeder
	if withSample {
		seeder = setup.SampleSeeder{
			Store:      store,
			Properties: s.Property,
			Landlords:  s.Landlord,
			Clock:      s.Clock,
		}
	}
	return setup.NewProvisioner(store, s.RBAC, seeder, logger.With(slog.String("module", "setup")))
}

// Handlers builds the HTTP handlers for the services.
func (s *Services) Handlers(logger *slog.Logger, mw rbac.Middleware) RouterParams {
	return RouterParams{
		Logger:           logger,
		RBACMiddleware:   mw,
		PropertyHandler:  property.NewHandler(logger, s.Property, mw),
		LandlordHandler:  landlord.NewHandler(logger, s.Landlord, s.Payments, mw),
		InvoicingHandler: invoicing.NewHandler(logger, s.Invoicing, mw),
		MediaHandler:     media.NewHandler(logger, s.Media, mw),
		DashboardHandler: dashboard.NewHandler(logger, s.Dashboard, mw),
		RiskHandler:      risk.NewHandler(logger, s.Risk, mw),
		WorkflowHandler:  workflow.NewHandler(logger, s.Workflow, mw),
	}
}
