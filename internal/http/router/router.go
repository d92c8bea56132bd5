package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/database"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/http/handler"
	"github.com/fieldops/fieldservice-api/internal/http/middleware"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/fieldops/fieldservice-api/docs" // Import generated swagger docs
)

const readinessTimeout = 5 * time.Second

// Dependency is an optional backing service reported by the readiness probe
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers groups the API handlers mounted under /api/v1
type Handlers struct {
	Auth        *handler.AuthHandler
	Audit       *handler.AuditHandler
	Client      *handler.ClientHandler
	Development *handler.DevelopmentHandler
	Payment     *handler.PaymentHandler
	Notice      *handler.NoticeHandler
	Investor    *handler.InvestorHandler
	Order       *handler.OrderHandler
	Lead        *handler.LeadHandler
	Income      *handler.IncomeHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	dependencies    []Dependency
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	h               Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	dependencies []Dependency,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		dependencies:    dependencies,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		h:               handlers,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}
	if rt.cfg.Server.EnableMetrics {
		r.Use(metrics.Middleware)
	}
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	if rt.cfg.RateLimit.Enabled {
		r.Use(rt.rateLimiter.LimitByIP)
	}

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		if rt.cfg.RateLimit.Enabled {
			r.Use(rt.rateLimiter.LimitByUser)
		}
		r.Use(rt.auditMiddleware.Audit) // Audit all modifications

		rt.mountRoutes(r)
	})

	return r
}

func (rt *Router) mountRoutes(r chi.Router) {
	need := rt.authMiddleware.RequirePermission
	h := rt.h

	// Auth
	r.Get("/auth/me", h.Auth.Me)
	r.Get("/auth/permissions", h.Auth.Permissions)

	// Audit logs
	r.Route("/audit", func(r chi.Router) {
		r.Use(need(domain.PermissionSystemAuditLogs))
		r.Get("/", h.Audit.List)
		r.Get("/entity/{entityType}/{entityId}", h.Audit.GetByEntity)
		r.Get("/{id}", h.Audit.GetByID)
	})

	// Clients
	r.Route("/clients", func(r chi.Router) {
		r.With(need(domain.PermissionClientsRead)).Get("/", h.Client.List)
		r.With(need(domain.PermissionClientsWrite)).Post("/", h.Client.Create)
		r.With(need(domain.PermissionClientsImport)).Post("/import", h.Client.Import)
		r.With(need(domain.PermissionClientsRead)).Get("/{id}", h.Client.GetByID)
		r.With(need(domain.PermissionClientsWrite)).Put("/{id}", h.Client.Update)
		r.With(need(domain.PermissionClientsDelete)).Delete("/{id}", h.Client.Delete)
	})

	// Developments
	r.Route("/developments", func(r chi.Router) {
		r.With(need(domain.PermissionDevelopmentsRead)).Get("/", h.Development.List)
		r.With(need(domain.PermissionDevelopmentsWrite)).Post("/", h.Development.Create)
		r.With(need(domain.PermissionDevelopmentsRead)).Post("/plan-preview", h.Development.PreviewPlan)
		r.With(need(domain.PermissionDevelopmentsRead)).Get("/{id}", h.Development.GetByID)
		r.With(need(domain.PermissionDevelopmentsWrite)).Put("/{id}", h.Development.Update)
		r.With(need(domain.PermissionDevelopmentsManage)).Put("/{id}/status", h.Development.UpdateStatus)
		r.With(need(domain.PermissionDevelopmentsRead)).Get("/{id}/schedule", h.Development.GetSchedule)
		r.With(need(domain.PermissionDevelopmentsWrite)).Post("/{id}/schedule/generate", h.Development.GenerateSchedule)
		r.With(need(domain.PermissionReportsExport)).Get("/{id}/schedule/export", h.Notice.ExportSchedule)
		r.With(need(domain.PermissionPaymentsRead)).Get("/{id}/payments", h.Development.ListPayments)
		r.With(need(domain.PermissionInvestorsRead)).Get("/{id}/loan", h.Investor.GetLoan)
	})

	// Payments
	r.Route("/payments", func(r chi.Router) {
		r.Use(need(domain.PermissionPaymentsRead))
		r.Get("/", h.Payment.List)
		r.Get("/{id}", h.Payment.GetByID)
		r.With(need(domain.PermissionPaymentsCollect)).Post("/{id}/collect", h.Payment.Collect)
		r.With(need(domain.PermissionPaymentsCollect)).Post("/{id}/cancel", h.Payment.Cancel)
		r.With(need(domain.PermissionPaymentsReverse)).Post("/{id}/reverse", h.Payment.Reverse)
		r.Get("/{id}/notice", h.Notice.PaymentNotice)
		r.Get("/{id}/receipt", h.Notice.Receipt)
		r.With(need(domain.PermissionReportsExport)).Post("/{id}/archive", h.Notice.Archive)
		r.Get("/{id}/documents/{kind}", h.Notice.Archived)
	})

	// Investors
	r.Route("/investors", func(r chi.Router) {
		r.Use(need(domain.PermissionInvestorsRead))
		r.Get("/", h.Investor.Overview)
		r.With(need(domain.PermissionReportsExport)).Get("/export", h.Notice.ExportInvestors)
	})

	// Orders
	r.Route("/orders", func(r chi.Router) {
		r.With(need(domain.PermissionOrdersRead)).Get("/", h.Order.List)
		r.With(need(domain.PermissionOrdersWrite)).Post("/", h.Order.Create)
		r.With(need(domain.PermissionDevelopmentsManage)).Post("/materialize", h.Order.Materialize)
		r.With(need(domain.PermissionOrdersRead)).Get("/{id}", h.Order.GetByID)
		r.With(need(domain.PermissionOrdersWrite)).Put("/{id}/status", h.Order.UpdateStatus)
	})

	// Leads
	r.Route("/leads", func(r chi.Router) {
		r.With(need(domain.PermissionLeadsRead)).Get("/", h.Lead.List)
		r.With(need(domain.PermissionLeadsWrite)).Post("/", h.Lead.Create)
		r.With(need(domain.PermissionLeadsRead)).Get("/reminders", h.Lead.Reminders)
		r.With(need(domain.PermissionLeadsRead)).Get("/{id}", h.Lead.GetByID)
		r.With(need(domain.PermissionLeadsWrite)).Put("/{id}", h.Lead.Update)
		r.With(need(domain.PermissionLeadsDelete)).Delete("/{id}", h.Lead.Delete)
		r.With(need(domain.PermissionLeadsWrite)).Put("/{id}/status", h.Lead.UpdateStatus)
		r.With(need(domain.PermissionLeadsWrite)).Post("/{id}/comments", h.Lead.AddComment)
		r.With(need(domain.PermissionLeadsConvert)).Post("/{id}/convert", h.Lead.Convert)
	})

	// Income
	r.Route("/income", func(r chi.Router) {
		r.Use(need(domain.PermissionIncomeRead))
		r.Get("/", h.Income.List)
		r.Get("/summary", h.Income.Summary)
	})
}

// databaseHealth is the readiness probe of the database with pool statistics
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

// readiness checks the database and every configured dependency
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	check := func(name string, err error) {
		if err != nil {
			rt.logger.Error("Health check failed", zap.String("service", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
			return
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	check("database", database.HealthCheck(ctx, rt.db))
	for _, dep := range rt.dependencies {
		check(dep.Name, dep.Check(ctx))
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
