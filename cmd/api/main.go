package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldops/fieldservice-api/docs"
	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/cache"
	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/database"
	"github.com/fieldops/fieldservice-api/internal/datawarehouse"
	"github.com/fieldops/fieldservice-api/internal/http/handler"
	"github.com/fieldops/fieldservice-api/internal/http/middleware"
	"github.com/fieldops/fieldservice-api/internal/http/router"
	"github.com/fieldops/fieldservice-api/internal/jobs"
	"github.com/fieldops/fieldservice-api/internal/logger"
	"github.com/fieldops/fieldservice-api/internal/render"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/storage"
	"github.com/fieldops/fieldservice-api/internal/tracing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title Field Service API
// @version 1.0
// @description Installment financing of access developments, investor loans, service orders and sales leads

// @contact.name API Support
// @contact.email soporte@fieldops.mx

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// In development secrets come from the environment, in staging/production from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	shutdownTracing, err := tracing.Init(ctx, &cfg.Tracing, &cfg.App, log)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Warn("Database schema auto-migrated, use cmd/migrate outside development")
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	var dependencies []router.Dependency

	// Investor figures are cached in redis when configured, otherwise computed per request
	var store cache.Store = cache.NoopStore{}
	var redisStore *cache.RedisStore
	if cfg.Redis.Enabled {
		redisStore = cache.NewRedisStore(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisStore.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("Redis unavailable, investor figures will not be cached", zap.Error(err))
			_ = redisStore.Close()
			redisStore = nil
		} else {
			store = redisStore
			dependencies = append(dependencies, router.Dependency{Name: "redis", Check: redisStore.Ping})
			log.Info("Redis cache connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// The ERP warehouse is optional and read-only, the app runs without it
	dwClient, err := datawarehouse.NewClient(&cfg.DataWarehouse, log)
	if err != nil {
		log.Warn("Data warehouse connection failed, continuing without it", zap.Error(err))
		dwClient = nil
	}
	if dwClient.IsEnabled() {
		dependencies = append(dependencies, router.Dependency{
			Name: "datawarehouse",
			Check: func(ctx context.Context) error {
				if status := dwClient.HealthCheck(ctx); status.Error != "" {
					return errors.New(status.Error)
				}
				return nil
			},
		})
	}

	renderer, err := render.New(render.Issuer{
		Name:    cfg.Financing.IssuerName,
		Address: cfg.Financing.IssuerAddress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize document templates: %w", err)
	}

	calendar := service.NewCalendar(cfg.Financing.Location())

	// Repositories
	clientRepo := repository.NewClientRepository(db)
	developmentRepo := repository.NewDevelopmentRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	serviceOrderRepo := repository.NewServiceOrderRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Services
	auditLogService := service.NewAuditLogService(auditLogRepo, calendar, log)
	clientService := service.NewClientService(clientRepo, dwClient, log)
	scheduleService := service.NewScheduleService(db, developmentRepo, paymentRepo, serviceOrderRepo, calendar, log)
	investorService := service.NewInvestorService(loanRepo, paymentRepo, store, cfg.Redis.TTLDuration(), calendar, log)
	developmentService := service.NewDevelopmentService(db, developmentRepo, loanRepo, clientRepo, paymentRepo, orderRepo, scheduleService, investorService, calendar, log)
	paymentService := service.NewPaymentService(db, paymentRepo, developmentRepo, loanRepo, incomeRepo, investorService, cfg.Financing.IncomeCategory, calendar, log)
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, cfg.Financing.OrderPrefix, calendar, log)
	orderService := service.NewOrderService(db, orderRepo, clientRepo, developmentRepo, serviceOrderRepo, numberSequenceService, cfg.Financing.OrderLookaheadDays, calendar, log)
	leadService := service.NewLeadService(db, leadRepo, clientRepo, developmentService, investorService, calendar, log)
	noticeService := service.NewNoticeService(paymentRepo, developmentRepo, investorService, renderer, fileStorage, calendar, log)
	incomeService := service.NewIncomeService(incomeRepo, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, log)

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(log),
		Audit:       handler.NewAuditHandler(auditLogService, log),
		Client:      handler.NewClientHandler(clientService, log),
		Development: handler.NewDevelopmentHandler(developmentService, scheduleService, paymentService, log),
		Payment:     handler.NewPaymentHandler(paymentService, log),
		Notice:      handler.NewNoticeHandler(noticeService, auditLogService, log),
		Investor:    handler.NewInvestorHandler(investorService, log),
		Order:       handler.NewOrderHandler(orderService, log),
		Lead:        handler.NewLeadHandler(leadService, log),
		Income:      handler.NewIncomeHandler(incomeService, log),
	}

	rt := router.NewRouter(cfg, log, db, dependencies, authMiddleware, rateLimiter, auditMiddleware, handlers)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log, cfg.Financing.Location(), cfg.Jobs.TimeoutDuration())
		svc := jobs.Services{
			Orders:    orderService,
			Schedules: scheduleService,
			Audit:     auditLogService,
		}
		if dwClient.IsEnabled() {
			svc.Clients = clientService
			svc.Imports = auditLogService
		}
		if err := jobs.Register(scheduler, &cfg.Jobs, svc, service.ErrDataWarehouseDisabled, log); err != nil {
			return fmt.Errorf("failed to register jobs: %w", err)
		}
		scheduler.Start()
		if cfg.Jobs.RunOnStartup {
			jobs.RunStartup(scheduler, svc, log)
		}
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if err := dwClient.Close(); err != nil {
			log.Warn("Error closing data warehouse connection", zap.Error(err))
		}
		if redisStore != nil {
			if err := redisStore.Close(); err != nil {
				log.Warn("Error closing redis connection", zap.Error(err))
			}
		}
		if err := shutdownTracing(ctx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
