package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/cache"
	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/http/handler"
	"github.com/fieldops/fieldservice-api/internal/http/middleware"
	"github.com/fieldops/fieldservice-api/internal/http/router"
	"github.com/fieldops/fieldservice-api/internal/render"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/storage"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "router-test-signing-secret"
)

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "Field Service API", Environment: "development"},
		Auth:   config.AuthConfig{JWTSecret: testJWTSecret, Audience: "authenticated", RoleClaim: "user_role", DefaultRole: "viewer"},
		ApiKey: config.ApiKeyConfig{Value: testAPIKey},
		Server: config.ServerConfig{EnableMetrics: true},
		CORS:   config.CORSConfig{AllowedMethods: []string{"GET", "POST"}},
		RateLimit: config.RateLimitConfig{
			Enabled:               true,
			RequestsPerMinute:     1000,
			RequestsPerMinuteAuth: 1000,
		},
	}
}

func setup(t *testing.T, deps ...router.Dependency) http.Handler {
	t.Helper()

	cfg := testConfig()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	calendar := service.NewFixedCalendar(time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	clientRepo := repository.NewClientRepository(db)
	developmentRepo := repository.NewDevelopmentRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	serviceOrderRepo := repository.NewServiceOrderRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	renderer, err := render.New(render.Issuer{Name: "FieldOps Servicios"})
	require.NoError(t, err)

	schedules := service.NewScheduleService(db, developmentRepo, paymentRepo, serviceOrderRepo, calendar, logger)
	investors := service.NewInvestorService(loanRepo, paymentRepo, cache.NoopStore{}, time.Minute, calendar, logger)
	developments := service.NewDevelopmentService(db, developmentRepo, loanRepo, clientRepo, paymentRepo, orderRepo, schedules, investors, calendar, logger)
	payments := service.NewPaymentService(db, paymentRepo, developmentRepo, loanRepo, incomeRepo, investors, "development_fee", calendar, logger)
	numbers := service.NewNumberSequenceService(repository.NewNumberSequenceRepository(db), "ORD", calendar, logger)
	orders := service.NewOrderService(db, orderRepo, clientRepo, developmentRepo, serviceOrderRepo, numbers, 7, calendar, logger)
	leads := service.NewLeadService(db, repository.NewLeadRepository(db), clientRepo, developments, investors, calendar, logger)
	notices := service.NewNoticeService(paymentRepo, developmentRepo, investors, renderer, store, calendar, logger)
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), calendar, logger)

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(logger),
		Audit:       handler.NewAuditHandler(audit, logger),
		Client:      handler.NewClientHandler(service.NewClientService(clientRepo, nil, logger), logger),
		Development: handler.NewDevelopmentHandler(developments, schedules, payments, logger),
		Payment:     handler.NewPaymentHandler(payments, logger),
		Notice:      handler.NewNoticeHandler(notices, audit, logger),
		Investor:    handler.NewInvestorHandler(investors, logger),
		Order:       handler.NewOrderHandler(orders, logger),
		Lead:        handler.NewLeadHandler(leads, logger),
		Income:      handler.NewIncomeHandler(service.NewIncomeService(incomeRepo, logger), logger),
	}

	rt := router.NewRouter(cfg, logger, db, deps,
		auth.NewMiddleware(cfg, logger),
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		middleware.NewAuditMiddleware(audit, logger),
		handlers)
	return rt.Setup()
}

func viewerToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       uuid.New().String(),
		"aud":       "authenticated",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"user_role": "viewer",
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func get(h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	h := setup(t)

	rec := get(h, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = get(h, "/health/db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dbHealth map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dbHealth))
	assert.Equal(t, "healthy", dbHealth["status"])
	assert.Contains(t, dbHealth, "stats")

	rec = get(h, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness_FailingDependency(t *testing.T) {
	h := setup(t, router.Dependency{
		Name:  "redis",
		Check: func(context.Context) error { return errors.New("connection refused") },
	})

	rec := get(h, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status string                            `json:"status"`
		Checks map[string]map[string]interface{} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"]["status"])
	assert.Equal(t, "connection refused", body.Checks["redis"]["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := setup(t)
	get(h, "/health", nil)

	rec := get(h, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAPIAuthentication(t *testing.T) {
	h := setup(t)

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		status  int
	}{
		{"no credentials", "/api/v1/auth/me", nil, http.StatusUnauthorized},
		{"wrong api key", "/api/v1/auth/me", map[string]string{"x-api-key": "nope"}, http.StatusUnauthorized},
		{"api key", "/api/v1/auth/me", map[string]string{"x-api-key": testAPIKey}, http.StatusOK},
		{"api key reaches audit log", "/api/v1/audit", map[string]string{"x-api-key": testAPIKey}, http.StatusOK},
		{"viewer reads developments", "/api/v1/developments", map[string]string{"Authorization": "Bearer " + viewerToken(t)}, http.StatusOK},
		{"viewer denied audit log", "/api/v1/audit", map[string]string{"Authorization": "Bearer " + viewerToken(t)}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(h, tt.path, tt.headers)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}
