package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/http/middleware"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type auditSink struct {
	entries chan service.LogEntry
}

func (s *auditSink) Log(_ context.Context, _ *http.Request, entry service.LogEntry) error {
	s.entries <- entry
	return nil
}

func (s *auditSink) next(t *testing.T) service.LogEntry {
	t.Helper()
	select {
	case e := <-s.entries:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no audit entry recorded")
		return service.LogEntry{}
	}
}

func TestAudit(t *testing.T) {
	sink := &auditSink{entries: make(chan service.LogEntry, 4)}
	audit := middleware.NewAuditMiddleware(sink, zap.NewNop())

	var handlerBody string
	r := chi.NewRouter()
	r.Use(audit.Audit)
	r.Post("/api/v1/payments/{id}/collect", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		handlerBody = string(b)
		w.WriteHeader(http.StatusOK)
	})
	r.Put("/api/v1/developments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/api/v1/developments/{id}", func(w http.ResponseWriter, r *http.Request) {})

	id := uuid.New()
	body := `{"paidAt":"2026-03-10","paymentMethod":"cash","token":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/"+id.String()+"/collect", strings.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, body, handlerBody, "handler still sees the full body")
	entry := sink.next(t)
	assert.Equal(t, domain.AuditActionCollect, entry.Action)
	assert.Equal(t, "payment", entry.EntityType)
	require.NotNil(t, entry.EntityID)
	assert.Equal(t, id, *entry.EntityID)
	values := entry.NewValues.(map[string]interface{})
	assert.Equal(t, "cash", values["paymentMethod"])
	assert.NotContains(t, values, "token")

	// failed modifications and reads are not recorded
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/developments/"+id.String(), strings.NewReader(`{}`)))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/developments/"+id.String(), nil))
	select {
	case e := <-sink.entries:
		t.Fatalf("unexpected audit entry %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSecurityHeaders(t *testing.T) {
	cfg := &config.SecurityConfig{
		ContentTypeNosniff: true,
		FrameOptions:       "DENY",
		EnableHSTS:         true,
		HSTSMaxAge:         600,
		HSTSPreload:        true,
	}
	h := middleware.SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=600; preload", rec.Header().Get("Strict-Transport-Security"))
	assert.Empty(t, rec.Header().Get("Referrer-Policy"))
}

func TestLogging_RequestID(t *testing.T) {
	var seen string
	h := middleware.Logging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))

	given := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, given)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, given, seen)
}

func TestRecovery(t *testing.T) {
	h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), domain.ErrorTypeInternal)
}

func TestRateLimiter(t *testing.T) {
	rl := middleware.NewRateLimiter(&config.RateLimitConfig{
		Enabled:               true,
		RequestsPerMinute:     2,
		RequestsPerMinuteAuth: 2,
		WhitelistIPs:          []string{"10.9.9.9"},
		WhitelistPaths:        []string{"/health", "/docs/*"},
	}, zap.NewNop())
	h := rl.LimitByIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("/api/v1/clients", "192.0.2.1"))
	assert.Equal(t, http.StatusOK, call("/api/v1/clients", "192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("/api/v1/clients", "192.0.2.1"))

	assert.Equal(t, http.StatusOK, call("/api/v1/clients", "192.0.2.2"), "limits are per client")
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, call("/health", "192.0.2.1"))
		assert.Equal(t, http.StatusOK, call("/docs/index.html", "192.0.2.1"))
		assert.Equal(t, http.StatusOK, call("/api/v1/clients", "10.9.9.9"))
	}
}
