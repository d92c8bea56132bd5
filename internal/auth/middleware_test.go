package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestMiddleware() *auth.Middleware {
	cfg := &config.Config{
		Auth:   *testAuthConfig(),
		ApiKey: config.ApiKeyConfig{Value: "admin-key"},
	}
	return auth.NewMiddleware(cfg, zap.NewNop())
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.FromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(user.DisplayName))
	})
}

func TestAuthenticate(t *testing.T) {
	m := newTestMiddleware()

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		wantBody string
	}{
		{"api key", map[string]string{"x-api-key": "admin-key"}, http.StatusOK, "System"},
		{"bad api key", map[string]string{"x-api-key": "nope"}, http.StatusUnauthorized, ""},
		{"missing header", nil, http.StatusUnauthorized, ""},
		{"basic scheme", map[string]string{"Authorization": "Basic abc"}, http.StatusUnauthorized, ""},
		{"bearer", map[string]string{"Authorization": "Bearer " + signToken(t, baseClaims(uuid.New()), testSecret)}, http.StatusOK, "Ana Ruiz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/developments", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			m.Authenticate(echoUser()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	m := newTestMiddleware()
	handler := m.RequirePermission(domain.PermissionPaymentsReverse)(echoUser())

	staff := &auth.UserContext{DisplayName: "staff", Roles: []domain.UserRoleType{domain.RoleStaff}}
	manager := &auth.UserContext{DisplayName: "manager", Roles: []domain.UserRoleType{domain.RoleManager}}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(auth.WithUserContext(req.Context(), staff)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(auth.WithUserContext(req.Context(), manager)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
