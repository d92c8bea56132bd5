package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogService_LogAndList(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.April, 1))
	ctx := userCtx()
	entityID := uuid.New()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments/x/collect", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.Header.Set("X-Request-ID", "req-42")
	r.Header.Set("User-Agent", "fieldops-mobile/3.1")

	require.NoError(t, f.audit.Log(ctx, r, service.LogEntry{
		Action:     domain.AuditActionCollect,
		EntityType: "payment",
		EntityID:   &entityID,
		EntityName: "2026-03",
		NewValues:  map[string]string{"amount": "3000.00"},
	}))
	require.NoError(t, f.audit.LogExport(ctx, nil, "investor_overview", nil, "csv"))

	list, err := f.audit.List(context.Background(), service.AuditLogQueryParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)

	collect := domain.AuditActionCollect
	list, err = f.audit.List(context.Background(), service.AuditLogQueryParams{Action: &collect})
	require.NoError(t, err)
	require.Equal(t, int64(1), list.Total)

	entries, err := f.audit.GetByEntity(context.Background(), "payment", entityID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "Laura Méndez", entry.UserName)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.Equal(t, "req-42", entry.RequestID)
	assert.JSONEq(t, `{"amount":"3000.00"}`, entry.NewValues)

	fetched, err := f.audit.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, fetched.ID)

	_, err = f.audit.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAuditLogService_CleanupOldLogs(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.April, 1))

	old := &domain.AuditLog{
		Action:      domain.AuditActionUpdate,
		EntityType:  "development",
		PerformedAt: testutil.Date(2025, time.December, 1),
	}
	require.NoError(t, f.db.Create(old).Error)
	require.NoError(t, f.audit.Log(context.Background(), nil, service.LogEntry{
		Action:     domain.AuditActionCreate,
		EntityType: "development",
	}))

	deleted, err := f.audit.CleanupOldLogs(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, err := f.audit.List(context.Background(), service.AuditLogQueryParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.2"}, "10.0.0.3:5000", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.3:5000", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.10:41234", "192.0.2.10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, service.ClientIP(r))
		})
	}
}
