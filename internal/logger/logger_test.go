package logger

import (
	"testing"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		logging   config.LoggingConfig
		app       config.AppConfig
		wantLevel zapcore.Level
	}{
		{
			name:      "development console",
			logging:   config.LoggingConfig{Level: "debug", Format: "console"},
			app:       config.AppConfig{Name: "test", Environment: "development"},
			wantLevel: zapcore.DebugLevel,
		},
		{
			name:      "production json",
			logging:   config.LoggingConfig{Level: "warn", Format: "json"},
			app:       config.AppConfig{Name: "test", Environment: "production"},
			wantLevel: zapcore.WarnLevel,
		},
		{
			name:      "invalid level falls back to info",
			logging:   config.LoggingConfig{Level: "loud"},
			app:       config.AppConfig{Name: "test", Environment: "development"},
			wantLevel: zapcore.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(&tt.logging, &tt.app)
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.True(t, log.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, log.Core().Enabled(tt.wantLevel-1))
			}
		})
	}
}

func TestContextLoggers(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithRequest(base, "POST", "/api/v1/payments", "req-1").Info("request")
	WithJob(base, "audit_cleanup").Info("job")
	WithPayment(base, "dev-1", "pay-1", "2026-03").Info("payment collected")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, map[string]interface{}{
		"method":     "POST",
		"path":       "/api/v1/payments",
		"request_id": "req-1",
	}, entries[0].ContextMap())
	assert.Equal(t, "audit_cleanup", entries[1].ContextMap()["job"])
	assert.Equal(t, map[string]interface{}{
		"development_id": "dev-1",
		"payment_id":     "pay-1",
		"period":         "2026-03",
	}, entries[2].ContextMap())
}
