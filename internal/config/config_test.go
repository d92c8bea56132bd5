package config_test

import (
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "ORD", cfg.Financing.OrderPrefix)
	assert.Equal(t, 7, cfg.Financing.OrderLookaheadDays)
	assert.Equal(t, "0 0 5 * * *", cfg.Jobs.MaterializeSchedule)
	assert.Equal(t, 365, cfg.Jobs.AuditRetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTLDuration())
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("FINANCING_ORDERPREFIX", "OT")
	t.Setenv("JOBS_AUDITRETENTIONDAYS", "90")
	t.Setenv("REDIS_PASSWORD", "hunter2")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "OT", cfg.Financing.OrderPrefix)
	assert.Equal(t, 90, cfg.Jobs.AuditRetentionDays)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
}

func TestFinancingConfig_Location(t *testing.T) {
	f := &config.FinancingConfig{Timezone: "America/Mexico_City"}
	assert.Equal(t, "America/Mexico_City", f.Location().String())

	f.Timezone = "Not/AZone"
	assert.Equal(t, time.UTC, f.Location())

	f.Timezone = ""
	assert.Equal(t, time.UTC, f.Location())
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := &config.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "fs", SSLMode: "require"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=fs sslmode=require", d.ConnectionString())
}
