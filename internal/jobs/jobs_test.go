package jobs_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrders struct{ calls int }

func (f *fakeOrders) MaterializeServiceOrders(context.Context) (*domain.MaterializationResultDTO, error) {
	f.calls++
	return &domain.MaterializationResultDTO{}, nil
}

type fakeSchedules struct {
	calls int
	err   error
}

func (f *fakeSchedules) TopUpActive(context.Context) (int, error) {
	f.calls++
	return 1, f.err
}

type fakeClients struct{ err error }

func (f *fakeClients) SyncFromERP(context.Context) (*domain.ClientImportResultDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ClientImportResultDTO{Fetched: 3, Created: 1, Updated: 2}, nil
}

type fakeImports struct {
	count  int
	source string
}

func (f *fakeImports) LogImport(_ context.Context, _ *http.Request, _ string, count int, source string) error {
	f.count = count
	f.source = source
	return nil
}

type fakeAudit struct{ retention int }

func (f *fakeAudit) CleanupOldLogs(_ context.Context, retentionDays int) (int64, error) {
	f.retention = retentionDays
	return 0, nil
}

func TestRegister(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop(), time.UTC, time.Minute)
	cfg := &config.JobsConfig{
		MaterializeSchedule:   "0 0 5 * * *",
		ScheduleTopUpSchedule: "0 30 4 * * 1",
		ClientSyncSchedule:    "",
		AuditCleanupSchedule:  "0 0 3 * * 0",
		AuditRetentionDays:    30,
	}
	svc := jobs.Services{
		Orders:    &fakeOrders{},
		Schedules: &fakeSchedules{},
		Clients:   &fakeClients{},
		Audit:     &fakeAudit{},
	}

	require.NoError(t, jobs.Register(s, cfg, svc, nil, zap.NewNop()))
	assert.Equal(t, []string{jobs.AuditCleanupJobName, jobs.MaterializeJobName, jobs.TopUpJobName}, s.JobNames())

	err := s.AddJob(jobs.TopUpJobName, "@every 1h", jobs.TopUpJob(svc.Schedules, zap.NewNop()))
	assert.Error(t, err)

	require.NoError(t, s.RemoveJob(jobs.TopUpJobName))
	assert.Error(t, s.RemoveJob(jobs.TopUpJobName))
}

func TestRegister_InvalidExpression(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop(), nil, 0)
	cfg := &config.JobsConfig{MaterializeSchedule: "every morning"}

	err := jobs.Register(s, cfg, jobs.Services{Orders: &fakeOrders{}, Schedules: &fakeSchedules{}}, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestJobBodies(t *testing.T) {
	ctx := context.Background()

	orders := &fakeOrders{}
	require.NoError(t, jobs.MaterializeJob(orders)(ctx))
	assert.Equal(t, 1, orders.calls)

	boom := errors.New("boom")
	assert.ErrorIs(t, jobs.TopUpJob(&fakeSchedules{err: boom}, zap.NewNop())(ctx), boom)

	disabled := errors.New("disabled")
	imports := &fakeImports{}
	assert.NoError(t, jobs.ClientSyncJob(&fakeClients{err: disabled}, imports, disabled)(ctx))
	assert.Zero(t, imports.count)
	assert.ErrorIs(t, jobs.ClientSyncJob(&fakeClients{err: boom}, imports, disabled)(ctx), boom)
	require.NoError(t, jobs.ClientSyncJob(&fakeClients{}, imports, disabled)(ctx))
	assert.Equal(t, 3, imports.count)
	assert.Equal(t, "erp_sync_job", imports.source)

	audit := &fakeAudit{}
	require.NoError(t, jobs.AuditCleanupJob(audit, 90)(ctx))
	assert.Equal(t, 90, audit.retention)
}

func TestScheduler_Run(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop(), time.UTC, time.Second)

	var deadline bool
	s.Run("probe", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	assert.True(t, deadline)

	// failures are logged, not propagated
	s.Run("failing", func(context.Context) error { return errors.New("nope") })
}
