package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/config"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"go.uber.org/zap"
)

const (
	MaterializeJobName  = "materialize_service_orders"
	TopUpJobName        = "schedule_top_up"
	ClientSyncJobName   = "erp_client_sync"
	AuditCleanupJobName = "audit_cleanup"
)

// OrderMaterializer turns due service visits into orders
type OrderMaterializer interface {
	MaterializeServiceOrders(ctx context.Context) (*domain.MaterializationResultDTO, error)
}

// ScheduleToppingUp completes the schedules of active developments
type ScheduleToppingUp interface {
	TopUpActive(ctx context.Context) (int, error)
}

// ClientImporter imports customers from the ERP
type ClientImporter interface {
	SyncFromERP(ctx context.Context) (*domain.ClientImportResultDTO, error)
}

// ImportRecorder writes an audit entry for a finished import
type ImportRecorder interface {
	LogImport(ctx context.Context, r *http.Request, entityType string, count int, source string) error
}

// AuditCleaner enforces the audit log retention
type AuditCleaner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

// Services are the job bodies. Clients, Imports and Audit may be nil.
type Services struct {
	Orders    OrderMaterializer
	Schedules ScheduleToppingUp
	Clients   ClientImporter
	Imports   ImportRecorder
	Audit     AuditCleaner
}

// MaterializeJob creates the orders of service visits within the look-ahead window
func MaterializeJob(orders OrderMaterializer) Func {
	return func(ctx context.Context) error {
		_, err := orders.MaterializeServiceOrders(ctx)
		return err
	}
}

// TopUpJob regenerates missing schedule rows of active developments
func TopUpJob(schedules ScheduleToppingUp, logger *zap.Logger) Func {
	return func(ctx context.Context) error {
		healed, err := schedules.TopUpActive(ctx)
		if err != nil {
			return err
		}
		if healed > 0 {
			logger.Info("schedules topped up", zap.Int("developments", healed))
		}
		return nil
	}
}

// ClientSyncJob imports ERP customers. A missing warehouse connection is not a failure.
func ClientSyncJob(clients ClientImporter, imports ImportRecorder, disabled error) Func {
	return func(ctx context.Context) error {
		result, err := clients.SyncFromERP(ctx)
		if disabled != nil && errors.Is(err, disabled) {
			return nil
		}
		if err != nil {
			return err
		}
		if imports != nil && result != nil {
			return imports.LogImport(ctx, nil, "client", result.Created+result.Updated, "erp_sync_job")
		}
		return nil
	}
}

// AuditCleanupJob deletes audit entries older than retentionDays
func AuditCleanupJob(audit AuditCleaner, retentionDays int) Func {
	return func(ctx context.Context) error {
		_, err := audit.CleanupOldLogs(ctx, retentionDays)
		return err
	}
}

type entry struct {
	name string
	expr string
	fn   Func
}

// Register adds every configured job to the scheduler. Jobs with an empty
// schedule are skipped. disabledERP is the error a client sync returns when no
// warehouse is configured.
func Register(s *Scheduler, cfg *config.JobsConfig, svc Services, disabledERP error, logger *zap.Logger) error {
	jobs := []entry{
		{MaterializeJobName, cfg.MaterializeSchedule, MaterializeJob(svc.Orders)},
		{TopUpJobName, cfg.ScheduleTopUpSchedule, TopUpJob(svc.Schedules, logger)},
	}
	if svc.Clients != nil {
		jobs = append(jobs, entry{ClientSyncJobName, cfg.ClientSyncSchedule, ClientSyncJob(svc.Clients, svc.Imports, disabledERP)})
	}
	if svc.Audit != nil && cfg.AuditRetentionDays > 0 {
		jobs = append(jobs, entry{AuditCleanupJobName, cfg.AuditCleanupSchedule, AuditCleanupJob(svc.Audit, cfg.AuditRetentionDays)})
	}

	for _, j := range jobs {
		if j.expr == "" {
			logger.Info("job disabled, no schedule configured", zap.String("job_name", j.name))
			continue
		}
		if err := s.AddJob(j.name, j.expr, j.fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", j.name, err)
		}
	}
	return nil
}

// RunStartup runs the top-up and materialization once in the background, so a
// deployment after downtime catches up without waiting for the next trigger
func RunStartup(s *Scheduler, svc Services, logger *zap.Logger) {
	go func() {
		s.Run(TopUpJobName, TopUpJob(svc.Schedules, logger))
		s.Run(MaterializeJobName, MaterializeJob(svc.Orders))
	}()
}
