package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditLogService records who changed what. Entries are written by the audit
// middleware for every modifying request and by services for business events.
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	calendar  *Calendar
	logger    *zap.Logger
}

func NewAuditLogService(auditRepo *repository.AuditLogRepository, calendar *Calendar, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		calendar:  calendar,
		logger:    logger,
	}
}

// LogEntry is the input of one audit record
type LogEntry struct {
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	EntityName string
	NewValues  interface{}
	Metadata   map[string]interface{}
}

// Log writes an entry, taking the actor from ctx and the client details from r
// when given
func (s *AuditLogService) Log(ctx context.Context, r *http.Request, entry LogEntry) error {
	auditLog := &domain.AuditLog{
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		EntityName:  entry.EntityName,
		NewValues:   toJSON(entry.NewValues),
		Metadata:    toJSON(entry.Metadata),
		PerformedAt: s.calendar.Now(),
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		auditLog.UserID = userCtx.UserIDString()
		auditLog.UserEmail = userCtx.Email
		auditLog.UserName = userCtx.DisplayName
	}

	if r != nil {
		auditLog.IPAddress = ClientIP(r)
		auditLog.UserAgent = r.UserAgent()
		auditLog.RequestID = r.Header.Get("X-Request-ID")
	}

	if err := s.auditRepo.Create(ctx, auditLog); err != nil {
		s.logger.Error("failed to create audit log",
			zap.String("action", string(entry.Action)),
			zap.String("entity_type", entry.EntityType),
			zap.Error(err))
		return err
	}
	return nil
}

func toJSON(v interface{}) string {
	if v == nil {
		return "null"
	}
	if m, ok := v.(map[string]interface{}); ok && m == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

// LogExport records a document or CSV export
func (s *AuditLogService) LogExport(ctx context.Context, r *http.Request, entityType string, entityID *uuid.UUID, format string) error {
	return s.Log(ctx, r, LogEntry{
		Action:     domain.AuditActionExport,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   map[string]interface{}{"format": format},
	})
}

// LogImport records an import from an external system
func (s *AuditLogService) LogImport(ctx context.Context, r *http.Request, entityType string, count int, source string) error {
	return s.Log(ctx, r, LogEntry{
		Action:     domain.AuditActionImport,
		EntityType: entityType,
		Metadata: map[string]interface{}{
			"count":  count,
			"source": source,
		},
	})
}

// AuditLogQueryParams are the filters of an audit log listing
type AuditLogQueryParams struct {
	UserID     string
	Action     *domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	StartTime  *time.Time
	EndTime    *time.Time
	Page       int
	PageSize   int
}

func (s *AuditLogService) List(ctx context.Context, params AuditLogQueryParams) (*domain.PaginatedResponse, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)
	filter := &repository.AuditLogFilter{
		UserID:     params.UserID,
		Action:     params.Action,
		EntityType: params.EntityType,
		EntityID:   params.EntityID,
		StartTime:  params.StartTime,
		EndTime:    params.EndTime,
	}

	logs, total, err := s.auditRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *AuditLogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditLogDTO, error) {
	entry, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	dto := mapper.ToAuditLogDTO(entry)
	return &dto, nil
}

// GetByEntity returns the latest entries of one entity
func (s *AuditLogService) GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit int) ([]domain.AuditLogDTO, error) {
	logs, err := s.auditRepo.ListByEntity(ctx, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	dtos := make([]domain.AuditLogDTO, len(logs))
	for i := range logs {
		dtos[i] = mapper.ToAuditLogDTO(&logs[i])
	}
	return dtos, nil
}

// CleanupOldLogs removes entries older than the retention period
func (s *AuditLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	before := s.calendar.Now().AddDate(0, 0, -retentionDays)
	count, err := s.auditRepo.DeleteOlderThan(ctx, before)
	if err != nil {
		s.logger.Error("failed to cleanup old audit logs",
			zap.Int("retention_days", retentionDays),
			zap.Error(err))
		return 0, err
	}
	if count > 0 {
		s.logger.Info("cleaned up old audit logs",
			zap.Int64("deleted_count", count),
			zap.Int("retention_days", retentionDays))
	}
	return count, nil
}

// ClientIP returns the originating client address, honouring proxy headers
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
