package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditHandler handles audit log related HTTP requests
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of audit log entries with optional filters
// @Tags Audit
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 200)"
// @Param userId query string false "Filter by user ID"
// @Param action query string false "Filter by action type" Enums(create, update, delete, collect, reverse, convert, export, import, api_call)
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AuditLogDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()
	params := service.AuditLogQueryParams{
		UserID:     q.Get("userId"),
		EntityType: q.Get("entityType"),
		Page:       page,
		PageSize:   pageSize,
	}

	if action := q.Get("action"); action != "" {
		a := domain.AuditAction(action)
		params.Action = &a
	}

	var err error
	if params.EntityID, err = queryUUID(r, "entityId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	for name, target := range map[string]**time.Time{"startTime": &params.StartTime, "endTime": &params.EndTime} {
		value := q.Get(name)
		if value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid "+name+", expected RFC3339")
			return
		}
		*target = &t
	}

	result, err := h.auditService.List(r.Context(), params)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to retrieve audit logs")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get audit log by ID
// @Tags Audit
// @Produce json
// @Param id path string true "Audit log ID"
// @Success 200 {object} domain.AuditLogDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit/{id} [get]
func (h *AuditHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "audit log")
	if !ok {
		return
	}

	entry, err := h.auditService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to retrieve audit log")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// GetByEntity godoc
// @Summary Get audit history of an entity
// @Tags Audit
// @Produce json
// @Param entityType path string true "Entity type" Enums(client, development, payment, order, lead, investor, notice)
// @Param entityId path string true "Entity ID"
// @Param limit query int false "Maximum entries (default: 50)"
// @Success 200 {array} domain.AuditLogDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit/entity/{entityType}/{entityId} [get]
func (h *AuditHandler) GetByEntity(w http.ResponseWriter, r *http.Request) {
	entityID, err := uuid.Parse(chi.URLParam(r, "entityId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid entity ID format")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := h.auditService.GetByEntity(r.Context(), chi.URLParam(r, "entityType"), entityID, limit)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to retrieve audit logs")
		return
	}
	respondJSON(w, http.StatusOK, logs)
}
