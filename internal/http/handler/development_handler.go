package handler

import (
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// DevelopmentHandler handles HTTP requests for developments and their schedules
type DevelopmentHandler struct {
	developmentService *service.DevelopmentService
	scheduleService    *service.ScheduleService
	paymentService     *service.PaymentService
	logger             *zap.Logger
}

func NewDevelopmentHandler(
	developmentService *service.DevelopmentService,
	scheduleService *service.ScheduleService,
	paymentService *service.PaymentService,
	logger *zap.Logger,
) *DevelopmentHandler {
	return &DevelopmentHandler{
		developmentService: developmentService,
		scheduleService:    scheduleService,
		paymentService:     paymentService,
		logger:             logger,
	}
}

// List godoc
// @Summary List developments
// @Tags Developments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name, address or investor"
// @Param status query string false "Filter by status" Enums(active, suspended, cancelled, completed)
// @Param clientId query string false "Filter by client" format(uuid)
// @Param hasInvestor query bool false "Filter by investor financing"
// @Param sortBy query string false "Sort field" Enums(name, status, monthlyPayment, contractStartDate, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.DevelopmentDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments [get]
func (h *DevelopmentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	clientID, err := queryUUID(r, "clientId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters := &repository.DevelopmentFilters{
		Search:      r.URL.Query().Get("search"),
		ClientID:    clientID,
		HasInvestor: queryBool(r, "hasInvestor"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.DevelopmentStatus(status)
		filters.Status = &s
	}

	result, err := h.developmentService.List(r.Context(), page, pageSize, filters, parseSort(r, ""))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list developments")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get development by ID
// @Description Returns the development with its investor loan and schedule summary
// @Tags Developments
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Success 200 {object} domain.DevelopmentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id} [get]
func (h *DevelopmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}

	dev, err := h.developmentService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get development")
		return
	}
	respondJSON(w, http.StatusOK, dev)
}

// Create godoc
// @Summary Create development
// @Description Creates the development, its investor loan when financed, and generates the payment and service schedules
// @Tags Developments
// @Accept json
// @Produce json
// @Param request body domain.CreateDevelopmentRequest true "Development data"
// @Success 201 {object} domain.DevelopmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Client not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments [post]
func (h *DevelopmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateDevelopmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dev, err := h.developmentService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create development")
		return
	}

	w.Header().Set("Location", "/api/v1/developments/"+dev.ID.String())
	respondJSON(w, http.StatusCreated, dev)
}

// Update godoc
// @Summary Update development
// @Description Changing the monthly payment or duration regenerates the pending payments due from today on
// @Tags Developments
// @Accept json
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Param request body domain.UpdateDevelopmentRequest true "Development data"
// @Success 200 {object} domain.DevelopmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Development is closed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id} [put]
func (h *DevelopmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}
	var req domain.UpdateDevelopmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dev, err := h.developmentService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update development")
		return
	}
	respondJSON(w, http.StatusOK, dev)
}

// UpdateStatus godoc
// @Summary Change development status
// @Description Suspend, reactivate, cancel or complete a development. Cancelling or completing cancels its future pending payments and service visits.
// @Tags Developments
// @Accept json
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Param request body domain.UpdateDevelopmentStatusRequest true "New status"
// @Success 200 {object} domain.DevelopmentDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Invalid status transition"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id}/status [put]
func (h *DevelopmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}
	var req domain.UpdateDevelopmentStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dev, err := h.developmentService.ChangeStatus(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to change development status")
		return
	}
	respondJSON(w, http.StatusOK, dev)
}

// GetSchedule godoc
// @Summary Get development schedule
// @Description Returns every scheduled payment and service visit with the summary as of today
// @Tags Developments
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Success 200 {object} domain.DevelopmentScheduleDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id}/schedule [get]
func (h *DevelopmentHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}

	schedule, err := h.scheduleService.GetSchedule(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get schedule")
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

// GenerateSchedule godoc
// @Summary Generate development schedule
// @Description Creates the missing payment and service rows. Existing rows are never duplicated.
// @Tags Developments
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Success 200 {object} domain.ScheduleGenerationDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Development is closed"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id}/schedule/generate [post]
func (h *DevelopmentHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}

	result, err := h.scheduleService.Generate(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to generate schedule")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListPayments godoc
// @Summary List development payments
// @Tags Developments
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Success 200 {array} domain.ScheduledPaymentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id}/payments [get]
func (h *DevelopmentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListForDevelopment(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list payments")
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// PreviewPlan godoc
// @Summary Preview a recovery plan
// @Description Splits each month of a prospective contract between investor and company without saving anything
// @Tags Developments
// @Accept json
// @Produce json
// @Param request body domain.RecoveryPlanRequest true "Plan terms"
// @Success 200 {object} domain.RecoveryPlanDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/plan-preview [post]
func (h *DevelopmentHandler) PreviewPlan(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoveryPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.developmentService.PreviewPlan(&req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to preview plan")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}
