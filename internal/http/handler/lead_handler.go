package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// LeadHandler handles HTTP requests for the sales pipeline
type LeadHandler struct {
	leadService *service.LeadService
	logger      *zap.Logger
}

func NewLeadHandler(leadService *service.LeadService, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		leadService: leadService,
		logger:      logger,
	}
}

// List godoc
// @Summary List leads
// @Tags Leads
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name, contact or phone"
// @Param status query string false "Filter by status" Enums(nuevo, contactado, negociando, propuesta_enviada, aceptado, rechazado, pausado)
// @Param assignedTo query string false "Filter by assignee"
// @Param source query string false "Filter by source"
// @Param sortBy query string false "Sort field" Enums(name, status, reminderDate, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.LeadDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads [get]
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()
	filters := &repository.LeadFilters{
		Search:     q.Get("search"),
		AssignedTo: q.Get("assignedTo"),
		Source:     q.Get("source"),
	}
	if status := q.Get("status"); status != "" {
		s := domain.LeadStatus(status)
		filters.Status = &s
	}

	result, err := h.leadService.List(r.Context(), page, pageSize, filters, parseSort(r, ""))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list leads")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get lead by ID
// @Description Returns the lead with its comment and status history
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Success 200 {object} domain.LeadDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id} [get]
func (h *LeadHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lead")
	if !ok {
		return
	}

	lead, err := h.leadService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get lead")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Create godoc
// @Summary Create lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param request body domain.CreateLeadRequest true "Lead data"
// @Success 201 {object} domain.LeadDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads [post]
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leadService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create lead")
		return
	}

	w.Header().Set("Location", "/api/v1/leads/"+lead.ID.String())
	respondJSON(w, http.StatusCreated, lead)
}

// Update godoc
// @Summary Update lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Param request body domain.CreateLeadRequest true "Lead data"
// @Success 200 {object} domain.LeadDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id} [put]
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lead")
	if !ok {
		return
	}
	var req domain.UpdateLeadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leadService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update lead")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// UpdateStatus godoc
// @Summary Change lead status
// @Description Moves the lead along the pipeline and records the change in its history
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Param request body domain.UpdateLeadStatusRequest true "New status"
// @Success 200 {object} domain.LeadDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Invalid status transition"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id}/status [put]
func (h *LeadHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lead")
	if !ok {
		return
	}
	var req domain.UpdateLeadStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lead, err := h.leadService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update lead status")
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// AddComment godoc
// @Summary Comment on lead
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Param request body domain.AddLeadCommentRequest true "Comment"
// @Success 201 {object} domain.LeadCommentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id}/comments [post]
func (h *LeadHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lead")
	if !ok {
		return
	}
	var req domain.AddLeadCommentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.leadService.AddComment(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to add comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// Reminders godoc
// @Summary Due lead reminders
// @Description Open leads whose reminder date is today or earlier
// @Tags Leads
// @Produce json
// @Success 200 {array} domain.LeadDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/reminders [get]
func (h *LeadHandler) Reminders(w http.ResponseWriter, r *http.Request) {
	leads, err := h.leadService.ListDueReminders(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list reminders")
		return
	}
	respondJSON(w, http.StatusOK, leads)
}

// Convert godoc
// @Summary Convert lead
// @Description Turns an accepted lead into a development with its client, loan and schedules
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID" format(uuid)
// @Param request body domain.ConvertLeadRequest true "Development terms"
// @Success 201 {object} domain.DevelopmentDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Lead is not accepted"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id}/convert [post]
func (h *LeadHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lead")
	if !ok {
		return
	}
	var req domain.ConvertLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// the name defaults to the lead's
	if err := validate.StructExcept(req, "Development.Name"); err != nil {
		respondValidationError(w, err)
		return
	}

	dev, err := h.leadService.Convert(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to convert lead")
		return
	}

	w.Header().Set("Location", "/api/v1/developments/"+dev.ID.String())
	respondJSON(w, http.StatusCreated, dev)
}

// Delete godoc
// @Summary Delete lead
// @Tags Leads
// @Param id path string true "Lead ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "lead")
	if !ok {
		return
	}

	if err := h.leadService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete lead")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
