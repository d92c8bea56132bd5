package handler

import (
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// ClientHandler handles HTTP requests for clients
type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// List godoc
// @Summary List clients
// @Description Get paginated list of clients with optional filters
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name, email or tax ID"
// @Param isActive query bool false "Filter by active flag"
// @Param sortBy query string false "Sort field" Enums(name, city, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ClientDTO}
// @Failure 401 {object} domain.APIError
// @Failure 500 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	filters := &repository.ClientFilters{
		Search:   r.URL.Query().Get("search"),
		IsActive: queryBool(r, "isActive"),
	}

	result, err := h.clientService.List(r.Context(), page, pageSize, filters, parseSort(r, "name"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list clients")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get client by ID
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "client")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Create godoc
// @Summary Create client
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client data"
// @Success 201 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create client")
		return
	}

	w.Header().Set("Location", "/api/v1/clients/"+client.ID.String())
	respondJSON(w, http.StatusCreated, client)
}

// Update godoc
// @Summary Update client
// @Description Replace the contact data of a client. Set isActive to false to deactivate it.
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.UpdateClientRequest true "Client data"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "client")
	if !ok {
		return
	}
	var req domain.UpdateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Delete godoc
// @Summary Delete client
// @Description Delete a client without developments
// @Tags Clients
// @Param id path string true "Client ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Client still has developments"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "client")
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import godoc
// @Summary Import clients from the ERP
// @Description Upsert the ERP customers by their external ID
// @Tags Clients
// @Produce json
// @Success 200 {object} domain.ClientImportResultDTO
// @Failure 503 {object} domain.APIError "Data warehouse not configured"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /clients/import [post]
func (h *ClientHandler) Import(w http.ResponseWriter, r *http.Request) {
	result, err := h.clientService.SyncFromERP(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to import clients")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
