package handler

import (
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for field-service orders
type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// List godoc
// @Summary List orders
// @Tags Orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by order number or title"
// @Param status query string false "Filter by status" Enums(pending, scheduled, in_progress, completed, cancelled)
// @Param type query string false "Filter by type" Enums(maintenance, installation, repair, inspection)
// @Param clientId query string false "Filter by client" format(uuid)
// @Param developmentId query string false "Filter by development" format(uuid)
// @Param assignedTo query string false "Filter by assignee"
// @Param scheduledFrom query string false "Scheduled on or after (YYYY-MM-DD)"
// @Param scheduledTo query string false "Scheduled on or before (YYYY-MM-DD)"
// @Param sortBy query string false "Sort field" Enums(orderNumber, scheduledDate, status, createdAt, updatedAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.OrderDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()
	filters := &repository.OrderFilters{
		Search:     q.Get("search"),
		AssignedTo: q.Get("assignedTo"),
	}

	var err error
	if filters.ClientID, err = queryUUID(r, "clientId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.DevelopmentID, err = queryUUID(r, "developmentId"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.ScheduledFrom, err = queryDate(r, "scheduledFrom"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filters.ScheduledTo, err = queryDate(r, "scheduledTo"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if status := q.Get("status"); status != "" {
		s := domain.OrderStatus(status)
		filters.Status = &s
	}
	if orderType := q.Get("type"); orderType != "" {
		t := domain.OrderType(orderType)
		filters.Type = &t
	}

	result, err := h.orderService.List(r.Context(), page, pageSize, filters, parseSort(r, ""))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list orders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get order by ID
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID" format(uuid)
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/{id} [get]
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Create godoc
// @Summary Create order
// @Description Opens an order with the next order number. Orders of a development inherit its client and address.
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body domain.CreateOrderRequest true "Order data"
// @Success 201 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Client or development not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders [post]
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.orderService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to create order")
		return
	}

	w.Header().Set("Location", "/api/v1/orders/"+order.ID.String())
	respondJSON(w, http.StatusCreated, order)
}

// UpdateStatus godoc
// @Summary Change order status
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID" format(uuid)
// @Param request body domain.UpdateOrderStatusRequest true "New status"
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Invalid status transition"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "order")
	if !ok {
		return
	}
	var req domain.UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to update order status")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Materialize godoc
// @Summary Materialize service orders
// @Description Creates orders for the scheduled service visits within the look-ahead window. Safe to run repeatedly.
// @Tags Orders
// @Produce json
// @Success 200 {object} domain.MaterializationResultDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /orders/materialize [post]
func (h *OrderHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	result, err := h.orderService.MaterializeServiceOrders(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to materialize service orders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
