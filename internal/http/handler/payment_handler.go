package handler

import (
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// PaymentHandler handles HTTP requests for scheduled payments
type PaymentHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// List godoc
// @Summary List payments
// @Description Payments across developments. Pending payments past their due date are reported and filtered as overdue.
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param developmentId query string false "Filter by development" format(uuid)
// @Param status query string false "Filter by status" Enums(pending, overdue, paid, cancelled)
// @Param dueFrom query string false "Due on or after (YYYY-MM-DD)"
// @Param dueTo query string false "Due on or before (YYYY-MM-DD)"
// @Param periodFrom query string false "Period on or after (YYYY-MM)"
// @Param periodTo query string false "Period on or before (YYYY-MM)"
// @Param isRecovery query bool false "Only payments within the investor recovery phase"
// @Param sortBy query string false "Sort field" Enums(dueDate, period, amount, paidAt)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(asc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ScheduledPaymentDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments [get]
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	filters, err := parsePaymentFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sort := parseSort(r, "dueDate")
	if r.URL.Query().Get("sortOrder") == "" {
		sort.Order = repository.SortOrderAsc
	}

	result, err := h.paymentService.List(r.Context(), page, pageSize, filters, sort)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list payments")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func parsePaymentFilters(r *http.Request) (*repository.PaymentFilters, error) {
	q := r.URL.Query()
	filters := &repository.PaymentFilters{
		PeriodFrom: q.Get("periodFrom"),
		PeriodTo:   q.Get("periodTo"),
		IsRecovery: queryBool(r, "isRecovery"),
	}

	var err error
	if filters.DevelopmentID, err = queryUUID(r, "developmentId"); err != nil {
		return nil, err
	}
	if filters.DueFrom, err = queryDate(r, "dueFrom"); err != nil {
		return nil, err
	}
	if filters.DueTo, err = queryDate(r, "dueTo"); err != nil {
		return nil, err
	}
	if status := q.Get("status"); status != "" {
		s := domain.PaymentStatus(status)
		filters.Status = &s
	}
	return filters, nil
}

// GetByID godoc
// @Summary Get payment by ID
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID" format(uuid)
// @Success 200 {object} domain.ScheduledPaymentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get payment")
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

// Collect godoc
// @Summary Collect payment
// @Description Marks a pending payment as paid, posts its income record and advances the investor loan
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID" format(uuid)
// @Param request body domain.CollectPaymentRequest true "Collection details"
// @Success 200 {object} domain.PaymentCollectionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Payment already paid or cancelled"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/collect [post]
func (h *PaymentHandler) Collect(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}
	var req domain.CollectPaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.paymentService.Collect(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to collect payment")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Cancel godoc
// @Summary Cancel payment
// @Description Cancels a pending payment. Paid payments must be reversed first.
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID" format(uuid)
// @Success 200 {object} domain.ScheduledPaymentDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Payment is not pending"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.Cancel(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to cancel payment")
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

// Reverse godoc
// @Summary Reverse collection
// @Description Returns a paid payment to pending, removes its income record and rebuilds the investor loan
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID" format(uuid)
// @Success 200 {object} domain.ScheduledPaymentDTO
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Payment has not been collected"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /payments/{id}/reverse [post]
func (h *PaymentHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "payment")
	if !ok {
		return
	}

	payment, err := h.paymentService.Reverse(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to reverse payment")
		return
	}
	respondJSON(w, http.StatusOK, payment)
}
