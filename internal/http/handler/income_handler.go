package handler

import (
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// IncomeHandler exposes the income records posted by collections
type IncomeHandler struct {
	incomeService *service.IncomeService
	logger        *zap.Logger
}

func NewIncomeHandler(incomeService *service.IncomeService, logger *zap.Logger) *IncomeHandler {
	return &IncomeHandler{
		incomeService: incomeService,
		logger:        logger,
	}
}

func parseIncomeFilters(r *http.Request) (*repository.IncomeFilters, error) {
	filters := &repository.IncomeFilters{Category: r.URL.Query().Get("category")}

	var err error
	if filters.ClientID, err = queryUUID(r, "clientId"); err != nil {
		return nil, err
	}
	if filters.DevelopmentID, err = queryUUID(r, "developmentId"); err != nil {
		return nil, err
	}
	if filters.From, err = queryDate(r, "from"); err != nil {
		return nil, err
	}
	if filters.To, err = queryDate(r, "to"); err != nil {
		return nil, err
	}
	return filters, nil
}

// List godoc
// @Summary List income
// @Tags Income
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param category query string false "Filter by category"
// @Param clientId query string false "Filter by client" format(uuid)
// @Param developmentId query string false "Filter by development" format(uuid)
// @Param from query string false "Dated on or after (YYYY-MM-DD)"
// @Param to query string false "Dated on or before (YYYY-MM-DD)"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.IncomeDTO}
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /income [get]
func (h *IncomeHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	filters, err := parseIncomeFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.incomeService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list income")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Summary godoc
// @Summary Income summary
// @Description Totals by category over the filtered range
// @Tags Income
// @Produce json
// @Param category query string false "Filter by category"
// @Param clientId query string false "Filter by client" format(uuid)
// @Param developmentId query string false "Filter by development" format(uuid)
// @Param from query string false "Dated on or after (YYYY-MM-DD)"
// @Param to query string false "Dated on or before (YYYY-MM-DD)"
// @Success 200 {object} domain.IncomeSummaryDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /income/summary [get]
func (h *IncomeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filters, err := parseIncomeFilters(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.incomeService.Summary(r.Context(), filters)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to summarize income")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
