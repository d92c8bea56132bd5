package handler

import (
	"net/http"

	"github.com/fieldops/fieldservice-api/internal/service"
	"go.uber.org/zap"
)

// InvestorHandler exposes the investor loans of financed developments
type InvestorHandler struct {
	investorService *service.InvestorService
	logger          *zap.Logger
}

func NewInvestorHandler(investorService *service.InvestorService, logger *zap.Logger) *InvestorHandler {
	return &InvestorHandler{
		investorService: investorService,
		logger:          logger,
	}
}

// Overview godoc
// @Summary Investor overview
// @Description Every investor loan with recovered, earned and projected amounts and the portfolio totals
// @Tags Investors
// @Produce json
// @Success 200 {object} domain.InvestorOverviewDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /investors [get]
func (h *InvestorHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.investorService.Overview(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to build investor overview")
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// GetLoan godoc
// @Summary Investor loan of a development
// @Tags Investors
// @Produce json
// @Param id path string true "Development ID" format(uuid)
// @Success 200 {object} domain.InvestorPositionDTO
// @Failure 404 {object} domain.APIError "Development has no investor loan"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /developments/{id}/loan [get]
func (h *InvestorHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "development")
	if !ok {
		return
	}

	loan, err := h.investorService.GetLoan(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get investor loan")
		return
	}
	respondJSON(w, http.StatusOK, loan)
}
