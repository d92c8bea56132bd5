package service

import (
	"context"
	"fmt"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IncomeService reads the billing records posted by payment collections
type IncomeService struct {
	incomeRepo *repository.IncomeRepository
	logger     *zap.Logger
}

func NewIncomeService(incomeRepo *repository.IncomeRepository, logger *zap.Logger) *IncomeService {
	return &IncomeService{incomeRepo: incomeRepo, logger: logger}
}

func (s *IncomeService) List(ctx context.Context, page, pageSize int, filters *repository.IncomeFilters) (*domain.PaginatedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	if err := validateRange(filters); err != nil {
		return nil, err
	}

	incomes, total, err := s.incomeRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list income: %w", err)
	}

	dtos := make([]domain.IncomeDTO, len(incomes))
	for i := range incomes {
		dtos[i] = mapper.ToIncomeDTO(&incomes[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Summary totals income by category over the filtered range
func (s *IncomeService) Summary(ctx context.Context, filters *repository.IncomeFilters) (*domain.IncomeSummaryDTO, error) {
	if err := validateRange(filters); err != nil {
		return nil, err
	}

	totals, err := s.incomeRepo.SummaryByCategory(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize income: %w", err)
	}

	summary := &domain.IncomeSummaryDTO{
		Total:      decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal, len(totals)),
	}
	if filters != nil {
		if filters.From != nil {
			summary.From = filters.From.Format(dateLayout)
		}
		if filters.To != nil {
			summary.To = filters.To.Format(dateLayout)
		}
	}
	for _, t := range totals {
		summary.ByCategory[t.Category] = t.Total
		summary.Total = summary.Total.Add(t.Total)
		summary.Count += t.Count
	}
	summary.Total = money(summary.Total)
	return summary, nil
}

func validateRange(filters *repository.IncomeFilters) error {
	if filters != nil && filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return fmt.Errorf("%w: date range ends before it starts", ErrInvalidInput)
	}
	return nil
}
