package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/fieldservice-api/internal/cache"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const investorOverviewKey = "investors:overview"

// InvestorService reports on investor loans. The portfolio overview is cached and
// invalidated by every write that touches a loan.
type InvestorService struct {
	loanRepo    *repository.LoanRepository
	paymentRepo *repository.PaymentRepository
	store       cache.Store
	ttl         time.Duration
	calendar    *Calendar
	logger      *zap.Logger
}

func NewInvestorService(
	loanRepo *repository.LoanRepository,
	paymentRepo *repository.PaymentRepository,
	store cache.Store,
	ttl time.Duration,
	calendar *Calendar,
	logger *zap.Logger,
) *InvestorService {
	if store == nil {
		store = cache.NoopStore{}
	}
	return &InvestorService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		store:       store,
		ttl:         ttl,
		calendar:    calendar,
		logger:      logger,
	}
}

// Overview returns every loan with its projection and portfolio totals
func (s *InvestorService) Overview(ctx context.Context) (*domain.InvestorOverviewDTO, error) {
	var cached domain.InvestorOverviewDTO
	hit, err := cache.GetJSON(ctx, s.store, investorOverviewKey, &cached)
	if err != nil {
		s.logger.Warn("investor overview cache read failed", zap.Error(err))
	}
	if hit {
		metrics.CacheLookups.WithLabelValues("investor_overview", "hit").Inc()
		return &cached, nil
	}
	metrics.CacheLookups.WithLabelValues("investor_overview", "miss").Inc()

	overview, err := s.buildOverview(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.store, investorOverviewKey, overview, s.ttl); err != nil {
		s.logger.Warn("investor overview cache write failed", zap.Error(err))
	}
	return overview, nil
}

func (s *InvestorService) buildOverview(ctx context.Context) (*domain.InvestorOverviewDTO, error) {
	loans, err := s.loanRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	paidCounts, err := s.paymentRepo.CountPaidByDevelopment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count collected payments: %w", err)
	}

	overview := &domain.InvestorOverviewDTO{
		Positions:      make([]domain.InvestorPositionDTO, 0, len(loans)),
		TotalPrincipal: decimal.Zero,
		TotalRecovered: decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalRemaining: decimal.Zero,
		TotalProjected: decimal.Zero,
		LoansByStatus:  map[domain.LoanStatus]int{},
		GeneratedAt:    s.calendar.Now().Format(time.RFC3339),
	}

	for i := range loans {
		position := s.position(&loans[i], paidCounts[loans[i].DevelopmentID])

		overview.Positions = append(overview.Positions, position)
		overview.TotalPrincipal = overview.TotalPrincipal.Add(position.Principal)
		overview.TotalRecovered = overview.TotalRecovered.Add(position.RecoveredAmount)
		overview.TotalEarned = overview.TotalEarned.Add(position.EarnedAmount)
		overview.TotalRemaining = overview.TotalRemaining.Add(position.RemainingPrincipal)
		overview.TotalProjected = overview.TotalProjected.Add(position.ProjectedEarnings)
		overview.LoansByStatus[position.Status]++
	}

	return overview, nil
}

// position projects a loan over its development's contract
func (s *InvestorService) position(loan *domain.InvestorLoan, paymentsCollected int) domain.InvestorPositionDTO {
	position := domain.InvestorPositionDTO{
		InvestorLoanDTO:   mapper.ToInvestorLoanDTO(loan),
		PaymentsCollected: paymentsCollected,
		ProjectedEarnings: decimal.Zero,
		ProjectedTotal:    decimal.Zero,
	}
	if loan.Development == nil {
		return position
	}
	position.DurationMonths = loan.Development.DurationMonths
	position.MonthsElapsed = financing.MonthsElapsed(loan.Development.ContractStartDate, s.calendar.Today(), loan.Development.DurationMonths)

	planner, err := financing.NewPlanner(financing.Terms{
		MonthlyPayment: loan.MonthlyPayment,
		InvestorAmount: loan.Principal,
		ProfitPercent:  loan.ProfitPercent,
	})
	if err != nil {
		s.logger.Warn("loan has invalid terms", zap.String("loan_id", loan.ID.String()), zap.Error(err))
		return position
	}
	plan, err := planner.Plan(loan.Development.DurationMonths)
	if err != nil {
		return position
	}

	position.ProjectedTotal = plan.TotalInvestor
	position.ProjectedEarnings = plan.InvestorProfit
	position.RecoveredWithinTerm = plan.RecoveredWithinTerm
	return position
}

// GetLoan returns the loan of a development
func (s *InvestorService) GetLoan(ctx context.Context, developmentID uuid.UUID) (*domain.InvestorPositionDTO, error) {
	loan, err := s.loanRepo.GetByDevelopmentID(ctx, developmentID)
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	counts, err := s.paymentRepo.CountPaidByDevelopment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count collected payments: %w", err)
	}
	position := s.position(loan, counts[developmentID])
	return &position, nil
}

// Invalidate drops the cached overview
func (s *InvestorService) Invalidate(ctx context.Context) {
	if err := s.store.Delete(ctx, investorOverviewKey); err != nil {
		s.logger.Warn("investor overview cache invalidation failed", zap.Error(err))
	}
}
