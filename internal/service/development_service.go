package service

import (
	"context"
	"fmt"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// developmentTransitions lists the statuses reachable from each open status.
// Cancelled and completed developments are closed for good.
var developmentTransitions = map[domain.DevelopmentStatus][]domain.DevelopmentStatus{
	domain.DevelopmentStatusActive:    {domain.DevelopmentStatusSuspended, domain.DevelopmentStatusCancelled, domain.DevelopmentStatusCompleted},
	domain.DevelopmentStatusSuspended: {domain.DevelopmentStatusActive, domain.DevelopmentStatusCancelled, domain.DevelopmentStatusCompleted},
}

func canTransitionDevelopment(from, to domain.DevelopmentStatus) bool {
	for _, allowed := range developmentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DevelopmentService manages development contracts and their investor loans
type DevelopmentService struct {
	db              *gorm.DB
	developmentRepo *repository.DevelopmentRepository
	loanRepo        *repository.LoanRepository
	clientRepo      *repository.ClientRepository
	paymentRepo     *repository.PaymentRepository
	orderRepo       *repository.OrderRepository
	schedules       *ScheduleService
	investors       *InvestorService
	calendar        *Calendar
	logger          *zap.Logger
}

func NewDevelopmentService(
	db *gorm.DB,
	developmentRepo *repository.DevelopmentRepository,
	loanRepo *repository.LoanRepository,
	clientRepo *repository.ClientRepository,
	paymentRepo *repository.PaymentRepository,
	orderRepo *repository.OrderRepository,
	schedules *ScheduleService,
	investors *InvestorService,
	calendar *Calendar,
	logger *zap.Logger,
) *DevelopmentService {
	return &DevelopmentService{
		db:              db,
		developmentRepo: developmentRepo,
		loanRepo:        loanRepo,
		clientRepo:      clientRepo,
		paymentRepo:     paymentRepo,
		orderRepo:       orderRepo,
		schedules:       schedules,
		investors:       investors,
		calendar:        calendar,
		logger:          logger,
	}
}

// Create saves a development, opens its investor loan and generates the full
// payment and service schedule in one transaction
func (s *DevelopmentService) Create(ctx context.Context, req *domain.CreateDevelopmentRequest) (*domain.DevelopmentDTO, error) {
	var dev *domain.Development
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		dev, err = s.createTx(ctx, tx, req, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	if dev.HasInvestor {
		s.investors.Invalidate(ctx)
	}
	s.logger.Info("development created",
		zap.String("development_id", dev.ID.String()),
		zap.String("name", dev.Name),
		zap.Bool("has_investor", dev.HasInvestor))

	return s.GetByID(ctx, dev.ID)
}

// createTx does the work of Create inside tx. Lead conversion reuses it.
func (s *DevelopmentService) createTx(ctx context.Context, tx *gorm.DB, req *domain.CreateDevelopmentRequest, leadID *uuid.UUID) (*domain.Development, error) {
	startDate, err := parseDate(req.ContractStartDate)
	if err != nil {
		return nil, err
	}
	if req.HasInvestor && !req.InvestorAmount.IsPositive() {
		return nil, ErrInvestorTermsRequired
	}

	if req.ClientID != nil {
		if _, err := s.clientRepo.WithTx(tx).GetByID(ctx, *req.ClientID); err != nil {
			return nil, notFound(err, ErrClientNotFound)
		}
	}

	autoGenerate := true
	if req.AutoGenerateOrders != nil {
		autoGenerate = *req.AutoGenerateOrders
	}

	dev := &domain.Development{
		Name:                  req.Name,
		Address:               req.Address,
		ClientID:              req.ClientID,
		ContactName:           req.ContactName,
		ContactPhone:          req.ContactPhone,
		ContactEmail:          req.ContactEmail,
		ContractStartDate:     startDate,
		DurationMonths:        req.DurationMonths,
		MonthlyPayment:        money(req.MonthlyPayment),
		PaymentDay:            req.PaymentDay,
		ServiceDay:            req.ServiceDay,
		AutoGenerateOrders:    autoGenerate,
		HasInvestor:           req.HasInvestor,
		Status:                domain.DevelopmentStatusActive,
		Notes:                 req.Notes,
		LeadID:                leadID,
		InvestorAmount:        money(req.InvestorAmount),
		InvestorProfitPercent: percent(req.InvestorProfitPercent),
	}
	if req.HasInvestor {
		dev.InvestorName = req.InvestorName
	} else {
		dev.InvestorAmount = decimal.Zero
		dev.InvestorProfitPercent = decimal.Zero
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		dev.CreatedByID = userCtx.UserIDString()
		dev.CreatedByName = userCtx.DisplayName
	}

	if err := dev.Contract().Validate(); err != nil {
		return nil, financingError(err)
	}

	if err := s.developmentRepo.WithTx(tx).Create(ctx, dev); err != nil {
		return nil, fmt.Errorf("failed to create development: %w", err)
	}

	if dev.HasInvestor {
		if _, err := s.openLoan(ctx, tx, dev); err != nil {
			return nil, err
		}
	}

	if _, err := s.schedules.generate(ctx, tx, dev); err != nil {
		return nil, err
	}
	return dev, nil
}

// openLoan creates the investor loan of dev with nothing collected
func (s *DevelopmentService) openLoan(ctx context.Context, tx *gorm.DB, dev *domain.Development) (*domain.InvestorLoan, error) {
	months, err := financing.RecoveryMonths(dev.InvestorAmount, dev.MonthlyPayment)
	if err != nil {
		return nil, financingError(err)
	}

	ledger := financing.NewLedger(dev.InvestorAmount)
	loan := &domain.InvestorLoan{
		DevelopmentID:  dev.ID,
		InvestorName:   dev.InvestorName,
		Principal:      dev.InvestorAmount,
		ProfitPercent:  dev.InvestorProfitPercent,
		MonthlyPayment: dev.MonthlyPayment,
		RecoveryMonths: months,
	}
	loan.ApplyLedger(ledger, s.calendar.Now())

	if err := s.loanRepo.WithTx(tx).Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to create investor loan: %w", err)
	}
	return loan, nil
}

// GetByID returns a development with its loan and the schedule summary as seen today
func (s *DevelopmentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.DevelopmentDTO, error) {
	dev, err := s.developmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDevelopmentNotFound)
	}

	payments, err := s.paymentRepo.ListByDevelopment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	dto := mapper.ToDevelopmentDTO(dev)
	summary := summarizeSchedule(payments, s.calendar.Today())
	dto.Schedule = &summary
	return &dto, nil
}

func (s *DevelopmentService) List(ctx context.Context, page, pageSize int, filters *repository.DevelopmentFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	devs, total, err := s.developmentRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list developments: %w", err)
	}

	dtos := make([]domain.DevelopmentDTO, len(devs))
	for i := range devs {
		dtos[i] = mapper.ToDevelopmentDTO(&devs[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update edits a development. When the monthly payment, duration or profit percent
// change, the loan terms follow and the pending payments due from today on are
// regenerated. Collected and overdue payments keep their original amounts.
func (s *DevelopmentService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateDevelopmentRequest) (*domain.DevelopmentDTO, error) {
	dev, err := s.developmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDevelopmentNotFound)
	}
	if dev.Status.IsClosed() {
		return nil, ErrDevelopmentClosed
	}

	if req.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *req.ClientID); err != nil {
			return nil, notFound(err, ErrClientNotFound)
		}
	}

	newMonthly := money(req.MonthlyPayment)
	termsChanged := !newMonthly.Equal(dev.MonthlyPayment) || req.DurationMonths != dev.DurationMonths

	dev.Name = req.Name
	dev.Address = req.Address
	dev.ClientID = req.ClientID
	dev.Client = nil
	dev.ContactName = req.ContactName
	dev.ContactPhone = req.ContactPhone
	dev.ContactEmail = req.ContactEmail
	dev.Notes = req.Notes
	dev.DurationMonths = req.DurationMonths
	dev.MonthlyPayment = newMonthly
	if req.AutoGenerateOrders != nil {
		dev.AutoGenerateOrders = *req.AutoGenerateOrders
	}
	if dev.HasInvestor {
		if req.InvestorName != nil {
			dev.InvestorName = *req.InvestorName
		}
		if req.ProfitPercent != nil {
			if p := percent(*req.ProfitPercent); !p.Equal(dev.InvestorProfitPercent) {
				dev.InvestorProfitPercent = p
				termsChanged = true
			}
		}
	}

	if err := dev.Contract().Validate(); err != nil {
		return nil, financingError(err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.developmentRepo.WithTx(tx).Update(ctx, dev); err != nil {
			return fmt.Errorf("failed to update development: %w", err)
		}

		if dev.HasInvestor {
			loans := s.loanRepo.WithTx(tx)
			loan, err := loans.GetByDevelopmentIDForUpdate(ctx, dev.ID)
			if err != nil {
				return notFound(err, ErrLoanNotFound)
			}
			months, err := financing.RecoveryMonths(loan.Principal, dev.MonthlyPayment)
			if err != nil {
				return financingError(err)
			}
			loan.InvestorName = dev.InvestorName
			loan.MonthlyPayment = dev.MonthlyPayment
			loan.ProfitPercent = dev.InvestorProfitPercent
			loan.RecoveryMonths = months
			if err := loans.Update(ctx, loan); err != nil {
				return fmt.Errorf("failed to update investor loan: %w", err)
			}
		}

		if termsChanged {
			return s.schedules.regenerate(ctx, tx, dev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dev.HasInvestor {
		s.investors.Invalidate(ctx)
	}
	s.logger.Info("development updated",
		zap.String("development_id", dev.ID.String()),
		zap.Bool("schedule_regenerated", termsChanged))

	return s.GetByID(ctx, dev.ID)
}

// ChangeStatus moves a development through its lifecycle. Suspending keeps the
// schedule but stops order materialization. Cancelling and completing cancel
// every pending payment and visit from today on along with the open orders
// generated for them. Completing also closes the investor loan.
func (s *DevelopmentService) ChangeStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateDevelopmentStatusRequest) (*domain.DevelopmentDTO, error) {
	dev, err := s.developmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrDevelopmentNotFound)
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, req.Status)
	}
	if !canTransitionDevelopment(dev.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, dev.Status, req.Status)
	}

	from := dev.Status
	today := s.calendar.Today()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.developmentRepo.WithTx(tx).UpdateStatus(ctx, dev.ID, req.Status); err != nil {
			return fmt.Errorf("failed to update development status: %w", err)
		}
		dev.Status = req.Status

		switch {
		case req.Status.IsClosed():
			payments, visits, err := s.schedules.cancelFrom(ctx, tx, dev.ID, today)
			if err != nil {
				return err
			}
			orders, err := s.orderRepo.WithTx(tx).CancelOpenByDevelopment(ctx, dev.ID, today)
			if err != nil {
				return fmt.Errorf("failed to cancel open orders: %w", err)
			}
			s.logger.Info("development schedule closed",
				zap.String("development_id", dev.ID.String()),
				zap.Int64("payments_cancelled", payments),
				zap.Int64("service_orders_cancelled", visits),
				zap.Int64("orders_cancelled", orders))

			if req.Status == domain.DevelopmentStatusCompleted && dev.HasInvestor {
				return s.completeLoan(ctx, tx, dev.ID)
			}
		case req.Status == domain.DevelopmentStatusActive:
			// fills any period missing since the suspension
			if _, err := s.schedules.generate(ctx, tx, dev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dev.HasInvestor {
		s.investors.Invalidate(ctx)
	}
	s.logger.Info("development status changed",
		zap.String("development_id", dev.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)),
		zap.String("reason", req.Reason))

	return s.GetByID(ctx, dev.ID)
}

// completeLoan closes the loan of a development
func (s *DevelopmentService) completeLoan(ctx context.Context, tx *gorm.DB, developmentID uuid.UUID) error {
	loans := s.loanRepo.WithTx(tx)
	loan, err := loans.GetByDevelopmentIDForUpdate(ctx, developmentID)
	if err != nil {
		return notFound(err, ErrLoanNotFound)
	}
	if loan.Status == domain.LoanStatusCompleted {
		return nil
	}

	from := loan.Status
	ledger := loan.Ledger()
	ledger.Complete()
	loan.ApplyLedger(ledger, s.calendar.Now())
	if err := loans.Update(ctx, loan); err != nil {
		return fmt.Errorf("failed to complete investor loan: %w", err)
	}
	metrics.LoanTransitions.WithLabelValues(string(from), string(loan.Status)).Inc()
	return nil
}

// PreviewPlan projects a recovery plan for terms that are not saved yet
func (s *DevelopmentService) PreviewPlan(req *domain.RecoveryPlanRequest) (*domain.RecoveryPlanDTO, error) {
	planner, err := financing.NewPlanner(financing.Terms{
		MonthlyPayment: req.MonthlyPayment,
		InvestorAmount: req.InvestorAmount,
		ProfitPercent:  req.ProfitPercent,
	})
	if err != nil {
		return nil, financingError(err)
	}
	plan, err := planner.Plan(req.DurationMonths)
	if err != nil {
		return nil, financingError(err)
	}
	dto := mapper.ToRecoveryPlanDTO(plan)
	return &dto, nil
}
