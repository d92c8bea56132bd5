package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
	applog "github.com/fieldops/fieldservice-api/internal/logger"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService collects, cancels and reverses scheduled payments and keeps the
// investor loan ledger in step with what was collected
type PaymentService struct {
	db              *gorm.DB
	paymentRepo     *repository.PaymentRepository
	developmentRepo *repository.DevelopmentRepository
	loanRepo        *repository.LoanRepository
	incomeRepo      *repository.IncomeRepository
	investors       *InvestorService
	incomeCategory  string
	calendar        *Calendar
	logger          *zap.Logger
}

func NewPaymentService(
	db *gorm.DB,
	paymentRepo *repository.PaymentRepository,
	developmentRepo *repository.DevelopmentRepository,
	loanRepo *repository.LoanRepository,
	incomeRepo *repository.IncomeRepository,
	investors *InvestorService,
	incomeCategory string,
	calendar *Calendar,
	logger *zap.Logger,
) *PaymentService {
	if incomeCategory == "" {
		incomeCategory = "development_fee"
	}
	return &PaymentService{
		db:              db,
		paymentRepo:     paymentRepo,
		developmentRepo: developmentRepo,
		loanRepo:        loanRepo,
		incomeRepo:      incomeRepo,
		investors:       investors,
		incomeCategory:  incomeCategory,
		calendar:        calendar,
		logger:          logger,
	}
}

// List returns payments across developments. The overdue status is resolved
// against today.
func (s *PaymentService) List(ctx context.Context, page, pageSize int, filters *repository.PaymentFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	if filters == nil {
		filters = &repository.PaymentFilters{}
	}
	today := s.calendar.Today()
	filters.Today = today

	payments, total, err := s.paymentRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return paginated(mapper.ToScheduledPaymentDTOs(payments, today), total, page, pageSize), nil
}

// ListForDevelopment returns the payments of one development in schedule order
func (s *PaymentService) ListForDevelopment(ctx context.Context, developmentID uuid.UUID) ([]domain.ScheduledPaymentDTO, error) {
	if _, err := s.developmentRepo.GetByID(ctx, developmentID); err != nil {
		return nil, notFound(err, ErrDevelopmentNotFound)
	}
	payments, err := s.paymentRepo.ListByDevelopment(ctx, developmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return mapper.ToScheduledPaymentDTOs(payments, s.calendar.Today()), nil
}

func (s *PaymentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPaymentDTO, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}
	dto := mapper.ToScheduledPaymentDTO(payment, s.calendar.Today())
	return &dto, nil
}

// Collect marks a pending or overdue payment as paid, posts its income record and
// books the investor portion on the loan, all in one transaction
func (s *PaymentService) Collect(ctx context.Context, id uuid.UUID, req *domain.CollectPaymentRequest) (*domain.PaymentCollectionDTO, error) {
	ctx, span := tracing.Start(ctx, "payment.collect")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", id.String()))

	paidAt, err := parseDate(req.PaidAt)
	if err != nil {
		return nil, err
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, req.PaymentMethod)
	}

	var (
		payment *domain.ScheduledPayment
		income  *domain.Income
		loan    *domain.InvestorLoan
		dev     *domain.Development
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.paymentRepo.WithTx(tx)

		var err error
		payment, err = payments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrPaymentNotFound)
		}
		switch payment.Status {
		case domain.PaymentStatusPaid:
			return ErrPaymentAlreadyPaid
		case domain.PaymentStatusCancelled:
			return ErrPaymentNotPending
		}

		dev, err = s.developmentRepo.WithTx(tx).GetByID(ctx, payment.DevelopmentID)
		if err != nil {
			return notFound(err, ErrDevelopmentNotFound)
		}

		income = &domain.Income{
			Date:          paidAt,
			Amount:        payment.Amount,
			Category:      s.incomeCategory,
			Description:   fmt.Sprintf("%s %s", dev.Name, payment.Period),
			ClientID:      dev.ClientID,
			DevelopmentID: &dev.ID,
			PaymentID:     &payment.ID,
			PaymentMethod: req.PaymentMethod,
			Reference:     req.Reference,
		}
		if userCtx, ok := auth.FromContext(ctx); ok {
			income.CreatedByID = userCtx.UserIDString()
			payment.CollectedByID = userCtx.UserIDString()
			payment.CollectedByName = userCtx.DisplayName
		}
		if err := s.incomeRepo.WithTx(tx).Create(ctx, income); err != nil {
			return fmt.Errorf("failed to post income: %w", err)
		}

		payment.Status = domain.PaymentStatusPaid
		payment.PaidAt = &paidAt
		payment.PaymentMethod = req.PaymentMethod
		payment.Reference = req.Reference
		payment.Notes = req.Notes
		payment.IncomeID = &income.ID
		if err := payments.Update(ctx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		if !dev.HasInvestor {
			return nil
		}
		loan, err = s.bookCollection(ctx, tx, dev, payment)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.PaymentsCollected.WithLabelValues(string(payment.Phase())).Inc()
	if dev.HasInvestor {
		s.investors.Invalidate(ctx)
	}

	paymentLog(s.logger, payment).Info("payment collected",
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("method", string(payment.PaymentMethod)))

	payment.Development = dev
	result := &domain.PaymentCollectionDTO{
		Payment: mapper.ToScheduledPaymentDTO(payment, s.calendar.Today()),
		Income:  mapper.ToIncomeDTO(income),
	}
	if loan != nil {
		loanDTO := mapper.ToInvestorLoanDTO(loan)
		loanDTO.DevelopmentName = dev.Name
		result.Loan = &loanDTO
	}
	return result, nil
}

// bookCollection applies a collected payment to the development's loan. The loan
// completes once no pending payment is left. A loan already completed is
// replayed from the paid payments so late collections still count as earned.
func (s *PaymentService) bookCollection(ctx context.Context, tx *gorm.DB, dev *domain.Development, payment *domain.ScheduledPayment) (*domain.InvestorLoan, error) {
	loans := s.loanRepo.WithTx(tx)
	loan, err := loans.GetByDevelopmentIDForUpdate(ctx, dev.ID)
	if err != nil {
		return nil, notFound(err, ErrLoanNotFound)
	}
	from := loan.Status

	var ledger *financing.Ledger
	if loan.Status == domain.LoanStatusCompleted {
		ledger, err = s.replayLedger(ctx, tx, loan, true)
		if err != nil {
			return nil, err
		}
	} else {
		ledger = loan.Ledger()
		if err := ledger.Apply(payment.Collection()); err != nil {
			return nil, financingError(err)
		}

		outstanding, err := s.paymentRepo.WithTx(tx).CountOutstanding(ctx, dev.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count outstanding payments: %w", err)
		}
		if outstanding == 0 {
			ledger.Complete()
		}
	}

	loan.ApplyLedger(ledger, s.calendar.Now())
	if err := loans.Update(ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to update investor loan: %w", err)
	}

	if from != loan.Status {
		metrics.LoanTransitions.WithLabelValues(string(from), string(loan.Status)).Inc()
		s.logger.Info("investor loan status changed",
			zap.String("loan_id", loan.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(loan.Status)))
	}
	return loan, nil
}

// replayLedger rebuilds the ledger of loan from the collected payments
func (s *PaymentService) replayLedger(ctx context.Context, tx *gorm.DB, loan *domain.InvestorLoan, completed bool) (*financing.Ledger, error) {
	paid, err := s.paymentRepo.WithTx(tx).ListPaidByDevelopment(ctx, loan.DevelopmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collected payments: %w", err)
	}
	collections := make([]financing.Collection, len(paid))
	for i := range paid {
		collections[i] = paid[i].Collection()
	}
	ledger, err := financing.RebuildLedger(loan.Principal, collections, completed)
	if err != nil {
		return nil, financingError(err)
	}
	return ledger, nil
}

// Cancel cancels a payment that has not been collected
func (s *PaymentService) Cancel(ctx context.Context, id uuid.UUID) (*domain.ScheduledPaymentDTO, error) {
	var payment *domain.ScheduledPayment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.paymentRepo.WithTx(tx)
		var err error
		payment, err = payments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrPaymentNotFound)
		}
		switch payment.Status {
		case domain.PaymentStatusPaid:
			return ErrPaymentAlreadyPaid
		case domain.PaymentStatusCancelled:
			return ErrPaymentNotPending
		}

		payment.Status = domain.PaymentStatusCancelled
		return payments.Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	paymentLog(s.logger, payment).Info("payment cancelled")

	dto := mapper.ToScheduledPaymentDTO(payment, s.calendar.Today())
	return &dto, nil
}

// Reverse undoes a collection: the payment is pending again, its income record is
// removed and the loan ledger is recomputed from the remaining collections
func (s *PaymentService) Reverse(ctx context.Context, id uuid.UUID) (*domain.ScheduledPaymentDTO, error) {
	ctx, span := tracing.Start(ctx, "payment.reverse")
	defer span.End()
	span.SetAttributes(attribute.String("payment.id", id.String()))

	var (
		payment *domain.ScheduledPayment
		dev     *domain.Development
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := s.paymentRepo.WithTx(tx)
		var err error
		payment, err = payments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrPaymentNotFound)
		}
		if payment.Status != domain.PaymentStatusPaid {
			return ErrPaymentNotPaid
		}

		dev, err = s.developmentRepo.WithTx(tx).GetByID(ctx, payment.DevelopmentID)
		if err != nil {
			return notFound(err, ErrDevelopmentNotFound)
		}

		incomes := s.incomeRepo.WithTx(tx)
		if income, err := incomes.GetByPaymentID(ctx, payment.ID); err == nil {
			if err := incomes.Delete(ctx, income.ID); err != nil {
				return fmt.Errorf("failed to delete income: %w", err)
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load income: %w", err)
		}

		payment.Status = domain.PaymentStatusPending
		payment.PaidAt = nil
		payment.PaymentMethod = ""
		payment.Reference = ""
		payment.IncomeID = nil
		payment.CollectedByID = ""
		payment.CollectedByName = ""
		if err := payments.Update(ctx, payment); err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		if !dev.HasInvestor {
			return nil
		}

		loans := s.loanRepo.WithTx(tx)
		loan, err := loans.GetByDevelopmentIDForUpdate(ctx, dev.ID)
		if err != nil {
			return notFound(err, ErrLoanNotFound)
		}
		from := loan.Status
		ledger, err := s.replayLedger(ctx, tx, loan, dev.Status == domain.DevelopmentStatusCompleted)
		if err != nil {
			return err
		}
		if ledger.Status != financing.LedgerCompleted {
			loan.CompletedAt = nil
		}
		loan.ApplyLedger(ledger, s.calendar.Now())
		if err := loans.Update(ctx, loan); err != nil {
			return fmt.Errorf("failed to update investor loan: %w", err)
		}
		if from != loan.Status {
			metrics.LoanTransitions.WithLabelValues(string(from), string(loan.Status)).Inc()
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.PaymentsReversed.Inc()
	if dev.HasInvestor {
		s.investors.Invalidate(ctx)
	}

	paymentLog(s.logger, payment).Info("payment reversed")

	payment.Development = dev
	dto := mapper.ToScheduledPaymentDTO(payment, s.calendar.Today())
	return &dto, nil
}

func paymentLog(logger *zap.Logger, payment *domain.ScheduledPayment) *zap.Logger {
	return applog.WithPayment(logger, payment.DevelopmentID.String(), payment.ID.String(), payment.Period)
}
