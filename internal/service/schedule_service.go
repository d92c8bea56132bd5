package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/tracing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScheduleService expands development contracts into scheduled payments and
// service visits. Generation is idempotent: rows are keyed by (development, period)
// and existing rows are never touched.
type ScheduleService struct {
	db               *gorm.DB
	developmentRepo  *repository.DevelopmentRepository
	paymentRepo      *repository.PaymentRepository
	serviceOrderRepo *repository.ServiceOrderRepository
	calendar         *Calendar
	logger           *zap.Logger
}

func NewScheduleService(
	db *gorm.DB,
	developmentRepo *repository.DevelopmentRepository,
	paymentRepo *repository.PaymentRepository,
	serviceOrderRepo *repository.ServiceOrderRepository,
	calendar *Calendar,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		db:               db,
		developmentRepo:  developmentRepo,
		paymentRepo:      paymentRepo,
		serviceOrderRepo: serviceOrderRepo,
		calendar:         calendar,
		logger:           logger,
	}
}

// Generate (re)generates the schedule of a development, inserting only missing periods
func (s *ScheduleService) Generate(ctx context.Context, developmentID uuid.UUID) (*domain.ScheduleGenerationDTO, error) {
	dev, err := s.developmentRepo.GetByID(ctx, developmentID)
	if err != nil {
		return nil, notFound(err, ErrDevelopmentNotFound)
	}
	if dev.Status.IsClosed() {
		return nil, ErrDevelopmentClosed
	}

	var result *domain.ScheduleGenerationDTO
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.generate(ctx, tx, dev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// generate inserts the missing schedule rows of dev inside tx
func (s *ScheduleService) generate(ctx context.Context, tx *gorm.DB, dev *domain.Development) (*domain.ScheduleGenerationDTO, error) {
	ctx, span := tracing.Start(ctx, "schedule.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("development.id", dev.ID.String()),
		attribute.Int("development.duration_months", dev.DurationMonths),
	)

	entries, err := financing.GenerateSchedule(dev.Contract(), s.calendar.Today())
	if err != nil {
		return nil, financingError(err)
	}

	payments := make([]domain.ScheduledPayment, len(entries))
	visits := make([]domain.ScheduledServiceOrder, len(entries))
	for i, e := range entries {
		payments[i] = domain.ScheduledPayment{
			DevelopmentID:   dev.ID,
			Period:          e.Period,
			PeriodIndex:     e.Index,
			DueDate:         e.DueDate,
			Amount:          e.Amount,
			InvestorPortion: e.Investor,
			CompanyPortion:  e.Company,
			IsRecovery:      dev.HasInvestor && e.IsRecovery(),
			Status:          domain.PaymentStatusPending,
		}

		visitStatus := domain.ServiceOrderStatusPending
		if e.ServicePast {
			visitStatus = domain.ServiceOrderStatusSkipped
		}
		visits[i] = domain.ScheduledServiceOrder{
			DevelopmentID: dev.ID,
			Period:        e.Period,
			PeriodIndex:   e.Index,
			ServiceDate:   e.ServiceDate,
			Status:        visitStatus,
		}
	}

	paymentsCreated, err := s.paymentRepo.WithTx(tx).CreateIgnoreDuplicates(ctx, payments)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert scheduled payments: %w", err)
	}
	visitsCreated, err := s.serviceOrderRepo.WithTx(tx).CreateIgnoreDuplicates(ctx, visits)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to insert scheduled service orders: %w", err)
	}

	metrics.SchedulesGenerated.WithLabelValues("payment").Add(float64(paymentsCreated))
	metrics.SchedulesGenerated.WithLabelValues("service_order").Add(float64(visitsCreated))

	s.logger.Info("schedule generated",
		zap.String("development_id", dev.ID.String()),
		zap.Int("periods", len(entries)),
		zap.Int64("payments_created", paymentsCreated),
		zap.Int64("service_orders_created", visitsCreated),
	)

	return &domain.ScheduleGenerationDTO{
		DevelopmentID:        dev.ID,
		Periods:              len(entries),
		PaymentsCreated:      paymentsCreated,
		ServiceOrdersCreated: visitsCreated,
	}, nil
}

// regenerate replaces the pending payments due from today on after the contract
// terms changed. Paid, cancelled and overdue rows keep their amounts.
func (s *ScheduleService) regenerate(ctx context.Context, tx *gorm.DB, dev *domain.Development) error {
	today := s.calendar.Today()
	payments := s.paymentRepo.WithTx(tx)
	visits := s.serviceOrderRepo.WithTx(tx)

	lastPaid, err := payments.MaxPaidIndex(ctx, dev.ID)
	if err != nil {
		return fmt.Errorf("failed to read collected periods: %w", err)
	}
	lastOrdered, err := visits.MaxGeneratedIndex(ctx, dev.ID)
	if err != nil {
		return fmt.Errorf("failed to read ordered periods: %w", err)
	}
	if last := max(lastPaid, lastOrdered); dev.DurationMonths <= last {
		return fmt.Errorf("%w: period %d is committed, duration must be at least %d",
			ErrDurationBelowCollected, last, last+1)
	}

	if _, err := payments.DeletePendingFrom(ctx, dev.ID, today); err != nil {
		return fmt.Errorf("failed to remove pending payments: %w", err)
	}
	if _, err := payments.DeleteBeyondIndex(ctx, dev.ID, dev.DurationMonths-1); err != nil {
		return fmt.Errorf("failed to remove payments beyond contract end: %w", err)
	}
	if _, err := visits.DeleteBeyondIndex(ctx, dev.ID, dev.DurationMonths-1); err != nil {
		return fmt.Errorf("failed to remove service orders beyond contract end: %w", err)
	}

	_, err = s.generate(ctx, tx, dev)
	return err
}

// cancelFrom cancels pending payments and visits of dev from the given date on
func (s *ScheduleService) cancelFrom(ctx context.Context, tx *gorm.DB, developmentID uuid.UUID, from time.Time) (int64, int64, error) {
	payments, err := s.paymentRepo.WithTx(tx).CancelPendingFrom(ctx, developmentID, from)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to cancel pending payments: %w", err)
	}
	visits, err := s.serviceOrderRepo.WithTx(tx).CancelPendingFrom(ctx, developmentID, from)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to cancel pending service orders: %w", err)
	}
	return payments, visits, nil
}

// GetSchedule returns every payment and visit of a development with the summary as seen today
func (s *ScheduleService) GetSchedule(ctx context.Context, developmentID uuid.UUID) (*domain.DevelopmentScheduleDTO, error) {
	if _, err := s.developmentRepo.GetByID(ctx, developmentID); err != nil {
		return nil, notFound(err, ErrDevelopmentNotFound)
	}

	payments, err := s.paymentRepo.ListByDevelopment(ctx, developmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	visits, err := s.serviceOrderRepo.ListByDevelopment(ctx, developmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service orders: %w", err)
	}

	today := s.calendar.Today()
	dto := &domain.DevelopmentScheduleDTO{
		DevelopmentID: developmentID,
		Summary:       summarizeSchedule(payments, today),
		Payments:      mapper.ToScheduledPaymentDTOs(payments, today),
		ServiceOrders: make([]domain.ScheduledServiceOrderDTO, len(visits)),
	}
	for i := range visits {
		dto.ServiceOrders[i] = mapper.ToScheduledServiceOrderDTO(&visits[i])
	}
	return dto, nil
}

// TopUpActive runs generation for every active development with automatic orders.
// It heals schedules left incomplete by an interrupted creation.
func (s *ScheduleService) TopUpActive(ctx context.Context) (int, error) {
	devs, err := s.developmentRepo.ListActiveAutoGenerate(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list developments: %w", err)
	}

	healed := 0
	for i := range devs {
		dev := &devs[i]
		var result *domain.ScheduleGenerationDTO
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.generate(ctx, tx, dev)
			return err
		})
		if err != nil {
			s.logger.Error("schedule top-up failed",
				zap.String("development_id", dev.ID.String()),
				zap.Error(err))
			continue
		}
		if result.PaymentsCreated > 0 || result.ServiceOrdersCreated > 0 {
			healed++
		}
	}
	return healed, nil
}

// summarizeSchedule aggregates payments by effective status
func summarizeSchedule(payments []domain.ScheduledPayment, today time.Time) domain.ScheduleSummaryDTO {
	summary := domain.ScheduleSummaryDTO{
		TotalPayments:     len(payments),
		CollectedAmount:   decimal.Zero,
		OutstandingAmount: decimal.Zero,
		OverdueAmount:     decimal.Zero,
	}

	var next *time.Time
	for i := range payments {
		p := &payments[i]
		switch p.EffectiveStatus(today) {
		case domain.PaymentStatusPaid:
			summary.Paid++
			summary.CollectedAmount = summary.CollectedAmount.Add(p.Amount)
		case domain.PaymentStatusOverdue:
			summary.Overdue++
			summary.OverdueAmount = summary.OverdueAmount.Add(p.Amount)
			summary.OutstandingAmount = summary.OutstandingAmount.Add(p.Amount)
		case domain.PaymentStatusPending:
			summary.Pending++
			summary.OutstandingAmount = summary.OutstandingAmount.Add(p.Amount)
			if next == nil || p.DueDate.Before(*next) {
				due := p.DueDate
				next = &due
			}
		case domain.PaymentStatusCancelled:
			summary.Cancelled++
		}
	}

	summary.CollectedAmount = money(summary.CollectedAmount)
	summary.OutstandingAmount = money(summary.OutstandingAmount)
	summary.OverdueAmount = money(summary.OverdueAmount)
	if next != nil {
		summary.NextDueDate = next.Format(dateLayout)
	}
	return summary
}
