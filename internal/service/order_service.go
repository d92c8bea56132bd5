package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService manages field-service orders and turns scheduled service visits into orders
type OrderService struct {
	db               *gorm.DB
	orderRepo        *repository.OrderRepository
	clientRepo       *repository.ClientRepository
	developmentRepo  *repository.DevelopmentRepository
	serviceOrderRepo *repository.ServiceOrderRepository
	numbers          *NumberSequenceService
	lookaheadDays    int
	calendar         *Calendar
	logger           *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	clientRepo *repository.ClientRepository,
	developmentRepo *repository.DevelopmentRepository,
	serviceOrderRepo *repository.ServiceOrderRepository,
	numbers *NumberSequenceService,
	lookaheadDays int,
	calendar *Calendar,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		db:               db,
		orderRepo:        orderRepo,
		clientRepo:       clientRepo,
		developmentRepo:  developmentRepo,
		serviceOrderRepo: serviceOrderRepo,
		numbers:          numbers,
		lookaheadDays:    lookaheadDays,
		calendar:         calendar,
		logger:           logger,
	}
}

// Create opens an order with the next order number. Orders linked to a
// development inherit its client and address when those are not given.
func (s *OrderService) Create(ctx context.Context, req *domain.CreateOrderRequest) (*domain.OrderDTO, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidInput, req.Type)
	}
	scheduledDate, err := parseOptionalDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		Status:        domain.OrderStatusPending,
		ClientID:      req.ClientID,
		DevelopmentID: req.DevelopmentID,
		ScheduledDate: scheduledDate,
		AssignedTo:    req.AssignedTo,
		Address:       req.Address,
		Amount:        money(req.Amount),
	}
	if scheduledDate != nil {
		order.Status = domain.OrderStatusScheduled
	}

	if req.ClientID != nil {
		if _, err := s.clientRepo.GetByID(ctx, *req.ClientID); err != nil {
			return nil, notFound(err, ErrClientNotFound)
		}
	}
	if req.DevelopmentID != nil {
		dev, err := s.developmentRepo.GetByID(ctx, *req.DevelopmentID)
		if err != nil {
			return nil, notFound(err, ErrDevelopmentNotFound)
		}
		if order.ClientID == nil {
			order.ClientID = dev.ClientID
		}
		if order.Address == "" {
			order.Address = dev.Address
		}
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		order.CreatedByID = userCtx.UserIDString()
		order.CreatedByName = userCtx.DisplayName
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := s.numbers.GenerateOrderNumberTx(ctx, tx)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		return s.orderRepo.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber))

	return s.GetByID(ctx, order.ID)
}

func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

func (s *OrderService) List(ctx context.Context, page, pageSize int, filters *repository.OrderFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	orders, total, err := s.orderRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	dtos := make([]domain.OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = mapper.ToOrderDTO(&orders[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// UpdateStatus moves an order along pending -> scheduled -> in_progress -> completed.
// Any open order can be cancelled.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateOrderStatusRequest) (*domain.OrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if !order.Status.CanTransitionTo(req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidOrderTransition, order.Status, req.Status)
	}

	from := order.Status
	order.Status = req.Status
	if req.AssignedTo != nil {
		order.AssignedTo = *req.AssignedTo
	}
	if req.Status == domain.OrderStatusCompleted {
		now := s.calendar.Now()
		order.CompletedAt = &now
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Info("order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(req.Status)))

	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// MaterializeServiceOrders creates an order for every pending scheduled visit of an
// active, auto-generating development whose service date falls within the look-ahead
// window. A visit that already has an order is only linked, so running it twice
// never creates duplicates.
func (s *OrderService) MaterializeServiceOrders(ctx context.Context) (*domain.MaterializationResultDTO, error) {
	ctx, span := tracing.Start(ctx, "orders.materialize")
	defer span.End()

	until := s.calendar.Today().AddDate(0, 0, s.lookaheadDays)
	due, err := s.serviceOrderRepo.ListDue(ctx, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list due service orders: %w", err)
	}
	span.SetAttributes(attribute.Int("service_orders.due", len(due)))

	result := &domain.MaterializationResultDTO{Due: len(due)}
	for i := range due {
		number, err := s.materialize(ctx, &due[i])
		if err != nil {
			s.logger.Error("failed to materialize service order",
				zap.String("scheduled_service_order_id", due[i].ID.String()),
				zap.String("development_id", due[i].DevelopmentID.String()),
				zap.Error(err))
			continue
		}
		if number != "" {
			result.Created++
			result.Orders = append(result.Orders, number)
		}
	}

	metrics.OrdersMaterialized.Add(float64(result.Created))
	s.logger.Info("service orders materialized",
		zap.Int("due", result.Due),
		zap.Int("created", result.Created),
		zap.String("until", until.Format(dateLayout)))
	return result, nil
}

// materialize returns the number of the order created, or "" when the visit
// already had one
func (s *OrderService) materialize(ctx context.Context, visit *domain.ScheduledServiceOrder) (string, error) {
	var number string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orderRepo.WithTx(tx)
		visits := s.serviceOrderRepo.WithTx(tx)

		existing, err := orders.GetByScheduledServiceOrderID(ctx, visit.ID)
		if err == nil {
			return visits.MarkGenerated(ctx, visit.ID, existing.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		number, err = s.numbers.GenerateOrderNumberTx(ctx, tx)
		if err != nil {
			return err
		}

		serviceDate := visit.ServiceDate
		order := &domain.Order{
			OrderNumber:             number,
			Type:                    domain.OrderTypeMaintenance,
			Title:                   fmt.Sprintf("Monthly service %s", visit.Period),
			Status:                  domain.OrderStatusScheduled,
			DevelopmentID:           &visit.DevelopmentID,
			ScheduledServiceOrderID: &visit.ID,
			ScheduledDate:           &serviceDate,
			CreatedByName:           "scheduler",
		}
		if dev := visit.Development; dev != nil {
			order.Title = fmt.Sprintf("Monthly service %s - %s", dev.Name, visit.Period)
			order.ClientID = dev.ClientID
			order.Address = dev.Address
		}
		if err := orders.Create(ctx, order); err != nil {
			return err
		}
		return visits.MarkGenerated(ctx, visit.ID, order.ID)
	})
	if err != nil {
		return "", err
	}
	return number, nil
}
