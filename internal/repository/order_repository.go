package repository

import (
	"context"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilters holds optional filters for listing orders
type OrderFilters struct {
	Search        string
	Status        *domain.OrderStatus
	Type          *domain.OrderType
	ClientID      *uuid.UUID
	DevelopmentID *uuid.UUID
	AssignedTo    string
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
}

var orderSortFields = map[string]string{
	"orderNumber":   "order_number",
	"scheduledDate": "scheduled_date",
	"status":        "status",
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Development").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Where("order_number = ?", number).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByScheduledServiceOrderID finds the order materialized from a scheduled visit
func (r *OrderRepository) GetByScheduledServiceOrderID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Where("scheduled_service_order_id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// CancelOpenByDevelopment cancels generated orders that have not started yet
func (r *OrderRepository) CancelOpenByDevelopment(ctx context.Context, developmentID uuid.UUID, from time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("development_id = ? AND scheduled_service_order_id IS NOT NULL", developmentID).
		Where("status IN ?", []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusScheduled}).
		Where("scheduled_date >= ?", from).
		Update("status", domain.OrderStatusCancelled)
	return result.RowsAffected, result.Error
}

func (r *OrderRepository) List(ctx context.Context, page, pageSize int, filters *OrderFilters, sort SortConfig) ([]domain.Order, int64, error) {
	var orders []domain.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Order{})
	if filters != nil {
		if filters.Search != "" {
			pattern := likePattern(filters.Search)
			query = query.Where("LOWER(title) LIKE ? OR LOWER(order_number) LIKE ?", pattern, pattern)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.Type != nil {
			query = query.Where("type = ?", *filters.Type)
		}
		if filters.ClientID != nil {
			query = query.Where("client_id = ?", *filters.ClientID)
		}
		if filters.DevelopmentID != nil {
			query = query.Where("development_id = ?", *filters.DevelopmentID)
		}
		if filters.AssignedTo != "" {
			query = query.Where("assigned_to = ?", filters.AssignedTo)
		}
		if filters.ScheduledFrom != nil {
			query = query.Where("scheduled_date >= ?", *filters.ScheduledFrom)
		}
		if filters.ScheduledTo != nil {
			query = query.Where("scheduled_date <= ?", *filters.ScheduledTo)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Preload("Client").
		Preload("Development").
		Order(BuildOrderClause(sort, orderSortFields, "updated_at")).
		Find(&orders).Error

	return orders, total, err
}
