package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ServiceOrderRepository handles the monthly service visits generated with a schedule
type ServiceOrderRepository struct {
	db *gorm.DB
}

func NewServiceOrderRepository(db *gorm.DB) *ServiceOrderRepository {
	return &ServiceOrderRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ServiceOrderRepository) WithTx(tx *gorm.DB) *ServiceOrderRepository {
	return &ServiceOrderRepository{db: tx}
}

// CreateIgnoreDuplicates inserts scheduled orders, skipping existing (development, period) pairs
func (r *ServiceOrderRepository) CreateIgnoreDuplicates(ctx context.Context, orders []domain.ScheduledServiceOrder) (int64, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "development_id"}, {Name: "period"}},
			DoNothing: true,
		}).
		CreateInBatches(orders, 100)
	return result.RowsAffected, result.Error
}

func (r *ServiceOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledServiceOrder, error) {
	var order domain.ScheduledServiceOrder
	err := r.db.WithContext(ctx).Preload("Development").Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *ServiceOrderRepository) ListByDevelopment(ctx context.Context, developmentID uuid.UUID) ([]domain.ScheduledServiceOrder, error) {
	var orders []domain.ScheduledServiceOrder
	err := r.db.WithContext(ctx).
		Where("development_id = ?", developmentID).
		Order("period_index ASC").
		Find(&orders).Error
	return orders, err
}

// ListDue returns pending scheduled orders with a service date up to until whose
// development is active and generates its orders automatically
func (r *ServiceOrderRepository) ListDue(ctx context.Context, until time.Time) ([]domain.ScheduledServiceOrder, error) {
	var orders []domain.ScheduledServiceOrder
	err := r.db.WithContext(ctx).
		Joins("JOIN developments ON developments.id = scheduled_service_orders.development_id").
		Where("scheduled_service_orders.status = ?", domain.ServiceOrderStatusPending).
		Where("scheduled_service_orders.service_date <= ?", until).
		Where("developments.status = ? AND developments.auto_generate_orders = ?", domain.DevelopmentStatusActive, true).
		Preload("Development").
		Order("scheduled_service_orders.service_date ASC").
		Find(&orders).Error
	return orders, err
}

// MarkGenerated links a scheduled order to the order created for it
func (r *ServiceOrderRepository) MarkGenerated(ctx context.Context, id, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.ScheduledServiceOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   domain.ServiceOrderStatusGenerated,
			"order_id": orderID,
		}).Error
}

// CancelPendingFrom cancels pending scheduled orders on or after from
func (r *ServiceOrderRepository) CancelPendingFrom(ctx context.Context, developmentID uuid.UUID, from time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.ScheduledServiceOrder{}).
		Where("development_id = ? AND status = ? AND service_date >= ?", developmentID, domain.ServiceOrderStatusPending, from).
		Update("status", domain.ServiceOrderStatusCancelled)
	return result.RowsAffected, result.Error
}

// DeleteBeyondIndex removes pending scheduled orders past the end of a shortened contract
func (r *ServiceOrderRepository) DeleteBeyondIndex(ctx context.Context, developmentID uuid.UUID, lastIndex int) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("development_id = ? AND status = ? AND period_index > ?", developmentID, domain.ServiceOrderStatusPending, lastIndex).
		Delete(&domain.ScheduledServiceOrder{})
	return result.RowsAffected, result.Error
}

// MaxGeneratedIndex returns the highest period index already turned into an order, or -1
func (r *ServiceOrderRepository) MaxGeneratedIndex(ctx context.Context, developmentID uuid.UUID) (int, error) {
	var maxIndex sql.NullInt64
	err := r.db.WithContext(ctx).Model(&domain.ScheduledServiceOrder{}).
		Select("MAX(period_index)").
		Where("development_id = ? AND status = ?", developmentID, domain.ServiceOrderStatusGenerated).
		Row().Scan(&maxIndex)
	if err != nil || !maxIndex.Valid {
		return -1, err
	}
	return int(maxIndex.Int64), nil
}
