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

// PaymentFilters holds optional filters for listing scheduled payments.
// Status may be "overdue", which is resolved against Today since overdue is never stored.
type PaymentFilters struct {
	DevelopmentID *uuid.UUID
	Status        *domain.PaymentStatus
	DueFrom       *time.Time
	DueTo         *time.Time
	PeriodFrom    string
	PeriodTo      string
	IsRecovery    *bool
	Today         time.Time
}

var paymentSortFields = map[string]string{
	"dueDate": "due_date",
	"period":  "period",
	"amount":  "amount",
	"paidAt":  "paid_at",
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

// CreateIgnoreDuplicates inserts payments and silently skips any (development, period)
// that already exists. Returns the number of rows actually inserted.
func (r *PaymentRepository) CreateIgnoreDuplicates(ctx context.Context, payments []domain.ScheduledPayment) (int64, error) {
	if len(payments) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "development_id"}, {Name: "period"}},
			DoNothing: true,
		}).
		CreateInBatches(payments, 100)
	return result.RowsAffected, result.Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPayment, error) {
	var payment domain.ScheduledPayment
	err := r.db.WithContext(ctx).Preload("Development").Where("id = ?", id).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetByIDForUpdate locks the payment row for the rest of the transaction
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ScheduledPayment, error) {
	var payment domain.ScheduledPayment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *domain.ScheduledPayment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(payment).Error
}

// ListByDevelopment returns the full schedule of a development ordered by period
func (r *PaymentRepository) ListByDevelopment(ctx context.Context, developmentID uuid.UUID) ([]domain.ScheduledPayment, error) {
	var payments []domain.ScheduledPayment
	err := r.db.WithContext(ctx).
		Where("development_id = ?", developmentID).
		Order("period_index ASC").
		Find(&payments).Error
	return payments, err
}

// ListPaidByDevelopment returns collected payments in schedule order, for ledger replays
func (r *PaymentRepository) ListPaidByDevelopment(ctx context.Context, developmentID uuid.UUID) ([]domain.ScheduledPayment, error) {
	var payments []domain.ScheduledPayment
	err := r.db.WithContext(ctx).
		Where("development_id = ? AND status = ?", developmentID, domain.PaymentStatusPaid).
		Order("paid_at ASC, period_index ASC").
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) List(ctx context.Context, page, pageSize int, filters *PaymentFilters, sort SortConfig) ([]domain.ScheduledPayment, int64, error) {
	var payments []domain.ScheduledPayment
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.ScheduledPayment{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Preload("Development").
		Order(BuildOrderClause(sort, paymentSortFields, "due_date")).
		Order("period_index ASC").
		Find(&payments).Error

	return payments, total, err
}

// CancelPendingFrom cancels pending payments due on or after from
func (r *PaymentRepository) CancelPendingFrom(ctx context.Context, developmentID uuid.UUID, from time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.ScheduledPayment{}).
		Where("development_id = ? AND status = ? AND due_date >= ?", developmentID, domain.PaymentStatusPending, from).
		Update("status", domain.PaymentStatusCancelled)
	return result.RowsAffected, result.Error
}

// DeletePendingFrom removes pending payments due on or after from so they can be regenerated
func (r *PaymentRepository) DeletePendingFrom(ctx context.Context, developmentID uuid.UUID, from time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("development_id = ? AND status = ? AND due_date >= ?", developmentID, domain.PaymentStatusPending, from).
		Delete(&domain.ScheduledPayment{})
	return result.RowsAffected, result.Error
}

// DeleteBeyondIndex removes pending payments past the end of a shortened contract
func (r *PaymentRepository) DeleteBeyondIndex(ctx context.Context, developmentID uuid.UUID, lastIndex int) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("development_id = ? AND status = ? AND period_index > ?", developmentID, domain.PaymentStatusPending, lastIndex).
		Delete(&domain.ScheduledPayment{})
	return result.RowsAffected, result.Error
}

// MaxPaidIndex returns the highest period index collected for a development, or -1
func (r *PaymentRepository) MaxPaidIndex(ctx context.Context, developmentID uuid.UUID) (int, error) {
	var maxIndex sql.NullInt64
	err := r.db.WithContext(ctx).Model(&domain.ScheduledPayment{}).
		Select("MAX(period_index)").
		Where("development_id = ? AND status = ?", developmentID, domain.PaymentStatusPaid).
		Row().Scan(&maxIndex)
	if err != nil || !maxIndex.Valid {
		return -1, err
	}
	return int(maxIndex.Int64), nil
}

func (r *PaymentRepository) applyFilters(query *gorm.DB, filters *PaymentFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.DevelopmentID != nil {
		query = query.Where("development_id = ?", *filters.DevelopmentID)
	}

	if filters.Status != nil {
		switch *filters.Status {
		case domain.PaymentStatusOverdue:
			query = query.Where("status = ? AND due_date < ?", domain.PaymentStatusPending, filters.Today)
		case domain.PaymentStatusPending:
			query = query.Where("status = ? AND due_date >= ?", domain.PaymentStatusPending, filters.Today)
		default:
			query = query.Where("status = ?", *filters.Status)
		}
	}

	if filters.DueFrom != nil {
		query = query.Where("due_date >= ?", *filters.DueFrom)
	}
	if filters.DueTo != nil {
		query = query.Where("due_date <= ?", *filters.DueTo)
	}
	if filters.PeriodFrom != "" {
		query = query.Where("period >= ?", filters.PeriodFrom)
	}
	if filters.PeriodTo != "" {
		query = query.Where("period <= ?", filters.PeriodTo)
	}
	if filters.IsRecovery != nil {
		query = query.Where("is_recovery = ?", *filters.IsRecovery)
	}

	return query
}

// CountOutstanding counts payments of a development that are neither paid nor cancelled
func (r *PaymentRepository) CountOutstanding(ctx context.Context, developmentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ScheduledPayment{}).
		Where("development_id = ? AND status = ?", developmentID, domain.PaymentStatusPending).
		Count(&count).Error
	return count, err
}

// CountPaidByDevelopment returns the number of collected payments per development
func (r *PaymentRepository) CountPaidByDevelopment(ctx context.Context) (map[uuid.UUID]int, error) {
	var rows []struct {
		DevelopmentID uuid.UUID
		Count         int
	}
	err := r.db.WithContext(ctx).Model(&domain.ScheduledPayment{}).
		Select("development_id, COUNT(*) AS count").
		Where("status = ?", domain.PaymentStatusPaid).
		Group("development_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.DevelopmentID] = row.Count
	}
	return counts, nil
}
