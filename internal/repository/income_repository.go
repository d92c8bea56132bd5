package repository

import (
	"context"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IncomeFilters holds optional filters for listing income
type IncomeFilters struct {
	Category      string
	ClientID      *uuid.UUID
	DevelopmentID *uuid.UUID
	From          *time.Time
	To            *time.Time
}

// IncomeCategoryTotal is one row of an income summary
type IncomeCategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int64
}

type IncomeRepository struct {
	db *gorm.DB
}

func NewIncomeRepository(db *gorm.DB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *IncomeRepository) WithTx(tx *gorm.DB) *IncomeRepository {
	return &IncomeRepository{db: tx}
}

func (r *IncomeRepository) Create(ctx context.Context, income *domain.Income) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(income).Error
}

func (r *IncomeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Income, error) {
	var income domain.Income
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&income).Error
	if err != nil {
		return nil, err
	}
	return &income, nil
}

// GetByPaymentID returns the income posted for a collected payment
func (r *IncomeRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*domain.Income, error) {
	var income domain.Income
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&income).Error
	if err != nil {
		return nil, err
	}
	return &income, nil
}

func (r *IncomeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Income{}, "id = ?", id).Error
}

func (r *IncomeRepository) List(ctx context.Context, page, pageSize int, filters *IncomeFilters) ([]domain.Income, int64, error) {
	var incomes []domain.Income
	var total int64

	query := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Income{}), filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order("date DESC").
		Order("created_at DESC").
		Find(&incomes).Error

	return incomes, total, err
}

// SummaryByCategory totals income per category for the filtered range
func (r *IncomeRepository) SummaryByCategory(ctx context.Context, filters *IncomeFilters) ([]IncomeCategoryTotal, error) {
	var rows []struct {
		Category string
		Total    float64
		Count    int64
	}

	err := r.applyFilters(r.db.WithContext(ctx).Model(&domain.Income{}), filters).
		Select("category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]IncomeCategoryTotal, len(rows))
	for i, row := range rows {
		totals[i] = IncomeCategoryTotal{
			Category: row.Category,
			Total:    decimal.NewFromFloat(row.Total).Round(2),
			Count:    row.Count,
		}
	}
	return totals, nil
}

func (r *IncomeRepository) applyFilters(query *gorm.DB, filters *IncomeFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.ClientID != nil {
		query = query.Where("client_id = ?", *filters.ClientID)
	}
	if filters.DevelopmentID != nil {
		query = query.Where("development_id = ?", *filters.DevelopmentID)
	}
	if filters.From != nil {
		query = query.Where("date >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("date <= ?", *filters.To)
	}
	return query
}
