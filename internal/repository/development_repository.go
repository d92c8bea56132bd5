package repository

import (
	"context"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DevelopmentFilters holds optional filters for listing developments
type DevelopmentFilters struct {
	Search      string
	Status      *domain.DevelopmentStatus
	ClientID    *uuid.UUID
	HasInvestor *bool
}

var developmentSortFields = map[string]string{
	"name":              "name",
	"status":            "status",
	"monthlyPayment":    "monthly_payment",
	"contractStartDate": "contract_start_date",
	"createdAt":         "created_at",
	"updatedAt":         "updated_at",
}

type DevelopmentRepository struct {
	db *gorm.DB
}

func NewDevelopmentRepository(db *gorm.DB) *DevelopmentRepository {
	return &DevelopmentRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *DevelopmentRepository) WithTx(tx *gorm.DB) *DevelopmentRepository {
	return &DevelopmentRepository{db: tx}
}

func (r *DevelopmentRepository) Create(ctx context.Context, dev *domain.Development) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(dev).Error
}

// GetByID loads a development with its client and loan
func (r *DevelopmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Development, error) {
	var dev domain.Development
	err := r.db.WithContext(ctx).
		Preload("Client").
		Preload("Loan").
		Where("id = ?", id).
		First(&dev).Error
	if err != nil {
		return nil, err
	}
	return &dev, nil
}

func (r *DevelopmentRepository) Update(ctx context.Context, dev *domain.Development) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(dev).Error
}

func (r *DevelopmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DevelopmentStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Development{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *DevelopmentRepository) List(ctx context.Context, page, pageSize int, filters *DevelopmentFilters, sort SortConfig) ([]domain.Development, int64, error) {
	var devs []domain.Development
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Development{})
	if filters != nil {
		if filters.Search != "" {
			pattern := likePattern(filters.Search)
			query = query.Where("LOWER(name) LIKE ? OR LOWER(address) LIKE ? OR LOWER(investor_name) LIKE ?", pattern, pattern, pattern)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.ClientID != nil {
			query = query.Where("client_id = ?", *filters.ClientID)
		}
		if filters.HasInvestor != nil {
			query = query.Where("has_investor = ?", *filters.HasInvestor)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Preload("Client").
		Preload("Loan").
		Order(BuildOrderClause(sort, developmentSortFields, "updated_at")).
		Find(&devs).Error

	return devs, total, err
}

// ListActiveAutoGenerate returns active developments that generate their service orders automatically
func (r *DevelopmentRepository) ListActiveAutoGenerate(ctx context.Context) ([]domain.Development, error) {
	var devs []domain.Development
	err := r.db.WithContext(ctx).
		Where("status = ? AND auto_generate_orders = ?", domain.DevelopmentStatusActive, true).
		Order("created_at ASC").
		Find(&devs).Error
	return devs, err
}
