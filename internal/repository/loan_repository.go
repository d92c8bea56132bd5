package repository

import (
	"context"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanRepository handles investor loans. There is one loan per investor development,
// enforced by the unique index on development_id.
type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *LoanRepository) WithTx(tx *gorm.DB) *LoanRepository {
	return &LoanRepository{db: tx}
}

func (r *LoanRepository) Create(ctx context.Context, loan *domain.InvestorLoan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(loan).Error
}

func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvestorLoan, error) {
	var loan domain.InvestorLoan
	err := r.db.WithContext(ctx).Preload("Development").Where("id = ?", id).First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *LoanRepository) GetByDevelopmentID(ctx context.Context, developmentID uuid.UUID) (*domain.InvestorLoan, error) {
	var loan domain.InvestorLoan
	err := r.db.WithContext(ctx).Preload("Development").Where("development_id = ?", developmentID).First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetByDevelopmentIDForUpdate locks the loan row for the rest of the transaction
func (r *LoanRepository) GetByDevelopmentIDForUpdate(ctx context.Context, developmentID uuid.UUID) (*domain.InvestorLoan, error) {
	var loan domain.InvestorLoan
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("development_id = ?", developmentID).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *LoanRepository) Update(ctx context.Context, loan *domain.InvestorLoan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(loan).Error
}

// List returns loans with their development, optionally filtered by status
func (r *LoanRepository) List(ctx context.Context, status *domain.LoanStatus) ([]domain.InvestorLoan, error) {
	var loans []domain.InvestorLoan
	query := r.db.WithContext(ctx).Preload("Development")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Order("created_at ASC").Find(&loans).Error
	return loans, err
}
