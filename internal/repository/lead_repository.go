package repository

import (
	"context"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeadFilters holds optional filters for listing leads
type LeadFilters struct {
	Search     string
	Status     *domain.LeadStatus
	AssignedTo string
	Source     string
}

var leadSortFields = map[string]string{
	"name":         "name",
	"status":       "status",
	"reminderDate": "reminder_date",
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
}

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *LeadRepository) WithTx(tx *gorm.DB) *LeadRepository {
	return &LeadRepository{db: tx}
}

func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(lead).Error
}

// GetByID loads a lead with its comments, oldest first
func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// GetByIDUnscoped also finds converted (soft-deleted) leads
func (r *LeadRepository) GetByIDUnscoped(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(lead).Error
}

// Delete soft-deletes the lead
func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Lead{}, "id = ?", id).Error
}

func (r *LeadRepository) AddComment(ctx context.Context, comment *domain.LeadComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *LeadRepository) List(ctx context.Context, page, pageSize int, filters *LeadFilters, sort SortConfig) ([]domain.Lead, int64, error) {
	var leads []domain.Lead
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Lead{})
	if filters != nil {
		if filters.Search != "" {
			pattern := likePattern(filters.Search)
			query = query.Where("LOWER(name) LIKE ? OR LOWER(contact_name) LIKE ?", pattern, pattern)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.AssignedTo != "" {
			query = query.Where("assigned_to = ?", filters.AssignedTo)
		}
		if filters.Source != "" {
			query = query.Where("source = ?", filters.Source)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, leadSortFields, "updated_at")).
		Find(&leads).Error

	return leads, total, err
}

// ListDueReminders returns open leads whose reminder date is on or before day
func (r *LeadRepository) ListDueReminders(ctx context.Context, day time.Time) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := r.db.WithContext(ctx).
		Where("reminder_date IS NOT NULL AND reminder_date <= ?", day).
		Where("status NOT IN ?", []domain.LeadStatus{domain.LeadStatusAccepted, domain.LeadStatusRejected}).
		Order("reminder_date ASC").
		Find(&leads).Error
	return leads, err
}
