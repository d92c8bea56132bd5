package repository

import (
	"context"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientFilters holds optional filters for listing clients
type ClientFilters struct {
	Search   string
	IsActive *bool
}

var clientSortFields = map[string]string{
	"name":      "name",
	"city":      "city",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *ClientRepository) WithTx(tx *gorm.DB) *ClientRepository {
	return &ClientRepository{db: tx}
}

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *ClientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Client, error) {
	var client domain.Client
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *ClientRepository) Update(ctx context.Context, client *domain.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Client{}, "id = ?", id).Error
}

// CountDevelopments counts developments linked to the client
func (r *ClientRepository) CountDevelopments(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Development{}).Where("client_id = ?", id).Count(&count).Error
	return count, err
}

func (r *ClientRepository) List(ctx context.Context, page, pageSize int, filters *ClientFilters, sort SortConfig) ([]domain.Client, int64, error) {
	var clients []domain.Client
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Client{})
	if filters != nil {
		if filters.Search != "" {
			pattern := likePattern(filters.Search)
			query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(tax_id) LIKE ?", pattern, pattern, pattern)
		}
		if filters.IsActive != nil {
			query = query.Where("is_active = ?", *filters.IsActive)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := paginate(query, page, pageSize).
		Order(BuildOrderClause(sort, clientSortFields, "updated_at")).
		Find(&clients).Error

	return clients, total, err
}
