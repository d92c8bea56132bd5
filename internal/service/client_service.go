package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldops/fieldservice-api/internal/datawarehouse"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomerSource lists customers of an external ERP
type CustomerSource interface {
	IsEnabled() bool
	ListCustomers(ctx context.Context) ([]datawarehouse.Customer, error)
}

// ClientService manages the customers developments and orders are billed to
type ClientService struct {
	clientRepo *repository.ClientRepository
	erp        CustomerSource
	logger     *zap.Logger
}

// NewClientService creates a client service. erp may be nil when no warehouse is configured.
func NewClientService(clientRepo *repository.ClientRepository, erp CustomerSource, logger *zap.Logger) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		erp:        erp,
		logger:     logger,
	}
}

func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.ClientDTO, error) {
	client := &domain.Client{IsActive: true}
	applyClientFields(client, req)

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.logger.Info("client created", zap.String("client_id", client.ID.String()), zap.String("name", client.Name))
	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

func applyClientFields(client *domain.Client, req *domain.CreateClientRequest) {
	client.Name = req.Name
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	client.City = req.City
	client.TaxID = req.TaxID
	client.Notes = req.Notes
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClientDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

func (s *ClientService) List(ctx context.Context, page, pageSize int, filters *repository.ClientFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	clients, total, err := s.clientRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	dtos := make([]domain.ClientDTO, len(clients))
	for i := range clients {
		dtos[i] = mapper.ToClientDTO(&clients[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateClientRequest) (*domain.ClientDTO, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}

	applyClientFields(client, &req.CreateClientRequest)
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Delete removes a client with no developments. Clients with contracts are
// deactivated instead through Update.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.clientRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrClientNotFound)
	}

	count, err := s.clientRepo.CountDevelopments(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count developments: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d linked", ErrClientHasDevelopments, count)
	}

	if err := s.clientRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	s.logger.Info("client deleted", zap.String("client_id", id.String()))
	return nil
}

// SyncFromERP imports the ERP customers. Clients are matched on their external ID;
// existing ones get their contact data refreshed, notes and status are kept.
func (s *ClientService) SyncFromERP(ctx context.Context) (*domain.ClientImportResultDTO, error) {
	if s.erp == nil || !s.erp.IsEnabled() {
		return nil, ErrDataWarehouseDisabled
	}

	customers, err := s.erp.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read ERP customers: %w", err)
	}

	result := &domain.ClientImportResultDTO{Fetched: len(customers)}
	for _, c := range customers {
		if c.ExternalID == "" || c.Name == "" {
			continue
		}

		client, err := s.clientRepo.GetByExternalID(ctx, c.ExternalID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			externalID := c.ExternalID
			client = &domain.Client{ExternalID: &externalID, IsActive: true}
			applyCustomer(client, c)
			if err := s.clientRepo.Create(ctx, client); err != nil {
				return result, fmt.Errorf("failed to import customer %s: %w", c.ExternalID, err)
			}
			result.Created++
		case err != nil:
			return result, fmt.Errorf("failed to look up customer %s: %w", c.ExternalID, err)
		default:
			applyCustomer(client, c)
			if err := s.clientRepo.Update(ctx, client); err != nil {
				return result, fmt.Errorf("failed to update customer %s: %w", c.ExternalID, err)
			}
			result.Updated++
		}
	}

	s.logger.Info("ERP customers imported",
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated))
	return result, nil
}

func applyCustomer(client *domain.Client, c datawarehouse.Customer) {
	client.Name = c.Name
	client.Email = c.Email
	client.Phone = c.Phone
	client.Address = c.Address
	client.City = c.City
	client.TaxID = c.TaxID
}
