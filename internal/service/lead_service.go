package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldops/fieldservice-api/internal/auth"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeadService runs the sales workflow of prospective developments
type LeadService struct {
	db           *gorm.DB
	leadRepo     *repository.LeadRepository
	clientRepo   *repository.ClientRepository
	developments *DevelopmentService
	investors    *InvestorService
	calendar     *Calendar
	logger       *zap.Logger
}

func NewLeadService(
	db *gorm.DB,
	leadRepo *repository.LeadRepository,
	clientRepo *repository.ClientRepository,
	developments *DevelopmentService,
	investors *InvestorService,
	calendar *Calendar,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		db:           db,
		leadRepo:     leadRepo,
		clientRepo:   clientRepo,
		developments: developments,
		investors:    investors,
		calendar:     calendar,
		logger:       logger,
	}
}

func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.LeadDTO, error) {
	reminder, err := parseOptionalDate(req.ReminderDate)
	if err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		Status:       domain.LeadStatusNew,
		ReminderDate: reminder,
	}
	applyLeadFields(lead, req)
	if userCtx, ok := auth.FromContext(ctx); ok {
		lead.CreatedByID = userCtx.UserIDString()
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.logger.Info("lead created", zap.String("lead_id", lead.ID.String()), zap.String("name", lead.Name))
	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

func applyLeadFields(lead *domain.Lead, req *domain.CreateLeadRequest) {
	lead.Name = req.Name
	lead.ContactName = req.ContactName
	lead.Phone = req.Phone
	lead.Email = req.Email
	lead.Address = req.Address
	lead.Source = req.Source
	lead.EstimatedMonthlyAmount = money(req.EstimatedMonthlyAmount)
	lead.AssignedTo = req.AssignedTo
	lead.Notes = req.Notes
}

func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrLeadNotFound)
	}
	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

func (s *LeadService) List(ctx context.Context, page, pageSize int, filters *repository.LeadFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	leads, total, err := s.leadRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	dtos := make([]domain.LeadDTO, len(leads))
	for i := range leads {
		dtos[i] = mapper.ToLeadDTO(&leads[i])
	}
	return paginated(dtos, total, page, pageSize), nil
}

// Update edits the contact data of a lead. The status only changes through UpdateStatus.
func (s *LeadService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadRequest) (*domain.LeadDTO, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrLeadNotFound)
	}
	reminder, err := parseOptionalDate(req.ReminderDate)
	if err != nil {
		return nil, err
	}

	applyLeadFields(lead, req)
	lead.ReminderDate = reminder

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

// UpdateStatus moves a lead along its workflow and records the transition in its history
func (s *LeadService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadStatusRequest) (*domain.LeadDTO, error) {
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown lead status %q", ErrInvalidInput, req.Status)
	}

	var lead *domain.Lead
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		leads := s.leadRepo.WithTx(tx)
		var err error
		lead, err = leads.GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrLeadNotFound)
		}
		if !lead.Status.CanTransitionTo(req.Status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidLeadTransition, lead.Status, req.Status)
		}

		from := lead.Status
		lead.Status = req.Status
		if err := leads.Update(ctx, lead); err != nil {
			return fmt.Errorf("failed to update lead: %w", err)
		}

		body := strings.TrimSpace(req.Comment)
		if body == "" {
			body = fmt.Sprintf("Status changed from %s to %s", from, req.Status)
		}
		comment := s.newComment(ctx, lead.ID, body)
		comment.StatusFrom = from
		comment.StatusTo = req.Status
		if err := leads.AddComment(ctx, comment); err != nil {
			return fmt.Errorf("failed to record status change: %w", err)
		}
		lead.Comments = append(lead.Comments, *comment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lead status changed",
		zap.String("lead_id", lead.ID.String()),
		zap.String("status", string(lead.Status)))

	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

func (s *LeadService) newComment(ctx context.Context, leadID uuid.UUID, body string) *domain.LeadComment {
	comment := &domain.LeadComment{LeadID: leadID, Body: body}
	if userCtx, ok := auth.FromContext(ctx); ok {
		comment.AuthorID = userCtx.UserIDString()
		comment.AuthorName = userCtx.DisplayName
	}
	return comment
}

func (s *LeadService) AddComment(ctx context.Context, id uuid.UUID, req *domain.AddLeadCommentRequest) (*domain.LeadCommentDTO, error) {
	if _, err := s.leadRepo.GetByID(ctx, id); err != nil {
		return nil, notFound(err, ErrLeadNotFound)
	}

	comment := s.newComment(ctx, id, strings.TrimSpace(req.Body))
	if err := s.leadRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	dto := mapper.ToLeadCommentDTO(comment)
	return &dto, nil
}

// ListDueReminders returns open leads whose reminder date is today or earlier
func (s *LeadService) ListDueReminders(ctx context.Context) ([]domain.LeadDTO, error) {
	leads, err := s.leadRepo.ListDueReminders(ctx, s.calendar.Today())
	if err != nil {
		return nil, fmt.Errorf("failed to list lead reminders: %w", err)
	}
	dtos := make([]domain.LeadDTO, len(leads))
	for i := range leads {
		dtos[i] = mapper.ToLeadDTO(&leads[i])
	}
	return dtos, nil
}

// Convert turns an accepted lead into a development. The client (created from the
// lead's contact data unless one is given), the development, its loan and its
// schedules are written in one transaction, after which the lead is superseded.
func (s *LeadService) Convert(ctx context.Context, id uuid.UUID, req *domain.ConvertLeadRequest) (*domain.DevelopmentDTO, error) {
	var dev *domain.Development
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		leads := s.leadRepo.WithTx(tx)
		lead, err := leads.GetByID(ctx, id)
		if err != nil {
			return notFound(err, ErrLeadNotFound)
		}
		if lead.Status != domain.LeadStatusAccepted {
			return ErrLeadNotAccepted
		}

		devReq := req.Development
		if req.ClientID != nil {
			devReq.ClientID = req.ClientID
		}
		if devReq.ClientID == nil {
			client := clientFromLead(lead)
			if err := s.clientRepo.WithTx(tx).Create(ctx, client); err != nil {
				return fmt.Errorf("failed to create client from lead: %w", err)
			}
			devReq.ClientID = &client.ID
		}
		if devReq.Name == "" {
			devReq.Name = lead.Name
		}
		if devReq.Address == "" {
			devReq.Address = lead.Address
		}
		if devReq.ContactName == "" {
			devReq.ContactName = lead.ContactName
			devReq.ContactPhone = lead.Phone
			devReq.ContactEmail = lead.Email
		}

		dev, err = s.developments.createTx(ctx, tx, &devReq, &lead.ID)
		if err != nil {
			return err
		}

		now := s.calendar.Now()
		lead.ConvertedDevelopmentID = &dev.ID
		lead.ConvertedAt = &now
		if err := leads.Update(ctx, lead); err != nil {
			return fmt.Errorf("failed to update lead: %w", err)
		}
		comment := s.newComment(ctx, lead.ID, fmt.Sprintf("Converted into development %s", dev.Name))
		if err := leads.AddComment(ctx, comment); err != nil {
			return fmt.Errorf("failed to record conversion: %w", err)
		}
		return leads.Delete(ctx, lead.ID)
	})
	if err != nil {
		return nil, err
	}

	if dev.HasInvestor {
		s.investors.Invalidate(ctx)
	}
	s.logger.Info("lead converted",
		zap.String("lead_id", id.String()),
		zap.String("development_id", dev.ID.String()))

	return s.developments.GetByID(ctx, dev.ID)
}

func clientFromLead(lead *domain.Lead) *domain.Client {
	name := lead.ContactName
	if name == "" {
		name = lead.Name
	}
	return &domain.Client{
		Name:     name,
		Email:    lead.Email,
		Phone:    lead.Phone,
		Address:  lead.Address,
		Notes:    lead.Notes,
		IsActive: true,
	}
}

// Delete soft-deletes a lead
func (s *LeadService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.leadRepo.GetByID(ctx, id); err != nil {
		return notFound(err, ErrLeadNotFound)
	}
	if err := s.leadRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	s.logger.Info("lead deleted", zap.String("lead_id", id.String()))
	return nil
}
