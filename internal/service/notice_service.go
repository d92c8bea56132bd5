package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/mapper"
	"github.com/fieldops/fieldservice-api/internal/render"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DocumentKindNotice  = "notice"
	DocumentKindReceipt = "receipt"
)

// NoticeService prints payment notices and receipts and exports schedules as CSV
type NoticeService struct {
	paymentRepo     *repository.PaymentRepository
	developmentRepo *repository.DevelopmentRepository
	investors       *InvestorService
	renderer        *render.Renderer
	store           storage.Storage
	calendar        *Calendar
	logger          *zap.Logger
}

// NewNoticeService creates a notice service. store may be nil, which disables archiving.
func NewNoticeService(
	paymentRepo *repository.PaymentRepository,
	developmentRepo *repository.DevelopmentRepository,
	investors *InvestorService,
	renderer *render.Renderer,
	store storage.Storage,
	calendar *Calendar,
	logger *zap.Logger,
) *NoticeService {
	return &NoticeService{
		paymentRepo:     paymentRepo,
		developmentRepo: developmentRepo,
		investors:       investors,
		renderer:        renderer,
		store:           store,
		calendar:        calendar,
		logger:          logger,
	}
}

// document loads a payment with its development and builds what gets printed
func (s *NoticeService) document(ctx context.Context, paymentID uuid.UUID) (*domain.ScheduledPayment, render.Document, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, render.Document{}, notFound(err, ErrPaymentNotFound)
	}
	dev, err := s.developmentRepo.GetByID(ctx, payment.DevelopmentID)
	if err != nil {
		return nil, render.Document{}, notFound(err, ErrDevelopmentNotFound)
	}

	today := s.calendar.Today()
	doc := render.Document{
		DevelopmentName: dev.Name,
		Address:         dev.Address,
		ContactName:     dev.ContactName,
		Period:          payment.Period,
		PeriodIndex:     payment.PeriodIndex,
		DurationMonths:  dev.DurationMonths,
		DueDate:         payment.DueDate,
		Amount:          payment.Amount,
		Overdue:         payment.EffectiveStatus(today) == domain.PaymentStatusOverdue,
		PaidAt:          payment.PaidAt,
		Method:          string(payment.PaymentMethod),
		Reference:       payment.Reference,
		CollectedBy:     payment.CollectedByName,
		IssuedAt:        today,
	}
	if dev.Client != nil {
		doc.ClientName = dev.Client.Name
	}
	return payment, doc, nil
}

// RenderPaymentNotice writes the HTML notice of an unpaid payment
func (s *NoticeService) RenderPaymentNotice(ctx context.Context, paymentID uuid.UUID, w io.Writer) error {
	payment, doc, err := s.document(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != domain.PaymentStatusPending {
		return fmt.Errorf("%w: status is %s", ErrPaymentNotPending, payment.Status)
	}
	return s.renderer.PaymentNotice(w, doc)
}

// RenderReceipt writes the HTML receipt of a collected payment
func (s *NoticeService) RenderReceipt(ctx context.Context, paymentID uuid.UUID, w io.Writer) error {
	payment, doc, err := s.document(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != domain.PaymentStatusPaid {
		return ErrPaymentNotPaid
	}
	return s.renderer.Receipt(w, doc)
}

// ArchiveNotice renders the current document of a payment (receipt once paid,
// notice otherwise) and stores it under a key derived from development and
// period. Archiving again replaces the stored copy.
func (s *NoticeService) ArchiveNotice(ctx context.Context, paymentID uuid.UUID) (*domain.ArchivedDocumentDTO, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}

	payment, doc, err := s.document(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	kind := DocumentKindNotice
	switch payment.Status {
	case domain.PaymentStatusPaid:
		kind = DocumentKindReceipt
		err = s.renderer.Receipt(&buf, doc)
	case domain.PaymentStatusPending:
		err = s.renderer.PaymentNotice(&buf, doc)
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrPaymentNotPending, payment.Status)
	}
	if err != nil {
		return nil, err
	}

	key := ArchiveKey(payment.DevelopmentID, payment.Period, kind)
	size, err := s.store.Put(ctx, key, "text/html; charset=utf-8", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", kind, err)
	}

	s.logger.Info("payment document archived",
		zap.String("payment_id", payment.ID.String()),
		zap.String("kind", kind),
		zap.String("key", key),
		zap.Int64("size", size))

	return &domain.ArchivedDocumentDTO{PaymentID: payment.ID, Kind: kind, Key: key, Size: size}, nil
}

// OpenArchived returns a stored document of a payment. The caller closes it.
func (s *NoticeService) OpenArchived(ctx context.Context, paymentID uuid.UUID, kind string) (io.ReadCloser, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	if kind != DocumentKindNotice && kind != DocumentKindReceipt {
		return nil, fmt.Errorf("%w: unknown document kind %q", ErrInvalidInput, kind)
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, notFound(err, ErrPaymentNotFound)
	}

	rc, err := s.store.Get(ctx, ArchiveKey(payment.DevelopmentID, payment.Period, kind))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no archived %s for %s", ErrNotFound, kind, payment.Period)
	}
	return rc, err
}

// ArchiveKey is the storage key of a payment document, e.g. notices/<dev>/2026-03-receipt.html
func ArchiveKey(developmentID uuid.UUID, period, kind string) string {
	return fmt.Sprintf("notices/%s/%s-%s.html", developmentID, period, kind)
}

// ExportScheduleCSV writes the payment schedule of a development as CSV
func (s *NoticeService) ExportScheduleCSV(ctx context.Context, developmentID uuid.UUID, w io.Writer) error {
	if _, err := s.developmentRepo.GetByID(ctx, developmentID); err != nil {
		return notFound(err, ErrDevelopmentNotFound)
	}
	payments, err := s.paymentRepo.ListByDevelopment(ctx, developmentID)
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}
	return render.ScheduleCSV(w, mapper.ToScheduledPaymentDTOs(payments, s.calendar.Today()))
}

// ExportInvestorCSV writes the investor overview as CSV
func (s *NoticeService) ExportInvestorCSV(ctx context.Context, w io.Writer) error {
	overview, err := s.investors.Overview(ctx)
	if err != nil {
		return err
	}
	return render.InvestorCSV(w, overview)
}
