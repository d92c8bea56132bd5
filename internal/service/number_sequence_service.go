package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var orderNumberPattern = regexp.MustCompile(`^[A-Z]{2,10}-\d{4}-\d{4,}$`)

// NumberSequenceService hands out human readable order numbers.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: ORD-2026-0001, ORD-2026-0142
//
// The counter restarts at 1 every year and is incremented under a row lock, so two
// concurrent orders never share a number.
type NumberSequenceService struct {
	repo     *repository.NumberSequenceRepository
	prefix   string
	calendar *Calendar
	logger   *zap.Logger
}

func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	prefix string,
	calendar *Calendar,
	logger *zap.Logger,
) *NumberSequenceService {
	if prefix == "" {
		prefix = "ORD"
	}
	return &NumberSequenceService{
		repo:     repo,
		prefix:   prefix,
		calendar: calendar,
		logger:   logger,
	}
}

// GenerateOrderNumber returns the next order number of the current year
func (s *NumberSequenceService) GenerateOrderNumber(ctx context.Context) (string, error) {
	return s.generate(ctx, s.repo)
}

// GenerateOrderNumberTx is GenerateOrderNumber inside an open transaction. The
// number is given back if the transaction rolls back.
func (s *NumberSequenceService) GenerateOrderNumberTx(ctx context.Context, tx *gorm.DB) (string, error) {
	return s.generate(ctx, s.repo.WithTx(tx))
}

func (s *NumberSequenceService) generate(ctx context.Context, repo *repository.NumberSequenceRepository) (string, error) {
	year := s.calendar.Today().Year()

	next, err := repo.GetNextNumber(ctx, s.prefix, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", s.prefix),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}

	number := FormatOrderNumber(s.prefix, year, next)
	s.logger.Debug("generated order number", zap.String("number", number))
	return number, nil
}

// FormatOrderNumber zero-pads the sequence to four digits
func FormatOrderNumber(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, sequence)
}

// ValidOrderNumber reports whether number has the PREFIX-YYYY-NNNN shape
func ValidOrderNumber(number string) bool {
	return orderNumberPattern.MatchString(number)
}

// GetCurrentSequence returns the last number handed out for a year, 0 when none
func (s *NumberSequenceService) GetCurrentSequence(ctx context.Context, year int) (int, error) {
	return s.repo.GetCurrentSequence(ctx, s.prefix, year)
}

// InitializeSequence moves the counter of a year forward to value, the last
// number already in use. It is used when importing orders numbered elsewhere.
func (s *NumberSequenceService) InitializeSequence(ctx context.Context, year, value int) error {
	return s.repo.SetSequence(ctx, s.prefix, year, value)
}

// ListSequences returns every counter
func (s *NumberSequenceService) ListSequences(ctx context.Context) ([]domain.NumberSequence, error) {
	return s.repo.ListSequences(ctx)
}
