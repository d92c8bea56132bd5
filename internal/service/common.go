package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 20
	maxPageSize     = 200
)

// Calendar resolves "now" and "today" in the business timezone. Every date a
// service compares against (overdue, past schedule entries, look-ahead windows)
// comes from here.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc, now: time.Now}
}

// NewFixedCalendar returns a calendar frozen at t
func NewFixedCalendar(t time.Time) *Calendar {
	return &Calendar{loc: t.Location(), now: func() time.Time { return t }}
}

func (c *Calendar) Now() time.Time {
	return c.now().UTC()
}

// Today is the current business date as midnight UTC
func (c *Calendar) Today() time.Time {
	return financing.DateOf(c.now().In(c.loc))
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func paginated(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// parseDate parses a YYYY-MM-DD string into midnight UTC
func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, value)
	}
	return t, nil
}

func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := parseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// notFound converts gorm's not found into the given domain error
func notFound(err error, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// financingError tags errors of the financing package as invalid input
func financingError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// percent rounds a percentage to the precision of its decimal(5,2) column
func percent(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
