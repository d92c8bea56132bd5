package financing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Contract describes what a schedule is generated from
type Contract struct {
	StartDate      time.Time
	DurationMonths int
	PaymentDay     int
	ServiceDay     int
	Terms          Terms
}

// ScheduleEntry is one contract month: its payment and its service visit
type ScheduleEntry struct {
	Index       int
	Period      string
	DueDate     time.Time
	ServiceDate time.Time
	Amount      decimal.Decimal
	Investor    decimal.Decimal
	Company     decimal.Decimal
	Phase       Phase
	// PaymentPast and ServicePast are set when the date lies before today
	PaymentPast bool
	ServicePast bool
}

// IsRecovery reports whether the entry belongs to the recovery phase
func (e ScheduleEntry) IsRecovery() bool {
	return e.Phase == PhaseRecovery
}

// Validate checks the contract terms and calendar anchors
func (c Contract) Validate() error {
	if c.DurationMonths < 1 {
		return ErrInvalidDuration
	}
	if c.PaymentDay < 1 || c.PaymentDay > 31 || c.ServiceDay < 1 || c.ServiceDay > 31 {
		return ErrInvalidDayOfMonth
	}
	return c.Terms.Validate()
}

// GenerateSchedule expands the contract into one entry per month starting with the
// month of StartDate. Days past the end of a month are clamped to its last day.
func GenerateSchedule(c Contract, today time.Time) ([]ScheduleEntry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	planner, err := NewPlanner(c.Terms)
	if err != nil {
		return nil, err
	}

	start := DateOf(c.StartDate)
	todayDate := DateOf(today)
	entries := make([]ScheduleEntry, 0, c.DurationMonths)

	for i := 0; i < c.DurationMonths; i++ {
		year, month := AddMonths(start.Year(), start.Month(), i)
		due := DayInMonth(year, month, c.PaymentDay)
		service := DayInMonth(year, month, c.ServiceDay)
		split := SplitPayment(i, c.Terms.MonthlyPayment, planner.RecoveryMonths(), c.Terms.ProfitPercent)

		entries = append(entries, ScheduleEntry{
			Index:       i,
			Period:      PeriodKey(year, month),
			DueDate:     due,
			ServiceDate: service,
			Amount:      c.Terms.MonthlyPayment,
			Investor:    split.Investor,
			Company:     split.Company,
			Phase:       split.Phase,
			PaymentPast: due.Before(todayDate),
			ServicePast: service.Before(todayDate),
		})
	}

	return entries, nil
}

// DateOf returns the calendar date of t (in t's own location) as UTC midnight
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves (year, month) forward by n months
func AddMonths(year int, month time.Month, n int) (int, time.Month) {
	total := int(month) - 1 + n
	year += total / 12
	total %= 12
	if total < 0 {
		total += 12
		year--
	}
	return year, time.Month(total + 1)
}

// DayInMonth returns day of (year, month) at UTC midnight, clamped to the month's last day
func DayInMonth(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// PeriodKey formats a contract month as YYYY-MM
func PeriodKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// ParsePeriod parses a YYYY-MM period key
func ParsePeriod(period string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid period %q: %w", period, err)
	}
	return t.Year(), t.Month(), nil
}

// IsOverdue reports whether a pending payment due on dueDate is overdue on today.
// Overdue is derived on read and never stored.
func IsOverdue(dueDate, today time.Time) bool {
	return DateOf(dueDate).Before(DateOf(today))
}

// MonthsElapsed counts the contract months that have started by today, the start
// month included, capped at the contract duration
func MonthsElapsed(start, today time.Time, durationMonths int) int {
	start, today = DateOf(start), DateOf(today)
	if today.Before(start) || durationMonths <= 0 {
		return 0
	}
	months := (today.Year()-start.Year())*12 + int(today.Month()) - int(start.Month()) + 1
	return min(months, durationMonths)
}
