package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fieldops/fieldservice-api/internal/domain"
)

var scheduleHeader = []string{
	"period", "period_index", "due_date", "amount", "investor_portion",
	"company_portion", "phase", "status", "paid_at", "payment_method", "reference",
}

// ScheduleCSV writes one row per scheduled payment. Status is the effective
// status, so unpaid payments past due export as overdue.
func ScheduleCSV(w io.Writer, payments []domain.ScheduledPaymentDTO) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scheduleHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range payments {
		phase := "profit"
		if p.IsRecovery {
			phase = "recovery"
		}
		record := []string{
			p.Period,
			strconv.Itoa(p.PeriodIndex + 1),
			p.DueDate,
			p.Amount.StringFixed(2),
			p.InvestorPortion.StringFixed(2),
			p.CompanyPortion.StringFixed(2),
			phase,
			string(p.Status),
			p.PaidAt,
			string(p.PaymentMethod),
			p.Reference,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", p.Period, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var investorHeader = []string{
	"development", "investor", "status", "principal", "profit_percent", "monthly_payment",
	"recovery_months", "duration_months", "months_elapsed", "payments_collected", "recovered", "earned",
	"remaining", "progress_percent", "projected_earnings",
}

// InvestorCSV writes one row per loan followed by a totals row
func InvestorCSV(w io.Writer, overview *domain.InvestorOverviewDTO) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(investorHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, p := range overview.Positions {
		record := []string{
			p.DevelopmentName,
			p.InvestorName,
			string(p.Status),
			p.Principal.StringFixed(2),
			p.ProfitPercent.StringFixed(2),
			p.MonthlyPayment.StringFixed(2),
			strconv.Itoa(p.RecoveryMonths),
			strconv.Itoa(p.DurationMonths),
			strconv.Itoa(p.MonthsElapsed),
			strconv.Itoa(p.PaymentsCollected),
			p.RecoveredAmount.StringFixed(2),
			p.EarnedAmount.StringFixed(2),
			p.RemainingPrincipal.StringFixed(2),
			p.ProgressPercent.StringFixed(2),
			p.ProjectedEarnings.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	totals := make([]string, len(investorHeader))
	totals[0] = "TOTAL"
	totals[3] = overview.TotalPrincipal.StringFixed(2)
	totals[10] = overview.TotalRecovered.StringFixed(2)
	totals[11] = overview.TotalEarned.StringFixed(2)
	totals[12] = overview.TotalRemaining.StringFixed(2)
	totals[14] = overview.TotalProjected.StringFixed(2)
	if err := cw.Write(totals); err != nil {
		return fmt.Errorf("failed to write csv totals: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
