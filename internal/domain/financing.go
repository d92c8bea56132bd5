package domain

import (
	"time"

	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/shopspring/decimal"
)

// Terms returns the financial terms of the development. Without investor the
// investor amount and profit percent are zero and the company keeps every payment.
func (d *Development) Terms() financing.Terms {
	terms := financing.Terms{
		MonthlyPayment: d.MonthlyPayment,
		InvestorAmount: decimal.Zero,
		ProfitPercent:  decimal.Zero,
	}
	if d.HasInvestor {
		terms.InvestorAmount = d.InvestorAmount
		terms.ProfitPercent = d.InvestorProfitPercent
	}
	return terms
}

// Contract returns the schedule inputs of the development
func (d *Development) Contract() financing.Contract {
	return financing.Contract{
		StartDate:      d.ContractStartDate,
		DurationMonths: d.DurationMonths,
		PaymentDay:     d.PaymentDay,
		ServiceDay:     d.ServiceDay,
		Terms:          d.Terms(),
	}
}

// EndDate is the first day after the last contract month
func (d *Development) EndDate() time.Time {
	y, m := financing.AddMonths(d.ContractStartDate.Year(), d.ContractStartDate.Month(), d.DurationMonths)
	return financing.DayInMonth(y, m, 1)
}

// EffectiveStatus projects the stored status onto today: a pending payment whose
// due date has passed reads as overdue.
func (p *ScheduledPayment) EffectiveStatus(today time.Time) PaymentStatus {
	if p.Status == PaymentStatusPending && financing.IsOverdue(p.DueDate, today) {
		return PaymentStatusOverdue
	}
	return p.Status
}

// Phase returns the financing phase the payment belongs to
func (p *ScheduledPayment) Phase() financing.Phase {
	if p.IsRecovery {
		return financing.PhaseRecovery
	}
	return financing.PhaseProfit
}

// Collection returns the investor side of the payment for the loan ledger
func (p *ScheduledPayment) Collection() financing.Collection {
	return financing.Collection{Portion: p.InvestorPortion, Phase: p.Phase()}
}

// Ledger loads the loan's persisted figures into a ledger
func (l *InvestorLoan) Ledger() *financing.Ledger {
	return &financing.Ledger{
		Principal:         l.Principal,
		Recovered:         l.RecoveredAmount,
		Earned:            l.EarnedAmount,
		ProfitCollections: l.ProfitCollections,
		Status:            financing.LedgerStatus(l.Status),
	}
}

// ApplyLedger copies the ledger figures back onto the loan and stamps status changes
func (l *InvestorLoan) ApplyLedger(ledger *financing.Ledger, now time.Time) {
	l.RecoveredAmount = ledger.Recovered
	l.EarnedAmount = ledger.Earned
	l.ProfitCollections = ledger.ProfitCollections
	l.Status = LoanStatus(ledger.Status)

	switch {
	case ledger.IsRecovered() && l.RecoveredAt == nil:
		l.RecoveredAt = &now
	case !ledger.IsRecovered():
		l.RecoveredAt = nil
	}
	if l.Status == LoanStatusCompleted && l.CompletedAt == nil {
		l.CompletedAt = &now
	}
}
