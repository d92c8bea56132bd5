// Package financing holds the installment math for developments financed by an
// investor: how many months it takes to recover the principal, how every monthly
// payment is split between investor and company, the monthly schedule of payment
// and service dates, and the loan ledger fed by collected payments.
//
// Everything in this package is pure. Callers inject "today" and persist results.
package financing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidMonthlyPayment = errors.New("monthly payment must be greater than zero")
	ErrInvalidInvestorAmount = errors.New("investor amount must not be negative")
	ErrInvalidProfitPercent  = errors.New("profit percent must be between 0 and 100")
	ErrInvalidDuration       = errors.New("duration must be at least one month")
	ErrInvalidDayOfMonth     = errors.New("day of month must be between 1 and 31")
	ErrInvalidMonthIndex     = errors.New("month index must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Phase tells whether a payment still repays the principal or already pays profit
type Phase string

const (
	PhaseRecovery Phase = "recovery"
	PhaseProfit   Phase = "profit"
)

// Terms are the financial terms of a development contract. A development without
// investor has a zero InvestorAmount and ProfitPercent, so the company keeps the
// full monthly payment.
type Terms struct {
	MonthlyPayment decimal.Decimal
	InvestorAmount decimal.Decimal
	ProfitPercent  decimal.Decimal
}

// Validate checks the terms without computing anything
func (t Terms) Validate() error {
	if !t.MonthlyPayment.IsPositive() {
		return ErrInvalidMonthlyPayment
	}
	if t.InvestorAmount.IsNegative() {
		return ErrInvalidInvestorAmount
	}
	if t.ProfitPercent.IsNegative() || t.ProfitPercent.GreaterThan(hundred) {
		return ErrInvalidProfitPercent
	}
	return nil
}

// RecoveryMonths returns ceil(investorAmount / monthlyPayment).
// A non-positive monthly payment can never recover anything and is rejected.
func RecoveryMonths(investorAmount, monthlyPayment decimal.Decimal) (int, error) {
	if !monthlyPayment.IsPositive() {
		return 0, ErrInvalidMonthlyPayment
	}
	if investorAmount.IsNegative() {
		return 0, ErrInvalidInvestorAmount
	}

	q, r := investorAmount.QuoRem(monthlyPayment, 0)
	months := q.IntPart()
	if r.IsPositive() {
		months++
	}
	return int(months), nil
}

// PhaseFor returns the phase of the 0-based month index. The phase depends only
// on the position in the schedule, never on what has been collected.
func PhaseFor(monthIndex, recoveryMonths int) Phase {
	if monthIndex < recoveryMonths {
		return PhaseRecovery
	}
	return PhaseProfit
}

// Split is the division of one monthly payment between investor and company.
// Investor + Company always equals the monthly payment.
type Split struct {
	Phase    Phase
	Investor decimal.Decimal
	Company  decimal.Decimal
}

// SplitPayment splits the payment of month monthIndex (0-based). During recovery the
// investor receives the whole payment; afterwards profitPercent of it, rounded to cents.
func SplitPayment(monthIndex int, monthlyPayment decimal.Decimal, recoveryMonths int, profitPercent decimal.Decimal) Split {
	phase := PhaseFor(monthIndex, recoveryMonths)

	investor := monthlyPayment
	if phase == PhaseProfit {
		investor = monthlyPayment.Mul(profitPercent).Div(hundred).Round(2)
	}

	return Split{
		Phase:    phase,
		Investor: investor,
		Company:  monthlyPayment.Sub(investor),
	}
}

// Planner computes splits and plans for one set of terms
type Planner struct {
	terms          Terms
	recoveryMonths int
}

// NewPlanner validates the terms and precomputes the recovery period
func NewPlanner(terms Terms) (*Planner, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	months, err := RecoveryMonths(terms.InvestorAmount, terms.MonthlyPayment)
	if err != nil {
		return nil, err
	}
	return &Planner{terms: terms, recoveryMonths: months}, nil
}

func (p *Planner) Terms() Terms {
	return p.terms
}

func (p *Planner) RecoveryMonths() int {
	return p.recoveryMonths
}

// Split returns the split of month monthIndex (0-based)
func (p *Planner) Split(monthIndex int) (Split, error) {
	if monthIndex < 0 {
		return Split{}, ErrInvalidMonthIndex
	}
	return SplitPayment(monthIndex, p.terms.MonthlyPayment, p.recoveryMonths, p.terms.ProfitPercent), nil
}

// PlanMonth is one row of a recovery plan
type PlanMonth struct {
	Index              int
	Phase              Phase
	Investor           decimal.Decimal
	Company            decimal.Decimal
	CumulativeInvestor decimal.Decimal
	// RemainingPrincipal is what is still owed to the investor after this month
	RemainingPrincipal decimal.Decimal
}

// Plan is the projected outcome of a contract for investor and company
type Plan struct {
	Terms          Terms
	DurationMonths int
	RecoveryMonths int
	// RecoveredWithinTerm is false when the contract ends before the principal is repaid
	RecoveredWithinTerm bool
	Months              []PlanMonth
	TotalContract       decimal.Decimal
	TotalInvestor       decimal.Decimal
	TotalCompany        decimal.Decimal
	// InvestorProfit is TotalInvestor minus the principal; negative when never recovered
	InvestorProfit decimal.Decimal
}

// Plan projects the whole contract over durationMonths
func (p *Planner) Plan(durationMonths int) (*Plan, error) {
	if durationMonths < 1 {
		return nil, ErrInvalidDuration
	}

	plan := &Plan{
		Terms:               p.terms,
		DurationMonths:      durationMonths,
		RecoveryMonths:      p.recoveryMonths,
		RecoveredWithinTerm: p.recoveryMonths <= durationMonths,
		Months:              make([]PlanMonth, 0, durationMonths),
		TotalContract:       decimal.Zero,
		TotalInvestor:       decimal.Zero,
		TotalCompany:        decimal.Zero,
	}

	for i := 0; i < durationMonths; i++ {
		split := SplitPayment(i, p.terms.MonthlyPayment, p.recoveryMonths, p.terms.ProfitPercent)

		plan.TotalContract = plan.TotalContract.Add(p.terms.MonthlyPayment)
		plan.TotalInvestor = plan.TotalInvestor.Add(split.Investor)
		plan.TotalCompany = plan.TotalCompany.Add(split.Company)

		remaining := p.terms.InvestorAmount.Sub(plan.TotalInvestor)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		plan.Months = append(plan.Months, PlanMonth{
			Index:              i,
			Phase:              split.Phase,
			Investor:           split.Investor,
			Company:            split.Company,
			CumulativeInvestor: plan.TotalInvestor,
			RemainingPrincipal: remaining,
		})
	}

	plan.InvestorProfit = plan.TotalInvestor.Sub(p.terms.InvestorAmount)
	return plan, nil
}
