package financing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrLedgerCompleted = errors.New("loan is completed")
	ErrNegativePortion = errors.New("investor portion must not be negative")
)

// LedgerStatus is the lifecycle of an investor loan
type LedgerStatus string

const (
	LedgerActive    LedgerStatus = "active"
	LedgerRecovered LedgerStatus = "recovered"
	LedgerEarning   LedgerStatus = "earning"
	LedgerCompleted LedgerStatus = "completed"
)

// Collection is the investor side of one collected payment
type Collection struct {
	Portion decimal.Decimal
	Phase   Phase
}

// Ledger tracks what the investor has received against the principal.
//
// Recovered never exceeds Principal: the part of a recovery-phase portion that
// goes past the principal is booked as Earned. Profit-phase portions are always Earned.
type Ledger struct {
	Principal         decimal.Decimal
	Recovered         decimal.Decimal
	Earned            decimal.Decimal
	ProfitCollections int
	Status            LedgerStatus
}

// NewLedger opens a ledger for principal with nothing collected
func NewLedger(principal decimal.Decimal) *Ledger {
	l := &Ledger{
		Principal: principal,
		Recovered: decimal.Zero,
		Earned:    decimal.Zero,
	}
	l.refreshStatus()
	return l
}

// Apply books one collected payment and advances the status
func (l *Ledger) Apply(c Collection) error {
	if l.Status == LedgerCompleted {
		return ErrLedgerCompleted
	}
	if c.Portion.IsNegative() {
		return ErrNegativePortion
	}

	switch c.Phase {
	case PhaseRecovery:
		room := l.Remaining()
		toPrincipal := decimal.Min(c.Portion, room)
		l.Recovered = l.Recovered.Add(toPrincipal)
		l.Earned = l.Earned.Add(c.Portion.Sub(toPrincipal))
	default:
		l.Earned = l.Earned.Add(c.Portion)
		l.ProfitCollections++
	}

	l.refreshStatus()
	return nil
}

// Complete closes the ledger. A completed ledger accepts no further collections.
func (l *Ledger) Complete() {
	l.Status = LedgerCompleted
}

// Remaining is the principal not yet recovered
func (l *Ledger) Remaining() decimal.Decimal {
	remaining := l.Principal.Sub(l.Recovered)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsRecovered reports whether the whole principal has been repaid
func (l *Ledger) IsRecovered() bool {
	return l.Recovered.GreaterThanOrEqual(l.Principal)
}

// Progress is the recovered share of the principal in percent, two decimals
func (l *Ledger) Progress() decimal.Decimal {
	if !l.Principal.IsPositive() {
		return hundred
	}
	return l.Recovered.Mul(hundred).Div(l.Principal).Round(2)
}

func (l *Ledger) refreshStatus() {
	if l.Status == LedgerCompleted {
		return
	}
	switch {
	case !l.IsRecovered():
		l.Status = LedgerActive
	case l.ProfitCollections > 0:
		l.Status = LedgerEarning
	default:
		l.Status = LedgerRecovered
	}
}

// RebuildLedger replays collections from scratch. Used after a collection is
// reversed, since a reversal can move the status backwards.
func RebuildLedger(principal decimal.Decimal, collections []Collection, completed bool) (*Ledger, error) {
	l := NewLedger(principal)
	for _, c := range collections {
		if err := l.Apply(c); err != nil {
			return nil, err
		}
	}
	if completed {
		l.Complete()
	}
	return l, nil
}
