package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overviewKey = "investors:overview"

func TestInvestorService_Overview(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	dev := f.createDevelopment(t, investorRequest(nil))

	short := investorRequest(nil)
	short.Name = "Privada Encinos"
	short.DurationMonths = 2
	f.createDevelopment(t, short)

	plain := investorRequest(nil)
	plain.Name = "Sin inversionista"
	plain.HasInvestor = false
	f.createDevelopment(t, plain)

	f.collect(t, f.schedule(t, dev.ID).Payments[0].ID, "2026-01-10")

	overview, err := f.investors.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Positions, 2)
	assert.True(t, overview.TotalPrincipal.Equal(testutil.Dec("18000")))
	assert.True(t, overview.TotalRecovered.Equal(testutil.Dec("3000")))
	assert.True(t, overview.TotalRemaining.Equal(testutil.Dec("15000")))
	// 1800 of profit on the full contract, 3000 never repaid on the short one
	assert.True(t, overview.TotalProjected.Equal(testutil.Dec("-1200")))
	assert.Equal(t, 2, overview.LoansByStatus[domain.LoanStatusActive])

	byName := map[string]domain.InvestorPositionDTO{}
	for _, p := range overview.Positions {
		byName[p.DevelopmentName] = p
	}
	full := byName["Residencial Los Pinos"]
	assert.Equal(t, 1, full.PaymentsCollected)
	assert.Equal(t, 6, full.DurationMonths)
	// the contract starts on the 15th
	assert.Zero(t, full.MonthsElapsed)
	assert.True(t, full.RecoveredWithinTerm)
	assert.True(t, full.ProjectedTotal.Equal(testutil.Dec("10800")))
	assert.True(t, full.ProgressPercent.Equal(testutil.Dec("33.33")))

	// two months of 3000 never repay 9000
	partial := byName["Privada Encinos"]
	assert.False(t, partial.RecoveredWithinTerm)
	assert.True(t, partial.ProjectedTotal.Equal(testutil.Dec("6000")))
	assert.True(t, partial.ProjectedEarnings.Equal(testutil.Dec("-3000")))
}

func TestInvestorService_MonthsElapsed(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.March, 20))
	dev := f.createDevelopment(t, investorRequest(nil))

	short := investorRequest(nil)
	short.Name = "Privada Encinos"
	short.DurationMonths = 2
	f.createDevelopment(t, short)

	overview, err := f.investors.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Positions, 2)

	byName := map[string]domain.InvestorPositionDTO{}
	for _, p := range overview.Positions {
		byName[p.DevelopmentName] = p
	}
	assert.Equal(t, 3, byName["Residencial Los Pinos"].MonthsElapsed)
	assert.Equal(t, 2, byName["Privada Encinos"].MonthsElapsed)

	position, err := f.investors.GetLoan(context.Background(), dev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, position.MonthsElapsed)
	assert.Equal(t, 6, position.DurationMonths)
}

func TestInvestorService_OverviewCache(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	dev := f.createDevelopment(t, investorRequest(nil))
	assert.False(t, f.cache.has(overviewKey))

	first, err := f.investors.Overview(context.Background())
	require.NoError(t, err)
	assert.True(t, f.cache.has(overviewKey))

	// a change the service does not know about stays invisible while cached
	require.NoError(t, f.db.Model(&domain.InvestorLoan{}).
		Where("development_id = ?", dev.ID).
		Update("investor_name", "Renamed outside").Error)
	cached, err := f.investors.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Positions[0].InvestorName, cached.Positions[0].InvestorName)
	assert.True(t, first.TotalPrincipal.Equal(cached.TotalPrincipal))

	// collecting a payment invalidates the cached figures
	f.collect(t, f.schedule(t, dev.ID).Payments[0].ID, "2026-01-10")
	assert.False(t, f.cache.has(overviewKey))

	fresh, err := f.investors.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Renamed outside", fresh.Positions[0].InvestorName)
	assert.True(t, fresh.TotalRecovered.Equal(testutil.Dec("3000")))
}

func TestInvestorService_GetLoan(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))

	plain := investorRequest(nil)
	plain.HasInvestor = false
	dev := f.createDevelopment(t, plain)

	_, err := f.investors.GetLoan(context.Background(), dev.ID)
	assert.ErrorIs(t, err, service.ErrLoanNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
