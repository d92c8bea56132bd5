package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/financing"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevelopmentService_CreateWithInvestor(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	client := testutil.CreateTestClient(t, f.db, "Asociación Los Pinos")

	dev := f.createDevelopment(t, investorRequest(&client.ID))

	assert.Equal(t, domain.DevelopmentStatusActive, dev.Status)
	assert.Equal(t, "2026-06-30", dev.ContractEndDate)
	assert.True(t, dev.AutoGenerateOrders)
	require.NotNil(t, dev.Loan)
	assert.Equal(t, 3, dev.Loan.RecoveryMonths)
	assert.Equal(t, domain.LoanStatusActive, dev.Loan.Status)
	assert.True(t, dev.Loan.Principal.Equal(testutil.Dec("9000")))
	require.NotNil(t, dev.Schedule)
	assert.Equal(t, 6, dev.Schedule.TotalPayments)
	assert.Equal(t, "2026-01-10", dev.Schedule.NextDueDate)
	assert.True(t, dev.Schedule.OutstandingAmount.Equal(testutil.Dec("18000")))

	schedule := f.schedule(t, dev.ID)
	require.Len(t, schedule.Payments, 6)
	require.Len(t, schedule.ServiceOrders, 6)
	for i, p := range schedule.Payments {
		assert.True(t, p.InvestorPortion.Add(p.CompanyPortion).Equal(p.Amount), p.Period)
		assert.Equal(t, i < 3, p.IsRecovery, p.Period)
	}
	assert.True(t, schedule.Payments[3].InvestorPortion.Equal(testutil.Dec("600")))
	assert.True(t, schedule.Payments[3].CompanyPortion.Equal(testutil.Dec("2400")))
	assert.Equal(t, "2026-01-20", schedule.ServiceOrders[0].ServiceDate)
}

func TestDevelopmentService_CreateWithoutInvestor(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))

	req := investorRequest(nil)
	req.HasInvestor = false
	dev := f.createDevelopment(t, req)

	assert.Nil(t, dev.Loan)
	assert.True(t, dev.InvestorAmount.IsZero())

	schedule := f.schedule(t, dev.ID)
	for _, p := range schedule.Payments {
		assert.False(t, p.IsRecovery)
		assert.True(t, p.InvestorPortion.IsZero())
		assert.True(t, p.CompanyPortion.Equal(testutil.Dec("3000")))
	}
}

func TestDevelopmentService_CreateValidation(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))

	t.Run("investor without amount", func(t *testing.T) {
		req := investorRequest(nil)
		req.InvestorAmount = testutil.Dec("0")
		_, err := f.developments.Create(userCtx(), req)
		assert.ErrorIs(t, err, service.ErrInvestorTermsRequired)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("zero monthly payment", func(t *testing.T) {
		req := investorRequest(nil)
		req.MonthlyPayment = testutil.Dec("0")
		_, err := f.developments.Create(userCtx(), req)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.ErrorIs(t, err, financing.ErrInvalidMonthlyPayment)
	})

	t.Run("profit percent above 100", func(t *testing.T) {
		req := investorRequest(nil)
		req.InvestorProfitPercent = testutil.Dec("120")
		_, err := f.developments.Create(userCtx(), req)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("malformed start date", func(t *testing.T) {
		req := investorRequest(nil)
		req.ContractStartDate = "15/01/2026"
		_, err := f.developments.Create(userCtx(), req)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown client", func(t *testing.T) {
		id := testutil.CreateTestClient(t, f.db, "Temporal").ID
		require.NoError(t, f.db.Delete(&domain.Client{}, "id = ?", id).Error)
		_, err := f.developments.Create(userCtx(), investorRequest(&id))
		assert.ErrorIs(t, err, service.ErrClientNotFound)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	var count int64
	require.NoError(t, f.db.Model(&domain.Development{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDevelopmentService_PastPeriodsReadOverdue(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.March, 15))

	dev := f.createDevelopment(t, investorRequest(nil))

	assert.Equal(t, 3, dev.Schedule.Overdue)
	assert.Equal(t, 3, dev.Schedule.Pending)
	assert.True(t, dev.Schedule.OverdueAmount.Equal(testutil.Dec("9000")))
	assert.Equal(t, "2026-04-10", dev.Schedule.NextDueDate)

	schedule := f.schedule(t, dev.ID)
	assert.Equal(t, domain.PaymentStatusOverdue, schedule.Payments[0].Status)
	assert.True(t, schedule.Payments[0].IsOverdue)
	assert.Equal(t, domain.PaymentStatusPending, schedule.Payments[3].Status)

	assert.Equal(t, domain.ServiceOrderStatusSkipped, schedule.ServiceOrders[0].Status)
	assert.Equal(t, domain.ServiceOrderStatusSkipped, schedule.ServiceOrders[1].Status)
	assert.Equal(t, domain.ServiceOrderStatusPending, schedule.ServiceOrders[2].Status)
}

func TestDevelopmentService_GenerateIsIdempotent(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	dev := f.createDevelopment(t, investorRequest(nil))

	result, err := f.schedules.Generate(context.Background(), dev.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Periods)
	assert.Zero(t, result.PaymentsCreated)
	assert.Zero(t, result.ServiceOrdersCreated)

	// a lost row is restored without touching the others
	require.NoError(t, f.db.Where("development_id = ? AND period = ?", dev.ID, "2026-04").
		Delete(&domain.ScheduledPayment{}).Error)
	result, err = f.schedules.Generate(context.Background(), dev.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.PaymentsCreated)
	assert.Len(t, f.schedule(t, dev.ID).Payments, 6)

	healed, err := f.schedules.TopUpActive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, healed)
}

func TestDevelopmentService_UpdateRegeneratesFuturePayments(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	dev := f.createDevelopment(t, investorRequest(nil))

	first := f.schedule(t, dev.ID).Payments[0]
	f.collect(t, first.ID, "2026-01-08")

	updated, err := f.developments.Update(userCtx(), dev.ID, &domain.UpdateDevelopmentRequest{
		Name:           dev.Name,
		Address:        dev.Address,
		DurationMonths: 4,
		MonthlyPayment: testutil.Dec("4000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.DurationMonths)
	assert.Equal(t, "2026-04-30", updated.ContractEndDate)
	require.NotNil(t, updated.Loan)
	assert.Equal(t, 3, updated.Loan.RecoveryMonths)
	assert.True(t, updated.Loan.MonthlyPayment.Equal(testutil.Dec("4000")))

	schedule := f.schedule(t, dev.ID)
	require.Len(t, schedule.Payments, 4)
	require.Len(t, schedule.ServiceOrders, 4)
	assert.Equal(t, domain.PaymentStatusPaid, schedule.Payments[0].Status)
	assert.True(t, schedule.Payments[0].Amount.Equal(testutil.Dec("3000")))
	for _, p := range schedule.Payments[1:] {
		assert.True(t, p.Amount.Equal(testutil.Dec("4000")), p.Period)
		assert.True(t, p.InvestorPortion.Add(p.CompanyPortion).Equal(p.Amount), p.Period)
	}
}

func TestDevelopmentService_UpdateKeepsCollectedPeriods(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.May, 1))
	dev := f.createDevelopment(t, investorRequest(nil))

	for i, p := range f.schedule(t, dev.ID).Payments[:4] {
		f.collect(t, p.ID, testutil.Date(2026, time.Month(i+1), 10).Format("2006-01-02"))
	}

	shorten := func(months int) error {
		_, err := f.developments.Update(userCtx(), dev.ID, &domain.UpdateDevelopmentRequest{
			Name:           dev.Name,
			Address:        dev.Address,
			DurationMonths: months,
			MonthlyPayment: testutil.Dec("3000"),
		})
		return err
	}

	err := shorten(2)
	assert.ErrorIs(t, err, service.ErrDurationBelowCollected)
	assert.ErrorIs(t, err, service.ErrConflict)

	got, err := f.developments.GetByID(context.Background(), dev.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.DurationMonths)
	assert.Len(t, f.schedule(t, dev.ID).Payments, 6)

	// the last collected period may become the last month of the contract
	require.NoError(t, shorten(4))
	schedule := f.schedule(t, dev.ID)
	require.Len(t, schedule.Payments, 4)
	require.Len(t, schedule.ServiceOrders, 4)
	for _, p := range schedule.Payments {
		assert.Equal(t, domain.PaymentStatusPaid, p.Status, p.Period)
	}
}

func TestDevelopmentService_UpdateKeepsOrderedPeriods(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.March, 15))
	dev := f.createDevelopment(t, investorRequest(nil))

	// the March visit is the first one inside the look-ahead window
	result, err := f.orders.MaterializeServiceOrders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	_, err = f.developments.Update(userCtx(), dev.ID, &domain.UpdateDevelopmentRequest{
		Name:           dev.Name,
		DurationMonths: 2,
		MonthlyPayment: testutil.Dec("3000"),
	})
	assert.ErrorIs(t, err, service.ErrDurationBelowCollected)
	assert.Len(t, f.schedule(t, dev.ID).ServiceOrders, 6)
}

func TestDevelopmentService_ProfitPercentIsRoundedToColumnPrecision(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	req := investorRequest(nil)
	req.InvestorProfitPercent = testutil.Dec("33.333")
	dev := f.createDevelopment(t, req)

	assert.True(t, dev.InvestorProfitPercent.Equal(testutil.Dec("33.33")), dev.InvestorProfitPercent.String())
	require.NotNil(t, dev.Loan)
	assert.True(t, dev.Loan.ProfitPercent.Equal(testutil.Dec("33.33")))

	profit := f.schedule(t, dev.ID).Payments[3]
	assert.False(t, profit.IsRecovery)
	assert.True(t, profit.InvestorPortion.Equal(testutil.Dec("999.90")), profit.InvestorPortion.String())

	// an update with the same percent at a finer precision leaves the schedule alone
	sameish := testutil.Dec("33.334")
	updated, err := f.developments.Update(userCtx(), dev.ID, &domain.UpdateDevelopmentRequest{
		Name:           dev.Name,
		DurationMonths: 6,
		MonthlyPayment: testutil.Dec("3000"),
		ProfitPercent:  &sameish,
	})
	require.NoError(t, err)
	assert.True(t, updated.InvestorProfitPercent.Equal(testutil.Dec("33.33")))
	for _, p := range f.schedule(t, dev.ID).Payments[3:] {
		assert.True(t, p.InvestorPortion.Equal(testutil.Dec("999.90")), p.Period)
	}
}

func TestDevelopmentService_ChangeStatus(t *testing.T) {
	t.Run("suspend and reactivate", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2026, time.January, 1))
		dev := f.createDevelopment(t, investorRequest(nil))

		suspended, err := f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{Status: domain.DevelopmentStatusSuspended})
		require.NoError(t, err)
		assert.Equal(t, domain.DevelopmentStatusSuspended, suspended.Status)
		assert.Equal(t, 6, suspended.Schedule.Pending)

		active, err := f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{Status: domain.DevelopmentStatusActive})
		require.NoError(t, err)
		assert.Equal(t, domain.DevelopmentStatusActive, active.Status)
		assert.Equal(t, 6, active.Schedule.TotalPayments)
	})

	t.Run("cancel closes the schedule", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2026, time.January, 1))
		dev := f.createDevelopment(t, investorRequest(nil))

		cancelled, err := f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{
			Status: domain.DevelopmentStatusCancelled,
			Reason: "contract terminated",
		})
		require.NoError(t, err)
		assert.Equal(t, 6, cancelled.Schedule.Cancelled)
		assert.Equal(t, domain.LoanStatusActive, cancelled.Loan.Status)

		for _, visit := range f.schedule(t, dev.ID).ServiceOrders {
			assert.Equal(t, domain.ServiceOrderStatusCancelled, visit.Status)
		}

		_, err = f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{Status: domain.DevelopmentStatusActive})
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
		assert.ErrorIs(t, err, service.ErrConflict)

		_, err = f.developments.Update(userCtx(), dev.ID, &domain.UpdateDevelopmentRequest{
			Name: dev.Name, DurationMonths: 6, MonthlyPayment: testutil.Dec("3000"),
		})
		assert.ErrorIs(t, err, service.ErrDevelopmentClosed)
	})

	t.Run("complete closes the loan", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2026, time.January, 1))
		dev := f.createDevelopment(t, investorRequest(nil))

		completed, err := f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{Status: domain.DevelopmentStatusCompleted})
		require.NoError(t, err)
		require.NotNil(t, completed.Loan)
		assert.Equal(t, domain.LoanStatusCompleted, completed.Loan.Status)
		assert.NotEmpty(t, completed.Loan.CompletedAt)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t, testutil.Date(2026, time.January, 1))
		dev := f.createDevelopment(t, investorRequest(nil))

		_, err := f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{Status: "archived"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestDevelopmentService_List(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	f.createDevelopment(t, investorRequest(nil))

	plain := investorRequest(nil)
	plain.Name = "Privada Encinos"
	plain.HasInvestor = false
	f.createDevelopment(t, plain)

	hasInvestor := true
	result, err := f.developments.List(context.Background(), 1, 10,
		&repository.DevelopmentFilters{HasInvestor: &hasInvestor}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = f.developments.List(context.Background(), 1, 10,
		&repository.DevelopmentFilters{Search: "encinos"}, repository.DefaultSortConfig())
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Total)
	devs := result.Data.([]domain.DevelopmentDTO)
	assert.Equal(t, "Privada Encinos", devs[0].Name)
}

func TestDevelopmentService_PreviewPlan(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))

	plan, err := f.developments.PreviewPlan(&domain.RecoveryPlanRequest{
		MonthlyPayment: testutil.Dec("3000"),
		InvestorAmount: testutil.Dec("9000"),
		ProfitPercent:  testutil.Dec("20"),
		DurationMonths: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.RecoveryMonths)
	assert.True(t, plan.RecoveredWithinTerm)
	assert.True(t, plan.InvestorProfit.Equal(testutil.Dec("1800")))
	assert.Len(t, plan.Months, 6)

	_, err = f.developments.PreviewPlan(&domain.RecoveryPlanRequest{
		MonthlyPayment: testutil.Dec("-1"),
		InvestorAmount: testutil.Dec("9000"),
		DurationMonths: 6,
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
