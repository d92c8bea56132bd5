package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomeService_Summary(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	ctx := context.Background()
	dev := f.createDevelopment(t, investorRequest(nil))
	payments := f.schedule(t, dev.ID).Payments
	f.collect(t, payments[0].ID, "2026-01-10")
	f.collect(t, payments[1].ID, "2026-02-09")

	summary, err := f.income.Summary(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Count)
	assert.True(t, summary.Total.Equal(testutil.Dec("6000")))
	assert.True(t, summary.ByCategory["development_fee"].Equal(testutil.Dec("6000")))

	from := testutil.Date(2026, time.February, 1)
	to := testutil.Date(2026, time.February, 28)
	summary, err = f.income.Summary(ctx, &repository.IncomeFilters{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Count)
	assert.Equal(t, "2026-02-01", summary.From)
	assert.Equal(t, "2026-02-28", summary.To)

	list, err := f.income.List(ctx, 1, 10, &repository.IncomeFilters{DevelopmentID: &dev.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
}

func TestIncomeService_RejectsInvertedRange(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))

	from := testutil.Date(2026, time.March, 1)
	to := testutil.Date(2026, time.February, 1)
	_, err := f.income.Summary(context.Background(), &repository.IncomeFilters{From: &from, To: &to})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.income.List(context.Background(), 1, 10, &repository.IncomeFilters{From: &from, To: &to})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
