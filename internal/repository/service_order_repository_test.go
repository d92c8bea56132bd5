package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildServiceOrders(devID uuid.UUID, months int) []domain.ScheduledServiceOrder {
	orders := make([]domain.ScheduledServiceOrder, months)
	for i := 0; i < months; i++ {
		day := testutil.Date(2026, time.Month(i+1), 20)
		orders[i] = domain.ScheduledServiceOrder{
			DevelopmentID: devID,
			Period:        day.Format("2006-01"),
			PeriodIndex:   i,
			ServiceDate:   day,
			Status:        domain.ServiceOrderStatusPending,
		}
	}
	return orders
}

func TestServiceOrderRepository_ListDueSkipsInactiveDevelopments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewServiceOrderRepository(db)
	ctx := context.Background()

	active := testutil.CreateTestDevelopment(t, db, "Activo", nil)
	manual := testutil.CreateTestDevelopment(t, db, "Manual", nil)
	require.NoError(t, db.Model(manual).Update("auto_generate_orders", false).Error)
	suspended := testutil.CreateTestDevelopment(t, db, "Suspendido", nil)
	require.NoError(t, db.Model(suspended).Update("status", domain.DevelopmentStatusSuspended).Error)

	for _, dev := range []*domain.Development{active, manual, suspended} {
		inserted, err := repo.CreateIgnoreDuplicates(ctx, buildServiceOrders(dev.ID, 4))
		require.NoError(t, err)
		assert.Equal(t, int64(4), inserted)
	}

	due, err := repo.ListDue(ctx, testutil.Date(2026, time.February, 27))
	require.NoError(t, err)
	require.Len(t, due, 2)
	for _, o := range due {
		assert.Equal(t, active.ID, o.DevelopmentID)
		require.NotNil(t, o.Development)
	}

	generatedID := due[0].ID
	orderID := uuid.New()
	require.NoError(t, repo.MarkGenerated(ctx, generatedID, orderID))

	due, err = repo.ListDue(ctx, testutil.Date(2026, time.February, 27))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	generated, err := repo.GetByID(ctx, generatedID)
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceOrderStatusGenerated, generated.Status)
	require.NotNil(t, generated.OrderID)
	assert.Equal(t, orderID, *generated.OrderID)
}

func TestServiceOrderRepository_CancelPendingFrom(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewServiceOrderRepository(db)
	ctx := context.Background()
	dev := testutil.CreateTestDevelopment(t, db, "Cancelado", nil)

	_, err := repo.CreateIgnoreDuplicates(ctx, buildServiceOrders(dev.ID, 4))
	require.NoError(t, err)

	cancelled, err := repo.CancelPendingFrom(ctx, dev.ID, testutil.Date(2026, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), cancelled)

	orders, err := repo.ListByDevelopment(ctx, dev.ID)
	require.NoError(t, err)
	require.Len(t, orders, 4)
	assert.Equal(t, domain.ServiceOrderStatusPending, orders[1].Status)
	assert.Equal(t, domain.ServiceOrderStatusCancelled, orders[2].Status)
}
