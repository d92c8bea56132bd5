package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderService_MaterializeServiceOrders(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 15))
	client := testutil.CreateTestClient(t, f.db, "Asociación Los Pinos")
	dev := f.createDevelopment(t, investorRequest(&client.ID))

	result, err := f.orders.MaterializeServiceOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, []string{"ORD-2026-0001"}, result.Orders)

	visit := f.schedule(t, dev.ID).ServiceOrders[0]
	assert.Equal(t, domain.ServiceOrderStatusGenerated, visit.Status)
	require.NotNil(t, visit.OrderID)

	order, err := f.orders.GetByID(context.Background(), *visit.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderTypeMaintenance, order.Type)
	assert.Equal(t, domain.OrderStatusScheduled, order.Status)
	assert.Equal(t, "2026-01-20", order.ScheduledDate)
	assert.Equal(t, "Monthly service Residencial Los Pinos - 2026-01", order.Title)
	assert.Equal(t, &client.ID, order.ClientID)
	assert.Equal(t, "Av. Patria 455", order.Address)

	// a second run finds nothing left to do
	result, err = f.orders.MaterializeServiceOrders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Due)
	assert.Zero(t, result.Created)
}

func TestOrderService_MaterializeLinksExistingOrder(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 15))
	dev := f.createDevelopment(t, investorRequest(nil))
	visit := f.schedule(t, dev.ID).ServiceOrders[0]

	// an order created for the visit by an interrupted run
	existing := &domain.Order{
		OrderNumber:             "ORD-2026-0042",
		Type:                    domain.OrderTypeMaintenance,
		Title:                   "Monthly service",
		Status:                  domain.OrderStatusScheduled,
		DevelopmentID:           &dev.ID,
		ScheduledServiceOrderID: &visit.ID,
	}
	require.NoError(t, f.db.Create(existing).Error)

	result, err := f.orders.MaterializeServiceOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Due)
	assert.Zero(t, result.Created)

	visit = f.schedule(t, dev.ID).ServiceOrders[0]
	assert.Equal(t, domain.ServiceOrderStatusGenerated, visit.Status)
	assert.Equal(t, &existing.ID, visit.OrderID)

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOrderService_MaterializeSkipsInactiveDevelopments(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 15))
	suspended := f.createDevelopment(t, investorRequest(nil))
	_, err := f.developments.ChangeStatus(userCtx(), suspended.ID, &domain.UpdateDevelopmentStatusRequest{Status: domain.DevelopmentStatusSuspended})
	require.NoError(t, err)

	manual := investorRequest(nil)
	manual.Name = "Privada Encinos"
	noAuto := false
	manual.AutoGenerateOrders = &noAuto
	f.createDevelopment(t, manual)

	result, err := f.orders.MaterializeServiceOrders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Due)
}

func TestOrderService_CancelledDevelopmentCancelsGeneratedOrders(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 15))
	dev := f.createDevelopment(t, investorRequest(nil))
	_, err := f.orders.MaterializeServiceOrders(context.Background())
	require.NoError(t, err)

	_, err = f.developments.ChangeStatus(userCtx(), dev.ID, &domain.UpdateDevelopmentStatusRequest{Status: domain.DevelopmentStatusCancelled})
	require.NoError(t, err)

	orders, err := f.orders.List(context.Background(), 1, 10, &repository.OrderFilters{DevelopmentID: &dev.ID}, repository.DefaultSortConfig())
	require.NoError(t, err)
	require.Equal(t, int64(1), orders.Total)
	assert.Equal(t, domain.OrderStatusCancelled, orders.Data.([]domain.OrderDTO)[0].Status)
}

func TestOrderService_CreateAndTransition(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.February, 3))
	dev := f.createDevelopment(t, investorRequest(nil))

	order, err := f.orders.Create(userCtx(), &domain.CreateOrderRequest{
		Type:          domain.OrderTypeRepair,
		Title:         "Replace gate motor",
		DevelopmentID: &dev.ID,
		ScheduledDate: "2026-02-05",
		Amount:        testutil.Dec("1850.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0001", order.OrderNumber)
	assert.True(t, service.ValidOrderNumber(order.OrderNumber))
	assert.Equal(t, domain.OrderStatusScheduled, order.Status)
	assert.Equal(t, "Av. Patria 455", order.Address)
	assert.True(t, order.Amount.Equal(testutil.Dec("1850.50")))

	second, err := f.orders.Create(userCtx(), &domain.CreateOrderRequest{Type: domain.OrderTypeInspection, Title: "Annual inspection"})
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0002", second.OrderNumber)
	assert.Equal(t, domain.OrderStatusPending, second.Status)

	technician := "Carlos Ruiz"
	order, err = f.orders.UpdateStatus(userCtx(), order.ID, &domain.UpdateOrderStatusRequest{
		Status:     domain.OrderStatusInProgress,
		AssignedTo: &technician,
	})
	require.NoError(t, err)
	assert.Equal(t, "Carlos Ruiz", order.AssignedTo)

	order, err = f.orders.UpdateStatus(userCtx(), order.ID, &domain.UpdateOrderStatusRequest{Status: domain.OrderStatusCompleted})
	require.NoError(t, err)
	assert.NotEmpty(t, order.CompletedAt)

	_, err = f.orders.UpdateStatus(userCtx(), order.ID, &domain.UpdateOrderStatusRequest{Status: domain.OrderStatusPending})
	assert.ErrorIs(t, err, service.ErrInvalidOrderTransition)
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.orders.Create(userCtx(), &domain.CreateOrderRequest{Type: "painting", Title: "Paint"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestNumberSequenceService(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.May, 1))
	ctx := context.Background()

	require.NoError(t, f.numbers.InitializeSequence(ctx, 2026, 41))
	number, err := f.numbers.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD-2026-0042", number)

	current, err := f.numbers.GetCurrentSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 42, current)

	current, err = f.numbers.GetCurrentSequence(ctx, 2025)
	require.NoError(t, err)
	assert.Zero(t, current)

	assert.Equal(t, "ORD-2026-12345", service.FormatOrderNumber("ORD", 2026, 12345))
	assert.True(t, service.ValidOrderNumber("ORD-2026-0001"))
	assert.False(t, service.ValidOrderNumber("ord-2026-0001"))
	assert.False(t, service.ValidOrderNumber("ORD-26-0001"))
}
