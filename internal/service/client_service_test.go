package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/datawarehouse"
	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/service"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientService_CRUD(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	ctx := context.Background()

	created, err := f.clients.Create(ctx, &domain.CreateClientRequest{
		Name:  "Condominio Altamira",
		Email: "admin@altamira.mx",
		City:  "Zapopan",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	inactive := false
	updated, err := f.clients.Update(ctx, created.ID, &domain.UpdateClientRequest{
		CreateClientRequest: domain.CreateClientRequest{Name: "Condominio Altamira II", City: "Zapopan"},
		IsActive:            &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Condominio Altamira II", updated.Name)
	assert.False(t, updated.IsActive)

	list, err := f.clients.List(ctx, 1, 10, &repository.ClientFilters{Search: "altamira"}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	require.NoError(t, f.clients.Delete(ctx, created.ID))
	_, err = f.clients.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, service.ErrClientNotFound)
}

func TestClientService_DeleteWithDevelopments(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	client := testutil.CreateTestClient(t, f.db, "Asociación Los Pinos")
	f.createDevelopment(t, investorRequest(&client.ID))

	err := f.clients.Delete(context.Background(), client.ID)
	assert.ErrorIs(t, err, service.ErrClientHasDevelopments)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestClientService_SyncFromERP(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))
	ctx := context.Background()

	existingID := "C-0001"
	require.NoError(t, f.db.Create(&domain.Client{
		Name:       "Old name",
		ExternalID: &existingID,
		Notes:      "keeps its notes",
		IsActive:   true,
	}).Error)

	f.erp.customers = []datawarehouse.Customer{
		{ExternalID: "C-0001", Name: "Residencial Del Valle", Email: "pagos@delvalle.mx", City: "Guadalajara"},
		{ExternalID: "C-0002", Name: "Privada San Ángel", TaxID: "PSA010101AB1"},
		{ExternalID: "", Name: "No number"},
	}

	result, err := f.clients.SyncFromERP(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)

	var synced domain.Client
	require.NoError(t, f.db.Where("external_id = ?", "C-0001").First(&synced).Error)
	assert.Equal(t, "Residencial Del Valle", synced.Name)
	assert.Equal(t, "pagos@delvalle.mx", synced.Email)
	assert.Equal(t, "keeps its notes", synced.Notes)

	// running again only refreshes
	result, err = f.clients.SyncFromERP(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 2, result.Updated)
}

func TestClientService_SyncWithoutWarehouse(t *testing.T) {
	f := newFixture(t, testutil.Date(2026, time.January, 1))

	f.erp.enabled = false
	_, err := f.clients.SyncFromERP(context.Background())
	assert.ErrorIs(t, err, service.ErrDataWarehouseDisabled)

	clients := service.NewClientService(repository.NewClientRepository(f.db), nil, zap.NewNop())
	_, err = clients.SyncFromERP(context.Background())
	assert.ErrorIs(t, err, service.ErrDataWarehouseDisabled)
}
