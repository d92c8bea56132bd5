package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/domain"
	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLeadRepository_CommentsAndSoftDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewLeadRepository(db)
	ctx := context.Background()

	lead := &domain.Lead{Name: "Condominio Real", ContactName: "Laura", Status: domain.LeadStatusNew}
	require.NoError(t, repo.Create(ctx, lead))

	require.NoError(t, repo.AddComment(ctx, &domain.LeadComment{LeadID: lead.ID, Body: "first call"}))
	require.NoError(t, repo.AddComment(ctx, &domain.LeadComment{
		LeadID:     lead.ID,
		Body:       "interested",
		StatusFrom: domain.LeadStatusNew,
		StatusTo:   domain.LeadStatusContacted,
	}))

	found, err := repo.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, found.Comments, 2)

	require.NoError(t, repo.Delete(ctx, lead.ID))

	_, err = repo.GetByID(ctx, lead.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	unscoped, err := repo.GetByIDUnscoped(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, unscoped.DeletedAt.Valid)
}

func TestLeadRepository_ListDueReminders(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewLeadRepository(db)
	ctx := context.Background()

	past := testutil.Date(2026, time.March, 1)
	future := testutil.Date(2026, time.April, 1)
	leads := []*domain.Lead{
		{Name: "Due", Status: domain.LeadStatusContacted, ReminderDate: &past},
		{Name: "Later", Status: domain.LeadStatusContacted, ReminderDate: &future},
		{Name: "Closed", Status: domain.LeadStatusRejected, ReminderDate: &past},
		{Name: "NoReminder", Status: domain.LeadStatusNew},
	}
	for _, l := range leads {
		require.NoError(t, repo.Create(ctx, l))
	}

	due, err := repo.ListDueReminders(ctx, testutil.Date(2026, time.March, 10))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Due", due[0].Name)

	status := domain.LeadStatusContacted
	list, total, err := repo.List(ctx, 1, 10, &repository.LeadFilters{Status: &status}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)
}
