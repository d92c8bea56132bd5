package repository_test

import (
	"context"
	"testing"

	"github.com/fieldops/fieldservice-api/internal/repository"
	"github.com/fieldops/fieldservice-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberSequenceRepository_GetNextNumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.GetNextNumber(ctx, "ORD", 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// each year starts over
	got, err := repo.GetNextNumber(ctx, "ORD", 2027)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	current, err := repo.GetCurrentSequence(ctx, "ORD", 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, current)
}

func TestNumberSequenceRepository_SetSequenceNeverLowers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SetSequence(ctx, "ORD", 2026, 40))
	require.NoError(t, repo.SetSequence(ctx, "ORD", 2026, 10))

	next, err := repo.GetNextNumber(ctx, "ORD", 2026)
	require.NoError(t, err)
	assert.Equal(t, 41, next)

	current, err := repo.GetCurrentSequence(ctx, "INV", 2026)
	require.NoError(t, err)
	assert.Zero(t, current)
}
