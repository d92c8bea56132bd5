package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldops/fieldservice-api/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	data map[string][]byte
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mapStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type overview struct {
	Loans int    `json:"loans"`
	Total string `json:"total"`
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &mapStore{data: map[string][]byte{}}

	var got overview
	ok, err := cache.GetJSON(ctx, store, "investors:overview", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetJSON(ctx, store, "investors:overview", overview{Loans: 2, Total: "18000.00"}, time.Minute))

	ok, err = cache.GetJSON(ctx, store, "investors:overview", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, overview{Loans: 2, Total: "18000.00"}, got)
}

func TestGetJSON_CorruptEntryIsMiss(t *testing.T) {
	store := &mapStore{data: map[string][]byte{"k": []byte("{not json")}}

	var got overview
	ok, err := cache.GetJSON(context.Background(), store, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	var store cache.Store = cache.NoopStore{}

	require.NoError(t, cache.SetJSON(ctx, store, "k", overview{Loans: 1}, time.Minute))
	var got overview
	ok, err := cache.GetJSON(ctx, store, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, store.Delete(ctx, "k"))
}
