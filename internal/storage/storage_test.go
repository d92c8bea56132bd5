package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/fieldops/fieldservice-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	size, err := store.Put(ctx, "notices/dev-1/2026-03.html", "text/html", strings.NewReader("<p>first</p>"))
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)

	// same key replaces the document
	_, err = store.Put(ctx, "notices/dev-1/2026-03.html", "text/html", strings.NewReader("<p>second</p>"))
	require.NoError(t, err)

	rc, err := store.Get(ctx, "notices/dev-1/2026-03.html")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "<p>second</p>", string(body))

	require.NoError(t, store.Delete(ctx, "notices/dev-1/2026-03.html"))
	require.NoError(t, store.Delete(ctx, "notices/dev-1/2026-03.html"))

	_, err = store.Get(ctx, "notices/dev-1/2026-03.html")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCleanKey(t *testing.T) {
	key, err := storage.CleanKey("/notices//a/b.html")
	require.NoError(t, err)
	assert.Equal(t, "notices/a/b.html", key)

	for _, bad := range []string{"", "/", "../etc/passwd", "notices/../../x"} {
		_, err := storage.CleanKey(bad)
		assert.ErrorIs(t, err, storage.ErrInvalidKey, bad)
	}
}
