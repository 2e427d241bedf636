package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormStoreRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "patterns.db")

	store, err := NewGormStore(dbPath)
	require.NoError(t, err)

	entry := &CacheEntry{
		Fingerprint: "fp1",
		KqlTemplate: "users | take 10",
		Complexity:  "simple",
		HitCount:    3,
		CreatedAt:   time.Now(),
		LastAccess:  time.Now(),
	}
	require.NoError(t, store.Upsert(entry))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, entry.Fingerprint, loaded[0].Fingerprint)
	assert.Equal(t, entry.KqlTemplate, loaded[0].KqlTemplate)

	entry.HitCount = 7
	require.NoError(t, store.Upsert(entry))

	loaded, err = store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(7), loaded[0].HitCount)
}

func TestCacheWithStorePreloadsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "patterns.db")

	store, err := NewGormStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(&CacheEntry{
		Fingerprint: "fp1",
		KqlTemplate: "users | take 10",
		Complexity:  "simple",
		CreatedAt:   time.Now(),
		LastAccess:  time.Now(),
	}))

	c := New(4, time.Hour)
	_, err = c.WithStore(store)
	require.NoError(t, err)

	entry, ok := c.Get("fp1")
	require.True(t, ok)
	assert.Equal(t, "users | take 10", entry.KqlTemplate)

	c.Put("fp2", "companies | take 5", "simple")
	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}
