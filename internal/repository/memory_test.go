package repository

import (
	"context"
	"testing"
	"time"

	"calsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRateLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	key := RateLimitKey("user-1")
	for i := 0; i < 2; i++ {
		allowed, err := store.Allow(ctx, key, 2, time.Hour)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := store.Allow(ctx, key, 2, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed)

	// An already-expired window resets on the next call
	key2 := RateLimitKey("user-2")
	allowed, err = store.Allow(ctx, key2, 1, -time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Allow(ctx, key2, 1, -time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestMemoryStoreCache(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	events := []models.CalendarEvent{{ID: "ev-1", Title: "Review"}}
	require.NoError(t, store.SetCachedEvents(ctx, "user-1", events, time.Hour))

	got, err := store.CachedEvents(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-1", got[0].ID)

	require.NoError(t, store.InvalidateEvents(ctx, "user-1"))
	require.NoError(t, store.InvalidateEvents(ctx, "user-1"))

	got, err = store.CachedEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
