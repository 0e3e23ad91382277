package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"calsync/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	return &logger
}

func TestFailoverStoreFallsBack(t *testing.T) {
	// Primary with a nil client errors on every call.
	primary := NewRedisStore(nil)
	fallback := NewMemoryStore()
	store := NewFailoverStore(primary, fallback, testLogger())
	ctx := context.Background()

	allowed, err := store.Allow(ctx, RateLimitKey("user-1"), 1, time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = store.Allow(ctx, RateLimitKey("user-1"), 1, time.Hour)
	require.NoError(t, err)
	assert.False(t, allowed, "fallback must keep counting after failover")
}

func TestFailoverStoreCache(t *testing.T) {
	primary := NewRedisStore(nil)
	fallback := NewMemoryStore()
	store := NewFailoverStore(primary, fallback, testLogger())
	ctx := context.Background()

	events := []models.CalendarEvent{{ID: "ev-1"}}
	require.NoError(t, store.SetCachedEvents(ctx, "user-1", events, time.Hour))

	got, err := store.CachedEvents(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, store.InvalidateEvents(ctx, "user-1"))

	got, err = store.CachedEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFailoverStorePrefersPrimary(t *testing.T) {
	primary := NewMemoryStore()
	fallback := NewMemoryStore()
	store := NewFailoverStore(primary, fallback, testLogger())
	ctx := context.Background()

	require.NoError(t, store.SetCachedEvents(ctx, "user-1", []models.CalendarEvent{{ID: "p"}}, time.Hour))

	// Healthy primary serves reads; fallback stays empty.
	got, err := primary.CachedEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = fallback.CachedEvents(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
