package repository

import (
	"context"
	"testing"
	"time"

	"calsync/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	t.Run("RateLimitWindow", func(t *testing.T) {
		key := RateLimitKey("user-1")
		limit := 3
		window := time.Second

		for i := 0; i < 3; i++ {
			allowed, err := store.Allow(ctx, key, limit, window)
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}

		// Fourth request exceeds the window budget
		allowed, err := store.Allow(ctx, key, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Wait for window to expire
		s.FastForward(window + time.Millisecond)

		allowed, err = store.Allow(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("RateLimitKeysAreIndependent", func(t *testing.T) {
		allowed, err := store.Allow(ctx, RateLimitKey("user-a"), 1, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = store.Allow(ctx, RateLimitKey("user-a"), 1, time.Second)
		require.NoError(t, err)
		assert.False(t, allowed)

		allowed, err = store.Allow(ctx, RateLimitKey("user-b"), 1, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("CacheSetGetInvalidate", func(t *testing.T) {
		events := []models.CalendarEvent{
			{ID: "ev-1", Title: "Standup", Status: models.EventStatusConfirmed},
		}

		err := store.SetCachedEvents(ctx, "user-2", events, time.Hour)
		require.NoError(t, err)

		got, err := store.CachedEvents(ctx, "user-2")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "ev-1", got[0].ID)
		assert.Equal(t, models.EventStatusConfirmed, got[0].Status)

		err = store.InvalidateEvents(ctx, "user-2")
		require.NoError(t, err)

		got, err = store.CachedEvents(ctx, "user-2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("InvalidateIsIdempotent", func(t *testing.T) {
		require.NoError(t, store.SetCachedEvents(ctx, "user-3", nil, time.Hour))

		require.NoError(t, store.InvalidateEvents(ctx, "user-3"))
		require.NoError(t, store.InvalidateEvents(ctx, "user-3"))

		got, err := store.CachedEvents(ctx, "user-3")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CacheExpiry", func(t *testing.T) {
		require.NoError(t, store.SetCachedEvents(ctx, "user-4", []models.CalendarEvent{{ID: "x"}}, time.Minute))
		s.FastForward(time.Minute + time.Second)

		got, err := store.CachedEvents(ctx, "user-4")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("NilClient", func(t *testing.T) {
		store := NewRedisStore(nil)
		_, err := store.Allow(ctx, "k", 1, time.Second)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")

		_, err = store.CachedEvents(ctx, "u")
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		err := Ping(ctx, client)
		assert.NoError(t, err)
	})

	t.Run("Close", func(t *testing.T) {
		err := Close(client)
		assert.NoError(t, err)
	})
}
