package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"calsync/internal/domain"
	"calsync/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStore routes to the primary store until it errors, then serves from
// the fallback and probes the primary again after recoveryInterval.
type FailoverStore struct {
	primary  domain.Store
	fallback domain.Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

const recoveryInterval = time.Minute

func NewFailoverStore(primary, fallback domain.Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStore) markDown(err error, op string) {
	r.logger.Error().Err(err).Str("op", op).Msg("Primary store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// shouldProbe reports whether enough time passed to retry the primary.
func (r *FailoverStore) shouldProbe() bool {
	if !r.isDown.Load() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) < recoveryInterval {
		return false
	}
	r.lastCheck = time.Now()
	return true
}

func (r *FailoverStore) Allow(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.Allow(ctx, key, maxRequests, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err, "allow")
	} else if r.shouldProbe() {
		allowed, err := r.primary.Allow(ctx, key, maxRequests, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
	}

	return r.fallback.Allow(ctx, key, maxRequests, window)
}

func (r *FailoverStore) CachedEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	if !r.isDown.Load() {
		events, err := r.primary.CachedEvents(ctx, userID)
		if err == nil {
			return events, nil
		}
		r.markDown(err, "cached_events")
	} else if r.shouldProbe() {
		events, err := r.primary.CachedEvents(ctx, userID)
		if err == nil {
			r.isDown.Store(false)
			return events, nil
		}
	}

	return r.fallback.CachedEvents(ctx, userID)
}

func (r *FailoverStore) SetCachedEvents(ctx context.Context, userID string, events []models.CalendarEvent, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.SetCachedEvents(ctx, userID, events, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err, "set_cached_events")
	}

	return r.fallback.SetCachedEvents(ctx, userID, events, ttl)
}

func (r *FailoverStore) InvalidateEvents(ctx context.Context, userID string) error {
	if !r.isDown.Load() {
		err := r.primary.InvalidateEvents(ctx, userID)
		if err == nil {
			// Invalidate the fallback copy too, the entry may be stale there.
			_ = r.fallback.InvalidateEvents(ctx, userID)
			return nil
		}
		r.markDown(err, "invalidate_events")
	}

	return r.fallback.InvalidateEvents(ctx, userID)
}
