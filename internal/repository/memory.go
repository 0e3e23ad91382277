package repository

import (
	"context"
	"sync"
	"time"

	"calsync/internal/models"
)

// MemoryStore is the in-process Store used in tests and as failover target.
// Windows and TTLs are per instance, so rate limiting degrades to per-consumer
// counters when Redis is down.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counterEntry
	events   map[string]cachedEvents
}

type counterEntry struct {
	count     int
	expiresAt time.Time
}

type cachedEvents struct {
	events    []models.CalendarEvent
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*counterEntry),
		events:   make(map[string]cachedEvents),
	}
}

func (r *MemoryStore) Allow(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.counters[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &counterEntry{count: 1, expiresAt: now.Add(window)}
		r.counters[key] = entry
	} else {
		entry.count++
	}

	return entry.count <= maxRequests, nil
}

func (r *MemoryStore) CachedEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.events[userID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(r.events, userID)
		return nil, nil
	}
	return entry.events, nil
}

func (r *MemoryStore) SetCachedEvents(ctx context.Context, userID string, events []models.CalendarEvent, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := cachedEvents{events: events}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	r.events[userID] = entry
	return nil
}

func (r *MemoryStore) InvalidateEvents(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, userID)
	return nil
}
