package domain

import (
	"context"
	"time"

	"calsync/internal/models"
)

// Store is the shared per-key service backing the rate limiter and the
// event-list cache. Implementations must be safe for concurrent use; the
// backing store serializes operations per key.
type Store interface {
	Allow(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error)
	CachedEvents(ctx context.Context, userID string) ([]models.CalendarEvent, error)
	SetCachedEvents(ctx context.Context, userID string, events []models.CalendarEvent, ttl time.Duration) error
	InvalidateEvents(ctx context.Context, userID string) error
}

// CalendarClient is the provider-facing adapter. The calendar id and
// credentials are owned by the client instance, not the call sites.
type CalendarClient interface {
	CreateEvent(ctx context.Context, payload models.EventPayload) (*models.CalendarEvent, error)
	UpdateEvent(ctx context.Context, payload models.EventPayload) (*models.CalendarEvent, error)
	DeleteEvent(ctx context.Context, eventID string) error
	GetEvent(ctx context.Context, eventID string) (*models.CalendarEvent, error)
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]models.CalendarEvent, error)
}

// ResultPublisher emits the terminal outcome of a sync message, keyed by the
// correlation id of the originating caller.
type ResultPublisher interface {
	PublishResult(ctx context.Context, correlationID string, result models.SyncResult) error
}

// RetryScheduler republishes a message for delayed redelivery.
type RetryScheduler interface {
	ScheduleRetry(ctx context.Context, msg models.SyncMessage) error
}

// EventPublisher is the in-process lifecycle bus.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
