package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"calsync/internal/domain"
	"calsync/internal/events"
	"calsync/internal/google"
	"calsync/internal/metrics"
	"calsync/internal/models"
	"calsync/internal/repository"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Validation failures are terminal per message: reported, never retried.
var (
	ErrInvalidCreate    = errors.New("invalid create data")
	ErrInvalidUpdate    = errors.New("invalid update data")
	ErrEventIDRequired  = errors.New("event id required")
	ErrUnknownOperation = errors.New("unknown operation type")
)

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCreate) ||
		errors.Is(err, ErrInvalidUpdate) ||
		errors.Is(err, ErrEventIDRequired) ||
		errors.Is(err, ErrUnknownOperation)
}

type Options struct {
	MaxRetries        int
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Consumer drives each delivery through the sync state machine:
// Received → RateChecked → Dispatched → Succeeded | FailedRetryable | FailedTerminal.
//
// Ordering is weak by design: retried messages re-enter the main queue behind
// freshly published ones, so callers must tolerate out-of-order application of
// operations for the same calendar.
type Consumer struct {
	store   domain.Store
	client  domain.CalendarClient
	results domain.ResultPublisher
	retries domain.RetryScheduler
	bus     domain.EventPublisher
	opts    Options
	logger  zerolog.Logger

	wg sync.WaitGroup
}

func NewConsumer(
	store domain.Store,
	client domain.CalendarClient,
	results domain.ResultPublisher,
	retries domain.RetryScheduler,
	bus domain.EventPublisher,
	opts Options,
	logger *zerolog.Logger,
) *Consumer {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = models.DefaultMaxRetries
	}
	if opts.RateLimitRequests == 0 {
		opts.RateLimitRequests = models.DefaultRateLimitRequests
	}
	if opts.RateLimitWindow == 0 {
		opts.RateLimitWindow = time.Duration(models.DefaultRateLimitWindowSeconds) * time.Second
	}

	return &Consumer{
		store:   store,
		client:  client,
		results: results,
		retries: retries,
		bus:     bus,
		opts:    opts,
		logger:  logger.With().Str("component", "sync-consumer").Logger(),
	}
}

// Run consumes deliveries until the channel closes or ctx is cancelled, then
// waits for in-flight handlers to reach a terminal state. Concurrency is
// bounded by the broker prefetch: no more unacked deliveries arrive than Qos
// allows.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	c.logger.Info().Msg("sync consumer started")
	defer c.logger.Info().Msg("sync consumer stopped")

	for {
		select {
		case <-ctx.Done():
			c.wg.Wait()
			return
		case d, ok := <-deliveries:
			if !ok {
				c.wg.Wait()
				return
			}
			c.wg.Add(1)
			go func(d amqp.Delivery) {
				defer c.wg.Done()
				c.handleDelivery(ctx, d)
			}(d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			// Unclassified escape hatch: no requeue, the main queue's DLQ
			// policy catches the message.
			c.logger.Error().Interface("panic", r).Msg("handler panicked, dead-lettering delivery")
			_ = d.Nack(false, false)
		}
	}()

	var msg models.SyncMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error().Err(err).Msg("undecodable sync message, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	if err := c.process(ctx, msg); err != nil {
		c.logger.Error().Err(err).Str("correlation_id", msg.CorrelationID).Msg("processing failed, dead-lettering")
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error().Err(err).Str("correlation_id", msg.CorrelationID).Msg("ack failed")
	}
}

// process returns nil when the delivery may be acknowledged: either a terminal
// SyncResult was published or the message was requeued for retry.
func (c *Consumer) process(ctx context.Context, msg models.SyncMessage) error {
	allowed, err := c.store.Allow(ctx, repository.RateLimitKey(msg.UserID), c.opts.RateLimitRequests, c.opts.RateLimitWindow)
	if err != nil {
		// Fail closed: retrying against an unreachable limiter risks unbounded
		// queue growth.
		return c.terminal(ctx, msg, fmt.Errorf("rate limiter unavailable: %w", err), false)
	}
	if !allowed {
		metrics.IncRateLimited()
		return c.retryOrFail(ctx, msg, errors.New("rate limit exceeded"))
	}

	event, err := c.dispatch(ctx, msg)
	if err == nil {
		return c.succeed(ctx, msg, event)
	}

	if isValidationError(err) {
		return c.terminal(ctx, msg, err, false)
	}

	if google.Retryable(err) {
		return c.retryOrFail(ctx, msg, err)
	}

	return c.terminal(ctx, msg, err, false)
}

// dispatch validates the operation shape and invokes the matching provider
// call. Validation failures return before any provider call is attempted.
func (c *Consumer) dispatch(ctx context.Context, msg models.SyncMessage) (*models.CalendarEvent, error) {
	op := msg.Operation
	switch op.Type {
	case models.OperationCreate:
		if op.Payload == nil || strings.TrimSpace(op.Payload.Title) == "" {
			return nil, ErrInvalidCreate
		}
		return c.client.CreateEvent(ctx, *op.Payload)
	case models.OperationUpdate:
		if op.Payload == nil || op.Payload.ID == "" {
			return nil, ErrInvalidUpdate
		}
		return c.client.UpdateEvent(ctx, *op.Payload)
	case models.OperationDelete:
		if op.EventID == "" {
			return nil, ErrEventIDRequired
		}
		return nil, c.client.DeleteEvent(ctx, op.EventID)
	default:
		return nil, ErrUnknownOperation
	}
}

func (c *Consumer) succeed(ctx context.Context, msg models.SyncMessage, event *models.CalendarEvent) error {
	// Invalidation is best-effort: a stale cache entry expires on its own TTL.
	if err := c.store.InvalidateEvents(ctx, msg.UserID); err != nil {
		c.logger.Warn().Err(err).Str("user_id", msg.UserID).Msg("events cache invalidation failed")
	}

	result := models.SyncResult{Success: true, Event: event}
	if err := c.results.PublishResult(ctx, msg.CorrelationID, result); err != nil {
		return fmt.Errorf("publish success result: %w", err)
	}

	metrics.IncOperation(string(msg.Operation.Type), metrics.OutcomeSuccess)
	c.notify(events.EventSyncSucceeded, msg, "", false)

	c.logger.Info().
		Str("user_id", msg.UserID).
		Str("correlation_id", msg.CorrelationID).
		Str("operation", string(msg.Operation.Type)).
		Int("retry_count", msg.Operation.RetryCount).
		Msg("sync operation succeeded")
	return nil
}

// retryOrFail requeues a retryable failure while the retry budget lasts;
// exhaustion surfaces a terminal result marked retryable so the caller can
// tell quota/transport trouble from bad data.
func (c *Consumer) retryOrFail(ctx context.Context, msg models.SyncMessage, cause error) error {
	if msg.Operation.RetryCount < c.opts.MaxRetries {
		if err := c.retries.ScheduleRetry(ctx, msg.WithRetry()); err != nil {
			return fmt.Errorf("schedule retry: %w", err)
		}

		metrics.IncRetry()
		c.notify(events.EventSyncRetried, msg, cause.Error(), true)

		c.logger.Warn().
			Err(cause).
			Str("user_id", msg.UserID).
			Str("correlation_id", msg.CorrelationID).
			Int("retry_count", msg.Operation.RetryCount+1).
			Msg("sync operation requeued for retry")
		return nil
	}

	return c.terminal(ctx, msg, fmt.Errorf("retries exhausted: %w", cause), true)
}

func (c *Consumer) terminal(ctx context.Context, msg models.SyncMessage, cause error, retryable bool) error {
	result := models.SyncResult{Success: false, Error: cause.Error(), Retryable: retryable}
	if err := c.results.PublishResult(ctx, msg.CorrelationID, result); err != nil {
		return fmt.Errorf("publish failure result: %w", err)
	}

	metrics.IncOperation(string(msg.Operation.Type), metrics.OutcomeFailed)
	c.notify(events.EventSyncFailed, msg, cause.Error(), retryable)

	c.logger.Error().
		Err(cause).
		Str("user_id", msg.UserID).
		Str("correlation_id", msg.CorrelationID).
		Str("operation", string(msg.Operation.Type)).
		Int("retry_count", msg.Operation.RetryCount).
		Bool("retryable", retryable).
		Msg("sync operation failed")
	return nil
}

func (c *Consumer) notify(eventType string, msg models.SyncMessage, errText string, retryable bool) {
	if c.bus == nil {
		return
	}
	_ = c.bus.PublishJSON(eventType, events.SyncEventPayload{
		UserID:        msg.UserID,
		CorrelationID: msg.CorrelationID,
		Operation:     string(msg.Operation.Type),
		RetryCount:    msg.Operation.RetryCount,
		Error:         errText,
		Retryable:     retryable,
	})
}
