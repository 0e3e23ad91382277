package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"calsync/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher owns outbound publishes for one consumer instance. A channel is
// not safe for concurrent publishing, so the mutex serializes in-flight
// handlers sharing this publisher.
type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) publish(ctx context.Context, key, correlationID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, ExchangeSync, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		Timestamp:     time.Now(),
		Body:          body,
	})
}

// PublishResult emits the terminal outcome under the result key. The
// correlation id rides as a broker property so a waiter can filter by it.
// Fire-and-forget: delivery matches the broker's at-least-once semantics.
func (p *Publisher) PublishResult(ctx context.Context, correlationID string, result models.SyncResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if err := p.publish(ctx, KeySyncResult, correlationID, body); err != nil {
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// ScheduleRetry republishes a message onto the retry key; the TTL queue
// dead-letters it back to the main queue after the fixed delay.
func (p *Publisher) ScheduleRetry(ctx context.Context, msg models.SyncMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode retry message: %w", err)
	}

	if err := p.publish(ctx, KeySyncRetry, msg.CorrelationID, body); err != nil {
		return fmt.Errorf("publish retry: %w", err)
	}
	return nil
}

// PublishSync places a fresh sync message onto the main routing key. Producers
// outside this core use the same envelope.
func (p *Publisher) PublishSync(ctx context.Context, msg models.SyncMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode sync message: %w", err)
	}

	if err := p.publish(ctx, KeySyncRequest, msg.CorrelationID, body); err != nil {
		return fmt.Errorf("publish sync message: %w", err)
	}
	return nil
}
