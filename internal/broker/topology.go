package broker

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Calendar sync message class.
const (
	ExchangeSync    = "calendar.sync"
	ExchangeSyncDLX = "calendar.sync.dlx"

	QueueSync      = "calendar.sync.queue"
	QueueSyncDLQ   = "calendar.sync.dlq"
	QueueSyncRetry = "calendar.sync.retry"

	KeySyncRequest = "sync.request"
	KeySyncRetry   = "sync.retry"
	KeySyncDead    = "sync.dead"
	KeySyncResult  = "sync.result"
)

// Event processing message class, structurally identical to the sync class.
const (
	ExchangeEvents    = "task.events"
	ExchangeEventsDLX = "task.events.dlx"

	QueueEvents      = "task.events.queue"
	QueueEventsDLQ   = "task.events.dlq"
	QueueEventsRetry = "task.events.retry"

	KeyEventsRequest = "events.request"
	KeyEventsRetry   = "events.retry"
	KeyEventsDead    = "events.dead"
)

// messageClass describes one exchange/queue family with the DLQ pattern.
type messageClass struct {
	exchange   string
	dlx        string
	queue      string
	dlq        string
	retryQueue string
	requestKey string
	retryKey   string
	deadKey    string
}

var syncClass = messageClass{
	exchange:   ExchangeSync,
	dlx:        ExchangeSyncDLX,
	queue:      QueueSync,
	dlq:        QueueSyncDLQ,
	retryQueue: QueueSyncRetry,
	requestKey: KeySyncRequest,
	retryKey:   KeySyncRetry,
	deadKey:    KeySyncDead,
}

var eventsClass = messageClass{
	exchange:   ExchangeEvents,
	dlx:        ExchangeEventsDLX,
	queue:      QueueEvents,
	dlq:        QueueEventsDLQ,
	retryQueue: QueueEventsRetry,
	requestKey: KeyEventsRequest,
	retryKey:   KeyEventsRetry,
	deadKey:    KeyEventsDead,
}

// mainQueueArgs dead-letters rejected/expired messages to the class DLX.
func mainQueueArgs(class messageClass) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    class.dlx,
		"x-dead-letter-routing-key": class.deadKey,
	}
}

// retryQueueArgs make the retry queue a delay timer: messages sit until the
// TTL expires, then dead-letter back onto the primary exchange under the
// request key. Broker-native scheduled redelivery, no external timer.
func retryQueueArgs(class messageClass, delay time.Duration) amqp.Table {
	return amqp.Table{
		"x-message-ttl":             delay.Milliseconds(),
		"x-dead-letter-exchange":    class.exchange,
		"x-dead-letter-routing-key": class.requestKey,
	}
}

// DeclareTopology establishes both message classes. Any declaration error is
// returned as-is; callers treat it as fatal.
func DeclareTopology(ch *amqp.Channel, retryDelay time.Duration) error {
	for _, class := range []messageClass{syncClass, eventsClass} {
		if err := declareClass(ch, class, retryDelay); err != nil {
			return err
		}
	}
	return nil
}

func declareClass(ch *amqp.Channel, class messageClass, retryDelay time.Duration) error {
	if err := ch.ExchangeDeclare(class.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", class.exchange, err)
	}
	if err := ch.ExchangeDeclare(class.dlx, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", class.dlx, err)
	}

	if _, err := ch.QueueDeclare(class.queue, true, false, false, false, mainQueueArgs(class)); err != nil {
		return fmt.Errorf("declare queue %s: %w", class.queue, err)
	}
	if err := ch.QueueBind(class.queue, class.requestKey, class.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", class.queue, err)
	}

	if _, err := ch.QueueDeclare(class.dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", class.dlq, err)
	}
	if err := ch.QueueBind(class.dlq, class.deadKey, class.dlx, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", class.dlq, err)
	}

	if _, err := ch.QueueDeclare(class.retryQueue, true, false, false, false, retryQueueArgs(class, retryDelay)); err != nil {
		return fmt.Errorf("declare queue %s: %w", class.retryQueue, err)
	}
	if err := ch.QueueBind(class.retryQueue, class.retryKey, class.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", class.retryQueue, err)
	}

	return nil
}
