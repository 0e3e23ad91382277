package broker

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connect dials the broker. A failure here is fatal at startup: the process
// must not begin consuming with a partially declared topology.
func Connect(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	return conn, nil
}

// OpenChannel opens a channel with the consumer prefetch applied. Channels are
// single-owner per consumer instance; never share one across goroutines
// without external synchronization.
func OpenChannel(conn *amqp.Connection, prefetch int) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	return ch, nil
}

// Consume starts manual-ack delivery from a queue.
func Consume(ch *amqp.Channel, queue, consumerTag string) (<-chan amqp.Delivery, error) {
	deliveries, err := ch.Consume(queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume from %s: %w", queue, err)
	}
	return deliveries, nil
}
