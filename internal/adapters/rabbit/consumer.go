package rabbit

import (
	"context"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// HandlerFunc processes one message. On error the message is requeued once
// and dropped if it fails again.
type HandlerFunc func(ctx context.Context, routingKey string, body []byte) error

type Consumer struct {
	ch     *amqp.Channel
	queue  string
	logger observability.Logger
}

// NewConsumer declares a durable queue bound to the studio exchange for each
// routing key.
func NewConsumer(conn *amqp.Connection, queue string, keys []string, logger observability.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}
	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "declare queue")
	}
	for _, key := range keys {
		if err := ch.QueueBind(q.Name, key, Exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, errors.Wrapf(err, "bind %s", key)
		}
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "set qos")
	}
	return &Consumer{ch: ch, queue: q.Name, logger: logger}, nil
}

func (c *Consumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
}

// Run dispatches deliveries to handle until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	msgs, err := c.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "consume")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := handle(ctx, d.RoutingKey, d.Body); err != nil {
				c.logger.WithError(err).WithField("routing_key", d.RoutingKey).Error("message handling failed, requeueing")
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
