package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// Claimer hands out unpublished outbox records inside a transaction.
type Claimer interface {
	ClaimOutbox(ctx context.Context, limit int, fn func(rec crdb.OutboxRecord) bool) (int, error)
}

type MessagePublisher interface {
	Publish(ctx context.Context, key string, msg amqp.Publishing) error
}

// Publisher relays order events from the outbox table to the message bus.
type Publisher struct {
	repo      Claimer
	rabbitPub MessagePublisher
	logger    observability.Logger
	metrics   *observability.Metrics
	batch     int
	interval  time.Duration
}

func NewPublisher(repo Claimer, rabbitPub MessagePublisher, logger observability.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{repo: repo, rabbitPub: rabbitPub, logger: logger, metrics: metrics, batch: 10, interval: 5 * time.Second}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.RelayOnce(ctx); err != nil {
				p.logger.WithError(err).Error("outbox relay failed")
			}
		}
	}
}

// RelayOnce publishes one batch. Records whose publish fails stay pending
// for the next tick; the dedupe key travels as the message id so consumers
// can drop duplicates.
func (p *Publisher) RelayOnce(ctx context.Context) (int, error) {
	var oldest time.Time
	n, err := p.repo.ClaimOutbox(ctx, p.batch, func(rec crdb.OutboxRecord) bool {
		if oldest.IsZero() || rec.CreatedAt.Before(oldest) {
			oldest = rec.CreatedAt
		}
		msg := amqp.Publishing{
			MessageId:    rec.DedupeKey,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    rec.CreatedAt,
			Body:         rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.EventType, msg); err != nil {
			if p.metrics != nil {
				p.metrics.RabbitPublishErrors.Inc()
			}
			p.logger.WithError(err).WithField("outbox_id", rec.ID.String()).Warn("publish failed")
			return false
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	if p.metrics != nil && !oldest.IsZero() {
		p.metrics.OutboxLag.Set(time.Since(oldest).Seconds())
	}
	return n, nil
}
