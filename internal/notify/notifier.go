package notify

import (
	"context"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// JSONPublisher is satisfied by the rabbit publisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, key string, v interface{}) error
}

// Publisher hands new bookings to the message bus. Formatting and delivery
// happen in the notification worker.
type Publisher struct {
	pub     JSONPublisher
	metrics *observability.Metrics
}

func NewPublisher(pub JSONPublisher, metrics *observability.Metrics) *Publisher {
	return &Publisher{pub: pub, metrics: metrics}
}

func (p *Publisher) BookingCreated(ctx context.Context, b domain.Booking, lang string) error {
	err := p.pub.PublishJSON(ctx, RKBookingCreated, BookingCreated{
		BookingID:       b.ID,
		ClientName:      b.ClientName,
		ClientPhone:     b.ClientPhone,
		Date:            b.Date,
		Time:            b.Time,
		EventDate:       b.EventDate,
		SelectedPackage: b.SelectedPackage,
		Lang:            lang,
	})
	if err != nil && p.metrics != nil {
		p.metrics.RabbitPublishErrors.Inc()
	}
	return err
}

// Sink delivers a rendered message. The log sink is the only one shipped.
type Sink interface {
	Notify(ctx context.Context, subject, message string) error
}

type LogSink struct {
	logger observability.Logger
}

func NewLogSink(logger observability.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, subject, message string) error {
	s.logger.WithFields(map[string]interface{}{"subject": subject}).Info(message)
	return nil
}
