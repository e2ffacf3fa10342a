package notify

import (
	"context"
	"fmt"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// Handler turns bus events into staff notifications.
type Handler struct {
	sink   Sink
	logger observability.Logger
}

func NewHandler(sink Sink, logger observability.Logger) *Handler {
	return &Handler{sink: sink, logger: logger}
}

func (h *Handler) Handle(ctx context.Context, routingKey string, body []byte) error {
	switch routingKey {
	case RKBookingCreated:
		ev, err := decode[BookingCreated](body)
		if err != nil {
			return err
		}
		return h.sink.Notify(ctx, bookingSubject(ev.Lang), fmt.Sprintf("%s (%s) booked %s %s, booking %s",
			ev.ClientName, ev.ClientPhone, ev.Date, ev.Time, ev.BookingID))

	case RKOrderCreated:
		ev, err := decode[OrderCreated](body)
		if err != nil {
			return err
		}
		return h.sink.Notify(ctx, "New order", fmt.Sprintf("Order %s for %s, total %d (%s)",
			ev.OrderID, ev.ClientName, ev.TotalAmount, ev.PaymentStatus))

	case RKOrderPaymentStatus:
		ev, err := decode[OrderPaymentStatus](body)
		if err != nil {
			return err
		}
		return h.sink.Notify(ctx, "Order payment", fmt.Sprintf("Order %s is now %s (by %s)",
			ev.OrderID, ev.PaymentStatus, ev.UpdatedBy))

	default:
		h.logger.WithField("routing_key", routingKey).Debug("skipping unknown event")
	}
	return nil
}

func bookingSubject(lang string) string {
	if domain.NormalizeLang(lang) == domain.LangEN {
		return "New booking"
	}
	return "Booking baru"
}
