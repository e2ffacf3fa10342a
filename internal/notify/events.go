package notify

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

const (
	RKBookingCreated     = "booking.created"
	RKOrderCreated       = "order.created"
	RKOrderPaymentStatus = "order.payment_status_changed"
)

// BookingCreated carries what the studio needs to follow up a new submission.
type BookingCreated struct {
	BookingID       string `json:"booking_id"`
	ClientName      string `json:"client_name"`
	ClientPhone     string `json:"client_phone"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	EventDate       string `json:"event_date,omitempty"`
	SelectedPackage string `json:"selected_package,omitempty"`
	Lang            string `json:"lang"`
}

type OrderCreated struct {
	OrderID       string `json:"order_id"`
	ClientName    string `json:"client_name"`
	TotalAmount   int64  `json:"total_amount"`
	PaymentStatus string `json:"payment_status"`
}

type OrderPaymentStatus struct {
	OrderID       string `json:"order_id"`
	PaymentStatus string `json:"payment_status"`
	UpdatedBy     string `json:"updated_by"`
}

func decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, errors.Wrap(err, "decode payload")
	}
	return t, nil
}
