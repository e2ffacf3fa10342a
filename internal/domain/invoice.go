package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultServiceName is printed when a booking has no resolvable package.
const DefaultServiceName = "Makeup Service"

type InvoiceClient struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

type InvoiceEvent struct {
	Date         string `json:"date"`
	Time         string `json:"time"`
	EventDate    string `json:"eventDate,omitempty"`
	CeremonyTime string `json:"ceremonyTime,omitempty"`
}

// Invoice is a read-only statement over a booking and its ledger.
type Invoice struct {
	Number      string        `json:"number"`
	BookingID   string        `json:"bookingId"`
	IssuedAt    time.Time     `json:"issuedAt"`
	Client      InvoiceClient `json:"client"`
	Event       InvoiceEvent  `json:"event"`
	ServiceName string        `json:"serviceName"`
	Price       int64         `json:"price"`
	TotalPaid   int64         `json:"totalPaid"`
	Remaining   int64         `json:"remaining"`
	Status      PaymentStatus `json:"status"`
	Payments    []Payment     `json:"payments"`
}

// InvoiceNumber is INV-YYMM-XXXXXX, where YYMM comes from the event date when
// present (booking date otherwise) and XXXXXX is the upper-cased id suffix.
func InvoiceNumber(b Booking) string {
	src := b.EventDate
	if src == "" {
		src = b.Date
	}
	yymm := "0000"
	if t, err := time.Parse(DateLayout, src); err == nil {
		yymm = t.Format("0601")
	}
	id := b.ID
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	return fmt.Sprintf("INV-%s-%s", yymm, strings.ToUpper(id))
}

// BuildInvoice never clamps Remaining: an overpaid booking shows a negative
// balance.
func BuildInvoice(b Booking, pkg *Package, issuedAt time.Time) Invoice {
	name := DefaultServiceName
	if pkg != nil && pkg.Name != "" {
		name = pkg.Name
	}
	sum := Summarize(b, pkg)
	return Invoice{
		Number:    InvoiceNumber(b),
		BookingID: b.ID,
		IssuedAt:  issuedAt,
		Client: InvoiceClient{
			Name:    b.ClientName,
			Phone:   b.ClientPhone,
			Address: b.Address,
		},
		Event: InvoiceEvent{
			Date:         b.Date,
			Time:         b.Time,
			EventDate:    b.EventDate,
			CeremonyTime: b.CeremonyTime,
		},
		ServiceName: name,
		Price:       sum.Price,
		TotalPaid:   sum.TotalPaid,
		Remaining:   sum.Remaining,
		Status:      sum.Status,
		Payments:    Chronological(b.Payments),
	}
}
