package domain

import (
	"sort"
	"strings"
	"time"
)

type TransactionKind string

const (
	KindOrder   TransactionKind = "order"
	KindBooking TransactionKind = "booking"
)

// Transaction is either an OrderTransaction or a BookingTransaction. The two
// keep their own payment models; only the reporting accessors are shared.
type Transaction interface {
	Kind() TransactionKind
	TxID() string
	Client() (name, phone string)
	When() time.Time
	Total() int64
	Paid() int64
	Status() PaymentStatus
	isTransaction()
}

type OrderTransaction struct {
	Order Order
}

func (t OrderTransaction) Kind() TransactionKind    { return KindOrder }
func (t OrderTransaction) TxID() string             { return t.Order.ID }
func (t OrderTransaction) Client() (string, string) { return t.Order.ClientName, t.Order.ClientPhone }
func (t OrderTransaction) When() time.Time          { return t.Order.CreatedAt }
func (t OrderTransaction) Total() int64             { return t.Order.TotalAmount }
func (t OrderTransaction) Paid() int64              { return t.Order.DPAmount }
func (t OrderTransaction) Status() PaymentStatus    { return t.Order.PaymentStatus }
func (OrderTransaction) isTransaction()             {}

type BookingTransaction struct {
	Booking     Booking
	ServiceName string
	Summary     PaymentSummary
}

func NewBookingTransaction(b Booking, pkg *Package) BookingTransaction {
	name := DefaultServiceName
	if pkg != nil && pkg.Name != "" {
		name = pkg.Name
	}
	return BookingTransaction{Booking: b, ServiceName: name, Summary: Summarize(b, pkg)}
}

func (t BookingTransaction) Kind() TransactionKind    { return KindBooking }
func (t BookingTransaction) TxID() string             { return t.Booking.ID }
func (t BookingTransaction) Client() (string, string) { return t.Booking.ClientName, t.Booking.ClientPhone }
func (t BookingTransaction) Total() int64             { return t.Summary.Price }
func (t BookingTransaction) Paid() int64              { return t.Summary.TotalPaid }
func (t BookingTransaction) Status() PaymentStatus    { return t.Summary.Status }
func (BookingTransaction) isTransaction()             {}

func (t BookingTransaction) When() time.Time {
	d, err := time.Parse(DateLayout, t.Booking.Date)
	if err != nil {
		return t.Booking.CreatedAt
	}
	return d
}

type TransactionFilter struct {
	Kind   TransactionKind
	Status PaymentStatus
	Search string
}

func (f TransactionFilter) Match(t Transaction) bool {
	if f.Kind != "" && t.Kind() != f.Kind {
		return false
	}
	if f.Status != "" && t.Status() != f.Status {
		return false
	}
	if f.Search == "" {
		return true
	}
	q := strings.ToLower(f.Search)
	name, phone := t.Client()
	return strings.Contains(strings.ToLower(name), q) ||
		strings.Contains(strings.ToLower(t.TxID()), q) ||
		strings.Contains(phone, f.Search)
}

type TransactionTotals struct {
	Revenue     int64 `json:"revenue"`
	Paid        int64 `json:"paid"`
	Outstanding int64 `json:"outstanding"`
}

// FilterTransactions applies f and sorts newest first.
func FilterTransactions(all []Transaction, f TransactionFilter) []Transaction {
	out := make([]Transaction, 0, len(all))
	for _, t := range all {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].When().After(out[j].When())
	})
	return out
}

func SumTransactions(txs []Transaction) TransactionTotals {
	var tot TransactionTotals
	for _, t := range txs {
		tot.Revenue += t.Total()
		tot.Paid += t.Paid()
	}
	tot.Outstanding = tot.Revenue - tot.Paid
	return tot
}
