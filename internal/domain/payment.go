package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type PaymentType string

const (
	PaymentDownPayment PaymentType = "dp"
	PaymentInstallment PaymentType = "installment"
	PaymentFinal       PaymentType = "final"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPartial PaymentStatus = "Partial"
	PaymentPaid    PaymentStatus = "Paid"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return PaymentStatus(s), nil
	}
	return "", Invalid("unknown payment status %q", s)
}

// Payment is immutable once appended to a ledger.
type Payment struct {
	ID        string      `json:"id" bson:"_id"`
	Amount    int64       `json:"amount" bson:"amount"`
	Type      PaymentType `json:"type" bson:"type"`
	Method    string      `json:"method,omitempty" bson:"method,omitempty"`
	Note      string      `json:"note,omitempty" bson:"note,omitempty"`
	CreatedAt time.Time   `json:"createdAt" bson:"created_at"`
}

type PaymentInput struct {
	Amount int64
	Type   PaymentType
	Method string
	Note   string
}

func (in PaymentInput) Validate() error {
	if in.Amount <= 0 {
		return Invalid("payment amount must be positive, got %d", in.Amount)
	}
	switch in.Type {
	case PaymentDownPayment, PaymentInstallment, PaymentFinal:
	default:
		return Invalid("unknown payment type %q", in.Type)
	}
	return nil
}

func NewPayment(in PaymentInput, now time.Time) Payment {
	return Payment{
		ID:        uuid.NewString(),
		Amount:    in.Amount,
		Type:      in.Type,
		Method:    in.Method,
		Note:      in.Note,
		CreatedAt: now,
	}
}

// TotalPaid is the sum of every payment currently in the ledger.
func TotalPaid(ledger []Payment) int64 {
	var total int64
	for _, p := range ledger {
		total += p.Amount
	}
	return total
}

// DerivePaymentStatus is the only source of a booking's payment status; it is
// never stored.
func DerivePaymentStatus(price int64, ledger []Payment) PaymentStatus {
	if price <= 0 {
		return PaymentUnpaid
	}
	paid := TotalPaid(ledger)
	switch {
	case paid == 0:
		return PaymentUnpaid
	case paid >= price:
		return PaymentPaid
	default:
		return PaymentPartial
	}
}

// Chronological returns a copy of the ledger ordered by CreatedAt, keeping
// append order for equal timestamps.
func Chronological(ledger []Payment) []Payment {
	out := make([]Payment, len(ledger))
	copy(out, ledger)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// EffectivePrice returns the snapshotted price when set, falling back to the
// live package price.
func EffectivePrice(b Booking, pkg *Package) int64 {
	if b.PackagePrice > 0 {
		return b.PackagePrice
	}
	if pkg != nil {
		return pkg.Price
	}
	return 0
}

type PaymentSummary struct {
	Price     int64         `json:"price"`
	TotalPaid int64         `json:"totalPaid"`
	Remaining int64         `json:"remaining"`
	Status    PaymentStatus `json:"status"`
}

func Summarize(b Booking, pkg *Package) PaymentSummary {
	price := EffectivePrice(b, pkg)
	paid := TotalPaid(b.Payments)
	return PaymentSummary{
		Price:     price,
		TotalPaid: paid,
		Remaining: price - paid,
		Status:    DerivePaymentStatus(price, b.Payments),
	}
}
