package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order is a manually entered sale. Unlike a booking it has a single
// down-payment figure and a payment status chosen by staff.
type Order struct {
	ID            string        `json:"id"`
	ClientName    string        `json:"clientName"`
	ClientPhone   string        `json:"clientPhone"`
	TotalAmount   int64         `json:"totalAmount"`
	DPAmount      int64         `json:"dpAmount"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Items         []string      `json:"items"`
	Notes         []Note        `json:"notes"`
	LastUpdatedBy string        `json:"lastUpdatedBy,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type OrderInput struct {
	ClientName    string
	ClientPhone   string
	TotalAmount   int64
	DPAmount      int64
	PaymentStatus PaymentStatus
	Items         []string
}

func (in OrderInput) Validate() error {
	if strings.TrimSpace(in.ClientName) == "" {
		return Invalid("client name is required")
	}
	if in.TotalAmount < 0 {
		return Invalid("total amount must not be negative")
	}
	if in.DPAmount < 0 {
		return Invalid("down payment must not be negative")
	}
	if _, err := ParsePaymentStatus(string(in.PaymentStatus)); err != nil {
		return err
	}
	return nil
}

// CleanItems trims item descriptions and drops blank ones.
func CleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func NewOrder(in OrderInput, actor string, now time.Time) Order {
	return Order{
		ID:            uuid.NewString(),
		ClientName:    strings.TrimSpace(in.ClientName),
		ClientPhone:   strings.TrimSpace(in.ClientPhone),
		TotalAmount:   in.TotalAmount,
		DPAmount:      in.DPAmount,
		PaymentStatus: in.PaymentStatus,
		Items:         CleanItems(in.Items),
		Notes:         []Note{},
		LastUpdatedBy: actor,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
