package http

import (
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

type bookingRequest struct {
	ClientName      string `json:"clientName" validate:"required,max=120"`
	ClientPhone     string `json:"clientPhone" validate:"required,max=32"`
	Address         string `json:"address" validate:"max=500"`
	SocialMedia     string `json:"socialMedia" validate:"max=120"`
	HennaBy         string `json:"hennaBy" validate:"omitempty,oneof=existing studio"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	EventDate       string `json:"eventDate" validate:"omitempty,datetime=2006-01-02"`
	CeremonyTime    string `json:"ceremonyTime" validate:"omitempty,datetime=15:04"`
	SelectedPackage string `json:"selectedPackage"`
	Note            string `json:"note" validate:"max=2000"`
}

func (req bookingRequest) draft() domain.BookingDraft {
	return domain.BookingDraft{
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Address:         req.Address,
		SocialMedia:     req.SocialMedia,
		HennaBy:         domain.HennaBy(req.HennaBy),
		Date:            req.Date,
		Time:            req.Time,
		EventDate:       req.EventDate,
		CeremonyTime:    req.CeremonyTime,
		SelectedPackage: req.SelectedPackage,
		Note:            req.Note,
	}
}

// staffBookingRequest may carry a negotiated price; public requests never do.
type staffBookingRequest struct {
	bookingRequest
	PackagePrice int64 `json:"packagePrice" validate:"gte=0"`
}

func (req staffBookingRequest) draft() domain.BookingDraft {
	d := req.bookingRequest.draft()
	d.PackagePrice = req.PackagePrice
	return d
}

type bookingPatchRequest struct {
	ClientName      *string `json:"clientName" validate:"omitempty,min=1,max=120"`
	ClientPhone     *string `json:"clientPhone" validate:"omitempty,min=1,max=32"`
	Address         *string `json:"address"`
	SocialMedia     *string `json:"socialMedia"`
	HennaBy         *string `json:"hennaBy" validate:"omitempty,oneof=existing studio"`
	Date            *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time            *string `json:"time" validate:"omitempty,datetime=15:04"`
	EventDate       *string `json:"eventDate"`
	CeremonyTime    *string `json:"ceremonyTime"`
	SelectedPackage *string `json:"selectedPackage"`
	PackagePrice    *int64  `json:"packagePrice" validate:"omitempty,gte=0"`
}

func (req bookingPatchRequest) patch() domain.BookingPatch {
	p := domain.BookingPatch{
		ClientName:      req.ClientName,
		ClientPhone:     req.ClientPhone,
		Address:         req.Address,
		SocialMedia:     req.SocialMedia,
		Date:            req.Date,
		Time:            req.Time,
		EventDate:       req.EventDate,
		CeremonyTime:    req.CeremonyTime,
		SelectedPackage: req.SelectedPackage,
		PackagePrice:    req.PackagePrice,
	}
	if req.HennaBy != nil {
		h := domain.HennaBy(*req.HennaBy)
		p.HennaBy = &h
	}
	return p
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentRequest struct {
	Amount int64  `json:"amount" validate:"gt=0"`
	Type   string `json:"type" validate:"required,oneof=dp installment final"`
	Method string `json:"method" validate:"max=60"`
	Note   string `json:"note" validate:"max=500"`
}

func (req paymentRequest) input() domain.PaymentInput {
	return domain.PaymentInput{
		Amount: req.Amount,
		Type:   domain.PaymentType(req.Type),
		Method: req.Method,
		Note:   req.Note,
	}
}

type noteRequest struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type notesResponse struct {
	Notes []domain.Note `json:"notes"`
	Text  string        `json:"text"`
}

type orderRequest struct {
	ClientName    string   `json:"clientName" validate:"required,max=120"`
	ClientPhone   string   `json:"clientPhone" validate:"max=32"`
	TotalAmount   int64    `json:"totalAmount" validate:"gte=0"`
	DPAmount      int64    `json:"dpAmount" validate:"gte=0"`
	PaymentStatus string   `json:"paymentStatus" validate:"required,oneof=Unpaid Partial Paid"`
	Items         []string `json:"items" validate:"dive,max=200"`
}

func (req orderRequest) input() domain.OrderInput {
	return domain.OrderInput{
		ClientName:    req.ClientName,
		ClientPhone:   req.ClientPhone,
		TotalAmount:   req.TotalAmount,
		DPAmount:      req.DPAmount,
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		Items:         req.Items,
	}
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

type calendarResponse struct {
	domain.MonthView
	DailyCapacity      int `json:"dailyCapacity"`
	AdvertisedCapacity int `json:"advertisedCapacity"`
}

type transactionItem struct {
	Kind        domain.TransactionKind `json:"kind"`
	ID          string                 `json:"id"`
	ClientName  string                 `json:"clientName"`
	ClientPhone string                 `json:"clientPhone"`
	Date        time.Time              `json:"date"`
	ServiceName string                 `json:"serviceName,omitempty"`
	Items       []string               `json:"items,omitempty"`
	Total       int64                  `json:"total"`
	Paid        int64                  `json:"paid"`
	Status      domain.PaymentStatus   `json:"status"`
}

func newTransactionItem(t domain.Transaction) transactionItem {
	name, phone := t.Client()
	item := transactionItem{
		Kind:        t.Kind(),
		ID:          t.TxID(),
		ClientName:  name,
		ClientPhone: phone,
		Date:        t.When(),
		Total:       t.Total(),
		Paid:        t.Paid(),
		Status:      t.Status(),
	}
	switch v := t.(type) {
	case domain.BookingTransaction:
		item.ServiceName = v.ServiceName
	case domain.OrderTransaction:
		item.Items = v.Order.Items
	}
	return item
}

type transactionsResponse struct {
	Items  []transactionItem        `json:"items"`
	Totals domain.TransactionTotals `json:"totals"`
}
