package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "Pending"
	StatusConfirmed BookingStatus = "Confirmed"
	StatusCompleted BookingStatus = "Completed"
	StatusCancelled BookingStatus = "Cancelled"
)

var bookingStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

func ParseBookingStatus(s string) (BookingStatus, error) {
	for _, st := range bookingStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", Invalid("unknown booking status %q", s)
}

type HennaBy string

const (
	HennaExisting HennaBy = "existing"
	HennaStudio   HennaBy = "studio"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Booking is an appointment on the studio calendar. Date, Time, EventDate and
// CeremonyTime are kept as ISO strings; parsing happens at the edges.
type Booking struct {
	ID              string        `json:"id" bson:"_id"`
	ClientName      string        `json:"clientName" bson:"client_name"`
	ClientPhone     string        `json:"clientPhone" bson:"client_phone"`
	Address         string        `json:"address,omitempty" bson:"address,omitempty"`
	SocialMedia     string        `json:"socialMedia,omitempty" bson:"social_media,omitempty"`
	HennaBy         HennaBy       `json:"hennaBy,omitempty" bson:"henna_by,omitempty"`
	Date            string        `json:"date" bson:"date"`
	Time            string        `json:"time" bson:"time"`
	EventDate       string        `json:"eventDate,omitempty" bson:"event_date,omitempty"`
	CeremonyTime    string        `json:"ceremonyTime,omitempty" bson:"ceremony_time,omitempty"`
	SelectedPackage string        `json:"selectedPackage,omitempty" bson:"selected_package,omitempty"`
	PackagePrice    int64         `json:"packagePrice" bson:"package_price"`
	Status          BookingStatus `json:"status" bson:"status"`
	Payments        []Payment     `json:"payments" bson:"payments"`
	Notes           []Note        `json:"notes" bson:"notes"`
	LastUpdatedBy   string        `json:"lastUpdatedBy,omitempty" bson:"last_updated_by,omitempty"`
	CreatedAt       time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updated_at"`
}

// BookingDraft is the client-supplied part of a booking.
type BookingDraft struct {
	ClientName      string
	ClientPhone     string
	Address         string
	SocialMedia     string
	HennaBy         HennaBy
	Date            string
	Time            string
	EventDate       string
	CeremonyTime    string
	SelectedPackage string
	PackagePrice    int64
	Note            string
}

func (d BookingDraft) Validate() error {
	if strings.TrimSpace(d.ClientName) == "" {
		return Invalid("client name is required")
	}
	if strings.TrimSpace(d.ClientPhone) == "" {
		return Invalid("client phone is required")
	}
	if _, err := ParseDate(d.Date); err != nil {
		return err
	}
	if _, err := time.Parse(TimeLayout, d.Time); err != nil {
		return Invalid("time %q must be HH:MM", d.Time)
	}
	if d.EventDate != "" {
		if _, err := ParseDate(d.EventDate); err != nil {
			return err
		}
	}
	if d.CeremonyTime != "" {
		if _, err := time.Parse(TimeLayout, d.CeremonyTime); err != nil {
			return Invalid("ceremony time %q must be HH:MM", d.CeremonyTime)
		}
	}
	if d.HennaBy != "" && d.HennaBy != HennaExisting && d.HennaBy != HennaStudio {
		return Invalid("unknown henna option %q", d.HennaBy)
	}
	if d.PackagePrice < 0 {
		return Invalid("package price must not be negative")
	}
	return nil
}

// NewBooking builds a booking from a validated draft. Payments and Notes are
// always non-nil so that array pushes work against the stored document.
func NewBooking(d BookingDraft, status BookingStatus, actor string, now time.Time) Booking {
	b := Booking{
		ID:              uuid.NewString(),
		ClientName:      strings.TrimSpace(d.ClientName),
		ClientPhone:     strings.TrimSpace(d.ClientPhone),
		Address:         d.Address,
		SocialMedia:     d.SocialMedia,
		HennaBy:         d.HennaBy,
		Date:            d.Date,
		Time:            d.Time,
		EventDate:       d.EventDate,
		CeremonyTime:    d.CeremonyTime,
		SelectedPackage: d.SelectedPackage,
		PackagePrice:    d.PackagePrice,
		Status:          status,
		Payments:        []Payment{},
		Notes:           []Note{},
		LastUpdatedBy:   actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if body := strings.TrimSpace(d.Note); body != "" {
		author := actor
		if author == "" {
			author = b.ClientName
		}
		b.Notes = append(b.Notes, NewNote(body, author, now))
	}
	return b
}

// BookingPatch is a partial edit. Nil fields are left untouched.
type BookingPatch struct {
	ClientName      *string
	ClientPhone     *string
	Address         *string
	SocialMedia     *string
	HennaBy         *HennaBy
	Date            *string
	Time            *string
	EventDate       *string
	CeremonyTime    *string
	SelectedPackage *string
	PackagePrice    *int64
}

func (p BookingPatch) Validate() error {
	if p.ClientName != nil && strings.TrimSpace(*p.ClientName) == "" {
		return Invalid("client name must not be empty")
	}
	if p.ClientPhone != nil && strings.TrimSpace(*p.ClientPhone) == "" {
		return Invalid("client phone must not be empty")
	}
	if p.Date != nil {
		if _, err := ParseDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Time != nil {
		if _, err := time.Parse(TimeLayout, *p.Time); err != nil {
			return Invalid("time %q must be HH:MM", *p.Time)
		}
	}
	if p.EventDate != nil && *p.EventDate != "" {
		if _, err := ParseDate(*p.EventDate); err != nil {
			return err
		}
	}
	if p.CeremonyTime != nil && *p.CeremonyTime != "" {
		if _, err := time.Parse(TimeLayout, *p.CeremonyTime); err != nil {
			return Invalid("ceremony time %q must be HH:MM", *p.CeremonyTime)
		}
	}
	if p.HennaBy != nil && *p.HennaBy != "" && *p.HennaBy != HennaExisting && *p.HennaBy != HennaStudio {
		return Invalid("unknown henna option %q", *p.HennaBy)
	}
	if p.PackagePrice != nil && *p.PackagePrice < 0 {
		return Invalid("package price must not be negative")
	}
	return nil
}

// Apply copies the set fields onto b. Used by in-memory stores; the document
// store translates the patch into a $set instead.
func (p BookingPatch) Apply(b *Booking) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&b.ClientName, p.ClientName)
	set(&b.ClientPhone, p.ClientPhone)
	set(&b.Address, p.Address)
	set(&b.SocialMedia, p.SocialMedia)
	set(&b.Date, p.Date)
	set(&b.Time, p.Time)
	set(&b.EventDate, p.EventDate)
	set(&b.CeremonyTime, p.CeremonyTime)
	set(&b.SelectedPackage, p.SelectedPackage)
	if p.HennaBy != nil {
		b.HennaBy = *p.HennaBy
	}
	if p.PackagePrice != nil {
		b.PackagePrice = *p.PackagePrice
	}
}

// BookingFilter narrows a booking listing. Zero values match everything.
type BookingFilter struct {
	Status        BookingStatus
	Date          string
	From, To      string
	ExcludeStatus BookingStatus
}

func (f BookingFilter) Match(b Booking) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.ExcludeStatus != "" && b.Status == f.ExcludeStatus {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.From != "" && b.Date < f.From {
		return false
	}
	if f.To != "" && b.Date > f.To {
		return false
	}
	return true
}

// Stamp identifies who performed a staff mutation and when.
type Stamp struct {
	By string
	At time.Time
}

type Package struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Price int64  `json:"price" bson:"price"`
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Invalid("date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}
