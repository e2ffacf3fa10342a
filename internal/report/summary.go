package report

import (
	"context"
	"sort"
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"golang.org/x/sync/errgroup"
)

const summaryListLimit = 5

// Summary is the staff dashboard: booking counts per status, order takings
// and the short lists shown next to them.
type Summary struct {
	Date string `json:"date"`

	TotalBookings     int `json:"totalBookings"`
	PendingBookings   int `json:"pendingBookings"`
	ConfirmedBookings int `json:"confirmedBookings"`
	// ConfirmedPaid counts confirmed bookings whose ledger covers the price.
	ConfirmedPaid int `json:"confirmedPaid"`

	OrderRevenue int64 `json:"orderRevenue"`
	OrderDP      int64 `json:"orderDp"`

	Today        []domain.Booking `json:"today"`
	Upcoming     []domain.Booking `json:"upcoming"`
	RecentOrders []domain.Order   `json:"recentOrders"`
}

type Dashboard struct {
	orders   OrderLister
	bookings BookingLister
	packages PackageLookup
	logger   observability.Logger
}

func NewDashboard(orders OrderLister, bookings BookingLister, packages PackageLookup, logger observability.Logger) *Dashboard {
	return &Dashboard{orders: orders, bookings: bookings, packages: packages, logger: logger}
}

// Build computes the summary as of today, which should already be in the
// studio time zone.
func (d *Dashboard) Build(ctx context.Context, today time.Time) (Summary, error) {
	var (
		orders   []domain.Order
		bookings []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = d.orders.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = d.bookings.List(gctx, domain.BookingFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	date := today.Format(domain.DateLayout)
	s := Summary{
		Date:          date,
		TotalBookings: len(bookings),
		Today:         []domain.Booking{},
		Upcoming:      []domain.Booking{},
		RecentOrders:  []domain.Order{},
	}

	var confirmed []domain.Booking
	for _, b := range bookings {
		switch b.Status {
		case domain.StatusPending:
			s.PendingBookings++
		case domain.StatusConfirmed:
			confirmed = append(confirmed, b)
		}
	}
	s.ConfirmedBookings = len(confirmed)

	pkgs := resolvePackages(ctx, d.packages, d.logger, confirmed)
	sort.SliceStable(confirmed, func(i, j int) bool {
		if confirmed[i].Date != confirmed[j].Date {
			return confirmed[i].Date < confirmed[j].Date
		}
		return confirmed[i].Time < confirmed[j].Time
	})
	for _, b := range confirmed {
		price := domain.EffectivePrice(b, pkgs[b.SelectedPackage])
		if domain.DerivePaymentStatus(price, b.Payments) == domain.PaymentPaid {
			s.ConfirmedPaid++
		}
		switch {
		case b.Date == date:
			s.Today = append(s.Today, b)
		case b.Date > date && len(s.Upcoming) < summaryListLimit:
			s.Upcoming = append(s.Upcoming, b)
		}
	}

	for i, o := range orders {
		s.OrderRevenue += o.TotalAmount
		s.OrderDP += o.DPAmount
		if i < summaryListLimit {
			s.RecentOrders = append(s.RecentOrders, o)
		}
	}
	return s, nil
}
