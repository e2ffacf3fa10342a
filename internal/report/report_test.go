package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/studio-bookings/internal/adapters/memory"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) (*memory.OrderStore, *memory.BookingStore, *memory.PackageStore) {
	t.Helper()
	ctx := context.Background()
	orders := memory.NewOrderStore()
	bookings := memory.NewBookingStore()
	packages := memory.NewPackageStore(domain.Package{ID: "akad", Name: "Akad", Price: 3_000_000})

	o := domain.NewOrder(domain.OrderInput{ClientName: "Dewi", TotalAmount: 1_000_000, DPAmount: 1_000_000, PaymentStatus: domain.PaymentPaid}, "Rina", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, orders.Create(ctx, o))

	live := domain.NewBooking(domain.BookingDraft{ClientName: "Ayu", ClientPhone: "0811", Date: "2025-03-20", Time: "08:00", SelectedPackage: "akad"}, domain.StatusConfirmed, "Rina", time.Now())
	live.Payments = []domain.Payment{{ID: "p1", Amount: 1_000_000, Type: domain.PaymentDownPayment}}
	require.NoError(t, bookings.Insert(ctx, live))

	pending := domain.NewBooking(domain.BookingDraft{ClientName: "Tia", ClientPhone: "0822", Date: "2025-03-21", Time: "08:00", PackagePrice: 9_000_000}, domain.StatusPending, "", time.Now())
	require.NoError(t, bookings.Insert(ctx, pending))

	return orders, bookings, packages
}

func TestTransactions_Build(t *testing.T) {
	orders, bookings, packages := seed(t)
	tx := report.NewTransactions(orders, bookings, packages, observability.NewDiscardLogger())

	res, err := tx.Build(context.Background(), domain.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2, "pending bookings are not transactions")
	assert.Equal(t, domain.KindBooking, res.Items[0].Kind(), "newest first")

	bt, ok := res.Items[0].(domain.BookingTransaction)
	require.True(t, ok)
	assert.Equal(t, "Akad", bt.ServiceName)
	assert.Equal(t, domain.PaymentPartial, bt.Status())

	assert.Equal(t, int64(4_000_000), res.Totals.Revenue)
	assert.Equal(t, int64(2_000_000), res.Totals.Paid)
	assert.Equal(t, int64(2_000_000), res.Totals.Outstanding)

	res, err = tx.Build(context.Background(), domain.TransactionFilter{Status: domain.PaymentPaid})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, domain.KindOrder, res.Items[0].Kind())
	assert.Equal(t, int64(4_000_000), res.Totals.Revenue, "totals ignore the filter")
}

type failingOrders struct{}

func (failingOrders) List(context.Context) ([]domain.Order, error) {
	return nil, domain.Unavailable(errors.New("connection refused"), "list orders")
}

func TestTransactions_StoreFailure(t *testing.T) {
	_, bookings, packages := seed(t)
	tx := report.NewTransactions(failingOrders{}, bookings, packages, observability.NewDiscardLogger())

	_, err := tx.Build(context.Background(), domain.TransactionFilter{})
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

func TestDashboard_Build(t *testing.T) {
	orders, bookings, packages := seed(t)
	ctx := context.Background()

	paid := domain.NewBooking(domain.BookingDraft{ClientName: "Sinta", ClientPhone: "0833", Date: "2025-03-25", Time: "09:00", PackagePrice: 2_000_000}, domain.StatusConfirmed, "Rina", time.Now())
	paid.Payments = []domain.Payment{
		{ID: "p2", Amount: 500_000, Type: domain.PaymentDownPayment},
		{ID: "p3", Amount: 1_500_000, Type: domain.PaymentFinal},
	}
	require.NoError(t, bookings.Insert(ctx, paid))
	cancelled := domain.NewBooking(domain.BookingDraft{ClientName: "Wulan", ClientPhone: "0844", Date: "2025-03-22", Time: "09:00"}, domain.StatusCancelled, "Rina", time.Now())
	require.NoError(t, bookings.Insert(ctx, cancelled))

	wib := time.FixedZone("WIB", 7*3600)
	today := time.Date(2025, 3, 20, 7, 0, 0, 0, wib)
	s, err := report.NewDashboard(orders, bookings, packages, observability.NewDiscardLogger()).Build(ctx, today)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-20", s.Date)
	assert.Equal(t, 4, s.TotalBookings)
	assert.Equal(t, 1, s.PendingBookings)
	assert.Equal(t, 2, s.ConfirmedBookings)
	assert.Equal(t, 1, s.ConfirmedPaid, "the akad booking is only partly paid against the live price")

	require.Len(t, s.Today, 1)
	assert.Equal(t, "Ayu", s.Today[0].ClientName)
	require.Len(t, s.Upcoming, 1)
	assert.Equal(t, "Sinta", s.Upcoming[0].ClientName)

	assert.Equal(t, int64(1_000_000), s.OrderRevenue)
	assert.Equal(t, int64(1_000_000), s.OrderDP)
	assert.Len(t, s.RecentOrders, 1)
}

func TestDashboard_Empty(t *testing.T) {
	s, err := report.NewDashboard(memory.NewOrderStore(), memory.NewBookingStore(), nil, observability.NewDiscardLogger()).
		Build(context.Background(), time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, s.TotalBookings)
	assert.NotNil(t, s.Upcoming)
	assert.NotNil(t, s.RecentOrders)
}
