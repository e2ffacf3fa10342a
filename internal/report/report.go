package report

import (
	"context"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"golang.org/x/sync/errgroup"
)

type OrderLister interface {
	List(ctx context.Context) ([]domain.Order, error)
}

type BookingLister interface {
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
}

type PackageLookup interface {
	Package(ctx context.Context, id string) (*domain.Package, error)
}

// Transactions merges manual orders and confirmed bookings into one
// reporting view. Each variant keeps its own payment model.
type Transactions struct {
	orders   OrderLister
	bookings BookingLister
	packages PackageLookup
	logger   observability.Logger
}

func NewTransactions(orders OrderLister, bookings BookingLister, packages PackageLookup, logger observability.Logger) *Transactions {
	return &Transactions{orders: orders, bookings: bookings, packages: packages, logger: logger}
}

type Result struct {
	Items []domain.Transaction
	// Totals cover every transaction, not just the filtered items.
	Totals domain.TransactionTotals
}

func (t *Transactions) Build(ctx context.Context, f domain.TransactionFilter) (Result, error) {
	var (
		orders   []domain.Order
		bookings []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = t.orders.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = t.bookings.List(gctx, domain.BookingFilter{Status: domain.StatusConfirmed})
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	pkgs := resolvePackages(ctx, t.packages, t.logger, bookings)
	all := make([]domain.Transaction, 0, len(orders)+len(bookings))
	for _, o := range orders {
		all = append(all, domain.OrderTransaction{Order: o})
	}
	for _, b := range bookings {
		all = append(all, domain.NewBookingTransaction(b, pkgs[b.SelectedPackage]))
	}

	return Result{
		Items:  domain.FilterTransactions(all, f),
		Totals: domain.SumTransactions(all),
	}, nil
}

// resolvePackages looks each distinct package up once. Missing or failing
// lookups leave the booking on its snapshot price and the default name.
func resolvePackages(ctx context.Context, packages PackageLookup, logger observability.Logger, bookings []domain.Booking) map[string]*domain.Package {
	out := map[string]*domain.Package{}
	if packages == nil {
		return out
	}
	for _, b := range bookings {
		id := b.SelectedPackage
		if id == "" {
			continue
		}
		if _, seen := out[id]; seen {
			continue
		}
		pkg, err := packages.Package(ctx, id)
		if err != nil {
			logger.WithError(err).WithField("package_id", id).Debug("package unresolved")
			pkg = nil
		}
		out[id] = pkg
	}
	return out
}
