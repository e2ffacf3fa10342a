package booking

import (
	"context"
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

// Store is the persisted-state boundary for bookings. Every mutating method is
// a single atomic update of one booking; array fields are never rewritten from
// a client-side copy. Methods return domain.ErrNotFound when the booking does
// not exist and an error marked domain.ErrStoreUnavailable when the backend
// call fails.
type Store interface {
	Insert(ctx context.Context, b domain.Booking) error
	Get(ctx context.Context, id string) (domain.Booking, error)
	// List returns matching bookings ordered by date, then time.
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	Update(ctx context.Context, id string, p domain.BookingPatch, st domain.Stamp) error
	SetStatus(ctx context.Context, id string, status domain.BookingStatus, st domain.Stamp) error
	// SnapshotPrice sets package_price only while it is still unset. It is a
	// no-op when a price is already present.
	SnapshotPrice(ctx context.Context, id string, price int64) error
	Delete(ctx context.Context, id string) error

	PushPayment(ctx context.Context, id string, p domain.Payment, st domain.Stamp) error
	// PullPayment succeeds when paymentID is absent from the ledger.
	PullPayment(ctx context.Context, id, paymentID string, st domain.Stamp) error

	PushNote(ctx context.Context, id string, n domain.Note, st domain.Stamp) error
	// EditNote returns domain.ErrNotFound when either the booking or the note is missing.
	EditNote(ctx context.Context, id, noteID, body string, st domain.Stamp) error
	PullNote(ctx context.Context, id, noteID string, st domain.Stamp) error
	SetNotes(ctx context.Context, id string, notes []domain.Note, st domain.Stamp) error
}

// PackageLookup resolves a package id to its name and live price.
type PackageLookup interface {
	Package(ctx context.Context, id string) (*domain.Package, error)
}

// Notifier is told about new public submissions. Delivery is its concern.
type Notifier interface {
	BookingCreated(ctx context.Context, b domain.Booking, lang string) error
}

// Auditor records staff actions in an append-only log.
type Auditor interface {
	LogEvent(ctx context.Context, action, actor, subject string, data map[string]interface{}) error
}

// DateLocker serialises public submissions for one calendar date.
type DateLocker interface {
	LockDate(ctx context.Context, date, token string, ttl time.Duration) (bool, error)
	UnlockDate(ctx context.Context, date, token string) error
}
