// Package memory keeps bookings, packages and orders in process memory. It
// backs local runs and the service and HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]domain.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[string]domain.Booking)}
}

func (m *BookingStore) Insert(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; ok {
		return domain.ErrConflict
	}
	m.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (m *BookingStore) Get(_ context.Context, id string) (domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (m *BookingStore) List(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		if f.Match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *BookingStore) Update(_ context.Context, id string, p domain.BookingPatch, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) { p.Apply(b) })
}

func (m *BookingStore) SetStatus(_ context.Context, id string, status domain.BookingStatus, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) { b.Status = status })
}

func (m *BookingStore) SnapshotPrice(_ context.Context, id string, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.PackagePrice != 0 {
		return nil
	}
	b.PackagePrice = price
	m.bookings[id] = b
	return nil
}

func (m *BookingStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *BookingStore) PushPayment(_ context.Context, id string, p domain.Payment, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) { b.Payments = append(b.Payments, p) })
}

func (m *BookingStore) PullPayment(_ context.Context, id, paymentID string, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) {
		kept := make([]domain.Payment, 0, len(b.Payments))
		for _, p := range b.Payments {
			if p.ID != paymentID {
				kept = append(kept, p)
			}
		}
		b.Payments = kept
	})
}

func (m *BookingStore) PushNote(_ context.Context, id string, n domain.Note, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) { b.Notes = append(b.Notes, n) })
}

func (m *BookingStore) EditNote(_ context.Context, id, noteID, body string, st domain.Stamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	notes, found := domain.EditNote(b.Notes, noteID, body)
	if !found {
		return domain.ErrNotFound
	}
	b.Notes = notes
	stampBooking(&b, st)
	m.bookings[id] = b
	return nil
}

func (m *BookingStore) PullNote(_ context.Context, id, noteID string, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) { b.Notes = domain.RemoveNote(b.Notes, noteID) })
}

func (m *BookingStore) SetNotes(_ context.Context, id string, notes []domain.Note, st domain.Stamp) error {
	return m.mutate(id, st, func(b *domain.Booking) { b.Notes = append([]domain.Note{}, notes...) })
}

func (m *BookingStore) mutate(id string, st domain.Stamp, fn func(b *domain.Booking)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&b)
	stampBooking(&b, st)
	m.bookings[id] = b
	return nil
}

func stampBooking(b *domain.Booking, st domain.Stamp) {
	b.LastUpdatedBy = st.By
	b.UpdatedAt = st.At
}

// cloneBooking detaches the slices so callers never share backing arrays
// with the store.
func cloneBooking(b domain.Booking) domain.Booking {
	b.Payments = append([]domain.Payment{}, b.Payments...)
	b.Notes = append([]domain.Note{}, b.Notes...)
	return b
}
