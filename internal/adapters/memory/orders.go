package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/robertarktes/studio-bookings/internal/domain"
)

type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]domain.Order)}
}

func (m *OrderStore) Create(_ context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return domain.ErrConflict
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *OrderStore) Get(_ context.Context, id string) (domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *OrderStore) List(_ context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *OrderStore) Update(_ context.Context, id string, in domain.OrderInput, st domain.Stamp) error {
	return m.mutate(id, st, func(o *domain.Order) {
		o.ClientName = strings.TrimSpace(in.ClientName)
		o.ClientPhone = strings.TrimSpace(in.ClientPhone)
		o.TotalAmount = in.TotalAmount
		o.DPAmount = in.DPAmount
		o.PaymentStatus = in.PaymentStatus
		o.Items = domain.CleanItems(in.Items)
	})
}

func (m *OrderStore) SetPaymentStatus(_ context.Context, id string, status domain.PaymentStatus, st domain.Stamp) error {
	return m.mutate(id, st, func(o *domain.Order) { o.PaymentStatus = status })
}

func (m *OrderStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *OrderStore) AppendNote(_ context.Context, id string, n domain.Note, st domain.Stamp) error {
	return m.mutate(id, st, func(o *domain.Order) { o.Notes = append(o.Notes, n) })
}

func (m *OrderStore) SetNotes(_ context.Context, id string, notes []domain.Note, st domain.Stamp) error {
	return m.mutate(id, st, func(o *domain.Order) { o.Notes = append([]domain.Note{}, notes...) })
}

func (m *OrderStore) EditNote(_ context.Context, id, noteID, body string, st domain.Stamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	notes, found := domain.EditNote(o.Notes, noteID, body)
	if !found {
		return domain.ErrNotFound
	}
	o.Notes = notes
	o.LastUpdatedBy, o.UpdatedAt = st.By, st.At
	m.orders[id] = o
	return nil
}

func (m *OrderStore) DeleteNote(_ context.Context, id, noteID string, st domain.Stamp) error {
	return m.mutate(id, st, func(o *domain.Order) { o.Notes = domain.RemoveNote(o.Notes, noteID) })
}

func (m *OrderStore) mutate(id string, st domain.Stamp, fn func(o *domain.Order)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&o)
	o.LastUpdatedBy, o.UpdatedAt = st.By, st.At
	m.orders[id] = o
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]string{}, o.Items...)
	o.Notes = append([]domain.Note{}, o.Notes...)
	return o
}
