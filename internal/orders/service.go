package orders

import (
	"context"
	"time"

	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

// Store persists manual orders. Methods return domain.ErrNotFound for a
// missing order.
type Store interface {
	Create(ctx context.Context, o domain.Order) error
	Get(ctx context.Context, id string) (domain.Order, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, id string, in domain.OrderInput, st domain.Stamp) error
	SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, st domain.Stamp) error
	Delete(ctx context.Context, id string) error

	AppendNote(ctx context.Context, id string, n domain.Note, st domain.Stamp) error
	SetNotes(ctx context.Context, id string, notes []domain.Note, st domain.Stamp) error
	EditNote(ctx context.Context, id, noteID, body string, st domain.Stamp) error
	DeleteNote(ctx context.Context, id, noteID string, st domain.Stamp) error
}

// Auditor records staff actions in an append-only log.
type Auditor interface {
	LogEvent(ctx context.Context, action, actor, subject string, data map[string]interface{}) error
}

// Service handles manually entered orders. Their payment status is chosen by
// staff and is never derived.
type Service struct {
	store   Store
	auditor Auditor
	logger  observability.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithAuditor(a Auditor) Option { return func(s *Service) { s.auditor = a } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, logger observability.Logger, opts ...Option) *Service {
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) audit(ctx context.Context, action, actor, subject string, data map[string]interface{}) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogEvent(ctx, action, actor, subject, data); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}

func (s *Service) stamp(actor string) domain.Stamp {
	return domain.Stamp{By: actor, At: s.now().UTC()}
}

func (s *Service) Create(ctx context.Context, in domain.OrderInput, actor string) (domain.Order, error) {
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}
	o := domain.NewOrder(in, actor, s.now().UTC())
	if err := s.store.Create(ctx, o); err != nil {
		return domain.Order{}, err
	}
	s.logger.WithField("order_id", o.ID).Info("order created")
	s.audit(ctx, "order.created", actor, o.ID, map[string]interface{}{"total": o.TotalAmount, "payment_status": string(o.PaymentStatus)})
	return o, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.store.List(ctx)
}

// Update replaces every editable field of the order.
func (s *Service) Update(ctx context.Context, id string, in domain.OrderInput, actor string) (domain.Order, error) {
	if err := in.Validate(); err != nil {
		return domain.Order{}, err
	}
	if err := s.store.Update(ctx, id, in, s.stamp(actor)); err != nil {
		return domain.Order{}, err
	}
	s.audit(ctx, "order.updated", actor, id, nil)
	return s.store.Get(ctx, id)
}

func (s *Service) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, actor string) (domain.Order, error) {
	status, err := domain.ParsePaymentStatus(string(status))
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.store.SetPaymentStatus(ctx, id, status, s.stamp(actor)); err != nil {
		return domain.Order{}, err
	}
	s.audit(ctx, "order.payment_status_changed", actor, id, map[string]interface{}{"to": string(status)})
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "order.deleted", actor, id, nil)
	return nil
}

func (s *Service) AppendNote(ctx context.Context, id, body, actor string) (domain.Note, error) {
	if err := domain.ValidateNoteBody(body); err != nil {
		return domain.Note{}, err
	}
	st := s.stamp(actor)
	n := domain.NewNote(body, actor, st.At)
	if err := s.store.AppendNote(ctx, id, n, st); err != nil {
		return domain.Note{}, err
	}
	s.audit(ctx, "order.note_appended", actor, id, map[string]interface{}{"note_id": n.ID})
	return n, nil
}

func (s *Service) ReplaceNotes(ctx context.Context, id, body, actor string) error {
	if err := domain.ValidateNoteBody(body); err != nil {
		return err
	}
	st := s.stamp(actor)
	if err := s.store.SetNotes(ctx, id, []domain.Note{domain.NewNote(body, actor, st.At)}, st); err != nil {
		return err
	}
	s.audit(ctx, "order.notes_replaced", actor, id, nil)
	return nil
}

func (s *Service) ClearNotes(ctx context.Context, id, actor string) error {
	if err := s.store.SetNotes(ctx, id, []domain.Note{}, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "order.notes_cleared", actor, id, nil)
	return nil
}

func (s *Service) EditNote(ctx context.Context, id, noteID, body, actor string) error {
	if err := domain.ValidateNoteBody(body); err != nil {
		return err
	}
	if err := s.store.EditNote(ctx, id, noteID, body, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "order.note_edited", actor, id, map[string]interface{}{"note_id": noteID})
	return nil
}

func (s *Service) DeleteNote(ctx context.Context, id, noteID, actor string) error {
	if err := s.store.DeleteNote(ctx, id, noteID, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "order.note_deleted", actor, id, map[string]interface{}{"note_id": noteID})
	return nil
}
