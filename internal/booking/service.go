package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Service runs the booking lifecycle: calendar checks, status changes, the
// payment ledger, the notes trail and invoice projection.
type Service struct {
	store    Store
	packages PackageLookup
	notifier Notifier
	auditor  Auditor
	locker   DateLocker
	policy   domain.TransitionPolicy
	logger   observability.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	loc      *time.Location

	capacity   int
	advertised int
	lockTTL    time.Duration
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithAuditor(a Auditor) Option { return func(s *Service) { s.auditor = a } }

// WithDateLocker enables the per-date submission guard. Without it two
// concurrent submissions for the last slot of a day may both succeed.
func WithDateLocker(l DateLocker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func WithPolicy(p domain.TransitionPolicy) Option { return func(s *Service) { s.policy = p } }

func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

func WithCapacity(enforced, advertised int) Option {
	return func(s *Service) {
		s.capacity = enforced
		s.advertised = advertised
	}
}

func NewService(store Store, packages PackageLookup, logger observability.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		packages:   packages,
		policy:     domain.Permissive{},
		logger:     logger,
		now:        time.Now,
		loc:        time.UTC,
		capacity:   domain.DefaultDailyCapacity,
		advertised: domain.AdvertisedDailyCapacity,
		lockTTL:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return s
}

// Capacity reports the enforced and the advertised per-day limits.
func (s *Service) Capacity() (enforced, advertised int) {
	return s.capacity, s.advertised
}

// Today is the current instant in the studio time zone.
func (s *Service) Today() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) stamp(actor string) domain.Stamp {
	return domain.Stamp{By: actor, At: s.now().UTC()}
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "booking."+name, trace.WithAttributes(attrs...))
}

// Calendar classifies every day of a month. Cancelled bookings do not count
// toward occupancy.
func (s *Service) Calendar(ctx context.Context, year int, month time.Month, lang string) (domain.MonthView, error) {
	if month < time.January || month > time.December {
		return domain.MonthView{}, domain.Invalid("month %d out of range", month)
	}
	from, to := domain.MonthBounds(year, month)
	bookings, err := s.store.List(ctx, domain.BookingFilter{From: from, To: to, ExcludeStatus: domain.StatusCancelled})
	if err != nil {
		return domain.MonthView{}, err
	}
	return domain.MonthGrid(year, month, s.Today(), domain.CountByDate(bookings), s.capacity, lang), nil
}

// Day classifies a single date.
func (s *Service) Day(ctx context.Context, date string) (domain.DayStatus, error) {
	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.DayStatus{}, err
	}
	bookings, err := s.store.List(ctx, domain.BookingFilter{Date: date, ExcludeStatus: domain.StatusCancelled})
	if err != nil {
		return domain.DayStatus{}, err
	}
	return domain.Classify(d, s.Today(), len(bookings), s.capacity), nil
}

// Submit creates a Pending booking from a public request. The date must be
// selectable. The notifier runs once after the insert; its failure is logged
// and never fails the submission.
func (s *Service) Submit(ctx context.Context, d domain.BookingDraft, lang string) (domain.Booking, error) {
	ctx, span := s.span(ctx, "Submit", attribute.String("booking.date", d.Date))
	defer span.End()

	if err := d.Validate(); err != nil {
		return domain.Booking{}, err
	}

	if s.locker != nil {
		token := uuid.NewString()
		ok, err := s.locker.LockDate(ctx, d.Date, token, s.lockTTL)
		if err != nil {
			return domain.Booking{}, err
		}
		if !ok {
			return domain.Booking{}, errors.Wrapf(domain.ErrConflict, "another submission for %s is in progress", d.Date)
		}
		defer func() {
			if err := s.locker.UnlockDate(context.WithoutCancel(ctx), d.Date, token); err != nil {
				s.logger.WithError(err).WithField("date", d.Date).Warn("failed to release date lock")
			}
		}()
	}

	day, err := s.Day(ctx, d.Date)
	if err != nil {
		return domain.Booking{}, err
	}
	if !day.Selectable {
		return domain.Booking{}, errors.Mark(errors.Newf("%s is %s", d.Date, day.State), domain.ErrDateUnavailable)
	}

	b := domain.NewBooking(d, domain.StatusPending, "", s.now().UTC())
	if err := s.store.Insert(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.metrics.BookingsCreated.WithLabelValues("public").Inc()
	s.logger.WithFields(map[string]interface{}{"booking_id": b.ID, "date": b.Date}).Info("booking submitted")

	if s.notifier != nil {
		if err := s.notifier.BookingCreated(ctx, b, domain.NormalizeLang(lang)); err != nil {
			s.metrics.NotifyFailures.Inc()
			s.logger.WithError(err).WithField("booking_id", b.ID).Error("booking notification failed")
		}
	}
	return b, nil
}

// CreateByStaff records a booking taken by staff. It starts Confirmed, skips
// the capacity check and snapshots the package price when none was given.
func (s *Service) CreateByStaff(ctx context.Context, d domain.BookingDraft, actor string) (domain.Booking, error) {
	if err := d.Validate(); err != nil {
		return domain.Booking{}, err
	}
	if d.PackagePrice == 0 && d.SelectedPackage != "" {
		pkg, err := s.lookupPackage(ctx, d.SelectedPackage)
		if err != nil {
			return domain.Booking{}, err
		}
		if pkg != nil {
			d.PackagePrice = pkg.Price
		}
	}

	b := domain.NewBooking(d, domain.StatusConfirmed, actor, s.now().UTC())
	if err := s.store.Insert(ctx, b); err != nil {
		return domain.Booking{}, err
	}
	s.metrics.BookingsCreated.WithLabelValues("staff").Inc()
	s.audit(ctx, "booking.created", actor, b.ID, map[string]interface{}{"date": b.Date, "price": b.PackagePrice})
	return b, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Booking, error) {
	return s.store.Get(ctx, id)
}

// Detail is a booking together with its resolved package and derived
// payment figures.
type Detail struct {
	Booking domain.Booking        `json:"booking"`
	Package *domain.Package       `json:"package,omitempty"`
	Summary domain.PaymentSummary `json:"summary"`
}

func (s *Service) Detail(ctx context.Context, id string) (Detail, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	pkg := s.resolvePackage(ctx, b.SelectedPackage)
	return Detail{Booking: b, Package: pkg, Summary: domain.Summarize(b, pkg)}, nil
}

func (s *Service) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	return s.store.List(ctx, f)
}

// ListByDate returns every booking on date, cancelled ones included, ordered by time.
func (s *Service) ListByDate(ctx context.Context, date string) ([]domain.Booking, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	return s.store.List(ctx, domain.BookingFilter{Date: date})
}

func (s *Service) Update(ctx context.Context, id string, p domain.BookingPatch, actor string) (domain.Booking, error) {
	if err := p.Validate(); err != nil {
		return domain.Booking{}, err
	}
	if err := s.store.Update(ctx, id, p, s.stamp(actor)); err != nil {
		return domain.Booking{}, err
	}
	s.audit(ctx, "booking.updated", actor, id, nil)
	return s.store.Get(ctx, id)
}

// SetStatus moves a booking to status and records who did it. The first move
// to Confirmed snapshots the live package price when none is stored yet.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.BookingStatus, actor string) (domain.Booking, error) {
	ctx, span := s.span(ctx, "SetStatus", attribute.String("booking.id", id), attribute.String("booking.status", string(status)))
	defer span.End()

	status, err := domain.ParseBookingStatus(string(status))
	if err != nil {
		return domain.Booking{}, err
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if err := s.policy.Allow(current.Status, status); err != nil {
		return domain.Booking{}, err
	}
	if err := s.store.SetStatus(ctx, id, status, s.stamp(actor)); err != nil {
		return domain.Booking{}, err
	}
	s.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()

	if status == domain.StatusConfirmed && current.PackagePrice == 0 && current.SelectedPackage != "" {
		pkg, err := s.lookupPackage(ctx, current.SelectedPackage)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", id).Warn("price snapshot skipped")
		} else if pkg != nil {
			if err := s.store.SnapshotPrice(ctx, id, pkg.Price); err != nil {
				s.logger.WithError(err).WithField("booking_id", id).Warn("price snapshot failed")
			}
		}
	}

	s.audit(ctx, "booking.status_changed", actor, id, map[string]interface{}{"from": string(current.Status), "to": string(status)})
	return s.store.Get(ctx, id)
}

// Delete removes a booking permanently.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "booking.deleted", actor, id, nil)
	return nil
}

// AddPayment appends an immutable payment to the booking's ledger.
func (s *Service) AddPayment(ctx context.Context, id string, in domain.PaymentInput, actor string) (domain.Payment, error) {
	ctx, span := s.span(ctx, "AddPayment", attribute.String("booking.id", id), attribute.Int64("payment.amount", in.Amount))
	defer span.End()

	if err := in.Validate(); err != nil {
		return domain.Payment{}, err
	}
	p := domain.NewPayment(in, s.now().UTC())
	if err := s.store.PushPayment(ctx, id, p, s.stamp(actor)); err != nil {
		return domain.Payment{}, err
	}
	s.metrics.PaymentsRecorded.WithLabelValues(string(p.Type)).Inc()
	s.metrics.PaymentAmount.Add(float64(p.Amount))
	s.audit(ctx, "payment.added", actor, id, map[string]interface{}{"payment_id": p.ID, "amount": p.Amount, "type": string(p.Type)})
	return p, nil
}

// RemovePayment drops one payment by id. An unknown payment id is not an error.
func (s *Service) RemovePayment(ctx context.Context, id, paymentID, actor string) error {
	if err := s.store.PullPayment(ctx, id, paymentID, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "payment.removed", actor, id, map[string]interface{}{"payment_id": paymentID})
	return nil
}

// Invoice projects the booking into a printable statement. It performs no writes.
func (s *Service) Invoice(ctx context.Context, id string) (domain.Invoice, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return domain.BuildInvoice(b, s.resolvePackage(ctx, b.SelectedPackage), s.now().UTC()), nil
}

func (s *Service) AppendNote(ctx context.Context, id, body, actor string) (domain.Note, error) {
	if err := domain.ValidateNoteBody(body); err != nil {
		return domain.Note{}, err
	}
	st := s.stamp(actor)
	n := domain.NewNote(body, actor, st.At)
	if err := s.store.PushNote(ctx, id, n, st); err != nil {
		return domain.Note{}, err
	}
	s.audit(ctx, "note.appended", actor, id, map[string]interface{}{"note_id": n.ID})
	return n, nil
}

// ReplaceNotes overwrites the whole trail with a single block by actor.
func (s *Service) ReplaceNotes(ctx context.Context, id, body, actor string) error {
	if err := domain.ValidateNoteBody(body); err != nil {
		return err
	}
	st := s.stamp(actor)
	if err := s.store.SetNotes(ctx, id, []domain.Note{domain.NewNote(body, actor, st.At)}, st); err != nil {
		return err
	}
	s.audit(ctx, "notes.replaced", actor, id, nil)
	return nil
}

func (s *Service) ClearNotes(ctx context.Context, id, actor string) error {
	if err := s.store.SetNotes(ctx, id, []domain.Note{}, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "notes.cleared", actor, id, nil)
	return nil
}

func (s *Service) EditNote(ctx context.Context, id, noteID, body, actor string) error {
	if err := domain.ValidateNoteBody(body); err != nil {
		return err
	}
	if err := s.store.EditNote(ctx, id, noteID, body, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "note.edited", actor, id, map[string]interface{}{"note_id": noteID})
	return nil
}

func (s *Service) DeleteNote(ctx context.Context, id, noteID, actor string) error {
	if err := s.store.PullNote(ctx, id, noteID, s.stamp(actor)); err != nil {
		return err
	}
	s.audit(ctx, "note.deleted", actor, id, map[string]interface{}{"note_id": noteID})
	return nil
}

// RenderedNotes returns the notes trail in its plain-text form, using the
// studio's timezone for timestamps.
func (s *Service) RenderedNotes(ctx context.Context, id string) (string, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return domain.RenderNotes(b.Notes, s.loc), nil
}

// lookupPackage returns nil without error when the package does not exist.
func (s *Service) lookupPackage(ctx context.Context, id string) (*domain.Package, error) {
	if s.packages == nil || id == "" {
		return nil, nil
	}
	pkg, err := s.packages.Package(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// resolvePackage is lookupPackage for read paths: failures degrade to "no package".
func (s *Service) resolvePackage(ctx context.Context, id string) *domain.Package {
	pkg, err := s.lookupPackage(ctx, id)
	if err != nil {
		s.logger.WithError(err).WithField("package_id", id).Warn("package lookup failed")
		return nil
	}
	return pkg
}

func (s *Service) audit(ctx context.Context, action, actor, subject string, data map[string]interface{}) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogEvent(ctx, action, actor, subject, data); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit log write failed")
	}
}
