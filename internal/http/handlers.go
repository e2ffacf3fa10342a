package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/orders"
	"github.com/robertarktes/studio-bookings/internal/report"
)

// PackageLister serves the public package catalogue.
type PackageLister interface {
	List(ctx context.Context) ([]domain.Package, error)
}

// Pinger is a dependency checked by the readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	bookings     *booking.Service
	orders       *orders.Service
	transactions *report.Transactions
	dashboard    *report.Dashboard
	packages     PackageLister
	readiness    map[string]Pinger
	validate     *validator.Validate
	logger       observability.Logger
}

func NewHandlers(bookings *booking.Service, orders *orders.Service, transactions *report.Transactions, dashboard *report.Dashboard, packages PackageLister, readiness map[string]Pinger, logger observability.Logger) *Handlers {
	return &Handlers{
		bookings:     bookings,
		orders:       orders,
		transactions: transactions,
		dashboard:    dashboard,
		packages:     packages,
		readiness:    readiness,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		logger:       logger,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransitionNotAllowed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDateUnavailable), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		requestLogger(r, h.logger).WithError(err).Error("request failed")
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

// decode reads a JSON body into dst and runs struct validation on it.
func (h *Handlers) decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Mark(errors.Wrap(err, "decode body"), domain.ErrInvalidInput)
	}
	if err := h.validate.Struct(dst); err != nil {
		return errors.Mark(err, domain.ErrInvalidInput)
	}
	return nil
}

func (h *Handlers) ListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := h.packages.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pkgs)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Readyz pings every registered dependency and reports each one.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.readiness))
	status := http.StatusOK
	for name, p := range h.readiness {
		if err := p.Ping(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, checks)
}
