package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.orders.Create(r.Context(), req.input(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.orders.Update(r.Context(), chi.URLParam(r, "id"), req.input(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) SetOrderPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req paymentStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	o, err := h.orders.SetPaymentStatus(r.Context(), chi.URLParam(r, "id"), domain.PaymentStatus(req.PaymentStatus), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AppendOrderNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.orders.AppendNote(r.Context(), chi.URLParam(r, "id"), req.Body, actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handlers) ReplaceOrderNotes(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.orders.ReplaceNotes(r.Context(), chi.URLParam(r, "id"), req.Body, actorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearOrderNotes(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.ClearNotes(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) EditOrderNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	err := h.orders.EditNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"), req.Body, actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteOrderNote(w http.ResponseWriter, r *http.Request) {
	err := h.orders.DeleteNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions is the combined ledger of orders and confirmed bookings.
// Totals always cover the unfiltered set.
func (h *Handlers) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.TransactionFilter{Search: q.Get("q")}
	switch k := domain.TransactionKind(q.Get("kind")); k {
	case "", "all":
	case domain.KindOrder, domain.KindBooking:
		f.Kind = k
	default:
		h.writeError(w, r, domain.Invalid("unknown transaction kind %q", k))
		return
	}
	if v := q.Get("payment_status"); v != "" {
		st, err := domain.ParsePaymentStatus(v)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		f.Status = st
	}

	res, err := h.transactions.Build(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]transactionItem, 0, len(res.Items))
	for _, t := range res.Items {
		items = append(items, newTransactionItem(t))
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Items: items, Totals: res.Totals})
}

// Summary serves the staff dashboard figures for today in the studio zone.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.dashboard.Build(r.Context(), h.bookings.Today())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
