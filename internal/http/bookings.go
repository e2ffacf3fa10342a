package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/studio-bookings/internal/domain"
)

// Calendar serves the month grid. year and month default to the current
// month; lang selects the month and weekday names.
func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	today := h.bookings.Today()
	year, month := today.Year(), today.Month()
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, domain.Invalid("year %q is not a number", v))
			return
		}
		year = y
	}
	if v := q.Get("month"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(w, r, domain.Invalid("month %q is not a number", v))
			return
		}
		month = time.Month(m)
	}

	view, err := h.bookings.Calendar(r.Context(), year, month, q.Get("lang"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	enforced, advertised := h.bookings.Capacity()
	writeJSON(w, http.StatusOK, calendarResponse{MonthView: view, DailyCapacity: enforced, AdvertisedCapacity: advertised})
}

func (h *Handlers) CalendarDay(w http.ResponseWriter, r *http.Request) {
	day, err := h.bookings.Day(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// SubmitBooking is the public booking form. The created booking is Pending.
func (h *Handlers) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.Submit(r.Context(), req.draft(), r.URL.Query().Get("lang"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.BookingFilter{Date: q.Get("date"), From: q.Get("from"), To: q.Get("to")}
	if v := q.Get("status"); v != "" {
		st, err := domain.ParseBookingStatus(v)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		f.Status = st
	}
	list, err := h.bookings.List(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req staffBookingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.CreateByStaff(r.Context(), req.draft(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	d, err := h.bookings.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingPatchRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.Update(r.Context(), chi.URLParam(r, "id"), req.patch(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.bookings.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	b, err := h.bookings.SetStatus(r.Context(), chi.URLParam(r, "id"), domain.BookingStatus(req.Status), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.bookings.AddPayment(r.Context(), chi.URLParam(r, "id"), req.input(), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) RemovePayment(w http.ResponseWriter, r *http.Request) {
	err := h.bookings.RemovePayment(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "paymentID"), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Invoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.bookings.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handlers) BookingNotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := h.bookings.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	text, err := h.bookings.RenderedNotes(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notesResponse{Notes: b.Notes, Text: text})
}

func (h *Handlers) AppendBookingNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.bookings.AppendNote(r.Context(), chi.URLParam(r, "id"), req.Body, actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (h *Handlers) ReplaceBookingNotes(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.bookings.ReplaceNotes(r.Context(), chi.URLParam(r, "id"), req.Body, actorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ClearBookingNotes(w http.ResponseWriter, r *http.Request) {
	if err := h.bookings.ClearNotes(r.Context(), chi.URLParam(r, "id"), actorFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) EditBookingNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	err := h.bookings.EditNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"), req.Body, actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteBookingNote(w http.ResponseWriter, r *http.Request) {
	err := h.bookings.DeleteNote(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "noteID"), actorFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
