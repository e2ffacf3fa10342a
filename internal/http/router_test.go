package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertarktes/studio-bookings/internal/adapters/memory"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/domain"
	api "github.com/robertarktes/studio-bookings/internal/http"
	"github.com/robertarktes/studio-bookings/internal/idempotency"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/orders"
	"github.com/robertarktes/studio-bookings/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret-0123456789")

type memIdempotency struct {
	mu   sync.Mutex
	seen map[string]idempotency.Response
}

func (m *memIdempotency) Get(_ context.Context, key string) (*idempotency.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.seen[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memIdempotency) Set(_ context.Context, key string, resp idempotency.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[key] = resp
	return nil
}

type countingLimiter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (l *countingLimiter) Allow(_ context.Context, key string, rate int, _ time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[key]++
	return l.hits[key] <= rate
}

type testAPI struct {
	server   *httptest.Server
	bookings *memory.BookingStore
	idemp    *memIdempotency
	token    string
}

func newTestAPI(t *testing.T, opts ...booking.Option) *testAPI {
	t.Helper()
	logger := observability.NewDiscardLogger()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	bookingStore := memory.NewBookingStore()
	orderStore := memory.NewOrderStore()
	packages := memory.NewPackageStore(
		domain.Package{ID: "akad", Name: "Akad Nikah", Price: 5_000_000},
		domain.Package{ID: "resepsi", Name: "Resepsi", Price: 7_500_000},
	)

	base := []booking.Option{
		booking.WithClock(func() time.Time { return time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) }),
		booking.WithMetrics(metrics),
	}
	bookingSvc := booking.NewService(bookingStore, packages, logger, append(base, opts...)...)
	orderSvc := orders.NewService(orderStore, logger)
	tx := report.NewTransactions(orderStore, bookingStore, packages, logger)
	dash := report.NewDashboard(orderStore, bookingStore, packages, logger)

	idemp := &memIdempotency{seen: map[string]idempotency.Response{}}
	h := api.NewHandlers(bookingSvc, orderSvc, tx, dash, packages, nil, logger)
	router := api.SetupRouter(h, api.RouterConfig{
		JWTSecret:   secret,
		Logger:      logger,
		Metrics:     metrics,
		Gatherer:    reg,
		Limiter:     &countingLimiter{hits: map[string]int{}},
		Idempotency: idemp,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	token, err := api.NewStaffToken(secret, "Rina", "ADMIN_STUDIO", time.Hour)
	require.NoError(t, err)
	return &testAPI{server: srv, bookings: bookingStore, idemp: idemp, token: token}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (a *testAPI) staff(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	return a.do(t, method, path, body, "Authorization", "Bearer "+a.token)
}

func decodeInto(t *testing.T, raw []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, v), string(raw))
}

func publicBooking(date string) map[string]interface{} {
	return map[string]interface{}{
		"clientName":      "Nadia",
		"clientPhone":     "081234",
		"date":            date,
		"time":            "10:00",
		"selectedPackage": "akad",
	}
}

func TestPublic_CalendarAndSubmit(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.do(t, http.MethodPost, "/v1/bookings?lang=en", publicBooking("2025-03-10"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created domain.Booking
	decodeInto(t, body, &created)
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Zero(t, created.PackagePrice)

	resp, body = a.do(t, http.MethodGet, "/v1/calendar?year=2025&month=3&lang=en", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cal struct {
		MonthName          string             `json:"monthName"`
		Days               []domain.DayStatus `json:"days"`
		DailyCapacity      int                `json:"dailyCapacity"`
		AdvertisedCapacity int                `json:"advertisedCapacity"`
	}
	decodeInto(t, body, &cal)
	assert.Equal(t, "March", cal.MonthName)
	assert.Equal(t, 6, cal.DailyCapacity)
	assert.Equal(t, 4, cal.AdvertisedCapacity)
	require.Len(t, cal.Days, 31)
	assert.Equal(t, domain.DayBooked, cal.Days[9].State)

	resp, body = a.do(t, http.MethodGet, "/v1/calendar/2025-03-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var day domain.DayStatus
	decodeInto(t, body, &day)
	assert.Equal(t, 1, day.Bookings)

	resp, _ = a.do(t, http.MethodGet, "/v1/calendar?year=2025&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-01-15"))
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "past dates are not selectable")

	bad := publicBooking("2025-03-10")
	bad["time"] = "10am"
	resp, _ = a.do(t, http.MethodPost, "/v1/bookings", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	withPrice := publicBooking("2025-03-10")
	withPrice["packagePrice"] = 1
	resp, _ = a.do(t, http.MethodPost, "/v1/bookings", withPrice)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "public clients cannot set a price")

	resp, body = a.do(t, http.MethodGet, "/v1/packages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pkgs []domain.Package
	decodeInto(t, body, &pkgs)
	assert.Len(t, pkgs, 2)
}

func TestPublic_IdempotentSubmit(t *testing.T) {
	a := newTestAPI(t)
	key := "a1b2c3d4e5f6a7b8c9d0"

	first, body1 := a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-03-12"), "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second, body2 := a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-03-12"), "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replayed"))
	assert.JSONEq(t, string(body1), string(body2))

	list, err := a.bookings.List(context.Background(), domain.BookingFilter{Date: "2025-03-12"})
	require.NoError(t, err)
	assert.Len(t, list, 1, "replay must not create a second booking")

	other, body3 := a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-03-12"),
		"Idempotency-Key", key, "X-Real-IP", "203.0.113.9")
	require.Equal(t, http.StatusCreated, other.StatusCode)
	assert.Empty(t, other.Header.Get("Idempotent-Replayed"), "another client's key must not replay")
	assert.NotEqual(t, string(body1), string(body3))

	list, err = a.bookings.List(context.Background(), domain.BookingFilter{Date: "2025-03-12"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	resp, _ := a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-03-12"), "Idempotency-Key", "short")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublic_RateLimited(t *testing.T) {
	a := newTestAPI(t)
	var last int
	for i := 0; i < 11; i++ {
		resp, _ := a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-04-01"))
		last = resp.StatusCode
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestAdmin_RequiresStaffToken(t *testing.T) {
	a := newTestAPI(t)

	resp, _ := a.do(t, http.MethodGet, "/v1/admin/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/v1/admin/bookings", nil, "Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	client, err := api.NewStaffToken(secret, "Guest", "CLIENT", time.Hour)
	require.NoError(t, err)
	resp, _ = a.do(t, http.MethodGet, "/v1/admin/bookings", nil, "Authorization", "Bearer "+client)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	forged, err := api.NewStaffToken([]byte("other-secret"), "Eve", "ADMIN", time.Hour)
	require.NoError(t, err)
	resp, _ = a.do(t, http.MethodGet, "/v1/admin/bookings", nil, "Authorization", "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.staff(t, http.MethodGet, "/v1/admin/bookings", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdmin_BookingLifecycle(t *testing.T) {
	a := newTestAPI(t)

	req := publicBooking("2025-03-10")
	req["packagePrice"] = 5_000_000
	resp, body := a.staff(t, http.MethodPost, "/v1/admin/bookings", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var b domain.Booking
	decodeInto(t, body, &b)
	assert.Equal(t, domain.StatusConfirmed, b.Status)
	assert.Equal(t, "Rina", b.LastUpdatedBy)
	base := "/v1/admin/bookings/" + b.ID

	resp, _ = a.staff(t, http.MethodPut, base+"/status", map[string]string{"status": "Pending"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = a.staff(t, http.MethodPut, base+"/status", map[string]string{"status": "Confirmed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, body, &b)
	assert.Equal(t, domain.StatusConfirmed, b.Status)

	resp, _ = a.staff(t, http.MethodPut, base+"/status", map[string]string{"status": "Archived"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = a.staff(t, http.MethodPost, base+"/payments", map[string]interface{}{"amount": 1_000_000, "type": "dp", "method": "transfer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var p domain.Payment
	decodeInto(t, body, &p)

	resp, _ = a.staff(t, http.MethodPost, base+"/payments", map[string]interface{}{"amount": -5, "type": "dp"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = a.staff(t, http.MethodGet, base+"/invoice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inv domain.Invoice
	decodeInto(t, body, &inv)
	assert.Equal(t, domain.PaymentPartial, inv.Status)
	assert.Equal(t, int64(4_000_000), inv.Remaining)
	assert.Equal(t, "INV-2503-"+strings.ToUpper(b.ID[len(b.ID)-6:]), inv.Number)
	assert.Equal(t, "Akad Nikah", inv.ServiceName)

	resp, _ = a.staff(t, http.MethodDelete, base+"/payments/unknown", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodDelete, base+"/payments/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = a.staff(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail booking.Detail
	decodeInto(t, body, &detail)
	assert.Empty(t, detail.Booking.Payments)
	assert.Equal(t, domain.PaymentUnpaid, detail.Summary.Status)
	require.NotNil(t, detail.Package)

	resp, body = a.staff(t, http.MethodPatch, base, map[string]interface{}{"clientPhone": "089999"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	decodeInto(t, body, &b)
	assert.Equal(t, "089999", b.ClientPhone)

	resp, body = a.staff(t, http.MethodGet, "/v1/admin/bookings?date=2025-03-10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Booking
	decodeInto(t, body, &list)
	assert.Len(t, list, 1)

	resp, _ = a.staff(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodPost, base+"/payments", map[string]interface{}{"amount": 10, "type": "final"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdmin_StrictTransitions(t *testing.T) {
	a := newTestAPI(t, booking.WithPolicy(domain.DefaultMatrix))

	resp, body := a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-03-10"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var b domain.Booking
	decodeInto(t, body, &b)

	resp, _ = a.staff(t, http.MethodPut, "/v1/admin/bookings/"+b.ID+"/status", map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdmin_BookingNotes(t *testing.T) {
	a := newTestAPI(t)
	resp, body := a.staff(t, http.MethodPost, "/v1/admin/bookings", publicBooking("2025-03-10"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var b domain.Booking
	decodeInto(t, body, &b)
	base := "/v1/admin/bookings/" + b.ID + "/notes"

	resp, body = a.staff(t, http.MethodPost, base, map[string]string{"body": "prefers soft look"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var n domain.Note
	decodeInto(t, body, &n)
	assert.Equal(t, "Rina", n.Author)

	resp, _ = a.staff(t, http.MethodPatch, base+"/"+n.ID, map[string]string{"body": "prefers natural look"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodPatch, base+"/missing", map[string]string{"body": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = a.staff(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes struct {
		Notes []domain.Note `json:"notes"`
		Text  string        `json:"text"`
	}
	decodeInto(t, body, &notes)
	require.Len(t, notes.Notes, 1)
	assert.Contains(t, notes.Text, "] - Rina\nprefers natural look")

	resp, _ = a.staff(t, http.MethodPut, base, map[string]string{"body": "rewritten"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodPost, base, map[string]string{"body": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := a.bookings.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
}

func TestAdmin_OrdersAndTransactions(t *testing.T) {
	a := newTestAPI(t)

	resp, body := a.staff(t, http.MethodPost, "/v1/admin/orders", map[string]interface{}{
		"clientName":    "Dewi",
		"clientPhone":   "0813",
		"totalAmount":   1_500_000,
		"dpAmount":      500_000,
		"paymentStatus": "Partial",
		"items":         []string{"kebaya rental", " "},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var o domain.Order
	decodeInto(t, body, &o)
	assert.Equal(t, []string{"kebaya rental"}, o.Items)
	base := "/v1/admin/orders/" + o.ID

	resp, body = a.staff(t, http.MethodPut, base+"/payment-status", map[string]string{"paymentStatus": "Paid"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, body, &o)
	assert.Equal(t, domain.PaymentPaid, o.PaymentStatus)

	resp, _ = a.staff(t, http.MethodPut, base+"/payment-status", map[string]string{"paymentStatus": "Refunded"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.staff(t, http.MethodPost, base+"/notes", map[string]string{"body": "picked up"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	req := publicBooking("2025-03-10")
	resp, _ = a.staff(t, http.MethodPost, "/v1/admin/bookings", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = a.do(t, http.MethodPost, "/v1/bookings", publicBooking("2025-03-11"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = a.staff(t, http.MethodGet, "/v1/admin/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tx struct {
		Items []struct {
			Kind        string `json:"kind"`
			ServiceName string `json:"serviceName"`
			Total       int64  `json:"total"`
		} `json:"items"`
		Totals domain.TransactionTotals `json:"totals"`
	}
	decodeInto(t, body, &tx)
	require.Len(t, tx.Items, 2, "pending bookings are not transactions")
	assert.Equal(t, int64(6_500_000), tx.Totals.Revenue)
	assert.Equal(t, int64(500_000), tx.Totals.Paid)

	resp, body = a.staff(t, http.MethodGet, "/v1/admin/transactions?kind=booking", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeInto(t, body, &tx)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, "Akad Nikah", tx.Items[0].ServiceName)
	assert.Equal(t, int64(6_500_000), tx.Totals.Revenue, "totals ignore the filter")

	resp, body = a.staff(t, http.MethodGet, "/v1/admin/transactions?kind=all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	decodeInto(t, body, &tx)
	assert.Len(t, tx.Items, 2)

	resp, _ = a.staff(t, http.MethodGet, "/v1/admin/transactions?kind=refund", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = a.staff(t, http.MethodGet, "/v1/admin/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sum report.Summary
	decodeInto(t, body, &sum)
	assert.Equal(t, "2025-02-01", sum.Date)
	assert.Equal(t, 2, sum.TotalBookings)
	assert.Equal(t, 1, sum.PendingBookings)
	assert.Equal(t, 1, sum.ConfirmedBookings)
	assert.Zero(t, sum.ConfirmedPaid)
	assert.Len(t, sum.Upcoming, 1)
	assert.Equal(t, int64(1_500_000), sum.OrderRevenue)
	assert.Equal(t, int64(500_000), sum.OrderDP)

	resp, _ = a.do(t, http.MethodGet, "/v1/admin/summary", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.staff(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = a.staff(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestAPI(t)

	resp, _ := a.do(t, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.do(t, http.MethodGet, "/v1/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := a.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "studio_requests_total")
}
