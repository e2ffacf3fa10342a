package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         observability.Logger
	Metrics        *observability.Metrics
	Gatherer       prometheus.Gatherer
	// Limiter and Idempotency are optional.
	Limiter     Limiter
	Idempotency IdempotencyStore
}

func SetupRouter(h *Handlers, cfg RouterConfig) *chi.Mux {
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(cfg.Logger))
	r.Use(TracingMiddleware)
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"Idempotent-Replayed"},
		MaxAge:         300,
	}))

	r.Method("GET", "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)

		r.Get("/calendar", h.Calendar)
		r.Get("/calendar/{date}", h.CalendarDay)
		r.Get("/packages", h.ListPackages)
		r.With(
			RateLimitMiddleware(cfg.Limiter, 10, time.Minute, cfg.Metrics),
			IdempotencyMiddleware(cfg.Idempotency, cfg.Logger),
		).Post("/bookings", h.SubmitBooking)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireStaff(cfg.JWTSecret))
			r.Use(IdempotencyMiddleware(cfg.Idempotency, cfg.Logger))

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.ListBookings)
				r.Post("/", h.CreateBooking)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetBooking)
					r.Patch("/", h.UpdateBooking)
					r.Delete("/", h.DeleteBooking)
					r.Put("/status", h.SetBookingStatus)
					r.Post("/payments", h.AddPayment)
					r.Delete("/payments/{paymentID}", h.RemovePayment)
					r.Get("/invoice", h.Invoice)
					r.Get("/notes", h.BookingNotes)
					r.Post("/notes", h.AppendBookingNote)
					r.Put("/notes", h.ReplaceBookingNotes)
					r.Delete("/notes", h.ClearBookingNotes)
					r.Patch("/notes/{noteID}", h.EditBookingNote)
					r.Delete("/notes/{noteID}", h.DeleteBookingNote)
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.ListOrders)
				r.Post("/", h.CreateOrder)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetOrder)
					r.Put("/", h.UpdateOrder)
					r.Delete("/", h.DeleteOrder)
					r.Put("/payment-status", h.SetOrderPaymentStatus)
					r.Post("/notes", h.AppendOrderNote)
					r.Put("/notes", h.ReplaceOrderNotes)
					r.Delete("/notes", h.ClearOrderNotes)
					r.Patch("/notes/{noteID}", h.EditOrderNote)
					r.Delete("/notes/{noteID}", h.DeleteOrderNote)
				})
			})

			r.Get("/transactions", h.Transactions)
			r.Get("/summary", h.Summary)
		})
	})

	return r
}
