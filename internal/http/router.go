package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yahyalfc/ticket-ledger/internal/idempotency"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
	"github.com/yahyalfc/ticket-ledger/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, idemp *idempotency.Idempotency) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)

		r.Group(func(r chi.Router) {
			r.Use(IdentityMiddleware)
			r.Use(RateLimitMiddleware(rl))

			// only the handlers that replay cached responses demand a key
			r.With(IdempotencyMiddleware(idemp)).Post("/events", h.CreateEvent)
			r.With(IdempotencyMiddleware(idemp)).Post("/events/{id}/purchase", h.BuyTickets)

			r.Get("/events", h.GetEvents)
			r.Get("/events/{id}", h.GetEventInfo)
			r.Delete("/events/{id}", h.DeleteEvent)
			r.Get("/events/{id}/tickets", h.GetTickets)
			r.Get("/events/{id}/customers", h.GetCustomers)
			r.Get("/events/{id}/funds", h.ViewFunds)
			r.Post("/events/{id}/return", h.ReturnTickets)
			r.Post("/events/{id}/withdraw", h.WithdrawFunds)
			r.Post("/events/{id}/sale/stop", h.StopSale)
			r.Post("/events/{id}/sale/continue", h.ContinueSale)
			r.Post("/events/{id}/tickets", h.AddTickets)
			r.Put("/events/{id}/price", h.ChangeTicketPrice)
			r.Get("/participation", h.GetParticipation)
		})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
