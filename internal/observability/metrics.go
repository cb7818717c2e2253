package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketledger_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketledger_transitions_total",
			Help: "Ledger transitions by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	TicketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketledger_tickets_sold_total",
			Help: "Tickets sold across all events",
		},
	)

	TicketsReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketledger_tickets_returned_total",
			Help: "Tickets returned across all events",
		},
	)

	JournalFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketledger_journal_failures_total",
			Help: "Journal appends that failed after a committed transition",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ticketledger_outbox_lag_seconds",
			Help: "Age of the oldest unpublished notification",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketledger_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
