package domain

import (
	"time"

	"github.com/google/uuid"
)

// Journal op codes, one per mutating transition.
const (
	OpCreateEvent   = "create_event"
	OpBuyTickets    = "buy_tickets"
	OpReturnTickets = "return_tickets"
	OpWithdrawFunds = "withdraw_funds"
	OpDeleteEvent   = "delete_event"
	OpStopSale      = "stop_sale"
	OpContinueSale  = "continue_sale"
	OpAddTickets    = "add_tickets"
	OpChangePrice   = "change_ticket_price"
)

// JournalRecord is one applied transition, durable in the journal table and
// replayed at startup to rebuild the in-memory ledger.
type JournalRecord struct {
	Seq        int64
	EventID    uuid.UUID
	Op         string
	Actor      uuid.UUID
	Payload    []byte
	RecordedAt time.Time
}

type CreateEventPayload struct {
	Title          string   `json:"title"`
	Quantities     []uint64 `json:"quantities"`
	Prices         []uint64 `json:"prices"`
	LimitEnabled   bool     `json:"limit_enabled"`
	MaxPerCustomer uint64   `json:"max_per_customer"`
	SaleActive     bool     `json:"sale_active"`
	BuybackActive  bool     `json:"buyback_active"`
	Deadline       int64    `json:"deadline"`
}

type BuyTicketsPayload struct {
	Tier     int    `json:"tier"`
	Quantity uint64 `json:"quantity"`
	Cost     uint64 `json:"cost"`
}

type WithdrawFundsPayload struct {
	Amount uint64 `json:"amount"`
}

type AddTicketsPayload struct {
	Amounts []uint64 `json:"amounts"`
}

type ChangePricePayload struct {
	Tier  int    `json:"tier"`
	Price uint64 `json:"price"`
}
