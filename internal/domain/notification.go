package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification kinds double as AMQP routing keys on the topic exchange.
const (
	NoteEventCreated    = "event.created"
	NoteTicketPurchased = "ticket.purchased"
	NoteTicketReturned  = "ticket.returned"
	NoteFundsWithdrawn  = "funds.withdrawn"
	NoteEventDeleted    = "event.deleted"
)

// Notification is the observable side effect of a successful transition.
// Exactly one is emitted per mutating call that the ledger advertises.
type Notification struct {
	Kind       string    `json:"kind"`
	EventID    uuid.UUID `json:"event_id"`
	Actor      uuid.UUID `json:"actor"`
	Tier       int       `json:"tier,omitempty"`
	Quantity   uint64    `json:"quantity,omitempty"`
	Amount     uint64    `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
