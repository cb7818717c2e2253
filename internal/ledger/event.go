package ledger

import (
	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// Event is one organizer's ticket sale: inventory, customer holdings and
// collected funds. Funds always equal the sum of total_paid over current
// customers.
type Event struct {
	ID             uuid.UUID
	Title          string
	Owner          uuid.UUID
	Deadline       int64
	SaleActive     bool
	BuybackActive  bool
	LimitEnabled   bool
	MaxPerCustomer uint64
	Funds          uint64
	Tiers          *TierSet
	Customers      *CustomerLedger
	pos            int
}

func (e *Event) listPos() int {
	return e.pos
}

func (e *Event) setListPos(pos int) {
	e.pos = pos
}

func (e *Event) Info() domain.EventInfo {
	return domain.EventInfo{
		ID:             e.ID,
		Title:          e.Title,
		Owner:          e.Owner,
		Deadline:       e.Deadline,
		Available:      e.Tiers.Availability(),
		Prices:         e.Tiers.Prices(),
		LimitEnabled:   e.LimitEnabled,
		MaxPerCustomer: e.MaxPerCustomer,
		SaleActive:     e.SaleActive,
		BuybackActive:  e.BuybackActive,
	}
}

// clone deep-copies the event so a transition can roll back to it when the
// trailing fund transfer is rejected.
func (e *Event) clone() *Event {
	c := *e
	c.Tiers = e.Tiers.clone()
	c.Customers = e.Customers.clone()
	return &c
}

// restore copies the snapshot back into the live record, which keeps every
// external *Event pointer valid.
func (e *Event) restore(snap *Event) {
	*e = *snap
}
