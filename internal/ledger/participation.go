package ledger

import (
	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// ParticipationIndex maps each customer to the ordered set of events they
// currently hold tickets for. Lists are small, so membership checks and
// removals are linear scans followed by a swap-pop.
type ParticipationIndex struct {
	byCustomer map[uuid.UUID][]uuid.UUID
}

func NewParticipationIndex() *ParticipationIndex {
	return &ParticipationIndex{byCustomer: make(map[uuid.UUID][]uuid.UUID)}
}

func (p *ParticipationIndex) Contains(customer, eventID uuid.UUID) bool {
	for _, id := range p.byCustomer[customer] {
		if id == eventID {
			return true
		}
	}
	return false
}

// Add records participation; already-present entries are left alone so the
// set stays deduplicated.
func (p *ParticipationIndex) Add(customer, eventID uuid.UUID) {
	if p.Contains(customer, eventID) {
		return
	}
	p.byCustomer[customer] = append(p.byCustomer[customer], eventID)
}

// Remove drops the entry for eventID. Callers invoke it exactly once per
// full return; removal of an absent entry is a no-op.
func (p *ParticipationIndex) Remove(customer, eventID uuid.UUID) {
	list := p.byCustomer[customer]
	for i, id := range list {
		if id != eventID {
			continue
		}
		last := len(list) - 1
		list[i] = list[last]
		list = list[:last]
		if len(list) == 0 {
			delete(p.byCustomer, customer)
		} else {
			p.byCustomer[customer] = list
		}
		return
	}
}

// List returns the customer's current events in insertion-then-swap order.
// An empty list is ErrNoParticipation, whether the customer never bought
// tickets or returned everything they had.
func (p *ParticipationIndex) List(customer uuid.UUID) ([]uuid.UUID, error) {
	list := p.byCustomer[customer]
	if len(list) == 0 {
		return nil, domain.ErrNoParticipation
	}
	out := make([]uuid.UUID, len(list))
	copy(out, list)
	return out, nil
}
