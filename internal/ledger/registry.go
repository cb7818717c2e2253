package ledger

import (
	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// EventRegistry owns every event record plus the global ordered id list.
type EventRegistry struct {
	byID map[uuid.UUID]*Event
	list IndexedList[*Event]
}

func NewEventRegistry() *EventRegistry {
	return &EventRegistry{byID: make(map[uuid.UUID]*Event)}
}

func (r *EventRegistry) Add(ev *Event) error {
	if _, exists := r.byID[ev.ID]; exists {
		return domain.ErrConflict
	}
	r.byID[ev.ID] = ev
	r.list.Append(ev)
	return nil
}

func (r *EventRegistry) Get(id uuid.UUID) (*Event, error) {
	ev, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ev, nil
}

// Remove swap-removes the event from the ordered list and drops it from
// the registry. The moved event's stored position is rewritten by the list.
func (r *EventRegistry) Remove(id uuid.UUID) error {
	ev, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.list.Remove(ev.pos)
	delete(r.byID, id)
	return nil
}

// IDs returns every event identifier in list order.
func (r *EventRegistry) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, r.list.Len())
	for _, ev := range r.list.Items() {
		out = append(out, ev.ID)
	}
	return out
}

func (r *EventRegistry) Len() int {
	return r.list.Len()
}
