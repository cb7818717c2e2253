package ledger

import (
	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// Customer is one identity's holdings within a single event. A record
// exists only while the customer holds at least one ticket there.
type Customer struct {
	ID        uuid.UUID
	perTier   []uint64
	totalQty  uint64
	totalPaid uint64
	pos       int
}

func (c *Customer) listPos() int {
	return c.pos
}

func (c *Customer) setListPos(pos int) {
	c.pos = pos
}

// Holdings returns a copy of the per-tier quantity vector.
func (c *Customer) Holdings() []uint64 {
	out := make([]uint64, len(c.perTier))
	copy(out, c.perTier)
	return out
}

func (c *Customer) TotalQuantity() uint64 {
	return c.totalQty
}

func (c *Customer) TotalPaid() uint64 {
	return c.totalPaid
}

// CustomerLedger tracks the customers of one event. Records are created
// lazily on first purchase and destroyed outright on full return.
type CustomerLedger struct {
	byID  map[uuid.UUID]*Customer
	list  IndexedList[*Customer]
	tiers int
}

func NewCustomerLedger(tiers int) *CustomerLedger {
	return &CustomerLedger{
		byID:  make(map[uuid.UUID]*Customer),
		tiers: tiers,
	}
}

func (cl *CustomerLedger) Get(id uuid.UUID) (*Customer, bool) {
	c, ok := cl.byID[id]
	return c, ok
}

// RecordPurchase adds qty tickets of the given tier and the amount paid to
// the customer's holdings, creating the record if this is their first
// purchase in the event. The tier index must already be validated.
func (cl *CustomerLedger) RecordPurchase(id uuid.UUID, tier int, qty, paid uint64) *Customer {
	c, ok := cl.byID[id]
	if !ok {
		c = &Customer{
			ID:      id,
			perTier: make([]uint64, cl.tiers),
		}
		cl.byID[id] = c
		cl.list.Append(c)
	}
	c.perTier[tier] += qty
	c.totalQty += qty
	c.totalPaid += paid
	return c
}

// RecordReturn removes the customer entirely and returns the holding
// snapshot. Partial returns are not supported.
func (cl *CustomerLedger) RecordReturn(id uuid.UUID) ([]uint64, uint64, error) {
	c, ok := cl.byID[id]
	if !ok || c.totalQty == 0 {
		return nil, 0, domain.ErrNotFound
	}
	perTier := c.Holdings()
	paid := c.totalPaid
	cl.list.Remove(c.pos)
	delete(cl.byID, id)
	return perTier, paid, nil
}

// Holdings returns the customer's per-tier vector, or an empty vector if
// they never held tickets here. Absence is not an error.
func (cl *CustomerLedger) Holdings(id uuid.UUID) []uint64 {
	c, ok := cl.byID[id]
	if !ok {
		return []uint64{}
	}
	return c.Holdings()
}

// Customers returns the customer identities in list order.
func (cl *CustomerLedger) Customers() []uuid.UUID {
	out := make([]uuid.UUID, 0, cl.list.Len())
	for _, c := range cl.list.Items() {
		out = append(out, c.ID)
	}
	return out
}

func (cl *CustomerLedger) Count() int {
	return cl.list.Len()
}

// TotalPaidSum is the sum of total_paid over all current customers. The
// owning event's funds field must always equal it.
func (cl *CustomerLedger) TotalPaidSum() uint64 {
	var sum uint64
	for _, c := range cl.list.Items() {
		sum += c.totalPaid
	}
	return sum
}

func (cl *CustomerLedger) clone() *CustomerLedger {
	c := NewCustomerLedger(cl.tiers)
	for _, orig := range cl.list.Items() {
		dup := &Customer{
			ID:        orig.ID,
			perTier:   orig.Holdings(),
			totalQty:  orig.totalQty,
			totalPaid: orig.totalPaid,
		}
		c.byID[dup.ID] = dup
		c.list.Append(dup)
	}
	return c
}
