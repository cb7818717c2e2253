package ledger

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// Restore applies one journaled transition without guards or side effects.
// Records are fed back in journal order at startup; every guard already
// passed when the record was written, and timing guards must not re-fire
// against the current clock.
func (s *Service) Restore(rec domain.JournalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch rec.Op {
	case domain.OpCreateEvent:
		var p domain.CreateEventPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		tiers, err := NewTierSet(p.Quantities, p.Prices)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		return s.registry.Add(&Event{
			ID:             rec.EventID,
			Title:          p.Title,
			Owner:          rec.Actor,
			Deadline:       p.Deadline,
			SaleActive:     p.SaleActive,
			BuybackActive:  p.BuybackActive,
			LimitEnabled:   p.LimitEnabled,
			MaxPerCustomer: p.MaxPerCustomer,
			Tiers:          tiers,
			Customers:      NewCustomerLedger(tiers.Len()),
		})

	case domain.OpBuyTickets:
		var p domain.BuyTicketsPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev, err := s.registry.Get(rec.EventID)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev.Customers.RecordPurchase(rec.Actor, p.Tier, p.Quantity, p.Cost)
		if err := ev.Tiers.Decrement(p.Tier, p.Quantity); err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev.Funds += p.Cost
		s.participation.Add(rec.Actor, rec.EventID)
		return nil

	case domain.OpReturnTickets:
		ev, err := s.registry.Get(rec.EventID)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		perTier, paid, err := ev.Customers.RecordReturn(rec.Actor)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		if err := ev.Tiers.IncrementMany(perTier); err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev.Funds -= paid
		s.participation.Remove(rec.Actor, rec.EventID)
		return nil

	case domain.OpWithdrawFunds:
		ev, err := s.registry.Get(rec.EventID)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev.BuybackActive = false
		ev.Funds = 0
		return nil

	case domain.OpDeleteEvent:
		return errors.Wrapf(s.registry.Remove(rec.EventID), "journal seq %d", rec.Seq)

	case domain.OpStopSale, domain.OpContinueSale:
		ev, err := s.registry.Get(rec.EventID)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev.SaleActive = rec.Op == domain.OpContinueSale
		return nil

	case domain.OpAddTickets:
		var p domain.AddTicketsPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev, err := s.registry.Get(rec.EventID)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		return errors.Wrapf(ev.Tiers.IncrementMany(p.Amounts), "journal seq %d", rec.Seq)

	case domain.OpChangePrice:
		var p domain.ChangePricePayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		ev, err := s.registry.Get(rec.EventID)
		if err != nil {
			return errors.Wrapf(err, "journal seq %d", rec.Seq)
		}
		return errors.Wrapf(ev.Tiers.SetPrice(p.Tier, p.Price), "journal seq %d", rec.Seq)

	default:
		return errors.Newf("journal seq %d: unknown op %q", rec.Seq, rec.Op)
	}
}
