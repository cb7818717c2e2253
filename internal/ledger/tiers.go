package ledger

import (
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// MaxTiers caps how many priced categories an event may declare.
const MaxTiers = 100

// TierSet holds the per-tier inventory and unit prices of one event as
// parallel arrays indexed by tier number. Tiers are fixed at creation;
// only counts and prices change afterwards.
type TierSet struct {
	available []uint64
	prices    []uint64
}

func NewTierSet(quantities, prices []uint64) (*TierSet, error) {
	if len(quantities) == 0 || len(quantities) != len(prices) || len(quantities) > MaxTiers {
		return nil, domain.ErrInvalidInput
	}
	t := &TierSet{
		available: make([]uint64, len(quantities)),
		prices:    make([]uint64, len(prices)),
	}
	copy(t.available, quantities)
	copy(t.prices, prices)
	return t, nil
}

func (t *TierSet) Len() int {
	return len(t.available)
}

func (t *TierSet) InRange(tier int) bool {
	return tier >= 0 && tier < len(t.available)
}

func (t *TierSet) Price(tier int) uint64 {
	return t.prices[tier]
}

func (t *TierSet) Available(tier int) uint64 {
	return t.available[tier]
}

// Availability returns a copy of the per-tier quantities.
func (t *TierSet) Availability() []uint64 {
	out := make([]uint64, len(t.available))
	copy(out, t.available)
	return out
}

// Prices returns a copy of the per-tier unit prices.
func (t *TierSet) Prices() []uint64 {
	out := make([]uint64, len(t.prices))
	copy(out, t.prices)
	return out
}

func (t *TierSet) Decrement(tier int, qty uint64) error {
	if !t.InRange(tier) {
		return domain.ErrInvalidInput
	}
	if qty > t.available[tier] {
		return domain.ErrInsufficientInventory
	}
	t.available[tier] -= qty
	return nil
}

// IncrementMany adds amounts elementwise. It verifies every sum before
// applying any, so a failing call leaves the set untouched.
func (t *TierSet) IncrementMany(amounts []uint64) error {
	if len(amounts) != len(t.available) {
		return domain.ErrInvalidInput
	}
	for i, amt := range amounts {
		if t.available[i]+amt < t.available[i] {
			return domain.ErrOverflow
		}
	}
	for i, amt := range amounts {
		t.available[i] += amt
	}
	return nil
}

// SetPrice updates a tier's unit price. No floor or ceiling is enforced.
func (t *TierSet) SetPrice(tier int, price uint64) error {
	if !t.InRange(tier) {
		return domain.ErrInvalidInput
	}
	t.prices[tier] = price
	return nil
}

func (t *TierSet) clone() *TierSet {
	c := &TierSet{
		available: make([]uint64, len(t.available)),
		prices:    make([]uint64, len(t.prices)),
	}
	copy(c.available, t.available)
	copy(c.prices, t.prices)
	return c
}
