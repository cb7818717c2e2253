package domain

import "github.com/google/uuid"

// EventInfo is the public snapshot of a registered event.
type EventInfo struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Owner          uuid.UUID `json:"owner"`
	Deadline       int64     `json:"deadline"`
	Available      []uint64  `json:"available"`
	Prices         []uint64  `json:"prices"`
	LimitEnabled   bool      `json:"limit_enabled"`
	MaxPerCustomer uint64    `json:"max_per_customer"`
	SaleActive     bool      `json:"sale_active"`
	BuybackActive  bool      `json:"buyback_active"`
}
