package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"math/bits"
	"sync"

	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/clock"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
)

// GracePeriod is how long past an event's deadline deletion stays blocked,
// in seconds. One week.
const GracePeriod = 604800

// Treasury is the outward credit primitive: credit amount to account, or
// fail the whole transition. Transfer execution itself is out of scope.
type Treasury interface {
	Credit(ctx context.Context, account uuid.UUID, amount uint64) error
}

// Notifier receives the single notification a successful transition emits.
type Notifier interface {
	Notify(ctx context.Context, note domain.Notification) error
}

// Journal persists applied transitions for replay at startup.
type Journal interface {
	Append(ctx context.Context, rec domain.JournalRecord) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Notification) error { return nil }

type noopJournal struct{}

func (noopJournal) Append(context.Context, domain.JournalRecord) error { return nil }

// Service owns the full registry and applies every transition one at a
// time. All internal state reaches its final value before the at-most-one
// outward transfer runs; a rejected transfer rolls the transition back.
type Service struct {
	mu            sync.Mutex
	registry      *EventRegistry
	participation *ParticipationIndex
	treasury      Treasury
	notifier      Notifier
	journal       Journal
	clock         clock.Clock
	logger        observability.Logger
}

type Option func(*Service)

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithJournal(j Journal) Option {
	return func(s *Service) { s.journal = j }
}

func WithLogger(l observability.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(treasury Treasury, opts ...Option) *Service {
	s := &Service{
		registry:      NewEventRegistry(),
		participation: NewParticipationIndex(),
		treasury:      treasury,
		notifier:      noopNotifier{},
		journal:       noopJournal{},
		clock:         clock.NewSystem(),
		logger:        observability.NewLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateEventInput struct {
	ID             uuid.UUID
	Title          string
	Quantities     []uint64
	Prices         []uint64
	LimitEnabled   bool
	MaxPerCustomer uint64
	SaleActive     bool
	BuybackActive  bool
	Deadline       int64
}

// CreateEvent registers a new event and appends it to the global list.
func (s *Service) CreateEvent(ctx context.Context, caller uuid.UUID, in CreateEventInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Deadline <= s.clock.Now().Unix() {
		return s.observe(domain.OpCreateEvent, domain.ErrTimingViolation)
	}
	tiers, err := NewTierSet(in.Quantities, in.Prices)
	if err != nil {
		return s.observe(domain.OpCreateEvent, err)
	}

	ev := &Event{
		ID:             in.ID,
		Title:          in.Title,
		Owner:          caller,
		Deadline:       in.Deadline,
		SaleActive:     in.SaleActive,
		BuybackActive:  in.BuybackActive,
		LimitEnabled:   in.LimitEnabled,
		MaxPerCustomer: in.MaxPerCustomer,
		Tiers:          tiers,
		Customers:      NewCustomerLedger(tiers.Len()),
	}
	if err := s.registry.Add(ev); err != nil {
		return s.observe(domain.OpCreateEvent, err)
	}

	s.record(ctx, in.ID, domain.OpCreateEvent, caller, domain.CreateEventPayload{
		Title:          in.Title,
		Quantities:     in.Quantities,
		Prices:         in.Prices,
		LimitEnabled:   in.LimitEnabled,
		MaxPerCustomer: in.MaxPerCustomer,
		SaleActive:     in.SaleActive,
		BuybackActive:  in.BuybackActive,
		Deadline:       in.Deadline,
	})
	s.notify(ctx, domain.Notification{
		Kind:    domain.NoteEventCreated,
		EventID: in.ID,
		Actor:   caller,
	})
	return s.observe(domain.OpCreateEvent, nil)
}

// BuyTickets sells qty tickets of one tier against an attached payment.
// Overpayment is accepted and refunded as the final action of the call.
func (s *Service) BuyTickets(ctx context.Context, caller, eventID uuid.UUID, tier int, qty, payment uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return s.observe(domain.OpBuyTickets, err)
	}
	if s.clock.Now().Unix() >= ev.Deadline {
		return s.observe(domain.OpBuyTickets, domain.ErrTimingViolation)
	}
	if !ev.Tiers.InRange(tier) || qty == 0 {
		return s.observe(domain.OpBuyTickets, domain.ErrInvalidInput)
	}
	if !ev.SaleActive {
		return s.observe(domain.OpBuyTickets, domain.ErrStateDisabled)
	}
	if qty > ev.Tiers.Available(tier) {
		return s.observe(domain.OpBuyTickets, domain.ErrInsufficientInventory)
	}
	var held uint64
	if c, ok := ev.Customers.Get(caller); ok {
		held = c.TotalQuantity()
	}
	total, err := addChecked(held, qty)
	if err != nil {
		return s.observe(domain.OpBuyTickets, err)
	}
	if ev.LimitEnabled && total > ev.MaxPerCustomer {
		return s.observe(domain.OpBuyTickets, domain.ErrCapExceeded)
	}
	hi, cost := bits.Mul64(ev.Tiers.Price(tier), qty)
	if hi != 0 {
		return s.observe(domain.OpBuyTickets, domain.ErrOverflow)
	}
	if payment < cost {
		return s.observe(domain.OpBuyTickets, domain.ErrInsufficientPayment)
	}
	funds, err := addChecked(ev.Funds, cost)
	if err != nil {
		return s.observe(domain.OpBuyTickets, err)
	}

	snap := ev.clone()
	wasParticipant := s.participation.Contains(caller, eventID)

	ev.Customers.RecordPurchase(caller, tier, qty, cost)
	if err := ev.Tiers.Decrement(tier, qty); err != nil {
		ev.restore(snap)
		return s.observe(domain.OpBuyTickets, err)
	}
	ev.Funds = funds
	s.participation.Add(caller, eventID)

	if refund := payment - cost; refund > 0 {
		if err := s.treasury.Credit(ctx, caller, refund); err != nil {
			ev.restore(snap)
			if !wasParticipant {
				s.participation.Remove(caller, eventID)
			}
			return s.observe(domain.OpBuyTickets, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err))
		}
	}

	s.record(ctx, eventID, domain.OpBuyTickets, caller, domain.BuyTicketsPayload{
		Tier:     tier,
		Quantity: qty,
		Cost:     cost,
	})
	s.notify(ctx, domain.Notification{
		Kind:     domain.NoteTicketPurchased,
		EventID:  eventID,
		Actor:    caller,
		Tier:     tier,
		Quantity: qty,
		Amount:   cost,
	})
	observability.TicketsSold.Add(float64(qty))
	return s.observe(domain.OpBuyTickets, nil)
}

// ReturnTickets gives back every ticket the caller holds in the event for
// a full refund. Returns require both buyback and the sale itself to be
// active: suspending the sale also suspends refunds.
func (s *Service) ReturnTickets(ctx context.Context, caller, eventID uuid.UUID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return 0, s.observe(domain.OpReturnTickets, err)
	}
	if s.clock.Now().Unix() >= ev.Deadline {
		return 0, s.observe(domain.OpReturnTickets, domain.ErrTimingViolation)
	}
	if !ev.BuybackActive || !ev.SaleActive {
		return 0, s.observe(domain.OpReturnTickets, domain.ErrStateDisabled)
	}

	snap := ev.clone()

	perTier, paid, err := ev.Customers.RecordReturn(caller)
	if err != nil {
		return 0, s.observe(domain.OpReturnTickets, err)
	}
	if err := ev.Tiers.IncrementMany(perTier); err != nil {
		ev.restore(snap)
		return 0, s.observe(domain.OpReturnTickets, err)
	}
	ev.Funds -= paid
	s.participation.Remove(caller, eventID)

	if err := s.treasury.Credit(ctx, caller, paid); err != nil {
		ev.restore(snap)
		s.participation.Add(caller, eventID)
		return 0, s.observe(domain.OpReturnTickets, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err))
	}

	s.record(ctx, eventID, domain.OpReturnTickets, caller, nil)
	s.notify(ctx, domain.Notification{
		Kind:    domain.NoteTicketReturned,
		EventID: eventID,
		Actor:   caller,
		Amount:  paid,
	})
	observability.TicketsReturned.Add(float64(sum(perTier)))
	return paid, s.observe(domain.OpReturnTickets, nil)
}

// WithdrawFunds pays the collected funds out to the owner once the
// deadline has passed. Buyback is deactivated and funds are zeroed before
// the transfer so a reentrant call can never withdraw twice.
func (s *Service) WithdrawFunds(ctx context.Context, caller, eventID uuid.UUID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return 0, s.observe(domain.OpWithdrawFunds, err)
	}
	if caller != ev.Owner {
		return 0, s.observe(domain.OpWithdrawFunds, domain.ErrUnauthorized)
	}
	if s.clock.Now().Unix() < ev.Deadline {
		return 0, s.observe(domain.OpWithdrawFunds, domain.ErrTimingViolation)
	}

	amount := ev.Funds
	buybackWas := ev.BuybackActive
	ev.BuybackActive = false
	ev.Funds = 0

	if err := s.treasury.Credit(ctx, caller, amount); err != nil {
		ev.BuybackActive = buybackWas
		ev.Funds = amount
		return 0, s.observe(domain.OpWithdrawFunds, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err))
	}

	s.record(ctx, eventID, domain.OpWithdrawFunds, caller, domain.WithdrawFundsPayload{Amount: amount})
	s.notify(ctx, domain.Notification{
		Kind:    domain.NoteFundsWithdrawn,
		EventID: eventID,
		Actor:   caller,
		Amount:  amount,
	})
	return amount, s.observe(domain.OpWithdrawFunds, nil)
}

// DeleteEvent removes an emptied event once the grace period past the
// deadline has elapsed.
func (s *Service) DeleteEvent(ctx context.Context, caller, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return s.observe(domain.OpDeleteEvent, err)
	}
	if caller != ev.Owner {
		return s.observe(domain.OpDeleteEvent, domain.ErrUnauthorized)
	}
	if ev.Funds != 0 {
		return s.observe(domain.OpDeleteEvent, domain.ErrPreconditionFailed)
	}
	if s.clock.Now().Unix() < ev.Deadline+GracePeriod {
		return s.observe(domain.OpDeleteEvent, domain.ErrTimingViolation)
	}

	if err := s.registry.Remove(eventID); err != nil {
		return s.observe(domain.OpDeleteEvent, err)
	}

	s.record(ctx, eventID, domain.OpDeleteEvent, caller, nil)
	s.notify(ctx, domain.Notification{
		Kind:    domain.NoteEventDeleted,
		EventID: eventID,
		Actor:   caller,
	})
	return s.observe(domain.OpDeleteEvent, nil)
}

// StopSale suspends ticket sales (and, by coupling, returns).
func (s *Service) StopSale(ctx context.Context, caller, eventID uuid.UUID) error {
	return s.setSaleActive(ctx, caller, eventID, false, domain.OpStopSale)
}

// ContinueSale reactivates ticket sales.
func (s *Service) ContinueSale(ctx context.Context, caller, eventID uuid.UUID) error {
	return s.setSaleActive(ctx, caller, eventID, true, domain.OpContinueSale)
}

func (s *Service) setSaleActive(ctx context.Context, caller, eventID uuid.UUID, active bool, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return s.observe(op, err)
	}
	if caller != ev.Owner {
		return s.observe(op, domain.ErrUnauthorized)
	}
	ev.SaleActive = active
	s.record(ctx, eventID, op, caller, nil)
	return s.observe(op, nil)
}

// AddTickets restocks every tier in one call; amounts must run parallel to
// the tier set.
func (s *Service) AddTickets(ctx context.Context, caller, eventID uuid.UUID, amounts []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return s.observe(domain.OpAddTickets, err)
	}
	if caller != ev.Owner {
		return s.observe(domain.OpAddTickets, domain.ErrUnauthorized)
	}
	if err := ev.Tiers.IncrementMany(amounts); err != nil {
		return s.observe(domain.OpAddTickets, err)
	}
	s.record(ctx, eventID, domain.OpAddTickets, caller, domain.AddTicketsPayload{Amounts: amounts})
	return s.observe(domain.OpAddTickets, nil)
}

// ChangeTicketPrice sets one tier's unit price. Unconditional: there is no
// minimum-price guard.
func (s *Service) ChangeTicketPrice(ctx context.Context, caller, eventID uuid.UUID, tier int, price uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return s.observe(domain.OpChangePrice, err)
	}
	if caller != ev.Owner {
		return s.observe(domain.OpChangePrice, domain.ErrUnauthorized)
	}
	if err := ev.Tiers.SetPrice(tier, price); err != nil {
		return s.observe(domain.OpChangePrice, err)
	}
	s.record(ctx, eventID, domain.OpChangePrice, caller, domain.ChangePricePayload{Tier: tier, Price: price})
	return s.observe(domain.OpChangePrice, nil)
}

// GetTickets returns the customer's per-tier holdings in the event; a
// customer who never bought gets an empty vector.
func (s *Service) GetTickets(eventID, customer uuid.UUID) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return nil, err
	}
	return ev.Customers.Holdings(customer), nil
}

// GetCustomers returns the event's customer identities in list order.
func (s *Service) GetCustomers(eventID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return nil, err
	}
	return ev.Customers.Customers(), nil
}

// GetEventInfo returns the public snapshot of one event.
func (s *Service) GetEventInfo(eventID uuid.UUID) (domain.EventInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return domain.EventInfo{}, err
	}
	return ev.Info(), nil
}

// GetEvents returns the global ordered event id list.
func (s *Service) GetEvents() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.IDs()
}

// GetParticipation lists the events the caller currently holds tickets for.
func (s *Service) GetParticipation(caller uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participation.List(caller)
}

// ViewFunds reports the accumulated funds of the caller's own event.
func (s *Service) ViewFunds(caller, eventID uuid.UUID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.registry.Get(eventID)
	if err != nil {
		return 0, err
	}
	if caller != ev.Owner {
		return 0, domain.ErrUnauthorized
	}
	return ev.Funds, nil
}

// record journals an applied transition. A journal failure after the state
// has committed is logged and counted, not rolled back: the transfer may
// already have settled.
func (s *Service) record(ctx context.Context, eventID uuid.UUID, op string, actor uuid.UUID, payload any) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			s.logger.WithField("op", op).Error("marshal journal payload: ", err)
			return
		}
	}
	rec := domain.JournalRecord{
		EventID:    eventID,
		Op:         op,
		Actor:      actor,
		Payload:    data,
		RecordedAt: s.clock.Now(),
	}
	if err := s.journal.Append(ctx, rec); err != nil {
		observability.JournalFailures.Inc()
		s.logger.WithField("op", op).Error("append journal record: ", err)
	}
}

func (s *Service) notify(ctx context.Context, note domain.Notification) {
	note.OccurredAt = s.clock.Now()
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.WithField("kind", note.Kind).Error("emit notification: ", err)
	}
}

func (s *Service) observe(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	observability.TransitionsTotal.WithLabelValues(op, outcome).Inc()
	return err
}

func addChecked(a, b uint64) (uint64, error) {
	if a+b < a {
		return 0, domain.ErrOverflow
	}
	return a + b, nil
}

func sum(vals []uint64) uint64 {
	var total uint64
	for _, v := range vals {
		total += v
	}
	return total
}
