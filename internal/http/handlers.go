package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mongoadapter "github.com/yahyalfc/ticket-ledger/internal/adapters/mongo"
	"github.com/yahyalfc/ticket-ledger/internal/config"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
	"github.com/yahyalfc/ticket-ledger/internal/idempotency"
	"github.com/yahyalfc/ticket-ledger/internal/ledger"
)

type Handlers struct {
	cfg    *config.Config
	ledger *ledger.Service
	idemp  *idempotency.Idempotency
	audit  *mongoadapter.AuditLogger
}

func NewHandlers(cfg *config.Config, svc *ledger.Service, idemp *idempotency.Idempotency, audit *mongoadapter.AuditLogger) *Handlers {
	return &Handlers{
		cfg:    cfg,
		ledger: svc,
		idemp:  idemp,
		audit:  audit,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNoParticipation):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientPayment):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrTimingViolation),
		errors.Is(err, domain.ErrInsufficientInventory),
		errors.Is(err, domain.ErrCapExceeded),
		errors.Is(err, domain.ErrStateDisabled),
		errors.Is(err, domain.ErrPreconditionFailed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrTransferFailed):
		status = http.StatusBadGateway
	}
	http.Error(w, err.Error(), status)
}

func (h *Handlers) auditAction(r *http.Request, action string, actor, eventID uuid.UUID, data map[string]interface{}) {
	if h.audit == nil {
		return
	}
	h.audit.LogAction(r.Context(), action, actor, eventID, data)
}

func eventIDParam(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())

	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		ID             uuid.UUID `json:"id"`
		Title          string    `json:"title"`
		Quantities     []uint64  `json:"quantities"`
		Prices         []uint64  `json:"prices"`
		LimitEnabled   bool      `json:"limit_enabled"`
		MaxPerCustomer uint64    `json:"max_per_customer"`
		SaleActive     bool      `json:"sale_active"`
		BuybackActive  bool      `json:"buyback_active"`
		Deadline       int64     `json:"deadline"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	err := h.ledger.CreateEvent(r.Context(), caller, ledger.CreateEventInput{
		ID:             req.ID,
		Title:          req.Title,
		Quantities:     req.Quantities,
		Prices:         req.Prices,
		LimitEnabled:   req.LimitEnabled,
		MaxPerCustomer: req.MaxPerCustomer,
		SaleActive:     req.SaleActive,
		BuybackActive:  req.BuybackActive,
		Deadline:       req.Deadline,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{"event_id": req.ID})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
	h.auditAction(r, "event.create", caller, req.ID, map[string]interface{}{"title": req.Title})
}

func (h *Handlers) BuyTickets(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	} else if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var req struct {
		Tier     int    `json:"tier"`
		Quantity uint64 `json:"quantity"`
		Payment  uint64 `json:"payment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ledger.BuyTickets(r.Context(), caller, eventID, req.Tier, req.Quantity, req.Payment); err != nil {
		writeError(w, err)
		return
	}

	holdings, err := h.ledger.GetTickets(eventID, caller)
	if err != nil {
		writeError(w, err)
		return
	}
	data := writeJSON(w, http.StatusOK, map[string]interface{}{"holdings": holdings})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data})
	h.auditAction(r, "ticket.purchase", caller, eventID, map[string]interface{}{
		"tier":     req.Tier,
		"quantity": req.Quantity,
	})
}

func (h *Handlers) ReturnTickets(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	refund, err := h.ledger.ReturnTickets(r.Context(), caller, eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"refund": refund})
	h.auditAction(r, "ticket.return", caller, eventID, map[string]interface{}{"refund": refund})
}

func (h *Handlers) WithdrawFunds(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	amount, err := h.ledger.WithdrawFunds(r.Context(), caller, eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"amount": amount})
	h.auditAction(r, "funds.withdraw", caller, eventID, map[string]interface{}{"amount": amount})
}

func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.ledger.DeleteEvent(r.Context(), caller, eventID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.auditAction(r, "event.delete", caller, eventID, nil)
}

func (h *Handlers) StopSale(w http.ResponseWriter, r *http.Request) {
	h.toggleSale(w, r, false)
}

func (h *Handlers) ContinueSale(w http.ResponseWriter, r *http.Request) {
	h.toggleSale(w, r, true)
}

func (h *Handlers) toggleSale(w http.ResponseWriter, r *http.Request, active bool) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if active {
		err = h.ledger.ContinueSale(r.Context(), caller, eventID)
	} else {
		err = h.ledger.StopSale(r.Context(), caller, eventID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.auditAction(r, "sale.toggle", caller, eventID, map[string]interface{}{"active": active})
}

func (h *Handlers) AddTickets(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Amounts []uint64 `json:"amounts"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ledger.AddTickets(r.Context(), caller, eventID, req.Amounts); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.auditAction(r, "tickets.add", caller, eventID, map[string]interface{}{"amounts": req.Amounts})
}

func (h *Handlers) ChangeTicketPrice(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Tier  int    `json:"tier"`
		Price uint64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.ledger.ChangeTicketPrice(r.Context(), caller, eventID, req.Tier, req.Price); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.auditAction(r, "price.change", caller, eventID, map[string]interface{}{
		"tier":  req.Tier,
		"price": req.Price,
	})
}

func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": h.ledger.GetEvents()})
}

func (h *Handlers) GetEventInfo(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	info, err := h.ledger.GetEventInfo(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *Handlers) GetTickets(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	customer, err := uuid.Parse(r.URL.Query().Get("customer"))
	if err != nil {
		http.Error(w, "invalid customer", http.StatusBadRequest)
		return
	}
	holdings, err := h.ledger.GetTickets(eventID, customer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"holdings": holdings})
}

func (h *Handlers) GetCustomers(w http.ResponseWriter, r *http.Request) {
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	customers, err := h.ledger.GetCustomers(eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": customers})
}

func (h *Handlers) ViewFunds(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	eventID, err := eventIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	funds, err := h.ledger.ViewFunds(caller, eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"funds": funds})
}

func (h *Handlers) GetParticipation(w http.ResponseWriter, r *http.Request) {
	caller, _ := AccountFrom(r.Context())
	events, err := h.ledger.GetParticipation(caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
