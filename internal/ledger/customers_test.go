package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

func TestCustomerLedger_Lifecycle(t *testing.T) {
	cl := NewCustomerLedger(3)
	alice := uuid.New()
	bob := uuid.New()

	if got := cl.Holdings(alice); len(got) != 0 {
		t.Fatalf("expected empty holdings for unknown customer, got %v", got)
	}

	cl.RecordPurchase(alice, 0, 2, 200)
	cl.RecordPurchase(alice, 2, 1, 50)
	cl.RecordPurchase(bob, 1, 4, 400)

	a, ok := cl.Get(alice)
	if !ok {
		t.Fatal("alice missing after purchase")
	}
	if a.TotalQuantity() != 3 || a.TotalPaid() != 250 {
		t.Fatalf("alice aggregate wrong: qty=%d paid=%d", a.TotalQuantity(), a.TotalPaid())
	}
	if got := cl.Holdings(alice); got[0] != 2 || got[1] != 0 || got[2] != 1 {
		t.Fatalf("alice per-tier wrong: %v", got)
	}
	if cl.TotalPaidSum() != 650 {
		t.Fatalf("expected 650 paid in total, got %d", cl.TotalPaidSum())
	}

	perTier, paid, err := cl.RecordReturn(alice)
	if err != nil {
		t.Fatal(err)
	}
	if paid != 250 || perTier[0] != 2 || perTier[2] != 1 {
		t.Fatalf("return snapshot wrong: %v paid=%d", perTier, paid)
	}
	if _, ok := cl.Get(alice); ok {
		t.Fatal("alice still present after full return")
	}
	if cl.Count() != 1 {
		t.Fatalf("expected 1 customer left, got %d", cl.Count())
	}
	// bob's record must survive alice's swap-removal intact
	if got := cl.Holdings(bob); got[1] != 4 {
		t.Fatalf("bob disturbed by alice's removal: %v", got)
	}
	if got := cl.Customers(); len(got) != 1 || got[0] != bob {
		t.Fatalf("customer list wrong after removal: %v", got)
	}
}

func TestCustomerLedger_ReturnUnknown(t *testing.T) {
	cl := NewCustomerLedger(1)
	if _, _, err := cl.RecordReturn(uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCustomerLedger_OrderedList(t *testing.T) {
	cl := NewCustomerLedger(1)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		cl.RecordPurchase(id, 0, 1, 10)
	}
	got := cl.Customers()
	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("expected insertion order, got %v", got)
		}
	}

	// removing the first swaps the last into its slot
	if _, _, err := cl.RecordReturn(ids[0]); err != nil {
		t.Fatal(err)
	}
	got = cl.Customers()
	if got[0] != ids[2] || got[1] != ids[1] {
		t.Fatalf("unexpected order after swap-remove: %v", got)
	}
}
