package crdb_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/crdb"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

func startStore(t *testing.T, ctx context.Context) *crdb.Store {
	t.Helper()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	store := crdb.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestStore_JournalRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()
	store := startStore(t, ctx)

	eventID := uuid.New()
	actor := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	payload, _ := json.Marshal(domain.BuyTicketsPayload{Tier: 0, Quantity: 2, Cost: 20})
	records := []domain.JournalRecord{
		{EventID: eventID, Op: domain.OpCreateEvent, Actor: actor, Payload: []byte(`{"title":"gala"}`), RecordedAt: now},
		{EventID: eventID, Op: domain.OpBuyTickets, Actor: actor, Payload: payload, RecordedAt: now.Add(time.Second)},
		{EventID: eventID, Op: domain.OpReturnTickets, Actor: actor, RecordedAt: now.Add(2 * time.Second)},
	}
	for _, rec := range records {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append %s: %v", rec.Op, err)
		}
	}

	var replayed []domain.JournalRecord
	err := store.ReplayAll(ctx, func(rec domain.JournalRecord) error {
		replayed = append(replayed, rec)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(replayed) != len(records) {
		t.Fatalf("expected %d records, got %d", len(records), len(replayed))
	}
	for i, rec := range replayed {
		if rec.Op != records[i].Op || rec.EventID != eventID || rec.Actor != actor {
			t.Errorf("record %d mismatch: %+v", i, rec)
		}
		if i > 0 && rec.Seq <= replayed[i-1].Seq {
			t.Errorf("sequence not ascending at %d: %d then %d", i, replayed[i-1].Seq, rec.Seq)
		}
	}

	var bought domain.BuyTicketsPayload
	if err := json.Unmarshal(replayed[1].Payload, &bought); err != nil {
		t.Fatal(err)
	}
	if bought.Quantity != 2 || bought.Cost != 20 {
		t.Errorf("payload did not round trip: %+v", bought)
	}
}

func TestStore_Outbox(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()
	store := startStore(t, ctx)

	eventID := uuid.New()
	actor := uuid.New()

	first := domain.Notification{Kind: domain.NoteEventCreated, EventID: eventID, Actor: actor}
	second := domain.Notification{Kind: domain.NoteTicketPurchased, EventID: eventID, Actor: actor, Quantity: 3, Amount: 30}
	if err := store.Notify(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := store.Notify(ctx, second); err != nil {
		t.Fatal(err)
	}

	pending, err := store.UnpublishedNotifications(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].Kind != domain.NoteEventCreated || pending[1].Kind != domain.NoteTicketPurchased {
		t.Errorf("expected oldest first, got %s then %s", pending[0].Kind, pending[1].Kind)
	}

	var note domain.Notification
	if err := json.Unmarshal(pending[1].Payload, &note); err != nil {
		t.Fatal(err)
	}
	if note.Quantity != 3 || note.Amount != 30 {
		t.Errorf("notification payload mismatch: %+v", note)
	}

	if err := store.MarkPublished(ctx, pending[0].ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	pending, err = store.UnpublishedNotifications(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Kind != domain.NoteTicketPurchased {
		t.Fatalf("expected only the purchase left, got %v", pending)
	}
}
