package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/crdb"
	mongoadapter "github.com/yahyalfc/ticket-ledger/internal/adapters/mongo"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/payout"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/rabbit"
	redisadapter "github.com/yahyalfc/ticket-ledger/internal/adapters/redis"
	"github.com/yahyalfc/ticket-ledger/internal/config"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
	httphandler "github.com/yahyalfc/ticket-ledger/internal/http"
	"github.com/yahyalfc/ticket-ledger/internal/idempotency"
	"github.com/yahyalfc/ticket-ledger/internal/ledger"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
	"github.com/yahyalfc/ticket-ledger/internal/outbox"
	"github.com/yahyalfc/ticket-ledger/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestIntegration_PurchaseReturnFlow(t *testing.T) {
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer crdbContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongo", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mongoContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health").WithPort("15672"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	crdbHost, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	crdbPort, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}
	mongoHost, err := mongoContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	rabbitHost, err := rabbitContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rabbitPort, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}

	// stand-in for the external transfer service; accepts every credit
	payoutSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer payoutSrv.Close()

	cfg := &config.Config{
		CRDBDSN:        "postgresql://root@" + crdbHost + ":" + crdbPort.Port() + "/defaultdb?sslmode=disable",
		MongoURI:       "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		RedisAddr:      redisHost + ":" + redisPort.Port(),
		RabbitURL:      "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/",
		PayoutURL:      payoutSrv.URL,
		IdempotencyTTL: time.Hour,
		RelayInterval:  200 * time.Millisecond,
		OTLPEndpoint:   "", // skip otel for test
	}

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		t.Fatal(err)
	}
	defer mongoClient.Disconnect(ctx)
	logger := observability.NewLogger()
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("ticketledger"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}
	tap, err := rabbit.NewConsumer(rabbitConn, "integration-tap", "#")
	if err != nil {
		t.Fatal(err)
	}
	deliveries, err := tap.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}

	svc := ledger.NewService(payout.NewClient(cfg.PayoutURL),
		ledger.WithNotifier(store),
		ledger.WithJournal(store),
		ledger.WithLogger(logger),
	)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relay := outbox.NewRelay(store, rabbitPub, logger)
	go relay.Run(relayCtx, cfg.RelayInterval)

	handlers := httphandler.NewHandlers(cfg, svc, idemp, audit)
	r := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{Addr: ":8089", Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Error(err)
		}
	}()
	defer srv.Shutdown(ctx)
	time.Sleep(100 * time.Millisecond)

	owner := uuid.New()
	buyer := uuid.New()
	base := "http://localhost:8089/v1"

	do := func(method, path string, account uuid.UUID, body interface{}) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatal(err)
			}
		}
		req, err := http.NewRequest(method, base+path, &buf)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Account-ID", account.String())
		if method == http.MethodPost {
			req.Header.Set("Idempotency-Key", uuid.New().String())
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	// create event
	resp := do("POST", "/events", owner, map[string]interface{}{
		"title":          "integration gala",
		"quantities":     []uint64{50},
		"prices":         []uint64{10},
		"sale_active":    true,
		"buyback_active": true,
		"deadline":       time.Now().Add(24 * time.Hour).Unix(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create event status %d", resp.StatusCode)
	}
	var created struct {
		EventID uuid.UUID `json:"event_id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// purchase
	resp = do("POST", "/events/"+created.EventID.String()+"/purchase", buyer, map[string]interface{}{
		"tier": 0, "quantity": 2, "payment": 20,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purchase status %d", resp.StatusCode)
	}
	var bought struct {
		Holdings []uint64 `json:"holdings"`
	}
	json.NewDecoder(resp.Body).Decode(&bought)
	resp.Body.Close()
	if len(bought.Holdings) != 1 || bought.Holdings[0] != 2 {
		t.Fatalf("unexpected holdings %v", bought.Holdings)
	}

	// return
	resp = do("POST", "/events/"+created.EventID.String()+"/return", buyer, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("return status %d", resp.StatusCode)
	}
	var returned struct {
		Refund uint64 `json:"refund"`
	}
	json.NewDecoder(resp.Body).Decode(&returned)
	resp.Body.Close()
	if returned.Refund != 20 {
		t.Fatalf("expected refund 20, got %d", returned.Refund)
	}

	// withdrawal is still gated by the deadline
	resp = do("POST", "/events/"+created.EventID.String()+"/withdraw", owner, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("early withdraw status %d", resp.StatusCode)
	}
	resp.Body.Close()

	// the outbox relay ships every notification to the broker
	wantKinds := map[string]bool{
		domain.NoteEventCreated:    false,
		domain.NoteTicketPurchased: false,
		domain.NoteTicketReturned:  false,
	}
	timeout := time.After(15 * time.Second)
	for remaining := len(wantKinds); remaining > 0; {
		select {
		case d := <-deliveries:
			if seen, ok := wantKinds[d.RoutingKey]; ok && !seen {
				wantKinds[d.RoutingKey] = true
				remaining--
			}
			var note domain.Notification
			if err := json.Unmarshal(d.Body, &note); err != nil {
				t.Fatalf("broker message not a notification: %v", err)
			}
		case <-timeout:
			t.Fatalf("notifications missing from broker: %v", wantKinds)
		}
	}

	// a fresh service rebuilt from the journal sees the same event
	restored := ledger.NewService(payout.NewClient(cfg.PayoutURL))
	if err := store.ReplayAll(ctx, restored.Restore); err != nil {
		t.Fatal(err)
	}
	info, err := restored.GetEventInfo(created.EventID)
	if err != nil {
		t.Fatal(err)
	}
	if info.Title != "integration gala" || info.Available[0] != 50 {
		t.Fatalf("replayed state diverged: %+v", info)
	}
}
