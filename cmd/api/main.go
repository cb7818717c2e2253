package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/crdb"
	mongoadapter "github.com/yahyalfc/ticket-ledger/internal/adapters/mongo"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/payout"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/rabbit"
	redisadapter "github.com/yahyalfc/ticket-ledger/internal/adapters/redis"
	"github.com/yahyalfc/ticket-ledger/internal/config"
	httphandler "github.com/yahyalfc/ticket-ledger/internal/http"
	"github.com/yahyalfc/ticket-ledger/internal/idempotency"
	"github.com/yahyalfc/ticket-ledger/internal/ledger"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
	"github.com/yahyalfc/ticket-ledger/internal/outbox"
	"github.com/yahyalfc/ticket-ledger/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOtel, err := observability.SetupOTel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	store := crdb.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("ticketledger"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	svc := ledger.NewService(
		payout.NewClient(cfg.PayoutURL),
		ledger.WithNotifier(store),
		ledger.WithJournal(store),
		ledger.WithLogger(logger),
	)
	if err := store.ReplayAll(ctx, svc.Restore); err != nil {
		log.Fatalf("failed to replay journal: %v", err)
	}

	handlers := httphandler.NewHandlers(cfg, svc, idemp, audit)
	router := httphandler.SetupRouter(handlers, logger, rl, idemp)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}
	relay := outbox.NewRelay(store, rabbitPub, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		relay.Run(gctx, cfg.RelayInterval)
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case <-gctx.Done():
			return nil
		}
		logger.Info("Shutdown Server ...")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("Server exiting")
}
