package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/crdb"
	"github.com/yahyalfc/ticket-ledger/internal/adapters/rabbit"
	"github.com/yahyalfc/ticket-ledger/internal/observability"
)

const batchSize = 10

// Relay drains the notification outbox to RabbitMQ.
type Relay struct {
	store     *crdb.Store
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
}

func NewRelay(store *crdb.Store, rabbitPub *rabbit.Publisher, logger observability.Logger) *Relay {
	return &Relay{store: store, rabbitPub: rabbitPub, logger: logger}
}

// Run publishes NEW outbox records in batches until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			records, err := r.store.UnpublishedNotifications(ctx, batchSize)
			if err != nil {
				r.logger.Error("fetch unpublished notifications: ", err)
				continue
			}
			if len(records) > 0 {
				observability.OutboxLag.Set(now.Sub(records[0].CreatedAt).Seconds())
			} else {
				observability.OutboxLag.Set(0)
			}
			for _, rec := range records {
				if err := r.publishWithRetry(ctx, rec); err != nil {
					r.logger.WithField("outbox_id", rec.ID).Error("publish notification: ", err)
					continue
				}
				if err := r.store.MarkPublished(ctx, rec.ID, time.Now()); err != nil {
					r.logger.WithField("outbox_id", rec.ID).Error("mark published: ", err)
				}
			}
		}
	}
}

func (r *Relay) publishWithRetry(ctx context.Context, rec crdb.OutboxRecord) error {
	msg := amqp.Publishing{
		MessageId:   rec.DedupeKey,
		ContentType: "application/json",
		Body:        rec.Payload,
	}
	var err error
	for i := 0; i < 3; i++ {
		if err = r.rabbitPub.Publish(ctx, rec.Kind, msg); err == nil {
			return nil
		}
		backoff := time.Duration(1<<i) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
