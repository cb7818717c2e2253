package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

type OutboxRecord struct {
	ID          uuid.UUID
	Kind        string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Status      string // NEW, PUBLISHED
	DedupeKey   string
}

// Notify stores the notification in the outbox; the relay ships it to the
// broker and marks it published. This is what makes emission survive a
// broker outage without blocking the transition.
func (s *Store) Notify(ctx context.Context, note domain.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO outbox (id, kind, payload, status, dedupe_key)
		VALUES ($1, $2, $3, 'NEW', $4)
	`, uuid.New(), note.Kind, payload, uuid.New().String())
	return errors.Wrap(err, "insert outbox")
}

// UnpublishedNotifications returns up to limit NEW records, oldest first,
// locked against concurrent relays.
func (s *Store) UnpublishedNotifications(ctx context.Context, limit int) ([]OutboxRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, payload, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query outbox")
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey); err != nil {
			return nil, errors.Wrap(err, "scan outbox row")
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
	`, id, publishedAt)
	return errors.Wrap(err, "mark published")
}
