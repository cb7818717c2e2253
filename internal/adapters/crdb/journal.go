package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yahyalfc/ticket-ledger/internal/domain"
)

// Store persists the transition journal and the notification outbox.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the journal and outbox tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS journal (
			seq BIGINT PRIMARY KEY DEFAULT unique_rowid(),
			event_id UUID NOT NULL,
			op TEXT NOT NULL,
			actor UUID NOT NULL,
			payload JSONB,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS outbox (
			id UUID PRIMARY KEY,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			published_at TIMESTAMPTZ,
			status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED')),
			dedupe_key TEXT NOT NULL
		);
	`)
	return errors.Wrap(err, "ensure schema")
}

// Append writes one applied transition to the journal.
func (s *Store) Append(ctx context.Context, rec domain.JournalRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO journal (event_id, op, actor, payload, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.EventID, rec.Op, rec.Actor, rec.Payload, rec.RecordedAt)
	return errors.Wrap(err, "append journal")
}

// ReplayAll streams the journal in sequence order into fn. It is called at
// startup to rebuild the in-memory ledger.
func (s *Store) ReplayAll(ctx context.Context, fn func(domain.JournalRecord) error) error {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, event_id, op, actor, payload, recorded_at
		FROM journal ORDER BY seq ASC
	`)
	if err != nil {
		return errors.Wrap(err, "query journal")
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.JournalRecord
		if err := rows.Scan(&rec.Seq, &rec.EventID, &rec.Op, &rec.Actor, &rec.Payload, &rec.RecordedAt); err != nil {
			return errors.Wrap(err, "scan journal row")
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return errors.Wrap(rows.Err(), "iterate journal")
}
