package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the event store dependency is not configured.
var ErrStoreUnavailable = errors.New("events: store unavailable")

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

func (s *pgStore) InsertDomainEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if s == nil || s.pool == nil {
		return Event{}, ErrStoreUnavailable
	}
	ev := Event{Topic: topic, AggregateID: aggregateID, Payload: payload}
	err := s.pool.QueryRow(ctx, `INSERT INTO domain_events (topic, aggregate_id, payload)
VALUES ($1, $2, $3) RETURNING id, occurred_at`, topic, aggregateID, payload).Scan(&ev.ID, &ev.OccurredAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
