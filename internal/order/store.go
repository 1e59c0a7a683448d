package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the order store dependency is not configured.
var ErrStoreUnavailable = errors.New("order: store unavailable")

// Store provides database accessors for settled orders.
type Store interface {
	Create(ctx context.Context, o Order) (Order, error)
	GetByPaymentRef(ctx context.Context, provider, paymentRef string) (Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Create persists an order. The orders_payment_ref_key unique constraint makes
// settlement idempotent: on a duplicate reference the previously stored order
// is returned together with ErrDuplicatePayment.
func (s *pgStore) Create(ctx context.Context, o Order) (Order, error) {
	if s == nil || s.pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	raw := o.RawPayload
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	row := s.pool.QueryRow(ctx, `INSERT INTO orders (user_id, items, total_amount, provider, payment_ref, raw_payload)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`, o.UserID, items, o.TotalAmount, o.Provider, o.PaymentRef, raw)
	if scanErr := row.Scan(&o.ID, &o.CreatedAt); scanErr != nil {
		var pgErr *pgconn.PgError
		if errors.As(scanErr, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			existing, getErr := s.GetByPaymentRef(ctx, o.Provider, o.PaymentRef)
			if getErr != nil {
				return Order{}, fmt.Errorf("fetch duplicate order: %w", getErr)
			}
			return existing, ErrDuplicatePayment
		}
		return Order{}, scanErr
	}
	return o, nil
}

// GetByPaymentRef fetches the order settled for a gateway reference.
func (s *pgStore) GetByPaymentRef(ctx context.Context, provider, paymentRef string) (Order, error) {
	if s == nil || s.pool == nil {
		return Order{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, user_id, items, total_amount, provider, payment_ref, raw_payload, created_at
FROM orders WHERE provider = $1 AND payment_ref = $2`, provider, paymentRef)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListByUser returns the user's orders, newest first.
func (s *pgStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, items, total_amount, provider, payment_ref, raw_payload, created_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := make([]Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountByUser returns the total number of orders for the user.
func (s *pgStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, ErrStoreUnavailable
	}
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var items []byte
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.TotalAmount, &o.Provider, &o.PaymentRef, &o.RawPayload, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return Order{}, fmt.Errorf("decode order items: %w", err)
		}
	}
	return o, nil
}
