package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStoreUnavailable indicates the coupon store dependency is not configured.
var ErrStoreUnavailable = errors.New("coupon: store unavailable")

// Store provides database accessors for user coupons.
type Store interface {
	GetActive(ctx context.Context, code string, userID uuid.UUID) (Coupon, error)
	Deactivate(ctx context.Context, code string, userID uuid.UUID) error
	ReplaceForUser(ctx context.Context, c Coupon) (Coupon, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// GetActive fetches the user's active, unexpired coupon by code.
func (s *pgStore) GetActive(ctx context.Context, code string, userID uuid.UUID) (Coupon, error) {
	if s == nil || s.pool == nil {
		return Coupon{}, ErrStoreUnavailable
	}
	row := s.pool.QueryRow(ctx, `SELECT id, code, discount_percentage, user_id, is_active, expires_at, created_at
FROM coupons WHERE code = $1 AND user_id = $2 AND is_active AND expires_at > now()`, code, userID)
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.DiscountPercentage, &c.UserID, &c.IsActive, &c.ExpiresAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	return c, err
}

// Deactivate marks the coupon consumed. Missing rows are not an error so
// settlement replays stay idempotent.
func (s *pgStore) Deactivate(ctx context.Context, code string, userID uuid.UUID) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	_, err := s.pool.Exec(ctx, `UPDATE coupons SET is_active = false WHERE code = $1 AND user_id = $2`, code, userID)
	return err
}

// ReplaceForUser removes any previous coupon for the user and inserts the new
// one in a single transaction, so a user holds at most one reward coupon.
func (s *pgStore) ReplaceForUser(ctx context.Context, c Coupon) (Coupon, error) {
	if s == nil || s.pool == nil {
		return Coupon{}, ErrStoreUnavailable
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Coupon{}, fmt.Errorf("begin coupon replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM coupons WHERE user_id = $1`, c.UserID); err != nil {
		return Coupon{}, fmt.Errorf("delete previous coupon: %w", err)
	}
	row := tx.QueryRow(ctx, `INSERT INTO coupons (code, discount_percentage, user_id, is_active, expires_at)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`, c.Code, c.DiscountPercentage, c.UserID, c.IsActive, c.ExpiresAt)
	if err := row.Scan(&c.ID, &c.CreatedAt); err != nil {
		return Coupon{}, fmt.Errorf("insert coupon: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Coupon{}, fmt.Errorf("commit coupon replace: %w", err)
	}
	return c, nil
}
