package coupon

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hamropasal/backend-storefront/internal/events"
	"github.com/hamropasal/backend-storefront/internal/obs"
)

const (
	codePrefix   = "GIFT"
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 6
)

// Issuer mints reward coupons for users who cross the spend threshold.
type Issuer struct {
	Store    Store
	Bus      *events.Bus
	Percent  int32
	Validity time.Duration
	Log      zerolog.Logger
	Now      func() time.Time
}

// IssueFor replaces the user's coupon with a fresh reward coupon.
func (i *Issuer) IssueFor(ctx context.Context, userID uuid.UUID) (Coupon, error) {
	if i == nil || i.Store == nil {
		return Coupon{}, ErrStoreUnavailable
	}
	code, err := generateCode()
	if err != nil {
		return Coupon{}, fmt.Errorf("coupon: generate code: %w", err)
	}
	percent := i.Percent
	if percent <= 0 {
		percent = 10
	}
	validity := i.Validity
	if validity <= 0 {
		validity = 30 * 24 * time.Hour
	}
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}
	c, err := i.Store.ReplaceForUser(ctx, Coupon{
		Code:               code,
		DiscountPercentage: percent,
		UserID:             userID,
		IsActive:           true,
		ExpiresAt:          now().Add(validity),
	})
	if err != nil {
		return Coupon{}, err
	}
	if obs.CouponIssuedTotal != nil {
		obs.CouponIssuedTotal.Inc()
	}
	if i.Bus != nil {
		_, emitErr := i.Bus.Emit(ctx, events.TopicCouponIssued, c.ID, map[string]any{
			"couponId": c.ID.String(),
			"code":     c.Code,
			"userId":   userID.String(),
		})
		if emitErr != nil {
			i.Log.Warn().Err(emitErr).Str("code", c.Code).Msg("emit coupon issued event")
		}
	}
	i.Log.Info().
		Str("userId", userID.String()).
		Str("code", c.Code).
		Int32("percent", c.DiscountPercentage).
		Time("expiresAt", c.ExpiresAt).
		Msg("reward coupon issued")
	return c, nil
}

func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return codePrefix + string(buf), nil
}
