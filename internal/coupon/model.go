package coupon

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates no active coupon matched the lookup.
var ErrNotFound = errors.New("coupon: not found")

// Coupon is a percentage discount owned by a single user.
type Coupon struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	DiscountPercentage int32     `json:"discountPercentage"`
	UserID             uuid.UUID `json:"userId"`
	IsActive           bool      `json:"isActive"`
	ExpiresAt          time.Time `json:"expiresAt"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Expired reports whether the coupon's validity window has passed.
func (c Coupon) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
