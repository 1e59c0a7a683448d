package payment

import (
	"context"

	"github.com/hamropasal/backend-storefront/internal/pricing"
)

// SessionRequest captures the information required to open a hosted checkout
// session with the card processor.
type SessionRequest struct {
	UserID     string
	CouponCode string
	PercentOff int32
	Items      []pricing.Item
}

// Session represents the minimal information returned when a hosted checkout
// session is created.
type Session struct {
	ID          string
	AmountTotal pricing.Money
}

// Confirmation contains the normalised result of verifying a payment
// confirmation, regardless of which gateway produced it.
type Confirmation struct {
	// Valid reports whether the payload was authentic (signature verified, or
	// retrieved from the processor over an authenticated channel).
	Valid bool
	// Paid reports whether the payment actually completed.
	Paid bool
	// TransactionID is the processor session id or gateway transaction code.
	TransactionID string
	Status        string
	AmountTotal   pricing.Money
	UserID        string
	CouponCode    string
	Items         []pricing.Item
	RawPayload    []byte
	Err           error
}

// Confirmer verifies that a payment attempt concluded and extracts the data
// needed to build an order. The card processor variant confirms by
// authenticated retrieval; the redirect gateway variant confirms by verifying
// an HMAC signature over the callback payload.
type Confirmer interface {
	Confirm(ctx context.Context, ref string) (Confirmation, error)
}
