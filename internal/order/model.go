package order

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hamropasal/backend-storefront/internal/pricing"
)

// ErrDuplicatePayment indicates an order with the same payment reference
// already exists. Callers treat it as a successful replay.
var ErrDuplicatePayment = errors.New("order: duplicate payment reference")

// ErrNotFound indicates no order matched the lookup.
var ErrNotFound = errors.New("order: not found")

// Line is a settled order line. Unit prices are minor units captured at
// purchase time so later catalog edits never rewrite history.
type Line struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name,omitempty"`
	Qty       int           `json:"quantity"`
	UnitPrice pricing.Money `json:"unitPrice"`
}

// Order is a settled purchase created exactly once per gateway payment.
type Order struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	Items       []Line        `json:"items"`
	TotalAmount pricing.Money `json:"totalAmount"`
	Provider    string        `json:"provider"`
	PaymentRef  string        `json:"paymentRef"`
	RawPayload  []byte        `json:"-"`
	CreatedAt   time.Time     `json:"createdAt"`
}
