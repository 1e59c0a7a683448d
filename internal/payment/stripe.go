package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/hamropasal/backend-storefront/internal/pricing"
)

// Stripe wraps the card processor's hosted checkout session API.
type Stripe struct {
	api        *client.API
	currency   string
	successURL string
	cancelURL  string
}

// NewStripe constructs a Stripe gateway. The success URL receives the session
// id placeholder so the client can confirm the payment after redirect.
func NewStripe(secretKey, clientURL, currency string) (*Stripe, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	if currency == "" {
		currency = "usd"
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	base := strings.TrimRight(clientURL, "/")
	return &Stripe{
		api:        api,
		currency:   strings.ToLower(currency),
		successURL: base + "/purchase-success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:  base + "/purchase-cancel",
	}, nil
}

// metaItem is the line-item snapshot serialised into session metadata; the
// processor's confirmation does not echo arbitrary application state, so the
// purchased items ride along here.
type metaItem struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreateSession opens a hosted checkout session for the given line items,
// attaching a one-off percent discount when a coupon applies.
func (s *Stripe) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if s == nil || s.api == nil {
		return Session{}, errors.New("stripe: gateway not configured")
	}
	if len(req.Items) == 0 {
		return Session{}, errors.New("stripe: no line items")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	meta := make([]metaItem, 0, len(req.Items))
	for _, it := range req.Items {
		qty := pricing.EffectiveQty(it.Qty)
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(it.Name),
		}
		if it.Image != "" {
			product.Images = []*string{stripe.String(it.Image)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.currency),
				ProductData: product,
				UnitAmount:  stripe.Int64(it.UnitPrice),
			},
			Quantity: stripe.Int64(int64(qty)),
		})
		meta = append(meta, metaItem{ID: it.ProductID, Quantity: qty, Price: MinorToMajor(it.UnitPrice)})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(s.successURL),
		CancelURL:          stripe.String(s.cancelURL),
	}
	params.Context = ctx
	if req.PercentOff > 0 {
		couponID, err := s.oneOffCoupon(ctx, req.PercentOff)
		if err != nil {
			return Session{}, err
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{{Coupon: stripe.String(couponID)}}
	}
	params.AddMetadata("userId", req.UserID)
	params.AddMetadata("couponCode", req.CouponCode)
	encoded, err := json.Marshal(meta)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: encode line items: %w", err)
	}
	params.AddMetadata("products", string(encoded))

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return Session{}, providerError("create checkout session", err)
	}
	return Session{ID: sess.ID, AmountTotal: sess.AmountTotal}, nil
}

// Confirm retrieves the session from the processor. The retrieval call is
// authenticated, so no local signature check is required; the processor's
// reported payment_status is authoritative.
func (s *Stripe) Confirm(ctx context.Context, sessionID string) (Confirmation, error) {
	if s == nil || s.api == nil {
		return Confirmation{}, errors.New("stripe: gateway not configured")
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return Confirmation{}, providerError("retrieve checkout session", err)
	}

	var items []pricing.Item
	if encoded := sess.Metadata["products"]; encoded != "" {
		var meta []metaItem
		if err := json.Unmarshal([]byte(encoded), &meta); err != nil {
			return Confirmation{}, fmt.Errorf("stripe: decode session line items: %w", err)
		}
		items = make([]pricing.Item, 0, len(meta))
		for _, m := range meta {
			items = append(items, pricing.Item{
				ProductID: m.ID,
				Qty:       pricing.EffectiveQty(m.Quantity),
				UnitPrice: MajorToMinor(m.Price),
			})
		}
	}

	var raw []byte
	if sess.LastResponse != nil {
		raw = sess.LastResponse.RawJSON
	}

	return Confirmation{
		Valid:         true,
		Paid:          sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		TransactionID: sess.ID,
		Status:        string(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		UserID:        sess.Metadata["userId"],
		CouponCode:    sess.Metadata["couponCode"],
		Items:         items,
		RawPayload:    raw,
	}, nil
}

// oneOffCoupon registers a single-use percent-off coupon with the processor.
func (s *Stripe) oneOffCoupon(ctx context.Context, percentOff int32) (string, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(float64(percentOff)),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx
	c, err := s.api.Coupons.New(params)
	if err != nil {
		return "", providerError("create discount coupon", err)
	}
	return c.ID, nil
}

// ProviderError carries the processor's own error text so handlers can
// surface it per the API error contract.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("stripe: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Message returns the human readable provider message when available.
func (e *ProviderError) Message() string {
	var stripeErr *stripe.Error
	if errors.As(e.Err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return e.Err.Error()
}

func providerError(op string, err error) error {
	return &ProviderError{Op: op, Err: err}
}
