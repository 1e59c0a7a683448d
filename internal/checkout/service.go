package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hamropasal/backend-storefront/internal/common"
	"github.com/hamropasal/backend-storefront/internal/coupon"
	"github.com/hamropasal/backend-storefront/internal/events"
	"github.com/hamropasal/backend-storefront/internal/obs"
	"github.com/hamropasal/backend-storefront/internal/order"
	"github.com/hamropasal/backend-storefront/internal/payment"
	"github.com/hamropasal/backend-storefront/internal/pricing"
)

// Provider names recorded on settled orders.
const (
	ProviderCard     = "stripe"
	ProviderRedirect = "esewa"
)

// CardGateway opens hosted checkout sessions with the card processor and
// confirms them by authenticated retrieval.
type CardGateway interface {
	CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error)
	payment.Confirmer
}

// RedirectGateway prepares signed redirect payloads for the regional gateway
// and confirms its callbacks by signature verification.
type RedirectGateway interface {
	BuildCheckout(total pricing.Money) (payment.CheckoutPayload, error)
	payment.Confirmer
}

// OrderStore is the slice of order persistence the checkout flow needs.
type OrderStore interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
}

// CouponStore is the slice of coupon persistence the checkout flow needs.
type CouponStore interface {
	GetActive(ctx context.Context, code string, userID uuid.UUID) (coupon.Coupon, error)
	Deactivate(ctx context.Context, code string, userID uuid.UUID) error
}

// Service coordinates pricing, gateway sessions and settlement.
type Service struct {
	Card            CardGateway
	Redirect        RedirectGateway
	Orders          OrderStore
	Coupons         CouponStore
	Bus             *events.Bus
	RewardThreshold pricing.Money
	Log             zerolog.Logger
}

// SettlementResult reports the outcome of reconciling a confirmation.
type SettlementResult struct {
	Order    order.Order
	Replayed bool
}

// ErrNotPaid is returned when a verified confirmation reports a payment that
// did not complete. No order is ever created on this path.
var ErrNotPaid = common.NewAppError("PAYMENT_NOT_COMPLETED", "payment was not completed", http.StatusPaymentRequired, nil)

// CreateCardSession prices the cart, applies the user's active coupon and
// opens a hosted checkout session.
func (s *Service) CreateCardSession(ctx context.Context, userID string, items []pricing.Item, couponCode string) (payment.Session, error) {
	percent, err := s.resolveCoupon(ctx, userID, couponCode)
	if err != nil {
		return payment.Session{}, err
	}
	if _, err := pricing.Quote(items, percent); err != nil {
		return payment.Session{}, common.BadRequest("INVALID_CART", err.Error())
	}
	sess, err := s.Card.CreateSession(ctx, payment.SessionRequest{
		UserID:     userID,
		CouponCode: couponCode,
		PercentOff: percent,
		Items:      items,
	})
	if err != nil {
		countSession(ProviderCard, "error")
		return payment.Session{}, err
	}
	countSession(ProviderCard, "ok")
	s.Log.Info().
		Str("userId", userID).
		Str("sessionId", sess.ID).
		Int64("totalAmount", int64(sess.AmountTotal)).
		Msg("card checkout session created")
	return sess, nil
}

// ConfirmCardPayment retrieves the session from the processor and settles the
// order when the payment completed.
func (s *Service) ConfirmCardPayment(ctx context.Context, sessionID string) (SettlementResult, error) {
	if sessionID == "" {
		return SettlementResult{}, common.BadRequest("MISSING_SESSION_ID", "sessionId is required")
	}
	conf, err := s.Card.Confirm(ctx, sessionID)
	if err != nil {
		return SettlementResult{}, err
	}
	return s.settle(ctx, ProviderCard, conf)
}

// CreateRedirectCheckout prices the cart and builds the signed form payload
// for the redirect gateway.
func (s *Service) CreateRedirectCheckout(ctx context.Context, userID string, items []pricing.Item, couponCode string) (payment.CheckoutPayload, error) {
	percent, err := s.resolveCoupon(ctx, userID, couponCode)
	if err != nil {
		return payment.CheckoutPayload{}, err
	}
	summary, err := pricing.Quote(items, percent)
	if err != nil {
		return payment.CheckoutPayload{}, common.BadRequest("INVALID_CART", err.Error())
	}
	payload, err := s.Redirect.BuildCheckout(summary.Total)
	if err != nil {
		countSession(ProviderRedirect, "error")
		return payment.CheckoutPayload{}, err
	}
	countSession(ProviderRedirect, "ok")
	s.Log.Info().
		Str("userId", userID).
		Str("transactionUuid", payload.TransactionUUID).
		Int64("totalAmount", int64(summary.Total)).
		Msg("redirect checkout prepared")
	return payload, nil
}

// ConfirmRedirectPayment verifies the signed callback and settles the order.
// The gateway callback does not always echo the cart, so the handler may pass
// fallback identity and items taken from the request body.
func (s *Service) ConfirmRedirectPayment(ctx context.Context, encoded string, fallbackUserID string, fallbackItems []pricing.Item) (SettlementResult, error) {
	if encoded == "" {
		return SettlementResult{}, common.BadRequest("MISSING_PAYLOAD", "data is required")
	}
	conf, err := s.Redirect.Confirm(ctx, encoded)
	if err != nil {
		return SettlementResult{}, err
	}
	if conf.UserID == "" {
		conf.UserID = fallbackUserID
	}
	if len(conf.Items) == 0 {
		conf.Items = fallbackItems
	}
	return s.settle(ctx, ProviderRedirect, conf)
}

// settle turns a verified confirmation into exactly one persisted order. A
// duplicate payment reference is treated as a replay and returns the prior
// order. A confirmation that is not paid never creates an order.
func (s *Service) settle(ctx context.Context, provider string, conf payment.Confirmation) (SettlementResult, error) {
	if !conf.Valid {
		countConfirm(provider, "invalid")
		err := conf.Err
		if err == nil {
			err = errors.New("confirmation rejected")
		}
		if errors.Is(err, payment.ErrInvalidCallback) {
			return SettlementResult{}, common.BadRequest("INVALID_PAYLOAD", err.Error())
		}
		return SettlementResult{}, common.NewAppError("SIGNATURE_MISMATCH", "payment confirmation could not be verified", http.StatusBadRequest, err)
	}
	if !conf.Paid {
		countConfirm(provider, "not_paid")
		s.Log.Warn().
			Str("provider", provider).
			Str("transactionId", conf.TransactionID).
			Str("status", conf.Status).
			Msg("payment confirmation not paid")
		return SettlementResult{}, ErrNotPaid
	}
	userID, err := uuid.Parse(conf.UserID)
	if err != nil {
		return SettlementResult{}, common.BadRequest("MISSING_USER", "confirmation carries no valid user id")
	}
	if len(conf.Items) == 0 {
		return SettlementResult{}, common.BadRequest("MISSING_PRODUCTS", "confirmation carries no products")
	}

	lines := make([]order.Line, 0, len(conf.Items))
	for _, it := range conf.Items {
		lines = append(lines, order.Line{
			ProductID: it.ProductID,
			Name:      it.Name,
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
		})
	}
	created, err := s.Orders.Create(ctx, order.Order{
		UserID:      userID,
		Items:       lines,
		TotalAmount: conf.AmountTotal,
		Provider:    provider,
		PaymentRef:  conf.TransactionID,
		RawPayload:  conf.RawPayload,
	})
	if errors.Is(err, order.ErrDuplicatePayment) {
		countConfirm(provider, "replayed")
		s.Log.Info().
			Str("provider", provider).
			Str("paymentRef", conf.TransactionID).
			Str("orderId", created.ID.String()).
			Msg("settlement replayed, returning prior order")
		return SettlementResult{Order: created, Replayed: true}, nil
	}
	if err != nil {
		return SettlementResult{}, fmt.Errorf("persist order: %w", err)
	}
	countConfirm(provider, "paid")

	if conf.CouponCode != "" && s.Coupons != nil {
		if err := s.Coupons.Deactivate(ctx, conf.CouponCode, userID); err != nil {
			s.Log.Error().Err(err).Str("code", conf.CouponCode).Msg("failed to deactivate coupon")
		}
	}
	s.emit(ctx, events.TopicOrderPaid, created.ID, map[string]any{
		"orderId":     created.ID,
		"userId":      userID,
		"provider":    provider,
		"paymentRef":  created.PaymentRef,
		"totalAmount": created.TotalAmount,
	})
	if s.RewardThreshold > 0 && created.TotalAmount >= s.RewardThreshold {
		s.emit(ctx, events.TopicCouponThresholdCrossed, created.ID, coupon.IssuePayload{
			UserID:  userID,
			OrderID: created.ID,
		})
	}
	return SettlementResult{Order: created}, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Log.Error().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}

// resolveCoupon looks up the discount percentage for a coupon code. An
// unknown or expired code quotes without a discount rather than failing.
func (s *Service) resolveCoupon(ctx context.Context, userID, code string) (int32, error) {
	if code == "" || s.Coupons == nil {
		return 0, nil
	}
	uID, err := uuid.Parse(userID)
	if err != nil {
		return 0, common.BadRequest("BAD_REQUEST", "invalid user id")
	}
	c, err := s.Coupons.GetActive(ctx, code, uID)
	if errors.Is(err, coupon.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup coupon: %w", err)
	}
	return c.DiscountPercentage, nil
}

func countSession(provider, result string) {
	if obs.CheckoutSessionTotal != nil {
		obs.CheckoutSessionTotal.WithLabelValues(provider, result).Inc()
	}
}

func countConfirm(provider, result string) {
	if obs.PaymentConfirmTotal != nil {
		obs.PaymentConfirmTotal.WithLabelValues(provider, result).Inc()
	}
}
