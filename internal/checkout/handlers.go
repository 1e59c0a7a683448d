package checkout

import (
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/hamropasal/backend-storefront/internal/common"
	"github.com/hamropasal/backend-storefront/internal/payment"
	"github.com/hamropasal/backend-storefront/internal/pricing"
)

// Handler serves the payment endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// ProductInput mirrors the cart line shape sent by the storefront. Prices
// arrive as major-unit decimals.
type ProductInput struct {
	ID       string  `json:"_id" validate:"required"`
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"gte=0"`
}

type sessionInput struct {
	Products   []ProductInput `json:"products" validate:"required,min=1,dive"`
	CouponCode string         `json:"couponCode"`
}

type confirmInput struct {
	SessionID string `json:"sessionId"`
}

type verifyInput struct {
	Data     string         `json:"data"`
	UserID   string         `json:"userId"`
	Products []ProductInput `json:"products"`
}

// CreateCheckoutSession opens a hosted card checkout session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var payload sessionInput
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_CART", "provide a non-empty product list", nil)
		return
	}
	sess, err := h.Svc.CreateCardSession(r.Context(), userID, toItems(payload.Products), payload.CouponCode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"id":          sess.ID,
		"totalAmount": payment.MinorToMajor(sess.AmountTotal),
	})
}

// CheckoutSuccess confirms a hosted session and settles the order.
func (h *Handler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}
	var payload confirmInput
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	result, err := h.Svc.ConfirmCardPayment(r.Context(), payload.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	message := "payment successful and order created"
	if result.Replayed {
		message = "payment already processed"
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": message,
		"orderId": result.Order.ID,
	})
}

// EsewaCheckout builds the signed redirect form payload.
func (h *Handler) EsewaCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var payload sessionInput
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_CART", "provide a non-empty product list", nil)
		return
	}
	form, err := h.Svc.CreateRedirectCheckout(r.Context(), userID, toItems(payload.Products), payload.CouponCode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, form)
}

// EsewaPaymentVerification verifies the gateway callback and settles the
// order.
func (h *Handler) EsewaPaymentVerification(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var payload verifyInput
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	fallbackUser := payload.UserID
	if fallbackUser == "" {
		fallbackUser = userID
	}
	result, err := h.Svc.ConfirmRedirectPayment(r.Context(), payload.Data, fallbackUser, toItems(payload.Products))
	if err != nil {
		h.writeError(w, err)
		return
	}
	message := "payment verified and order created"
	if result.Replayed {
		message = "payment already processed"
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"message": message,
		"orderId": result.Order.ID,
	})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.WriteError(w, appErr)
		return
	}
	var provErr *payment.ProviderError
	if errors.As(err, &provErr) {
		common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", provErr.Message(), nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}

func toItems(products []ProductInput) []pricing.Item {
	items := make([]pricing.Item, 0, len(products))
	for _, p := range products {
		items = append(items, pricing.Item{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			Qty:       pricing.EffectiveQty(p.Quantity),
			UnitPrice: payment.MajorToMinor(p.Price),
		})
	}
	return items
}
