package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hamropasal/backend-storefront/internal/pricing"
	"github.com/hamropasal/backend-storefront/internal/sign"
)

// esewaCallbackFieldNames is the field order the gateway signs on callbacks.
const esewaCallbackFieldNames = "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names"

// ErrInvalidCallback is returned when a redirect callback payload cannot be
// decoded into the protocol fields.
var ErrInvalidCallback = errors.New("esewa: invalid callback payload")

// Esewa implements the redirect based regional gateway. Checkout requests are
// signed server side and form-posted to the gateway by the client; the
// gateway redirects back with a base64 encoded, signed JSON payload.
type Esewa struct {
	Secret      string
	ProductCode string
	SuccessURL  string
	FailureURL  string
}

// CheckoutPayload is handed to the client for a full page form submission.
// Field names are part of the gateway contract.
type CheckoutPayload struct {
	Amount           string `json:"amount"`
	TotalAmount      string `json:"total_amount"`
	TransactionUUID  string `json:"uid"`
	ProductCode      string `json:"product_code"`
	SuccessURL       string `json:"success_url"`
	FailureURL       string `json:"failure_url"`
	SignedFieldNames string `json:"signed_field_names"`
	Signature        string `json:"signature"`
}

// BuildCheckout produces a signed redirect-payment request for the given
// total. A fresh transaction identifier is generated per call.
func (e Esewa) BuildCheckout(total pricing.Money) (CheckoutPayload, error) {
	if strings.TrimSpace(e.Secret) == "" {
		return CheckoutPayload{}, errors.New("esewa: secret not configured")
	}
	if total < 0 {
		return CheckoutPayload{}, errors.New("esewa: negative total")
	}
	uid := uuid.NewString()
	amount := FormatAmount(total)
	message := sign.CheckoutMessage(amount, uid, e.ProductCode)
	return CheckoutPayload{
		Amount:           amount,
		TotalAmount:      amount,
		TransactionUUID:  uid,
		ProductCode:      e.ProductCode,
		SuccessURL:       e.SuccessURL,
		FailureURL:       e.FailureURL,
		SignedFieldNames: sign.CheckoutFieldNames,
		Signature:        sign.Sign(message, e.Secret),
	}, nil
}

// callbackPayload mirrors the JSON document the gateway embeds in its
// redirect. Amount fields keep their exact textual representation because the
// signature is computed over the raw strings.
type callbackPayload struct {
	TransactionCode  string      `json:"transaction_code"`
	Status           string      `json:"status"`
	TotalAmount      rawAmount   `json:"total_amount"`
	TransactionUUID  string      `json:"transaction_uuid"`
	ProductCode      string      `json:"product_code"`
	SignedFieldNames string      `json:"signed_field_names"`
	Signature        string      `json:"signature"`
	UserID           string      `json:"userId"`
	Products         []itemEntry `json:"products"`
}

type itemEntry struct {
	ID       string  `json:"id"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// rawAmount preserves the exact wire text of a numeric-or-string JSON value.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = rawAmount(s)
		return nil
	}
	*a = rawAmount(data)
	return nil
}

// Confirm decodes the base64 callback payload, verifies its signature and
// reports whether the payment completed. Undecodable input yields an invalid
// confirmation wrapping ErrInvalidCallback; the caller maps that to a
// 400-class response.
func (e Esewa) Confirm(_ context.Context, encoded string) (Confirmation, error) {
	raw, err := decodeBase64(strings.TrimSpace(encoded))
	if err != nil {
		return Confirmation{Err: fmt.Errorf("%w: %v", ErrInvalidCallback, err)}, nil
	}
	var payload callbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Confirmation{Err: fmt.Errorf("%w: %v", ErrInvalidCallback, err)}, nil
	}
	if payload.TransactionUUID == "" || payload.SignedFieldNames == "" || payload.Signature == "" {
		return Confirmation{Err: fmt.Errorf("%w: missing signed fields", ErrInvalidCallback)}, nil
	}

	message := sign.CallbackMessage(
		payload.TransactionCode,
		payload.Status,
		string(payload.TotalAmount),
		payload.TransactionUUID,
		payload.ProductCode,
		payload.SignedFieldNames,
	)
	if !sign.Verify(message, e.Secret, payload.Signature) {
		return Confirmation{Err: errors.New("esewa: signature verification failed")}, nil
	}

	txnID := payload.TransactionCode
	if txnID == "" {
		txnID = payload.TransactionUUID
	}
	amount, err := ParseAmount(string(payload.TotalAmount))
	if err != nil {
		return Confirmation{Err: fmt.Errorf("%w: bad total_amount: %v", ErrInvalidCallback, err)}, nil
	}

	items := make([]pricing.Item, 0, len(payload.Products))
	for _, p := range payload.Products {
		items = append(items, pricing.Item{
			ProductID: p.ID,
			Qty:       pricing.EffectiveQty(p.Quantity),
			UnitPrice: MajorToMinor(p.Price),
		})
	}

	return Confirmation{
		Valid:         true,
		Paid:          payload.Status == "COMPLETE",
		TransactionID: txnID,
		Status:        payload.Status,
		AmountTotal:   amount,
		UserID:        payload.UserID,
		Items:         items,
		RawPayload:    raw,
	}, nil
}

func decodeBase64(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.New("empty payload")
	}
	if raw, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(encoded)
}

// FormatAmount renders a minor-unit amount as the two-decimal major-unit
// string the gateway expects.
func FormatAmount(minor pricing.Money) string {
	return strconv.FormatFloat(float64(minor)/100, 'f', 2, 64)
}

// ParseAmount converts a gateway amount string (possibly comma grouped, e.g.
// "1,000.0") into minor units.
func ParseAmount(value string) (pricing.Money, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return 0, errors.New("empty amount")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return MajorToMinor(f), nil
}

// MajorToMinor converts a major-unit value to minor units with half-up
// rounding.
func MajorToMinor(major float64) pricing.Money {
	return pricing.Money(math.Round(major * 100))
}

// MinorToMajor converts minor units back to a major-unit value.
func MinorToMajor(minor pricing.Money) float64 {
	return float64(minor) / 100
}
