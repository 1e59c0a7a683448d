package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hamropasal/backend-storefront/internal/sign"
)

const testSecret = "8gBm/:&EnhH.1/q"

func testGateway() Esewa {
	return Esewa{
		Secret:      testSecret,
		ProductCode: "EPAYTEST",
		SuccessURL:  "https://shop.example/purchase-success",
		FailureURL:  "https://shop.example/purchase-cancel",
	}
}

func TestBuildCheckoutSignsCanonicalMessage(t *testing.T) {
	payload, err := testGateway().BuildCheckout(11_050)
	if err != nil {
		t.Fatalf("build checkout: %v", err)
	}
	if payload.TotalAmount != "110.50" || payload.Amount != payload.TotalAmount {
		t.Fatalf("unexpected amounts: %+v", payload)
	}
	if payload.TransactionUUID == "" {
		t.Fatal("expected a fresh transaction uuid")
	}
	if payload.SignedFieldNames != sign.CheckoutFieldNames {
		t.Fatalf("unexpected signed_field_names %q", payload.SignedFieldNames)
	}
	message := sign.CheckoutMessage(payload.TotalAmount, payload.TransactionUUID, "EPAYTEST")
	if !sign.Verify(message, testSecret, payload.Signature) {
		t.Fatal("checkout signature must verify against the canonical message")
	}
}

func TestBuildCheckoutFreshTransactionIDs(t *testing.T) {
	g := testGateway()
	a, _ := g.BuildCheckout(1000)
	b, _ := g.BuildCheckout(1000)
	if a.TransactionUUID == b.TransactionUUID {
		t.Fatal("transaction uuid must be unique per checkout")
	}
}

func encodeCallback(t *testing.T, fields map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal callback: %v", err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func signedCallback(t *testing.T, status, totalAmount string) map[string]any {
	t.Helper()
	message := sign.CallbackMessage("000AWEO", status, totalAmount, "uid-1", "EPAYTEST",
		"transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names")
	return map[string]any{
		"transaction_code":   "000AWEO",
		"status":             status,
		"total_amount":       totalAmount,
		"transaction_uuid":   "uid-1",
		"product_code":       "EPAYTEST",
		"signed_field_names": "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names",
		"signature":          sign.Sign(message, testSecret),
	}
}

func TestConfirmValidCompletePayload(t *testing.T) {
	fields := signedCallback(t, "COMPLETE", "1,000.0")
	conf, err := testGateway().Confirm(context.Background(), encodeCallback(t, fields))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !conf.Valid || !conf.Paid {
		t.Fatalf("expected valid paid confirmation, got %+v", conf)
	}
	if conf.TransactionID != "000AWEO" {
		t.Fatalf("expected transaction code as id, got %q", conf.TransactionID)
	}
	if conf.AmountTotal != 100_000 {
		t.Fatalf("expected 100000 minor units, got %d", conf.AmountTotal)
	}
}

func TestConfirmNonCompleteStatus(t *testing.T) {
	fields := signedCallback(t, "PENDING", "100.0")
	conf, err := testGateway().Confirm(context.Background(), encodeCallback(t, fields))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !conf.Valid {
		t.Fatal("signature is valid, confirmation must be valid")
	}
	if conf.Paid {
		t.Fatal("PENDING status must not count as paid")
	}
}

func TestConfirmRejectsTamperedSignature(t *testing.T) {
	fields := signedCallback(t, "COMPLETE", "100.0")
	fields["total_amount"] = "1.0" // tamper after signing
	conf, err := testGateway().Confirm(context.Background(), encodeCallback(t, fields))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if conf.Valid {
		t.Fatal("tampered payload must not be valid")
	}
}

func TestConfirmRejectsGarbage(t *testing.T) {
	g := testGateway()
	for _, encoded := range []string{
		"not-base64!!!",
		base64.StdEncoding.EncodeToString([]byte("not json")),
		base64.StdEncoding.EncodeToString([]byte(`{"status":"COMPLETE"}`)),
		"",
	} {
		conf, err := g.Confirm(context.Background(), encoded)
		if err != nil {
			t.Fatalf("confirm must not fail hard for %q: %v", encoded, err)
		}
		if conf.Valid {
			t.Fatalf("garbage payload %q must not be valid", encoded)
		}
		if !errors.Is(conf.Err, ErrInvalidCallback) && !strings.Contains(conf.Err.Error(), "signature") {
			t.Fatalf("expected decode or signature error, got %v", conf.Err)
		}
	}
}

func TestAmountConversions(t *testing.T) {
	if got := FormatAmount(2500); got != "25.00" {
		t.Fatalf("FormatAmount(2500) = %q", got)
	}
	got, err := ParseAmount("1,234.5")
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	if got != 123_450 {
		t.Fatalf("ParseAmount comma grouped = %d", got)
	}
	if _, err := ParseAmount("abc"); err == nil {
		t.Fatal("non numeric amount must fail")
	}
	if got := MajorToMinor(19.99); got != 1999 {
		t.Fatalf("MajorToMinor(19.99) = %d", got)
	}
}
