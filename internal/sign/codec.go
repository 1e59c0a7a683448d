// Package sign implements the HMAC message signing scheme used by the
// redirect payment gateway. Both sides compute a signature over a canonical
// comma separated key=value string; the field order is part of the wire
// protocol and must never change.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// CheckoutFieldNames is the signed_field_names value for outbound requests.
const CheckoutFieldNames = "total_amount,transaction_uuid,product_code"

// CheckoutMessage builds the canonical message signed on an outbound
// checkout request.
func CheckoutMessage(totalAmount, transactionUUID, productCode string) string {
	return fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, productCode)
}

// CallbackMessage builds the canonical message verified on an inbound
// payment confirmation callback.
func CallbackMessage(transactionCode, status, totalAmount, transactionUUID, productCode, signedFieldNames string) string {
	return fmt.Sprintf("transaction_code=%s,status=%s,total_amount=%s,transaction_uuid=%s,product_code=%s,signed_field_names=%s",
		transactionCode, status, totalAmount, transactionUUID, productCode, signedFieldNames)
}

// Sign computes the HMAC-SHA256 signature of message under secret, encoded
// with standard base64.
func Sign(message, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature for message and compares it against the
// candidate in constant time. A mismatch is reported as false, never as an
// error.
func Verify(message, secret, candidate string) bool {
	if message == "" || secret == "" || candidate == "" {
		return false
	}
	expected := Sign(message, secret)
	return hmac.Equal([]byte(expected), []byte(candidate))
}
