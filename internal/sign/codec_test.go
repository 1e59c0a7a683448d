package sign

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	cases := []struct{ message, secret string }{
		{"total_amount=100.00,transaction_uuid=abc,product_code=EPAYTEST", "8gBm/:&EnhH.1/q"},
		{"a=b", "secret"},
		{"", "secret"},
	}
	for _, tc := range cases {
		sig := Sign(tc.message, tc.secret)
		if tc.message == "" {
			continue
		}
		if !Verify(tc.message, tc.secret, sig) {
			t.Fatalf("round trip failed for %q", tc.message)
		}
	}
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	message := CheckoutMessage("110.00", "241028", "EPAYTEST")
	secret := "8gBm/:&EnhH.1/q"
	sig := Sign(message, secret)

	mutated := []byte(sig)
	if mutated[0] == 'A' {
		mutated[0] = 'B'
	} else {
		mutated[0] = 'A'
	}
	if Verify(message, secret, string(mutated)) {
		t.Fatal("mutated signature must not verify")
	}
}

func TestVerifyRejectsMutatedMessage(t *testing.T) {
	message := CallbackMessage("000AWEO", "COMPLETE", "1000.0", "250610-162413", "EPAYTEST",
		"transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names")
	secret := "secret"
	sig := Sign(message, secret)
	if !Verify(message, secret, sig) {
		t.Fatal("sanity: valid signature must verify")
	}
	if Verify(message+" ", secret, sig) {
		t.Fatal("mutated message must not verify")
	}
	if Verify(message, "other", sig) {
		t.Fatal("wrong secret must not verify")
	}
}

func TestVerifyEmptyInputs(t *testing.T) {
	if Verify("", "secret", "sig") || Verify("msg", "", "sig") || Verify("msg", "secret", "") {
		t.Fatal("empty message, secret or candidate must not verify")
	}
}

func TestCanonicalFieldOrder(t *testing.T) {
	got := CheckoutMessage("100.00", "uid-1", "EPAYTEST")
	want := "total_amount=100.00,transaction_uuid=uid-1,product_code=EPAYTEST"
	if got != want {
		t.Fatalf("checkout message %q, want %q", got, want)
	}

	got = CallbackMessage("TX1", "COMPLETE", "100.0", "uid-1", "EPAYTEST", "f")
	want = "transaction_code=TX1,status=COMPLETE,total_amount=100.0,transaction_uuid=uid-1,product_code=EPAYTEST,signed_field_names=f"
	if got != want {
		t.Fatalf("callback message %q, want %q", got, want)
	}
}
