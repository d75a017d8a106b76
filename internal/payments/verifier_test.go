package payments

import (
	"strings"
	"testing"
)

func TestVerifyAcceptsProviderSignature(t *testing.T) {
	v := NewVerifier("key_secret")
	sig := Sign("key_secret", "order_Nx1", "pay_Q9z")

	if !v.Verify("order_Nx1", "pay_Q9z", sig) {
		t.Fatal("expected signature to verify")
	}
	if !v.Verify("order_Nx1", "pay_Q9z", strings.ToUpper(sig)) {
		t.Fatal("expected hex comparison to ignore case")
	}
}

func TestVerifyKnownVector(t *testing.T) {
	// HMAC-SHA256("secret", "order_1|pay_1")
	const want = "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb"
	if got := Sign("secret", "order_1", "pay_1"); got != want {
		t.Fatalf("unexpected signature %s", got)
	}
	if !NewVerifier("secret").Verify("order_1", "pay_1", want) {
		t.Fatal("expected known vector to verify")
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	v := NewVerifier("key_secret")
	sig := Sign("key_secret", "order_Nx1", "pay_Q9z")

	cases := []struct {
		name                   string
		orderID, paymentID, sg string
	}{
		{"other payment", "order_Nx1", "pay_other", sig},
		{"other order", "order_other", "pay_Q9z", sig},
		{"swapped separator", "order_Nx1|pay", "Q9z", sig},
		{"wrong secret", "order_Nx1", "pay_Q9z", Sign("other_secret", "order_Nx1", "pay_Q9z")},
		{"not hex", "order_Nx1", "pay_Q9z", "zz" + sig[2:]},
		{"truncated", "order_Nx1", "pay_Q9z", sig[:10]},
		{"empty signature", "order_Nx1", "pay_Q9z", ""},
		{"empty order", "", "pay_Q9z", sig},
	}
	for _, tc := range cases {
		if v.Verify(tc.orderID, tc.paymentID, tc.sg) {
			t.Fatalf("%s: expected verification to fail", tc.name)
		}
	}
}

func TestVerifyWithoutSecret(t *testing.T) {
	sig := Sign("", "order_1", "pay_1")
	if NewVerifier("").Verify("order_1", "pay_1", sig) {
		t.Fatal("verifier without secret must reject")
	}
	var v *Verifier
	if v.Verify("order_1", "pay_1", sig) {
		t.Fatal("nil verifier must reject")
	}
}
