package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier checks payment confirmations signed by the payment provider. The
// provider signs "<providerOrderID>|<paymentID>" with the merchant key secret
// using HMAC-SHA256 and sends the lowercase hex digest.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier for the merchant key secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify reports whether signature matches the expected digest. Empty
// inputs or an unconfigured secret never verify.
func (v *Verifier) Verify(providerOrderID, paymentID, signature string) bool {
	if v == nil || len(v.secret) == 0 {
		return false
	}
	if providerOrderID == "" || paymentID == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	return hmac.Equal(got, digest(v.secret, providerOrderID, paymentID))
}

// Sign produces the signature the provider would send. Used by tests and
// local tooling that simulates the provider.
func Sign(secret, providerOrderID, paymentID string) string {
	return hex.EncodeToString(digest([]byte(secret), providerOrderID, paymentID))
}

func digest(secret []byte, providerOrderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(providerOrderID + "|" + paymentID))
	return mac.Sum(nil)
}
