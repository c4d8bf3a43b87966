package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the payload signature on outbound deliveries.
const SignatureHeader = "X-Webhook-Signature"

const signaturePrefix = "sha256="

// Sign computes the hex-encoded HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected HMAC and compares it against the
// presented signature in constant time. Both the raw hex form and the
// "sha256=<hex>" form are accepted, since vendors disagree on the
// convention. A mismatch is a false return, never an error, so callers can
// branch on the boolean.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, signaturePrefix)

	expected := Sign(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
