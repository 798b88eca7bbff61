package btcpaywebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifySignature checks a BTCPay delivery signature against the raw payload
// bytes. The header value is "sha256=" followed by the hex HMAC-SHA256 of the
// body under the shared secret. Comparison is constant time; an empty header
// (missing from the request) never matches.
func VerifySignature(payload []byte, secret, header string) bool {
	if secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
