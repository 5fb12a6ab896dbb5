package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign calculates the HMAC-SHA256 signature of payload, base64 encoded.
func Sign(payload, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(payload)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(payload, key []byte, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, key)
	h.Write(payload)
	return hmac.Equal(h.Sum(nil), expected)
}
