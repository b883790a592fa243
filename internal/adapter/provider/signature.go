package provider

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
)

// signHMACSHA512 computes a hex-encoded HMAC-SHA512 over the message.
func signHMACSHA512(secret, message []byte) string {
	mac := hmac.New(sha512.New, secret)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifyHMACSHA512 compares the expected signature against the received one
// in constant time.
func verifyHMACSHA512(secret, message []byte, signature string) bool {
	expected := signHMACSHA512(secret, message)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// constantTimeEqual reports whether a and b match without leaking the
// position of the first mismatch.
func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// sortedJSON re-encodes a JSON object with its keys in lexical order, which
// is the canonical form some gateways sign over.
func sortedJSON(body []byte) ([]byte, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, err
	}
	// encoding/json marshals map keys in sorted order.
	return json.Marshal(m)
}
