package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// SignMethod is the method literal bound into notification signatures.
// The gateway signs callbacks as if they were POST requests, so the
// literal is fixed rather than taken from the incoming request.
const SignMethod = "POST"

// Verifier authenticates gateway notifications with the merchant credentials.
type Verifier struct {
	va     string
	apiKey string
}

func NewVerifier(va, apiKey string) *Verifier {
	return &Verifier{va: va, apiKey: apiKey}
}

// Verify reports whether signature matches the payload. The comparison runs
// in constant time. An empty signature or unconfigured key never verifies.
func (v *Verifier) Verify(signature string, rawPayload []byte) bool {
	if signature == "" || v.apiKey == "" {
		return false
	}
	expected := v.Sign(SignMethod, rawPayload)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Sign computes hex(HMAC-SHA256(apiKey, method:va:hex(SHA256(body)):apiKey)).
func (v *Verifier) Sign(method string, body []byte) string {
	return sign(method, v.va, v.apiKey, body)
}

func sign(method, va, apiKey string, body []byte) string {
	bodyHash := sha256.Sum256(Canonical(body))
	stringToSign := method + ":" + va + ":" + hex.EncodeToString(bodyHash[:]) + ":" + apiKey

	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(stringToSign))
	return hex.EncodeToString(mac.Sum(nil))
}

// Canonical strips insignificant whitespace from a JSON body while keeping key
// order. Bodies that are not valid JSON are returned unchanged.
func Canonical(body []byte) []byte {
	if len(body) == 0 {
		return []byte("{}")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return body
	}
	return buf.Bytes()
}
