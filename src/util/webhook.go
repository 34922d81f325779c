package util

import (
	"crypto/subtle"
	"net/http"
)

// WebhookTokenParam is the query parameter carrying the shared webhook secret.
const WebhookTokenParam = "token"

// VerifyWebhookToken compares the token on an inbound delivery with the expected
// shared secret in constant time. An empty expected token disables the check.
func VerifyWebhookToken(r *http.Request, expected string) bool {
	if expected == "" {
		return true
	}
	got := r.URL.Query().Get(WebhookTokenParam)
	if got == "" {
		got = r.Header.Get("X-Webhook-Token")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
