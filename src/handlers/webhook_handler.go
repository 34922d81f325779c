package handlers

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"monzo-manager/src/listener"
)

const maxWebhookBody = 1 << 20

type WebhookDispatcher interface {
	Handle(ctx context.Context, body []byte) (listener.Outcome, error)
}

// MonzoWebhook receives bank event deliveries. Processing is detached from the
// request so a client disconnect cannot abort a sort halfway through.
func MonzoWebhook(d WebhookDispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			log.Printf("ERROR: Failed to read webhook body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		log.Printf("INFO: Webhook delivery received (%d bytes)", len(body))

		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Minute)
		defer cancel()

		outcome, err := d.Handle(ctx, body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, outcome)
	}
}
