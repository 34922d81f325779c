package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"monzo-manager/src/classifier"
	"monzo-manager/src/models"
)

type TransactionFetcher interface {
	Transaction(ctx context.Context, id string) (models.Transaction, error)
}

func GetTransactionClasses(c *classifier.Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Classes())
	}
}

// ClassifyTransaction classifies either an inline transaction or one fetched by id.
func ClassifyTransaction(c *classifier.Classifier, fetcher TransactionFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TransactionID string             `json:"transaction_id"`
			Transaction   models.Transaction `json:"transaction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("ERROR: Failed to decode classify request body: %v", err)
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		tx := req.Transaction
		if tx == nil {
			if req.TransactionID == "" || fetcher == nil {
				http.Error(w, "transaction or transaction_id is required", http.StatusBadRequest)
				return
			}
			var err error
			tx, err = fetcher.Transaction(r.Context(), req.TransactionID)
			if err != nil {
				writeError(w, r, err)
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"transaction_id": tx.ID(),
			"classes":        c.Classify(tx),
		})
	}
}
