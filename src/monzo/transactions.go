package monzo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"
)

// Transaction fetches one transaction with its merchant expanded.
func (c *Client) Transaction(ctx context.Context, id string) (models.Transaction, error) {
	if id == "" {
		return nil, apperrors.Validation("transaction id is required")
	}
	var resp struct {
		Transaction models.Transaction `json:"transaction"`
	}
	q := url.Values{"expand[]": {"merchant"}}
	if err := c.Call(ctx, http.MethodGet, "/transactions/"+url.PathEscape(id), q, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching transaction %s: %w", id, err)
	}
	if resp.Transaction == nil {
		return nil, apperrors.NotFound("transaction %s", id)
	}
	return resp.Transaction, nil
}

// Transactions lists the account's transactions created at or after since.
// A zero since lists everything the API returns.
func (c *Client) Transactions(ctx context.Context, since time.Time) ([]models.Transaction, error) {
	var resp struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	q := url.Values{
		"account_id": {c.AccountID()},
		"expand[]":   {"merchant"},
	}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	if err := c.Call(ctx, http.MethodGet, "/transactions", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	return resp.Transactions, nil
}
