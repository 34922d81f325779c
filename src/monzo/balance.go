package monzo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"monzo-manager/src/models"
)

func (c *Client) Balance(ctx context.Context) (models.Balance, error) {
	var balance models.Balance
	q := url.Values{"account_id": {c.AccountID()}}
	if err := c.Call(ctx, http.MethodGet, "/balance", q, nil, &balance); err != nil {
		return models.Balance{}, fmt.Errorf("fetching balance: %w", err)
	}
	return balance, nil
}

// AvailableBalance is the balance of the current account in pence, excluding pots.
func (c *Client) AvailableBalance(ctx context.Context) (int64, error) {
	balance, err := c.Balance(ctx)
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

// TotalBalance is the balance in pence including pots.
func (c *Client) TotalBalance(ctx context.Context) (int64, error) {
	balance, err := c.Balance(ctx)
	if err != nil {
		return 0, err
	}
	return balance.TotalBalance, nil
}
