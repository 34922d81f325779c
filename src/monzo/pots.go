package monzo

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"
)

// Pots lists the account's pots, skipping deleted ones.
func (c *Client) Pots(ctx context.Context) ([]models.Pot, error) {
	var resp struct {
		Pots []models.Pot `json:"pots"`
	}
	q := url.Values{"current_account_id": {c.AccountID()}}
	if err := c.Call(ctx, http.MethodGet, "/pots", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing pots: %w", err)
	}
	pots := make([]models.Pot, 0, len(resp.Pots))
	for _, p := range resp.Pots {
		if !p.Deleted {
			pots = append(pots, p)
		}
	}
	return pots, nil
}

// FindPot looks a pot up by case-insensitive name. The first match wins.
func (c *Client) FindPot(ctx context.Context, name string) (models.Pot, error) {
	pots, err := c.Pots(ctx)
	if err != nil {
		return models.Pot{}, err
	}
	for _, p := range pots {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return models.Pot{}, apperrors.NotFound("no pot named %q", name)
}

func (c *Client) ResolvePot(ctx context.Context, name string) (string, error) {
	pot, err := c.FindPot(ctx, name)
	if err != nil {
		return "", err
	}
	return pot.ID, nil
}

func (c *Client) PotBalance(ctx context.Context, name string) (int64, error) {
	pot, err := c.FindPot(ctx, name)
	if err != nil {
		return 0, err
	}
	return pot.Balance, nil
}

// Deposit moves amount pence from the current account into the named pot.
func (c *Client) Deposit(ctx context.Context, pot string, amount int64) error {
	if amount <= 0 {
		return apperrors.Validation("deposit amount must be greater than zero, got %d", amount)
	}
	potID, err := c.ResolvePot(ctx, pot)
	if err != nil {
		return err
	}
	form := url.Values{
		"source_account_id": {c.AccountID()},
		"amount":            {strconv.FormatInt(amount, 10)},
		"dedupe_id":         {c.newDedupeID()},
	}
	if err := c.Call(ctx, http.MethodPut, "/pots/"+url.PathEscape(potID)+"/deposit", nil, form, nil); err != nil {
		return fmt.Errorf("depositing %s into %s: %w", models.FormatPence(amount), pot, err)
	}
	log.Printf("INFO: Deposited %s into pot %s", models.FormatPence(amount), pot)
	return nil
}

// Withdraw moves amount pence from the named pot into the current account.
func (c *Client) Withdraw(ctx context.Context, pot string, amount int64) error {
	if amount <= 0 {
		return apperrors.Validation("withdrawal amount must be greater than zero, got %d", amount)
	}
	potID, err := c.ResolvePot(ctx, pot)
	if err != nil {
		return err
	}
	form := url.Values{
		"destination_account_id": {c.AccountID()},
		"amount":                 {strconv.FormatInt(amount, 10)},
		"dedupe_id":              {c.newDedupeID()},
	}
	if err := c.Call(ctx, http.MethodPut, "/pots/"+url.PathEscape(potID)+"/withdraw", nil, form, nil); err != nil {
		return fmt.Errorf("withdrawing %s from %s: %w", models.FormatPence(amount), pot, err)
	}
	log.Printf("INFO: Withdrew %s from pot %s", models.FormatPence(amount), pot)
	return nil
}

// Transfer withdraws a positive amount from the pot into the account and deposits
// the absolute value of a negative amount into the pot. Zero does nothing.
func (c *Client) Transfer(ctx context.Context, pot string, amount int64) error {
	switch {
	case amount > 0:
		return c.Withdraw(ctx, pot, amount)
	case amount < 0:
		return c.Deposit(ctx, pot, -amount)
	default:
		return nil
	}
}
