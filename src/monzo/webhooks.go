package monzo

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"
)

func (c *Client) Webhooks(ctx context.Context) ([]models.Webhook, error) {
	var resp struct {
		Webhooks []models.Webhook `json:"webhooks"`
	}
	q := url.Values{"account_id": {c.AccountID()}}
	if err := c.Call(ctx, http.MethodGet, "/webhooks", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing webhooks: %w", err)
	}
	return resp.Webhooks, nil
}

func (c *Client) findWebhook(ctx context.Context, hookURL string) (models.Webhook, bool, error) {
	hooks, err := c.Webhooks(ctx)
	if err != nil {
		return models.Webhook{}, false, err
	}
	for _, h := range hooks {
		if h.URL == hookURL {
			return h, true, nil
		}
	}
	return models.Webhook{}, false, nil
}

func (c *Client) WebhookExists(ctx context.Context, hookURL string) (bool, error) {
	_, ok, err := c.findWebhook(ctx, hookURL)
	return ok, err
}

func (c *Client) RegisterWebhook(ctx context.Context, hookURL string) (models.Webhook, error) {
	var resp struct {
		Webhook models.Webhook `json:"webhook"`
	}
	form := url.Values{
		"account_id": {c.AccountID()},
		"url":        {hookURL},
	}
	if err := c.Call(ctx, http.MethodPost, "/webhooks", nil, form, &resp); err != nil {
		return models.Webhook{}, fmt.Errorf("registering webhook %s: %w", hookURL, err)
	}
	log.Printf("INFO: Registered webhook %s", hookURL)
	return resp.Webhook, nil
}

// DeleteWebhook removes the webhook registered for hookURL.
func (c *Client) DeleteWebhook(ctx context.Context, hookURL string) error {
	hook, ok, err := c.findWebhook(ctx, hookURL)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("no webhook registered for %s", hookURL)
	}
	if err := c.Call(ctx, http.MethodDelete, "/webhooks/"+url.PathEscape(hook.ID), nil, nil, nil); err != nil {
		return fmt.Errorf("deleting webhook %s: %w", hookURL, err)
	}
	log.Printf("INFO: Deleted webhook %s", hookURL)
	return nil
}
