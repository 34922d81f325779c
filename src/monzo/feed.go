package monzo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"
)

const DefaultNotificationImage = "https://cdn.pixabay.com/photo/2017/10/24/00/39/bot-icon-2883144_960_720.png"

// Notify posts a basic feed item to the account.
func (c *Client) Notify(ctx context.Context, n models.Notification) error {
	if strings.TrimSpace(n.Title) == "" {
		return apperrors.Validation("notification title must not be empty")
	}
	if n.ImageURL == "" {
		n.ImageURL = DefaultNotificationImage
	}

	form := url.Values{
		"account_id":        {c.AccountID()},
		"type":              {"basic"},
		"params[title]":     {n.Title},
		"params[image_url]": {n.ImageURL},
	}
	optional := map[string]string{
		"params[body]":             n.Body,
		"params[background_color]": n.BackgroundColour,
		"params[title_color]":      n.TitleColour,
		"params[body_color]":       n.BodyColour,
		"url":                      n.URL,
	}
	for k, v := range optional {
		if v != "" {
			form.Set(k, v)
		}
	}

	if err := c.Call(ctx, http.MethodPost, "/feed", nil, form, nil); err != nil {
		return fmt.Errorf("posting notification %q: %w", n.Title, err)
	}
	return nil
}
