package util

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateWebhookURL checks that raw is an absolute http(s) URL the bank can deliver to.
func ValidateWebhookURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid webhook url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook url %q has no host", raw)
	}
	return nil
}

// ValidatePotName rejects blank pot names.
func ValidatePotName(name string) bool {
	return strings.TrimSpace(name) != ""
}
