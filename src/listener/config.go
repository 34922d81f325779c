package listener

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/util"
)

// WebhookConfig is where the bank should deliver events and where to listen for them.
type WebhookConfig struct {
	URL          string `json:"url"`
	ListenerHost string `json:"listener_host"`
	ListenerPort int    `json:"listener_port"`
}

// UnmarshalJSON accepts listener_port as either a number or a numeric string.
func (c *WebhookConfig) UnmarshalJSON(data []byte) error {
	var raw struct {
		URL          string          `json:"url"`
		ListenerHost string          `json:"listener_host"`
		ListenerPort json.RawMessage `json:"listener_port"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.URL = raw.URL
	c.ListenerHost = raw.ListenerHost
	c.ListenerPort = 0
	if len(raw.ListenerPort) == 0 || string(raw.ListenerPort) == "null" {
		return nil
	}
	port := strings.Trim(string(raw.ListenerPort), `"`)
	n, err := strconv.Atoi(port)
	if err != nil {
		return apperrors.Configuration("listener_port %s is not a number", raw.ListenerPort)
	}
	c.ListenerPort = n
	return nil
}

func LoadWebhookConfig(path string) (WebhookConfig, error) {
	var cfg WebhookConfig
	if err := util.ReadJSON(path, &cfg); err != nil {
		if util.IsNotExist(err) {
			return WebhookConfig{}, apperrors.Configuration("webhook config %s not found", path)
		}
		return WebhookConfig{}, apperrors.Configuration("reading webhook config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return WebhookConfig{}, err
	}
	return cfg, nil
}

func (c WebhookConfig) Validate() error {
	if err := util.ValidateWebhookURL(c.URL); err != nil {
		return apperrors.Configuration("%v", err)
	}
	if c.ListenerPort < 0 || c.ListenerPort > 65535 {
		return apperrors.Configuration("listener_port %d is out of range", c.ListenerPort)
	}
	return nil
}

// Addr is the address the HTTP listener binds, or "" when no port is configured.
func (c WebhookConfig) Addr() string {
	if c.ListenerPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.ListenerHost, strconv.Itoa(c.ListenerPort))
}
