package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"monzo-manager/src/config"
	"monzo-manager/src/db"
	appsql "monzo-manager/src/db/sql"
	"monzo-manager/src/monzo"
	"monzo-manager/src/util"

	"github.com/spf13/cobra"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newClient(cfg config.Config) (*monzo.Client, error) {
	secrets, err := monzo.LoadSecrets(cfg.SecretsFile)
	if err != nil {
		return nil, err
	}
	return monzo.NewClient(monzo.Options{
		BaseURL:     cfg.APIBaseURL,
		AuthURL:     cfg.AuthBaseURL,
		RedirectURL: cfg.RedirectURL,
		Secrets:     secrets,
		Tokens:      monzo.NewTokenStore(cfg.TokensFile),
		HTTPClient:  &http.Client{Timeout: cfg.HTTPTimeout},
	}), nil
}

// connect builds an authenticated client, prompting on the terminal when the
// stored tokens are no longer valid. A nil authorizer makes that a hard error.
func connect(ctx context.Context, cfg config.Config, authorizer monzo.Authorizer) (*monzo.Client, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if err := client.Authenticate(ctx, authorizer); err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	log.Printf("INFO: Authenticated for account %s", client.AccountID())
	return client, nil
}

func consoleAuthorizer(cmd *cobra.Command) monzo.Authorizer {
	return NewConsoleAuthorizer(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// openRunStore uses Postgres when DATABASE_URL is set and an in-memory store
// otherwise. The returned func releases the store.
func openRunStore(ctx context.Context, cfg config.Config) (db.RunStore, func(), error) {
	if cfg.DatabaseURL == "" {
		return db.NewMemoryRunStore(200), func() {}, nil
	}
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return appsql.NewRunRecorder(pool), pool.Close, nil
}

// webhookURL is the URL registered with the bank, carrying the shared token
// when one is configured.
func webhookURL(base, token string) (string, error) {
	if token == "" {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing webhook url: %w", err)
	}
	q := u.Query()
	q.Set(util.WebhookTokenParam, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
