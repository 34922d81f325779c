package monzo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const tokenPath = "/oauth2/token"

// Authorizer walks a human through the authorization-code grant.
type Authorizer interface {
	PresentAuthorizationURL(url string) error
	AwaitAuthorizationCode(ctx context.Context) (string, error)
	// AwaitUserConfirmation blocks until the user has approved access in the banking app.
	AwaitUserConfirmation(ctx context.Context) error
}

func newOAuthConfig(opts Options) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     opts.Secrets.ClientID,
		ClientSecret: opts.Secrets.ClientSecret,
		RedirectURL:  opts.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   opts.AuthURL,
			TokenURL:  opts.BaseURL + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Authenticate validates the stored tokens, trying one refresh and then the
// interactive code exchange when they are unusable, and then resolves the
// account the client operates on.
func (c *Client) Authenticate(ctx context.Context, authorizer Authorizer) error {
	tokens, err := c.store.Load()
	if err != nil {
		return err
	}
	c.setTokens(tokens)

	valid := false
	if tokens.AccessToken != "" {
		valid, err = c.tokenValid(ctx)
		if err != nil {
			return fmt.Errorf("checking stored token: %w", err)
		}
	}

	var refreshErr error
	if !valid && tokens.RefreshToken != "" {
		if refreshErr = c.Refresh(ctx); refreshErr == nil {
			valid = true
		} else {
			log.Printf("WARN: Stored token could not be refreshed: %v", refreshErr)
		}
	}

	if !valid {
		if authorizer == nil {
			if refreshErr != nil {
				return fmt.Errorf("%w: stored tokens are invalid and no authorizer is available: %w", apperrors.ErrConfiguration, refreshErr)
			}
			return apperrors.Configuration("stored tokens are invalid and no authorizer is available")
		}
		if err := c.authorize(ctx, authorizer); err != nil {
			return err
		}
	}

	return c.resolveAccount(ctx)
}

func (c *Client) authorize(ctx context.Context, authorizer Authorizer) error {
	authURL := c.oauth.AuthCodeURL(uuid.NewString())
	if err := authorizer.PresentAuthorizationURL(authURL); err != nil {
		return fmt.Errorf("presenting authorization url: %w", err)
	}
	code, err := authorizer.AwaitAuthorizationCode(ctx)
	if err != nil {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return apperrors.Validation("authorization code is empty")
	}

	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", tokenError(err))
	}
	tokens := models.Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	c.setTokens(tokens)
	if err := c.store.Save(tokens); err != nil {
		return err
	}
	log.Printf("INFO: Access token acquired and saved to %s", c.store.Path())

	if err := authorizer.AwaitUserConfirmation(ctx); err != nil {
		return fmt.Errorf("waiting for approval: %w", err)
	}

	valid, err := c.tokenValid(ctx)
	if err != nil {
		return fmt.Errorf("validating new token: %w", err)
	}
	if !valid {
		return apperrors.Configuration("access token is still invalid after authorization")
	}
	log.Printf("INFO: Authentication completed")
	return nil
}

// Refresh exchanges the refresh token for a new pair. The new pair is only
// persisted once it has been validated; any failure is a configuration error.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshFrom(ctx, "")
}

// refreshFrom refreshes unless another caller already replaced the stale access token.
func (c *Client) refreshFrom(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	prev := c.currentTokens()
	if stale != "" && prev.AccessToken != stale {
		return nil
	}
	if prev.RefreshToken == "" {
		return apperrors.Configuration("no refresh token available")
	}

	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: prev.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("%w: refreshing access token: %w", apperrors.ErrConfiguration, tokenError(err))
	}
	next := models.Tokens{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = prev.RefreshToken
	}

	c.setTokens(next)
	valid, err := c.tokenValid(ctx)
	if err != nil || !valid {
		c.setTokens(prev)
		if err != nil {
			return fmt.Errorf("%w: validating refreshed token: %w", apperrors.ErrConfiguration, err)
		}
		return apperrors.Configuration("refreshed access token is invalid")
	}
	if err := c.store.Save(next); err != nil {
		return err
	}
	log.Printf("INFO: Access token refreshed and saved to %s", c.store.Path())
	return nil
}

// tokenError turns an OAuth token endpoint failure into a ConnectivityError.
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &apperrors.ConnectivityError{
			StatusCode: re.Response.StatusCode,
			Reason:     http.StatusText(re.Response.StatusCode),
			Code:       re.ErrorCode,
			Message:    re.ErrorDescription,
		}
	}
	return err
}
