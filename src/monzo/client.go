package monzo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://api.monzo.com"
	DefaultAuthURL = "https://auth.monzo.com/"
)

type Options struct {
	BaseURL     string
	AuthURL     string
	RedirectURL string
	Secrets     models.Secrets
	Tokens      *TokenStore
	HTTPClient  *http.Client
	// NewDedupeID generates idempotency keys for pot transfers.
	NewDedupeID func() string
}

// Client is an authenticated client for the Monzo API bound to a single account.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	oauth       *oauth2.Config
	store       *TokenStore
	newDedupeID func() string

	refreshMu sync.Mutex

	mu        sync.RWMutex
	tokens    models.Tokens
	accountID string
	userID    string
}

// NewClient builds a client without performing any I/O. Call Authenticate before use.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.AuthURL == "" {
		opts.AuthURL = DefaultAuthURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.NewDedupeID == nil {
		opts.NewDedupeID = uuid.NewString
	}
	if opts.Tokens == nil {
		opts.Tokens = NewTokenStore("tokens.json")
	}
	return &Client{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		oauth:       newOAuthConfig(opts),
		store:       opts.Tokens,
		newDedupeID: opts.NewDedupeID,
	}
}

func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accountID
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) currentTokens() models.Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) setTokens(t models.Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
}

// Call performs an API request and decodes a 2xx JSON response into out, which may be nil.
// An expired access token triggers one refresh and one retry of the same request.
// Every other non-2xx response fails with a *apperrors.ConnectivityError.
func (c *Client) Call(ctx context.Context, method, path string, query, form url.Values, out any) error {
	used := c.currentTokens().AccessToken
	err := c.do(ctx, method, path, query, form, out)

	var ce *apperrors.ConnectivityError
	if path == tokenPath || !errors.As(err, &ce) || !ce.Expired() {
		return err
	}

	log.Printf("INFO: Access token expired during %s %s, refreshing", method, path)
	if err := c.refreshFrom(ctx, used); err != nil {
		return err
	}
	return c.do(ctx, method, path, query, form, out)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request %s %s: %w", method, path, err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if path != tokenPath {
		req.Header.Set("Authorization", "Bearer "+c.currentTokens().AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response of %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return &apperrors.ConnectivityError{
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Code:       apiErr.Code,
			Message:    apiErr.Message,
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	if reason == "" || reason == resp.Status {
		return http.StatusText(resp.StatusCode)
	}
	return reason
}

type WhoamiResponse struct {
	Authenticated bool   `json:"authenticated"`
	ClientID      string `json:"client_id"`
	UserID        string `json:"user_id"`
}

// Whoami runs the identity check with the current access token.
func (c *Client) Whoami(ctx context.Context) (WhoamiResponse, error) {
	var resp WhoamiResponse
	err := c.Call(ctx, http.MethodGet, "/ping/whoami", nil, nil, &resp)
	return resp, err
}

// tokenValid checks the current access token without refresh-and-retry.
func (c *Client) tokenValid(ctx context.Context) (bool, error) {
	var resp WhoamiResponse
	err := c.do(ctx, http.MethodGet, "/ping/whoami", nil, nil, &resp)
	var ce *apperrors.ConnectivityError
	if errors.As(err, &ce) && ce.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return resp.Authenticated, nil
}

type accountsResponse struct {
	Accounts []struct {
		ID     string `json:"id"`
		Closed bool   `json:"closed"`
		Owners []struct {
			UserID string `json:"user_id"`
		} `json:"owners"`
	} `json:"accounts"`
}

// Accounts lists the open accounts of the authenticated user.
func (c *Client) Accounts(ctx context.Context) ([]models.Account, error) {
	var resp accountsResponse
	if err := c.Call(ctx, http.MethodGet, "/accounts", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	accounts := make([]models.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		if a.Closed {
			continue
		}
		account := models.Account{ID: a.ID}
		if len(a.Owners) > 0 {
			account.OwnerUserID = a.Owners[0].UserID
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (c *Client) resolveAccount(ctx context.Context) error {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) != 1 {
		return apperrors.Configuration("expected exactly one open account, found %d", len(accounts))
	}
	c.mu.Lock()
	c.accountID = accounts[0].ID
	c.userID = accounts[0].OwnerUserID
	c.mu.Unlock()
	log.Printf("INFO: Using account %s", accounts[0].ID)
	return nil
}
