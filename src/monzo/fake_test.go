package monzo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
	Auth   string
}

// fakeMonzo is an in-memory stand-in for the banking API.
type fakeMonzo struct {
	mu sync.Mutex

	validToken   string
	refreshToken string
	issueAccess  string
	issueRefresh string
	// issueInvalid makes the token endpoint hand out tokens that whoami rejects.
	issueInvalid bool
	// expireNext answers the next n requests to a path with the expired-token error.
	expireNext map[string]int
	// failNext answers the next request to a path with the given status.
	failNext map[string]int

	accounts     []map[string]any
	pots         []models.Pot
	webhooks     []models.Webhook
	transactions map[string]models.Transaction

	requests   []recordedRequest
	tokenCalls []url.Values
}

func newFakeMonzo() *fakeMonzo {
	return &fakeMonzo{
		validToken:   "access-1",
		refreshToken: "refresh-1",
		issueAccess:  "access-2",
		issueRefresh: "refresh-2",
		expireNext:   map[string]int{},
		failNext:     map[string]int{},
		accounts: []map[string]any{
			{"id": "acc_1", "closed": false, "owners": []map[string]any{{"user_id": "user_1"}}},
		},
		pots: []models.Pot{
			{ID: "pot_bills", Name: "Bills", Balance: 40000},
			{ID: "pot_savings", Name: "savings", Balance: 100000},
			{ID: "pot_old", Name: "Holiday", Deleted: true},
		},
		transactions: map[string]models.Transaction{},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (f *fakeMonzo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	form := url.Values{}
	if r.Method != http.MethodGet {
		form = r.PostForm
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Form:   form,
		Auth:   r.Header.Get("Authorization"),
	})

	if r.URL.Path == "/oauth2/token" {
		f.token(w, form)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+f.validToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "unauthorized.bad_access_token", "message": "invalid"})
		return
	}
	if f.expireNext[r.URL.Path] > 0 {
		f.expireNext[r.URL.Path]--
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": apperrors.ExpiredTokenCode, "message": "expired"})
		return
	}
	if status, ok := f.failNext[r.URL.Path]; ok {
		delete(f.failNext, r.URL.Path)
		writeJSON(w, status, map[string]string{"code": "internal_service", "message": "boom"})
		return
	}

	path := r.URL.Path
	switch {
	case path == "/ping/whoami":
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user_id": "user_1"})
	case path == "/accounts":
		writeJSON(w, http.StatusOK, map[string]any{"accounts": f.accounts})
	case path == "/balance":
		writeJSON(w, http.StatusOK, map[string]any{"balance": 55000, "total_balance": 195000, "currency": "GBP"})
	case path == "/pots":
		writeJSON(w, http.StatusOK, map[string]any{"pots": f.pots})
	case strings.HasPrefix(path, "/pots/"):
		writeJSON(w, http.StatusOK, map[string]any{})
	case path == "/feed":
		writeJSON(w, http.StatusOK, map[string]any{})
	case path == "/webhooks" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"webhooks": f.webhooks})
	case path == "/webhooks" && r.Method == http.MethodPost:
		hook := models.Webhook{ID: fmt.Sprintf("webhook_%d", len(f.webhooks)+1), AccountID: form.Get("account_id"), URL: form.Get("url")}
		f.webhooks = append(f.webhooks, hook)
		writeJSON(w, http.StatusOK, map[string]any{"webhook": hook})
	case strings.HasPrefix(path, "/webhooks/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/webhooks/")
		for i, h := range f.webhooks {
			if h.ID == id {
				f.webhooks = append(f.webhooks[:i], f.webhooks[i+1:]...)
				break
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	case strings.HasPrefix(path, "/transactions/"):
		tx, ok := f.transactions[strings.TrimPrefix(path, "/transactions/")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
	case path == "/transactions":
		txs := make([]models.Transaction, 0, len(f.transactions))
		for _, tx := range f.transactions {
			txs = append(txs, tx)
		}
		writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found"})
	}
}

func (f *fakeMonzo) token(w http.ResponseWriter, form url.Values) {
	f.tokenCalls = append(f.tokenCalls, form)
	switch form.Get("grant_type") {
	case "refresh_token":
		if form.Get("refresh_token") != f.refreshToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_grant"})
			return
		}
	case "authorization_code":
		if form.Get("code") != "the-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	if !f.issueInvalid {
		f.validToken = f.issueAccess
	}
	f.refreshToken = f.issueRefresh
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  f.issueAccess,
		"refresh_token": f.issueRefresh,
		"token_type":    "Bearer",
		"expires_in":    21600,
	})
}

// requestsTo returns the recorded requests for path.
func (f *fakeMonzo) requestsTo(path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeMonzo) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// newTestClient returns a client bound to acc_1 holding the fake's current tokens.
func newTestClient(t *testing.T, fake *fakeMonzo) (*Client, *TokenStore) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store := NewTokenStore(filepath.Join(t.TempDir(), "tokens.json"))
	require.NoError(t, store.Save(models.Tokens{AccessToken: fake.validToken, RefreshToken: fake.refreshToken}))

	n := 0
	client := NewClient(Options{
		BaseURL:     srv.URL,
		AuthURL:     srv.URL + "/auth/",
		RedirectURL: "http://localhost/callback",
		Secrets:     models.Secrets{ClientID: "client", ClientSecret: "secret"},
		Tokens:      store,
		HTTPClient:  srv.Client(),
		NewDedupeID: func() string {
			n++
			return fmt.Sprintf("dedupe-%d", n)
		},
	})
	client.setTokens(models.Tokens{AccessToken: fake.validToken, RefreshToken: fake.refreshToken})
	client.accountID = "acc_1"
	client.userID = "user_1"
	return client, store
}
