package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/classifier"
	"monzo-manager/src/db"
	"monzo-manager/src/models"
	"monzo-manager/src/sorter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hookURL = "https://example.com/webhook/monzo"

type fakeAccount struct {
	hooks          map[string]bool
	ignoreRegister bool
	registered     int
	transactions   map[string]models.Transaction
	fetched        []string
}

func (f *fakeAccount) WebhookExists(ctx context.Context, url string) (bool, error) {
	return f.hooks[url], nil
}

func (f *fakeAccount) RegisterWebhook(ctx context.Context, url string) (models.Webhook, error) {
	f.registered++
	if !f.ignoreRegister {
		f.hooks[url] = true
	}
	return models.Webhook{ID: "webhook_1", URL: url}, nil
}

func (f *fakeAccount) Transaction(ctx context.Context, id string) (models.Transaction, error) {
	f.fetched = append(f.fetched, id)
	tx, ok := f.transactions[id]
	if !ok {
		return nil, &apperrors.ConnectivityError{StatusCode: 404}
	}
	return tx, nil
}

type fakeSorter struct {
	sorted []string
	alloc  sorter.Allocation
	err    error
}

func (s *fakeSorter) Sort(ctx context.Context, id string) (sorter.Allocation, error) {
	s.sorted = append(s.sorted, id)
	return s.alloc, s.err
}

type mapCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (c *mapCache) Claim(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys[key] {
		return false
	}
	c.keys[key] = true
	return true
}

func (c *mapCache) Release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, key)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeAccount, *fakeSorter, *mapCache) {
	t.Helper()
	c, err := classifier.Parse([]byte(`{
		"salary": {"rules": {"amount": {"operator": ">", "value": 0}, "merchant.category": {"operator": "=", "value": "salary"}}, "actions": []},
		"spending": {"rules": {"amount": {"operator": "<", "value": 0}}, "actions": []}
	}`), classifier.FormatJSON, classifier.MissingFieldPass)
	require.NoError(t, err)

	account := &fakeAccount{
		hooks: map[string]bool{},
		transactions: map[string]models.Transaction{
			"tx_1": {"id": "tx_1", "amount": 250000.0, "merchant": map[string]any{"category": "salary"}},
			"tx_2": {"id": "tx_2", "amount": -450.0, "merchant": map[string]any{"category": "groceries"}},
		},
	}
	s := &fakeSorter{alloc: sorter.Allocation{TransactionID: "tx_1", Amount: 250000, Deposits: []sorter.Deposit{{Pot: "Bills", Amount: 250000}}}}
	cache := &mapCache{keys: map[string]bool{}}
	d := NewDispatcher(account, c, s, Options{WebhookURL: hookURL, Cache: cache})
	return d, account, s, cache
}

func TestEnsureWebhookRegistersWhenMissing(t *testing.T) {
	d, account, _, _ := newTestDispatcher(t)
	assert.Equal(t, Unregistered, d.State())

	state, err := d.EnsureWebhook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Registered, state)
	assert.Equal(t, Registered, d.State())
	assert.Equal(t, 1, account.registered)

	_, err = d.EnsureWebhook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, account.registered, "an existing webhook is not registered again")
}

func TestEnsureWebhookFailsWhenRegistrationDoesNotStick(t *testing.T) {
	d, account, _, _ := newTestDispatcher(t)
	account.ignoreRegister = true

	state, err := d.EnsureWebhook(context.Background())
	assert.Equal(t, Unregistered, state)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestHandleSalaryTriggersSort(t *testing.T) {
	d, account, s, _ := newTestDispatcher(t)

	outcome, err := d.Handle(context.Background(), []byte(`{"type":"transaction.created","data":{"id":"tx_1","amount":250000}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"tx_1"}, account.fetched)
	assert.Equal(t, []string{"tx_1"}, s.sorted)
	assert.Equal(t, []string{"salary"}, outcome.Classes)
	require.NotNil(t, outcome.Allocation)
	assert.Equal(t, int64(250000), outcome.Allocation.Deposited())
}

func TestHandleNonSalaryDoesNotSort(t *testing.T) {
	d, _, s, _ := newTestDispatcher(t)

	outcome, err := d.Handle(context.Background(), []byte(`{"type":"transaction.created","data":{"id":"tx_2"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"spending"}, outcome.Classes)
	assert.Nil(t, outcome.Allocation)
	assert.Empty(t, s.sorted)
}

func TestHandleRejectsOtherEventTypes(t *testing.T) {
	d, account, s, _ := newTestDispatcher(t)

	_, err := d.Handle(context.Background(), []byte(`{"type":"transaction.updated","data":{"id":"tx_1"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnexpectedEvent)
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, account.fetched)
	assert.Empty(t, s.sorted)
}

func TestHandleMalformedBodies(t *testing.T) {
	d, account, _, _ := newTestDispatcher(t)

	for _, body := range []string{``, `not json`, `{"type":"transaction.created"}`, `{"type":"transaction.created","data":{"id":""}}`, `{"type":"transaction.created","data":"tx_1"}`} {
		_, err := d.Handle(context.Background(), []byte(body))
		assert.True(t, apperrors.IsValidation(err), "body %q", body)
	}
	assert.Empty(t, account.fetched)
}

func TestHandleDuplicateDelivery(t *testing.T) {
	d, account, s, _ := newTestDispatcher(t)
	body := []byte(`{"type":"transaction.created","data":{"id":"tx_1"}}`)

	_, err := d.Handle(context.Background(), body)
	require.NoError(t, err)
	outcome, err := d.Handle(context.Background(), body)
	require.NoError(t, err)

	assert.True(t, outcome.Duplicate)
	assert.Len(t, account.fetched, 1)
	assert.Len(t, s.sorted, 1)
}

func TestHandleDuplicateSalaryAfterManyDeliveries(t *testing.T) {
	d, account, s, _ := newTestDispatcher(t)
	cache, err := db.NewDeliveryCache(24 * time.Hour)
	require.NoError(t, err)
	defer cache.Close()
	d.cache = cache

	salary := []byte(`{"type":"transaction.created","data":{"id":"tx_1"}}`)
	_, err = d.Handle(context.Background(), salary)
	require.NoError(t, err)

	for i := 0; i < 600; i++ {
		id := fmt.Sprintf("tx_card_%d", i)
		account.transactions[id] = models.Transaction{"id": id, "amount": -float64(100 + i)}
		_, err := d.Handle(context.Background(), []byte(fmt.Sprintf(`{"type":"transaction.created","data":{"id":%q}}`, id)))
		require.NoError(t, err)
	}

	outcome, err := d.Handle(context.Background(), salary)
	require.NoError(t, err)
	assert.True(t, outcome.Duplicate)
	assert.Equal(t, []string{"tx_1"}, s.sorted)
}

func TestHandleFetchFailureAllowsRedelivery(t *testing.T) {
	d, account, _, cache := newTestDispatcher(t)
	body := []byte(`{"type":"transaction.created","data":{"id":"tx_missing"}}`)

	_, err := d.Handle(context.Background(), body)
	assert.True(t, apperrors.IsConnectivity(err))
	assert.False(t, cache.keys["tx_missing"])

	_, err = d.Handle(context.Background(), body)
	assert.Error(t, err)
	assert.Len(t, account.fetched, 2)
}

func TestHandleSortFailureAfterDepositsKeepsClaim(t *testing.T) {
	d, _, s, cache := newTestDispatcher(t)
	s.err = &apperrors.ConnectivityError{StatusCode: 500}

	outcome, err := d.Handle(context.Background(), []byte(`{"type":"transaction.created","data":{"id":"tx_1"}}`))
	require.Error(t, err)
	require.NotNil(t, outcome.Allocation)
	assert.True(t, cache.keys["tx_1"], "a partly sorted salary must not be sorted again")

	s.alloc = sorter.Allocation{}
	delete(cache.keys, "tx_1")
	_, err = d.Handle(context.Background(), []byte(`{"type":"transaction.created","data":{"id":"tx_1"}}`))
	require.Error(t, err)
	assert.False(t, cache.keys["tx_1"], "a sort that moved nothing can be retried")
}

func TestCustomSalaryClass(t *testing.T) {
	c, err := classifier.Parse([]byte(`{"pay": {"rules": {"amount": {"operator": ">", "value": 100}}, "actions": []}}`), classifier.FormatJSON, classifier.MissingFieldPass)
	require.NoError(t, err)
	account := &fakeAccount{transactions: map[string]models.Transaction{"tx_9": {"id": "tx_9", "amount": 5000.0}}}
	s := &fakeSorter{}
	d := NewDispatcher(account, c, s, Options{SalaryClass: "pay"})

	_, err = d.Handle(context.Background(), []byte(`{"type":"transaction.created","data":{"id":"tx_9"}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"tx_9"}, s.sorted)
}

func TestLoadWebhookConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webhook.json")

	require.NoError(t, os.WriteFile(path, []byte(`{"url": "https://example.com/webhook/monzo", "listener_host": "0.0.0.0", "listener_port": "8081"}`), 0o600))
	cfg, err := LoadWebhookConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.ListenerPort)
	assert.Equal(t, "0.0.0.0:8081", cfg.Addr())

	require.NoError(t, os.WriteFile(path, []byte(`{"url": "https://example.com/hook", "listener_port": 9000}`), 0o600))
	cfg, err = LoadWebhookConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr())

	require.NoError(t, os.WriteFile(path, []byte(`{"url": "example.com/hook"}`), 0o600))
	_, err = LoadWebhookConfig(path)
	assert.True(t, apperrors.IsConfiguration(err))

	require.NoError(t, os.WriteFile(path, []byte(`{"url": "https://example.com/hook", "listener_port": "eighty"}`), 0o600))
	_, err = LoadWebhookConfig(path)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = LoadWebhookConfig(filepath.Join(dir, "missing.json"))
	assert.True(t, apperrors.IsConfiguration(err))

	assert.Equal(t, "", WebhookConfig{URL: hookURL}.Addr())
}
