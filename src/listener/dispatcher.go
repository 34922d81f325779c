package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/classifier"
	"monzo-manager/src/models"
	"monzo-manager/src/sorter"
)

const (
	EventTransactionCreated = "transaction.created"
	DefaultSalaryClass      = "salary"
)

type Account interface {
	WebhookExists(ctx context.Context, url string) (bool, error)
	RegisterWebhook(ctx context.Context, url string) (models.Webhook, error)
	Transaction(ctx context.Context, id string) (models.Transaction, error)
}

type Classifier interface {
	Classify(tx models.Transaction) []string
}

type Sorter interface {
	Sort(ctx context.Context, transactionID string) (sorter.Allocation, error)
}

// DeliveryCache remembers transaction ids that are being or have been handled.
type DeliveryCache interface {
	// Claim returns false when key was already claimed.
	Claim(key string) bool
	Release(key string)
}

type WebhookState int

const (
	Unregistered WebhookState = iota
	Registered
)

func (s WebhookState) String() string {
	if s == Registered {
		return "registered"
	}
	return "unregistered"
}

type Options struct {
	WebhookURL  string
	SalaryClass string
	Cache       DeliveryCache
}

// Outcome describes what happened to one delivery.
type Outcome struct {
	TransactionID string             `json:"transaction_id"`
	Classes       []string           `json:"classes"`
	Duplicate     bool               `json:"duplicate,omitempty"`
	Allocation    *sorter.Allocation `json:"allocation,omitempty"`
}

// Dispatcher handles webhook deliveries: every new transaction is fetched and
// classified, and salary credits are sorted into pots.
type Dispatcher struct {
	account     Account
	classifier  Classifier
	sorter      Sorter
	webhookURL  string
	salaryClass string
	cache       DeliveryCache

	mu    sync.RWMutex
	state WebhookState
}

func NewDispatcher(account Account, c Classifier, s Sorter, opts Options) *Dispatcher {
	if opts.SalaryClass == "" {
		opts.SalaryClass = DefaultSalaryClass
	}
	return &Dispatcher{
		account:     account,
		classifier:  c,
		sorter:      s,
		webhookURL:  opts.WebhookURL,
		salaryClass: opts.SalaryClass,
		cache:       opts.Cache,
	}
}

func (d *Dispatcher) State() WebhookState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// EnsureWebhook registers the webhook URL if needed and confirms it exists.
// A webhook that is still missing afterwards is a configuration error.
func (d *Dispatcher) EnsureWebhook(ctx context.Context) (WebhookState, error) {
	exists, err := d.account.WebhookExists(ctx, d.webhookURL)
	if err != nil {
		return d.State(), err
	}
	if !exists {
		log.Printf("INFO: Registering webhook %s", d.webhookURL)
		if _, err := d.account.RegisterWebhook(ctx, d.webhookURL); err != nil {
			return d.State(), err
		}
		exists, err = d.account.WebhookExists(ctx, d.webhookURL)
		if err != nil {
			return d.State(), err
		}
	}
	if !exists {
		return Unregistered, apperrors.Configuration("webhook %s is not registered after registration", d.webhookURL)
	}

	d.mu.Lock()
	d.state = Registered
	d.mu.Unlock()
	return Registered, nil
}

// Handle processes one webhook body. Only transaction.created events are accepted.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) (Outcome, error) {
	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return Outcome{}, apperrors.Validation("malformed webhook body: %v", err)
	}
	if event.Type != EventTransactionCreated {
		return Outcome{}, fmt.Errorf("%w: type %q", apperrors.ErrUnexpectedEvent, event.Type)
	}
	var data struct {
		ID string `json:"id"`
	}
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return Outcome{}, apperrors.Validation("malformed webhook data: %v", err)
		}
	}
	if data.ID == "" {
		return Outcome{}, apperrors.Validation("webhook data has no transaction id")
	}

	outcome := Outcome{TransactionID: data.ID}
	if d.cache != nil && !d.cache.Claim(data.ID) {
		log.Printf("INFO: Ignoring repeated delivery for %s", data.ID)
		outcome.Duplicate = true
		return outcome, nil
	}

	tx, err := d.account.Transaction(ctx, data.ID)
	if err != nil {
		d.release(data.ID)
		return outcome, err
	}
	outcome.Classes = d.classifier.Classify(tx)
	log.Printf("INFO: Transaction %s classified as %v", data.ID, outcome.Classes)

	if !classifier.Contains(outcome.Classes, d.salaryClass) {
		return outcome, nil
	}

	log.Printf("INFO: Salary transaction detected - %s", data.ID)
	alloc, err := d.sorter.Sort(ctx, data.ID)
	if len(alloc.Deposits) > 0 {
		outcome.Allocation = &alloc
	}
	if err != nil {
		// Once money has moved a redelivery must not sort again.
		if len(alloc.Deposits) == 0 {
			d.release(data.ID)
		}
		return outcome, err
	}
	outcome.Allocation = &alloc
	return outcome, nil
}

func (d *Dispatcher) release(id string) {
	if d.cache != nil {
		d.cache.Release(id)
	}
}
