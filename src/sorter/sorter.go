package sorter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"

	"github.com/google/uuid"
)

// Account is the subset of the banking client the sorter needs.
type Account interface {
	Transaction(ctx context.Context, id string) (models.Transaction, error)
	PotBalance(ctx context.Context, name string) (int64, error)
	Deposit(ctx context.Context, pot string, amount int64) error
	Notify(ctx context.Context, n models.Notification) error
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run models.Run) error
}

type Deposit struct {
	Pot    string `json:"pot"`
	Amount int64  `json:"amount"`
}

// Allocation describes how a credit was spread across pots.
type Allocation struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Deposits      []Deposit `json:"deposits"`
}

func (a Allocation) Deposited() int64 {
	var total int64
	for _, d := range a.Deposits {
		total += d.Amount
	}
	return total
}

// SalarySorter waterfalls a credit across ordered tiers, with whatever is left
// going to an uncapped remainder pot.
type SalarySorter struct {
	account   Account
	tiers     []Tier
	remainder string
	recorder  RunRecorder
}

func NewSalarySorter(account Account, tiers []Tier, remainderPot string) *SalarySorter {
	if remainderPot == "" {
		remainderPot = DefaultRemainderPot
	}
	return &SalarySorter{account: account, tiers: tiers, remainder: remainderPot}
}

// WithRecorder records every sort in the run history.
func (s *SalarySorter) WithRecorder(r RunRecorder) *SalarySorter {
	s.recorder = r
	return s
}

func (s *SalarySorter) Tiers() []Tier {
	return append([]Tier(nil), s.tiers...)
}

func (s *SalarySorter) RemainderPot() string {
	return s.remainder
}

// Sort allocates the credit transaction transactionID and sends one notification
// once every deposit has gone through.
func (s *SalarySorter) Sort(ctx context.Context, transactionID string) (Allocation, error) {
	log.Printf("INFO: Sorting salary - %s", transactionID)
	started := time.Now().UTC()
	alloc, err := s.sort(ctx, transactionID)
	s.record(ctx, alloc, started, err)
	return alloc, err
}

func (s *SalarySorter) sort(ctx context.Context, transactionID string) (Allocation, error) {
	alloc := Allocation{TransactionID: transactionID}

	tx, err := s.account.Transaction(ctx, transactionID)
	if err != nil {
		return alloc, err
	}
	amount, err := tx.Amount()
	if err != nil {
		return alloc, apperrors.Validation("%v", err)
	}
	if amount <= 0 {
		return alloc, apperrors.Validation("cannot sort salary on transaction %s with amount %d", transactionID, amount)
	}
	alloc.Amount = amount

	remaining := amount
	for _, tier := range s.tiers {
		balance, err := s.account.PotBalance(ctx, tier.Pot)
		if err != nil {
			return alloc, fmt.Errorf("reading %s balance: %w", tier.Pot, err)
		}
		shortfall := tier.Target - balance
		if shortfall <= 0 {
			continue
		}
		deposit := remaining
		if remaining > shortfall {
			deposit = shortfall
		}
		if err := s.deposit(ctx, &alloc, tier.Pot, deposit); err != nil {
			return alloc, err
		}
		remaining -= deposit
		if remaining == 0 {
			break
		}
	}
	if remaining > 0 {
		if err := s.deposit(ctx, &alloc, s.remainder, remaining); err != nil {
			return alloc, err
		}
	}

	if err := s.account.Notify(ctx, models.Notification{
		Title: "Salary Sorted",
		Body:  summary(alloc),
	}); err != nil {
		return alloc, err
	}
	log.Printf("INFO: Salary %s sorted: %s", transactionID, summary(alloc))
	return alloc, nil
}

func (s *SalarySorter) deposit(ctx context.Context, alloc *Allocation, pot string, amount int64) error {
	if err := s.account.Deposit(ctx, pot, amount); err != nil {
		return err
	}
	alloc.Deposits = append(alloc.Deposits, Deposit{Pot: pot, Amount: amount})
	return nil
}

func summary(alloc Allocation) string {
	parts := make([]string, 0, len(alloc.Deposits))
	for _, d := range alloc.Deposits {
		parts = append(parts, fmt.Sprintf("%s to %s", models.FormatPence(d.Amount), d.Pot))
	}
	return strings.Join(parts, ", ")
}

func (s *SalarySorter) record(ctx context.Context, alloc Allocation, started time.Time, sortErr error) {
	if s.recorder == nil {
		return
	}
	detail, _ := json.Marshal(alloc)
	run := models.Run{
		ID:          uuid.NewString(),
		Kind:        models.RunKindSalary,
		Reference:   alloc.TransactionID,
		Status:      models.RunStatusCompleted,
		Amount:      alloc.Amount,
		Detail:      detail,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	if sortErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = sortErr.Error()
	}
	if err := s.recorder.RecordRun(ctx, run); err != nil {
		log.Printf("ERROR: Failed to record salary run for %s: %v", alloc.TransactionID, err)
	}
}
