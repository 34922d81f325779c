package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"monzo-manager/src/models"

	"github.com/google/uuid"
)

// Account is the subset of the banking client the reconciler needs.
type Account interface {
	AvailableBalance(ctx context.Context) (int64, error)
	Transfer(ctx context.Context, pot string, amount int64) error
	Notify(ctx context.Context, n models.Notification) error
}

type RunRecorder interface {
	RecordRun(ctx context.Context, run models.Run) error
}

type RunResult struct {
	Balance    int64  `json:"balance"`
	NetChange  int64  `json:"net_change"`
	ToTransfer int64  `json:"to_transfer"`
	CurrentNet int64  `json:"current_net"`
	Pot        string `json:"pot"`
}

// Reconciler tops the account back up to buffer + budget from a pot at the end
// of each period and accumulates the difference in the ledger.
//
// A run is not idempotent: calling it twice in one period commits two deltas.
type Reconciler struct {
	account  Account
	ledger   *LedgerStore
	recorder RunRecorder
}

func NewReconciler(account Account, ledger *LedgerStore) *Reconciler {
	return &Reconciler{account: account, ledger: ledger}
}

func (r *Reconciler) WithRecorder(rec RunRecorder) *Reconciler {
	r.recorder = rec
	return r
}

func (r *Reconciler) Ledger() *LedgerStore {
	return r.ledger
}

func (r *Reconciler) Run(ctx context.Context) (RunResult, error) {
	started := time.Now().UTC()
	var result RunResult
	committed := false

	_, err := r.ledger.Update(func(l *Ledger) error {
		balance, err := r.account.AvailableBalance(ctx)
		if err != nil {
			return err
		}
		result = RunResult{
			Balance:    balance,
			NetChange:  balance - l.Buffer,
			ToTransfer: (l.Buffer + l.Budget) - balance,
			Pot:        l.Pot,
		}
		l.CurrentNet += result.NetChange
		result.CurrentNet = l.CurrentNet

		if err := r.account.Transfer(ctx, l.Pot, result.ToTransfer); err != nil {
			return fmt.Errorf("moving %s with pot %s: %w", models.FormatPence(result.ToTransfer), l.Pot, err)
		}
		committed = true
		return nil
	})
	if err != nil {
		r.record(ctx, result, started, committed, err)
		return result, err
	}

	log.Printf("INFO: Budget reconciled: balance %s, net change %s, transferred %s, new net %s",
		models.FormatPence(result.Balance), models.FormatPence(result.NetChange),
		models.FormatPence(result.ToTransfer), models.FormatPence(result.CurrentNet))

	err = r.account.Notify(ctx, models.Notification{
		Title: "Budget Manager",
		Body:  "New net: " + models.FormatPence(result.CurrentNet),
	})
	if err != nil {
		err = fmt.Errorf("notifying new net: %w", err)
	}
	r.record(ctx, result, started, true, err)
	return result, err
}

func (r *Reconciler) record(ctx context.Context, result RunResult, started time.Time, committed bool, runErr error) {
	if r.recorder == nil {
		return
	}
	detail, _ := json.Marshal(result)
	run := models.Run{
		ID:          uuid.NewString(),
		Kind:        models.RunKindBudget,
		Reference:   started.Format(time.RFC3339),
		Status:      models.RunStatusCompleted,
		Amount:      result.ToTransfer,
		Detail:      detail,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
	}
	if !committed {
		run.Status = models.RunStatusFailed
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := r.recorder.RecordRun(ctx, run); err != nil {
		log.Printf("ERROR: Failed to record budget run: %v", err)
	}
}
