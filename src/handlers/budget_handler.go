package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"monzo-manager/src/budget"
)

type BudgetRunner interface {
	Run(ctx context.Context) (budget.RunResult, error)
}

type NextRunner interface {
	Next() time.Time
}

type budgetResponse struct {
	budget.Ledger
	NextRun *time.Time `json:"next_run,omitempty"`
}

func GetBudget(store *budget.LedgerStore, schedule NextRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ledger, err := store.Load()
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := budgetResponse{Ledger: ledger}
		if schedule != nil {
			if next := schedule.Next(); !next.IsZero() {
				resp.NextRun = &next
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RunBudget reconciles the budget immediately, outside the schedule.
func RunBudget(runner BudgetRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := runner.Run(context.WithoutCancel(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		log.Printf("INFO: Manual budget run moved %d with pot %s", result.ToTransfer, result.Pot)
		writeJSON(w, http.StatusOK, result)
	}
}
