package handlers

import (
	"context"
	"net/http"

	"monzo-manager/src/sorter"

	"github.com/go-chi/chi/v5"
)

type SalarySorter interface {
	Sort(ctx context.Context, transactionID string) (sorter.Allocation, error)
}

// SortSalary runs the salary waterfall for a transaction by hand.
func SortSalary(s SalarySorter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "transaction_id")
		alloc, err := s.Sort(context.WithoutCancel(r.Context()), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, alloc)
	}
}
