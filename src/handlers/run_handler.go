package handlers

import (
	"log"
	"net/http"
	"strconv"

	"monzo-manager/src/db"
	"monzo-manager/src/models"
)

func GetRuns(store db.RunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := r.URL.Query().Get("kind")
		if kind != "" && kind != models.RunKindBudget && kind != models.RunKindSalary {
			http.Error(w, "kind must be budget or salary", http.StatusBadRequest)
			return
		}
		limit := 50
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				log.Printf("ERROR: Invalid limit param: %s", s)
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		runs, err := store.ListRuns(r.Context(), kind, limit)
		if err != nil {
			log.Printf("ERROR: Failed to list runs: %v", err)
			http.Error(w, "failed to list runs", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	}
}
