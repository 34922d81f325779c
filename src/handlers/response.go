package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"monzo-manager/src/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError answers with the status matching err's place in the error taxonomy.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	switch {
	case apperrors.IsConfiguration(err):
		log.Printf("ERROR: Configuration error handling %s %s: %v", r.Method, r.URL.Path, err)
	case status >= 500:
		log.Printf("ERROR: %s %s failed: %v", r.Method, r.URL.Path, err)
	default:
		log.Printf("WARN: %s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
