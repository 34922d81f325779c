package handlers

import (
	"log"
	"net/http"
)

type Clearer interface {
	Clear()
}

// ClearDeliveryCache forgets every remembered webhook delivery.
func ClearDeliveryCache(cache Clearer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cache.Clear()
		log.Printf("INFO: Delivery cache cleared")
		writeJSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
	}
}
