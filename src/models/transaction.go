package models

import (
	"fmt"
	"math"
)

// Transaction is the transaction object exactly as returned by the API.
// Rules may address any nested field, so it is kept as generic JSON.
type Transaction map[string]any

func (t Transaction) ID() string {
	id, _ := t["id"].(string)
	return id
}

// Amount returns the signed amount in pence. Positive is a credit to the account.
func (t Transaction) Amount() (int64, error) {
	switch v := t["amount"].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("transaction %s: amount %v is not a whole number of pence", t.ID(), v)
		}
		return int64(v), nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("transaction %s: missing or non-numeric amount", t.ID())
	}
}

func (t Transaction) Created() string {
	created, _ := t["created"].(string)
	return created
}
