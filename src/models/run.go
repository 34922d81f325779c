package models

import (
	"encoding/json"
	"time"
)

const (
	RunKindBudget = "budget"
	RunKindSalary = "salary"

	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run records one budget reconciliation or salary sort for the run history.
type Run struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
	Amount      int64           `json:"amount"`
	Detail      json.RawMessage `json:"detail,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}
