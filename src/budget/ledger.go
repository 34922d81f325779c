package budget

import (
	"encoding/json"
	"fmt"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/util"
)

const DefaultPot = "savings"

// Ledger is the persisted budget state. All amounts are pence.
//
// Buffer is left in the account to absorb overspend within a period, Budget is
// the planned spend per period and CurrentNet accumulates how far under (positive)
// or over (negative) budget the user is across periods.
type Ledger struct {
	Buffer             int64  `json:"buffer"`
	Budget             int64  `json:"budget"`
	CurrentNet         int64  `json:"current_net"`
	ScheduleExpression string `json:"schedule_expression"`
	Active             bool   `json:"active"`
	Pot                string `json:"pot,omitempty"`
}

// LedgerStore reads and updates the ledger file. Only current_net is ever written
// back; every other key in the file belongs to whoever edits it by hand.
type LedgerStore struct {
	path string
}

func NewLedgerStore(path string) *LedgerStore {
	return &LedgerStore{path: path}
}

func (s *LedgerStore) Path() string {
	return s.path
}

func (s *LedgerStore) Load() (Ledger, error) {
	var ledger Ledger
	err := util.WithFileLock(s.path, func() error {
		var err error
		ledger, _, err = s.read()
		return err
	})
	return ledger, err
}

// Update runs fn against a freshly loaded ledger under an exclusive lock and
// persists the resulting current_net. Nothing is written if fn fails.
func (s *LedgerStore) Update(fn func(*Ledger) error) (Ledger, error) {
	var ledger Ledger
	err := util.WithFileLock(s.path, func() error {
		l, raw, err := s.read()
		if err != nil {
			return err
		}
		if err := fn(&l); err != nil {
			return err
		}
		net, err := json.Marshal(l.CurrentNet)
		if err != nil {
			return err
		}
		raw["current_net"] = net
		if err := util.WriteJSON(s.path, raw, 0o600); err != nil {
			return fmt.Errorf("saving budget ledger: %w", err)
		}
		ledger = l
		return nil
	})
	return ledger, err
}

func (s *LedgerStore) read() (Ledger, map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := util.ReadJSON(s.path, &raw); err != nil {
		if util.IsNotExist(err) {
			return Ledger{}, nil, apperrors.Configuration("budget ledger %s not found", s.path)
		}
		return Ledger{}, nil, apperrors.Configuration("reading budget ledger: %v", err)
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}
	for _, key := range []string{"buffer", "budget", "current_net"} {
		if _, ok := raw[key]; !ok {
			return Ledger{}, nil, apperrors.Configuration("budget ledger %s is missing %q", s.path, key)
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return Ledger{}, nil, err
	}
	var ledger Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return Ledger{}, nil, apperrors.Configuration("decoding budget ledger: %v", err)
	}
	if ledger.Pot == "" {
		ledger.Pot = DefaultPot
	}
	return ledger, raw, nil
}
