package budget

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"monzo-manager/src/apperrors"
	"monzo-manager/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transfer struct {
	Pot    string
	Amount int64
}

type fakeAccount struct {
	mu            sync.Mutex
	balance       int64
	balanceErr    error
	transferErr   error
	transfers     []transfer
	notifications []models.Notification
}

func (f *fakeAccount) AvailableBalance(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, f.balanceErr
}

func (f *fakeAccount) Transfer(ctx context.Context, pot string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return f.transferErr
	}
	f.transfers = append(f.transfers, transfer{pot, amount})
	return nil
}

func (f *fakeAccount) Notify(ctx context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return nil
}

type fakeRecorder struct {
	runs []models.Run
}

func (r *fakeRecorder) RecordRun(ctx context.Context, run models.Run) error {
	r.runs = append(r.runs, run)
	return nil
}

func writeLedger(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readRaw(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func TestReconcileScenario(t *testing.T) {
	path := writeLedger(t, `{"buffer": 10000, "budget": 50000, "current_net": 0, "schedule_expression": "every sunday at 21:00", "active": true, "owner": "me"}`)
	account := &fakeAccount{balance: 55000}
	recorder := &fakeRecorder{}
	r := NewReconciler(account, NewLedgerStore(path)).WithRecorder(recorder)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(45000), result.NetChange)
	assert.Equal(t, int64(5000), result.ToTransfer)
	assert.Equal(t, int64(45000), result.CurrentNet)
	assert.Equal(t, []transfer{{"savings", 5000}}, account.transfers)

	raw := readRaw(t, path)
	assert.Equal(t, 45000.0, raw["current_net"])
	assert.Equal(t, 10000.0, raw["buffer"])
	assert.Equal(t, "me", raw["owner"], "unknown keys are preserved")
	assert.Equal(t, "every sunday at 21:00", raw["schedule_expression"])

	require.Len(t, account.notifications, 1)
	assert.Equal(t, "Budget Manager", account.notifications[0].Title)
	assert.Equal(t, "New net: £450.00", account.notifications[0].Body)

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, models.RunKindBudget, recorder.runs[0].Kind)
	assert.Equal(t, models.RunStatusCompleted, recorder.runs[0].Status)
	assert.Equal(t, int64(5000), recorder.runs[0].Amount)
}

func TestReconcileOverspendDepositsExcess(t *testing.T) {
	path := writeLedger(t, `{"buffer": 10000, "budget": 50000, "current_net": -2000, "schedule_expression": "@weekly", "pot": "Rainy Day"}`)
	account := &fakeAccount{balance: 70000}

	result, err := NewReconciler(account, NewLedgerStore(path)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(-10000), result.ToTransfer)
	assert.Equal(t, int64(58000), result.CurrentNet)
	assert.Equal(t, []transfer{{"Rainy Day", -10000}}, account.transfers)
	assert.Equal(t, 58000.0, readRaw(t, path)["current_net"])
}

func TestReconcileAccumulatesAcrossRuns(t *testing.T) {
	path := writeLedger(t, `{"buffer": 10000, "budget": 50000, "current_net": 0, "schedule_expression": "@weekly"}`)
	account := &fakeAccount{balance: 55000}
	r := NewReconciler(account, NewLedgerStore(path))

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	account.balance = 5000
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(40000), result.CurrentNet)
	assert.Equal(t, int64(55000), result.ToTransfer)
}

func TestReconcileTransferFailurePersistsNothing(t *testing.T) {
	original := `{"buffer": 10000, "budget": 50000, "current_net": 123, "schedule_expression": "@weekly"}`
	path := writeLedger(t, original)
	account := &fakeAccount{balance: 55000, transferErr: &apperrors.ConnectivityError{StatusCode: 500}}
	recorder := &fakeRecorder{}

	_, err := NewReconciler(account, NewLedgerStore(path)).WithRecorder(recorder).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsConnectivity(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
	assert.Empty(t, account.notifications)
	require.Len(t, recorder.runs, 1)
	assert.Equal(t, models.RunStatusFailed, recorder.runs[0].Status)
}

func TestReconcileBalanceFailure(t *testing.T) {
	path := writeLedger(t, `{"buffer": 1, "budget": 1, "current_net": 0}`)
	account := &fakeAccount{balanceErr: &apperrors.ConnectivityError{StatusCode: 503}}

	_, err := NewReconciler(account, NewLedgerStore(path)).Run(context.Background())
	assert.True(t, apperrors.IsConnectivity(err))
	assert.Empty(t, account.transfers)
}

func TestReconcileExactTargetMovesNothing(t *testing.T) {
	path := writeLedger(t, `{"buffer": 10000, "budget": 50000, "current_net": 0}`)
	account := &fakeAccount{balance: 60000}

	result, err := NewReconciler(account, NewLedgerStore(path)).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.ToTransfer)
	assert.Equal(t, int64(50000), result.CurrentNet)
	assert.Len(t, account.notifications, 1)
}

func TestLedgerStoreErrors(t *testing.T) {
	_, err := NewLedgerStore(filepath.Join(t.TempDir(), "missing.json")).Load()
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = NewLedgerStore(writeLedger(t, `{"buffer": 1}`)).Load()
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = NewLedgerStore(writeLedger(t, `{"buffer": "lots", "budget": 1, "current_net": 0}`)).Load()
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestLedgerStoreDefaults(t *testing.T) {
	ledger, err := NewLedgerStore(writeLedger(t, `{"buffer": 1, "budget": 2, "current_net": 3}`)).Load()
	require.NoError(t, err)
	assert.Equal(t, Ledger{Buffer: 1, Budget: 2, CurrentNet: 3, Pot: DefaultPot}, ledger)
}

func TestLedgerUpdatesDoNotLoseWrites(t *testing.T) {
	store := NewLedgerStore(writeLedger(t, `{"buffer": 0, "budget": 0, "current_net": 0}`))

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(func(l *Ledger) error {
				l.CurrentNet += 2
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ledger, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(50), ledger.CurrentNet)
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2024, 6, 5, 12, 0, 0, 0, time.Local) // a Wednesday

	tests := []struct {
		expr string
		next time.Time
	}{
		{"every 2 hours", base.Add(2 * time.Hour)},
		{"every minute", base.Add(time.Minute)},
		{"Every 3 Days", base.Add(72 * time.Hour)},
		{"every week", base.Add(7 * 24 * time.Hour)},
		{"every day at 23:30", time.Date(2024, 6, 5, 23, 30, 0, 0, time.Local)},
		{"every sunday at 21:00", time.Date(2024, 6, 9, 21, 0, 0, 0, time.Local)},
		{"every monday", time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local)},
		{"0 9 * * 1", time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)},
		{"@daily", time.Date(2024, 6, 6, 0, 0, 0, 0, time.Local)},
		{"@every 90m", base.Add(90 * time.Minute)},
		{`schedule.every().sunday.at("23:00")`, time.Date(2024, 6, 9, 23, 0, 0, 0, time.Local)},
		{"schedule.every(10).minutes", base.Add(10 * time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			sched, err := ParseSchedule(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.next, sched.Next(base))
		})
	}
}

func TestParseScheduleRejects(t *testing.T) {
	for _, expr := range []string{
		"",
		"every 0 hours",
		"every fortnight",
		"every 2 mondays",
		"every day at 25:00",
		"every 2 hours at 10:00",
		"__import__('os').system('rm -rf /')",
		"* * *",
	} {
		_, err := ParseSchedule(expr)
		assert.True(t, apperrors.IsConfiguration(err), "expected %q to be rejected", expr)
	}
}

func TestSchedulerInactiveLedger(t *testing.T) {
	path := writeLedger(t, `{"buffer": 1, "budget": 1, "current_net": 0, "schedule_expression": "every hour", "active": false}`)
	s := NewScheduler(NewReconciler(&fakeAccount{}, NewLedgerStore(path)))

	started, err := s.Start()
	require.NoError(t, err)
	assert.False(t, started)
	assert.True(t, s.Next().IsZero())
	s.Stop(context.Background())
}

func TestSchedulerActiveLedger(t *testing.T) {
	path := writeLedger(t, `{"buffer": 1, "budget": 1, "current_net": 0, "schedule_expression": "every 1 hour", "active": true}`)
	s := NewScheduler(NewReconciler(&fakeAccount{}, NewLedgerStore(path)))

	started, err := s.Start()
	require.NoError(t, err)
	assert.True(t, started)
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.Next(), 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.True(t, s.Next().IsZero())
}

func TestSchedulerInvalidExpression(t *testing.T) {
	path := writeLedger(t, `{"buffer": 1, "budget": 1, "current_net": 0, "schedule_expression": "whenever", "active": true}`)
	_, err := NewScheduler(NewReconciler(&fakeAccount{}, NewLedgerStore(path))).Start()
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestSchedulerTickReportsConfigurationErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.json")
	s := NewScheduler(NewReconciler(&fakeAccount{}, NewLedgerStore(path)))

	var fatal error
	s.OnFatal(func(err error) { fatal = err })
	s.tick()
	assert.True(t, apperrors.IsConfiguration(fatal))

	fatal = nil
	path = writeLedger(t, `{"buffer": 1, "budget": 1, "current_net": 0}`)
	s = NewScheduler(NewReconciler(&fakeAccount{balanceErr: &apperrors.ConnectivityError{StatusCode: 500}}, NewLedgerStore(path)))
	s.OnFatal(func(err error) { fatal = err })
	s.tick()
	assert.Nil(t, fatal, "connectivity failures are logged, not fatal")
}
