package budget

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"monzo-manager/src/apperrors"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers the reconciler on the ledger's schedule. A run that is
// still in progress when the next tick fires causes that tick to be skipped.
type Scheduler struct {
	reconciler *Reconciler
	logger     cron.Logger
	onFatal    func(error)

	mu       sync.Mutex
	cron     *cron.Cron
	schedule cron.Schedule
	running  bool
}

func NewScheduler(reconciler *Reconciler) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		logger:     cron.PrintfLogger(log.New(os.Stderr, "", log.LstdFlags)),
	}
}

// OnFatal registers fn to be called when a scheduled run fails with a
// configuration error. Other failures are only logged.
func (s *Scheduler) OnFatal(fn func(error)) {
	s.mu.Lock()
	s.onFatal = fn
	s.mu.Unlock()
}

// Start reads the ledger and schedules reconciliation. It returns false without
// error when the ledger is inactive.
func (s *Scheduler) Start() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return true, nil
	}

	ledger, err := s.reconciler.Ledger().Load()
	if err != nil {
		return false, err
	}
	if !ledger.Active {
		log.Printf("INFO: Budget manager inactive, not scheduling")
		return false, nil
	}
	sched, err := ParseSchedule(ledger.ScheduleExpression)
	if err != nil {
		return false, err
	}

	s.cron = cron.New(cron.WithChain(cron.Recover(s.logger), cron.SkipIfStillRunning(s.logger)))
	s.cron.Schedule(sched, cron.FuncJob(s.tick))
	s.cron.Start()
	s.schedule = sched
	s.running = true

	log.Printf("INFO: Budget manager scheduled from %s with %q, next run %s",
		s.reconciler.Ledger().Path(), ledger.ScheduleExpression, sched.Next(time.Now()).Format(time.RFC3339))
	return true, nil
}

// Stop halts the schedule and waits for an in-flight run to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.running = false
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		log.Printf("INFO: Budget scheduler stopped")
	case <-ctx.Done():
		log.Printf("WARN: Budget scheduler stop interrupted: %v", ctx.Err())
	}
}

// Next is the time of the next scheduled run, zero when not scheduled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	return s.schedule.Next(time.Now())
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	_, err := s.reconciler.Run(ctx)
	if err == nil {
		return
	}
	log.Printf("ERROR: Scheduled budget run failed: %v", err)

	s.mu.Lock()
	onFatal := s.onFatal
	s.mu.Unlock()
	if onFatal != nil && apperrors.IsConfiguration(err) {
		onFatal(err)
	}
}
