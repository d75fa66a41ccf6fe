/*
scheduler.go - Background materializer for scheduled transactions

PURPOSE:
  Periodically turns due recurring-transaction templates into pending
  transactions and steps their due dates forward.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A template is due when its next due date is not after the current time
  - Each check materializes one occurrence per due template; a template more
    than one period behind catches up across subsequent checks
  - Materialized transactions land as pending, dated on the due date

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the runner is active (default: true)

USAGE:
  runner := NewScheduleRunner(engine)
  runner.Start()
  // ... later
  runner.Stop()

SEE ALSO:
  - ledger/schedule.go: Due-date stepping with day-of-month clamping
  - handlers.go: AdvanceScheduled endpoint (manual advancement)
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// ScheduleRunner materializes due scheduled transactions in the background.
type ScheduleRunner struct {
	Engine        *ledger.Engine
	CheckInterval time.Duration
	Enabled       bool

	// now is swappable for tests.
	now func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduleRunner creates a new runner.
func NewScheduleRunner(engine *ledger.Engine) *ScheduleRunner {
	return &ScheduleRunner{
		Engine:        engine,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		now:           func() time.Time { return time.Now().UTC() },
		stop:          make(chan bool),
	}
}

// SetClock overrides the runner's notion of "now". Tests use this to pin
// the due-date comparison.
func (sr *ScheduleRunner) SetClock(now func() time.Time) { sr.now = now }

// Start begins the runner.
func (sr *ScheduleRunner) Start() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if !sr.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	sr.ticker = time.NewTicker(sr.CheckInterval)
	sr.wg.Add(1)

	go sr.run()

	log.Printf("[Scheduler] Started with check interval: %v", sr.CheckInterval)
}

// Stop stops the runner.
func (sr *ScheduleRunner) Stop() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if sr.ticker != nil {
		sr.ticker.Stop()
		close(sr.stop)
		sr.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (sr *ScheduleRunner) run() {
	defer sr.wg.Done()

	// Run immediately on start
	sr.checkAndProcess()

	for {
		select {
		case <-sr.ticker.C:
			sr.checkAndProcess()
		case <-sr.stop:
			return
		}
	}
}

func (sr *ScheduleRunner) checkAndProcess() {
	ctx := context.Background()
	now := sr.now()

	snap := sr.Engine.Snapshot()
	processed := 0
	for _, s := range snap.Scheduled {
		if s.NextDueDate.IsZero() || s.NextDueDate.After(now) {
			continue
		}
		if err := sr.materialize(ctx, s); err != nil {
			log.Printf("[Scheduler] Error materializing %s (%s): %v", s.Description, s.ID, err)
			continue
		}
		processed++
	}
	if processed > 0 {
		log.Printf("[Scheduler] Completed: %d materialized", processed)
	}
}

// materialize inserts one pending occurrence dated on the template's due
// date, then steps the due date forward one frequency step.
func (sr *ScheduleRunner) materialize(ctx context.Context, s ledger.ScheduledTransaction) error {
	_, err := sr.Engine.AddTransaction(ctx, ledger.TransactionInput{
		Description: s.Description,
		Amount:      s.Amount.String(),
		Date:        s.NextDueDate,
		Type:        s.Type,
		CategoryID:  s.CategoryID,
		Status:      ledger.StatusPending,
	})
	if err != nil {
		return err
	}
	_, err = sr.Engine.AdvanceScheduled(ctx, s.ID)
	return err
}

// RunNow triggers an immediate check (for testing/admin).
func (sr *ScheduleRunner) RunNow() {
	sr.checkAndProcess()
}

// NextRunTime returns when the next scheduled check will occur.
func (sr *ScheduleRunner) NextRunTime() time.Time {
	return sr.now().Add(sr.CheckInterval)
}
