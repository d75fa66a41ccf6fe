/*
scheduler_test.go - Schedule runner tests

Tests for:
- Materialization of due templates into pending transactions
- Future templates left untouched
- Start/Stop lifecycle
*/
package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/local"
)

func newRunnerEngine(t *testing.T) *ledger.Engine {
	t.Helper()
	backend, err := local.New("")
	require.NoError(t, err)
	e := ledger.NewEngine(ledger.NewRepositories(backend, ledger.GuestUserID))
	require.NoError(t, e.Reload(context.Background()))
	return e
}

func TestScheduleRunner_MaterializesDueTemplates(t *testing.T) {
	// GIVEN: A monthly template whose due date has passed
	// WHEN: The runner checks
	// THEN: A pending transaction lands on the due date and the template
	//       steps one period forward

	ctx := context.Background()
	e := newRunnerEngine(t)

	s, err := e.CreateScheduled(ctx, ledger.ScheduledInput{
		Description: "Rent",
		Amount:      "-1200",
		Type:        ledger.TypeExpense,
		Frequency:   ledger.FreqMonthly,
		StartDate:   time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), s.NextDueDate,
		"leap-year February clamps to the 29th")

	runner := NewScheduleRunner(e)
	runner.SetClock(func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) })
	runner.RunNow()

	snap := e.Snapshot()
	require.Len(t, snap.Transactions, 1)
	got := snap.Transactions[0]
	assert.Equal(t, "Rent", got.Description)
	assert.Equal(t, ledger.StatusPending, got.Status)
	assert.Equal(t, "-1200.00", got.Amount.StringFixed(2))
	assert.True(t, got.Date.Equal(time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC)),
		"occurrence is dated on the due date, not on the check time")

	require.Len(t, snap.Scheduled, 1)
	assert.True(t, snap.Scheduled[0].NextDueDate.Equal(time.Date(2024, time.March, 29, 0, 0, 0, 0, time.UTC)))
}

func TestScheduleRunner_SkipsFutureTemplates(t *testing.T) {
	ctx := context.Background()
	e := newRunnerEngine(t)

	s, err := e.CreateScheduled(ctx, ledger.ScheduledInput{
		Description: "Gym",
		Amount:      "-40",
		Type:        ledger.TypeExpense,
		Frequency:   ledger.FreqWeekly,
		StartDate:   time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	runner := NewScheduleRunner(e)
	runner.SetClock(func() time.Time { return time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC) })
	runner.RunNow()

	snap := e.Snapshot()
	assert.Empty(t, snap.Transactions)
	require.Len(t, snap.Scheduled, 1)
	assert.True(t, snap.Scheduled[0].NextDueDate.Equal(s.NextDueDate), "due date must not move")
}

func TestScheduleRunner_StartStop(t *testing.T) {
	e := newRunnerEngine(t)

	runner := NewScheduleRunner(e)
	runner.CheckInterval = time.Hour
	runner.Start()
	runner.Stop()

	disabled := NewScheduleRunner(e)
	disabled.Enabled = false
	disabled.Start()
	disabled.Stop()
}
