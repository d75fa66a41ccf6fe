/*
aggregate.go - Derived aggregates, recomputed on every read

PURPOSE:
  Pure, side-effect-free functions deriving summary balances, monthly
  series, and the gamification level from the current collections. Nothing
  here is persisted as a second source of truth; recomputation is cheap and
  avoids cache-invalidation bugs. The one exception is the explicit
  best-effort profile sync in the engine, which mirrors (never owns) the
  computed level.

RULES:
  - Soft-deleted transactions never count.
  - Transactions flagged exclude_from_reports (transfer legs) count toward
    the total balance (the pair nets to zero) but never toward income or
    expense buckets, so transfers cannot double-count.

SEE ALSO:
  - engine.go: Calls these after every reload
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SUMMARY
// =============================================================================

type Summary struct {
	TotalBalance    decimal.Decimal
	MonthlyIncome   decimal.Decimal
	MonthlyExpenses decimal.Decimal
}

// Summarize computes the balance over all non-deleted transactions and the
// income/expense totals for the calendar month containing ref. Expenses are
// reported as a positive magnitude.
func Summarize(txs []Transaction, ref time.Time) Summary {
	s := Summary{
		TotalBalance:    decimal.Zero,
		MonthlyIncome:   decimal.Zero,
		MonthlyExpenses: decimal.Zero,
	}
	for _, t := range txs {
		if t.Deleted() {
			continue
		}
		s.TotalBalance = s.TotalBalance.Add(t.Amount)
		if t.ExcludeFromReports || !SameMonth(t.Date, ref) {
			continue
		}
		switch t.Type {
		case TypeIncome:
			s.MonthlyIncome = s.MonthlyIncome.Add(t.Amount)
		case TypeExpense:
			s.MonthlyExpenses = s.MonthlyExpenses.Add(t.Amount.Abs())
		}
	}
	return s
}

// =============================================================================
// MONTHLY SERIES
// =============================================================================

type MonthPoint struct {
	Year     int
	Month    time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// MonthlySeries buckets income and expenses (absolute value) for the six
// trailing calendar months ending at ref's month, oldest first.
func MonthlySeries(txs []Transaction, ref time.Time) []MonthPoint {
	const months = 6
	points := make([]MonthPoint, months)
	index := make(map[[2]int]*MonthPoint, months)
	y, m, _ := ref.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	for i := 0; i < months; i++ {
		at := first.AddDate(0, i, 0)
		points[i] = MonthPoint{
			Year:     at.Year(),
			Month:    at.Month(),
			Income:   decimal.Zero,
			Expenses: decimal.Zero,
		}
		index[[2]int{at.Year(), int(at.Month())}] = &points[i]
	}
	for _, t := range txs {
		if t.Deleted() || t.ExcludeFromReports {
			continue
		}
		p, ok := index[[2]int{t.Date.Year(), int(t.Date.Month())}]
		if !ok {
			continue
		}
		switch t.Type {
		case TypeIncome:
			p.Income = p.Income.Add(t.Amount)
		case TypeExpense:
			p.Expenses = p.Expenses.Add(t.Amount.Abs())
		}
	}
	return points
}

// =============================================================================
// GAMIFICATION
// =============================================================================

// XP weights per counted item.
const (
	xpPerTransaction = 10
	xpPerGoal        = 50
	xpPerPaidDebt    = 100
)

// levelBaseThreshold is the XP cost of the first level; each subsequent
// level costs 1.5x the previous.
const levelBaseThreshold = 100.0

type Gamification struct {
	XP       int
	Level    int
	Rank     string
	XPToNext int
}

// ComputeGamification derives level state from raw counts.
// XP = 10*transactions + 50*goals + 100*paid debts. Starting at level 1,
// each threshold exhausted (100, 150, 225, ...) advances one level;
// XPToNext is always the next scaled threshold.
func ComputeGamification(txCount, goalCount, paidDebtCount int) Gamification {
	xp := xpPerTransaction*txCount + xpPerGoal*goalCount + xpPerPaidDebt*paidDebtCount

	level := 1
	remaining := float64(xp)
	threshold := levelBaseThreshold
	for remaining >= threshold {
		remaining -= threshold
		threshold *= 1.5
		level++
	}

	return Gamification{
		XP:       xp,
		Level:    level,
		Rank:     rankForLevel(level),
		XPToNext: int(threshold),
	}
}

// rankForLevel is a step function of level with five tiers.
func rankForLevel(level int) string {
	switch {
	case level < 5:
		return "Bronze"
	case level < 10:
		return "Silver"
	case level < 20:
		return "Gold"
	case level < 35:
		return "Platinum"
	default:
		return "Diamond"
	}
}

// GamificationFor counts the inputs the level derives from: non-deleted
// transactions, all goals, and paid-off debts.
func GamificationFor(txs []Transaction, goals []Goal, debts []Debt) Gamification {
	txCount := 0
	for _, t := range txs {
		if !t.Deleted() {
			txCount++
		}
	}
	paid := 0
	for _, d := range debts {
		if d.Status == DebtPaid {
			paid++
		}
	}
	return ComputeGamification(txCount, len(goals), paid)
}
