/*
engine.go - The ledger mutation engine

PURPOSE:
  The single mutation and query surface over the user's financial record
  set, usable against either storage backend. Consumers read an immutable
  Snapshot (collections + derived aggregates + status triple) and mutate
  through one method per operation.

CONSISTENCY MODEL:
  The engine keeps no independent in-memory source of truth between
  operations. Every successful mutation is followed by a full reload of the
  collections, trading efficiency for simplicity. On failure the engine also
  reloads, resynchronizing from the backend rather than trusting a
  partially-applied local patch. Reloads are guarded by the fetch generation
  counter: a reload superseded before it commits discards its results.

KNOWN GAP:
  The goal/debt contribution pair (insert transaction, then update the
  running total) has no compensating step. A crash between the two writes
  leaves the transaction recorded and the total stale until the next full
  reload reconciles the view. This is deliberate and documented, not masked.

SEE ALSO:
  - transfer.go: The one multi-row operation WITH compensation
  - lifecycle.go: Trash state machine and audit trail
  - aggregate.go: Derived values recomputed on each reload
*/
package ledger

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT - What consumers read
// =============================================================================

// Snapshot is an immutable view of the record set plus derived aggregates
// and the loading/error/mutating status triple. The engine replaces it
// wholesale; callers may hold it without copying.
type Snapshot struct {
	Transactions []Transaction // live only
	Trashed      []Transaction
	Goals        []Goal
	Debts        []Debt
	Scheduled    []ScheduledTransaction
	Categories   []Category
	Accounts     []Account
	Budgets      []Budget
	Investments  []Investment

	Summary      Summary
	Series       []MonthPoint
	Gamification Gamification

	Generation  uint64
	Loading     bool
	Err         string
	MutatingIDs []string
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	repos     *Repositories
	lifecycle *Lifecycle
	guard     *Guard

	// now is swappable for tests; aggregates use it as the reference month.
	now func() time.Time

	mu      sync.Mutex
	snap    Snapshot
	loading bool
	lastErr string
}

func NewEngine(repos *Repositories) *Engine {
	return &Engine{
		repos:     repos,
		lifecycle: NewLifecycle(repos),
		guard:     NewGuard(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the engine's notion of "now". Tests use this to pin
// the aggregate reference month.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Guard exposes the consistency guard, mainly for consumers that want to
// observe the mutating-id registry directly.
func (e *Engine) Guard() *Guard { return e.guard }

// Snapshot returns the current view. The returned value is safe to retain:
// the engine never mutates a published snapshot in place.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.snap
	s.Loading = e.loading
	s.Err = e.lastErr
	s.MutatingIDs = e.guard.MutatingIDs()
	return s
}

// =============================================================================
// RELOAD - Full re-read, generation guarded
// =============================================================================

// Reload re-reads every collection and recomputes the aggregates. If a newer
// reload starts before this one commits, the results are discarded.
func (e *Engine) Reload(ctx context.Context) error {
	gen := e.guard.Begin()

	e.mu.Lock()
	e.loading = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()
	}()

	if err := e.repos.EnsureDefaults(ctx); err != nil {
		return e.recordErr(err)
	}

	all, err := e.repos.AllTransactions(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	goals, err := e.repos.Goals(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	debts, err := e.repos.Debts(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	scheduled, err := e.repos.ScheduledTransactions(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	cats, err := e.repos.Categories(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	accts, err := e.repos.Accounts(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	budgets, err := e.repos.Budgets(ctx)
	if err != nil {
		return e.recordErr(err)
	}
	invs, err := e.repos.Investments(ctx)
	if err != nil {
		return e.recordErr(err)
	}

	live := make([]Transaction, 0, len(all))
	trashed := make([]Transaction, 0)
	for _, t := range all {
		if t.Deleted() {
			trashed = append(trashed, t)
		} else {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Date.After(live[j].Date) })
	sort.Slice(trashed, func(i, j int) bool { return trashed[i].Date.After(trashed[j].Date) })

	ref := e.now()
	next := Snapshot{
		Transactions: live,
		Trashed:      trashed,
		Goals:        goals,
		Debts:        debts,
		Scheduled:    scheduled,
		Categories:   cats,
		Accounts:     accts,
		Budgets:      budgets,
		Investments:  invs,
		Summary:      Summarize(live, ref),
		Series:       MonthlySeries(live, ref),
		Gamification: GamificationFor(live, goals, debts),
		Generation:   gen,
	}

	// The staleness check and the commit must share one critical section:
	// checked outside the lock, a superseded reload could install its
	// results over a newer snapshot committed in between. Generations only
	// ever move forward in e.snap.
	e.mu.Lock()
	if !e.guard.StillCurrent(gen) || next.Generation <= e.snap.Generation {
		e.mu.Unlock()
		return nil
	}
	e.snap = next
	e.lastErr = ""
	e.mu.Unlock()

	// Best-effort cross-user profile sync. Never fails the reload.
	g := next.Gamification
	if err := e.repos.SyncProfile(ctx, Profile{Level: g.Level, XP: g.XP, Rank: g.Rank}); err != nil {
		log.Printf("ledger: profile sync skipped: %v", err)
	}
	return nil
}

func (e *Engine) recordErr(err error) error {
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
	return err
}

// fail records the mutation error and resynchronizes from the backend so the
// in-memory view never reflects a partially-applied local patch.
func (e *Engine) fail(ctx context.Context, err error) error {
	e.recordErr(err)
	if rerr := e.Reload(ctx); rerr != nil {
		log.Printf("ledger: resync after failure also failed: %v", rerr)
	}
	// Reload clears lastErr on success; put the mutation error back.
	e.recordErr(err)
	return err
}

// =============================================================================
// TRANSACTIONS - add / update / trash lifecycle
// =============================================================================

// TransactionInput is the caller-facing shape for creating or updating a
// transaction. Amount arrives as text and is parsed, never coerced.
type TransactionInput struct {
	Description string
	Amount      string
	Date        time.Time
	Type        TransactionType
	CategoryID  string
	AccountID   string
	Status      TransactionStatus
	Notes       string
	Starred     bool
}

func (in TransactionInput) validate() (decimal.Decimal, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if in.Type != TypeIncome && in.Type != TypeExpense {
		return decimal.Zero, &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	return amount, nil
}

func (e *Engine) AddTransaction(ctx context.Context, in TransactionInput) (Transaction, error) {
	amount, err := in.validate()
	if err != nil {
		return Transaction{}, err
	}
	date := in.Date
	if date.IsZero() {
		date = e.now()
	}
	t := Transaction{
		Description: in.Description,
		Amount:      amount,
		Date:        date,
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
		Status:      in.Status,
		Notes:       in.Notes,
		Starred:     in.Starred,
	}
	inserted, err := e.repos.InsertTransaction(ctx, t)
	if err != nil {
		return Transaction{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindTransaction, inserted.ID, "added "+describeTransaction(inserted))
	return inserted, e.Reload(ctx)
}

func (e *Engine) UpdateTransaction(ctx context.Context, id string, in TransactionInput) (Transaction, error) {
	amount, err := in.validate()
	if err != nil {
		return Transaction{}, err
	}
	release := e.guard.MarkMutating(id)
	defer release()

	t, err := e.repos.GetTransaction(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	t.Description = in.Description
	t.Amount = amount
	if !in.Date.IsZero() {
		t.Date = in.Date
	}
	t.Type = in.Type
	t.CategoryID = in.CategoryID
	t.AccountID = in.AccountID
	if in.Status != "" {
		t.Status = in.Status
	}
	t.Notes = in.Notes
	t.Starred = in.Starred

	if err := e.repos.UpdateTransaction(ctx, t); err != nil {
		return Transaction{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordUpdate(ctx, KindTransaction, id, "updated "+describeTransaction(t))
	return t, e.Reload(ctx)
}

func (e *Engine) DeleteTransaction(ctx context.Context, id string) error {
	release := e.guard.MarkMutating(id)
	defer release()
	if err := e.lifecycle.SoftDelete(ctx, id); err != nil {
		return e.fail(ctx, err)
	}
	return e.Reload(ctx)
}

func (e *Engine) RestoreTransaction(ctx context.Context, id string) error {
	release := e.guard.MarkMutating(id)
	defer release()
	if err := e.lifecycle.Restore(ctx, id); err != nil {
		return e.fail(ctx, err)
	}
	return e.Reload(ctx)
}

func (e *Engine) PermanentlyDeleteTransaction(ctx context.Context, id string) error {
	release := e.guard.MarkMutating(id)
	defer release()
	if err := e.lifecycle.PermanentDelete(ctx, id); err != nil {
		if IsClientError(err) {
			return err
		}
		return e.fail(ctx, err)
	}
	return e.Reload(ctx)
}

// =============================================================================
// TRANSFER - two legs, manual compensation
// =============================================================================

// Transfer moves money between two accounts as a debit/credit transaction
// pair sharing a fresh transfer id. The debit is inserted first; if the
// credit insert fails, the debit is deleted before the error is surfaced.
// On failure the operation must be retried as a whole, never resumed.
func (e *Engine) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	amount, err := req.Validate()
	if err != nil {
		return TransferResult{}, err
	}

	release := e.guard.MarkMutating(req.FromAccountID, req.ToAccountID)
	defer release()

	date := req.Date
	if date.IsZero() {
		date = e.now()
	}
	transferID := uuid.NewString()
	description := req.Description
	if description == "" {
		description = "Transfer"
	}

	debit := Transaction{
		Description:        description,
		Amount:             amount.Neg(),
		Date:               date,
		Type:               TypeExpense,
		AccountID:          req.FromAccountID,
		TransferID:         transferID,
		FromAccountID:      req.FromAccountID,
		ToAccountID:        req.ToAccountID,
		ExcludeFromReports: true,
		Notes:              req.Notes,
	}
	credit := debit
	credit.Amount = amount
	credit.Type = TypeIncome
	credit.AccountID = req.ToAccountID

	// DebitPending -> CreditPending
	insertedDebit, err := e.repos.InsertTransaction(ctx, debit)
	if err != nil {
		return TransferResult{State: TransferDebitPending}, e.fail(ctx, err)
	}

	// CreditPending -> Committed | RollingBack
	insertedCredit, err := e.repos.InsertTransaction(ctx, credit)
	if err != nil {
		// Compensate: remove the orphaned debit leg.
		state := TransferRolledBack
		if derr := e.repos.HardDeleteTransactions(ctx, []string{insertedDebit.ID}); derr != nil {
			state = TransferRollbackFailed
			log.Printf("ledger: transfer compensation failed, debit %s orphaned: %v", insertedDebit.ID, derr)
		}
		terr := &TransferError{State: state, Err: err}
		return TransferResult{TransferID: transferID, State: state}, e.fail(ctx, terr)
	}

	_ = e.lifecycle.RecordCreate(ctx, KindTransaction, insertedDebit.ID,
		fmt.Sprintf("transfer %s: %s", transferID, describeTransaction(insertedDebit)))

	result := TransferResult{
		TransferID: transferID,
		Debit:      insertedDebit,
		Credit:     insertedCredit,
		State:      TransferCommitted,
	}
	return result, e.Reload(ctx)
}

// =============================================================================
// GOAL CONTRIBUTIONS AND DEBT PAYMENTS
// =============================================================================

// ContributionRequest funds a goal (or pays a debt, via PayDebt). Confirm
// acknowledges an amount that pushes the running total past the target;
// over-completion is permitted, not clamped, but must be explicit.
type ContributionRequest struct {
	TargetID string
	Amount   string
	Date     time.Time
	Confirm  bool
}

// ContributionResult reports the inserted transaction and whether the target
// crossed into completed for the first time (a notable event for the caller,
// not part of the data contract).
type ContributionResult struct {
	Transaction Transaction
	Completed   bool
}

func (req ContributionRequest) amount() (decimal.Decimal, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	return amount, nil
}

// ContributeToGoal inserts an expense transaction linked to the goal, then
// adds the contribution to the goal's running total. The two writes are not
// atomic; see the package note on the known gap.
func (e *Engine) ContributeToGoal(ctx context.Context, req ContributionRequest) (ContributionResult, error) {
	amount, err := req.amount()
	if err != nil {
		return ContributionResult{}, err
	}
	release := e.guard.MarkMutating(req.TargetID)
	defer release()

	goal, err := e.repos.GetGoal(ctx, req.TargetID)
	if err != nil {
		return ContributionResult{}, err
	}
	newTotal := goal.CurrentAmount.Add(amount)
	if newTotal.GreaterThan(goal.TargetAmount) && !req.Confirm {
		return ContributionResult{}, &ValidationError{
			Field:  "amount",
			Reason: "contribution exceeds the goal target; confirmation required",
		}
	}

	date := req.Date
	if date.IsZero() {
		date = e.now()
	}
	tx := Transaction{
		Description:        "Contribution to " + goal.Name,
		Amount:             amount.Neg(),
		Date:               date,
		Type:               TypeExpense,
		GoalContributionID: goal.ID,
	}
	inserted, err := e.repos.InsertTransaction(ctx, tx)
	if err != nil {
		return ContributionResult{}, e.fail(ctx, err)
	}

	wasCompleted := goal.Status == GoalCompleted
	goal.CurrentAmount = newTotal
	if goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount) {
		goal.Status = GoalCompleted
	} else {
		goal.Status = GoalInProgress
	}
	if err := e.repos.UpdateGoal(ctx, goal); err != nil {
		// Transaction is recorded, total is stale: the documented gap.
		// The next full reload reconciles the caller's view.
		return ContributionResult{Transaction: inserted}, e.fail(ctx, err)
	}

	_ = e.lifecycle.RecordCreate(ctx, KindTransaction, inserted.ID, "contributed to goal "+goal.Name)
	result := ContributionResult{
		Transaction: inserted,
		Completed:   goal.Status == GoalCompleted && !wasCompleted,
	}
	return result, e.Reload(ctx)
}

// PayDebt mirrors ContributeToGoal for debts.
func (e *Engine) PayDebt(ctx context.Context, req ContributionRequest) (ContributionResult, error) {
	amount, err := req.amount()
	if err != nil {
		return ContributionResult{}, err
	}
	release := e.guard.MarkMutating(req.TargetID)
	defer release()

	debt, err := e.repos.GetDebt(ctx, req.TargetID)
	if err != nil {
		return ContributionResult{}, err
	}
	newTotal := debt.PaidAmount.Add(amount)
	if newTotal.GreaterThan(debt.TotalAmount) && !req.Confirm {
		return ContributionResult{}, &ValidationError{
			Field:  "amount",
			Reason: "payment exceeds the remaining debt; confirmation required",
		}
	}

	date := req.Date
	if date.IsZero() {
		date = e.now()
	}
	tx := Transaction{
		Description:   "Payment on " + debt.Name,
		Amount:        amount.Neg(),
		Date:          date,
		Type:          TypeExpense,
		DebtPaymentID: debt.ID,
	}
	inserted, err := e.repos.InsertTransaction(ctx, tx)
	if err != nil {
		return ContributionResult{}, e.fail(ctx, err)
	}

	wasPaid := debt.Status == DebtPaid
	debt.PaidAmount = newTotal
	if debt.PaidAmount.GreaterThanOrEqual(debt.TotalAmount) {
		debt.Status = DebtPaid
	} else {
		debt.Status = DebtActive
	}
	if err := e.repos.UpdateDebt(ctx, debt); err != nil {
		return ContributionResult{Transaction: inserted}, e.fail(ctx, err)
	}

	_ = e.lifecycle.RecordCreate(ctx, KindTransaction, inserted.ID, "paid debt "+debt.Name)
	result := ContributionResult{
		Transaction: inserted,
		Completed:   debt.Status == DebtPaid && !wasPaid,
	}
	return result, e.Reload(ctx)
}

// =============================================================================
// MERGE
// =============================================================================

// MergeTarget describes the replacement transaction for a merge.
type MergeTarget struct {
	Description string
	CategoryID  string
	AccountID   string
	Date        time.Time
	Notes       string
}

// MergeTransactions soft-deletes the source transactions and inserts one
// replacement carrying their summed amount and a merged-history note. The
// sequence is not atomic: if the insert fails after the soft deletes, the
// originals are hidden but recoverable from the trash and the caller can
// retry the insert.
func (e *Engine) MergeTransactions(ctx context.Context, ids []string, target MergeTarget) (Transaction, error) {
	if len(ids) < 2 {
		return Transaction{}, &ValidationError{Field: "ids", Reason: "merge needs at least two transactions"}
	}
	release := e.guard.MarkMutating(ids...)
	defer release()

	rows, err := e.repos.TransactionRows(ctx, ids)
	if err != nil {
		return Transaction{}, e.fail(ctx, err)
	}
	if len(rows) != len(ids) {
		return Transaction{}, &NotFoundError{Kind: KindTransaction, ID: fmt.Sprintf("%d of %d", len(ids)-len(rows), len(ids))}
	}

	sources := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		sources = append(sources, transactionFromRow(row))
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Date.Before(sources[j].Date) })

	total := decimal.Zero
	history := make([]string, 0, len(sources))
	txType := sources[0].Type
	for _, s := range sources {
		total = total.Add(s.Amount)
		history = append(history, fmt.Sprintf("%s: %s (%s)",
			s.Date.Format("2006-01-02"), s.Description, s.Amount.StringFixed(2)))
	}
	if total.IsPositive() {
		txType = TypeIncome
	} else if total.IsNegative() {
		txType = TypeExpense
	}

	now := time.Now().UTC()
	if err := e.repos.PatchTransactions(ctx, ids, Row{"deleted_at": encodeTime(now)}); err != nil {
		return Transaction{}, e.fail(ctx, err)
	}
	// The sources are trashed without going through Lifecycle.SoftDelete,
	// so their trail entries are appended here.
	for _, s := range sources {
		_ = e.lifecycle.record(ctx, AuditDelete, KindTransaction, s.ID, "trashed by merge: "+describeTransaction(s))
	}

	notes := target.Notes
	if notes != "" {
		notes += "\n"
	}
	notes += "Merged from:\n" + strings.Join(history, "\n")

	date := target.Date
	if date.IsZero() {
		date = sources[len(sources)-1].Date
	}
	merged := Transaction{
		Description: target.Description,
		Amount:      total,
		Date:        date,
		Type:        txType,
		CategoryID:  target.CategoryID,
		AccountID:   target.AccountID,
		Notes:       notes,
	}
	inserted, err := e.repos.InsertTransaction(ctx, merged)
	if err != nil {
		// Originals are trashed, replacement missing. Acceptable worst case:
		// recoverable from the trash, or the caller retries the insert.
		return Transaction{}, e.fail(ctx, err)
	}

	_ = e.lifecycle.RecordCreate(ctx, KindTransaction, inserted.ID,
		fmt.Sprintf("merged %d transactions into %s", len(ids), describeTransaction(inserted)))
	return inserted, e.Reload(ctx)
}

// =============================================================================
// MONTH CLONING
// =============================================================================

// CloneMonth copies every non-deleted transaction dated in the source month
// into the target month, keeping the day-of-month clamped to the days the
// target actually has (Jan 31 clones to Feb 28/29). Clones get fresh ids,
// pending status, and cleared linkage fields: a clone is never a transfer
// leg or a contribution.
func (e *Engine) CloneMonth(ctx context.Context, sourceYear int, sourceMonth time.Month, targetYear int, targetMonth time.Month) (int, error) {
	if sourceYear == targetYear && sourceMonth == targetMonth {
		return 0, &ValidationError{Field: "target", Reason: "target month must differ from source"}
	}

	all, err := e.repos.AllTransactions(ctx)
	if err != nil {
		return 0, e.fail(ctx, err)
	}

	start, end := MonthBounds(time.Date(sourceYear, sourceMonth, 1, 0, 0, 0, 0, time.UTC))
	clones := make([]Transaction, 0)
	for _, t := range all {
		if t.Deleted() || t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		clone := t
		clone.ID = ""
		clone.CreatedAt = time.Time{}
		clone.Date = ShiftToMonth(t.Date, targetYear, targetMonth)
		clone.Status = StatusPending
		clone.Reconciled = false
		clone.GoalContributionID = ""
		clone.DebtPaymentID = ""
		clone.InvestmentID = ""
		clone.TransferID = ""
		clone.FromAccountID = ""
		clone.ToAccountID = ""
		clone.ExcludeFromReports = false
		clone.DeletedAt = nil
		clones = append(clones, clone)
	}

	for i, c := range clones {
		if _, err := e.repos.InsertTransaction(ctx, c); err != nil {
			return i, e.fail(ctx, err)
		}
	}

	if len(clones) > 0 {
		_ = e.lifecycle.RecordCreate(ctx, KindTransaction, "",
			fmt.Sprintf("cloned %d transactions from %s %d to %s %d",
				len(clones), sourceMonth, sourceYear, targetMonth, targetYear))
	}
	return len(clones), e.Reload(ctx)
}

// =============================================================================
// BULK OPERATIONS - snapshot first, undo later
// =============================================================================

// UndoToken holds the pre-mutation rows of a bulk operation. Undo re-applies
// them verbatim. Best-effort: audit entries written for the original
// mutation are not retracted.
type UndoToken struct {
	rows []Row
}

// Size returns how many rows the token can restore.
func (u *UndoToken) Size() int {
	if u == nil {
		return 0
	}
	return len(u.rows)
}

func (e *Engine) snapshotRows(ctx context.Context, ids []string) (*UndoToken, error) {
	rows, err := e.repos.TransactionRows(ctx, ids)
	if err != nil {
		return nil, err
	}
	copies := make([]Row, 0, len(rows))
	for _, r := range rows {
		copies = append(copies, r.Clone())
	}
	return &UndoToken{rows: copies}, nil
}

// BulkUpdate applies a column patch to every targeted transaction and
// returns an undo token snapshotted before the mutation.
func (e *Engine) BulkUpdate(ctx context.Context, ids []string, patch Row) (*UndoToken, error) {
	release := e.guard.MarkMutating(ids...)
	defer release()

	undo, err := e.snapshotRows(ctx, ids)
	if err != nil {
		return nil, e.fail(ctx, err)
	}
	if err := e.repos.PatchTransactions(ctx, ids, patch); err != nil {
		return nil, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordUpdate(ctx, KindTransaction, "", fmt.Sprintf("bulk updated %d transactions", len(ids)))
	return undo, e.Reload(ctx)
}

// BulkSoftDelete trashes every targeted transaction, returning an undo token.
func (e *Engine) BulkSoftDelete(ctx context.Context, ids []string) (*UndoToken, error) {
	release := e.guard.MarkMutating(ids...)
	defer release()

	undo, err := e.snapshotRows(ctx, ids)
	if err != nil {
		return nil, e.fail(ctx, err)
	}
	now := time.Now().UTC()
	if err := e.repos.PatchTransactions(ctx, ids, Row{"deleted_at": encodeTime(now)}); err != nil {
		return nil, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordUpdate(ctx, KindTransaction, "", fmt.Sprintf("bulk trashed %d transactions", len(ids)))
	return undo, e.Reload(ctx)
}

// Undo restores the snapshotted rows field-for-field.
func (e *Engine) Undo(ctx context.Context, undo *UndoToken) error {
	if undo == nil || len(undo.rows) == 0 {
		return nil
	}
	for _, row := range undo.rows {
		if err := e.repos.RestoreTransactionRow(ctx, row); err != nil {
			return e.fail(ctx, err)
		}
	}
	_ = e.lifecycle.RecordUpdate(ctx, KindTransaction, "", fmt.Sprintf("undid bulk operation on %d transactions", len(undo.rows)))
	return e.Reload(ctx)
}

// =============================================================================
// SCHEDULED TRANSACTIONS
// =============================================================================

// ScheduledInput creates or updates a recurring-transaction template.
type ScheduledInput struct {
	Description string
	Amount      string
	Type        TransactionType
	CategoryID  string
	Frequency   Frequency
	StartDate   time.Time
}

func (in ScheduledInput) validate() (decimal.Decimal, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return decimal.Zero, err
	}
	switch in.Frequency {
	case FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqYearly:
	default:
		return decimal.Zero, &ValidationError{Field: "frequency", Reason: "unknown frequency"}
	}
	if in.StartDate.IsZero() {
		return decimal.Zero, &ValidationError{Field: "start_date", Reason: "required"}
	}
	return amount, nil
}

// CreateScheduled inserts a template with its next due date derived from the
// start date: exactly one frequency step ahead.
func (e *Engine) CreateScheduled(ctx context.Context, in ScheduledInput) (ScheduledTransaction, error) {
	amount, err := in.validate()
	if err != nil {
		return ScheduledTransaction{}, err
	}
	s := ScheduledTransaction{
		Description: in.Description,
		Amount:      amount,
		Type:        in.Type,
		CategoryID:  in.CategoryID,
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		NextDueDate: NextDueDate(in.Frequency, in.StartDate),
	}
	inserted, err := e.repos.InsertScheduled(ctx, s)
	if err != nil {
		return ScheduledTransaction{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordCreate(ctx, KindScheduled, inserted.ID, "scheduled "+inserted.Description)
	return inserted, e.Reload(ctx)
}

// UpdateScheduled rewrites a template and recomputes its next due date from
// the (possibly new) start date, so the due date never drifts independently.
func (e *Engine) UpdateScheduled(ctx context.Context, id string, in ScheduledInput) (ScheduledTransaction, error) {
	amount, err := in.validate()
	if err != nil {
		return ScheduledTransaction{}, err
	}
	release := e.guard.MarkMutating(id)
	defer release()

	s, err := e.repos.GetScheduled(ctx, id)
	if err != nil {
		return ScheduledTransaction{}, err
	}
	s.Description = in.Description
	s.Amount = amount
	s.Type = in.Type
	s.CategoryID = in.CategoryID
	s.Frequency = in.Frequency
	s.StartDate = in.StartDate
	s.NextDueDate = NextDueDate(in.Frequency, in.StartDate)

	if err := e.repos.UpdateScheduled(ctx, s); err != nil {
		return ScheduledTransaction{}, e.fail(ctx, err)
	}
	_ = e.lifecycle.RecordUpdate(ctx, KindScheduled, id, "updated schedule "+s.Description)
	return s, e.Reload(ctx)
}

// AdvanceScheduled steps a template's due date forward one frequency step,
// typically after the recurring transaction has been materialized.
func (e *Engine) AdvanceScheduled(ctx context.Context, id string) (ScheduledTransaction, error) {
	release := e.guard.MarkMutating(id)
	defer release()

	s, err := e.repos.GetScheduled(ctx, id)
	if err != nil {
		return ScheduledTransaction{}, err
	}
	s.NextDueDate = NextDueDate(s.Frequency, s.NextDueDate)
	if err := e.repos.UpdateScheduled(ctx, s); err != nil {
		return ScheduledTransaction{}, e.fail(ctx, err)
	}
	return s, e.Reload(ctx)
}

func (e *Engine) DeleteScheduled(ctx context.Context, id string) error {
	release := e.guard.MarkMutating(id)
	defer release()
	if err := e.repos.DeleteScheduled(ctx, id); err != nil {
		return e.fail(ctx, err)
	}
	return e.Reload(ctx)
}
