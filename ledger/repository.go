/*
repository.go - Typed entity access over the storage backend

PURPOSE:
  One set of typed operations per entity kind, each translating domain
  structs to and from the stored row shape (camelCase fields become
  snake_case columns such as category_id).

RESPONSIBILITIES:
  (a) Row mapping in both directions.
  (b) Read enrichment: every transaction's category_id and account_id are
      resolved into nested Category/Account objects. A missing or stale
      category reference falls back to the designated "Other" category.
  (c) Idempotent auto-provisioning: a user with no categories gets the
      default set, a user with no accounts gets a default Cash account.
      This is the only read path allowed to write. The check-then-insert
      race window is accepted for a single-user system.

SEE ALSO:
  - store.go: The backend contract this builds on
  - engine.go: Multi-row mutations composed from these operations
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FallbackCategoryName is resolved when a transaction references a missing
// or stale category.
const FallbackCategoryName = "Other"

// Repositories provides typed access for a single user's record set.
type Repositories struct {
	backend Backend
	user    string
}

func NewRepositories(backend Backend, userID string) *Repositories {
	return &Repositories{backend: backend, user: userID}
}

// UserID returns the owning user this repository set is bound to.
func (r *Repositories) UserID() string { return r.user }

// Backend exposes the underlying storage adapter.
func (r *Repositories) Backend() Backend { return r.backend }

func (r *Repositories) owned() Filter { return Filter{Owner: r.user} }

// =============================================================================
// TRANSACTIONS
// =============================================================================

// AllTransactions returns every transaction for the user, live and trashed,
// with category and account references resolved.
func (r *Repositories) AllTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := r.backend.Select(ctx, KindTransaction, r.owned())
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, transactionFromRow(row))
	}
	cats, err := r.Categories(ctx)
	if err != nil {
		return nil, err
	}
	accts, err := r.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	resolveReferences(txs, cats, accts)
	return txs, nil
}

// GetTransaction loads one transaction by id, trashed or not.
func (r *Repositories) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	rows, err := r.backend.Select(ctx, KindTransaction, Filter{Owner: r.user, IDs: []string{id}})
	if err != nil {
		return Transaction{}, err
	}
	if len(rows) == 0 {
		return Transaction{}, &NotFoundError{Kind: KindTransaction, ID: id}
	}
	return transactionFromRow(rows[0]), nil
}

// TransactionRows returns raw stored rows for the given ids. Used by bulk
// operations to snapshot pre-mutation state for undo.
func (r *Repositories) TransactionRows(ctx context.Context, ids []string) ([]Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.backend.Select(ctx, KindTransaction, Filter{Owner: r.user, IDs: ids})
}

// InsertTransaction persists a new transaction and returns it with its
// assigned identifier.
func (r *Repositories) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	t.UserID = r.user
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}
	inserted, err := r.backend.Insert(ctx, KindTransaction, []Row{transactionRow(t)})
	if err != nil {
		return Transaction{}, err
	}
	return transactionFromRow(inserted[0]), nil
}

// UpdateTransaction writes the full row for t.
func (r *Repositories) UpdateTransaction(ctx context.Context, t Transaction) error {
	if t.ID == "" {
		return &ValidationError{Field: "id", Reason: "missing"}
	}
	return r.backend.Update(ctx, KindTransaction, r.user, []string{t.ID}, transactionRow(t))
}

// PatchTransactions applies a partial column patch to the given ids.
func (r *Repositories) PatchTransactions(ctx context.Context, ids []string, patch Row) error {
	if len(ids) == 0 {
		return nil
	}
	return r.backend.Update(ctx, KindTransaction, r.user, ids, patch)
}

// RestoreTransactionRow re-applies a previously snapshotted row verbatim.
func (r *Repositories) RestoreTransactionRow(ctx context.Context, snapshot Row) error {
	id := snapshot.String("id")
	if id == "" {
		return &ValidationError{Field: "id", Reason: "snapshot row has no id"}
	}
	return r.backend.Update(ctx, KindTransaction, r.user, []string{id}, snapshot)
}

// HardDeleteTransactions removes rows permanently. Callers go through the
// lifecycle manager, which restricts this to trashed rows.
func (r *Repositories) HardDeleteTransactions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.backend.Delete(ctx, KindTransaction, r.user, ids)
}

func transactionRow(t Transaction) Row {
	return Row{
		"id":                   t.ID,
		"user_id":              t.UserID,
		"description":          t.Description,
		"amount":               t.Amount,
		"date":                 encodeTime(t.Date),
		"created_at":           encodeTime(t.CreatedAt),
		"type":                 string(t.Type),
		"category_id":          t.CategoryID,
		"account_id":           t.AccountID,
		"status":               string(t.Status),
		"goal_contribution_id": t.GoalContributionID,
		"debt_payment_id":      t.DebtPaymentID,
		"investment_id":        t.InvestmentID,
		"transfer_id":          t.TransferID,
		"from_account_id":      t.FromAccountID,
		"to_account_id":        t.ToAccountID,
		"exclude_from_reports": t.ExcludeFromReports,
		"reconciled":           t.Reconciled,
		"starred":              t.Starred,
		"notes":                t.Notes,
		"deleted_at":           encodeTimePtr(t.DeletedAt),
	}
}

func transactionFromRow(r Row) Transaction {
	return Transaction{
		ID:                 r.String("id"),
		UserID:             r.String("user_id"),
		Description:        r.String("description"),
		Amount:             r.Decimal("amount"),
		Date:               r.Time("date"),
		CreatedAt:          r.Time("created_at"),
		Type:               TransactionType(r.String("type")),
		CategoryID:         r.String("category_id"),
		AccountID:          r.String("account_id"),
		Status:             TransactionStatus(r.String("status")),
		GoalContributionID: r.String("goal_contribution_id"),
		DebtPaymentID:      r.String("debt_payment_id"),
		InvestmentID:       r.String("investment_id"),
		TransferID:         r.String("transfer_id"),
		FromAccountID:      r.String("from_account_id"),
		ToAccountID:        r.String("to_account_id"),
		ExcludeFromReports: r.Bool("exclude_from_reports"),
		Reconciled:         r.Bool("reconciled"),
		Starred:            r.Bool("starred"),
		Notes:              r.String("notes"),
		DeletedAt:          r.TimePtr("deleted_at"),
	}
}

// resolveReferences attaches Category and Account objects to transactions.
// A missing category resolves to the user's "Other" category, or a synthetic
// one if even that is absent.
func resolveReferences(txs []Transaction, cats []Category, accts []Account) {
	catByID := make(map[string]*Category, len(cats))
	var fallback *Category
	for i := range cats {
		catByID[cats[i].ID] = &cats[i]
		if cats[i].Name == FallbackCategoryName {
			fallback = &cats[i]
		}
	}
	if fallback == nil {
		fallback = &Category{Name: FallbackCategoryName, Type: TypeExpense}
	}
	acctByID := make(map[string]*Account, len(accts))
	for i := range accts {
		acctByID[accts[i].ID] = &accts[i]
	}
	for i := range txs {
		if c, ok := catByID[txs[i].CategoryID]; ok {
			txs[i].Category = c
		} else {
			txs[i].Category = fallback
		}
		if a, ok := acctByID[txs[i].AccountID]; ok {
			txs[i].Account = a
		}
	}
}

// =============================================================================
// GOALS
// =============================================================================

func (r *Repositories) Goals(ctx context.Context) ([]Goal, error) {
	rows, err := r.backend.Select(ctx, KindGoal, r.owned())
	if err != nil {
		return nil, err
	}
	goals := make([]Goal, 0, len(rows))
	for _, row := range rows {
		goals = append(goals, goalFromRow(row))
	}
	return goals, nil
}

func (r *Repositories) GetGoal(ctx context.Context, id string) (Goal, error) {
	rows, err := r.backend.Select(ctx, KindGoal, Filter{Owner: r.user, IDs: []string{id}})
	if err != nil {
		return Goal{}, err
	}
	if len(rows) == 0 {
		return Goal{}, &NotFoundError{Kind: KindGoal, ID: id}
	}
	return goalFromRow(rows[0]), nil
}

func (r *Repositories) InsertGoal(ctx context.Context, g Goal) (Goal, error) {
	g.UserID = r.user
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if g.Status == "" {
		g.Status = GoalInProgress
	}
	inserted, err := r.backend.Insert(ctx, KindGoal, []Row{goalRow(g)})
	if err != nil {
		return Goal{}, err
	}
	return goalFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateGoal(ctx context.Context, g Goal) error {
	return r.backend.Update(ctx, KindGoal, r.user, []string{g.ID}, goalRow(g))
}

func (r *Repositories) DeleteGoal(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindGoal, r.user, []string{id})
}

func goalRow(g Goal) Row {
	return Row{
		"id":             g.ID,
		"user_id":        g.UserID,
		"name":           g.Name,
		"target_amount":  g.TargetAmount,
		"current_amount": g.CurrentAmount,
		"deadline":       encodeTime(g.Deadline),
		"status":         string(g.Status),
		"created_at":     encodeTime(g.CreatedAt),
	}
}

func goalFromRow(r Row) Goal {
	return Goal{
		ID:            r.String("id"),
		UserID:        r.String("user_id"),
		Name:          r.String("name"),
		TargetAmount:  r.Decimal("target_amount"),
		CurrentAmount: r.Decimal("current_amount"),
		Deadline:      r.Time("deadline"),
		Status:        GoalStatus(r.String("status")),
		CreatedAt:     r.Time("created_at"),
	}
}

// =============================================================================
// DEBTS
// =============================================================================

func (r *Repositories) Debts(ctx context.Context) ([]Debt, error) {
	rows, err := r.backend.Select(ctx, KindDebt, r.owned())
	if err != nil {
		return nil, err
	}
	debts := make([]Debt, 0, len(rows))
	for _, row := range rows {
		debts = append(debts, debtFromRow(row))
	}
	return debts, nil
}

func (r *Repositories) GetDebt(ctx context.Context, id string) (Debt, error) {
	rows, err := r.backend.Select(ctx, KindDebt, Filter{Owner: r.user, IDs: []string{id}})
	if err != nil {
		return Debt{}, err
	}
	if len(rows) == 0 {
		return Debt{}, &NotFoundError{Kind: KindDebt, ID: id}
	}
	return debtFromRow(rows[0]), nil
}

func (r *Repositories) InsertDebt(ctx context.Context, d Debt) (Debt, error) {
	d.UserID = r.user
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = DebtActive
	}
	inserted, err := r.backend.Insert(ctx, KindDebt, []Row{debtRow(d)})
	if err != nil {
		return Debt{}, err
	}
	return debtFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateDebt(ctx context.Context, d Debt) error {
	return r.backend.Update(ctx, KindDebt, r.user, []string{d.ID}, debtRow(d))
}

func (r *Repositories) DeleteDebt(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindDebt, r.user, []string{id})
}

func debtRow(d Debt) Row {
	return Row{
		"id":            d.ID,
		"user_id":       d.UserID,
		"name":          d.Name,
		"total_amount":  d.TotalAmount,
		"paid_amount":   d.PaidAmount,
		"interest_rate": d.InterestRate,
		"category":      d.Category,
		"status":        string(d.Status),
		"created_at":    encodeTime(d.CreatedAt),
	}
}

func debtFromRow(r Row) Debt {
	return Debt{
		ID:           r.String("id"),
		UserID:       r.String("user_id"),
		Name:         r.String("name"),
		TotalAmount:  r.Decimal("total_amount"),
		PaidAmount:   r.Decimal("paid_amount"),
		InterestRate: r.Decimal("interest_rate"),
		Category:     r.String("category"),
		Status:       DebtStatus(r.String("status")),
		CreatedAt:    r.Time("created_at"),
	}
}

// =============================================================================
// SCHEDULED TRANSACTIONS
// =============================================================================

func (r *Repositories) ScheduledTransactions(ctx context.Context) ([]ScheduledTransaction, error) {
	rows, err := r.backend.Select(ctx, KindScheduled, r.owned())
	if err != nil {
		return nil, err
	}
	out := make([]ScheduledTransaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, scheduledFromRow(row))
	}
	return out, nil
}

func (r *Repositories) GetScheduled(ctx context.Context, id string) (ScheduledTransaction, error) {
	rows, err := r.backend.Select(ctx, KindScheduled, Filter{Owner: r.user, IDs: []string{id}})
	if err != nil {
		return ScheduledTransaction{}, err
	}
	if len(rows) == 0 {
		return ScheduledTransaction{}, &NotFoundError{Kind: KindScheduled, ID: id}
	}
	return scheduledFromRow(rows[0]), nil
}

func (r *Repositories) InsertScheduled(ctx context.Context, s ScheduledTransaction) (ScheduledTransaction, error) {
	s.UserID = r.user
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	inserted, err := r.backend.Insert(ctx, KindScheduled, []Row{scheduledRow(s)})
	if err != nil {
		return ScheduledTransaction{}, err
	}
	return scheduledFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateScheduled(ctx context.Context, s ScheduledTransaction) error {
	return r.backend.Update(ctx, KindScheduled, r.user, []string{s.ID}, scheduledRow(s))
}

func (r *Repositories) DeleteScheduled(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindScheduled, r.user, []string{id})
}

func scheduledRow(s ScheduledTransaction) Row {
	return Row{
		"id":            s.ID,
		"user_id":       s.UserID,
		"description":   s.Description,
		"amount":        s.Amount,
		"type":          string(s.Type),
		"category_id":   s.CategoryID,
		"frequency":     string(s.Frequency),
		"start_date":    encodeTime(s.StartDate),
		"next_due_date": encodeTime(s.NextDueDate),
		"created_at":    encodeTime(s.CreatedAt),
	}
}

func scheduledFromRow(r Row) ScheduledTransaction {
	return ScheduledTransaction{
		ID:          r.String("id"),
		UserID:      r.String("user_id"),
		Description: r.String("description"),
		Amount:      r.Decimal("amount"),
		Type:        TransactionType(r.String("type")),
		CategoryID:  r.String("category_id"),
		Frequency:   Frequency(r.String("frequency")),
		StartDate:   r.Time("start_date"),
		NextDueDate: r.Time("next_due_date"),
		CreatedAt:   r.Time("created_at"),
	}
}

// =============================================================================
// CATEGORIES AND ACCOUNTS (with default provisioning)
// =============================================================================

func (r *Repositories) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.backend.Select(ctx, KindCategory, r.owned())
	if err != nil {
		return nil, err
	}
	cats := make([]Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, categoryFromRow(row))
	}
	return cats, nil
}

func (r *Repositories) InsertCategory(ctx context.Context, c Category) (Category, error) {
	c.UserID = r.user
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	inserted, err := r.backend.Insert(ctx, KindCategory, []Row{categoryRow(c)})
	if err != nil {
		return Category{}, err
	}
	return categoryFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateCategory(ctx context.Context, c Category) error {
	return r.backend.Update(ctx, KindCategory, r.user, []string{c.ID}, categoryRow(c))
}

func (r *Repositories) DeleteCategory(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindCategory, r.user, []string{id})
}

func (r *Repositories) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := r.backend.Select(ctx, KindAccount, r.owned())
	if err != nil {
		return nil, err
	}
	accts := make([]Account, 0, len(rows))
	for _, row := range rows {
		accts = append(accts, accountFromRow(row))
	}
	return accts, nil
}

func (r *Repositories) GetAccount(ctx context.Context, id string) (Account, error) {
	rows, err := r.backend.Select(ctx, KindAccount, Filter{Owner: r.user, IDs: []string{id}})
	if err != nil {
		return Account{}, err
	}
	if len(rows) == 0 {
		return Account{}, &NotFoundError{Kind: KindAccount, ID: id}
	}
	return accountFromRow(rows[0]), nil
}

func (r *Repositories) InsertAccount(ctx context.Context, a Account) (Account, error) {
	a.UserID = r.user
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	inserted, err := r.backend.Insert(ctx, KindAccount, []Row{accountRow(a)})
	if err != nil {
		return Account{}, err
	}
	return accountFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateAccount(ctx context.Context, a Account) error {
	return r.backend.Update(ctx, KindAccount, r.user, []string{a.ID}, accountRow(a))
}

func (r *Repositories) DeleteAccount(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindAccount, r.user, []string{id})
}

// defaultCategories is the set provisioned for a user who has none.
// "Other" doubles as the fallback for stale references.
var defaultCategories = []struct {
	Name string
	Type TransactionType
	Icon string
}{
	{"Salary", TypeIncome, "briefcase"},
	{"Groceries", TypeExpense, "cart"},
	{"Rent", TypeExpense, "home"},
	{"Transport", TypeExpense, "bus"},
	{"Entertainment", TypeExpense, "film"},
	{"Health", TypeExpense, "heart"},
	{FallbackCategoryName, TypeExpense, "dots"},
}

// EnsureDefaults provisions default categories and a default account for a
// user who has none. Safe under repeated calls: it checks first and inserts
// only when the collection is empty.
func (r *Repositories) EnsureDefaults(ctx context.Context) error {
	cats, err := r.Categories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		rows := make([]Row, 0, len(defaultCategories))
		now := time.Now().UTC()
		for _, d := range defaultCategories {
			rows = append(rows, categoryRow(Category{
				ID:        uuid.NewString(),
				UserID:    r.user,
				Name:      d.Name,
				Type:      d.Type,
				Icon:      d.Icon,
				CreatedAt: now,
			}))
		}
		if _, err := r.backend.Insert(ctx, KindCategory, rows); err != nil {
			return err
		}
	}
	accts, err := r.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accts) == 0 {
		_, err := r.InsertAccount(ctx, Account{Name: "Cash", Type: "cash"})
		if err != nil {
			return err
		}
	}
	return nil
}

func categoryRow(c Category) Row {
	return Row{
		"id":         c.ID,
		"user_id":    c.UserID,
		"name":       c.Name,
		"type":       string(c.Type),
		"icon":       c.Icon,
		"created_at": encodeTime(c.CreatedAt),
	}
}

func categoryFromRow(r Row) Category {
	return Category{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		Name:      r.String("name"),
		Type:      TransactionType(r.String("type")),
		Icon:      r.String("icon"),
		CreatedAt: r.Time("created_at"),
	}
}

func accountRow(a Account) Row {
	return Row{
		"id":         a.ID,
		"user_id":    a.UserID,
		"name":       a.Name,
		"type":       a.Type,
		"created_at": encodeTime(a.CreatedAt),
	}
}

func accountFromRow(r Row) Account {
	return Account{
		ID:        r.String("id"),
		UserID:    r.String("user_id"),
		Name:      r.String("name"),
		Type:      r.String("type"),
		CreatedAt: r.Time("created_at"),
	}
}

// =============================================================================
// BUDGETS AND INVESTMENTS
// =============================================================================

func (r *Repositories) Budgets(ctx context.Context) ([]Budget, error) {
	rows, err := r.backend.Select(ctx, KindBudget, r.owned())
	if err != nil {
		return nil, err
	}
	out := make([]Budget, 0, len(rows))
	for _, row := range rows {
		out = append(out, budgetFromRow(row))
	}
	return out, nil
}

func (r *Repositories) InsertBudget(ctx context.Context, b Budget) (Budget, error) {
	b.UserID = r.user
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	inserted, err := r.backend.Insert(ctx, KindBudget, []Row{budgetRow(b)})
	if err != nil {
		return Budget{}, err
	}
	return budgetFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateBudget(ctx context.Context, b Budget) error {
	return r.backend.Update(ctx, KindBudget, r.user, []string{b.ID}, budgetRow(b))
}

func (r *Repositories) DeleteBudget(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindBudget, r.user, []string{id})
}

func budgetRow(b Budget) Row {
	return Row{
		"id":            b.ID,
		"user_id":       b.UserID,
		"category_id":   b.CategoryID,
		"monthly_limit": b.MonthlyLimit,
		"created_at":    encodeTime(b.CreatedAt),
	}
}

func budgetFromRow(r Row) Budget {
	return Budget{
		ID:           r.String("id"),
		UserID:       r.String("user_id"),
		CategoryID:   r.String("category_id"),
		MonthlyLimit: r.Decimal("monthly_limit"),
		CreatedAt:    r.Time("created_at"),
	}
}

func (r *Repositories) Investments(ctx context.Context) ([]Investment, error) {
	rows, err := r.backend.Select(ctx, KindInvestment, r.owned())
	if err != nil {
		return nil, err
	}
	out := make([]Investment, 0, len(rows))
	for _, row := range rows {
		out = append(out, investmentFromRow(row))
	}
	return out, nil
}

func (r *Repositories) InsertInvestment(ctx context.Context, inv Investment) (Investment, error) {
	inv.UserID = r.user
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	inserted, err := r.backend.Insert(ctx, KindInvestment, []Row{investmentRow(inv)})
	if err != nil {
		return Investment{}, err
	}
	return investmentFromRow(inserted[0]), nil
}

func (r *Repositories) UpdateInvestment(ctx context.Context, inv Investment) error {
	return r.backend.Update(ctx, KindInvestment, r.user, []string{inv.ID}, investmentRow(inv))
}

func (r *Repositories) DeleteInvestment(ctx context.Context, id string) error {
	return r.backend.Delete(ctx, KindInvestment, r.user, []string{id})
}

func investmentRow(i Investment) Row {
	return Row{
		"id":              i.ID,
		"user_id":         i.UserID,
		"name":            i.Name,
		"invested_amount": i.InvestedAmount,
		"current_value":   i.CurrentValue,
		"created_at":      encodeTime(i.CreatedAt),
	}
}

func investmentFromRow(r Row) Investment {
	return Investment{
		ID:             r.String("id"),
		UserID:         r.String("user_id"),
		Name:           r.String("name"),
		InvestedAmount: r.Decimal("invested_amount"),
		CurrentValue:   r.Decimal("current_value"),
		CreatedAt:      r.Time("created_at"),
	}
}

// =============================================================================
// AUDIT LOG - Append and list only. No update, no delete.
// =============================================================================

func (r *Repositories) AppendAudit(ctx context.Context, e AuditEntry) error {
	e.UserID = r.user
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.backend.Insert(ctx, KindAuditLog, []Row{{
		"id":          e.ID,
		"user_id":     e.UserID,
		"action":      string(e.Action),
		"entity_kind": string(e.EntityKind),
		"entity_id":   e.EntityID,
		"detail":      e.Detail,
		"created_at":  encodeTime(e.CreatedAt),
	}})
	return err
}

func (r *Repositories) AuditEntries(ctx context.Context) ([]AuditEntry, error) {
	rows, err := r.backend.Select(ctx, KindAuditLog, r.owned())
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, AuditEntry{
			ID:         row.String("id"),
			UserID:     row.String("user_id"),
			Action:     AuditAction(row.String("action")),
			EntityKind: Kind(row.String("entity_kind")),
			EntityID:   row.String("entity_id"),
			Detail:     row.String("detail"),
			CreatedAt:  row.Time("created_at"),
		})
	}
	return out, nil
}

// =============================================================================
// PROFILE - Best-effort gamification mirror
// =============================================================================

// SyncProfile upserts the computed gamification state for cross-user
// visibility. The mirror is non-authoritative; failures are the caller's
// to ignore.
func (r *Repositories) SyncProfile(ctx context.Context, p Profile) error {
	p.UserID = r.user
	p.SyncedAt = time.Now().UTC()
	row := Row{
		"id":        p.UserID, // one profile per user
		"user_id":   p.UserID,
		"level":     p.Level,
		"xp":        p.XP,
		"rank":      p.Rank,
		"synced_at": encodeTime(p.SyncedAt),
	}
	existing, err := r.backend.Select(ctx, KindProfile, r.owned())
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		_, err = r.backend.Insert(ctx, KindProfile, []Row{row})
		return err
	}
	return r.backend.Update(ctx, KindProfile, r.user, []string{p.UserID}, row)
}

// describeTransaction renders the audit detail line for a transaction.
func describeTransaction(t Transaction) string {
	return fmt.Sprintf("%s (%s)", t.Description, t.Amount.StringFixed(2))
}
