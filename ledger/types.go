/*
Package ledger provides the core data engine for the personal-finance tracker.

PURPOSE:
  This package contains the domain types, the storage backend contract, the
  typed entity repositories, and the mutation engine that keeps the user's
  financial record set consistent across two very different backends: a remote
  relational store and a device-local JSON document (guest mode).

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: The atomic ledger entry (signed decimal amount)
  - Goal / Debt: Accumulating targets driven by linked transactions
  - ScheduledTransaction: Recurring-payment template with a derived due date
  - AuditLog: Append-only record of who did what when
  - Kind: Entity-kind tag shared by both storage backends

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. One owner: Every entity belongs to exactly one user (or the guest sentinel)
  3. Soft delete first: Transactions are trashed, not destroyed
  4. Derived state is recomputed, never trusted from a cache

SEE ALSO:
  - store.go: Storage backend contract shared by both implementations
  - repository.go: Typed CRUD and foreign-key enrichment
  - engine.go: Multi-row mutations (transfers, contributions, merges)
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuestUserID is the pseudo-user that owns all rows in device-local mode.
const GuestUserID = "guest"

// =============================================================================
// ENTITY KINDS
// =============================================================================

// Kind tags an entity type for the storage backend contract.
type Kind string

const (
	KindTransaction Kind = "transaction"
	KindGoal        Kind = "goal"
	KindDebt        Kind = "debt"
	KindScheduled   Kind = "scheduled_transaction"
	KindCategory    Kind = "category"
	KindAccount     Kind = "account"
	KindBudget      Kind = "budget"
	KindInvestment  Kind = "investment"
	KindAuditLog    Kind = "audit_log"
	KindProfile     Kind = "profile"
)

// Collection returns the pluralized collection/table name for the kind.
// Both backends use this name: the local store as a JSON document key,
// the relational store as a table name.
func (k Kind) Collection() string {
	switch k {
	case KindTransaction:
		return "transactions"
	case KindGoal:
		return "goals"
	case KindDebt:
		return "debts"
	case KindScheduled:
		return "scheduled_transactions"
	case KindCategory:
		return "categories"
	case KindAccount:
		return "accounts"
	case KindBudget:
		return "budgets"
	case KindInvestment:
		return "investments"
	case KindAuditLog:
		return "audit_logs"
	case KindProfile:
		return "profiles"
	}
	return string(k) + "s"
}

// Kinds lists every entity kind known to the engine.
func Kinds() []Kind {
	return []Kind{
		KindTransaction, KindGoal, KindDebt, KindScheduled, KindCategory,
		KindAccount, KindBudget, KindInvestment, KindAuditLog, KindProfile,
	}
}

// =============================================================================
// TRANSACTION - Atomic ledger entry
// =============================================================================

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusScheduled TransactionStatus = "scheduled"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction is the atomic ledger entry. Amount is signed: negative for
// outflows, positive for inflows.
//
// INVARIANT: at most one linked role may be set — GoalContributionID,
// DebtPaymentID, or the transfer pair (TransferID + from/to accounts).
// A transfer is TWO transactions sharing one TransferID whose amounts are
// negatives of each other.
type Transaction struct {
	ID          string
	UserID      string
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	CreatedAt   time.Time
	Type        TransactionType
	CategoryID  string
	AccountID   string
	Status      TransactionStatus

	// Linked roles (mutually exclusive)
	GoalContributionID string
	DebtPaymentID      string
	InvestmentID       string
	TransferID         string
	FromAccountID      string
	ToAccountID        string

	ExcludeFromReports bool
	Reconciled         bool
	Starred            bool
	Notes              string
	DeletedAt          *time.Time

	// Resolved references, populated on read by the repository. Never stored.
	Category *Category
	Account  *Account
}

// Deleted reports whether the transaction is in the trash.
func (t Transaction) Deleted() bool { return t.DeletedAt != nil }

// LinkedRoles counts how many linked roles are set. Valid transactions
// have zero or one.
func (t Transaction) LinkedRoles() int {
	n := 0
	if t.GoalContributionID != "" {
		n++
	}
	if t.DebtPaymentID != "" {
		n++
	}
	if t.TransferID != "" {
		n++
	}
	return n
}

// =============================================================================
// GOALS AND DEBTS - Accumulating targets
// =============================================================================

type GoalStatus string

const (
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
)

// Goal is a savings target. CurrentAmount only moves through contribution
// transactions; Status is completed iff CurrentAmount >= TargetAmount.
type Goal struct {
	ID            string
	UserID        string
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      time.Time
	Status        GoalStatus
	CreatedAt     time.Time
}

type DebtStatus string

const (
	DebtActive DebtStatus = "active"
	DebtPaid   DebtStatus = "paid"
)

// Debt mirrors Goal for money owed: PaidAmount accumulates through payment
// transactions and Status flips to paid when PaidAmount >= TotalAmount.
type Debt struct {
	ID           string
	UserID       string
	Name         string
	TotalAmount  decimal.Decimal
	PaidAmount   decimal.Decimal
	InterestRate decimal.Decimal
	Category     string
	Status       DebtStatus
	CreatedAt    time.Time
}

// =============================================================================
// SCHEDULED TRANSACTIONS - Recurring templates
// =============================================================================

type Frequency string

const (
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqBiweekly Frequency = "biweekly"
	FreqMonthly  Frequency = "monthly"
	FreqYearly   Frequency = "yearly"
)

// ScheduledTransaction is a template for recurring transactions.
// NextDueDate is always StartDate (or the previous NextDueDate) advanced by
// exactly one frequency step; it is recomputed on create/update and never
// drifts independently.
type ScheduledTransaction struct {
	ID          string
	UserID      string
	Description string
	Amount      decimal.Decimal
	Type        TransactionType
	CategoryID  string
	Frequency   Frequency
	StartDate   time.Time
	NextDueDate time.Time
	CreatedAt   time.Time
}

// =============================================================================
// AUDIT LOG - Append-only trail
// =============================================================================

type AuditAction string

const (
	AuditCreate          AuditAction = "create"
	AuditUpdate          AuditAction = "update"
	AuditDelete          AuditAction = "delete"
	AuditRestore         AuditAction = "restore"
	AuditPermanentDelete AuditAction = "permanent_delete"
)

// AuditEntry records one operation. Entries are never mutated or deleted.
type AuditEntry struct {
	ID         string
	UserID     string
	Action     AuditAction
	EntityKind Kind
	EntityID   string
	Detail     string
	CreatedAt  time.Time
}

// =============================================================================
// REFERENCE ENTITIES
// =============================================================================

// Category classifies transactions. A per-user default set is seeded on
// first use; the "Other" category is the fallback for stale references.
type Category struct {
	ID        string
	UserID    string
	Name      string
	Type      TransactionType
	Icon      string
	CreatedAt time.Time
}

type Account struct {
	ID        string
	UserID    string
	Name      string
	Type      string // checking, savings, cash, credit
	CreatedAt time.Time
}

type Budget struct {
	ID           string
	UserID       string
	CategoryID   string
	MonthlyLimit decimal.Decimal
	CreatedAt    time.Time
}

type Investment struct {
	ID             string
	UserID         string
	Name           string
	InvestedAmount decimal.Decimal
	CurrentValue   decimal.Decimal
	CreatedAt      time.Time
}

// Profile is the best-effort mirror of computed gamification state, synced
// for cross-user visibility. It is never authoritative; the aggregation
// layer recomputes level and XP from the canonical collections on each read.
type Profile struct {
	UserID   string
	Level    int
	XP       int
	Rank     string
	SyncedAt time.Time
}

// =============================================================================
// AMOUNT PARSING
// =============================================================================

// ParseAmount converts caller-supplied numeric input into a decimal.
// Invalid input is rejected with a ValidationError, never coerced to zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Reason: "not a number: " + s}
	}
	return d, nil
}
