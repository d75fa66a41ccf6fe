// dto.go - JSON shapes for the HTTP surface.
//
// The wire format keeps amounts as strings: decimal in, decimal out, no
// float drift through JSON. Dates travel as RFC3339 or plain 2006-01-02.
package api

import (
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// RESPONSES
// =============================================================================

type TransactionDTO struct {
	ID                 string `json:"id"`
	Description        string `json:"description"`
	Amount             string `json:"amount"`
	Date               string `json:"date"`
	Type               string `json:"type"`
	CategoryID         string `json:"categoryId,omitempty"`
	CategoryName       string `json:"categoryName,omitempty"`
	AccountID          string `json:"accountId,omitempty"`
	AccountName        string `json:"accountName,omitempty"`
	Status             string `json:"status"`
	GoalContributionID string `json:"goalContributionId,omitempty"`
	DebtPaymentID      string `json:"debtPaymentId,omitempty"`
	TransferID         string `json:"transferId,omitempty"`
	FromAccountID      string `json:"fromAccountId,omitempty"`
	ToAccountID        string `json:"toAccountId,omitempty"`
	ExcludeFromReports bool   `json:"excludeFromReports,omitempty"`
	Reconciled         bool   `json:"reconciled,omitempty"`
	Starred            bool   `json:"starred,omitempty"`
	Notes              string `json:"notes,omitempty"`
	DeletedAt          string `json:"deletedAt,omitempty"`
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:                 t.ID,
		Description:        t.Description,
		Amount:             t.Amount.StringFixed(2),
		Date:               t.Date.Format(time.RFC3339),
		Type:               string(t.Type),
		CategoryID:         t.CategoryID,
		AccountID:          t.AccountID,
		Status:             string(t.Status),
		GoalContributionID: t.GoalContributionID,
		DebtPaymentID:      t.DebtPaymentID,
		TransferID:         t.TransferID,
		FromAccountID:      t.FromAccountID,
		ToAccountID:        t.ToAccountID,
		ExcludeFromReports: t.ExcludeFromReports,
		Reconciled:         t.Reconciled,
		Starred:            t.Starred,
		Notes:              t.Notes,
	}
	if t.Category != nil {
		dto.CategoryName = t.Category.Name
	}
	if t.Account != nil {
		dto.AccountName = t.Account.Name
	}
	if t.DeletedAt != nil {
		dto.DeletedAt = t.DeletedAt.Format(time.RFC3339)
	}
	return dto
}

type GoalDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TargetAmount  string `json:"targetAmount"`
	CurrentAmount string `json:"currentAmount"`
	Deadline      string `json:"deadline,omitempty"`
	Status        string `json:"status"`
}

func toGoalDTO(g ledger.Goal) GoalDTO {
	dto := GoalDTO{
		ID:            g.ID,
		Name:          g.Name,
		TargetAmount:  g.TargetAmount.StringFixed(2),
		CurrentAmount: g.CurrentAmount.StringFixed(2),
		Status:        string(g.Status),
	}
	if !g.Deadline.IsZero() {
		dto.Deadline = g.Deadline.Format("2006-01-02")
	}
	return dto
}

type DebtDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TotalAmount  string `json:"totalAmount"`
	PaidAmount   string `json:"paidAmount"`
	InterestRate string `json:"interestRate"`
	Category     string `json:"category,omitempty"`
	Status       string `json:"status"`
}

func toDebtDTO(d ledger.Debt) DebtDTO {
	return DebtDTO{
		ID:           d.ID,
		Name:         d.Name,
		TotalAmount:  d.TotalAmount.StringFixed(2),
		PaidAmount:   d.PaidAmount.StringFixed(2),
		InterestRate: d.InterestRate.String(),
		Category:     d.Category,
		Status:       string(d.Status),
	}
}

type ScheduledDTO struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	CategoryID  string `json:"categoryId,omitempty"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"startDate"`
	NextDueDate string `json:"nextDueDate"`
}

func toScheduledDTO(s ledger.ScheduledTransaction) ScheduledDTO {
	return ScheduledDTO{
		ID:          s.ID,
		Description: s.Description,
		Amount:      s.Amount.StringFixed(2),
		Type:        string(s.Type),
		CategoryID:  s.CategoryID,
		Frequency:   string(s.Frequency),
		StartDate:   s.StartDate.Format("2006-01-02"),
		NextDueDate: s.NextDueDate.Format("2006-01-02"),
	}
}

type CategoryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon,omitempty"`
}

type AccountDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type BudgetDTO struct {
	ID           string `json:"id"`
	CategoryID   string `json:"categoryId"`
	MonthlyLimit string `json:"monthlyLimit"`
}

type InvestmentDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	InvestedAmount string `json:"investedAmount"`
	CurrentValue   string `json:"currentValue"`
}

type SummaryDTO struct {
	TotalBalance    string `json:"totalBalance"`
	MonthlyIncome   string `json:"monthlyIncome"`
	MonthlyExpenses string `json:"monthlyExpenses"`
}

type MonthPointDTO struct {
	Month    string `json:"month"` // 2024-03
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

type GamificationDTO struct {
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
	Rank     string `json:"rank"`
	XPToNext int    `json:"xpToNext"`
}

// SnapshotResponse is the full query surface: current collections, derived
// aggregates, and the loading/error/mutating status triple.
type SnapshotResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
	Trashed      []TransactionDTO `json:"trashed"`
	Goals        []GoalDTO        `json:"goals"`
	Debts        []DebtDTO        `json:"debts"`
	Scheduled    []ScheduledDTO   `json:"scheduled"`
	Categories   []CategoryDTO    `json:"categories"`
	Accounts     []AccountDTO     `json:"accounts"`
	Budgets      []BudgetDTO      `json:"budgets"`
	Investments  []InvestmentDTO  `json:"investments"`

	Summary      SummaryDTO      `json:"summary"`
	Series       []MonthPointDTO `json:"series"`
	Gamification GamificationDTO `json:"gamification"`

	Loading     bool     `json:"loading"`
	Error       string   `json:"error,omitempty"`
	MutatingIDs []string `json:"mutatingIds,omitempty"`
}

// =============================================================================
// REQUESTS
// =============================================================================

type TransactionRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	CategoryID  string `json:"categoryId"`
	AccountID   string `json:"accountId"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
	Starred     bool   `json:"starred"`
}

type TransferRequestDTO struct {
	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
	Date          string `json:"date"`
	Notes         string `json:"notes"`
}

type ContributionRequestDTO struct {
	Amount  string `json:"amount"`
	Date    string `json:"date"`
	Confirm bool   `json:"confirm"`
}

type MergeRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	Description    string   `json:"description"`
	CategoryID     string   `json:"categoryId"`
	AccountID      string   `json:"accountId"`
	Date           string   `json:"date"`
	Notes          string   `json:"notes"`
}

type CloneMonthRequest struct {
	SourceYear  int `json:"sourceYear"`
	SourceMonth int `json:"sourceMonth"`
	TargetYear  int `json:"targetYear"`
	TargetMonth int `json:"targetMonth"`
}

type BulkRequest struct {
	TransactionIDs []string       `json:"transactionIds"`
	Patch          map[string]any `json:"patch,omitempty"`
	Delete         bool           `json:"delete,omitempty"`
}

type GoalRequest struct {
	Name         string `json:"name"`
	TargetAmount string `json:"targetAmount"`
	Deadline     string `json:"deadline"`
}

type DebtRequest struct {
	Name         string `json:"name"`
	TotalAmount  string `json:"totalAmount"`
	InterestRate string `json:"interestRate"`
	Category     string `json:"category"`
}

type ScheduledRequest struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	CategoryID  string `json:"categoryId"`
	Frequency   string `json:"frequency"`
	StartDate   string `json:"startDate"`
}

type AccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type CategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon"`
}

type BudgetRequest struct {
	CategoryID   string `json:"categoryId"`
	MonthlyLimit string `json:"monthlyLimit"`
}

type InvestmentRequest struct {
	Name           string `json:"name"`
	InvestedAmount string `json:"investedAmount"`
	CurrentValue   string `json:"currentValue"`
}

// parseDate accepts RFC3339 or plain dates; empty means "engine decides".
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	return time.Time{}
}
