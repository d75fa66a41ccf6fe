/*
handlers.go - HTTP handlers for the ledger engine

PURPOSE:
  Thin glue between the router and the engine: decode the request DTO, call
  the one engine method for the operation, map the error taxonomy to a
  status code, encode the response. No business logic lives here.

ERROR MAPPING:
  ValidationError   -> 400
  NotFoundError     -> 404
  TransferError     -> 409 (partial failure, compensated or not)
  anything else     -> 502 (storage backend)

CONFIRMATION:
  Destructive operations carry an explicit confirmation: permanent delete
  requires ?confirm=true, over-target contributions require "confirm": true
  in the body. The engine enforces the latter; the handler enforces the
  former before the engine is even asked.
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/ledger-engine/export"
	"github.com/warp/ledger-engine/ledger"
)

type Handler struct {
	engine *ledger.Engine

	// lastUndo holds the most recent bulk operation's snapshot. Single-user
	// surface, so one slot is enough; undoMu covers concurrent requests
	// touching the slot.
	undoMu   sync.Mutex
	lastUndo *ledger.UndoToken
}

func NewHandler(engine *ledger.Engine) *Handler {
	return &Handler{engine: engine}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrPartialFailure):
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

// =============================================================================
// QUERY SURFACE
// =============================================================================

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()

	resp := SnapshotResponse{
		Transactions: make([]TransactionDTO, 0, len(snap.Transactions)),
		Trashed:      make([]TransactionDTO, 0, len(snap.Trashed)),
		Goals:        make([]GoalDTO, 0, len(snap.Goals)),
		Debts:        make([]DebtDTO, 0, len(snap.Debts)),
		Scheduled:    make([]ScheduledDTO, 0, len(snap.Scheduled)),
		Categories:   make([]CategoryDTO, 0, len(snap.Categories)),
		Accounts:     make([]AccountDTO, 0, len(snap.Accounts)),
		Budgets:      make([]BudgetDTO, 0, len(snap.Budgets)),
		Investments:  make([]InvestmentDTO, 0, len(snap.Investments)),
		Series:       make([]MonthPointDTO, 0, len(snap.Series)),
		Loading:      snap.Loading,
		Error:        snap.Err,
		MutatingIDs:  snap.MutatingIDs,
	}
	for _, t := range snap.Transactions {
		resp.Transactions = append(resp.Transactions, toTransactionDTO(t))
	}
	for _, t := range snap.Trashed {
		resp.Trashed = append(resp.Trashed, toTransactionDTO(t))
	}
	for _, g := range snap.Goals {
		resp.Goals = append(resp.Goals, toGoalDTO(g))
	}
	for _, d := range snap.Debts {
		resp.Debts = append(resp.Debts, toDebtDTO(d))
	}
	for _, s := range snap.Scheduled {
		resp.Scheduled = append(resp.Scheduled, toScheduledDTO(s))
	}
	for _, c := range snap.Categories {
		resp.Categories = append(resp.Categories, CategoryDTO{ID: c.ID, Name: c.Name, Type: string(c.Type), Icon: c.Icon})
	}
	for _, a := range snap.Accounts {
		resp.Accounts = append(resp.Accounts, AccountDTO{ID: a.ID, Name: a.Name, Type: a.Type})
	}
	for _, b := range snap.Budgets {
		resp.Budgets = append(resp.Budgets, BudgetDTO{ID: b.ID, CategoryID: b.CategoryID, MonthlyLimit: b.MonthlyLimit.StringFixed(2)})
	}
	for _, i := range snap.Investments {
		resp.Investments = append(resp.Investments, InvestmentDTO{
			ID: i.ID, Name: i.Name,
			InvestedAmount: i.InvestedAmount.StringFixed(2),
			CurrentValue:   i.CurrentValue.StringFixed(2),
		})
	}
	resp.Summary = SummaryDTO{
		TotalBalance:    snap.Summary.TotalBalance.StringFixed(2),
		MonthlyIncome:   snap.Summary.MonthlyIncome.StringFixed(2),
		MonthlyExpenses: snap.Summary.MonthlyExpenses.StringFixed(2),
	}
	for _, p := range snap.Series {
		resp.Series = append(resp.Series, MonthPointDTO{
			Month:    time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
			Income:   p.Income.StringFixed(2),
			Expenses: p.Expenses.StringFixed(2),
		})
	}
	resp.Gamification = GamificationDTO{
		XP:       snap.Gamification.XP,
		Level:    snap.Gamification.Level,
		Rank:     snap.Gamification.Rank,
		XPToNext: snap.Gamification.XPToNext,
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetTrash lists only the trashed transactions; the same data rides along in
// the full snapshot, this is the narrow view.
func (h *Handler) GetTrash(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	out := make([]TransactionDTO, 0, len(snap.Trashed))
	for _, t := range snap.Trashed {
		out = append(out, toTransactionDTO(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.AuditEntries(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	type entryDTO struct {
		ID         string `json:"id"`
		Action     string `json:"action"`
		EntityKind string `json:"entityKind"`
		EntityID   string `json:"entityId,omitempty"`
		Detail     string `json:"detail"`
		CreatedAt  string `json:"createdAt"`
	}
	out := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO{
			ID:         e.ID,
			Action:     string(e.Action),
			EntityKind: string(e.EntityKind),
			EntityID:   e.EntityID,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.xlsx"`)
	if err := export.WriteTransactions(w, snap.Transactions); err != nil {
		// Headers are gone at this point; all we can do is log-by-status.
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (in TransactionRequest) toInput() ledger.TransactionInput {
	return ledger.TransactionInput{
		Description: in.Description,
		Amount:      in.Amount,
		Date:        parseDate(in.Date),
		Type:        ledger.TransactionType(in.Type),
		CategoryID:  in.CategoryID,
		AccountID:   in.AccountID,
		Status:      ledger.TransactionStatus(in.Status),
		Notes:       in.Notes,
		Starred:     in.Starred,
	}
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.engine.AddTransaction(r.Context(), req.toInput())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionDTO(t))
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req TransactionRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.engine.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), req.toInput())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionDTO(t))
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestoreTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RestoreTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PermanentlyDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "permanent delete requires confirm=true",
		})
		return
	}
	if err := h.engine.PermanentlyDeleteTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// MULTI-ROW OPERATIONS
// =============================================================================

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequestDTO
	if !decode(w, r, &req) {
		return
	}
	result, err := h.engine.Transfer(r.Context(), ledger.TransferRequest{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		Date:          parseDate(req.Date),
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transferId": result.TransferID,
		"debit":      toTransactionDTO(result.Debit),
		"credit":     toTransactionDTO(result.Credit),
		"state":      string(result.State),
	})
}

func (h *Handler) ContributeToGoal(w http.ResponseWriter, r *http.Request) {
	var req ContributionRequestDTO
	if !decode(w, r, &req) {
		return
	}
	result, err := h.engine.ContributeToGoal(r.Context(), ledger.ContributionRequest{
		TargetID: chi.URLParam(r, "id"),
		Amount:   req.Amount,
		Date:     parseDate(req.Date),
		Confirm:  req.Confirm,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionDTO(result.Transaction),
		"completed":   result.Completed,
	})
}

func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	var req ContributionRequestDTO
	if !decode(w, r, &req) {
		return
	}
	result, err := h.engine.PayDebt(r.Context(), ledger.ContributionRequest{
		TargetID: chi.URLParam(r, "id"),
		Amount:   req.Amount,
		Date:     parseDate(req.Date),
		Confirm:  req.Confirm,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction": toTransactionDTO(result.Transaction),
		"completed":   result.Completed,
	})
}

func (h *Handler) MergeTransactions(w http.ResponseWriter, r *http.Request) {
	var req MergeRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.engine.MergeTransactions(r.Context(), req.TransactionIDs, ledger.MergeTarget{
		Description: req.Description,
		CategoryID:  req.CategoryID,
		AccountID:   req.AccountID,
		Date:        parseDate(req.Date),
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toTransactionDTO(t))
}

func (h *Handler) CloneMonth(w http.ResponseWriter, r *http.Request) {
	var req CloneMonthRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.engine.CloneMonth(r.Context(),
		req.SourceYear, time.Month(req.SourceMonth),
		req.TargetYear, time.Month(req.TargetMonth))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"cloned": n})
}

func (h *Handler) BulkOperation(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if !decode(w, r, &req) {
		return
	}
	var (
		undo *ledger.UndoToken
		err  error
	)
	if req.Delete {
		undo, err = h.engine.BulkSoftDelete(r.Context(), req.TransactionIDs)
	} else {
		undo, err = h.engine.BulkUpdate(r.Context(), req.TransactionIDs, ledger.Row(req.Patch))
	}
	if err != nil {
		respondError(w, err)
		return
	}
	h.undoMu.Lock()
	h.lastUndo = undo
	h.undoMu.Unlock()
	respondJSON(w, http.StatusOK, map[string]int{"affected": undo.Size()})
}

func (h *Handler) UndoBulk(w http.ResponseWriter, r *http.Request) {
	h.undoMu.Lock()
	undo := h.lastUndo
	h.lastUndo = nil
	h.undoMu.Unlock()
	if err := h.engine.Undo(r.Context(), undo); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"restored": undo.Size()})
}

// =============================================================================
// REFERENCE ENTITIES
// =============================================================================

func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := h.engine.CreateGoal(r.Context(), ledger.GoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Deadline:     parseDate(req.Deadline),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGoalDTO(g))
}

func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	var req GoalRequest
	if !decode(w, r, &req) {
		return
	}
	g, err := h.engine.UpdateGoal(r.Context(), chi.URLParam(r, "id"), ledger.GoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Deadline:     parseDate(req.Deadline),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toGoalDTO(g))
}

func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req DebtRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := h.engine.CreateDebt(r.Context(), ledger.DebtInput{
		Name:         req.Name,
		TotalAmount:  req.TotalAmount,
		InterestRate: req.InterestRate,
		Category:     req.Category,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toDebtDTO(d))
}

func (h *Handler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteDebt(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateScheduled(w http.ResponseWriter, r *http.Request) {
	var req ScheduledRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.engine.CreateScheduled(r.Context(), ledger.ScheduledInput{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        ledger.TransactionType(req.Type),
		CategoryID:  req.CategoryID,
		Frequency:   ledger.Frequency(req.Frequency),
		StartDate:   parseDate(req.StartDate),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toScheduledDTO(s))
}

func (h *Handler) UpdateScheduled(w http.ResponseWriter, r *http.Request) {
	var req ScheduledRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.engine.UpdateScheduled(r.Context(), chi.URLParam(r, "id"), ledger.ScheduledInput{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        ledger.TransactionType(req.Type),
		CategoryID:  req.CategoryID,
		Frequency:   ledger.Frequency(req.Frequency),
		StartDate:   parseDate(req.StartDate),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toScheduledDTO(s))
}

func (h *Handler) AdvanceScheduled(w http.ResponseWriter, r *http.Request) {
	s, err := h.engine.AdvanceScheduled(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toScheduledDTO(s))
}

func (h *Handler) DeleteScheduled(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteScheduled(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !decode(w, r, &req) {
		return
	}
	a, err := h.engine.CreateAccount(r.Context(), req.Name, req.Type)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, AccountDTO{ID: a.ID, Name: a.Name, Type: a.Type})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.engine.CreateCategory(r.Context(), req.Name, ledger.TransactionType(req.Type), req.Icon)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, CategoryDTO{ID: c.ID, Name: c.Name, Type: string(c.Type), Icon: c.Icon})
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.engine.CreateBudget(r.Context(), req.CategoryID, req.MonthlyLimit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, BudgetDTO{ID: b.ID, CategoryID: b.CategoryID, MonthlyLimit: b.MonthlyLimit.StringFixed(2)})
}

func (h *Handler) CreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req InvestmentRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.engine.CreateInvestment(r.Context(), ledger.InvestmentInput{
		Name:           req.Name,
		InvestedAmount: req.InvestedAmount,
		CurrentValue:   req.CurrentValue,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, InvestmentDTO{
		ID: inv.ID, Name: inv.Name,
		InvestedAmount: inv.InvestedAmount.StringFixed(2),
		CurrentValue:   inv.CurrentValue.StringFixed(2),
	})
}
